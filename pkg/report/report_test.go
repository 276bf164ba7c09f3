package report

import (
	"strings"
	"testing"
	"time"

	"github.com/fenban/fenban/pkg/model"
)

func sampleGroups() [][]*model.Student {
	return [][]*model.Student{
		{
			{ID: 0, Name: "Anna Jensen", Sex: model.SexFemale},
			{ID: 1, Name: "Lars Nielsen", Sex: model.SexMale},
		},
		{
			{ID: 2, Name: "Mette Hansen", Sex: model.SexFemale},
		},
	}
}

func TestBuildText(t *testing.T) {
	text := BuildText(sampleGroups())

	for _, want := range []string{
		"=== Group 1 ===",
		"=== Group 2 ===",
		"Anna Jensen",
		"Total: 2 students",
		"Total: 1 students",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in report:\n%s", want, text)
		}
	}
	if !strings.HasSuffix(text, "\n") {
		t.Error("Expected trailing newline")
	}
}

func TestBuildCSV(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	out := BuildCSV(sampleGroups(), ts)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "timestamp,members" {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "Anna Jensen;Lars Nielsen") {
		t.Errorf("Expected semicolon-joined members, got %s", lines[1])
	}
	if !strings.Contains(lines[1], "2026-08-28T10:00:00Z") {
		t.Errorf("Expected timestamp in row, got %s", lines[1])
	}
}

func TestBuildClassCSV(t *testing.T) {
	groups := [][]*model.Student{
		{
			{ID: 0, SourceID: "101", Sex: model.SexFemale,
				Attributes: map[string]string{"language": "德语"}},
		},
		{
			{ID: 1, SourceID: "102", Sex: model.SexMale},
		},
	}

	out := BuildClassCSV(groups, []string{"1.A"}, []string{"language"})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "class,id,sex,language" {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	if lines[1] != "1.A,101,F,德语" {
		t.Errorf("Unexpected row: %s", lines[1])
	}
	// 未命名班级回退为序号名
	if !strings.HasPrefix(lines[2], "Class 2,") {
		t.Errorf("Expected fallback class name, got %s", lines[2])
	}
}
