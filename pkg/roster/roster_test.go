package roster

import (
	"strings"
	"testing"

	"github.com/fenban/fenban/pkg/model"
)

func TestLoadClassRoster(t *testing.T) {
	input := strings.Join([]string{
		"Køn,Navn,Sprog,Fag,Herkomst", // 表头：id 列不是整数
		"k,101,德语,数学,丹麦",
		"m,102,法语,物理,德国",
		"",
		"f,103,德语,,丹麦",
	}, "\n")

	students, err := LoadClassRoster(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadClassRoster failed: %v", err)
	}
	if len(students) != 3 {
		t.Fatalf("Expected 3 students, got %d", len(students))
	}

	first := students[0]
	if first.ID != 0 || first.SourceID != "101" || first.Name != "101" {
		t.Errorf("Unexpected first student: %+v", first)
	}
	if first.Sex != model.SexFemale {
		t.Errorf("Expected normalized F for 'k', got %s", first.Sex)
	}
	if first.Attribute(AttrLanguage) != "德语" || first.Attribute(AttrOrigin) != "丹麦" {
		t.Errorf("Unexpected attributes: %v", first.Attributes)
	}
	if students[1].Sex != model.SexMale {
		t.Errorf("Expected M, got %s", students[1].Sex)
	}
	if students[2].Attribute(AttrSubject) != "" {
		t.Error("Expected empty subject preserved as empty")
	}
}

func TestLoadClassRoster_Empty(t *testing.T) {
	if _, err := LoadClassRoster(strings.NewReader("Køn,Navn\n")); err == nil {
		t.Error("Expected empty roster error")
	}
}

func TestLoadGroupRoster(t *testing.T) {
	input := strings.Join([]string{
		"Sex,First,Last", // 表头：性别列无法归一化
		"kvinde,Anna,Jensen",
		"mand,Lars,  ",
		"x,Broken,Row", // 非法性别整行丢弃
		"f, ,Nielsen",
	}, "\n")

	students, err := LoadGroupRoster(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadGroupRoster failed: %v", err)
	}
	if len(students) != 3 {
		t.Fatalf("Expected 3 students, got %d", len(students))
	}

	if students[0].Name != "Anna Jensen" || students[0].Sex != model.SexFemale {
		t.Errorf("Unexpected student: %+v", students[0])
	}
	if students[1].Name != "Lars" {
		t.Errorf("Expected trailing blank lastname dropped, got %q", students[1].Name)
	}
	if students[2].Name != "Nielsen" {
		t.Errorf("Expected firstname-less name, got %q", students[2].Name)
	}
	for i, s := range students {
		if s.ID != i {
			t.Errorf("Expected dense IDs, got %d at %d", s.ID, i)
		}
	}
}

func TestPriorPairsFromGroups(t *testing.T) {
	history := [][][]string{
		{ // 第一次分班
			{"Anna", "Lars", "Mette"},
			{"Ole"},
		},
		{ // 第二次分班：Anna/Lars 重复出现
			{"Anna", "Lars"},
		},
	}

	pairs := PriorPairsFromGroups(history)
	if len(pairs) != 3 {
		t.Fatalf("Expected 3 distinct pairs, got %d", len(pairs))
	}

	want := map[model.PriorPair]bool{
		{Name1: "Anna", Name2: "Lars"}:  true,
		{Name1: "Anna", Name2: "Mette"}: true,
		{Name1: "Lars", Name2: "Mette"}: true,
	}
	for _, p := range pairs {
		if !want[p] {
			t.Errorf("Unexpected pair: %+v", p)
		}
	}
}

func TestNamesByGroup(t *testing.T) {
	groups := [][]*model.Student{
		{{ID: 0, Name: "Anna"}, {ID: 1, Name: "Lars"}},
		{},
	}
	names := NamesByGroup(groups)
	if len(names) != 2 || len(names[0]) != 2 || len(names[1]) != 0 {
		t.Errorf("Unexpected shape: %v", names)
	}
	if names[0][0] != "Anna" {
		t.Errorf("Expected Anna, got %s", names[0][0])
	}
}
