package model

import "testing"

func TestNormalizeSex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Sex
	}{
		{"丹麦语女性K", "K", SexFemale},
		{"丹麦语女性kvinde", "kvinde", SexFemale},
		{"英语female", "Female", SexFemale},
		{"单字母f", "f", SexFemale},
		{"丹麦语男性mand", "Mand", SexMale},
		{"英语male", "MALE", SexMale},
		{"单字母m", " m ", SexMale},
		{"无法识别", "x", Sex("X")},
		{"空串", "  ", Sex("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSex(tt.input); got != tt.expected {
				t.Errorf("NormalizeSex(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSex_Valid(t *testing.T) {
	if !SexFemale.Valid() || !SexMale.Valid() {
		t.Error("F 和 M 应为合法性别值")
	}
	if Sex("X").Valid() || Sex("").Valid() {
		t.Error("未知值不应合法")
	}
}

func TestSex_Other(t *testing.T) {
	if SexFemale.Other() != SexMale {
		t.Error("F 的对侧应为 M")
	}
	if SexMale.Other() != SexFemale {
		t.Error("M 的对侧应为 F")
	}
}

func TestMode_Valid(t *testing.T) {
	if !ModeGroups.Valid() || !ModeClasses.Valid() {
		t.Error("groups 和 classes 应为合法模式")
	}
	if Mode("teams").Valid() {
		t.Error("未知模式不应合法")
	}
}

func TestStudent_Attribute(t *testing.T) {
	s := &Student{
		Name: "Anna",
		Sex:  SexFemale,
		Attributes: map[string]string{
			"language": "german",
		},
	}

	if s.Attribute("language") != "german" {
		t.Errorf("Attribute(language) = %q", s.Attribute("language"))
	}
	if s.Attribute("subject") != "" {
		t.Error("缺失属性应返回空串")
	}
	if !s.HasAttribute("language", "german") {
		t.Error("HasAttribute 应匹配")
	}

	// 属性表为空时不应 panic
	empty := &Student{Name: "Ben", Sex: SexMale}
	if empty.Attribute("language") != "" {
		t.Error("无属性表时应返回空串")
	}
}

func TestPriorPair_Normalize(t *testing.T) {
	p := PriorPair{Name1: "Mette", Name2: "Anna"}
	n := p.Normalize()
	if n.Name1 != "Anna" || n.Name2 != "Mette" {
		t.Errorf("Normalize() = %+v, expected Anna/Mette", n)
	}

	// 去空格后排序
	p2 := PriorPair{Name1: " Bo ", Name2: "Ada"}
	n2 := p2.Normalize()
	if n2.Name1 != "Ada" || n2.Name2 != "Bo" {
		t.Errorf("Normalize() = %+v, expected Ada/Bo", n2)
	}

	// 同一配对的两种顺序归一化后相等
	if (PriorPair{Name1: "A", Name2: "B"}).Normalize() != (PriorPair{Name1: "B", Name2: "A"}).Normalize() {
		t.Error("无序配对归一化后应相等")
	}
}

func TestDistinctAttributeValues(t *testing.T) {
	students := []*Student{
		{Attributes: map[string]string{"subject": "math"}},
		{Attributes: map[string]string{"subject": "biology"}},
		{Attributes: map[string]string{"subject": "math"}},
		{Attributes: map[string]string{"subject": "  "}},
		{},
	}

	values := DistinctAttributeValues(students, "subject")
	if len(values) != 2 {
		t.Fatalf("expected 2 distinct values, got %v", values)
	}
	if values[0] != "math" || values[1] != "biology" {
		t.Errorf("应保持首现顺序, got %v", values)
	}
}

func TestCountBySex(t *testing.T) {
	students := []*Student{
		{Sex: SexFemale},
		{Sex: SexMale},
		{Sex: SexFemale},
	}

	if got := CountBySex(students, SexFemale); got != 2 {
		t.Errorf("CountBySex(F) = %d, expected 2", got)
	}
	if got := CountBySex(students, SexMale); got != 1 {
		t.Errorf("CountBySex(M) = %d, expected 1", got)
	}
}
