package partition

import (
	"testing"
)

func TestMaterialize(t *testing.T) {
	students := roster(sexes(2, 2)...)

	groups, err := Materialize(students, 2, []int{0, 1, 0, 1})
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || len(groups[1]) != 2 {
		t.Errorf("Expected 2/2 split, got %d/%d", len(groups[0]), len(groups[1]))
	}

	// 保持对象身份
	if groups[0][0] != students[0] {
		t.Error("Expected original student pointers in groups")
	}
}

func TestMaterialize_EmptyBins(t *testing.T) {
	groups, err := Materialize(nil, 1, nil)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if len(groups) != 1 || len(groups[0]) != 0 {
		t.Errorf("Expected one empty group, got %v", groups)
	}
}

func TestMaterialize_Errors(t *testing.T) {
	students := roster(sexes(1, 1)...)

	if _, err := Materialize(students, 2, []int{0}); err == nil {
		t.Error("Expected error for length mismatch")
	}
	if _, err := Materialize(students, 2, []int{0, 5}); err == nil {
		t.Error("Expected error for out-of-range bin")
	}
}
