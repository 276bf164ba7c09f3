package constraint

import (
	"testing"

	"github.com/fenban/fenban/pkg/model"
)

func attrStudents() []*model.Student {
	return []*model.Student{
		{ID: 0, Name: "A", Sex: model.SexFemale, Attributes: map[string]string{"language": "德语"}},
		{ID: 1, Name: "B", Sex: model.SexFemale, Attributes: map[string]string{"language": "法语"}},
		{ID: 2, Name: "C", Sex: model.SexMale, Attributes: map[string]string{"language": "德语"}},
		{ID: 3, Name: "D", Sex: model.SexMale, Attributes: map[string]string{}},
	}
}

func TestContext_SetAssignment(t *testing.T) {
	ctx := NewContext(attrStudents(), 2, 0, 3, []string{"language"})
	ctx.SetAssignment([]int{0, 1, 0, 1})

	if ctx.BinSize(0) != 2 || ctx.BinSize(1) != 2 {
		t.Errorf("Expected sizes 2/2, got %d/%d", ctx.BinSize(0), ctx.BinSize(1))
	}
	if ctx.SexCount(0, model.SexFemale) != 1 {
		t.Errorf("Expected 1 female in bin 0, got %d", ctx.SexCount(0, model.SexFemale))
	}
	if ctx.AttrCount(0, "language", "德语") != 2 {
		t.Errorf("Expected 2 德语 in bin 0, got %d", ctx.AttrCount(0, "language", "德语"))
	}
	if !ctx.Complete() {
		t.Error("Expected complete assignment")
	}
}

func TestContext_MoveIncremental(t *testing.T) {
	ctx := NewContext(attrStudents(), 2, 0, 3, []string{"language"})
	ctx.SetAssignment([]int{0, 0, 1, 1})

	// 增量移动后的缓存必须与全量重建一致
	ctx.Move(0, 1)

	fresh := NewContext(attrStudents(), 2, 0, 3, []string{"language"})
	fresh.SetAssignment([]int{1, 0, 1, 1})

	for g := 0; g < 2; g++ {
		if ctx.BinSize(g) != fresh.BinSize(g) {
			t.Errorf("Bin %d size mismatch: %d vs %d", g, ctx.BinSize(g), fresh.BinSize(g))
		}
		if ctx.SexCount(g, model.SexFemale) != fresh.SexCount(g, model.SexFemale) {
			t.Errorf("Bin %d female count mismatch", g)
		}
		if ctx.AttrCount(g, "language", "德语") != fresh.AttrCount(g, "language", "德语") {
			t.Errorf("Bin %d 德语 count mismatch", g)
		}
	}
}

func TestContext_Swap(t *testing.T) {
	ctx := NewContext(attrStudents(), 2, 0, 3, nil)
	ctx.SetAssignment([]int{0, 0, 1, 1})

	ctx.Swap(0, 2)

	if ctx.Assign[0] != 1 || ctx.Assign[2] != 0 {
		t.Errorf("Expected swapped bins, got %d/%d", ctx.Assign[0], ctx.Assign[2])
	}
	if ctx.BinSize(0) != 2 || ctx.BinSize(1) != 2 {
		t.Error("Swap must preserve bin sizes")
	}
	if ctx.SexCount(0, model.SexMale) != 2 {
		t.Errorf("Expected 2 males in bin 0 after swap, got %d", ctx.SexCount(0, model.SexMale))
	}
}

func TestContext_BinsWithValue(t *testing.T) {
	ctx := NewContext(attrStudents(), 2, 0, 3, []string{"language"})
	ctx.SetAssignment([]int{0, 1, 1, 0})

	if n := ctx.BinsWithValue("language", "德语"); n != 2 {
		t.Errorf("Expected 德语 in 2 bins, got %d", n)
	}
	if n := ctx.BinsWithValue("language", "法语"); n != 1 {
		t.Errorf("Expected 法语 in 1 bin, got %d", n)
	}
}

func TestContext_Clone(t *testing.T) {
	ctx := NewContext(attrStudents(), 2, 0, 3, []string{"language"})
	ctx.SetAssignment([]int{0, 0, 1, 1})

	clone := ctx.Clone()
	clone.Move(0, 1)

	if ctx.Assign[0] != 0 {
		t.Error("Clone must not share assignment with original")
	}
	if ctx.BinSize(0) != 2 {
		t.Error("Clone mutation leaked into original caches")
	}
}
