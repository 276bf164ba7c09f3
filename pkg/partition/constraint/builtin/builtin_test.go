package builtin

import (
	"testing"

	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition/constraint"
)

// makeStudents 按性别序列生成测试学生
func makeStudents(sexes ...model.Sex) []*model.Student {
	students := make([]*model.Student, len(sexes))
	for i, sex := range sexes {
		students[i] = &model.Student{ID: i, Name: "学生", Sex: sex}
	}
	return students
}

const (
	F = model.SexFemale
	M = model.SexMale
)

func TestCapacityConstraint(t *testing.T) {
	tests := []struct {
		name    string
		assign  []int
		k       int
		min     int
		max     int
		penalty int
	}{
		{"各组均在区间内", []int{0, 0, 1, 1}, 2, 1, 3, 0},
		{"一组超过上限", []int{0, 0, 0, 1}, 2, 0, 2, 100},
		{"一组低于下限", []int{0, 0, 0, 1}, 2, 2, 4, 100},
	}

	c := NewCapacityConstraint()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := constraint.NewContext(makeStudents(F, F, M, M), tt.k, tt.min, tt.max, nil)
			ctx.SetAssignment(tt.assign)

			valid, penalty, _ := c.Evaluate(ctx)
			if penalty != tt.penalty {
				t.Errorf("Expected penalty %d, got %d", tt.penalty, penalty)
			}
			if valid != (tt.penalty == 0) {
				t.Errorf("Expected valid=%v", tt.penalty == 0)
			}
			if score := c.Score(ctx); score != penalty {
				t.Errorf("Score %d disagrees with Evaluate penalty %d", score, penalty)
			}
		})
	}
}

func TestCapacityConstraint_Preflight(t *testing.T) {
	c := NewCapacityConstraint()

	// 2 组 * 上限 2 = 4 < 5 人，必然无解
	ctx := constraint.NewContext(makeStudents(F, F, F, M, M), 2, 0, 2, nil)
	if err := c.Preflight(ctx); err == nil {
		t.Error("Expected preflight error for insufficient capacity")
	}

	// 2 组 * 下限 3 = 6 > 5 人，必然无解
	ctx = constraint.NewContext(makeStudents(F, F, F, M, M), 2, 3, 5, nil)
	if err := c.Preflight(ctx); err == nil {
		t.Error("Expected preflight error for unreachable minimum")
	}

	ctx = constraint.NewContext(makeStudents(F, F, F, M, M), 2, 2, 3, nil)
	if err := c.Preflight(ctx); err != nil {
		t.Errorf("Expected feasible geometry, got %v", err)
	}
}

func TestSameSexGroupConstraint(t *testing.T) {
	c := NewSameSexGroupConstraint()

	ctx := constraint.NewContext(makeStudents(F, F, M, M), 2, 0, 2, nil)
	ctx.SetAssignment([]int{0, 0, 1, 1})
	if _, penalty, _ := c.Evaluate(ctx); penalty != 0 {
		t.Errorf("Expected 0 penalty for homogeneous groups, got %d", penalty)
	}

	// 每组各混入一名少数性别
	ctx.SetAssignment([]int{0, 1, 0, 1})
	if _, penalty, _ := c.Evaluate(ctx); penalty != 200 {
		t.Errorf("Expected penalty 200, got %d", penalty)
	}
}

func TestSameSexGroupConstraint_Preflight(t *testing.T) {
	c := NewSameSexGroupConstraint()

	// 5F/1M、每组至多 3 人：需要 ceil(5/3)+ceil(1/3)=3 组，只有 2 组
	ctx := constraint.NewContext(makeStudents(F, F, F, F, F, M), 2, 0, 3, nil)
	if err := c.Preflight(ctx); err == nil {
		t.Error("Expected preflight error: same-sex grouping needs 3 bins")
	}

	// 全女生：1 组即可
	ctx = constraint.NewContext(makeStudents(F, F, F), 1, 0, 3, nil)
	if err := c.Preflight(ctx); err != nil {
		t.Errorf("Expected feasible, got %v", err)
	}
}

func TestMixedSexGroupConstraint(t *testing.T) {
	c := NewMixedSexGroupConstraint()

	ctx := constraint.NewContext(makeStudents(F, M, F, M), 2, 0, 2, nil)
	ctx.SetAssignment([]int{0, 0, 1, 1})
	if _, penalty, _ := c.Evaluate(ctx); penalty != 0 {
		t.Errorf("Expected 0 penalty for mixed groups, got %d", penalty)
	}

	// 一组全女、一组全男：每组各缺一种性别
	ctx.SetAssignment([]int{0, 1, 0, 1})
	valid, penalty, details := c.Evaluate(ctx)
	if valid {
		t.Error("Expected invalid for single-sex groups under mixed rule")
	}
	if penalty != 200 {
		t.Errorf("Expected penalty 200, got %d", penalty)
	}
	if len(details) != 2 {
		t.Errorf("Expected 2 violation details, got %d", len(details))
	}
}

func TestSexFloorConstraint(t *testing.T) {
	c := NewSexFloorConstraint(1, 1)

	ctx := constraint.NewContext(makeStudents(F, M, F, M), 2, 0, 3, nil)
	ctx.SetAssignment([]int{0, 0, 1, 1})
	if _, penalty, _ := c.Evaluate(ctx); penalty != 0 {
		t.Errorf("Expected 0 penalty, got %d", penalty)
	}

	// 第 1 组没有男生、第 2 组没有女生
	ctx.SetAssignment([]int{0, 1, 0, 1})
	if _, penalty, _ := c.Evaluate(ctx); penalty != 200 {
		t.Errorf("Expected penalty 200, got %d", penalty)
	}
}

func TestSexFloorConstraint_Preflight(t *testing.T) {
	// 每班至少 2 名女生、2 个班，但只有 3 名女生
	c := NewSexFloorConstraint(2, 0)
	ctx := constraint.NewContext(makeStudents(F, F, F, M, M, M), 2, 0, 5, nil)
	if err := c.Preflight(ctx); err == nil {
		t.Error("Expected preflight error for female floor")
	}

	c = NewSexFloorConstraint(1, 1)
	if err := c.Preflight(ctx); err != nil {
		t.Errorf("Expected feasible floors, got %v", err)
	}
}

func TestSizeBalanceTerm(t *testing.T) {
	tests := []struct {
		name    string
		low     int
		high    int
		assign  []int
		penalty int
	}{
		{"全部命中目标", 2, 2, []int{0, 0, 1, 1}, 0},
		{"偏离目标各一人", 2, 2, []int{0, 0, 0, 1}, 2},
		{"区间内不罚", 1, 3, []int{0, 0, 0, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := NewSizeBalanceTerm(1, tt.low, tt.high)
			ctx := constraint.NewContext(makeStudents(F, F, M, M), 2, 0, 4, nil)
			ctx.SetAssignment(tt.assign)

			if score := term.Score(ctx); score != tt.penalty {
				t.Errorf("Expected score %d, got %d", tt.penalty, score)
			}
		})
	}
}

func TestSexBalanceTerm(t *testing.T) {
	term := NewSexBalanceTerm(2)

	ctx := constraint.NewContext(makeStudents(F, M, F, M), 2, 0, 2, nil)
	ctx.SetAssignment([]int{0, 0, 1, 1})
	if score := term.Score(ctx); score != 0 {
		t.Errorf("Expected 0 for balanced groups, got %d", score)
	}

	// |F-M| = 2 每组，权重 2
	ctx.SetAssignment([]int{0, 1, 0, 1})
	if score := term.Score(ctx); score != 8 {
		t.Errorf("Expected 8, got %d", score)
	}
}

func TestAttributeSpreadTerm(t *testing.T) {
	students := makeStudents(F, F, M, M)
	students[0].Attributes = map[string]string{"language": "德语"}
	students[1].Attributes = map[string]string{"language": "德语"}
	students[2].Attributes = map[string]string{"language": "法语"}
	students[3].Attributes = map[string]string{"language": "德语"}

	term := NewAttributeSpreadTerm("language", []string{"德语", "法语"}, 5)
	ctx := constraint.NewContext(students, 2, 0, 3, []string{"language"})

	// 德语集中在一组：每个取值只占一组，不罚
	ctx.SetAssignment([]int{0, 0, 1, 0})
	if score := term.Score(ctx); score != 0 {
		t.Errorf("Expected 0 for concentrated values, got %d", score)
	}

	// 德语散在两组：超出 1 组，罚 5
	ctx.SetAssignment([]int{0, 0, 0, 1})
	if score := term.Score(ctx); score != 5 {
		t.Errorf("Expected 5, got %d", score)
	}
}

func TestAttributeCapTerm(t *testing.T) {
	students := makeStudents(F, F, F, M)
	for i := 0; i < 3; i++ {
		students[i].Attributes = map[string]string{"subject": "数学"}
	}

	term := NewAttributeCapTerm("subject", []string{"数学"}, 2, 5)
	ctx := constraint.NewContext(students, 2, 0, 4, []string{"subject"})

	// 一组 3 名同科目：超出上限 1 人
	ctx.SetAssignment([]int{0, 0, 0, 1})
	if score := term.Score(ctx); score != 5 {
		t.Errorf("Expected 5, got %d", score)
	}

	// 拆开后不超
	ctx.SetAssignment([]int{0, 0, 1, 1})
	if score := term.Score(ctx); score != 0 {
		t.Errorf("Expected 0, got %d", score)
	}
}

func TestPriorPairTerm(t *testing.T) {
	term := NewPriorPairTerm([]ResolvedPair{{ID1: 0, ID2: 1}, {ID1: 2, ID2: 3}}, 10)
	ctx := constraint.NewContext(makeStudents(F, F, M, M), 2, 0, 2, nil)

	// 两对都再次同组
	ctx.SetAssignment([]int{0, 0, 1, 1})
	if score := term.Score(ctx); score != 20 {
		t.Errorf("Expected 20, got %d", score)
	}

	// 两对都被拆开
	ctx.SetAssignment([]int{0, 1, 0, 1})
	if score := term.Score(ctx); score != 0 {
		t.Errorf("Expected 0, got %d", score)
	}

	if term.PairCount() != 2 {
		t.Errorf("Expected 2 pairs, got %d", term.PairCount())
	}
}
