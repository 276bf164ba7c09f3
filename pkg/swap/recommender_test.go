package swap

import (
	"testing"

	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition/constraint"
	"github.com/fenban/fenban/pkg/partition/constraint/builtin"
)

// 2F/2M 两组：初始把同性放一组，交换后男女均衡
func setup() (*constraint.Manager, *constraint.Context) {
	students := []*model.Student{
		{ID: 0, Name: "Anna", Sex: model.SexFemale},
		{ID: 1, Name: "Mette", Sex: model.SexFemale},
		{ID: 2, Name: "Lars", Sex: model.SexMale},
		{ID: 3, Name: "Ole", Sex: model.SexMale},
	}

	manager := constraint.NewManager()
	manager.Register(builtin.NewCapacityConstraint())
	manager.Register(builtin.NewSexBalanceTerm(2))

	ctx := constraint.NewContext(students, 2, 0, 2, nil)
	ctx.SetAssignment([]int{0, 0, 1, 1})
	return manager, ctx
}

func TestEvaluator_EvaluateSwap(t *testing.T) {
	manager, ctx := setup()
	evaluator := NewEvaluator(manager)

	// Mette 与 Lars 互换：两组都变成 1F/1M
	eval := evaluator.EvaluateSwap(ctx, 1, 2)

	if !eval.Feasible {
		t.Error("Expected feasible swap")
	}
	if eval.ObjectiveBefore != 8 {
		t.Errorf("Expected objective 8 before, got %d", eval.ObjectiveBefore)
	}
	if eval.ObjectiveAfter != 0 {
		t.Errorf("Expected objective 0 after, got %d", eval.ObjectiveAfter)
	}
	if eval.Improvement != 8 {
		t.Errorf("Expected improvement 8, got %d", eval.Improvement)
	}

	// 上下文必须保持原状
	if ctx.Assign[1] != 0 || ctx.Assign[2] != 1 {
		t.Error("Evaluation must leave the context unchanged")
	}
}

func TestEvaluator_EvaluateRelocate(t *testing.T) {
	manager, ctx := setup()
	evaluator := NewEvaluator(manager)

	eval := evaluator.EvaluateRelocate(ctx, 0, 1)

	// 迁移导致第 2 组 3 人，超过上限
	if eval.Feasible {
		t.Error("Expected infeasible relocation over capacity")
	}
	if ctx.Assign[0] != 0 {
		t.Error("Evaluation must leave the context unchanged")
	}
}

func TestRecommender_Recommend(t *testing.T) {
	manager, ctx := setup()
	recommender := NewRecommender(manager)

	recs := recommender.Recommend(ctx, nil)
	if len(recs) == 0 {
		t.Fatal("Expected at least one recommendation")
	}

	best := recs[0]
	if best.Rank != 1 {
		t.Errorf("Expected rank 1 first, got %d", best.Rank)
	}
	if best.SwapType != "exchange" {
		t.Errorf("Expected exchange recommendation, got %s", best.SwapType)
	}
	if best.Improvement != 8 {
		t.Errorf("Expected improvement 8, got %d", best.Improvement)
	}

	// 降幅必须非增排列
	for i := 1; i < len(recs); i++ {
		if recs[i].Improvement > recs[i-1].Improvement {
			t.Error("Expected recommendations sorted by improvement")
		}
	}
}

func TestRecommender_ExcludeStudents(t *testing.T) {
	manager, ctx := setup()
	recommender := NewRecommender(manager)

	recs := recommender.Recommend(ctx, &Options{
		MaxRecommendations: 10,
		MinImprovement:     1,
		ExcludeStudents:    []int{0, 1},
	})

	for _, rec := range recs {
		if rec.StudentID1 == 0 || rec.StudentID1 == 1 || rec.StudentID2 == 0 || rec.StudentID2 == 1 {
			t.Errorf("Excluded student appears in recommendation: %+v", rec)
		}
	}
}

func TestRecommender_NoImprovementOnOptimal(t *testing.T) {
	manager, ctx := setup()
	ctx.SetAssignment([]int{0, 1, 0, 1}) // 已经均衡

	recs := NewRecommender(manager).Recommend(ctx, nil)
	if len(recs) != 0 {
		t.Errorf("Expected no recommendations on an optimal partition, got %d", len(recs))
	}
}
