package partition

import (
	"context"
	"testing"
	"time"

	"github.com/fenban/fenban/pkg/errors"
	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition/solver"
	rosterpkg "github.com/fenban/fenban/pkg/roster"
)

// testSpec 固定随机种子和较短时间预算，保证测试确定且快速
func testSpec(base Spec) Spec {
	base.Seed = 42
	base.TimeLimit = 5 * time.Second
	return base
}

func TestSolve_MixedGroups(t *testing.T) {
	// 10 名学生（6F/4M）、目标组大小 5：两个组，每组男女兼有
	students := roster(sexes(6, 4)...)
	spec := testSpec(DefaultGroupSpec(5, false))

	outcome, err := Solve(context.Background(), spec, students)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if !outcome.Status.Success() {
		t.Fatalf("Expected success, got %s", outcome.Status)
	}
	if len(outcome.Groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(outcome.Groups))
	}
	if !outcome.MixedRuleActive {
		t.Error("Expected mixed rule active for 6F/4M with 2 groups")
	}

	// 全覆盖：每名学生恰好出现一次
	seen := make(map[int]int)
	for _, g := range outcome.Groups {
		if len(g) > 5 {
			t.Errorf("Group exceeds max size: %d", len(g))
		}
		females, males := 0, 0
		for _, s := range g {
			seen[s.ID]++
			if s.Sex == model.SexFemale {
				females++
			} else {
				males++
			}
		}
		if females == 0 || males == 0 {
			t.Errorf("Expected both sexes in each group, got F=%d M=%d", females, males)
		}
	}
	if len(seen) != 10 {
		t.Errorf("Expected 10 distinct students, got %d", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("Student %d appears %d times", id, n)
		}
	}
}

func TestSolve_SameSexGroups(t *testing.T) {
	// 6F/3M、组大小 3：三个组，每组同性
	students := roster(sexes(6, 3)...)
	spec := testSpec(DefaultGroupSpec(3, true))

	outcome, err := Solve(context.Background(), spec, students)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !outcome.Status.Success() {
		t.Fatalf("Expected success, got %s", outcome.Status)
	}

	for i, g := range outcome.Groups {
		f, m := 0, 0
		for _, s := range g {
			if s.Sex == model.SexFemale {
				f++
			} else {
				m++
			}
		}
		if f > 0 && m > 0 {
			t.Errorf("Group %d mixes sexes (F=%d, M=%d)", i, f, m)
		}
	}
}

func TestSolve_EmptyRoster(t *testing.T) {
	// 空批次：一个空组，目标值为 0
	outcome, err := Solve(context.Background(), testSpec(DefaultGroupSpec(5, false)), nil)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if outcome.Status != solver.StatusOptimal {
		t.Errorf("Expected OPTIMAL, got %s", outcome.Status)
	}
	if len(outcome.Groups) != 1 || len(outcome.Groups[0]) != 0 {
		t.Errorf("Expected one empty group, got %v", outcome.Groups)
	}
	if outcome.Objective != 0 {
		t.Errorf("Expected objective 0, got %d", outcome.Objective)
	}
}

func TestSolve_SameSexInfeasible(t *testing.T) {
	// 5F/1M、组大小 3：同性分组需要 3 个组，只有 2 个
	students := roster(sexes(5, 1)...)
	spec := testSpec(DefaultGroupSpec(3, true))

	_, err := Solve(context.Background(), spec, students)
	if err == nil {
		t.Fatal("Expected infeasible error")
	}
	if !errors.Is(err, errors.CodeInfeasible) {
		t.Errorf("Expected INFEASIBLE, got %v", errors.GetCode(err))
	}
}

func TestSolve_Classes(t *testing.T) {
	// 10 名学生分 2 个班，每班 4~6 人、每班至少 1 名男女生
	students := roster(sexes(5, 5)...)
	spec := testSpec(DefaultClassSpec(2, 4, 6))
	spec.MinFemalePerClass = 1
	spec.MinMalePerClass = 1

	outcome, err := Solve(context.Background(), spec, students)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !outcome.Status.Success() {
		t.Fatalf("Expected success, got %s", outcome.Status)
	}

	for i, g := range outcome.Groups {
		if len(g) < 4 || len(g) > 6 {
			t.Errorf("Class %d size %d outside [4,6]", i, len(g))
		}
		f, m := 0, 0
		for _, s := range g {
			if s.Sex == model.SexFemale {
				f++
			} else {
				m++
			}
		}
		if f < 1 || m < 1 {
			t.Errorf("Class %d misses sex floor (F=%d, M=%d)", i, f, m)
		}
	}
}

func TestSolve_SearchKnobs(t *testing.T) {
	// 配置的重启链数必须传到求解器并反映在统计里
	students := roster(sexes(3, 3)...)
	spec := testSpec(DefaultGroupSpec(2, false))
	spec.Restarts = 1
	spec.MaxIterations = 2000
	spec.Plateau = 500

	outcome, err := Solve(context.Background(), spec, students)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if outcome.Statistics == nil {
		t.Fatal("Expected solver statistics")
	}
	if outcome.Statistics.Restarts != 1 {
		t.Errorf("Expected 1 restart chain, got %d", outcome.Statistics.Restarts)
	}
	if outcome.Statistics.Iterations > 2000 {
		t.Errorf("Iterations %d exceed configured maximum", outcome.Statistics.Iterations)
	}
}

func TestDefaultClassSpec_AttributeRules(t *testing.T) {
	spec := DefaultClassSpec(2, 3, 3)

	spreads := make(map[string]int)
	for _, r := range spec.SpreadRules {
		spreads[r.Attribute] = r.Weight
	}
	if spreads[rosterpkg.AttrSubject] != DefaultSpreadWeight || spreads[rosterpkg.AttrLanguage] != DefaultSpreadWeight {
		t.Errorf("Expected default subject/language spread rules, got %v", spec.SpreadRules)
	}

	if len(spec.CapRules) != 1 {
		t.Fatalf("Expected one default cap rule, got %v", spec.CapRules)
	}
	rule := spec.CapRules[0]
	if rule.Attribute != rosterpkg.AttrOrigin || rule.MaxPerBin != DefaultCapPerBin || rule.Weight != DefaultCapWeight {
		t.Errorf("Unexpected default cap rule: %+v", rule)
	}
}

func TestScore_DefaultOriginCap(t *testing.T) {
	// 6 名同校学生分 2 个班各 3 人：每班超出来源上限 1 人，罚 2*5
	students := roster(sexes(3, 3)...)
	for _, s := range students {
		s.Attributes = map[string]string{rosterpkg.AttrOrigin: "北校"}
	}
	spec := testSpec(DefaultClassSpec(2, 3, 3))

	result, err := Score(spec, students, []int{0, 0, 0, 1, 1, 1})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if result.Objective != 2*DefaultCapWeight {
		t.Errorf("Expected objective %d from origin cap, got %d", 2*DefaultCapWeight, result.Objective)
	}
}

func TestSolve_PriorPairSeparated(t *testing.T) {
	// 2F/2M 分两组，曾同组的 A、B 应被拆开
	students := roster(sexes(2, 2)...)
	spec := testSpec(DefaultGroupSpec(2, false))
	spec.PriorPairs = []model.PriorPair{{Name1: "A", Name2: "B"}}

	outcome, err := Solve(context.Background(), spec, students)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if outcome.Objective != 0 {
		t.Errorf("Expected objective 0, got %d", outcome.Objective)
	}
	if outcome.Assign[0] == outcome.Assign[1] {
		t.Error("Expected prior pair A/B in different groups")
	}
}

func TestScore_PriorPairWorseTogether(t *testing.T) {
	students := roster(sexes(2, 2)...)
	spec := testSpec(DefaultGroupSpec(2, false))
	spec.PriorPairs = []model.PriorPair{{Name1: "A", Name2: "B"}}

	// A、B 同组 vs 拆开，其余结构对称
	together, err := Score(spec, students, []int{0, 0, 1, 1})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	apart, err := Score(spec, students, []int{0, 1, 0, 1})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if together.Objective <= apart.Objective {
		t.Errorf("Expected pair together (%d) strictly worse than apart (%d)",
			together.Objective, apart.Objective)
	}
}

func TestScore_Idempotent(t *testing.T) {
	students := roster(sexes(3, 3)...)
	spec := testSpec(DefaultGroupSpec(3, false))
	assign := []int{0, 0, 1, 0, 1, 1}

	first, err := Score(spec, students, assign)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	second, err := Score(spec, students, assign)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if first.Objective != second.Objective || first.HardPenalty != second.HardPenalty {
		t.Errorf("Re-scoring diverged: %d/%d vs %d/%d",
			first.Objective, first.HardPenalty, second.Objective, second.HardPenalty)
	}
}

func TestScore_RejectsBadAssignment(t *testing.T) {
	students := roster(sexes(2, 2)...)
	spec := testSpec(DefaultGroupSpec(2, false))

	if _, err := Score(spec, students, []int{0, 0, 1}); err == nil {
		t.Error("Expected error for short assignment")
	}
	if _, err := Score(spec, students, []int{0, 0, 1, 9}); err == nil {
		t.Error("Expected error for out-of-range bin")
	}
}
