package partition

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fenban/fenban/pkg/errors"
	"github.com/fenban/fenban/pkg/logger"
	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition/constraint"
	"github.com/fenban/fenban/pkg/partition/solver"
)

// Outcome 一次分班求解的完整结果
type Outcome struct {
	RunID     string             `json:"run_id"`
	Status    solver.Status      `json:"status"`
	Groups    [][]*model.Student `json:"groups"`
	Assign    []int              `json:"assign"`
	Objective int                `json:"objective"`

	Evaluation *constraint.Result `json:"evaluation,omitempty"`
	Statistics *solver.Statistics `json:"statistics,omitempty"`

	// MixedRuleActive 男女兼有硬规则是否生效
	MixedRuleActive bool `json:"mixed_rule_active"`
	// SkippedPairs 姓名无法解析而被跳过的历史配对数
	SkippedPairs int `json:"skipped_pairs"`
}

// Solve 执行一次完整分班：构建模型、求解、提取分组
// 纯函数式入口：同一 spec、同一学生批次、同一 Seed 得到同一结果。
// 不可行与超时以 AppError 返回，不附带部分解。
func Solve(ctx context.Context, spec Spec, students []*model.Student) (*Outcome, error) {
	m, err := NewModel(spec, students)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	slog := logger.NewSolverLogger()
	slog.StartSolve(runID, len(students), m.K)

	cfg := solver.DefaultConfig()
	cfg.TimeLimit = spec.EffectiveTimeLimit()
	cfg.Seed = spec.Seed
	if spec.MaxIterations > 0 {
		cfg.MaxIterations = spec.MaxIterations
	}
	if spec.Restarts > 0 {
		cfg.Restarts = spec.Restarts
	}
	if spec.Plateau > 0 {
		cfg.PlateauThreshold = spec.Plateau
	}

	start := time.Now()
	res, err := solver.New(m.Manager, cfg).Solve(ctx, m.Context)
	if err != nil {
		return nil, err
	}

	slog.SolveComplete(runID, time.Since(start), res.Objective, string(res.Status))

	switch res.Status {
	case solver.StatusInfeasible:
		return nil, errors.Infeasible("硬约束在当前批次与组几何下无解")
	case solver.StatusTimeout:
		return nil, errors.TimeoutNoSolution(cfg.TimeLimit.String())
	}

	groups, err := Materialize(students, m.K, res.Assign)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		RunID:           runID,
		Status:          res.Status,
		Groups:          groups,
		Assign:          res.Assign,
		Objective:       res.Objective,
		Evaluation:      res.Evaluation,
		Statistics:      res.Statistics,
		MixedRuleActive: m.MixedRuleActive,
		SkippedPairs:    m.SkippedPairs,
	}, nil
}

// Score 对固定分配重新评分
// 不做任何搜索；同一分配反复评分结果一致。
func Score(spec Spec, students []*model.Student, assign []int) (*constraint.Result, error) {
	m, err := NewModel(spec, students)
	if err != nil {
		return nil, err
	}
	if len(assign) != len(students) {
		return nil, errors.InvalidInput("assign", "分配长度与学生数不一致")
	}
	for _, g := range assign {
		if g < 0 || g >= m.K {
			return nil, errors.InvalidInput("assign", "组编号越界")
		}
	}
	m.Context.SetAssignment(assign)
	return m.Manager.Evaluate(m.Context), nil
}
