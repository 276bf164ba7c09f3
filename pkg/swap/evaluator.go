// Package swap 提供分班结果的调组建议功能
package swap

import (
	"github.com/fenban/fenban/pkg/partition/constraint"
)

// Evaluation 一次调组的评估结果
type Evaluation struct {
	Feasible        bool                         `json:"feasible"`         // 调组后硬约束是否仍满足
	ObjectiveBefore int                          `json:"objective_before"` // 调组前软约束目标值
	ObjectiveAfter  int                          `json:"objective_after"`  // 调组后软约束目标值
	Improvement     int                          `json:"improvement"`      // 目标值降幅（正数为改进）
	Issues          []constraint.ViolationDetail `json:"issues,omitempty"` // 调组后仍存在的软约束提醒
}

// Evaluator 调组评估器
// 在上下文上试走一步、评估、再撤销，不留副作用。
type Evaluator struct {
	manager *constraint.Manager
}

// NewEvaluator 创建调组评估器
func NewEvaluator(manager *constraint.Manager) *Evaluator {
	return &Evaluator{manager: manager}
}

// EvaluateSwap 评估交换两名学生所在的组
func (e *Evaluator) EvaluateSwap(ctx *constraint.Context, id1, id2 int) *Evaluation {
	before := e.manager.Objective(ctx)

	ctx.Swap(id1, id2)
	eval := e.snapshot(ctx, before)
	ctx.Swap(id1, id2)

	return eval
}

// EvaluateRelocate 评估将一名学生迁移到另一组
func (e *Evaluator) EvaluateRelocate(ctx *constraint.Context, id, toBin int) *Evaluation {
	before := e.manager.Objective(ctx)
	from := ctx.Assign[id]

	ctx.Move(id, toBin)
	eval := e.snapshot(ctx, before)
	ctx.Move(id, from)

	return eval
}

// snapshot 在当前（已走步的）上下文上取评估快照
func (e *Evaluator) snapshot(ctx *constraint.Context, before int) *Evaluation {
	eval := &Evaluation{
		ObjectiveBefore: before,
		Feasible:        e.manager.IsFeasible(ctx),
	}
	eval.ObjectiveAfter = e.manager.Objective(ctx)
	eval.Improvement = before - eval.ObjectiveAfter

	if eval.Feasible {
		result := e.manager.Evaluate(ctx)
		eval.Issues = result.SoftViolations
	}
	return eval
}
