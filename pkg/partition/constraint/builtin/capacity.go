// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/fenban/fenban/pkg/partition/constraint"
)

// CapacityConstraint 组规模硬约束
// 每组人数必须落在 [MinSize, MaxSize] 区间内。
type CapacityConstraint struct {
	*BaseConstraint
}

// NewCapacityConstraint 创建组规模约束
func NewCapacityConstraint() *CapacityConstraint {
	return &CapacityConstraint{
		BaseConstraint: NewBaseConstraint(
			"组规模上下界",
			constraint.TypeCapacity,
			constraint.CategoryHard,
			100,
		),
	}
}

// Preflight 容量算术判定：K*max < N 或 K*min > N 时必然无解
func (c *CapacityConstraint) Preflight(ctx *constraint.Context) error {
	n := len(ctx.Students)
	if ctx.K*ctx.MaxSize < n {
		return fmt.Errorf("%d 个组、每组至多 %d 人，容不下 %d 名学生", ctx.K, ctx.MaxSize, n)
	}
	if ctx.K*ctx.MinSize > n {
		return fmt.Errorf("%d 个组、每组至少 %d 人，需要至少 %d 名学生，实际只有 %d 名", ctx.K, ctx.MinSize, ctx.K*ctx.MinSize, n)
	}
	return nil
}

// Evaluate 评估完整分班方案
func (c *CapacityConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for g := 0; g < ctx.K; g++ {
		size := ctx.BinSize(g)
		over := size - ctx.MaxSize
		under := ctx.MinSize - size

		if over > 0 {
			penalty := c.Weight() * over
			totalPenalty += penalty
			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				Bin:            g,
				Message:        fmt.Sprintf("第 %d 组 %d 人，超过上限 %d", g+1, size, ctx.MaxSize),
				Severity:       "error",
				Penalty:        penalty,
			})
		}
		if under > 0 {
			penalty := c.Weight() * under
			totalPenalty += penalty
			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				Bin:            g,
				Message:        fmt.Sprintf("第 %d 组 %d 人，低于下限 %d", g+1, size, ctx.MinSize),
				Severity:       "error",
				Penalty:        penalty,
			})
		}
	}

	return totalPenalty == 0, totalPenalty, violations
}

// Score 只计算惩罚值
func (c *CapacityConstraint) Score(ctx *constraint.Context) int {
	total := 0
	for g := 0; g < ctx.K; g++ {
		size := ctx.BinSize(g)
		if size > ctx.MaxSize {
			total += c.Weight() * (size - ctx.MaxSize)
		}
		if size < ctx.MinSize {
			total += c.Weight() * (ctx.MinSize - size)
		}
	}
	return total
}
