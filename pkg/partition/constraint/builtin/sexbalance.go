// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition/constraint"
)

// SexBalanceTerm 组内男女均衡软约束（混合小组模式）
// 每组按 |女生数 - 男生数| 计罚，驱动各组趋向五五开。
type SexBalanceTerm struct {
	*BaseConstraint
}

// NewSexBalanceTerm 创建组内男女均衡软约束
func NewSexBalanceTerm(weight int) *SexBalanceTerm {
	return &SexBalanceTerm{
		BaseConstraint: NewBaseConstraint(
			"组内男女均衡",
			constraint.TypeSexBalance,
			constraint.CategorySoft,
			weight,
		),
	}
}

// imbalance 返回组 g 的男女人数差绝对值
func imbalance(ctx *constraint.Context, g int) int {
	d := ctx.SexCount(g, model.SexFemale) - ctx.SexCount(g, model.SexMale)
	if d < 0 {
		return -d
	}
	return d
}

// Evaluate 评估完整分班方案
func (c *SexBalanceTerm) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for g := 0; g < ctx.K; g++ {
		diff := imbalance(ctx, g)
		if diff == 0 {
			continue
		}
		penalty := c.Weight() * diff
		totalPenalty += penalty
		violations = append(violations, constraint.ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			Bin:            g,
			Message: fmt.Sprintf("第 %d 组男女失衡 (F=%d, M=%d)",
				g+1, ctx.SexCount(g, model.SexFemale), ctx.SexCount(g, model.SexMale)),
			Severity: "warning",
			Penalty:  penalty,
		})
	}

	return true, totalPenalty, violations
}

// Score 只计算惩罚值
func (c *SexBalanceTerm) Score(ctx *constraint.Context) int {
	total := 0
	for g := 0; g < ctx.K; g++ {
		total += c.Weight() * imbalance(ctx, g)
	}
	return total
}
