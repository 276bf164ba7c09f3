// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition/constraint"
)

// MixedSexGroupConstraint 男女兼有硬约束（学习小组混合模式）
// 每组至少 1 名女生和 1 名男生。
//
// 该约束只在两种性别的人数都不少于组数时由构建器注册；
// 前提不成立时整条规则被跳过（不是放宽为软约束），
// 以免人为制造不可行——这是沿用原始行为的刻意不对称。
type MixedSexGroupConstraint struct {
	*BaseConstraint
}

// NewMixedSexGroupConstraint 创建男女兼有约束
func NewMixedSexGroupConstraint() *MixedSexGroupConstraint {
	return &MixedSexGroupConstraint{
		BaseConstraint: NewBaseConstraint(
			"组内男女兼有",
			constraint.TypeMixedSexGroup,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估完整分班方案
func (c *MixedSexGroupConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for g := 0; g < ctx.K; g++ {
		f := ctx.SexCount(g, model.SexFemale)
		m := ctx.SexCount(g, model.SexMale)
		missing := 0
		if f == 0 {
			missing++
		}
		if m == 0 {
			missing++
		}
		if missing == 0 {
			continue
		}
		penalty := c.Weight() * missing
		totalPenalty += penalty
		violations = append(violations, constraint.ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			Bin:            g,
			Message:        fmt.Sprintf("第 %d 组为单一性别 (F=%d, M=%d)", g+1, f, m),
			Severity:       "error",
			Penalty:        penalty,
		})
	}

	return totalPenalty == 0, totalPenalty, violations
}

// Score 只计算惩罚值
func (c *MixedSexGroupConstraint) Score(ctx *constraint.Context) int {
	total := 0
	for g := 0; g < ctx.K; g++ {
		if ctx.SexCount(g, model.SexFemale) == 0 {
			total += c.Weight()
		}
		if ctx.SexCount(g, model.SexMale) == 0 {
			total += c.Weight()
		}
	}
	return total
}
