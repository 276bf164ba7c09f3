// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition/constraint"
)

// SameSexGroupConstraint 性别同质硬约束（学习小组同性模式）
// 每个非空组的成员必须是同一性别：组内少数性别人数为 0。
type SameSexGroupConstraint struct {
	*BaseConstraint
}

// NewSameSexGroupConstraint 创建性别同质约束
func NewSameSexGroupConstraint() *SameSexGroupConstraint {
	return &SameSexGroupConstraint{
		BaseConstraint: NewBaseConstraint(
			"组内性别同质",
			constraint.TypeSameSexGroup,
			constraint.CategoryHard,
			100,
		),
	}
}

// Preflight 组数判定：同性组各自占用整组，
// 所需最少组数 ceil(nF/max) + ceil(nM/max) 超过 K 时必然无解
func (c *SameSexGroupConstraint) Preflight(ctx *constraint.Context) error {
	nf := model.CountBySex(ctx.Students, model.SexFemale)
	nm := model.CountBySex(ctx.Students, model.SexMale)
	need := 0
	if nf > 0 {
		need += (nf + ctx.MaxSize - 1) / ctx.MaxSize
	}
	if nm > 0 {
		need += (nm + ctx.MaxSize - 1) / ctx.MaxSize
	}
	if need > ctx.K {
		return fmt.Errorf("同性分组至少需要 %d 个组 (F=%d, M=%d, 每组至多 %d 人)，只有 %d 个组", need, nf, nm, ctx.MaxSize, ctx.K)
	}
	return nil
}

// minorityCount 返回组内少数性别的人数
func minorityCount(ctx *constraint.Context, g int) int {
	f := ctx.SexCount(g, model.SexFemale)
	m := ctx.SexCount(g, model.SexMale)
	if f < m {
		return f
	}
	return m
}

// Evaluate 评估完整分班方案
func (c *SameSexGroupConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for g := 0; g < ctx.K; g++ {
		minority := minorityCount(ctx, g)
		if minority == 0 {
			continue
		}
		penalty := c.Weight() * minority
		totalPenalty += penalty
		violations = append(violations, constraint.ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			Bin:            g,
			Message: fmt.Sprintf("第 %d 组混有两种性别 (F=%d, M=%d)",
				g+1, ctx.SexCount(g, model.SexFemale), ctx.SexCount(g, model.SexMale)),
			Severity: "error",
			Penalty:  penalty,
		})
	}

	return totalPenalty == 0, totalPenalty, violations
}

// Score 只计算惩罚值
func (c *SameSexGroupConstraint) Score(ctx *constraint.Context) int {
	total := 0
	for g := 0; g < ctx.K; g++ {
		total += c.Weight() * minorityCount(ctx, g)
	}
	return total
}
