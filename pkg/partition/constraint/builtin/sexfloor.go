// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition/constraint"
)

// SexFloorConstraint 性别人数下限硬约束（固定班级模式）
// 每班女生人数 >= MinFemale 且男生人数 >= MinMale。
type SexFloorConstraint struct {
	*BaseConstraint
	minFemale int
	minMale   int
}

// NewSexFloorConstraint 创建性别人数下限约束
func NewSexFloorConstraint(minFemale, minMale int) *SexFloorConstraint {
	return &SexFloorConstraint{
		BaseConstraint: NewBaseConstraint(
			"每班性别人数下限",
			constraint.TypeSexFloor,
			constraint.CategoryHard,
			100,
		),
		minFemale: minFemale,
		minMale:   minMale,
	}
}

// MinFemale 返回每班女生人数下限
func (c *SexFloorConstraint) MinFemale() int { return c.minFemale }

// MinMale 返回每班男生人数下限
func (c *SexFloorConstraint) MinMale() int { return c.minMale }

// Preflight 计数判定：总人数撑不起 K 个班的性别下限时必然无解
func (c *SexFloorConstraint) Preflight(ctx *constraint.Context) error {
	nf := model.CountBySex(ctx.Students, model.SexFemale)
	nm := model.CountBySex(ctx.Students, model.SexMale)
	if nf < ctx.K*c.minFemale {
		return fmt.Errorf("每班至少 %d 名女生共需 %d 名，实际只有 %d 名", c.minFemale, ctx.K*c.minFemale, nf)
	}
	if nm < ctx.K*c.minMale {
		return fmt.Errorf("每班至少 %d 名男生共需 %d 名，实际只有 %d 名", c.minMale, ctx.K*c.minMale, nm)
	}
	return nil
}

// shortfall 返回组 g 相对下限的缺口总数
func (c *SexFloorConstraint) shortfall(ctx *constraint.Context, g int) int {
	total := 0
	if d := c.minFemale - ctx.SexCount(g, model.SexFemale); d > 0 {
		total += d
	}
	if d := c.minMale - ctx.SexCount(g, model.SexMale); d > 0 {
		total += d
	}
	return total
}

// Evaluate 评估完整分班方案
func (c *SexFloorConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for g := 0; g < ctx.K; g++ {
		short := c.shortfall(ctx, g)
		if short == 0 {
			continue
		}
		penalty := c.Weight() * short
		totalPenalty += penalty
		violations = append(violations, constraint.ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			Bin:            g,
			Message: fmt.Sprintf("第 %d 组性别人数不足下限 (F=%d/%d, M=%d/%d)",
				g+1, ctx.SexCount(g, model.SexFemale), c.minFemale,
				ctx.SexCount(g, model.SexMale), c.minMale),
			Severity: "error",
			Penalty:  penalty,
		})
	}

	return totalPenalty == 0, totalPenalty, violations
}

// Score 只计算惩罚值
func (c *SexFloorConstraint) Score(ctx *constraint.Context) int {
	total := 0
	for g := 0; g < ctx.K; g++ {
		total += c.Weight() * c.shortfall(ctx, g)
	}
	return total
}
