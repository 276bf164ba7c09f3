// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/fenban/fenban/pkg/partition/constraint"
)

// SizeBalanceTerm 组规模贴近目标的软约束
// 每组按 |人数 - 目标| 计罚；目标给定为区间 [targetLow, targetHigh]，
// 取距离较近的一端，落在任一端上则零罚。
//   - 小组模式：targetLow == targetHigh == 目标组大小；
//   - 班级模式：targetLow = floor(N/K)，targetHigh = ceil(N/K)。
type SizeBalanceTerm struct {
	*BaseConstraint
	targetLow  int
	targetHigh int
}

// NewSizeBalanceTerm 创建组规模均衡软约束
func NewSizeBalanceTerm(weight, targetLow, targetHigh int) *SizeBalanceTerm {
	return &SizeBalanceTerm{
		BaseConstraint: NewBaseConstraint(
			"组规模均衡",
			constraint.TypeSizeBalance,
			constraint.CategorySoft,
			weight,
		),
		targetLow:  targetLow,
		targetHigh: targetHigh,
	}
}

// deviation 返回组 g 相对目标区间的偏差
func (c *SizeBalanceTerm) deviation(size int) int {
	devLow := size - c.targetLow
	if devLow < 0 {
		devLow = -devLow
	}
	devHigh := size - c.targetHigh
	if devHigh < 0 {
		devHigh = -devHigh
	}
	if devHigh < devLow {
		return devHigh
	}
	return devLow
}

// Evaluate 评估完整分班方案
func (c *SizeBalanceTerm) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for g := 0; g < ctx.K; g++ {
		dev := c.deviation(ctx.BinSize(g))
		if dev == 0 {
			continue
		}
		penalty := c.Weight() * dev
		totalPenalty += penalty
		violations = append(violations, constraint.ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			Bin:            g,
			Message: fmt.Sprintf("第 %d 组 %d 人，偏离目标 %d~%d 共 %d 人",
				g+1, ctx.BinSize(g), c.targetLow, c.targetHigh, dev),
			Severity: "warning",
			Penalty:  penalty,
		})
	}

	return true, totalPenalty, violations
}

// Score 只计算惩罚值
func (c *SizeBalanceTerm) Score(ctx *constraint.Context) int {
	total := 0
	for g := 0; g < ctx.K; g++ {
		total += c.Weight() * c.deviation(ctx.BinSize(g))
	}
	return total
}
