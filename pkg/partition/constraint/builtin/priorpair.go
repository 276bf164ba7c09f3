// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/fenban/fenban/pkg/partition/constraint"
)

// ResolvedPair 已解析为学生ID的历史同组配对
type ResolvedPair struct {
	ID1 int
	ID2 int
}

// PriorPairTerm 历史同组回避软约束（学习小组模式）
// 每个已解析配对若落在同一组则计一次权重；
// 姓名无法在本批次解析的配对由构建器静默跳过——
// 这是软约束：重复同组只被抑制，从不禁止。
type PriorPairTerm struct {
	*BaseConstraint
	pairs []ResolvedPair
}

// NewPriorPairTerm 创建历史同组回避软约束
func NewPriorPairTerm(pairs []ResolvedPair, weight int) *PriorPairTerm {
	return &PriorPairTerm{
		BaseConstraint: NewBaseConstraint(
			"历史同组回避",
			constraint.TypePriorPair,
			constraint.CategorySoft,
			weight,
		),
		pairs: pairs,
	}
}

// PairCount 返回已解析配对数
func (c *PriorPairTerm) PairCount() int { return len(c.pairs) }

// together 检查配对是否落在同一组
func together(ctx *constraint.Context, p ResolvedPair) bool {
	g1 := ctx.Assign[p.ID1]
	return g1 != constraint.Unassigned && g1 == ctx.Assign[p.ID2]
}

// Evaluate 评估完整分班方案
func (c *PriorPairTerm) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, p := range c.pairs {
		if !together(ctx, p) {
			continue
		}
		penalty := c.Weight()
		totalPenalty += penalty
		violations = append(violations, constraint.ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			Bin:            ctx.Assign[p.ID1],
			StudentID:      p.ID1,
			Message: fmt.Sprintf("%s 和 %s 曾经同组，再次被分到第 %d 组",
				ctx.Students[p.ID1].Name, ctx.Students[p.ID2].Name, ctx.Assign[p.ID1]+1),
			Severity: "warning",
			Penalty:  penalty,
		})
	}

	return true, totalPenalty, violations
}

// Score 只计算惩罚值
func (c *PriorPairTerm) Score(ctx *constraint.Context) int {
	total := 0
	for _, p := range c.pairs {
		if together(ctx, p) {
			total += c.Weight()
		}
	}
	return total
}
