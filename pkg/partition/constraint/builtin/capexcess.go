// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/fenban/fenban/pkg/partition/constraint"
)

// AttributeCapTerm 单组内同属性值人数上限软约束
// 对每组、每个属性取值，超过配置上限的部分按人数线性计罚。
// 与 AttributeSpreadTerm 结构相反，二者可同时作用于不同属性：
// 每组的超额与分散度按属性独立计算，互不干扰。
type AttributeCapTerm struct {
	*BaseConstraint
	attr      string
	values    []string
	maxPerBin int
}

// NewAttributeCapTerm 创建属性上限软约束
func NewAttributeCapTerm(attr string, values []string, maxPerBin, weight int) *AttributeCapTerm {
	return &AttributeCapTerm{
		BaseConstraint: NewBaseConstraint(
			fmt.Sprintf("同%s上限", attr),
			constraint.TypeAttributeCap,
			constraint.CategorySoft,
			weight,
		),
		attr:      attr,
		values:    values,
		maxPerBin: maxPerBin,
	}
}

// Attribute 返回该规则作用的属性名
func (c *AttributeCapTerm) Attribute() string { return c.attr }

// Evaluate 评估完整分班方案
func (c *AttributeCapTerm) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for g := 0; g < ctx.K; g++ {
		for _, v := range c.values {
			excess := ctx.AttrCount(g, c.attr, v) - c.maxPerBin
			if excess <= 0 {
				continue
			}
			penalty := c.Weight() * excess
			totalPenalty += penalty
			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				Bin:            g,
				Message: fmt.Sprintf("第 %d 组 %s=%s 共 %d 人，超出上限 %d",
					g+1, c.attr, v, ctx.AttrCount(g, c.attr, v), c.maxPerBin),
				Severity: "warning",
				Penalty:  penalty,
			})
		}
	}

	return true, totalPenalty, violations
}

// Score 只计算惩罚值
func (c *AttributeCapTerm) Score(ctx *constraint.Context) int {
	total := 0
	for g := 0; g < ctx.K; g++ {
		for _, v := range c.values {
			if excess := ctx.AttrCount(g, c.attr, v) - c.maxPerBin; excess > 0 {
				total += c.Weight() * excess
			}
		}
	}
	return total
}
