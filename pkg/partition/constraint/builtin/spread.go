// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/fenban/fenban/pkg/partition/constraint"
)

// AttributeSpreadTerm 同属性值聚集软约束
// 对属性的每个取值，按"含有该值的组数 - 1"计罚：
// 全部集中在一组时零罚，分散到每组时罚值最大。
// 取值集合在构建模型时从学生批次中收集，逐值生成一条惩罚项后折叠。
type AttributeSpreadTerm struct {
	*BaseConstraint
	attr   string
	values []string
}

// NewAttributeSpreadTerm 创建属性聚集软约束
func NewAttributeSpreadTerm(attr string, values []string, weight int) *AttributeSpreadTerm {
	return &AttributeSpreadTerm{
		BaseConstraint: NewBaseConstraint(
			fmt.Sprintf("同%s聚集", attr),
			constraint.TypeAttributeSpread,
			constraint.CategorySoft,
			weight,
		),
		attr:   attr,
		values: values,
	}
}

// Attribute 返回该规则作用的属性名
func (c *AttributeSpreadTerm) Attribute() string { return c.attr }

// spread 返回取值 v 的分散度：含该值的组数减一（无人持有时为 0）
func (c *AttributeSpreadTerm) spread(ctx *constraint.Context, v string) int {
	bins := ctx.BinsWithValue(c.attr, v)
	if bins <= 1 {
		return 0
	}
	return bins - 1
}

// Evaluate 评估完整分班方案
func (c *AttributeSpreadTerm) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, v := range c.values {
		s := c.spread(ctx, v)
		if s == 0 {
			continue
		}
		penalty := c.Weight() * s
		totalPenalty += penalty
		violations = append(violations, constraint.ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			Bin:            -1,
			Message: fmt.Sprintf("%s=%s 的学生分散在 %d 个组",
				c.attr, v, ctx.BinsWithValue(c.attr, v)),
			Severity: "warning",
			Penalty:  penalty,
		})
	}

	return true, totalPenalty, violations
}

// Score 只计算惩罚值
func (c *AttributeSpreadTerm) Score(ctx *constraint.Context) int {
	total := 0
	for _, v := range c.values {
		total += c.Weight() * c.spread(ctx, v)
	}
	return total
}
