// Package validator 提供分班方案验证功能
// 外部协作方（人工调整、历史导入）产生的分配在这里对照硬规则复检。
package validator

import (
	"fmt"

	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition"
	"github.com/fenban/fenban/pkg/partition/constraint"
)

// Report 验证报告
type Report struct {
	Valid    bool                         `json:"valid"`    // 硬约束全部满足
	Coverage []CoverageIssue              `json:"coverage"` // 覆盖性问题（长度、越界、重复）
	Errors   []constraint.ViolationDetail `json:"errors"`   // 硬约束违反
	Warnings []constraint.ViolationDetail `json:"warnings"` // 软约束提醒
	Checks   []constraint.Check           `json:"checks,omitempty"` // 逐约束结论
	Objective int                         `json:"objective"`
}

// CoverageIssue 覆盖性问题
type CoverageIssue struct {
	StudentID int    `json:"student_id,omitempty"`
	Message   string `json:"message"`
}

// Verifier 分班方案验证器
type Verifier struct {
	spec partition.Spec
}

// NewVerifier 创建验证器
func NewVerifier(spec partition.Spec) *Verifier {
	return &Verifier{spec: spec}
}

// Verify 对照硬规则验证一份外部分配
// 覆盖性问题（分配长度不符、组编号越界）直接列入报告而不评估约束。
func (v *Verifier) Verify(students []*model.Student, assign []int) (*Report, error) {
	m, err := partition.NewModel(v.spec, students)
	if err != nil {
		return nil, err
	}

	report := &Report{}

	if len(assign) != len(students) {
		report.Coverage = append(report.Coverage, CoverageIssue{
			Message: fmt.Sprintf("分配长度 %d 与学生数 %d 不一致", len(assign), len(students)),
		})
		return report, nil
	}
	for id, g := range assign {
		if g < 0 || g >= m.K {
			report.Coverage = append(report.Coverage, CoverageIssue{
				StudentID: id,
				Message:   fmt.Sprintf("学生 %d 的组编号 %d 越界 [0, %d)", id, g, m.K),
			})
		}
	}
	if len(report.Coverage) > 0 {
		return report, nil
	}

	m.Context.SetAssignment(assign)
	result := m.Manager.Evaluate(m.Context)

	report.Valid = result.IsValid
	report.Errors = result.HardViolations
	report.Warnings = result.SoftViolations
	report.Checks = result.Checks
	report.Objective = result.Objective
	return report, nil
}
