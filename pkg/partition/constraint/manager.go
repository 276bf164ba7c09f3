// Package constraint 定义分班约束接口和管理器
package constraint

import (
	"sort"
	"sync"

	"github.com/fenban/fenban/pkg/logger"
)

// Manager 约束管理器
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
	logger      *logger.SolverLogger
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
		logger:      logger.NewSolverLogger(),
	}
}

// Register 注册约束
// 同类型约束允许多个实例（如按属性参数化的 spread/cap 规则），
// 按类别和权重排序：硬约束在前，权重高的在前。
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.constraints = append(m.constraints, c)

	sort.SliceStable(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		return ci.Weight() > cj.Weight()
	})
}

// Unregister 注销指定类型的所有约束
func (m *Manager) Unregister(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.constraints[:0]
	for _, c := range m.constraints {
		if c.Type() != t {
			kept = append(kept, c)
		}
	}
	m.constraints = kept
}

// GetAll 获取所有约束
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// Evaluate 评估所有约束，返回完整结果
func (m *Manager) Evaluate(ctx *Context) *Result {
	constraints := m.GetAll()

	result := &Result{
		IsValid:        true,
		HardViolations: make([]ViolationDetail, 0),
		SoftViolations: make([]ViolationDetail, 0),
	}

	for _, c := range constraints {
		valid, penalty, details := c.Evaluate(ctx)

		result.Checks = append(result.Checks, Check{
			Type:      c.Type(),
			Name:      c.Name(),
			Category:  c.Category(),
			Satisfied: valid,
			Penalty:   penalty,
		})

		if c.Category() == CategoryHard {
			result.HardPenalty += penalty
			if !valid {
				result.IsValid = false
				result.HardViolations = append(result.HardViolations, details...)
				for _, d := range details {
					m.logger.ConstraintViolation(c.Name(), d.Message)
				}
			}
		} else {
			result.Objective += penalty
			result.SoftViolations = append(result.SoftViolations, details...)
		}
	}

	return result
}

// Objective 计算软约束加权惩罚之和（求解目标，轻量路径）
func (m *Manager) Objective(ctx *Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, c := range m.constraints {
		if c.Category() == CategorySoft {
			total += c.Score(ctx)
		}
	}
	return total
}

// HardPenalty 计算硬约束惩罚之和（轻量路径，可行解为 0）
func (m *Manager) HardPenalty(ctx *Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, c := range m.constraints {
		if c.Category() == CategoryHard {
			total += c.Score(ctx)
		}
	}
	return total
}

// IsFeasible 检查当前分配是否满足全部硬约束
func (m *Manager) IsFeasible(ctx *Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Category() == CategoryHard && c.Score(ctx) > 0 {
			return false
		}
	}
	return true
}

// Clear 清除所有约束
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = make([]Constraint, 0)
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}

// Summary 返回约束摘要
func (m *Manager) Summary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hard := 0
	soft := 0
	for _, c := range m.constraints {
		if c.Category() == CategoryHard {
			hard++
		} else {
			soft++
		}
	}

	return map[string]interface{}{
		"total": len(m.constraints),
		"hard":  hard,
		"soft":  soft,
	}
}
