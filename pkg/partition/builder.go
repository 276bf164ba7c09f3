// Package partition 提供分班核心：模型构建、求解与结果提取
package partition

import (
	"strings"

	"github.com/fenban/fenban/pkg/errors"
	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition/constraint"
	"github.com/fenban/fenban/pkg/partition/constraint/builtin"
)

// Model 构建完成的分班模型
// 持有学生批次、推导后的组几何、约束管理器与求解上下文，
// 一次请求构建一个，求解后丢弃。
type Model struct {
	Spec     Spec
	Students []*model.Student

	K       int
	MinSize int
	MaxSize int

	Manager *constraint.Manager
	Context *constraint.Context

	// MixedRuleActive 标记男女兼有硬规则是否被注册
	// （两种性别人数都不少于组数时才注册，否则整条跳过）
	MixedRuleActive bool

	// SkippedPairs 姓名无法解析而被跳过的历史配对数
	SkippedPairs int
}

// NewModel 构建分班模型：推导组几何并注册硬约束与软惩罚项
// students 的 ID 必须是 0 基稠密序号（加载端保证）。
func NewModel(spec Spec, students []*model.Student) (*Model, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := checkDenseIDs(students); err != nil {
		return nil, err
	}

	n := len(students)
	m := &Model{
		Spec:     spec,
		Students: students,
		Manager:  constraint.NewManager(),
	}

	// 组几何推导
	switch spec.Mode {
	case model.ModeGroups:
		// 组数 = ceil(N/组大小)：即使余数最不凑巧，每组也不会超过上限
		m.K = (n + spec.GroupSize - 1) / spec.GroupSize
		if m.K == 0 {
			m.K = 1 // 空批次退化为一个空组
		}
		m.MinSize = 0
		m.MaxSize = spec.GroupSize
	case model.ModeClasses:
		m.K = spec.ClassCount
		m.MinSize = spec.MinSize
		m.MaxSize = spec.MaxSize
	}

	m.Context = constraint.NewContext(students, m.K, m.MinSize, m.MaxSize, trackedAttributes(spec))

	m.registerHard()
	m.registerSoft()

	return m, nil
}

// checkDenseIDs 校验学生ID为 0 基稠密序号
func checkDenseIDs(students []*model.Student) error {
	seen := make([]bool, len(students))
	for _, s := range students {
		if s.ID < 0 || s.ID >= len(students) || seen[s.ID] {
			return errors.InvalidInput("students", "学生ID必须是 0 基稠密且不重复的序号")
		}
		seen[s.ID] = true
	}
	return nil
}

// trackedAttributes 收集 spread/cap 规则引用的属性名（去重）
func trackedAttributes(spec Spec) []string {
	seen := make(map[string]bool)
	var attrs []string
	for _, r := range spec.SpreadRules {
		if !seen[r.Attribute] {
			seen[r.Attribute] = true
			attrs = append(attrs, r.Attribute)
		}
	}
	for _, r := range spec.CapRules {
		if !seen[r.Attribute] {
			seen[r.Attribute] = true
			attrs = append(attrs, r.Attribute)
		}
	}
	return attrs
}

// registerHard 注册硬约束
func (m *Model) registerHard() {
	m.Manager.Register(builtin.NewCapacityConstraint())

	switch m.Spec.Mode {
	case model.ModeGroups:
		if m.Spec.SameSex {
			m.Manager.Register(builtin.NewSameSexGroupConstraint())
			break
		}
		// 混合模式：两种性别人数都不少于组数时才强制每组男女兼有，
		// 否则整条规则跳过（不放宽、不计罚），避免人为不可行
		nf := model.CountBySex(m.Students, model.SexFemale)
		nm := model.CountBySex(m.Students, model.SexMale)
		if nf > 0 && nm > 0 && nf >= m.K && nm >= m.K {
			m.Manager.Register(builtin.NewMixedSexGroupConstraint())
			m.MixedRuleActive = true
		}
	case model.ModeClasses:
		if m.Spec.MinFemalePerClass > 0 || m.Spec.MinMalePerClass > 0 {
			m.Manager.Register(builtin.NewSexFloorConstraint(m.Spec.MinFemalePerClass, m.Spec.MinMalePerClass))
		}
	}
}

// registerSoft 注册软惩罚项
func (m *Model) registerSoft() {
	n := len(m.Students)
	if n == 0 {
		// 空批次只有一个被迫存在的空组，没有可优化的目标
		return
	}

	// 组规模均衡
	if m.Spec.Weights.SizeBalance > 0 {
		switch m.Spec.Mode {
		case model.ModeGroups:
			m.Manager.Register(builtin.NewSizeBalanceTerm(m.Spec.Weights.SizeBalance, m.Spec.GroupSize, m.Spec.GroupSize))
		case model.ModeClasses:
			// 目标取 floor(N/K) 与 ceil(N/K) 中较近的一端
			low := n / m.K
			high := (n + m.K - 1) / m.K
			m.Manager.Register(builtin.NewSizeBalanceTerm(m.Spec.Weights.SizeBalance, low, high))
		}
	}

	// 混合小组：男女均衡
	if m.Spec.Mode == model.ModeGroups && !m.Spec.SameSex && m.Spec.Weights.SexBalance > 0 {
		m.Manager.Register(builtin.NewSexBalanceTerm(m.Spec.Weights.SexBalance))
	}

	// 按属性参数化的聚集/上限规则：逐属性收集实际出现的取值
	for _, r := range m.Spec.SpreadRules {
		if r.Weight == 0 {
			continue
		}
		values := model.DistinctAttributeValues(m.Students, r.Attribute)
		if len(values) == 0 {
			continue
		}
		m.Manager.Register(builtin.NewAttributeSpreadTerm(r.Attribute, values, r.Weight))
	}
	for _, r := range m.Spec.CapRules {
		if r.Weight == 0 {
			continue
		}
		values := model.DistinctAttributeValues(m.Students, r.Attribute)
		if len(values) == 0 {
			continue
		}
		m.Manager.Register(builtin.NewAttributeCapTerm(r.Attribute, values, r.MaxPerBin, r.Weight))
	}

	// 历史同组回避
	if len(m.Spec.PriorPairs) > 0 && m.Spec.Weights.PriorPair > 0 {
		pairs := m.resolvePairs()
		if len(pairs) > 0 {
			m.Manager.Register(builtin.NewPriorPairTerm(pairs, m.Spec.Weights.PriorPair))
		}
	}
}

// resolvePairs 将姓名配对解析为学生ID配对
// 本批次中不存在的姓名与自配对静默跳过。
func (m *Model) resolvePairs() []builtin.ResolvedPair {
	nameToID := make(map[string]int, len(m.Students))
	for _, s := range m.Students {
		nameToID[strings.TrimSpace(s.Name)] = s.ID
	}

	seen := make(map[[2]int]bool)
	var pairs []builtin.ResolvedPair
	for _, p := range m.Spec.PriorPairs {
		np := p.Normalize()
		id1, ok1 := nameToID[np.Name1]
		id2, ok2 := nameToID[np.Name2]
		if !ok1 || !ok2 || id1 == id2 {
			m.SkippedPairs++
			continue
		}
		key := [2]int{id1, id2}
		if id1 > id2 {
			key = [2]int{id2, id1}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		pairs = append(pairs, builtin.ResolvedPair{ID1: key[0], ID2: key[1]})
	}
	return pairs
}
