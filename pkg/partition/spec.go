// Package partition 提供分班核心：模型构建、求解与结果提取
package partition

import (
	"time"

	"github.com/fenban/fenban/pkg/errors"
	"github.com/fenban/fenban/pkg/model"
	rosterpkg "github.com/fenban/fenban/pkg/roster"
)

// 默认权重（沿用原始调参结果）
const (
	DefaultGroupSizeWeight   = 1  // 小组模式：组规模贴近目标
	DefaultClassBalanceWeight = 2 // 班级模式：班级规模贴近均值
	DefaultSexBalanceWeight  = 2  // 混合小组：男女均衡
	DefaultSpreadWeight      = 5  // 同属性值聚集
	DefaultCapWeight         = 5  // 单组属性值上限
	DefaultCapPerBin         = 2  // 属性值上限默认值
	DefaultPriorPairWeight   = 10 // 历史同组回避
	DefaultTimeLimit         = 30 * time.Second
)

// SpreadRule 属性聚集规则：同属性值的学生尽量集中在少数组
type SpreadRule struct {
	Attribute string `json:"attribute"`
	Weight    int    `json:"weight"`
}

// CapRule 属性上限规则：单组内同属性值的学生不宜过多
type CapRule struct {
	Attribute string `json:"attribute"`
	MaxPerBin int    `json:"max_per_bin"`
	Weight    int    `json:"weight"`
}

// Weights 基础软约束权重
type Weights struct {
	SizeBalance int `json:"size_balance"`
	SexBalance  int `json:"sex_balance"`
	PriorPair   int `json:"prior_pair"`
}

// Spec 一次分班请求的完整配置
// 所有参数显式传入，求解期间不读任何进程级状态。
type Spec struct {
	Mode model.Mode `json:"mode"`

	// 小组模式参数
	GroupSize int  `json:"group_size,omitempty"` // 目标组大小；组数 = ceil(N/GroupSize)
	SameSex   bool `json:"same_sex,omitempty"`   // true=每组同性；false=混合（尽量男女兼有）

	// 班级模式参数
	ClassCount        int `json:"class_count,omitempty"`
	MinSize           int `json:"min_size,omitempty"`
	MaxSize           int `json:"max_size,omitempty"`
	MinFemalePerClass int `json:"min_female_per_class,omitempty"`
	MinMalePerClass   int `json:"min_male_per_class,omitempty"`

	// 属性软规则
	SpreadRules []SpreadRule `json:"spread_rules,omitempty"`
	CapRules    []CapRule    `json:"cap_rules,omitempty"`

	Weights Weights `json:"weights"`

	// 历史同组配对（小组模式）
	PriorPairs []model.PriorPair `json:"prior_pairs,omitempty"`

	// 求解参数
	TimeLimit time.Duration `json:"time_limit,omitempty"`
	Seed      int64         `json:"seed,omitempty"` // 0 表示按时间播种

	// 搜索规模参数，0 取求解器默认值
	MaxIterations int `json:"max_iterations,omitempty"` // 每条退火链的最大迭代数
	Restarts      int `json:"restarts,omitempty"`       // 并行重启链数
	Plateau       int `json:"plateau,omitempty"`        // 无改进提前终止阈值
}

// DefaultGroupSpec 返回学习小组模式的默认配置
func DefaultGroupSpec(groupSize int, sameSex bool) Spec {
	return Spec{
		Mode:      model.ModeGroups,
		GroupSize: groupSize,
		SameSex:   sameSex,
		Weights: Weights{
			SizeBalance: DefaultGroupSizeWeight,
			SexBalance:  DefaultSexBalanceWeight,
			PriorPair:   DefaultPriorPairWeight,
		},
		TimeLimit: DefaultTimeLimit,
	}
}

// DefaultClassSpec 返回固定班级模式的默认配置
// 属性软规则按名册默认列预置：选修科目与语种各自聚集、
// 来源学校限制每班人数；名册中不出现这些属性时规则自动空转。
func DefaultClassSpec(classCount, minSize, maxSize int) Spec {
	return Spec{
		Mode:       model.ModeClasses,
		ClassCount: classCount,
		MinSize:    minSize,
		MaxSize:    maxSize,
		SpreadRules: []SpreadRule{
			{Attribute: rosterpkg.AttrSubject, Weight: DefaultSpreadWeight},
			{Attribute: rosterpkg.AttrLanguage, Weight: DefaultSpreadWeight},
		},
		CapRules: []CapRule{
			{Attribute: rosterpkg.AttrOrigin, MaxPerBin: DefaultCapPerBin, Weight: DefaultCapWeight},
		},
		Weights: Weights{
			SizeBalance: DefaultClassBalanceWeight,
		},
		TimeLimit: DefaultTimeLimit,
	}
}

// Validate 校验配置一致性
// 只做边界与矛盾区间检查（InvalidConfiguration）；
// 硬约束整体是否可满足由求解器判定（Infeasible）。
func (s *Spec) Validate() error {
	if !s.Mode.Valid() {
		return errors.InvalidConfiguration("mode", "必须是 groups 或 classes")
	}

	switch s.Mode {
	case model.ModeGroups:
		if s.GroupSize <= 0 {
			return errors.InvalidConfiguration("group_size", "必须为正整数")
		}
	case model.ModeClasses:
		if s.ClassCount <= 0 {
			return errors.InvalidConfiguration("class_count", "必须为正整数")
		}
		if s.MinSize < 0 {
			return errors.InvalidConfiguration("min_size", "不能为负")
		}
		if s.MaxSize <= 0 {
			return errors.InvalidConfiguration("max_size", "必须为正整数")
		}
		if s.MinSize > s.MaxSize {
			return errors.InvalidConfiguration("min_size", "不能大于 max_size")
		}
		if s.MinFemalePerClass < 0 || s.MinMalePerClass < 0 {
			return errors.InvalidConfiguration("min_female_per_class", "性别下限不能为负")
		}
	}

	if s.Weights.SizeBalance < 0 || s.Weights.SexBalance < 0 || s.Weights.PriorPair < 0 {
		return errors.InvalidConfiguration("weights", "权重不能为负")
	}
	for _, r := range s.SpreadRules {
		if r.Attribute == "" {
			return errors.InvalidConfiguration("spread_rules", "属性名不能为空")
		}
		if r.Weight < 0 {
			return errors.InvalidConfiguration("spread_rules", "权重不能为负")
		}
	}
	for _, r := range s.CapRules {
		if r.Attribute == "" {
			return errors.InvalidConfiguration("cap_rules", "属性名不能为空")
		}
		if r.MaxPerBin < 0 {
			return errors.InvalidConfiguration("cap_rules", "max_per_bin 不能为负")
		}
		if r.Weight < 0 {
			return errors.InvalidConfiguration("cap_rules", "权重不能为负")
		}
	}
	if s.TimeLimit < 0 {
		return errors.InvalidConfiguration("time_limit", "不能为负")
	}
	if s.MaxIterations < 0 || s.Restarts < 0 || s.Plateau < 0 {
		return errors.InvalidConfiguration("solver", "搜索规模参数不能为负")
	}

	return nil
}

// EffectiveTimeLimit 返回生效的时间预算
func (s *Spec) EffectiveTimeLimit() time.Duration {
	if s.TimeLimit <= 0 {
		return DefaultTimeLimit
	}
	return s.TimeLimit
}
