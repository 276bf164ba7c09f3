// Package constraint 定义分班约束接口和管理器
package constraint

import (
	"github.com/fenban/fenban/pkg/model"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeCapacity       Type = "capacity"         // 组规模上下界
	TypeSameSexGroup   Type = "same_sex_group"   // 每组性别同质
	TypeMixedSexGroup  Type = "mixed_sex_group"  // 每组男女兼有
	TypeSexFloor       Type = "sex_floor"        // 每班各性别人数下限
	TypeAttributeFloor Type = "attribute_floor"  // 每班指定属性值人数下限

	// 软约束类型
	TypeSizeBalance     Type = "size_balance"      // 组规模贴近目标
	TypeSexBalance      Type = "sex_balance"       // 组内男女均衡
	TypeAttributeSpread Type = "attribute_spread"  // 同属性值集中在少数组
	TypeAttributeCap    Type = "attribute_cap"     // 单组内同属性值人数上限
	TypePriorPair       Type = "prior_pair"        // 避免历史同组再次同组
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Weight 返回约束权重
	Weight() int

	// Evaluate 评估完整分班方案
	// 返回：是否满足、惩罚值、违反详情
	Evaluate(ctx *Context) (valid bool, penalty int, details []ViolationDetail)

	// Score 只计算惩罚值（搜索内循环的轻量路径，不构造详情）
	Score(ctx *Context) int
}

// Preflighter 可选接口：在搜索前用计数论证判定不可行
// 返回非 nil 表示硬约束在该批次与几何下必然无解。
type Preflighter interface {
	Preflight(ctx *Context) error
}

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type   `json:"constraint_type"`
	ConstraintName string `json:"constraint_name"`
	Bin            int    `json:"bin"`
	StudentID      int    `json:"student_id,omitempty"`
	Message        string `json:"message"`
	Severity       string `json:"severity"` // error/warning
	Penalty        int    `json:"penalty"`
}

// Unassigned 表示学生尚未分配到任何组
const Unassigned = -1

// Context 分班上下文
// 持有学生批次、组几何与当前分配，并缓存各组的人数统计。
// 分配表示为 Assign[学生ID] = 组编号，"恰好一组"由表示本身保证。
type Context struct {
	Students []*model.Student
	K        int // 组数
	MinSize  int
	MaxSize  int

	Assign []int

	// 需要统计的分类属性（spread/cap 规则引用的属性）
	trackedAttrs []string

	// 索引缓存
	binSizes   []int
	sexCounts  []map[model.Sex]int
	attrCounts []map[string]map[string]int // 组 -> 属性 -> 值 -> 人数
}

// NewContext 创建分班上下文（初始全部未分配）
func NewContext(students []*model.Student, k, minSize, maxSize int, trackedAttrs []string) *Context {
	c := &Context{
		Students:     students,
		K:            k,
		MinSize:      minSize,
		MaxSize:      maxSize,
		Assign:       make([]int, len(students)),
		trackedAttrs: trackedAttrs,
	}
	for i := range c.Assign {
		c.Assign[i] = Unassigned
	}
	c.rebuildIndexes()
	return c
}

// SetAssignment 设置完整分配并重建索引
// assign 的长度必须等于学生数；调用方持有所有权，内部会拷贝。
func (c *Context) SetAssignment(assign []int) {
	copy(c.Assign, assign)
	c.rebuildIndexes()
}

// rebuildIndexes 重建各组统计缓存
func (c *Context) rebuildIndexes() {
	c.binSizes = make([]int, c.K)
	c.sexCounts = make([]map[model.Sex]int, c.K)
	c.attrCounts = make([]map[string]map[string]int, c.K)
	for g := 0; g < c.K; g++ {
		c.sexCounts[g] = make(map[model.Sex]int)
		c.attrCounts[g] = make(map[string]map[string]int)
		for _, attr := range c.trackedAttrs {
			c.attrCounts[g][attr] = make(map[string]int)
		}
	}
	for _, s := range c.Students {
		g := c.Assign[s.ID]
		if g == Unassigned {
			continue
		}
		c.addToBin(s, g)
	}
}

// addToBin 将学生计入组统计
func (c *Context) addToBin(s *model.Student, g int) {
	c.binSizes[g]++
	c.sexCounts[g][s.Sex]++
	for _, attr := range c.trackedAttrs {
		if v := s.Attribute(attr); v != "" {
			c.attrCounts[g][attr][v]++
		}
	}
}

// removeFromBin 将学生移出组统计
func (c *Context) removeFromBin(s *model.Student, g int) {
	c.binSizes[g]--
	c.sexCounts[g][s.Sex]--
	for _, attr := range c.trackedAttrs {
		if v := s.Attribute(attr); v != "" {
			c.attrCounts[g][attr][v]--
		}
	}
}

// Move 将学生移动到另一组，增量更新统计
func (c *Context) Move(studentID, toBin int) {
	s := c.Students[studentID]
	if from := c.Assign[studentID]; from != Unassigned {
		c.removeFromBin(s, from)
	}
	c.Assign[studentID] = toBin
	if toBin != Unassigned {
		c.addToBin(s, toBin)
	}
}

// Swap 交换两个学生所在的组
func (c *Context) Swap(id1, id2 int) {
	g1, g2 := c.Assign[id1], c.Assign[id2]
	c.Move(id1, g2)
	c.Move(id2, g1)
}

// BinSize 返回组 g 当前人数
func (c *Context) BinSize(g int) int {
	return c.binSizes[g]
}

// SexCount 返回组 g 中指定性别的人数
func (c *Context) SexCount(g int, sex model.Sex) int {
	return c.sexCounts[g][sex]
}

// AttrCount 返回组 g 中属性 attr 取值为 value 的人数
func (c *Context) AttrCount(g int, attr, value string) int {
	counts, ok := c.attrCounts[g][attr]
	if !ok {
		return 0
	}
	return counts[value]
}

// BinsWithValue 返回含有属性值 value 的组数
func (c *Context) BinsWithValue(attr, value string) int {
	n := 0
	for g := 0; g < c.K; g++ {
		if c.AttrCount(g, attr, value) > 0 {
			n++
		}
	}
	return n
}

// AssignedCount 返回已分配的学生数
func (c *Context) AssignedCount() int {
	n := 0
	for g := 0; g < c.K; g++ {
		n += c.binSizes[g]
	}
	return n
}

// Complete 检查是否所有学生都已分配
func (c *Context) Complete() bool {
	return c.AssignedCount() == len(c.Students)
}

// Clone 深拷贝上下文（共享学生记录，复制分配与缓存）
func (c *Context) Clone() *Context {
	clone := &Context{
		Students:     c.Students,
		K:            c.K,
		MinSize:      c.MinSize,
		MaxSize:      c.MaxSize,
		Assign:       make([]int, len(c.Assign)),
		trackedAttrs: c.trackedAttrs,
	}
	copy(clone.Assign, c.Assign)
	clone.rebuildIndexes()
	return clone
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	Objective      int               `json:"objective"`     // 软约束加权惩罚之和（求解目标）
	HardPenalty    int               `json:"hard_penalty"`  // 硬约束惩罚（可行解为 0）
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
	Checks         []Check           `json:"checks,omitempty"` // 逐约束结论
}

// Check 单个约束的评估结论
type Check struct {
	Type      Type     `json:"type"`
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	Satisfied bool     `json:"satisfied"`
	Penalty   int      `json:"penalty"`
}
