// Package model 定义分班引擎的核心数据模型
package model

import "strings"

// Sex 性别枚举
type Sex string

const (
	SexFemale Sex = "F"
	SexMale   Sex = "M"
)

// Valid 检查性别值是否合法
func (s Sex) Valid() bool {
	return s == SexFemale || s == SexMale
}

// Other 返回另一个性别值
func (s Sex) Other() Sex {
	if s == SexFemale {
		return SexMale
	}
	return SexFemale
}

// NormalizeSex 归一化性别标记
// 接受丹麦语/英语的常见写法；无法识别时返回去空格后的大写原值
func NormalizeSex(raw string) Sex {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "k", "f", "female", "kvinde":
		return SexFemale
	case "m", "male", "mand":
		return SexMale
	}
	return Sex(strings.ToUpper(strings.TrimSpace(raw)))
}

// Student 学生（可分配实体）
// ID 为加载时分配的稠密 0 基序号，求解器只依赖该标识；
// Name 用于报表展示和历史同组配对匹配。
type Student struct {
	ID         int               `json:"id"`
	SourceID   string            `json:"source_id,omitempty"` // 外部系统的学号
	Name       string            `json:"name"`
	Sex        Sex               `json:"sex"`
	Attributes map[string]string `json:"attributes,omitempty"` // 分类属性：subject/language/origin 等
}

// Attribute 返回指定分类属性的值，缺失时返回空串
func (s *Student) Attribute(name string) string {
	if s.Attributes == nil {
		return ""
	}
	return s.Attributes[name]
}

// HasAttribute 检查学生是否具有指定属性值
func (s *Student) HasAttribute(name, value string) bool {
	return s.Attribute(name) == value
}

// PriorPair 历史同组配对事实
// 无序的两个学生姓名，表示二人曾在之前的分班中同组。
// 每次求解由外部协作方重新提供，引擎不持久化该事实本身。
type PriorPair struct {
	Name1 string `json:"name1"`
	Name2 string `json:"name2"`
}

// Normalize 返回按字典序排列的配对（便于去重）
func (p PriorPair) Normalize() PriorPair {
	a := strings.TrimSpace(p.Name1)
	b := strings.TrimSpace(p.Name2)
	if a > b {
		a, b = b, a
	}
	return PriorPair{Name1: a, Name2: b}
}

// DistinctAttributeValues 收集一批学生中某属性出现过的全部非空值（去重，保持首现顺序）
func DistinctAttributeValues(students []*Student, attr string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, s := range students {
		v := strings.TrimSpace(s.Attribute(attr))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}

// CountBySex 统计一批学生中指定性别的人数
func CountBySex(students []*Student, sex Sex) int {
	n := 0
	for _, s := range students {
		if s.Sex == sex {
			n++
		}
	}
	return n
}
