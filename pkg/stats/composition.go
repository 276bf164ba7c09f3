// Package stats 提供分班结果的统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/fenban/fenban/pkg/model"
)

// GroupStat 单组统计
type GroupStat struct {
	Index       int                       `json:"index"` // 1 基组编号
	Size        int                       `json:"size"`
	Females     int                       `json:"females"`
	Males       int                       `json:"males"`
	SexGap      int                       `json:"sex_gap"` // |女生数 - 男生数|
	Attributes  map[string]map[string]int `json:"attributes,omitempty"`
}

// Metrics 分班组成指标
type Metrics struct {
	TotalStudents int     `json:"total_students"`
	GroupCount    int     `json:"group_count"`
	FemaleShare   float64 `json:"female_share"` // 女生占比 (0-1)

	// 规模均衡
	SizeMean     float64 `json:"size_mean"`
	SizeVariance float64 `json:"size_variance"`
	SizeStdDev   float64 `json:"size_std_dev"`
	SizeGini     float64 `json:"size_gini"` // 组规模基尼系数 (0=完全均衡)
	MaxSize      int     `json:"max_size"`
	MinSize      int     `json:"min_size"`

	// 性别均衡
	SexGapMean float64 `json:"sex_gap_mean"` // 各组男女差的平均值
	SexGapGini float64 `json:"sex_gap_gini"`

	// 属性分布：属性 -> 取值 -> 含有该值的组数
	AttributeSpread map[string]map[string]int `json:"attribute_spread,omitempty"`

	GroupStats []GroupStat `json:"group_stats"`

	// 综合均衡评分 (0-100)
	OverallBalanceScore float64 `json:"overall_balance_score"`
}

// Analyzer 分班组成分析器
type Analyzer struct {
	attrs []string // 参与属性分布统计的属性名
}

// NewAnalyzer 创建分析器
func NewAnalyzer(attrs []string) *Analyzer {
	return &Analyzer{attrs: attrs}
}

// Analyze 分析一次分班结果的组成与均衡程度
func (a *Analyzer) Analyze(groups [][]*model.Student) *Metrics {
	if len(groups) == 0 {
		return &Metrics{OverallBalanceScore: 100}
	}

	groupStats := make([]GroupStat, len(groups))
	sizes := make([]float64, len(groups))
	gaps := make([]float64, len(groups))
	total := 0
	females := 0

	for g, group := range groups {
		stat := GroupStat{Index: g + 1, Size: len(group)}
		if len(a.attrs) > 0 {
			stat.Attributes = make(map[string]map[string]int)
		}
		for _, s := range group {
			if s.Sex == model.SexFemale {
				stat.Females++
			} else {
				stat.Males++
			}
			for _, attr := range a.attrs {
				v := s.Attribute(attr)
				if v == "" {
					continue
				}
				if stat.Attributes[attr] == nil {
					stat.Attributes[attr] = make(map[string]int)
				}
				stat.Attributes[attr][v]++
			}
		}
		stat.SexGap = abs(stat.Females - stat.Males)

		groupStats[g] = stat
		sizes[g] = float64(stat.Size)
		gaps[g] = float64(stat.SexGap)
		total += stat.Size
		females += stat.Females
	}

	sizeMean := mean(sizes)
	sizeVariance := variance(sizes, sizeMean)
	sizeStdDev := math.Sqrt(sizeVariance)
	maxSize, minSize := extremes(sizes)

	femaleShare := 0.0
	if total > 0 {
		femaleShare = float64(females) / float64(total)
	}

	m := &Metrics{
		TotalStudents:   total,
		GroupCount:      len(groups),
		FemaleShare:     femaleShare,
		SizeMean:        sizeMean,
		SizeVariance:    sizeVariance,
		SizeStdDev:      sizeStdDev,
		SizeGini:        gini(sizes),
		MaxSize:         int(maxSize),
		MinSize:         int(minSize),
		SexGapMean:      mean(gaps),
		SexGapGini:      gini(gaps),
		AttributeSpread: a.attributeSpread(groupStats),
		GroupStats:      groupStats,
	}
	m.OverallBalanceScore = a.overallScore(m)
	return m
}

// attributeSpread 统计各属性取值分布到的组数
func (a *Analyzer) attributeSpread(groupStats []GroupStat) map[string]map[string]int {
	if len(a.attrs) == 0 {
		return nil
	}
	spread := make(map[string]map[string]int)
	for _, attr := range a.attrs {
		spread[attr] = make(map[string]int)
		for _, stat := range groupStats {
			for v, n := range stat.Attributes[attr] {
				if n > 0 {
					spread[attr][v]++
				}
			}
		}
	}
	return spread
}

// overallScore 计算综合均衡评分
func (a *Analyzer) overallScore(m *Metrics) float64 {
	const (
		sizeWeight = 0.5
		sexWeight  = 0.3
		cvWeight   = 0.2
	)

	sizeScore := (1 - m.SizeGini) * 100

	// 性别差距按人均归一
	sexScore := 100.0
	if m.SizeMean > 0 {
		sexScore = math.Max(0, 100-m.SexGapMean/m.SizeMean*100)
	}

	// 变异系数越低分数越高
	cvScore := 100.0
	if m.SizeMean > 0 {
		cv := m.SizeStdDev / m.SizeMean
		cvScore = math.Max(0, 100-cv*200)
	}

	score := sizeWeight*sizeScore + sexWeight*sexScore + cvWeight*cvScore
	return math.Max(0, math.Min(100, score))
}

// Compare 比较两次分班的均衡程度
func (a *Analyzer) Compare(before, after [][]*model.Student) map[string]float64 {
	m1 := a.Analyze(before)
	m2 := a.Analyze(after)

	return map[string]float64{
		"size_gini_diff":       m2.SizeGini - m1.SizeGini,
		"sex_gap_mean_diff":    m2.SexGapMean - m1.SexGapMean,
		"overall_score_diff":   m2.OverallBalanceScore - m1.OverallBalanceScore,
		"before_overall_score": m1.OverallBalanceScore,
		"after_overall_score":  m2.OverallBalanceScore,
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - m
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func extremes(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 计算基尼系数 (0=完全均衡, 1=完全集中)
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
