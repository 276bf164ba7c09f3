package swap

import (
	"fmt"
	"sort"

	"github.com/fenban/fenban/pkg/partition/constraint"
)

// Recommender 调组推荐器
// 在既有分班方案上枚举学生交换与迁移，按目标值降幅排序给出建议。
type Recommender struct {
	evaluator *Evaluator
}

// NewRecommender 创建调组推荐器
func NewRecommender(manager *constraint.Manager) *Recommender {
	return &Recommender{
		evaluator: NewEvaluator(manager),
	}
}

// Recommendation 调组推荐
type Recommendation struct {
	SwapType    string `json:"swap_type"` // exchange/relocate
	StudentID1  int    `json:"student_id1"`
	StudentID2  int    `json:"student_id2,omitempty"` // exchange 时的对方
	FromBin     int    `json:"from_bin"`
	ToBin       int    `json:"to_bin"`
	Improvement int    `json:"improvement"` // 目标值降幅
	Reason      string `json:"reason"`
	Rank        int    `json:"rank"`
}

// Options 推荐选项
type Options struct {
	MaxRecommendations int   // 最大推荐数量
	MinImprovement     int   // 最低降幅（0 表示任何不变差的调组）
	ExcludeStudents    []int // 不参与调组的学生
	AllowRelocate      bool  // 是否允许单向迁移
}

// DefaultOptions 返回默认选项
func DefaultOptions() *Options {
	return &Options{
		MaxRecommendations: 5,
		MinImprovement:     1,
		AllowRelocate:      true,
	}
}

// Recommend 枚举可行调组并按降幅排序
// 上下文必须携带完整分配；调用结束后上下文保持原状。
func (r *Recommender) Recommend(ctx *constraint.Context, options *Options) []Recommendation {
	if options == nil {
		options = DefaultOptions()
	}

	excluded := make(map[int]bool)
	for _, id := range options.ExcludeStudents {
		excluded[id] = true
	}

	var candidates []Recommendation
	n := len(ctx.Students)

	// 两两交换
	for id1 := 0; id1 < n; id1++ {
		if excluded[id1] {
			continue
		}
		for id2 := id1 + 1; id2 < n; id2++ {
			if excluded[id2] || ctx.Assign[id1] == ctx.Assign[id2] {
				continue
			}

			eval := r.evaluator.EvaluateSwap(ctx, id1, id2)
			if !eval.Feasible || eval.Improvement < options.MinImprovement {
				continue
			}

			candidates = append(candidates, Recommendation{
				SwapType:    "exchange",
				StudentID1:  id1,
				StudentID2:  id2,
				FromBin:     ctx.Assign[id1],
				ToBin:       ctx.Assign[id2],
				Improvement: eval.Improvement,
				Reason:      r.reason(ctx, id1, id2, eval),
			})
		}
	}

	// 单向迁移（只迁入未满员的组）
	if options.AllowRelocate {
		for id := 0; id < n; id++ {
			if excluded[id] {
				continue
			}
			for to := 0; to < ctx.K; to++ {
				if to == ctx.Assign[id] || ctx.BinSize(to) >= ctx.MaxSize {
					continue
				}

				eval := r.evaluator.EvaluateRelocate(ctx, id, to)
				if !eval.Feasible || eval.Improvement < options.MinImprovement {
					continue
				}

				candidates = append(candidates, Recommendation{
					SwapType:    "relocate",
					StudentID1:  id,
					FromBin:     ctx.Assign[id],
					ToBin:       to,
					Improvement: eval.Improvement,
					Reason:      fmt.Sprintf("%s 迁往第 %d 组后方案更均衡", ctx.Students[id].Name, to+1),
				})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Improvement > candidates[j].Improvement
	})

	if len(candidates) > options.MaxRecommendations {
		candidates = candidates[:options.MaxRecommendations]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates
}

// reason 生成交换推荐的说明
func (r *Recommender) reason(ctx *constraint.Context, id1, id2 int, eval *Evaluation) string {
	if len(eval.Issues) == 0 {
		return fmt.Sprintf("%s 与 %s 互换后无任何软约束提醒",
			ctx.Students[id1].Name, ctx.Students[id2].Name)
	}
	return fmt.Sprintf("%s 与 %s 互换可降低目标值 %d",
		ctx.Students[id1].Name, ctx.Students[id2].Name, eval.Improvement)
}
