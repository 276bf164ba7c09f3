// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fenban/fenban/pkg/errors"
	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition"
	"github.com/fenban/fenban/pkg/swap"
)

// SwapRequest 调组推荐请求
// 在一份既有分配上枚举可行的交换与迁移，给出目标值降幅最大的几条建议。
type SwapRequest struct {
	Mode              string         `json:"mode"` // groups/classes
	Students          []StudentInput `json:"students"`
	Assign            []int          `json:"assign"`
	GroupSize         int            `json:"group_size,omitempty"`
	SameSex           bool           `json:"same_sex,omitempty"`
	ClassCount        int            `json:"class_count,omitempty"`
	MinSize           int            `json:"min_size,omitempty"`
	MaxSize           int            `json:"max_size,omitempty"`
	MinFemalePerClass int            `json:"min_female_per_class,omitempty"`
	MinMalePerClass   int            `json:"min_male_per_class,omitempty"`
	PriorPairs        []PairInput    `json:"prior_pairs,omitempty"`

	MaxRecommendations int   `json:"max_recommendations,omitempty"`
	MinImprovement     int   `json:"min_improvement,omitempty"`
	ExcludeStudents    []int `json:"exclude_students,omitempty"`
	DisallowRelocate   bool  `json:"disallow_relocate,omitempty"`
}

// SwapResponse 调组推荐响应
type SwapResponse struct {
	Success         bool                  `json:"success"`
	Objective       int                   `json:"objective"`
	Recommendations []swap.Recommendation `json:"recommendations"`
}

// SwapRecommendHandler 调组推荐API
func SwapRecommendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	students, appErr := buildStudents(req.Students)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	var spec partition.Spec
	switch model.Mode(req.Mode) {
	case model.ModeGroups:
		spec = partition.DefaultGroupSpec(req.GroupSize, req.SameSex)
		spec.PriorPairs = collectPairs(nil, req.PriorPairs)
	case model.ModeClasses:
		spec = partition.DefaultClassSpec(req.ClassCount, req.MinSize, req.MaxSize)
		spec.MinFemalePerClass = req.MinFemalePerClass
		spec.MinMalePerClass = req.MinMalePerClass
	default:
		respondError(w, errors.InvalidConfiguration("mode", "必须是 groups 或 classes"))
		return
	}

	m, err := partition.NewModel(spec, students)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}

	if len(req.Assign) != len(students) {
		respondError(w, errors.InvalidInput("assign", "分配长度与学生数不一致"))
		return
	}
	for _, g := range req.Assign {
		if g < 0 || g >= m.K {
			respondError(w, errors.InvalidInput("assign", "组编号越界"))
			return
		}
	}
	m.Context.SetAssignment(req.Assign)

	options := swap.DefaultOptions()
	if req.MaxRecommendations > 0 {
		options.MaxRecommendations = req.MaxRecommendations
	}
	if req.MinImprovement > 0 {
		options.MinImprovement = req.MinImprovement
	}
	options.ExcludeStudents = req.ExcludeStudents
	options.AllowRelocate = !req.DisallowRelocate

	recommender := swap.NewRecommender(m.Manager)
	recs := recommender.Recommend(m.Context, options)
	if recs == nil {
		recs = []swap.Recommendation{}
	}

	respondJSON(w, http.StatusOK, SwapResponse{
		Success:         true,
		Objective:       m.Manager.Objective(m.Context),
		Recommendations: recs,
	})
}
