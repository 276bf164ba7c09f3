// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fenban/fenban/internal/metrics"
	"github.com/fenban/fenban/pkg/errors"
	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/stats"
)

// CompositionRequest 组成分析请求
// 分组既可直接给出（groups），也可由学生列表与分配向量推导。
type CompositionRequest struct {
	Mode       string           `json:"mode,omitempty"` // 仅用于指标标签
	Groups     [][]StudentInput `json:"groups,omitempty"`
	Students   []StudentInput   `json:"students,omitempty"`
	Assign     []int            `json:"assign,omitempty"`
	GroupCount int              `json:"group_count,omitempty"`
	Attributes []string         `json:"attributes,omitempty"` // 参与属性分布统计的属性名
}

// CompositionResponse 组成分析响应
type CompositionResponse struct {
	Success bool           `json:"success"`
	Data    *stats.Metrics `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// CompareRequest 前后对比请求
type CompareRequest struct {
	Before [][]StudentInput `json:"before"`
	After  [][]StudentInput `json:"after"`
}

// CompareResponse 前后对比响应
type CompareResponse struct {
	Success bool               `json:"success"`
	Data    map[string]float64 `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// GetCompositionHandler 组成分析API
func GetCompositionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CompositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	groups, appErr := resolveGroups(req.Groups, req.Students, req.Assign, req.GroupCount)
	if appErr != nil {
		sendJSONError(w, appErr.Message, appErr.HTTPStatus)
		return
	}

	analyzer := stats.NewAnalyzer(req.Attributes)
	m := analyzer.Analyze(groups)

	if req.Mode != "" {
		metrics.SetBalanceScore(req.Mode, m.OverallBalanceScore)
		metrics.SetBalanceGini(req.Mode, "size", m.SizeGini)
		metrics.SetBalanceGini(req.Mode, "sex_gap", m.SexGapGini)
	}

	resp := CompositionResponse{
		Success: true,
		Data:    m,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetCompareHandler 前后对比API
func GetCompareHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	before, appErr := groupsFromInputs(req.Before)
	if appErr != nil {
		sendJSONError(w, appErr.Message, appErr.HTTPStatus)
		return
	}
	after, appErr := groupsFromInputs(req.After)
	if appErr != nil {
		sendJSONError(w, appErr.Message, appErr.HTTPStatus)
		return
	}

	analyzer := stats.NewAnalyzer(nil)
	diff := analyzer.Compare(before, after)

	resp := CompareResponse{
		Success: true,
		Data:    diff,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// resolveGroups 由两种输入形态之一构建分组
func resolveGroups(groupInputs [][]StudentInput, studentInputs []StudentInput, assign []int, groupCount int) ([][]*model.Student, *errors.AppError) {
	if len(groupInputs) > 0 {
		return groupsFromInputs(groupInputs)
	}

	students, appErr := buildStudents(studentInputs)
	if appErr != nil {
		return nil, appErr
	}
	if len(assign) != len(students) {
		return nil, errors.InvalidInput("assign", "分配长度与学生数不一致")
	}

	k := groupCount
	for _, g := range assign {
		if g < 0 {
			return nil, errors.InvalidInput("assign", "组编号不能为负")
		}
		if g+1 > k {
			k = g + 1
		}
	}

	groups := make([][]*model.Student, k)
	for id, g := range assign {
		groups[g] = append(groups[g], students[id])
	}
	return groups, nil
}

// groupsFromInputs 将分组输入转换为学生分组
func groupsFromInputs(inputs [][]StudentInput) ([][]*model.Student, *errors.AppError) {
	groups := make([][]*model.Student, len(inputs))
	nextID := 0
	for g, groupInput := range inputs {
		groups[g] = make([]*model.Student, 0, len(groupInput))
		for _, in := range groupInput {
			sex := model.NormalizeSex(in.Sex)
			if !sex.Valid() {
				return nil, errors.InvalidInput("groups", "无法识别的性别: "+in.Sex)
			}
			groups[g] = append(groups[g], &model.Student{
				ID:         nextID,
				SourceID:   in.SourceID,
				Name:       in.Name,
				Sex:        sex,
				Attributes: in.Attributes,
			})
			nextID++
		}
	}
	return groups, nil
}

// sendJSONError 发送JSON错误响应
func sendJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
