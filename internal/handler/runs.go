// Package handler 提供HTTP请求处理器
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/fenban/fenban/internal/repository"
	"github.com/fenban/fenban/pkg/errors"
	"github.com/fenban/fenban/pkg/model"
)

// RunsHandler 求解记录查询处理器
type RunsHandler struct {
	runs *repository.RunRepository
}

// NewRunsHandler 创建求解记录处理器
func NewRunsHandler(runs *repository.RunRepository) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// RunListResponse 求解记录列表响应
type RunListResponse struct {
	Success bool                  `json:"success"`
	Total   int                   `json:"total"`
	Runs    []*model.PartitionRun `json:"runs"`
}

// RunDetailResponse 求解记录详情响应
type RunDetailResponse struct {
	Success bool                 `json:"success"`
	Run     *model.PartitionRun  `json:"run"`
	Members []model.GroupMember  `json:"members"`
}

// List 求解记录列表
// GET /api/v1/runs?org_id=&mode=&status=&limit=&offset=
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	filter := repository.DefaultListFilter()
	q := r.URL.Query()

	if raw := q.Get("org_id"); raw != "" {
		orgID, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, errors.InvalidInput("org_id", "不是合法的 UUID"))
			return
		}
		filter = filter.WithOrgID(orgID)
	}
	if mode := q.Get("mode"); mode != "" {
		filter = filter.WithMode(mode)
	}
	if status := q.Get("status"); status != "" {
		filter = filter.WithStatus(status)
	}
	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 && limit <= 100 {
			filter = filter.WithLimit(limit)
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			filter = filter.WithOffset(offset)
		}
	}

	runs, total, err := h.runs.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询求解记录失败"))
		return
	}
	if runs == nil {
		runs = []*model.PartitionRun{}
	}

	respondJSON(w, http.StatusOK, RunListResponse{Success: true, Total: total, Runs: runs})
}

// Get 求解记录详情（含成员）
// GET /api/v1/runs/{id}
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, errors.InvalidInput("id", "不是合法的 UUID"))
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询求解记录失败"))
		return
	}
	if run == nil {
		respondError(w, errors.NotFound("求解记录", raw))
		return
	}

	members, err := h.runs.Members(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询成员失败"))
		return
	}

	respondJSON(w, http.StatusOK, RunDetailResponse{Success: true, Run: run, Members: members})
}
