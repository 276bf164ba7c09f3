// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fenban/fenban/internal/repository"
	"github.com/fenban/fenban/pkg/errors"
	"github.com/fenban/fenban/pkg/model"
)

// OrgsHandler 学校/组织管理处理器
type OrgsHandler struct {
	orgs *repository.OrganizationRepository
}

// NewOrgsHandler 创建组织处理器
func NewOrgsHandler(orgs *repository.OrganizationRepository) *OrgsHandler {
	return &OrgsHandler{orgs: orgs}
}

// OrgRequest 组织创建/更新请求
type OrgRequest struct {
	Name     string        `json:"name"`
	Code     string        `json:"code"`
	Settings model.JSONMap `json:"settings,omitempty"`
}

// OrgResponse 单个组织响应
type OrgResponse struct {
	Success bool                `json:"success"`
	Org     *model.Organization `json:"org"`
}

// OrgListResponse 组织列表响应
type OrgListResponse struct {
	Success bool                  `json:"success"`
	Total   int                   `json:"total"`
	Orgs    []*model.Organization `json:"orgs"`
}

// Collection 组织集合端点：POST 创建，GET 列表
func (h *OrgsHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET与POST方法"))
	}
}

// Get 按ID获取组织
// GET /api/v1/orgs/{id}
func (h *OrgsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/orgs/")
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, errors.InvalidInput("id", "不是合法的 UUID"))
		return
	}

	org, err := h.orgs.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询组织失败"))
		return
	}
	if org == nil {
		respondError(w, errors.NotFound("组织", raw))
		return
	}

	respondJSON(w, http.StatusOK, OrgResponse{Success: true, Org: org})
}

func (h *OrgsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req OrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.TrimSpace(req.Code)
	if req.Name == "" {
		respondError(w, errors.InvalidInput("name", "不能为空"))
		return
	}
	if req.Code == "" {
		respondError(w, errors.InvalidInput("code", "不能为空"))
		return
	}

	existing, err := h.orgs.GetByCode(r.Context(), req.Code)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询组织失败"))
		return
	}
	if existing != nil {
		respondError(w, errors.New(errors.CodeAlreadyExists, "组织编码已存在"))
		return
	}

	org := &model.Organization{
		Name:     req.Name,
		Code:     req.Code,
		Settings: req.Settings,
	}
	if err := h.orgs.Create(r.Context(), org); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "创建组织失败"))
		return
	}

	respondJSON(w, http.StatusCreated, OrgResponse{Success: true, Org: org})
}

func (h *OrgsHandler) list(w http.ResponseWriter, r *http.Request) {
	filter := repository.DefaultListFilter()
	filter.Search = r.URL.Query().Get("search")

	orgs, total, err := h.orgs.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询组织列表失败"))
		return
	}
	if orgs == nil {
		orgs = []*model.Organization{}
	}

	respondJSON(w, http.StatusOK, OrgListResponse{Success: true, Total: total, Orgs: orgs})
}
