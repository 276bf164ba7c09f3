// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fenban/fenban/internal/config"
	"github.com/fenban/fenban/internal/metrics"
	"github.com/fenban/fenban/internal/repository"
	"github.com/fenban/fenban/pkg/errors"
	"github.com/fenban/fenban/pkg/logger"
	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition"
	"github.com/fenban/fenban/pkg/partition/constraint"
	"github.com/fenban/fenban/pkg/partition/solver"
	"github.com/fenban/fenban/pkg/report"
	"github.com/fenban/fenban/pkg/roster"
	"github.com/fenban/fenban/pkg/validator"
)

// PartitionHandler 分班处理器
// runs 为空时跳过持久化与历史挖掘，纯内存运行。
type PartitionHandler struct {
	results *ResultStore
	runs    *repository.RunRepository
	solver  config.SolverConfig
}

// NewPartitionHandler 创建分班处理器
func NewPartitionHandler(results *ResultStore, runs *repository.RunRepository, solver config.SolverConfig) *PartitionHandler {
	return &PartitionHandler{results: results, runs: runs, solver: solver}
}

// applySolverConfig 将部署级求解器配置叠加到请求配置上
// 先于请求参数生效：请求显式给出 timeout_seconds 时仍以请求为准。
func (h *PartitionHandler) applySolverConfig(spec *partition.Spec) {
	if h.solver.TimeLimit > 0 {
		spec.TimeLimit = h.solver.TimeLimit
	}
	spec.MaxIterations = h.solver.MaxIterations
	spec.Restarts = h.solver.Restarts
	spec.Plateau = h.solver.Plateau
}

// StudentInput 学生输入
type StudentInput struct {
	Name       string            `json:"name"`
	Sex        string            `json:"sex"`
	SourceID   string            `json:"source_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// PairInput 历史配对输入
type PairInput struct {
	Name1 string `json:"name1"`
	Name2 string `json:"name2"`
}

// GroupsRequest 学习小组分班请求
// 名册二选一：roster_csv（sex,firstname,lastname 列）或 students 数组。
type GroupsRequest struct {
	RosterCSV  string         `json:"roster_csv,omitempty"`
	Students   []StudentInput `json:"students,omitempty"`
	GroupSize  int            `json:"group_size"`
	SameSex    bool           `json:"same_sex,omitempty"`
	History    [][][]string   `json:"history,omitempty"` // 往次分组结果（每次一组姓名列表）
	PriorPairs []PairInput    `json:"prior_pairs,omitempty"`
	Timeout    int            `json:"timeout_seconds,omitempty"`
	Seed       int64          `json:"seed,omitempty"`

	// 持久化与历史挖掘（需配置数据库）
	OrgID        string `json:"org_id,omitempty"`
	UsePriorRuns int    `json:"use_prior_runs,omitempty"` // 从最近 N 次求解记录挖掘历史配对
}

// ClassesRequest 固定班级分班请求
// 名册二选一：roster_csv（sex,id,language,subject,origin 列）或 students 数组。
type ClassesRequest struct {
	RosterCSV         string            `json:"roster_csv,omitempty"`
	Students          []StudentInput    `json:"students,omitempty"`
	ClassCount        int               `json:"class_count"`
	MinSize           int               `json:"min_size"`
	MaxSize           int               `json:"max_size"`
	MinFemalePerClass int               `json:"min_female_per_class,omitempty"`
	MinMalePerClass   int               `json:"min_male_per_class,omitempty"`
	ClassNames        []string          `json:"class_names,omitempty"`
	SpreadRules       []partition.SpreadRule `json:"spread_rules"` // nil 用默认规则，空数组关闭
	CapRules          []partition.CapRule    `json:"cap_rules"`
	Timeout           int               `json:"timeout_seconds,omitempty"`
	Seed              int64             `json:"seed,omitempty"`
	OrgID             string            `json:"org_id,omitempty"`
}

// MemberOutput 结果成员输出
type MemberOutput struct {
	Name       string            `json:"name"`
	Sex        string            `json:"sex"`
	SourceID   string            `json:"source_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// DownloadLinks 报表下载链接
type DownloadLinks struct {
	Token string `json:"token"`
	CSV   string `json:"csv"`
	Text  string `json:"txt,omitempty"`
}

// PartitionResponse 分班响应
type PartitionResponse struct {
	Success         bool               `json:"success"`
	RunID           string             `json:"run_id"`
	Status          string             `json:"status"`
	Objective       int                `json:"objective"`
	Groups          [][]MemberOutput   `json:"groups"`
	Assign          []int              `json:"assign"`
	MixedRuleActive bool               `json:"mixed_rule_active,omitempty"`
	SkippedPairs    int                `json:"skipped_pairs,omitempty"`
	Statistics      *solver.Statistics `json:"statistics,omitempty"`
	Warnings        []constraint.ViolationDetail `json:"warnings,omitempty"`
	Download        *DownloadLinks     `json:"download,omitempty"`
	Duration        string             `json:"duration"`
}

// Groups 学习小组分班
func (h *PartitionHandler) Groups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req GroupsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	if err := validateGroupsRequest(&req); err != nil {
		respondError(w, err)
		return
	}

	students, appErr := h.loadStudents(req.RosterCSV, req.Students, roster.LoadGroupRoster)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	spec := partition.DefaultGroupSpec(req.GroupSize, req.SameSex)
	h.applySolverConfig(&spec)
	spec.Seed = req.Seed
	if req.Timeout > 0 {
		spec.TimeLimit = time.Duration(req.Timeout) * time.Second
	}
	spec.PriorPairs = collectPairs(req.History, req.PriorPairs)

	// 数据库在位时从最近的求解记录补充历史配对
	if h.runs != nil && req.UsePriorRuns > 0 {
		if orgID, err := uuid.Parse(req.OrgID); err == nil {
			mined, err := h.runs.PriorPairs(r.Context(), orgID, req.UsePriorRuns)
			if err != nil {
				logger.Warn().Err(err).Msg("历史配对挖掘失败，忽略")
			} else {
				spec.PriorPairs = append(spec.PriorPairs, mined...)
			}
		}
	}

	start := time.Now()
	outcome, err := partition.Solve(r.Context(), spec, students)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordPartitionRun(string(model.ModeGroups), string(errors.GetCode(err)), duration)
		respondError(w, toAppError(err))
		return
	}
	metrics.RecordPartitionRun(string(model.ModeGroups), string(outcome.Status), duration)
	metrics.SetSolutionObjective(string(model.ModeGroups), float64(outcome.Objective))
	if outcome.Statistics != nil {
		metrics.RecordSolverIterations(string(model.ModeGroups), outcome.Statistics.Iterations)
	}
	recordConstraintChecks(outcome.Evaluation)

	h.persistRun(r.Context(), req.OrgID, spec, outcome)

	resp := h.buildResponse(outcome, duration)
	resp.Download = h.cacheGroupReports(outcome.Groups)

	respondJSON(w, http.StatusOK, resp)
}

// Classes 固定班级分班
func (h *PartitionHandler) Classes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ClassesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	if err := validateClassesRequest(&req); err != nil {
		respondError(w, err)
		return
	}

	students, appErr := h.loadStudents(req.RosterCSV, req.Students, roster.LoadClassRoster)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	spec := partition.DefaultClassSpec(req.ClassCount, req.MinSize, req.MaxSize)
	h.applySolverConfig(&spec)
	spec.MinFemalePerClass = req.MinFemalePerClass
	spec.MinMalePerClass = req.MinMalePerClass
	// 显式传入时覆盖默认属性规则；传空数组即关闭，缺省保留默认
	if req.SpreadRules != nil {
		spec.SpreadRules = req.SpreadRules
	}
	if req.CapRules != nil {
		spec.CapRules = req.CapRules
	}
	spec.Seed = req.Seed
	if req.Timeout > 0 {
		spec.TimeLimit = time.Duration(req.Timeout) * time.Second
	}

	start := time.Now()
	outcome, err := partition.Solve(r.Context(), spec, students)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordPartitionRun(string(model.ModeClasses), string(errors.GetCode(err)), duration)
		respondError(w, toAppError(err))
		return
	}
	metrics.RecordPartitionRun(string(model.ModeClasses), string(outcome.Status), duration)
	metrics.SetSolutionObjective(string(model.ModeClasses), float64(outcome.Objective))
	if outcome.Statistics != nil {
		metrics.RecordSolverIterations(string(model.ModeClasses), outcome.Statistics.Iterations)
	}
	recordConstraintChecks(outcome.Evaluation)

	h.persistRun(r.Context(), req.OrgID, spec, outcome)

	resp := h.buildResponse(outcome, duration)
	resp.Download = h.cacheClassReports(outcome.Groups, req.ClassNames, spec)

	respondJSON(w, http.StatusOK, resp)
}

// ValidateRequest 外部分配验证请求
type ValidateRequest struct {
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
}

// ValidateResponse 验证响应
type ValidateResponse struct {
	Success bool              `json:"success"`
	Report  *validator.Report `json:"report"`
}

// Validate 验证外部提交的分配方案
func (h *PartitionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	if len(req.Students) == 0 {
		respondError(w, errors.InvalidInput("students", "学生列表不能为空"))
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

	report, err := validator.NewVerifier(spec).Verify(students, req.Assign)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}
	for _, c := range report.Checks {
		metrics.RecordConstraintEvaluation(string(c.Type), c.Satisfied)
	}

	respondJSON(w, http.StatusOK, ValidateResponse{Success: true, Report: report})
}

// loadStudents 按名册来源构建学生批次
func (h *PartitionHandler) loadStudents(
	rosterCSV string,
	inputs []StudentInput,
	load func(io.Reader) ([]*model.Student, error),
) ([]*model.Student, *errors.AppError) {
	if rosterCSV != "" {
		students, err := load(strings.NewReader(rosterCSV))
		if err != nil {
			return nil, toAppError(err)
		}
		return students, nil
	}
	return buildStudents(inputs)
}

// buildStudents 将 JSON 输入转换为学生批次，ID 按顺序稠密分配
func buildStudents(inputs []StudentInput) ([]*model.Student, *errors.AppError) {
	if len(inputs) == 0 {
		return nil, errors.New(errors.CodeEmptyRoster, "名册中没有可用的学生行")
	}

	students := make([]*model.Student, 0, len(inputs))
	for i, in := range inputs {
		sex := model.NormalizeSex(in.Sex)
		if !sex.Valid() {
			return nil, errors.InvalidInput("students", "无法识别的性别: "+in.Sex)
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, errors.InvalidInput("students", "第 "+strconv.Itoa(i+1)+" 名学生缺少姓名")
		}
		students = append(students, &model.Student{
			ID:         len(students),
			SourceID:   in.SourceID,
			Name:       name,
			Sex:        sex,
			Attributes: in.Attributes,
		})
	}
	return students, nil
}

// collectPairs 合并往次分组历史与显式配对
func collectPairs(history [][][]string, pairs []PairInput) []model.PriorPair {
	collected := roster.PriorPairsFromGroups(history)
	for _, p := range pairs {
		collected = append(collected, model.PriorPair{Name1: p.Name1, Name2: p.Name2})
	}
	return collected
}

// buildResponse 组装分班响应
func (h *PartitionHandler) buildResponse(outcome *partition.Outcome, duration time.Duration) *PartitionResponse {
	groups := make([][]MemberOutput, len(outcome.Groups))
	for g, group := range outcome.Groups {
		groups[g] = make([]MemberOutput, len(group))
		for i, s := range group {
			groups[g][i] = MemberOutput{
				Name:       s.Name,
				Sex:        string(s.Sex),
				SourceID:   s.SourceID,
				Attributes: s.Attributes,
			}
		}
	}

	resp := &PartitionResponse{
		Success:         true,
		RunID:           outcome.RunID,
		Status:          string(outcome.Status),
		Objective:       outcome.Objective,
		Groups:          groups,
		Assign:          outcome.Assign,
		MixedRuleActive: outcome.MixedRuleActive,
		SkippedPairs:    outcome.SkippedPairs,
		Statistics:      outcome.Statistics,
		Duration:        duration.String(),
	}
	if outcome.Evaluation != nil {
		resp.Warnings = outcome.Evaluation.SoftViolations
	}
	return resp
}

// recordConstraintChecks 按约束类型上报评估结论
func recordConstraintChecks(eval *constraint.Result) {
	if eval == nil {
		return
	}
	for _, c := range eval.Checks {
		metrics.RecordConstraintEvaluation(string(c.Type), c.Satisfied)
	}
}

// persistRun 将成功的求解落库，失败只记日志不影响响应
func (h *PartitionHandler) persistRun(ctx context.Context, orgIDRaw string, spec partition.Spec, outcome *partition.Outcome) {
	if h.runs == nil || orgIDRaw == "" {
		return
	}
	orgID, err := uuid.Parse(orgIDRaw)
	if err != nil {
		logger.Warn().Str("org_id", orgIDRaw).Msg("org_id 不是合法 UUID，跳过落库")
		return
	}
	runID, err := uuid.Parse(outcome.RunID)
	if err != nil {
		runID = uuid.New()
	}

	run := &model.PartitionRun{
		OrgID:     orgID,
		Mode:      spec.Mode,
		Status:    string(outcome.Status),
		Objective: outcome.Objective,
		Students:  len(outcome.Assign),
		Groups:    len(outcome.Groups),
		Spec:      specAsMap(spec),
	}
	run.ID = runID

	members := repository.MembersFromGroups(runID, outcome.Groups)
	if err := h.runs.Save(ctx, run, members); err != nil {
		logger.Warn().Err(err).Str("run_id", outcome.RunID).Msg("求解记录落库失败")
	}
}

// specAsMap 将配置转为可入库的 JSON 映射
func specAsMap(spec partition.Spec) model.JSONMap {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil
	}
	var m model.JSONMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// cacheGroupReports 生成并缓存小组报表
func (h *PartitionHandler) cacheGroupReports(groups [][]*model.Student) *DownloadLinks {
	if h.results == nil {
		return nil
	}
	token := h.results.Put(
		report.BuildText(groups),
		report.BuildCSV(groups, time.Time{}),
	)
	return &DownloadLinks{
		Token: token,
		CSV:   "/api/v1/results/" + token + ".csv",
		Text:  "/api/v1/results/" + token + ".txt",
	}
}

// cacheClassReports 生成并缓存班级报表
func (h *PartitionHandler) cacheClassReports(groups [][]*model.Student, classNames []string, spec partition.Spec) *DownloadLinks {
	if h.results == nil {
		return nil
	}

	// 报表属性列取参与规则的属性，无规则时用名册默认列
	var attrs []string
	seen := make(map[string]bool)
	for _, rule := range spec.SpreadRules {
		if !seen[rule.Attribute] {
			attrs = append(attrs, rule.Attribute)
			seen[rule.Attribute] = true
		}
	}
	for _, rule := range spec.CapRules {
		if !seen[rule.Attribute] {
			attrs = append(attrs, rule.Attribute)
			seen[rule.Attribute] = true
		}
	}
	if len(attrs) == 0 {
		attrs = []string{roster.AttrLanguage, roster.AttrSubject, roster.AttrOrigin}
	}

	token := h.results.Put(
		report.BuildText(groups),
		report.BuildClassCSV(groups, classNames, attrs),
	)
	return &DownloadLinks{
		Token: token,
		CSV:   "/api/v1/results/" + token + ".csv",
		Text:  "/api/v1/results/" + token + ".txt",
	}
}

// validateGroupsRequest 验证小组请求
func validateGroupsRequest(req *GroupsRequest) *errors.AppError {
	ve := &errors.ValidationErrors{}

	if req.GroupSize <= 0 {
		ve.Add("group_size", "目标组大小必须为正整数")
	}
	if req.RosterCSV == "" && len(req.Students) == 0 {
		ve.Add("students", "必须提供 roster_csv 或 students")
	}
	if req.Timeout < 0 {
		ve.Add("timeout_seconds", "时间预算不能为负")
	}

	if ve.HasErrors() {
		return validationError(ve)
	}
	return nil
}

// validateClassesRequest 验证班级请求
func validateClassesRequest(req *ClassesRequest) *errors.AppError {
	ve := &errors.ValidationErrors{}

	if req.ClassCount <= 0 {
		ve.Add("class_count", "班级数必须为正整数")
	}
	if req.MaxSize <= 0 {
		ve.Add("max_size", "班级规模上限必须为正整数")
	}
	if req.MinSize > req.MaxSize {
		ve.Add("min_size", "不能大于 max_size")
	}
	if req.RosterCSV == "" && len(req.Students) == 0 {
		ve.Add("students", "必须提供 roster_csv 或 students")
	}
	if req.Timeout < 0 {
		ve.Add("timeout_seconds", "时间预算不能为负")
	}

	if ve.HasErrors() {
		return validationError(ve)
	}
	return nil
}

// validationError 汇总验证错误为 AppError
func validationError(ve *errors.ValidationErrors) *errors.AppError {
	appErr := errors.New(errors.CodeValidationFail, "请求参数验证失败")
	for _, e := range ve.Errors {
		appErr.WithField(e.Field, e.Message)
	}
	return appErr
}

// toAppError 将任意错误规整为 AppError
func toAppError(err error) *errors.AppError {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	return errors.Wrap(err, errors.CodeInternal, "内部错误")
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
		"fields":  err.Fields,
	})
}
