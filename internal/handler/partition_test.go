package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fenban/fenban/internal/config"
	"github.com/fenban/fenban/internal/metrics"
	"github.com/fenban/fenban/pkg/partition"
)

func newTestHandler() *PartitionHandler {
	return NewPartitionHandler(NewResultStore(10, time.Minute), nil, config.SolverConfig{})
}

func postJSON(t *testing.T, fn http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func mixedStudents(n int) []StudentInput {
	students := make([]StudentInput, n)
	for i := range students {
		sex := "F"
		if i%2 == 1 {
			sex = "M"
		}
		students[i] = StudentInput{Name: "学生" + string(rune('A'+i)), Sex: sex}
	}
	return students
}

func TestGroupsHandler_MixedGroups(t *testing.T) {
	h := newTestHandler()

	rec := postJSON(t, h.Groups, GroupsRequest{
		Students:  mixedStudents(6),
		GroupSize: 2,
		Timeout:   5,
		Seed:      42,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp PartitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if !resp.Success {
		t.Error("success should be true")
	}
	if len(resp.Groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(resp.Groups))
	}
	if len(resp.Assign) != 6 {
		t.Errorf("expected assign length 6, got %d", len(resp.Assign))
	}
	if !resp.MixedRuleActive {
		t.Error("mixed rule should be active for 3F/3M")
	}

	// 混合规则生效时每组男女兼有
	for g, group := range resp.Groups {
		var f, m int
		for _, member := range group {
			switch member.Sex {
			case "F":
				f++
			case "M":
				m++
			}
		}
		if f == 0 || m == 0 {
			t.Errorf("group %d should contain both sexes, got F=%d M=%d", g, f, m)
		}
	}

	if resp.Download == nil || resp.Download.Token == "" {
		t.Error("response should carry download links")
	}
}

func TestGroupsHandler_SameSexGroups(t *testing.T) {
	h := newTestHandler()

	students := []StudentInput{
		{Name: "Anna", Sex: "F"},
		{Name: "Ben", Sex: "M"},
		{Name: "Cara", Sex: "F"},
		{Name: "Dan", Sex: "M"},
	}
	rec := postJSON(t, h.Groups, GroupsRequest{
		Students:  students,
		GroupSize: 2,
		SameSex:   true,
		Timeout:   5,
		Seed:      1,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp PartitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	for g, group := range resp.Groups {
		for _, member := range group {
			if member.Sex != group[0].Sex {
				t.Errorf("group %d should be single-sex", g)
			}
		}
	}
}

func TestGroupsHandler_RosterCSV(t *testing.T) {
	h := newTestHandler()

	csv := "sex,firstname,lastname\n" +
		"F,Anna,Andersen\n" +
		"M,Ben,Berg\n" +
		"F,Cara,Carlsen\n" +
		"M,Dan,Dahl\n"
	rec := postJSON(t, h.Groups, GroupsRequest{
		RosterCSV: csv,
		GroupSize: 2,
		Timeout:   5,
		Seed:      3,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp PartitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Assign) != 4 {
		t.Errorf("header row should be skipped, expected 4 students, got %d", len(resp.Assign))
	}
}

func TestGroupsHandler_ValidationFail(t *testing.T) {
	h := newTestHandler()

	rec := postJSON(t, h.Groups, GroupsRequest{GroupSize: 0})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if body["code"] != "VALIDATION_FAILED" {
		t.Errorf("code = %v, expected VALIDATION_FAILED", body["code"])
	}
}

func TestGroupsHandler_MethodNotAllowed(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Groups(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", rec.Code)
	}
}

func TestClassesHandler_Basic(t *testing.T) {
	h := newTestHandler()

	rec := postJSON(t, h.Classes, ClassesRequest{
		Students:   mixedStudents(12),
		ClassCount: 2,
		MinSize:    5,
		MaxSize:    7,
		Timeout:    5,
		Seed:       7,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp PartitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if len(resp.Groups) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(resp.Groups))
	}
	total := 0
	for g, group := range resp.Groups {
		if len(group) < 5 || len(group) > 7 {
			t.Errorf("class %d size %d outside [5,7]", g, len(group))
		}
		total += len(group)
	}
	if total != 12 {
		t.Errorf("expected 12 students assigned, got %d", total)
	}
}

func TestGroupsHandler_DeploymentSolverConfig(t *testing.T) {
	// 部署级求解器配置必须传到求解器：限定 1 条重启链后统计里只有 1 次重启
	h := NewPartitionHandler(NewResultStore(10, time.Minute), nil, config.SolverConfig{
		TimeLimit:     5 * time.Second,
		MaxIterations: 2000,
		Restarts:      1,
		Plateau:       500,
	})

	rec := postJSON(t, h.Groups, GroupsRequest{
		Students:  mixedStudents(6),
		GroupSize: 2,
		Seed:      11,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp PartitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Statistics == nil {
		t.Fatal("response should carry solver statistics")
	}
	if resp.Statistics.Restarts != 1 {
		t.Errorf("restarts = %d, expected 1", resp.Statistics.Restarts)
	}
}

func TestGroupsHandler_ConstraintMetrics(t *testing.T) {
	h := newTestHandler()

	rec := postJSON(t, h.Groups, GroupsRequest{
		Students:  mixedStudents(4),
		GroupSize: 2,
		Timeout:   5,
		Seed:      5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// 求解后约束评估计数必须出现在指标输出里
	mreq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(mrec, mreq)

	body := mrec.Body.String()
	if !strings.Contains(body, `fenban_constraint_evaluations_total{constraint_type="capacity",result="satisfied"}`) {
		t.Error("expected capacity constraint evaluation in metrics output")
	}
}

func TestClassesHandler_DefaultAttributeRules(t *testing.T) {
	h := newTestHandler()

	// 6 名学生同一来源学校，2 个班各 3 人：
	// 默认来源上限（每班 2 人、权重 5）无论怎么分都超出 1+1
	sameOrigin := make([]StudentInput, 6)
	for i := range sameOrigin {
		sex := "F"
		if i%2 == 1 {
			sex = "M"
		}
		sameOrigin[i] = StudentInput{
			Name:       "学生" + string(rune('A'+i)),
			Sex:        sex,
			Attributes: map[string]string{"origin": "北校"},
		}
	}

	base := ClassesRequest{
		Students:   sameOrigin,
		ClassCount: 2,
		MinSize:    3,
		MaxSize:    3,
		Timeout:    5,
		Seed:       9,
	}

	t.Run("缺省启用默认规则", func(t *testing.T) {
		rec := postJSON(t, h.Classes, base)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp PartitionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Objective != 10 {
			t.Errorf("objective = %d, expected 10 from default origin cap", resp.Objective)
		}
	})

	t.Run("显式空数组关闭规则", func(t *testing.T) {
		req := base
		req.SpreadRules = []partition.SpreadRule{}
		req.CapRules = []partition.CapRule{}

		rec := postJSON(t, h.Classes, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp PartitionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Objective != 0 {
			t.Errorf("objective = %d, expected 0 with rules disabled", resp.Objective)
		}
	})
}

func TestClassesHandler_Infeasible(t *testing.T) {
	h := newTestHandler()

	// 2 个班上限各 3 人装不下 8 名学生
	rec := postJSON(t, h.Classes, ClassesRequest{
		Students:   mixedStudents(8),
		ClassCount: 2,
		MinSize:    1,
		MaxSize:    3,
		Timeout:    2,
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, expected 422, body = %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if body["code"] != "INFEASIBLE" {
		t.Errorf("code = %v, expected INFEASIBLE", body["code"])
	}
}

func TestValidateHandler(t *testing.T) {
	h := newTestHandler()

	students := []StudentInput{
		{Name: "Anna", Sex: "F"},
		{Name: "Ben", Sex: "M"},
		{Name: "Cara", Sex: "F"},
		{Name: "Dan", Sex: "M"},
	}

	t.Run("合法方案", func(t *testing.T) {
		rec := postJSON(t, h.Validate, ValidateRequest{
			Mode:      "groups",
			Students:  students,
			Assign:    []int{0, 0, 1, 1},
			GroupSize: 2,
		})

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp ValidateResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Report == nil || !resp.Report.Valid {
			t.Errorf("mixed pairs should validate, report = %+v", resp.Report)
		}
	})

	t.Run("分配长度不符", func(t *testing.T) {
		rec := postJSON(t, h.Validate, ValidateRequest{
			Mode:      "groups",
			Students:  students,
			Assign:    []int{0, 0},
			GroupSize: 2,
		})

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp ValidateResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Report.Valid {
			t.Error("short assignment should not be valid")
		}
		if len(resp.Report.Coverage) == 0 {
			t.Error("report should list coverage issues")
		}
	})

	t.Run("非法模式", func(t *testing.T) {
		rec := postJSON(t, h.Validate, ValidateRequest{
			Mode:     "teams",
			Students: students,
			Assign:   []int{0, 0, 1, 1},
		})

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, expected 400", rec.Code)
		}
	})
}
