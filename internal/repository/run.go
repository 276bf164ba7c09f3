// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/roster"
)

// RunRepository 分班求解记录仓储
// 每次成功求解落两张表：partition_runs 存配置与结果概要，
// partition_members 存每名成员的组归属。历史配对从后者挖掘。
type RunRepository struct {
	db DB
}

// NewRunRepository 创建求解记录仓储
func NewRunRepository(db DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save 保存一次求解记录及其成员
// 传入事务句柄时两张表的写入具备原子性。
func (r *RunRepository) Save(ctx context.Context, run *model.PartitionRun, members []model.GroupMember) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	now := time.Now()
	run.CreatedAt = now
	run.UpdatedAt = now

	specJSON, err := json.Marshal(run.Spec)
	if err != nil {
		return fmt.Errorf("序列化spec失败: %w", err)
	}

	query := `
		INSERT INTO partition_runs (id, org_id, mode, status, objective, students, groups, spec, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.OrgID, string(run.Mode), run.Status, run.Objective,
		run.Students, run.Groups, specJSON, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存求解记录失败: %w", err)
	}

	memberQuery := `
		INSERT INTO partition_members (run_id, bin_index, name, sex, source_id)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, m := range members {
		if _, err := r.db.ExecContext(ctx, memberQuery,
			run.ID, m.BinIndex, m.Name, string(m.Sex), m.SourceID,
		); err != nil {
			return fmt.Errorf("保存成员记录失败: %w", err)
		}
	}

	return nil
}

// MembersFromGroups 将分组结果展开为成员记录
func MembersFromGroups(runID uuid.UUID, groups [][]*model.Student) []model.GroupMember {
	var members []model.GroupMember
	for g, group := range groups {
		for _, s := range group {
			members = append(members, model.GroupMember{
				RunID:    runID,
				BinIndex: g,
				Name:     s.Name,
				Sex:      s.Sex,
				SourceID: s.SourceID,
			})
		}
	}
	return members
}

// GetByID 根据ID获取求解记录
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PartitionRun, error) {
	query := `
		SELECT id, org_id, mode, status, objective, students, groups, spec, created_at, updated_at
		FROM partition_runs
		WHERE id = $1 AND deleted_at IS NULL
	`

	run := &model.PartitionRun{}
	var mode string
	var specJSON []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.OrgID, &mode, &run.Status, &run.Objective,
		&run.Students, &run.Groups, &specJSON, &run.CreatedAt, &run.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询求解记录失败: %w", err)
	}

	run.Mode = model.Mode(mode)
	if len(specJSON) > 0 {
		if err := json.Unmarshal(specJSON, &run.Spec); err != nil {
			return nil, fmt.Errorf("解析spec失败: %w", err)
		}
	}

	return run, nil
}

// Members 获取一次求解的全部成员，按组编号与姓名排序
func (r *RunRepository) Members(ctx context.Context, runID uuid.UUID) ([]model.GroupMember, error) {
	query := `
		SELECT run_id, bin_index, name, sex, source_id
		FROM partition_members
		WHERE run_id = $1
		ORDER BY bin_index, name
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("查询成员失败: %w", err)
	}
	defer rows.Close()

	var members []model.GroupMember
	for rows.Next() {
		var m model.GroupMember
		var sex string
		if err := rows.Scan(&m.RunID, &m.BinIndex, &m.Name, &sex, &m.SourceID); err != nil {
			return nil, fmt.Errorf("扫描行失败: %w", err)
		}
		m.Sex = model.Sex(sex)
		members = append(members, m)
	}

	return members, rows.Err()
}

// List 查询求解记录列表
func (r *RunRepository) List(ctx context.Context, filter ListFilter) ([]*model.PartitionRun, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.OrgID != nil {
		conditions = append(conditions, fmt.Sprintf("org_id = $%d", argIndex))
		args = append(args, *filter.OrgID)
		argIndex++
	}
	if filter.Mode != "" {
		conditions = append(conditions, fmt.Sprintf("mode = $%d", argIndex))
		args = append(args, filter.Mode)
		argIndex++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM partition_runs WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "desc"
	}

	query := fmt.Sprintf(`
		SELECT id, org_id, mode, status, objective, students, groups, spec, created_at, updated_at
		FROM partition_runs
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var runs []*model.PartitionRun
	for rows.Next() {
		run := &model.PartitionRun{}
		var mode string
		var specJSON []byte

		if err := rows.Scan(&run.ID, &run.OrgID, &mode, &run.Status, &run.Objective,
			&run.Students, &run.Groups, &specJSON, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("扫描行失败: %w", err)
		}

		run.Mode = model.Mode(mode)
		if len(specJSON) > 0 {
			json.Unmarshal(specJSON, &run.Spec)
		}

		runs = append(runs, run)
	}

	return runs, total, nil
}

// PriorPairs 从最近的小组求解记录中挖掘历史同组配对
// 取该组织最近 recentRuns 次小组模式的结果，组内两两成对并去重。
func (r *RunRepository) PriorPairs(ctx context.Context, orgID uuid.UUID, recentRuns int) ([]model.PriorPair, error) {
	if recentRuns <= 0 {
		recentRuns = 5
	}

	query := `
		SELECT m.run_id, m.bin_index, m.name
		FROM partition_members m
		WHERE m.run_id IN (
			SELECT id FROM partition_runs
			WHERE org_id = $1 AND mode = 'groups' AND deleted_at IS NULL
			ORDER BY created_at DESC
			LIMIT $2
		)
		ORDER BY m.run_id, m.bin_index
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, recentRuns)
	if err != nil {
		return nil, fmt.Errorf("查询历史成员失败: %w", err)
	}
	defer rows.Close()

	// 按求解与组聚合姓名
	type binKey struct {
		run uuid.UUID
		bin int
	}
	bins := make(map[binKey][]string)
	var order []binKey

	for rows.Next() {
		var runID uuid.UUID
		var bin int
		var name string
		if err := rows.Scan(&runID, &bin, &name); err != nil {
			return nil, fmt.Errorf("扫描行失败: %w", err)
		}
		key := binKey{run: runID, bin: bin}
		if _, exists := bins[key]; !exists {
			order = append(order, key)
		}
		bins[key] = append(bins[key], name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	history := make([][][]string, 0, 1)
	var groups [][]string
	var current uuid.UUID
	for _, key := range order {
		if key.run != current {
			if groups != nil {
				history = append(history, groups)
			}
			groups = nil
			current = key.run
		}
		groups = append(groups, bins[key])
	}
	if groups != nil {
		history = append(history, groups)
	}

	return roster.PriorPairsFromGroups(history), nil
}
