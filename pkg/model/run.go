package model

import "github.com/google/uuid"

// 求解记录状态
const (
	RunStatusOptimal  = "OPTIMAL"
	RunStatusFeasible = "FEASIBLE"
)

// PartitionRun 一次分班求解的持久化记录
type PartitionRun struct {
	BaseModel
	OrgID     uuid.UUID `json:"org_id" db:"org_id"`
	Mode      Mode      `json:"mode" db:"mode"`
	Status    string    `json:"status" db:"status"`
	Objective int       `json:"objective" db:"objective"`
	Students  int       `json:"students" db:"students"`
	Groups    int       `json:"groups" db:"groups"`
	Spec      JSONMap   `json:"spec" db:"spec"`
}

// GroupMember 求解记录中的一名成员
type GroupMember struct {
	RunID    uuid.UUID `json:"run_id" db:"run_id"`
	BinIndex int       `json:"bin_index" db:"bin_index"`
	Name     string    `json:"name" db:"name"`
	Sex      Sex       `json:"sex" db:"sex"`
	SourceID string    `json:"source_id,omitempty" db:"source_id"`
}
