// Package model 定义分班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Mode 分班模式
type Mode string

const (
	ModeGroups  Mode = "groups"  // 学习小组：目标组大小，组数按人数推导
	ModeClasses Mode = "classes" // 固定班级：班级数固定，班级规模有上下界
)

// Valid 检查模式是否合法
func (m Mode) Valid() bool {
	return m == ModeGroups || m == ModeClasses
}

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Organization 组织/学校
type Organization struct {
	BaseModel
	Name     string  `json:"name" db:"name"`
	Code     string  `json:"code" db:"code"`
	Settings JSONMap `json:"settings" db:"settings"`
}

// JSONMap 用于存储 JSONB 数据
type JSONMap map[string]interface{}
