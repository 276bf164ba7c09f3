// Package constraints 对外暴露分班约束目录
package constraints

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, string, bool, array
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Type        string            `json:"type"`     // hard 硬约束, soft 软约束
	Category    string            `json:"category"` // 分类
	Description string            `json:"description"`
	Modes       []string          `json:"modes"` // 适用模式
	Params      []ConstraintParam `json:"params"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
}

// GetLibrary 获取完整的约束库
func GetLibrary() []ConstraintDefinition {
	return []ConstraintDefinition{
		// =====================================================
		// 硬约束
		// =====================================================
		{
			Name:        "capacity",
			DisplayName: "组规模上下界",
			Type:        "hard",
			Category:    "组几何",
			Description: "每组人数必须落在 [min_size, max_size] 区间内。小组模式下上界为目标组大小，班级模式下上下界显式给定。",
			Modes:       []string{"groups", "classes"},
			Params: []ConstraintParam{
				{Name: "min_size", Type: "int", Description: "单组最少人数", Default: "0"},
				{Name: "max_size", Type: "int", Description: "单组最多人数", Default: "group_size"},
			},
		},
		{
			Name:        "same_sex_group",
			DisplayName: "同性别分组",
			Type:        "hard",
			Category:    "性别规则",
			Description: "开启后每组成员必须同性别。女生与男生分别占用不同的组。",
			Modes:       []string{"groups"},
			Params: []ConstraintParam{
				{Name: "enabled", Type: "bool", Description: "是否启用", Default: "false"},
			},
		},
		{
			Name:        "mixed_sex_group",
			DisplayName: "男女兼有",
			Type:        "hard",
			Category:    "性别规则",
			Description: "混合模式下每组至少一名女生和一名男生。当某一性别人数不足以覆盖所有组时，该性别的下限自动失效。",
			Modes:       []string{"groups"},
			Params:      []ConstraintParam{},
		},
		{
			Name:        "sex_floor",
			DisplayName: "班级性别下限",
			Type:        "hard",
			Category:    "性别规则",
			Description: "每个班级的女生数和男生数分别不低于给定下限。",
			Modes:       []string{"classes"},
			Params: []ConstraintParam{
				{Name: "min_female", Type: "int", Description: "每班最少女生数", Default: "0"},
				{Name: "min_male", Type: "int", Description: "每班最少男生数", Default: "0"},
			},
		},

		// =====================================================
		// 软约束
		// =====================================================
		{
			Name:        "size_balance",
			DisplayName: "规模均衡",
			Type:        "soft",
			Category:    "均衡",
			Description: "各组人数尽量贴近目标区间，按偏离量线性计罚。",
			Modes:       []string{"groups", "classes"},
			Params: []ConstraintParam{
				{Name: "weight", Type: "int", Description: "优化权重", Default: "1", Min: "0"},
			},
		},
		{
			Name:        "sex_balance",
			DisplayName: "性别均衡",
			Type:        "soft",
			Category:    "均衡",
			Description: "混合小组内男女人数尽量接近，按每组 |女生数-男生数| 计罚。",
			Modes:       []string{"groups"},
			Params: []ConstraintParam{
				{Name: "weight", Type: "int", Description: "优化权重", Default: "2", Min: "0"},
			},
		},
		{
			Name:        "attribute_spread",
			DisplayName: "属性聚集",
			Type:        "soft",
			Category:    "属性规则",
			Description: "同一属性取值（如同一外语选课）的学生尽量集中在少数班级，按多占用的班级数计罚。",
			Modes:       []string{"classes"},
			Params: []ConstraintParam{
				{Name: "attribute", Type: "string", Description: "属性名", Default: "language"},
				{Name: "weight", Type: "int", Description: "优化权重", Default: "5", Min: "0"},
			},
		},
		{
			Name:        "attribute_cap",
			DisplayName: "属性上限",
			Type:        "soft",
			Category:    "属性规则",
			Description: "单个班级内同一属性取值的学生不宜过多，按超出上限的人数计罚。",
			Modes:       []string{"classes"},
			Params: []ConstraintParam{
				{Name: "attribute", Type: "string", Description: "属性名", Default: "origin"},
				{Name: "max_per_bin", Type: "int", Description: "单班上限", Default: "2", Min: "0"},
				{Name: "weight", Type: "int", Description: "优化权重", Default: "5", Min: "0"},
			},
		},
		{
			Name:        "prior_pair",
			DisplayName: "历史同组回避",
			Type:        "soft",
			Category:    "轮换",
			Description: "曾经同组的两名学生尽量不再分到同一组，促进成员轮换。",
			Modes:       []string{"groups"},
			Params: []ConstraintParam{
				{Name: "weight", Type: "int", Description: "优化权重", Default: "10", Min: "0"},
			},
		},
	}
}
