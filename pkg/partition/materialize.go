// Package partition 提供分班核心：模型构建、求解与结果提取
package partition

import (
	"fmt"

	"github.com/fenban/fenban/pkg/errors"
	"github.com/fenban/fenban/pkg/model"
)

// Materialize 将变量赋值还原为按组编号排列的学生列表
// 输出保持输入的学生对象身份（不拷贝、不改写属性）。
// "每个学生恰好一组"由表示保证，这里仍做防御性检查：
// 赋值长度必须等于学生数，组编号必须落在 [0, K)。
func Materialize(students []*model.Student, k int, assign []int) ([][]*model.Student, error) {
	if len(assign) != len(students) {
		return nil, errors.New(errors.CodeInternal,
			fmt.Sprintf("赋值长度 %d 与学生数 %d 不一致", len(assign), len(students)))
	}

	groups := make([][]*model.Student, k)
	for g := range groups {
		groups[g] = make([]*model.Student, 0)
	}

	for _, s := range students {
		g := assign[s.ID]
		if g < 0 || g >= k {
			return nil, errors.New(errors.CodeInternal,
				fmt.Sprintf("学生 %d 的组编号 %d 越界 [0, %d)", s.ID, g, k))
		}
		groups[g] = append(groups[g], s)
	}

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	if total != len(students) {
		return nil, errors.New(errors.CodeInternal,
			fmt.Sprintf("分组总人数 %d 与学生数 %d 不一致", total, len(students)))
	}

	return groups, nil
}
