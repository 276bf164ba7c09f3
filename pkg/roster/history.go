package roster

import (
	"github.com/fenban/fenban/pkg/model"
)

// PriorPairsFromGroups 从历史分组记录提取"曾经同组"的姓名配对
// 输入为若干次历史分班，每次分班是按组排列的姓名列表；
// 同一组内的每两人构成一对，跨全部历史去重。
func PriorPairsFromGroups(history [][][]string) []model.PriorPair {
	seen := make(map[model.PriorPair]bool)
	var pairs []model.PriorPair

	for _, run := range history {
		for _, group := range run {
			for i, a := range group {
				for _, b := range group[i+1:] {
					if a == "" || b == "" || a == b {
						continue
					}
					p := model.PriorPair{Name1: a, Name2: b}.Normalize()
					if seen[p] {
						continue
					}
					seen[p] = true
					pairs = append(pairs, p)
				}
			}
		}
	}
	return pairs
}

// NamesByGroup 将一次分班结果转为按组排列的姓名列表
// 用于把求解结果转成可持久化、可再次喂给 PriorPairsFromGroups 的形式。
func NamesByGroup(groups [][]*model.Student) [][]string {
	names := make([][]string, len(groups))
	for g, members := range groups {
		names[g] = make([]string, 0, len(members))
		for _, s := range members {
			names[g] = append(names[g], s.Name)
		}
	}
	return names
}
