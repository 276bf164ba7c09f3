package solver

import (
	"math/rand"

	"github.com/fenban/fenban/pkg/model"
	"github.com/fenban/fenban/pkg/partition/constraint"
	"github.com/fenban/fenban/pkg/partition/constraint/builtin"
)

// construct 贪心构造一个初始分配
// 按注册的硬约束选择构造策略，构造后跑一轮修复；
// 返回 nil 表示此次构造未能满足全部硬约束。
func (s *Solver) construct(sctx *constraint.Context, rng *rand.Rand) []int {
	var (
		sameSex bool
		mixed   bool
		floor   *builtin.SexFloorConstraint
	)
	for _, c := range s.manager.GetByCategory(constraint.CategoryHard) {
		switch hc := c.(type) {
		case *builtin.SameSexGroupConstraint:
			sameSex = true
		case *builtin.MixedSexGroupConstraint:
			mixed = true
		case *builtin.SexFloorConstraint:
			floor = hc
		}
	}

	work := sctx.Clone()
	for i := range work.Assign {
		work.Assign[i] = constraint.Unassigned
	}
	work.SetAssignment(work.Assign)

	females, males := splitBySex(work.Students, rng)

	switch {
	case sameSex:
		s.constructSameSex(work, females, males)
	case mixed:
		s.constructSeeded(work, females, males, 1, 1)
	case floor != nil:
		s.constructSeeded(work, females, males, floor.MinFemale(), floor.MinMale())
	default:
		s.fillBalanced(work, append(females, males...))
	}

	if !s.repair(work, rng) {
		return nil
	}

	assign := make([]int, len(work.Assign))
	copy(assign, work.Assign)
	return assign
}

// splitBySex 按性别分流并各自洗牌
func splitBySex(students []*model.Student, rng *rand.Rand) (females, males []*model.Student) {
	for _, st := range students {
		if st.Sex == model.SexFemale {
			females = append(females, st)
		} else {
			males = append(males, st)
		}
	}
	rng.Shuffle(len(females), func(i, j int) { females[i], females[j] = females[j], females[i] })
	rng.Shuffle(len(males), func(i, j int) { males[i], males[j] = males[j], males[i] })
	return females, males
}

// constructSameSex 同性模式构造
// 女生占用前 ceil(nF/max) 个组，男生占用其余组，各自均匀摊开。
func (s *Solver) constructSameSex(work *constraint.Context, females, males []*model.Student) {
	femaleBins := 0
	if len(females) > 0 {
		femaleBins = (len(females) + work.MaxSize - 1) / work.MaxSize
	}
	fillRange(work, females, 0, femaleBins)
	fillRange(work, males, femaleBins, work.K)
}

// constructSeeded 先按性别播种每组的保底名额，再平衡补齐
func (s *Solver) constructSeeded(work *constraint.Context, females, males []*model.Student, seedF, seedM int) {
	var rest []*model.Student
	fi, mi := 0, 0
	for g := 0; g < work.K; g++ {
		for k := 0; k < seedF && fi < len(females); k++ {
			work.Move(females[fi].ID, g)
			fi++
		}
		for k := 0; k < seedM && mi < len(males); k++ {
			work.Move(males[mi].ID, g)
			mi++
		}
	}
	rest = append(rest, females[fi:]...)
	rest = append(rest, males[mi:]...)
	s.fillBalanced(work, rest)
}

// fillBalanced 最小组优先的轮转填充
// 满员的组跳过；全部满员时退回最小组（由修复阶段兜底）。
func (s *Solver) fillBalanced(work *constraint.Context, students []*model.Student) {
	for _, st := range students {
		best := -1
		for g := 0; g < work.K; g++ {
			if work.BinSize(g) >= work.MaxSize {
				continue
			}
			if best == -1 || work.BinSize(g) < work.BinSize(best) {
				best = g
			}
		}
		if best == -1 {
			best = smallestBin(work)
		}
		work.Move(st.ID, best)
	}
}

// fillRange 在 [from, to) 范围内做最小组优先填充
func fillRange(work *constraint.Context, students []*model.Student, from, to int) {
	for _, st := range students {
		best := from
		for g := from; g < to; g++ {
			if work.BinSize(g) < work.BinSize(best) {
				best = g
			}
		}
		work.Move(st.ID, best)
	}
}

// smallestBin 返回当前人数最少的组
func smallestBin(work *constraint.Context) int {
	best := 0
	for g := 1; g < work.K; g++ {
		if work.BinSize(g) < work.BinSize(best) {
			best = g
		}
	}
	return best
}

// repair 硬约束修复：随机交换与迁移的爬山过程
// 只接受降低硬惩罚的走步，成功把硬惩罚压到 0 返回 true。
func (s *Solver) repair(work *constraint.Context, rng *rand.Rand) bool {
	penalty := s.manager.HardPenalty(work)
	if penalty == 0 {
		return true
	}

	n := len(work.Students)
	maxAttempts := 200 * n
	for attempt := 0; attempt < maxAttempts && penalty > 0; attempt++ {
		if rng.Intn(2) == 0 && n >= 2 {
			// 交换两名学生
			id1 := rng.Intn(n)
			id2 := rng.Intn(n)
			if id1 == id2 || work.Assign[id1] == work.Assign[id2] {
				continue
			}
			work.Swap(id1, id2)
			if next := s.manager.HardPenalty(work); next < penalty {
				penalty = next
			} else {
				work.Swap(id1, id2)
			}
		} else {
			// 迁移一名学生
			id := rng.Intn(n)
			from := work.Assign[id]
			to := rng.Intn(work.K)
			if to == from {
				continue
			}
			work.Move(id, to)
			if next := s.manager.HardPenalty(work); next < penalty {
				penalty = next
			} else {
				work.Move(id, from)
			}
		}
	}

	return penalty == 0
}
