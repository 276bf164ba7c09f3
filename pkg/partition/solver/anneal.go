package solver

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/fenban/fenban/pkg/partition/constraint"
)

// anneal 在可行解上做带禁忌表的模拟退火
// 只在可行域内走步（保持硬惩罚为 0），目标是压低软约束加权和。
// 返回找到的最优分配与消耗的迭代数。
func (s *Solver) anneal(ctx context.Context, work *constraint.Context, rng *rand.Rand, deadline time.Time) ([]int, int) {
	best := make([]int, len(work.Assign))
	copy(best, work.Assign)
	bestObj := s.manager.Objective(work)
	currentObj := bestObj

	tabu := newTabuList(s.config.TabuSize)
	tabu.add(work.Assign)

	temp := s.config.InitialTemp
	sinceImprovement := 0
	iterations := 0

	for iterations = 0; iterations < s.config.MaxIterations; iterations++ {
		if bestObj == 0 {
			break
		}
		if s.config.StopOnPlateau && sinceImprovement >= s.config.PlateauThreshold {
			break
		}
		// 每 64 次迭代检查一次时间预算与取消
		if iterations%64 == 0 {
			if time.Now().After(deadline) || ctx.Err() != nil {
				break
			}
		}

		mv := randomMove(work, rng)
		if mv == nil {
			break
		}
		mv.apply(work)

		if s.manager.HardPenalty(work) > 0 || tabu.contains(work.Assign) {
			mv.revert(work)
			sinceImprovement++
			continue
		}

		nextObj := s.manager.Objective(work)
		delta := nextObj - currentObj
		if delta <= 0 || rng.Float64() < math.Exp(-float64(delta)/temp) {
			currentObj = nextObj
			tabu.add(work.Assign)
			if nextObj < bestObj {
				bestObj = nextObj
				copy(best, work.Assign)
				sinceImprovement = 0
				s.logger.Improvement(iterations, bestObj)
			} else {
				sinceImprovement++
			}
		} else {
			mv.revert(work)
			sinceImprovement++
		}

		temp *= s.config.CoolingRate
		if temp < 0.01 {
			temp = 0.01
		}
	}

	return best, iterations
}

// tabuList 基于分配哈希的定长禁忌表
type tabuList struct {
	hashes map[uint64]bool
	order  []uint64
	size   int
}

func newTabuList(size int) *tabuList {
	if size <= 0 {
		size = 1
	}
	return &tabuList{
		hashes: make(map[uint64]bool, size),
		order:  make([]uint64, 0, size),
		size:   size,
	}
}

// hashAssign 对分配做 FNV 哈希
func hashAssign(assign []int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, g := range assign {
		v := uint64(int64(g))
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}

func (t *tabuList) add(assign []int) {
	key := hashAssign(assign)
	if t.hashes[key] {
		return
	}
	t.hashes[key] = true
	t.order = append(t.order, key)
	if len(t.order) > t.size {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.hashes, oldest)
	}
}

func (t *tabuList) contains(assign []int) bool {
	return t.hashes[hashAssign(assign)]
}
