package solver

import (
	"context"
	"sync"
	"time"

	"github.com/fenban/fenban/pkg/partition/constraint"
)

// runRestarts 并行独立重启
// 每条链持有自己的上下文副本与随机源：构造、修复、退火互不干扰，
// 汇总时取软约束目标最低的可行分配。
func (s *Solver) runRestarts(ctx context.Context, sctx *constraint.Context, seed int64, deadline time.Time) (best []int, iterations, restarts int) {
	chains := s.config.Restarts
	if chains < 1 {
		chains = 1
	}

	var (
		mu        sync.Mutex
		bestObj   int
		bestChain int
		wg        sync.WaitGroup
	)

	for i := 0; i < chains; i++ {
		wg.Add(1)
		go func(chain int) {
			defer wg.Done()

			rng := rngFor(seed, chain)
			work := sctx.Clone()

			// 构造可行初始解；失败则换随机序重试，直到预算耗尽
			var assign []int
			for assign == nil {
				if time.Now().After(deadline) || ctx.Err() != nil {
					return
				}
				assign = s.construct(work, rng)
			}
			work.SetAssignment(assign)

			improved, iters := s.anneal(ctx, work, rng, deadline)
			work.SetAssignment(improved)
			obj := s.manager.Objective(work)

			mu.Lock()
			defer mu.Unlock()
			iterations += iters
			restarts++
			// 目标相同时按链号取小：汇总结果不受各链完成顺序影响，
			// 固定 Seed 下多次求解得到同一份分配
			if best == nil || obj < bestObj || (obj == bestObj && chain < bestChain) {
				best = improved
				bestObj = obj
				bestChain = chain
			}
		}(i)
	}

	wg.Wait()
	return best, iterations, restarts
}
