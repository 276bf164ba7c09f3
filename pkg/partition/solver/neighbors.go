package solver

import (
	"math/rand"

	"github.com/fenban/fenban/pkg/partition/constraint"
)

// move 邻域走步：可应用、可撤销
type move interface {
	apply(work *constraint.Context)
	revert(work *constraint.Context)
}

// swapMove 交换两名学生所在的组
type swapMove struct {
	id1, id2 int
}

func (m *swapMove) apply(work *constraint.Context)  { work.Swap(m.id1, m.id2) }
func (m *swapMove) revert(work *constraint.Context) { work.Swap(m.id1, m.id2) }

// relocateMove 将一名学生迁移到另一组
type relocateMove struct {
	id   int
	from int
	to   int
}

func (m *relocateMove) apply(work *constraint.Context)  { work.Move(m.id, m.to) }
func (m *relocateMove) revert(work *constraint.Context) { work.Move(m.id, m.from) }

// randomMove 随机生成一个走步
// 交换与迁移各半；迁移只指向未满员的组。
// 无可行走步时返回 nil（例如只有一个组）。
func randomMove(work *constraint.Context, rng *rand.Rand) move {
	n := len(work.Students)
	if n == 0 || work.K < 2 {
		return nil
	}

	for attempt := 0; attempt < 16; attempt++ {
		if n >= 2 && rng.Intn(2) == 0 {
			id1 := rng.Intn(n)
			id2 := rng.Intn(n)
			if id1 == id2 || work.Assign[id1] == work.Assign[id2] {
				continue
			}
			return &swapMove{id1: id1, id2: id2}
		}

		id := rng.Intn(n)
		from := work.Assign[id]
		to := rng.Intn(work.K)
		if to == from || work.BinSize(to) >= work.MaxSize {
			continue
		}
		return &relocateMove{id: id, from: from, to: to}
	}
	return nil
}
