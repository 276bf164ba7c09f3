// Package solver 提供分班求解器
package solver

import (
	"context"
	"math/rand"
	"time"

	"github.com/fenban/fenban/pkg/logger"
	"github.com/fenban/fenban/pkg/partition/constraint"
)

// Status 求解状态
type Status string

const (
	StatusOptimal    Status = "OPTIMAL"             // 目标值达到下界 0
	StatusFeasible   Status = "FEASIBLE"            // 满足全部硬约束，目标值未必最优
	StatusInfeasible Status = "INFEASIBLE"          // 硬约束论证无解
	StatusTimeout    Status = "TIMEOUT_NO_SOLUTION" // 预算耗尽且未找到可行解
)

// Success 是否得到了可用的分配
func (s Status) Success() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Config 求解配置
type Config struct {
	MaxIterations    int           `json:"max_iterations"`    // 单次退火最大迭代次数
	TimeLimit        time.Duration `json:"time_limit"`        // 墙钟时间预算
	InitialTemp      float64       `json:"initial_temp"`      // 模拟退火初始温度
	CoolingRate      float64       `json:"cooling_rate"`      // 冷却速率
	TabuSize         int           `json:"tabu_size"`         // 禁忌表大小
	Restarts         int           `json:"restarts"`          // 并行独立重启链数
	StopOnPlateau    bool          `json:"stop_on_plateau"`   // 平台期停止
	PlateauThreshold int           `json:"plateau_threshold"` // 平台期阈值（无改进迭代次数）
	Seed             int64         `json:"seed"`              // 0 表示按时间播种
}

// DefaultConfig 默认求解配置
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:    20000,
		TimeLimit:        30 * time.Second,
		InitialTemp:      50.0,
		CoolingRate:      0.995,
		TabuSize:         200,
		Restarts:         4,
		StopOnPlateau:    true,
		PlateauThreshold: 2000,
	}
}

// Statistics 求解统计
type Statistics struct {
	Iterations       int           `json:"iterations"`
	Restarts         int           `json:"restarts"`
	InitialObjective int           `json:"initial_objective"`
	FinalObjective   int           `json:"final_objective"`
	Duration         time.Duration `json:"duration"`
}

// Result 求解结果
// 状态为 INFEASIBLE 或 TIMEOUT_NO_SOLUTION 时不含任何部分解。
type Result struct {
	Status     Status             `json:"status"`
	Assign     []int              `json:"assign,omitempty"`
	Objective  int                `json:"objective"`
	Statistics *Statistics        `json:"statistics"`
	Evaluation *constraint.Result `json:"evaluation,omitempty"`
}

// Solver 分班求解器
// 贪心构造可行解，再在时间预算内用带禁忌表的模拟退火压低软约束目标。
type Solver struct {
	manager *constraint.Manager
	config  *Config
	logger  *logger.SolverLogger
}

// New 创建求解器
func New(manager *constraint.Manager, config *Config) *Solver {
	if config == nil {
		config = DefaultConfig()
	}
	return &Solver{
		manager: manager,
		config:  config,
		logger:  logger.NewSolverLogger(),
	}
}

// Solve 执行求解
// 单次阻塞调用，受时间预算约束；失败状态不附带部分解。
func (s *Solver) Solve(ctx context.Context, sctx *constraint.Context) (*Result, error) {
	start := time.Now()
	deadline := start.Add(s.config.TimeLimit)

	result := &Result{
		Status:     StatusTimeout,
		Statistics: &Statistics{},
	}

	// 搜索前的不可行论证：计数算术能直接否定的几何不必搜索
	for _, c := range s.manager.GetByCategory(constraint.CategoryHard) {
		pf, ok := c.(constraint.Preflighter)
		if !ok {
			continue
		}
		if err := pf.Preflight(sctx); err != nil {
			s.logger.ConstraintViolation(c.Name(), err.Error())
			result.Status = StatusInfeasible
			result.Statistics.Duration = time.Since(start)
			return result, nil
		}
	}

	seed := s.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// 空批次退化：一个空组即是完整分配
	if len(sctx.Students) == 0 {
		sctx.SetAssignment([]int{})
		return s.finish(result, sctx, sctx.Assign, start)
	}

	// 并行独立重启：每条链自己构造初始解并退火，取最优
	best, iterations, restarts := s.runRestarts(ctx, sctx, seed, deadline)
	result.Statistics.Iterations = iterations
	result.Statistics.Restarts = restarts

	if best == nil {
		// 预算耗尽且没有任何可行点
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Statistics.Duration = time.Since(start)
		return result, nil
	}

	return s.finish(result, sctx, best, start)
}

// finish 用最终分配填充结果并评估
func (s *Solver) finish(result *Result, sctx *constraint.Context, assign []int, start time.Time) (*Result, error) {
	final := make([]int, len(assign))
	copy(final, assign)
	sctx.SetAssignment(final)

	result.Assign = final
	result.Evaluation = s.manager.Evaluate(sctx)
	result.Objective = result.Evaluation.Objective
	result.Statistics.FinalObjective = result.Objective
	result.Statistics.Duration = time.Since(start)

	if result.Objective == 0 {
		result.Status = StatusOptimal
	} else {
		result.Status = StatusFeasible
	}
	return result, nil
}

// rngFor 派生第 i 条链的随机源
func rngFor(seed int64, i int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(i)*7919))
}
