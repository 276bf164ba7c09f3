// FenBan 分班引擎服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/fenban/fenban/internal/config"
	"github.com/fenban/fenban/internal/constraints"
	"github.com/fenban/fenban/internal/database"
	"github.com/fenban/fenban/internal/handler"
	"github.com/fenban/fenban/internal/metrics"
	"github.com/fenban/fenban/internal/middleware"
	"github.com/fenban/fenban/internal/repository"
	"github.com/fenban/fenban/internal/security"
	"github.com/fenban/fenban/internal/tenant"
	"github.com/fenban/fenban/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
	})

	// 打印版本信息
	fmt.Printf("FenBan 分班引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	port := fmt.Sprintf("%d", cfg.App.Port)

	// 数据库可选：未启用或连接失败时持久化端点不注册，纯内存运行
	var runRepo *repository.RunRepository
	var orgRepo *repository.OrganizationRepository
	if cfg.Database.Enabled {
		db, dbErr := database.New(&cfg.Database)
		if dbErr != nil {
			logger.Error().Err(dbErr).Msg("数据库连接失败，持久化功能停用")
		} else {
			defer db.Close()
			runRepo = repository.NewRunRepository(db)
			orgRepo = repository.NewOrganizationRepository(db)
		}
	}

	// 创建处理器
	resultStore := handler.NewResultStore(cfg.Results.Capacity, cfg.Results.TTL)
	partitionHandler := handler.NewPartitionHandler(resultStore, runRepo, cfg.Solver)

	// 创建 HTTP 服务器
	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"fenban"}`))
	})

	// 版本信息端点
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	// API 根路由
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "FenBan 分班引擎 API v1",
			"endpoints": {
				"partition": {
					"groups": "POST /api/v1/partition/groups",
					"classes": "POST /api/v1/partition/classes",
					"validate": "POST /api/v1/partition/validate"
				},
				"swaps": {
					"recommend": "POST /api/v1/swaps/recommend"
				},
				"constraints": {
					"library": "GET /api/v1/constraints/library"
				},
				"stats": {
					"composition": "POST /api/v1/stats/composition",
					"compare": "POST /api/v1/stats/compare"
				},
				"results": {
					"download": "GET /api/v1/results/{token}.csv|.txt"
				},
				"runs": {
					"list": "GET /api/v1/runs",
					"detail": "GET /api/v1/runs/{id}"
				},
				"orgs": {
					"create": "POST /api/v1/orgs",
					"list": "GET /api/v1/orgs",
					"detail": "GET /api/v1/orgs/{id}"
				}
			}
		}`))
	})

	// 学习小组分班 API
	mux.Handle("/api/v1/partition/groups", middleware.RequireMode("groups")(http.HandlerFunc(partitionHandler.Groups)))

	// 固定班级分班 API
	mux.Handle("/api/v1/partition/classes", middleware.RequireMode("classes")(http.HandlerFunc(partitionHandler.Classes)))

	// 外部方案验证 API
	mux.HandleFunc("/api/v1/partition/validate", partitionHandler.Validate)

	// 调组推荐 API
	mux.HandleFunc("/api/v1/swaps/recommend", handler.SwapRecommendHandler)

	// 约束库 API - 返回后端支持的所有约束及参数定义
	mux.HandleFunc("/api/v1/constraints/library", handleConstraintLibrary)

	// ========================================
	// 统计分析 API
	// ========================================

	// 组成分析 API
	mux.HandleFunc("/api/v1/stats/composition", handler.GetCompositionHandler)

	// 前后对比 API
	mux.HandleFunc("/api/v1/stats/compare", handler.GetCompareHandler)

	// ========================================
	// 结果下载 API
	// ========================================

	mux.HandleFunc("/api/v1/results/", resultStore.Download)

	// ========================================
	// 持久化 API（需数据库）
	// ========================================

	if runRepo != nil {
		runsHandler := handler.NewRunsHandler(runRepo)
		mux.HandleFunc("/api/v1/runs", runsHandler.List)
		mux.HandleFunc("/api/v1/runs/", runsHandler.Get)

		orgsHandler := handler.NewOrgsHandler(orgRepo)
		mux.HandleFunc("/api/v1/orgs", orgsHandler.Collection)
		mux.HandleFunc("/api/v1/orgs/", orgsHandler.Get)
	}

	// ========================================
	// 监控端点
	// ========================================

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 中间件
	// ========================================

	// 多租户认证可选：启用后除免认证路径外所有请求必须携带API密钥
	var root http.Handler = middleware.RecoveryMiddleware(middleware.SecurityHeadersMiddleware(mux))
	if cfg.API.AuthEnabled {
		tenants := tenant.NewTenantManager()
		defaultTenant := tenant.CreateDefaultTenant()
		tenants.Register(defaultTenant)

		keys := security.NewAPIKeyManager()
		bootstrap, keyErr := keys.GenerateKey(defaultTenant.Code, "bootstrap", []string{security.ScopeAll}, nil)
		if keyErr != nil {
			logger.Fatal().Err(keyErr).Msg("生成引导密钥失败")
		}
		logger.Info().Str("api_key", bootstrap.Key).Msg("默认租户引导密钥")

		root = middleware.AuthMiddleware(&middleware.AuthConfig{
			APIKeyManager: keys,
			TenantManager: tenants,
			RateLimiter:   security.NewRateLimiter(defaultTenant.Settings.APIRateLimit, time.Minute),
			SkipPaths:     []string{"/health", "/version", "/metrics"},
			PathScopes: map[string]string{
				"/api/v1/partition/": security.ScopePartition,
				"/api/v1/swaps/":     security.ScopeSwaps,
				"/api/v1/stats/":     security.ScopeStats,
				"/api/v1/results/":   security.ScopeResults,
			},
			EnableRateLimit: true,
		})(root)
	}

	// 创建带中间件的处理器
	// 中间件执行顺序：requestID -> rateLimit -> cors -> logging -> auth -> handler
	chain := requestIDMiddleware(rateLimitMiddleware(cfg.API.RateLimit)(corsMiddleware(loggingMiddleware(root))))

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      chain,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Str("port", port).
			Str("version", Version).
			Str("url", fmt.Sprintf("http://localhost:%s", port)).
			Str("api_docs", fmt.Sprintf("http://localhost:%s/api/v1/", port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 尝试从请求头获取 Request ID，没有则生成新的
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// 设置响应头
		w.Header().Set("X-Request-ID", requestID)

		// 将 Request ID 存储到 context 中
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestIDKey 请求ID上下文键
type requestIDKey struct{}

// loggingMiddleware 日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 获取 Request ID
		requestID, _ := r.Context().Value(requestIDKey{}).(string)

		// 包装ResponseWriter以捕获状态码
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("请求处理")

		// 记录Prometheus指标
		metrics.RecordRequestMetrics(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter 简单的令牌桶限流器
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒添加的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2, // 允许突发流量
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// rateLimitMiddleware 限流中间件
func rateLimitMiddleware(requestsPerSecond int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(float64(requestsPerSecond))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":   true,
					"code":    "RATE_LIMITED",
					"message": "请求过于频繁，请稍后重试",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware CORS中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleConstraintLibrary 处理约束库请求 - 返回后端支持的所有约束定义
func handleConstraintLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	response := constraints.LibraryResponse{Library: constraints.GetLibrary()}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
