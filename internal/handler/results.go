// Package handler 提供HTTP请求处理器
package handler

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ResultEntry 一次求解的可下载产物
type ResultEntry struct {
	Text      string
	CSV       string
	CreatedAt time.Time
}

// ResultStore 结果下载缓存
// 求解成功后报表以随机令牌缓存在内存中，链接过期或容量超限后淘汰。
type ResultStore struct {
	entries  map[string]*ResultEntry
	order    []string // 插入顺序，容量淘汰用
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
}

// NewResultStore 创建结果缓存
func NewResultStore(capacity int, ttl time.Duration) *ResultStore {
	if capacity <= 0 {
		capacity = 100
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultStore{
		entries:  make(map[string]*ResultEntry),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Put 缓存一次结果并返回下载令牌
func (s *ResultStore) Put(text, csv string) string {
	token := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked()
	for len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}

	s.entries[token] = &ResultEntry{
		Text:      text,
		CSV:       csv,
		CreatedAt: time.Now(),
	}
	s.order = append(s.order, token)
	return token
}

// Get 按令牌取结果；过期或不存在返回 nil
func (s *ResultStore) Get(token string) *ResultEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[token]
	if !exists {
		return nil
	}
	if time.Since(entry.CreatedAt) > s.ttl {
		delete(s.entries, token)
		return nil
	}
	return entry
}

// purgeLocked 清理过期条目，调用方需持锁
func (s *ResultStore) purgeLocked() {
	cutoff := time.Now().Add(-s.ttl)
	kept := s.order[:0]
	for _, token := range s.order {
		entry := s.entries[token]
		if entry == nil || entry.CreatedAt.Before(cutoff) {
			delete(s.entries, token)
			continue
		}
		kept = append(kept, token)
	}
	s.order = kept
}

// Download 结果下载端点
// 路径形如 /api/v1/results/{token}.csv 或 /api/v1/results/{token}.txt。
func (s *ResultStore) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/results/")
	var token, format string
	switch {
	case strings.HasSuffix(name, ".csv"):
		token, format = strings.TrimSuffix(name, ".csv"), "csv"
	case strings.HasSuffix(name, ".txt"):
		token, format = strings.TrimSuffix(name, ".txt"), "txt"
	default:
		http.Error(w, `{"error":"invalid_format","message":"仅支持 .csv 与 .txt"}`, http.StatusBadRequest)
		return
	}

	entry := s.Get(token)
	if entry == nil {
		http.Error(w, `{"error":"not_found","message":"下载链接不存在或已过期"}`, http.StatusNotFound)
		return
	}

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="groups.csv"`)
		w.Write([]byte(entry.CSV))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="groups.txt"`)
	w.Write([]byte(entry.Text))
}
