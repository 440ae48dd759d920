package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"moneta/internal/backend"
	"moneta/internal/cache"
	"moneta/internal/export"
	"moneta/internal/middleware/trace"
	"moneta/internal/report"
)

// ChangePublisher emits transaction change events for downstream refresh
// workers. A nil publisher disables event emission.
type ChangePublisher interface {
	PublishTransactionChange(ctx context.Context, id int64, op string) error
}

// Options carries the tunables of a reporting server.
type Options struct {
	TrendMonths    int
	CacheSize      int
	CacheTTL       time.Duration
	ExportRowLimit int
}

type Server struct {
	http.Server
	backend      backend.Backend
	orchestrator *report.Orchestrator
	exporter     *export.Exporter
	publisher    ChangePublisher

	// One snapshot per canonical filter key. All entries are purged on
	// any mutation because every snapshot derives from transaction data.
	snapshots *cache.LRUCache[*report.Snapshot]

	rateLimiter  *rateLimiter
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer wires routes, caches, and middleware, returning a
// ready-to-run server.
func NewServer(addr string, b backend.Backend, publisher ChangePublisher, opts Options) *Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 2 * time.Minute
	}

	mux := http.NewServeMux()

	s := &Server{
		backend:      b,
		orchestrator: report.NewOrchestrator(b, opts.TrendMonths),
		exporter:     export.NewExporter(b, opts.ExportRowLimit),
		publisher:    publisher,
		snapshots:    cache.NewLRUCache[*report.Snapshot](opts.CacheSize, opts.CacheTTL),
		rateLimiter:  newRateLimiter(),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.snapshots)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/api/accounts", s.handleAccounts)
	mux.HandleFunc("/api/categories", s.handleCategories)
	mux.HandleFunc("/api/categories/spending", s.handleCategorySpending)
	mux.HandleFunc("/api/export/csv", s.handleExportCSV)
	mux.HandleFunc("/api/export/json", s.handleExportJSON)
	mux.HandleFunc("/api/export/backup", s.handleExportBackup)

	tracer := trace.NewMiddleware(extractClientIP)

	s.Server = http.Server{
		Addr:    addr,
		Handler: tracer.Middleware(s.withProtection(mux)),
	}

	return s
}

// Snapshots exposes the snapshot cache so a refresh worker can share it.
func (s *Server) Snapshots() *cache.LRUCache[*report.Snapshot] {
	return s.snapshots
}

// Orchestrator exposes the report orchestrator for shared refresh wiring.
func (s *Server) Orchestrator() *report.Orchestrator {
	return s.orchestrator
}

// withProtection adds security headers and rate limits mutations.
func (s *Server) withProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isMutation(r.Method) && !s.rateLimiter.allow(extractClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
