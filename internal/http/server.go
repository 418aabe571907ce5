package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"voicebudget/internal/audio"
	"voicebudget/internal/core"
	"voicebudget/internal/log"
	"voicebudget/internal/pipeline"
)

// VoicePipeline runs one audio submission end to end.
type VoicePipeline interface {
	Run(ctx context.Context, identity *core.Identity, blob *audio.Blob) (pipeline.Result, error)
}

// ExpenseWriter is the write side of the expense service.
type ExpenseWriter interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id, userID string) error
}

// ExpenseReader is the read side of the expense store.
type ExpenseReader interface {
	GetExpense(ctx context.Context, id, userID string) (core.Expense, error)
	ListExpenses(ctx context.Context, userID string, limit, offset int64) ([]core.Expense, error)
}

// BudgetStore covers budget CRUD against the repository.
type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	UpdateBudget(ctx context.Context, id, userID string, amount core.Money, period core.BudgetPeriod) error
	DeleteBudget(ctx context.Context, id, userID string) error
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
}

// Summarizer builds the dashboard summary and drops stale entries when
// budgets change.
type Summarizer interface {
	Summary(ctx context.Context, userID string) (core.SpendingSummary, error)
	Invalidate(userID string)
}

// Exporter produces the downloadable expense workbook.
type Exporter interface {
	ExportExpensesXLSX(ctx context.Context, userID string) ([]byte, error)
}

// Deps collects everything the server routes to.
type Deps struct {
	Pipeline VoicePipeline
	Expenses ExpenseWriter
	Reader   ExpenseReader
	Budgets  BudgetStore
	Summary  Summarizer
	Exporter Exporter
	Tokens   TokenResolver
}

// Server wraps http.Server with the API routes, per-IP rate limiting and
// bearer token auth.
type Server struct {
	http.Server

	pipeline VoicePipeline
	expenses ExpenseWriter
	reader   ExpenseReader
	budgets  BudgetStore
	summary  Summarizer
	exporter Exporter
	tokens   TokenResolver

	rateLimiter *rateLimiter
	log         *log.Logger

	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		pipeline:    deps.Pipeline,
		expenses:    deps.Expenses,
		reader:      deps.Reader,
		budgets:     deps.Budgets,
		summary:     deps.Summary,
		exporter:    deps.Exporter,
		tokens:      deps.Tokens,
		rateLimiter: newRateLimiter(),
		log:         logger.WithComponent(log.ComponentHTTP),
		stopCleanup: make(chan struct{}),
	}

	// Drop stale rate limiter entries periodically.
	go s.startCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	// The voice endpoint runs without requireAuth: an unauthenticated
	// submission still transcribes so the user keeps their words.
	mux.HandleFunc("POST /api/voice/expenses", s.with(s.handleVoiceExpense))

	mux.HandleFunc("GET /api/expenses", s.with(s.requireAuth(s.handleListExpenses)))
	mux.HandleFunc("POST /api/expenses", s.with(s.requireAuth(s.handleCreateExpense)))
	mux.HandleFunc("GET /api/expenses/export", s.with(s.requireAuth(s.handleExportExpenses)))
	mux.HandleFunc("GET /api/expenses/{id}", s.with(s.requireAuth(s.handleGetExpense)))
	mux.HandleFunc("PUT /api/expenses/{id}", s.with(s.requireAuth(s.handleUpdateExpense)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.with(s.requireAuth(s.handleDeleteExpense)))

	mux.HandleFunc("GET /api/budgets", s.with(s.requireAuth(s.handleListBudgets)))
	mux.HandleFunc("POST /api/budgets", s.with(s.requireAuth(s.handleCreateBudget)))
	mux.HandleFunc("PUT /api/budgets/{id}", s.with(s.requireAuth(s.handleUpdateBudget)))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.with(s.requireAuth(s.handleDeleteBudget)))

	mux.HandleFunc("GET /api/dashboard/summary", s.with(s.requireAuth(s.handleDashboardSummary)))

	return s
}

// with adds request ID tracing, request logging, rate limiting on writes,
// and identity resolution to a handler.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		logger := s.log.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), log.LoggerContextKey, logger)
		ctx = withIdentity(ctx, s.resolveIdentity(r))
		r = r.WithContext(ctx)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "rate limit exceeded",
				"client_ip", clientIP,
				"method", r.Method,
				"url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger.InfoContext(ctx, "request completed",
			"method", r.Method,
			"url", r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.rateLimiter.cleanStale(10 * time.Minute)
		case <-s.stopCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutine and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.stopCleanup)
	})
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
