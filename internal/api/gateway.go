// Package api implements C13: the versioned HTTP surface exposing
// C8-C12, with a uniform error envelope and tenant-scoped auth.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/securizon/internal/apierr"
	"github.com/securizon/internal/health"
	"github.com/securizon/internal/ingestion"
	"github.com/securizon/internal/middleware"
	"github.com/securizon/internal/nlquery"
	"github.com/securizon/internal/obslog"
	"github.com/securizon/internal/ratelimit"
	"github.com/securizon/internal/tenant"
	"github.com/securizon/internal/ticket"
)

// GatewayConfig controls the HTTP server and its cross-cutting policies.
type GatewayConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	Environment     string
	AdminKey        string
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Environment:     "development",
	}
}

// Gateway wires the tenant router, ticket service, ingestion pipeline and
// NL-query router behind a single mux.Router and http.Server.
type Gateway struct {
	server *http.Server
	router *mux.Router

	config GatewayConfig

	tenants      tenant.Store
	tenantRouter *middleware.Router
	tickets      *ticket.Service
	pipeline     *ingestion.Pipeline
	nlRouter     *nlquery.Router
	health       *health.HealthChecker

	nlLimiter *ratelimit.Limiter

	metrics *GatewayMetrics
}

func NewGateway(
	config GatewayConfig,
	tenants tenant.Store,
	tenantRouter *middleware.Router,
	tickets *ticket.Service,
	pipeline *ingestion.Pipeline,
	nlRouter *nlquery.Router,
	healthChecker *health.HealthChecker,
) *Gateway {
	g := &Gateway{
		router:       mux.NewRouter(),
		config:       config,
		tenants:      tenants,
		tenantRouter: tenantRouter,
		tickets:      tickets,
		pipeline:     pipeline,
		nlRouter:     nlRouter,
		health:       healthChecker,
		nlLimiter:    ratelimit.New(1<<30, 50), // NL-query is rate-limited tighter: 50/hour (spec §6)
		metrics:      newGatewayMetrics(),
	}
	g.setupRoutes()
	g.setupMiddleware()
	g.server = &http.Server{
		Addr:         config.Host + ":" + strconv.Itoa(config.Port),
		Handler:      g.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return g
}

func (g *Gateway) setupRoutes() {
	g.router.HandleFunc("/health", g.health.HTTPHandler()).Methods(http.MethodGet)
	g.router.HandleFunc("/health/ready", g.health.ReadinessHandler()).Methods(http.MethodGet)
	g.router.HandleFunc("/health/live", health.LivenessHandler()).Methods(http.MethodGet)
	g.router.HandleFunc("/metrics", g.handleMetrics).Methods(http.MethodGet)

	g.router.HandleFunc("/api/gorgias/webhook", g.handleWebhook).Methods(http.MethodPost)
	g.router.HandleFunc("/api/webhooks/{provider}", g.handleWebhook).Methods(http.MethodPost)

	mcp := g.router.PathPrefix("/api/mcp").Subrouter()
	mcp.Use(g.adminAuth)
	mcp.HandleFunc("/query", g.handleMCPQuery).Methods(http.MethodPost)
	mcp.HandleFunc("/query/natural-language", g.handleMCPQueryNL).Methods(http.MethodPost)

	tk := g.router.PathPrefix("/api/tickets").Subrouter()
	tk.HandleFunc("", g.handleListTickets).Methods(http.MethodGet)
	tk.HandleFunc("", g.handleCreateTicket).Methods(http.MethodPost)
	tk.HandleFunc("/{id}", g.handleGetTicket).Methods(http.MethodGet)
	tk.HandleFunc("/{id}", g.handleUpdateTicket).Methods(http.MethodPatch)
	tk.HandleFunc("/{id}/messages", g.handlePostMessage).Methods(http.MethodPost)
	tk.HandleFunc("/{id}/notes", g.handleAddNote).Methods(http.MethodPost)
	tk.HandleFunc("/{id}/notes", g.handleListNotes).Methods(http.MethodGet)
	tk.HandleFunc("/{id}/score-breakdown", g.handleScoreBreakdown).Methods(http.MethodGet)
	tk.HandleFunc("/{id}/reset-conversation", g.handleResetConversation).Methods(http.MethodPost)

	ai := g.router.PathPrefix("/api/ai/tickets/{id}").Subrouter()
	ai.HandleFunc("/recommendation", g.handleGetRecommendation).Methods(http.MethodGet)
	ai.HandleFunc("/draft-response", g.handleGetDraft).Methods(http.MethodGet)
	ai.HandleFunc("/draft-response/regenerate", g.handleRegenerateDraft).Methods(http.MethodPost)
	ai.HandleFunc("/recommendation/actions/{index}", g.handleMarkAction).Methods(http.MethodPatch)
}

func (g *Gateway) setupMiddleware() {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   g.config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key", "X-Admin-Key", "X-Correlation-ID", "X-Request-ID", "Authorization"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-Correlation-ID"},
		AllowCredentials: true,
	})

	g.router.Use(corsHandler.Handler)
	g.router.Use(correlationMiddleware)
	g.router.Use(g.metricsMiddleware)
	g.router.Use(g.tenantRouter.Middleware)
}

// correlationMiddleware honors X-Correlation-ID, falling back to
// X-Request-ID, minting a fresh id when neither is present, and echoes
// it on the response (spec §4.13).
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = r.Header.Get("X-Request-ID")
		}
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", id)
		ctx := obslog.WithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminAuth guards the /api/mcp surface: a caller presents X-Admin-Key
// once and is handed a short-lived operator token it can reuse as a
// bearer credential on subsequent privileged calls.
func (g *Gateway) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.config.AdminKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		if key := r.Header.Get("X-Admin-Key"); key != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(g.config.AdminKey)) != 1 {
				writeErrorResponse(w, apierr.Unauth("invalid admin key"))
				return
			}
			token, err := g.mintOperatorToken()
			if err == nil {
				w.Header().Set("X-Operator-Token", token)
			}
			next.ServeHTTP(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			if g.verifyOperatorToken(strings.TrimPrefix(auth, "Bearer ")) {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeErrorResponse(w, apierr.Unauth("X-Admin-Key or operator bearer token required"))
	})
}

func (g *Gateway) mintOperatorToken() (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(g.config.AdminKey))
}

func (g *Gateway) verifyOperatorToken(raw string) bool {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(g.config.AdminKey), nil
	})
	return err == nil && token.Valid
}

// Start begins serving; it blocks until the server stops. Callers run it
// in its own goroutine and watch the returned error, or call Stop.
func (g *Gateway) Start() error {
	obslog.Infof(context.Background(), "api: listening on %s", g.server.Addr)
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and the ingestion pipeline's background
// worker pool within config.ShutdownTimeout.
func (g *Gateway) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()
	err := g.server.Shutdown(shutdownCtx)
	if g.pipeline != nil {
		g.pipeline.Drain(shutdownCtx)
	}
	return err
}

// GatewayMetrics tracks coarse request counters for the /metrics
// endpoint, mirroring the teacher's in-process metrics rather than
// standing up a full Prometheus registry.
type GatewayMetrics struct {
	mu               sync.RWMutex
	TotalRequests    int64
	RequestsByStatus map[int]int64
	RequestsByPath   map[string]int64
}

func newGatewayMetrics() *GatewayMetrics {
	return &GatewayMetrics{
		RequestsByStatus: make(map[int]int64),
		RequestsByPath:   make(map[string]int64),
	}
}

func (m *GatewayMetrics) record(path string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalRequests++
	m.RequestsByStatus[status]++
	m.RequestsByPath[path]++
}

func (m *GatewayMetrics) snapshot() GatewayMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byStatus := make(map[int]int64, len(m.RequestsByStatus))
	for k, v := range m.RequestsByStatus {
		byStatus[k] = v
	}
	byPath := make(map[string]int64, len(m.RequestsByPath))
	for k, v := range m.RequestsByPath {
		byPath[k] = v
	}
	return GatewayMetrics{TotalRequests: m.TotalRequests, RequestsByStatus: byStatus, RequestsByPath: byPath}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (g *Gateway) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		route := r.URL.Path
		if m := mux.CurrentRoute(r); m != nil {
			if tmpl, err := m.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		g.metrics.record(route, rw.status)
	})
}
