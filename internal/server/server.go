package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/levelguide/internal/config"
	"github.com/jonathan/levelguide/internal/db"
	"github.com/jonathan/levelguide/internal/grounding"
	"github.com/jonathan/levelguide/internal/llm"
	"github.com/jonathan/levelguide/internal/pipeline"
	"github.com/jonathan/levelguide/internal/server/middleware"
	"github.com/jonathan/levelguide/internal/server/ratelimit"
)

// Store is the persistence surface the HTTP handlers need. *db.DB
// satisfies it.
type Store interface {
	AuthStore

	UpdateCompanyDomain(ctx context.Context, companyID uuid.UUID, domain string) error

	CreateRole(ctx context.Context, companyID uuid.UUID, name, sourceName, sourceType string) (*db.Role, error)
	GetRoleByID(ctx context.Context, id uuid.UUID) (*db.Role, error)
	GetActiveRoleByName(ctx context.Context, companyID uuid.UUID, name string) (*db.Role, error)
	ListActiveRoles(ctx context.Context, companyID uuid.UUID) ([]db.Role, error)
	DeactivateRoleSubtree(ctx context.Context, roleID uuid.UUID) error
	GetRoleGrid(ctx context.Context, roleID uuid.UUID) (*db.RoleGrid, error)

	CreateNudge(ctx context.Context, companyID, employeeID uuid.UUID, roleName, levelName string) (*db.Nudge, error)
	HasPendingNudge(ctx context.Context, employeeID uuid.UUID, roleName string) (bool, error)
	GetNudgeByID(ctx context.Context, id uuid.UUID) (*db.Nudge, error)
	ListNudgesByCompany(ctx context.Context, companyID uuid.UUID) ([]db.Nudge, error)
	UpdateNudgeStatus(ctx context.Context, id uuid.UUID, status string) (*db.Nudge, error)
}

// Processor runs a guide processing job. *pipeline.Runner satisfies it.
type Processor interface {
	Process(ctx context.Context, job pipeline.Job) error
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	llmClient   llm.Client
	store       Store
	processor   Processor
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler
	validate    *validator.Validate
}

// Config holds server configuration
type Config struct {
	Addr        string
	DatabaseURL string
	APIKey      string
	Concurrency int
	UseBrowser  bool
	Verbose     bool
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(context.Background()); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	client, err := llm.NewClient(context.Background(), nil, cfg.APIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	fetcher := grounding.NewFetcher(client)
	if cfg.UseBrowser {
		fetcher.EnableBrowser()
	}
	runner := pipeline.NewRunner(database, client, fetcher, pipeline.Options{
		Concurrency: cfg.Concurrency,
		Verbose:     cfg.Verbose,
	})

	s := &Server{
		db:        database,
		llmClient: client,
		store:     database,
		processor: runner,
		validate:  validator.New(),
	}

	// Initialize rate limiter
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	// Initialize authentication services
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	s.jwtService = NewJWTService(jwtConfig)
	s.userService = NewUserService(database, s.jwtService, passwordConfig)
	s.authHandler = NewAuthHandler(s.userService)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.routes()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes builds the request mux. Everything under /api except auth
// requires a bearer token.
func (s *Server) routes() http.Handler {
	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", s.authHandler.Login)

	mux.Handle("POST /api/roles", auth(http.HandlerFunc(s.handleUploadRole)))
	mux.Handle("GET /api/roles", auth(http.HandlerFunc(s.handleListRoles)))
	mux.Handle("GET /api/roles/check", auth(http.HandlerFunc(s.handleCheckRole)))
	mux.Handle("GET /api/roles/{id}", auth(http.HandlerFunc(s.handleGetRole)))
	mux.Handle("GET /api/roles/{id}/status", auth(http.HandlerFunc(s.handleRoleStatus)))

	mux.Handle("POST /api/nudges", auth(http.HandlerFunc(s.handleCreateNudge)))
	mux.Handle("GET /api/nudges", auth(http.HandlerFunc(s.handleListNudges)))
	mux.Handle("PATCH /api/nudges/{id}", auth(http.HandlerFunc(s.handleUpdateNudge)))

	return mux
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.llmClient != nil {
		if err := s.llmClient.Close(); err != nil {
			log.Printf("Error closing LLM client: %v", err)
		}
	}
	s.db.Close()
	log.Println("Server stopped")
	return nil
}

// requireIdentity pulls the caller's company and role from the request
// context. Writes a 401 itself when the middleware did not run.
func (s *Server) requireIdentity(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	companyID, err := middleware.GetCompanyID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, "", false
	}
	role, err := middleware.GetUserRole(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, "", false
	}
	return companyID, role, true
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		if !allowed {
			s.setRateLimitHeaders(w, info)
			s.rateLimitResponse(w, info)
			return
		}

		s.setRateLimitHeaders(w, info)
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// Uses the IP address from RemoteAddr; X-Forwarded-For would need a
// trusted proxy list first.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate
// limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	jsonResponse(w, http.StatusTooManyRequests, response)
}
