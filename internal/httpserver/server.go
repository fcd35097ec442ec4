package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gasfeel/gaspay/internal/cache"
	"github.com/gasfeel/gaspay/internal/config"
	"github.com/gasfeel/gaspay/internal/metrics"
	"github.com/gasfeel/gaspay/internal/referral"
	"go.uber.org/zap"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Service *referral.Service
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server wraps the HTTP handlers over the referral query service.
type Server struct {
	service *referral.Service
	logger  *zap.Logger
	config  *config.Config
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		service: deps.Service,
		logger:  deps.Logger,
		config:  deps.Config,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Referral queries
	mux.HandleFunc("/api/referrers/", s.handleReferrerByCode)
	mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("/api/summary", s.handleSummary)

	return mux
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.service.Health(r.Context())
	status := http.StatusOK
	state := "ok"
	if h.LastRefresh == nil {
		// Nothing ever ingested: the portal shows "System Offline".
		status = http.StatusServiceUnavailable
		state = "offline"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":                  state,
		"last_successful_refresh": h.LastRefresh,
		"serving_stale":           h.ServingStale,
	})
}

// ---- Referral Queries ----

func (s *Server) handleReferrerByCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := strings.TrimPrefix(r.URL.Path, "/api/referrers/")
	code = strings.TrimSpace(code)
	if code == "" || strings.Contains(code, "/") {
		s.errorResponse(w, "referral code required", http.StatusBadRequest)
		return
	}

	stats, err := s.service.Lookup(r.Context(), code)
	if err != nil {
		s.unavailable(w, err)
		return
	}
	if stats == nil {
		s.errorResponse(w, "code not found", http.StatusNotFound)
		return
	}
	s.jsonResponse(w, stats)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rows, err := s.service.Leaderboard(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	s.jsonResponse(w, map[string]interface{}{"rows": rows})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	windowDays := 0
	if v := r.URL.Query().Get("window_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.errorResponse(w, "window_days must be a positive integer", http.StatusBadRequest)
			return
		}
		windowDays = n
	}

	sum, err := s.service.Summary(r.Context(), windowDays)
	if err != nil {
		s.unavailable(w, err)
		return
	}
	s.jsonResponse(w, sum)
}

// ---- Helper Methods ----

func (s *Server) unavailable(w http.ResponseWriter, err error) {
	if errors.Is(err, cache.ErrNoData) {
		s.errorResponse(w, "feed unavailable, no data ingested yet", http.StatusServiceUnavailable)
		return
	}
	s.logger.Error("query failed", zap.Error(err))
	s.errorResponse(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
