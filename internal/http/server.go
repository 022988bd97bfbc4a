package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/auth"
	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/config"
	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/repository"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "urbanshade_admin_requests_total",
	Help: "Admin endpoint requests by action and status.",
}, []string{"action", "status"})

type Server struct {
	cfg   config.Config
	store Store
	redis *redis.Client

	getActions  map[string]getAction
	postActions map[string]postAction
}

func NewServer(cfg config.Config, store Store, redisClient *redis.Client) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		redis: redisClient,
	}
	s.registerActions()
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.With(s.authMiddleware).Get("/", s.handleGet)
		r.With(s.authMiddleware).Post("/", s.handlePost)
	})

	return r
}

// CORS

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Client-Info")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Auth

type caller struct {
	UserID   string
	Username string
	Role     string
}

func (c caller) isCreator() bool { return c.Role == "creator" }
func (c caller) isTrial() bool   { return c.Role == "trial_admin" }

type callerKey struct{}

func callerFromContext(ctx context.Context) *caller {
	value := ctx.Value(callerKey{})
	c, _ := value.(*caller)
	return c
}

func isElevated(role string) bool {
	switch role {
	case "trial_admin", "admin", "creator":
		return true
	default:
		return false
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		role, err := s.store.GetRole(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusForbidden, "Admin access required")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !isElevated(role.Role) {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}

		s.touchPresence(r.Context(), claims.UserID)

		c := &caller{UserID: claims.UserID, Username: claims.Username, Role: role.Role}
		ctx := context.WithValue(r.Context(), callerKey{}, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Dispatch

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	if c == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	name := r.URL.Query().Get("action")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Missing action")
		return
	}
	action, ok := s.getActions[name]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown action: "+name)
		return
	}
	if !s.authorize(w, *c, name, action.cap) {
		requestsTotal.WithLabelValues(name, "forbidden").Inc()
		return
	}

	s.logAccess(r, c, name)
	action.handler(w, r, *c)
	requestsTotal.WithLabelValues(name, "handled").Inc()
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	if c == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var envelope struct {
		Action string `json:"action"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &envelope); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if envelope.Action == "" {
		writeError(w, http.StatusBadRequest, "Missing action")
		return
	}
	action, ok := s.postActions[envelope.Action]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown action: "+envelope.Action)
		return
	}
	if !s.authorize(w, *c, envelope.Action, action.cap) {
		requestsTotal.WithLabelValues(envelope.Action, "forbidden").Inc()
		return
	}

	s.logAccess(r, c, envelope.Action)
	action.handler(w, r, *c, body)
	requestsTotal.WithLabelValues(envelope.Action, "handled").Inc()
}

// Audit + presence

func (s *Server) logAccess(r *http.Request, c *caller, action string) {
	entry := accessLogEntry(c.UserID, action, r.Method, clientIP(r))
	if err := s.store.InsertAccessLog(r.Context(), entry); err != nil {
		log.Printf("access log write error: %v", err)
	}
}

func (s *Server) touchPresence(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, presenceKey(userID), "1", s.cfg.PresenceTTL).Err(); err != nil {
		log.Printf("presence refresh error: %v", err)
	}
}

func (s *Server) isOnline(ctx context.Context, userID string) bool {
	if s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

func presenceKey(userID string) string {
	return "presence:admin:" + userID
}

// Helpers

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func newID() string {
	return uuid.NewString()
}
