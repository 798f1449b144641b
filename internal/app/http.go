package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"portfolio/api/internal/metrics"
	"portfolio/api/internal/store"
)

const (
	sessionCookie = "portfolio_session"
	refreshCookie = "portfolio_refresh"
	maxBodyBytes  = 1 << 20
)

type HTTPServer struct {
	service      *Service
	log          *zap.Logger
	metrics      *metrics.Metrics
	files        http.Handler
	corsOrigins  []string
	cookieSecure bool
}

type Option func(*HTTPServer)

func WithLogger(log *zap.Logger) Option {
	return func(s *HTTPServer) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *HTTPServer) { s.metrics = m }
}

// WithFiles serves locally stored uploads under /uploads/.
func WithFiles(files http.Handler) Option {
	return func(s *HTTPServer) { s.files = files }
}

func NewHTTPServer(service *Service, opts ...Option) *HTTPServer {
	cfg := service.Config()
	s := &HTTPServer{
		service:      service,
		log:          zap.NewNop(),
		corsOrigins:  cfg.CORSOrigins,
		cookieSecure: cfg.CookieSecure,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.corsOrigins) == 0 {
		s.corsOrigins = []string{"*"}
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !allowsAnyOrigin(s.corsOrigins),
		MaxAge:           300,
	}))

	s.routes(r)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	return r
}

func allowsAnyOrigin(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// requestLogger writes one line per request and echoes the request id.
func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(started)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

// Auth gate

// verifyAuth resolves the caller from the bearer header, then the session
// cookie.
func (s *HTTPServer) verifyAuth(r *http.Request) AuthResult {
	token := bearerToken(r)
	if token == "" {
		if cookie, err := r.Cookie(sessionCookie); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return AuthResult{}
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		return AuthResult{}
	}
	return AuthResult{Success: true, UserID: session.UserID, session: session}
}

func (s *HTTPServer) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := s.verifyAuth(r)
		if !result.Success || result.UserID == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), result.session)))
	})
}

// sessionFrom returns the session requireAuth stored on the request.
func sessionFrom(r *http.Request) Session {
	session, _ := actorFrom(r.Context())
	return session
}

func (s *HTTPServer) setSessionCookies(w http.ResponseWriter, session Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    session.RefreshToken,
		Path:     "/api/auth",
		Expires:  session.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) clearSessionCookies(w http.ResponseWriter) {
	for _, cookie := range []struct{ name, path string }{{sessionCookie, "/"}, {refreshCookie, "/api/auth"}} {
		http.SetCookie(w, &http.Cookie{
			Name:     cookie.name,
			Value:    "",
			Path:     cookie.path,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// Envelope

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	response := map[string]any{
		"success": true,
		"data":    data,
	}
	if message != "" {
		response["message"] = message
	}
	writeJSON(w, status, response)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

// fail writes err through mapError. Server errors are logged.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

// writeResult maps a service envelope onto the response.
func writeResult[T any](s *HTTPServer, w http.ResponseWriter, r *http.Request, result Result[T], status int, message string) {
	if !result.Success {
		err := result.Err()
		if err == nil {
			err = errors.New(result.Error)
		}
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, status, result.Data, message)
}

// Request parsing

func decodeBody(r *http.Request, target any) error {
	raw, err := readBody(r)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return badRequest("invalid JSON body", nil)
	}
	return nil
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, badRequest("could not read request body", nil)
	}
	if len(raw) > maxBodyBytes {
		return nil, domainError(http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes), nil)
	}
	return raw, nil
}

// decodeInto returns an apply function that overlays the JSON body onto a
// stored row.
func decodeInto[T any](raw []byte) func(*T) error {
	return func(item *T) error {
		if len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, item); err != nil {
			return errors.New("invalid JSON body")
		}
		return nil
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// parseListFilter coerces the list query parameters. Absent or unparsable
// values stay nil.
func parseListFilter(r *http.Request) store.ListFilter {
	query := r.URL.Query()
	filter := store.ListFilter{
		Visible:  parseBool(query.Get("visible")),
		Featured: parseBool(query.Get("featured")),
		Limit:    parseInt(query.Get("limit")),
		Offset:   parseInt(query.Get("offset")),
		Locale:   strings.TrimSpace(query.Get("locale")),
	}
	if search := strings.TrimSpace(query.Get("search")); search != "" {
		filter.Search = &search
	}
	return filter
}

func parseBool(value string) *bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return nil
	}
	return &parsed
}

func parseInt(value string) *int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil
	}
	return &parsed
}

func intOr(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

// Health

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}
