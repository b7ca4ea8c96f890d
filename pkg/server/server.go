// Package server exposes parsing, onboarding, rate limiting and the audit
// trail over HTTP for workflow tools such as n8n.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/perarneng/autoboard/pkg/audit"
	"github.com/perarneng/autoboard/pkg/interfaces"
	"github.com/perarneng/autoboard/pkg/parser"
	"github.com/perarneng/autoboard/pkg/provision"
	"github.com/perarneng/autoboard/pkg/ratelimit"
)

const maxBodyBytes = 1 << 20

// Provisioner is the account-creation backend, normally *provision.Unified.
type Provisioner interface {
	Onboard(ctx context.Context, account interfaces.Account, opts provision.Options) (*provision.Result, error)
	Licenses(ctx context.Context) ([]interfaces.License, error)
}

// Options configure the API. An empty APIKey disables authentication.
type Options struct {
	APIKey       string
	Provisioning provision.Options
}

type Server struct {
	parser      *parser.Parser
	provisioner Provisioner
	limiter     *ratelimit.Limiter
	audit       *audit.Log
	logger      interfaces.Logger
	opts        Options
}

func New(p *parser.Parser, prov Provisioner, limiter *ratelimit.Limiter, auditLog *audit.Log, logger interfaces.Logger, opts Options) *Server {
	return &Server{
		parser:      p,
		provisioner: prov,
		limiter:     limiter,
		audit:       auditLog,
		logger:      logger,
		opts:        opts,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/parse", s.requireKey(s.handleParse))
	mux.HandleFunc("POST /api/onboard", s.requireKey(s.handleOnboard))
	mux.HandleFunc("POST /api/rate-limit/check", s.requireKey(s.handleRateLimitCheck))
	mux.HandleFunc("GET /api/rate-limit/status", s.requireKey(s.handleRateLimitStatus))
	mux.HandleFunc("POST /api/audit/log", s.requireKey(s.handleAuditRecord))
	mux.HandleFunc("GET /api/audit/log", s.requireKey(s.handleAuditList))
	mux.HandleFunc("GET /api/licenses", s.requireKey(s.handleLicenses))
	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(fmt.Sprintf("Listening on %s", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug(fmt.Sprintf("%s %s %d (%v) from %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond), clientIP(r)))
	})
}

func (s *Server) requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey != "" {
			got := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.APIKey)) != 1 {
				s.logger.Warn(fmt.Sprintf("Rejected %s %s from %s: invalid API key", r.Method, r.URL.Path, clientIP(r)))
				respondError(w, http.StatusUnauthorized, "Unauthorized - invalid API key")
				return
			}
		}
		next(w, r)
	}
}

// clientIP is the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func setRateLimitHeaders(w http.ResponseWriter, st ratelimit.Status) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(st.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(st.Remaining))
	w.Header().Set("X-RateLimit-Reset", st.ResetAt.UTC().Format(time.RFC3339))
}

// respondRateLimited writes a 429 carrying Retry-After in seconds.
func (s *Server) respondRateLimited(w http.ResponseWriter, st ratelimit.Status) {
	setRateLimitHeaders(w, st)
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(st.ResetIn.Seconds()))))
	respondJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":      s.limiter.Message(st),
		"retryAfter": st.ResetAt,
		"allowed":    false,
	})
}

func (s *Server) record(e audit.Event) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Record(e); err != nil {
		s.logger.Error(fmt.Sprintf("Failed to write audit event: %v", err))
	}
}

func (s *Server) warnIfSuspicious() {
	if s.audit == nil {
		return
	}
	suspicion, err := s.audit.DetectSuspicious()
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to scan audit log: %v", err))
		return
	}
	if suspicion.Suspicious {
		s.logger.Warn(fmt.Sprintf("Suspicious activity: %s", suspicion.Reason))
	}
}

func isMissingName(err error) bool {
	return errors.Is(err, parser.ErrMissingName)
}
