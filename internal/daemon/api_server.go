package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"whorl/internal/api"
	"whorl/internal/config"
	"whorl/internal/logging"
	"whorl/internal/matching"
	"whorl/internal/services"
)

// maxSubmissionBytes caps the identify request body. Component JSON from
// instrumented browsers runs a few kilobytes; anything near this limit is
// not a fingerprint submission.
const maxSubmissionBytes = 256 << 10

type apiServer struct {
	bind           string
	logger         *slog.Logger
	daemon         *Daemon
	engine         *matching.Engine
	visitorSvc     *api.VisitorService
	trustedProxies bool

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Server.Bind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:           bind,
		logger:         logger,
		daemon:         d,
		engine:         d.engine,
		visitorSvc:     d.visitorSvc,
		trustedProxies: cfg.Server.TrustedProxies,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/identify", srv.handleIdentify)
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/stats", authMiddleware(cfg.Server.APIToken, srv.handleStats))
	mux.HandleFunc("/api/visitors/", authMiddleware(cfg.Server.APIToken, srv.handleVisitor))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// address returns the bound listener address, which may differ from the
// configured bind when the port was chosen by the kernel.
func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req api.IdentifySubmission
	body := http.MaxBytesReader(w, r.Body, maxSubmissionBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := services.WithRequestID(r.Context(), uuid.NewString())
	result, err := s.engine.Identify(ctx, api.ToSubmission(&req, s.requestMeta(r)))
	if err != nil {
		var invalid *matching.InvalidSubmissionError
		switch {
		case errors.As(err, &invalid):
			s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid submission", Fields: invalid.Fields})
		case errors.Is(err, context.DeadlineExceeded):
			s.writeError(w, http.StatusGatewayTimeout, "identification timed out")
		default:
			s.log().Error("identify failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, api.FromMatch(result))
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp := s.visitorSvc.Health(r.Context())
	status := http.StatusOK
	if resp.Status != api.HealthOK {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid days value")
			return
		}
		days = parsed
	}
	resp, err := s.visitorSvc.Stats(r.Context(), days)
	if err != nil {
		s.log().Error("stats query failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleVisitor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/visitors/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "visitor not found")
		return
	}
	detail, err := s.visitorSvc.Describe(r.Context(), id)
	if err != nil {
		s.log().Error("visitor lookup failed", logging.String(logging.FieldVisitorID, id), logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if detail == nil {
		s.writeError(w, http.StatusNotFound, "visitor not found")
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

// requestMeta captures the transport attributes recorded with each session.
// TLS and header-order hashes arrive from the fronting proxy; the daemon
// never terminates TLS itself.
func (s *apiServer) requestMeta(r *http.Request) matching.RequestMeta {
	return matching.RequestMeta{
		IPAddress:       s.clientIP(r),
		UserAgent:       r.UserAgent(),
		Referer:         r.Referer(),
		TLSJA4:          r.Header.Get("X-TLS-JA4"),
		TLSJA3:          r.Header.Get("X-TLS-JA3"),
		HeaderOrderHash: r.Header.Get("X-Header-Order-Hash"),
	}
}

// clientIP resolves the submitting address. X-Forwarded-For is only honoured
// when the deployment is marked as sitting behind trusted proxies, in which
// case the first entry is the original client.
func (s *apiServer) clientIP(r *http.Request) string {
	if s.trustedProxies {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
