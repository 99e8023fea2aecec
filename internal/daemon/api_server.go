package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"md5watch/internal/config"
	"md5watch/internal/ledger"
	"md5watch/internal/logging"
	"md5watch/internal/report"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 1000
	streamBatch        = 100
	streamWriteWait    = 10 * time.Second
)

// VerificationsResponse is the body of GET /api/verifications.
type VerificationsResponse struct {
	Items []ledger.Record `json:"items"`
}

// ResultsResponse is the body of GET /api/results.
type ResultsResponse struct {
	Results []report.Result `json:"results"`
	Next    uint64          `json:"next"`
}

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	upgrader websocket.Upgrader

	ctx      context.Context
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	srv.server = &http.Server{
		Handler:           srv.routes(strings.TrimSpace(cfg.API.Token)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	r := mux.NewRouter()
	r.Use(authMiddleware(token))
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/verifications", s.handleVerifications).Methods(http.MethodGet)
	r.HandleFunc("/api/results", s.handleResults).Methods(http.MethodGet)
	r.HandleFunc("/api/stream", s.handleStream).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	return r
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
	s.ctx = ctx

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
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

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleVerifications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := defaultRecentLimit
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, maxRecentLimit)
	}

	var filter ledger.Filter
	if value := strings.TrimSpace(query.Get("classification")); value != "" {
		c, ok := report.ParseClassification(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid classification")
			return
		}
		filter.Classification = c
	}
	filter.Name = strings.TrimSpace(query.Get("name"))
	if value := strings.TrimSpace(query.Get("since")); value != "" {
		since, err := time.Parse(time.RFC3339, value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid since; expected RFC3339")
			return
		}
		filter.Since = since
	}

	items, err := s.daemon.Recent(r.Context(), limit, filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, VerificationsResponse{Items: items})
}

// handleResults serves the in-memory result buffer; follow=1 long-polls until
// a result newer than since arrives.
func (s *apiServer) handleResults(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")

	results, next, err := s.daemon.Hub().Fetch(r.Context(), since, limit, follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, ResultsResponse{Results: results, Next: next})
}

// handleStream upgrades to a websocket and pushes every new result as a JSON
// text message until the client goes away or the server stops.
func (s *apiServer) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if s.ctx != nil {
		stop := context.AfterFunc(s.ctx, cancel)
		defer stop()
	}
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	hub := s.daemon.Hub()
	since := hub.Sequence()
	if value := r.URL.Query().Get("since"); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			since = parsed
		}
	}

	for {
		results, next, err := hub.Fetch(ctx, since, streamBatch, true)
		if err != nil {
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"), deadline)
			return
		}
		for _, res := range results {
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(res); err != nil {
				s.log().Debug("websocket write failed", logging.Error(err))
				return
			}
		}
		since = next
	}
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
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
