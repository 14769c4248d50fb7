// Package gateway exposes game sessions over a JSON HTTP API plus a
// websocket event stream per session.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-gateway/internal/engine"
	"github.com/park285/chess-gateway/internal/options"
	"github.com/park285/chess-gateway/internal/preset"
	"github.com/park285/chess-gateway/internal/session"
	"github.com/park285/chess-gateway/pkg/gatewaydto"
)

const maxJSONBodyBytes int64 = 1 << 20

// Server wires the HTTP layer to the session manager and preset catalog.
type Server struct {
	log      *zap.Logger
	manager  *session.Manager
	presets  *preset.Catalog
	defaults session.Config

	hubMu sync.Mutex
	hubs  map[string]*eventHub

	srvMu sync.Mutex
	srv   *http.Server
}

func NewServer(manager *session.Manager, presets *preset.Catalog, defaults session.Config, logger *zap.Logger) (*Server, error) {
	if manager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if presets == nil {
		return nil, fmt.Errorf("preset catalog is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		log:      logger,
		manager:  manager,
		presets:  presets,
		defaults: defaults,
		hubs:     make(map[string]*eventHub),
	}, nil
}

// Listen starts the HTTP server and blocks until shutdown.
func (s *Server) Listen(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()
	defer func() {
		s.srvMu.Lock()
		s.srv = nil
		s.srvMu.Unlock()
	}()

	s.log.Info("gateway_listening", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts the HTTP server down gracefully and drops all event streams.
func (s *Server) Close(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()

	s.hubMu.Lock()
	for id, hub := range s.hubs {
		hub.closeAll()
		delete(s.hubs, id)
	}
	s.hubMu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", s.withJSON(s.handleCreateSession))
	mux.HandleFunc("GET /api/sessions/{id}", s.withJSON(s.handleState))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.withJSON(s.handleRelease))

	mux.HandleFunc("POST /api/sessions/{id}/position", s.withJSON(s.handleSetPosition))
	mux.HandleFunc("POST /api/sessions/{id}/moves", s.withJSON(s.handleMove))
	mux.HandleFunc("POST /api/sessions/{id}/think", s.withJSON(s.handleThink))
	mux.HandleFunc("POST /api/sessions/{id}/undo", s.withJSON(s.handleUndo))
	mux.HandleFunc("POST /api/sessions/{id}/new-game", s.withJSON(s.handleNewGame))

	mux.HandleFunc("GET /api/sessions/{id}/draw", s.withJSON(s.handleDraw))
	mux.HandleFunc("GET /api/sessions/{id}/legal-moves", s.withJSON(s.handleLegalMoves))
	mux.HandleFunc("POST /api/sessions/{id}/legal-moves/match", s.withJSON(s.handleMatch))

	mux.HandleFunc("GET /api/sessions/{id}/options", s.withJSON(s.handleGetOptions))
	mux.HandleFunc("POST /api/sessions/{id}/options", s.withJSON(s.handleSetOption))

	mux.HandleFunc("GET /api/sessions/{id}/events", s.handleEvents)

	mux.HandleFunc("GET /api/tiers", s.withJSON(s.handleTiers))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

func (s *Server) withJSON(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, gatewaydto.ErrorBody{Code: code, Message: msg})
}

// decodeJSON reads the request body into v. An empty body is accepted when
// allowEmpty is set, leaving v zeroed.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("request body required")
	}
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if isBodyTooLarge(err) {
		writeError(w, http.StatusRequestEntityTooLarge, gatewaydto.CodeInvalidRequest, "request too large")
		return err
	}
	writeError(w, http.StatusBadRequest, gatewaydto.CodeInvalidRequest, "invalid json")
	return err
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// writeDomainError maps session and engine errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, gatewaydto.CodeSessionNotFound, err.Error())
	case errors.Is(err, engine.ErrInvalidFEN):
		writeError(w, http.StatusBadRequest, gatewaydto.CodeInvalidFEN, err.Error())
	case errors.Is(err, engine.ErrIllegalMove):
		writeError(w, http.StatusBadRequest, gatewaydto.CodeIllegalMove, err.Error())
	case errors.Is(err, session.ErrEmptyHistory):
		writeError(w, http.StatusConflict, gatewaydto.CodeEmptyHistory, err.Error())
	case errors.Is(err, session.ErrThinkInProgress):
		writeError(w, http.StatusConflict, gatewaydto.CodeThinkInProgress, err.Error())
	case errors.Is(err, session.ErrNotInitialized):
		writeError(w, http.StatusConflict, gatewaydto.CodeNotInitialized, err.Error())
	case errors.Is(err, session.ErrSessionReleased):
		writeError(w, http.StatusGone, gatewaydto.CodeSessionReleased, err.Error())
	case errors.Is(err, options.ErrUnknownOption):
		writeError(w, http.StatusBadRequest, gatewaydto.CodeUnknownOption, err.Error())
	case errors.Is(err, options.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, gatewaydto.CodeInvalidRequest, err.Error())
	default:
		s.log.Error("gateway_internal_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, gatewaydto.CodeInternal, "internal error")
	}
}

// getSession resolves the path session ID, reaping the event hub of any
// session the manager has already expired.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) (string, *session.Session, bool) {
	id := r.PathValue("id")
	sess, err := s.manager.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			s.dropHub(id)
		}
		s.writeDomainError(w, err)
		return "", nil, false
	}
	return id, sess, true
}

func (s *Server) dropHub(id string) {
	s.hubMu.Lock()
	hub, ok := s.hubs[id]
	if ok {
		delete(s.hubs, id)
	}
	s.hubMu.Unlock()
	if ok {
		hub.closeAll()
	}
}

// snapshot assembles the session state view common to most responses.
func snapshot(id string, sess *session.Session) (gatewaydto.SessionState, error) {
	fen, err := sess.FEN()
	if err != nil {
		return gatewaydto.SessionState{}, err
	}
	turn, err := sess.Turn()
	if err != nil {
		return gatewaydto.SessionState{}, err
	}
	moves, err := sess.HistoryText()
	if err != nil {
		return gatewaydto.SessionState{}, err
	}
	fifty, err := sess.FiftyMoveCount()
	if err != nil {
		return gatewaydto.SessionState{}, err
	}
	draw, err := sess.IsDraw()
	if err != nil {
		return gatewaydto.SessionState{}, err
	}
	return gatewaydto.SessionState{
		SessionID:  id,
		State:      sess.State().String(),
		FEN:        fen,
		Turn:       string(turn),
		Moves:      moves,
		FiftyCount: fifty,
		Draw:       draw,
	}, nil
}
