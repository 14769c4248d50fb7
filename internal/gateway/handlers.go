package gateway

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/park285/chess-gateway/internal/engine"
	"github.com/park285/chess-gateway/internal/session"
	"github.com/park285/chess-gateway/pkg/gatewaydto"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req gatewaydto.CreateSessionRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		return
	}

	cfg := s.defaults
	if req.Tier != "" {
		tier, ok := s.presets.Tier(req.Tier)
		if !ok {
			writeError(w, http.StatusBadRequest, gatewaydto.CodeInvalidRequest,
				fmt.Sprintf("unknown tier %q", req.Tier))
			return
		}
		cfg.SkillLevel = tier.Skill
		cfg.MinThinkMillis = tier.ThinkMS
	}
	if req.SkillLevel != nil {
		cfg.SkillLevel = *req.SkillLevel
	}
	if req.MinThinkMS != nil {
		cfg.MinThinkMillis = *req.MinThinkMS
	}
	if cfg.SkillLevel < 0 || cfg.SkillLevel > 20 {
		writeError(w, http.StatusBadRequest, gatewaydto.CodeInvalidRequest,
			fmt.Sprintf("skill level %d out of range 0..20", cfg.SkillLevel))
		return
	}
	if cfg.MinThinkMillis < 0 {
		writeError(w, http.StatusBadRequest, gatewaydto.CodeInvalidRequest, "minimum thinking time must not be negative")
		return
	}

	hub := newEventHub()
	id, sess, err := s.manager.Create(r.Context(), cfg, req.FEN, hub.notify)
	if err != nil {
		hub.closeAll()
		s.writeDomainError(w, err)
		return
	}

	s.hubMu.Lock()
	s.hubs[id] = hub
	s.hubMu.Unlock()

	snap, err := snapshot(id, sess)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.log.Info("session_created",
		zap.String("session_id", id),
		zap.Int("skill_level", cfg.SkillLevel),
		zap.Int("min_think_ms", cfg.MinThinkMillis))
	writeJSON(w, http.StatusCreated, gatewaydto.CreateSessionResponse{
		State:     snap,
		ApproxElo: s.presets.ApproximateElo(cfg.SkillLevel, cfg.MinThinkMillis),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	snap, err := snapshot(id, sess)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewaydto.StateResponse{State: snap})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.manager.Release(id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.dropHub(id)
	s.log.Info("session_released", zap.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPosition(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	var req gatewaydto.SetPositionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		return
	}
	if err := sess.SetPosition(req.FEN); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.respondState(w, id, sess)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	var req gatewaydto.MoveRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		return
	}
	if err := s.applyMoveRequest(sess, req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.respondState(w, id, sess)
}

// applyMoveRequest dispatches on the request shape: coordinate text when
// present, otherwise one of the structured entry points.
func (s *Server) applyMoveRequest(sess *session.Session, req gatewaydto.MoveRequest) error {
	if req.Text != "" {
		return sess.ApplyTextMove(req.Text)
	}

	switch req.Kind {
	case "", "plain":
		from, to, err := parseFromTo(req.From, req.To)
		if err != nil {
			return err
		}
		return sess.ApplyCoordinateMove(from, to)
	case "castle":
		side := engine.KingSide
		switch req.Side {
		case "king", "":
			side = engine.KingSide
		case "queen":
			side = engine.QueenSide
		default:
			return fmt.Errorf("%w: castle side %q", engine.ErrIllegalMove, req.Side)
		}
		return sess.ApplyCastle(side)
	case "en_passant":
		from, err := engine.ParseSquare(req.From)
		if err != nil {
			return fmt.Errorf("%w: %v", engine.ErrIllegalMove, err)
		}
		return sess.ApplyEnPassant(from)
	case "promotion":
		from, to, err := parseFromTo(req.From, req.To)
		if err != nil {
			return err
		}
		kind := engine.Queen
		if req.Promotion != "" {
			k, ok := engine.ParsePieceKind(req.Promotion)
			if !ok {
				return fmt.Errorf("%w: promotion piece %q", engine.ErrIllegalMove, req.Promotion)
			}
			kind = k
		}
		return sess.ApplyPromotion(from, to, kind)
	default:
		return fmt.Errorf("%w: move kind %q", engine.ErrIllegalMove, req.Kind)
	}
}

func parseFromTo(fromText, toText string) (engine.Square, engine.Square, error) {
	from, err := engine.ParseSquare(fromText)
	if err != nil {
		return engine.SquareNone, engine.SquareNone, fmt.Errorf("%w: %v", engine.ErrIllegalMove, err)
	}
	to, err := engine.ParseSquare(toText)
	if err != nil {
		return engine.SquareNone, engine.SquareNone, fmt.Errorf("%w: %v", engine.ErrIllegalMove, err)
	}
	return from, to, nil
}

func (s *Server) handleThink(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	best, err := sess.Think(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	snap, err := snapshot(id, sess)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewaydto.ThinkResponse{
		BestMove: engine.Coordinate(best, false),
		State:    snap,
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	if err := sess.Undo(); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.respondState(w, id, sess)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	if err := sess.NewGame(r.Context()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.respondState(w, id, sess)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	draw, err := sess.IsDraw()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	fifty, err := sess.FiftyMoveCount()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewaydto.DrawResponse{Draw: draw, FiftyCount: fifty})
}

func (s *Server) handleLegalMoves(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	moves, err := sess.LegalMoveText()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewaydto.LegalMovesResponse{Moves: moves})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	var req gatewaydto.MatchRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		return
	}

	from, err := parseSquareList(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, gatewaydto.CodeInvalidRequest, err.Error())
		return
	}
	to, err := parseSquareList(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, gatewaydto.CodeInvalidRequest, err.Error())
		return
	}

	var match bool
	if req.Ordered {
		match, err = sess.OrderedLegalMoveMatch(from, to)
	} else {
		match, err = sess.UnorderedLegalMoveMatch(from, to)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewaydto.MatchResponse{Match: match})
}

func parseSquareList(texts []string) ([]engine.Square, error) {
	if texts == nil {
		return nil, nil
	}
	out := make([]engine.Square, 0, len(texts))
	for _, t := range texts {
		sq, err := engine.ParseSquare(t)
		if err != nil {
			return nil, err
		}
		out = append(out, sq)
	}
	return out, nil
}

func (s *Server) handleGetOptions(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	opts, err := sess.Options()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	views := make([]gatewaydto.OptionView, 0, len(opts))
	for i := range opts {
		o := &opts[i]
		views = append(views, gatewaydto.OptionView{
			Name:    o.Name,
			Kind:    o.Kind.String(),
			Value:   o.Value(),
			Default: o.Default,
			Min:     o.Min,
			Max:     o.Max,
			Vars:    o.Vars,
		})
	}
	writeJSON(w, http.StatusOK, gatewaydto.OptionsResponse{Options: views})
}

func (s *Server) handleSetOption(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	var req gatewaydto.SetOptionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		return
	}
	if err := sess.SetOption(req.Name, req.Value); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.log.Info("session_option_set",
		zap.String("session_id", id),
		zap.String("option", req.Name))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	tiers := s.presets.Tiers()
	views := make([]gatewaydto.TierView, 0, len(tiers))
	for _, t := range tiers {
		views = append(views, gatewaydto.TierView{
			Name:      t.Name,
			Skill:     t.Skill,
			ThinkMS:   t.ThinkMS,
			ApproxElo: s.presets.ApproximateElo(t.Skill, t.ThinkMS),
		})
	}
	writeJSON(w, http.StatusOK, gatewaydto.TiersResponse{Tiers: views})
}

func (s *Server) respondState(w http.ResponseWriter, id string, sess *session.Session) {
	snap, err := snapshot(id, sess)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gatewaydto.StateResponse{State: snap})
}
