package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/park285/chess-gateway/internal/engine"
)

// stubSearcher records worker traffic and plays back a scripted best move.
type stubSearcher struct {
	mu       sync.Mutex
	options  map[string]string
	searches []SearchRequest
	newGames int
	closes   int

	result    string
	searchErr error
	started   chan struct{} // receives one signal per Search call when set
	gate      chan struct{} // Search blocks until closed when set
}

func newStubSearcher(result string) *stubSearcher {
	return &stubSearcher{options: make(map[string]string), result: result}
}

func (f *stubSearcher) SetOption(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.options[name] = value
	return nil
}

func (f *stubSearcher) Search(ctx context.Context, req SearchRequest) (string, error) {
	f.mu.Lock()
	f.searches = append(f.searches, req)
	started, gate := f.started, f.gate
	result, err := f.result, f.searchErr
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return result, err
}

func (f *stubSearcher) NewGame(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newGames++
	return nil
}

func (f *stubSearcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *stubSearcher) option(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options[name]
}

func (f *stubSearcher) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *stubSearcher) lastSearch(t *testing.T) SearchRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.searches) == 0 {
		t.Fatalf("no search recorded")
	}
	return f.searches[len(f.searches)-1]
}

func sq(t *testing.T, text string) engine.Square {
	t.Helper()
	s, err := engine.ParseSquare(text)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", text, err)
	}
	return s
}

func newTestSession(t *testing.T, fen string, notify Notifier) (*Session, *stubSearcher) {
	t.Helper()
	stub := newStubSearcher("(none)")
	sess, err := New(stub, Config{SkillLevel: 20, MinThinkMillis: 100}, zap.NewNop(), notify)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sess.Init(context.Background(), fen); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return sess, stub
}

func TestInitPushesOptionsAndStartsReady(t *testing.T) {
	sess, stub := newTestSession(t, "", nil)

	if got := sess.State(); got != StateReady {
		t.Fatalf("state after init = %v", got)
	}
	fen, err := sess.FEN()
	if err != nil || fen != engine.StartFEN {
		t.Fatalf("FEN = %q, err %v", fen, err)
	}
	if got := stub.option("Skill Level"); got != "20" {
		t.Fatalf("pushed skill level = %q", got)
	}
	if got := stub.option("Minimum Thinking Time"); got != "100" {
		t.Fatalf("pushed thinking time = %q", got)
	}
}

func TestInitRejectsBadFEN(t *testing.T) {
	stub := newStubSearcher("(none)")
	sess, err := New(stub, Config{SkillLevel: 20, MinThinkMillis: 100}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sess.Init(context.Background(), "not a fen"); !errors.Is(err, engine.ErrInvalidFEN) {
		t.Fatalf("Init error = %v", err)
	}
	if got := sess.State(); got != StateUninitialized {
		t.Fatalf("failed init changed state to %v", got)
	}
}

func TestOperationsBeforeInit(t *testing.T) {
	stub := newStubSearcher("(none)")
	sess, err := New(stub, Config{}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := sess.ApplyCoordinateMove(sq(t, "e2"), sq(t, "e4")); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("apply before init = %v", err)
	}
	if err := sess.Undo(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("undo before init = %v", err)
	}
	if _, err := sess.IsDraw(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("isDraw before init = %v", err)
	}
	if _, err := sess.Think(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("think before init = %v", err)
	}
}

func TestApplyMoveAppendsHistoryAndNotifies(t *testing.T) {
	var events []Event
	sess, _ := newTestSession(t, "", func(ev Event) { events = append(events, ev) })
	events = nil // drop the init position event

	if err := sess.ApplyCoordinateMove(sq(t, "e2"), sq(t, "e4")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	hist, err := sess.History()
	if err != nil || len(hist) != 1 {
		t.Fatalf("history = %v, err %v", hist, err)
	}
	if len(events) != 1 || events[0].Kind != EventMove {
		t.Fatalf("events = %+v", events)
	}
	if events[0].MoveText != "e2e4" || events[0].HistoryLen != 1 {
		t.Fatalf("move event = %+v", events[0])
	}
	if turn, _ := sess.Turn(); turn != engine.Black {
		t.Fatalf("turn after e2e4 = %v", turn)
	}
}

func TestApplyIllegalMoveLeavesStateAlone(t *testing.T) {
	sess, _ := newTestSession(t, "", nil)

	err := sess.ApplyCoordinateMove(sq(t, "e2"), sq(t, "e5"))
	if !errors.Is(err, engine.ErrIllegalMove) {
		t.Fatalf("apply illegal = %v", err)
	}
	hist, _ := sess.History()
	if len(hist) != 0 {
		t.Fatalf("history grew on failed apply: %v", hist)
	}
}

func TestSpecialMoveEntryPoints(t *testing.T) {
	sess, _ := newTestSession(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", nil)
	if err := sess.ApplyCastle(engine.KingSide); err != nil {
		t.Fatalf("castle: %v", err)
	}

	sess, _ = newTestSession(t, "k7/8/8/3pP3/8/8/8/K7 w - d6 0 1", nil)
	if err := sess.ApplyEnPassant(sq(t, "e5")); err != nil {
		t.Fatalf("en passant: %v", err)
	}

	sess, _ = newTestSession(t, "8/P6k/8/8/8/8/8/7K w - - 0 1", nil)
	if err := sess.ApplyPromotion(sq(t, "a7"), sq(t, "a8"), engine.NoKind); err != nil {
		t.Fatalf("promotion: %v", err)
	}
	hist, _ := sess.History()
	if len(hist) != 1 || hist[0].Promo() != engine.Queen {
		t.Fatalf("promotion defaulted to %v", hist[0].Promo())
	}
}

func TestApplyThenUndoRestoresPosition(t *testing.T) {
	var events []Event
	sess, _ := newTestSession(t, "", func(ev Event) { events = append(events, ev) })

	before, _ := sess.FEN()
	if err := sess.ApplyCoordinateMove(sq(t, "e2"), sq(t, "e4")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	events = nil
	if err := sess.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}

	after, _ := sess.FEN()
	if after != before {
		t.Fatalf("undo did not restore position:\n before %q\n after  %q", before, after)
	}
	hist, _ := sess.History()
	if len(hist) != 0 {
		t.Fatalf("history after undo = %v", hist)
	}
	if len(events) != 1 || events[0].Kind != EventUndo || events[0].MoveText != "e2e4" {
		t.Fatalf("undo event = %+v", events)
	}
}

func TestUndoFromCustomStartPosition(t *testing.T) {
	const fen = "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"
	sess, _ := newTestSession(t, fen, nil)

	before, _ := sess.FEN()
	if err := sess.ApplyCastle(engine.QueenSide); err != nil {
		t.Fatalf("castle: %v", err)
	}
	if err := sess.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	after, _ := sess.FEN()
	if after != before {
		t.Fatalf("undo from custom start:\n before %q\n after  %q", before, after)
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	sess, _ := newTestSession(t, "", nil)
	if err := sess.Undo(); !errors.Is(err, ErrEmptyHistory) {
		t.Fatalf("undo on empty history = %v", err)
	}
}

func TestNewGameClearsSearchStateAndHistory(t *testing.T) {
	sess, stub := newTestSession(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", nil)
	if err := sess.ApplyCastle(engine.KingSide); err != nil {
		t.Fatalf("castle: %v", err)
	}

	if err := sess.NewGame(context.Background()); err != nil {
		t.Fatalf("new game: %v", err)
	}
	if stub.newGames != 1 {
		t.Fatalf("worker new-game calls = %d", stub.newGames)
	}
	fen, _ := sess.FEN()
	if fen != engine.StartFEN {
		t.Fatalf("new game FEN = %q", fen)
	}
	hist, _ := sess.History()
	if len(hist) != 0 {
		t.Fatalf("new game history = %v", hist)
	}
}

func TestSetPositionKeepsSearchState(t *testing.T) {
	const fen = "k7/8/8/3pP3/8/8/8/K7 w - d6 0 1"
	sess, stub := newTestSession(t, "", nil)
	if err := sess.ApplyCoordinateMove(sq(t, "e2"), sq(t, "e4")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if err := sess.SetPosition(fen); err != nil {
		t.Fatalf("set position: %v", err)
	}
	if stub.newGames != 0 {
		t.Fatalf("set position cleared search state")
	}
	hist, _ := sess.History()
	if len(hist) != 0 {
		t.Fatalf("set position kept history: %v", hist)
	}

	// The loaded FEN is the new undo baseline.
	if err := sess.ApplyEnPassant(sq(t, "e5")); err != nil {
		t.Fatalf("en passant: %v", err)
	}
	if err := sess.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	got, _ := sess.FEN()
	if got != fen {
		t.Fatalf("undo baseline = %q, want %q", got, fen)
	}

	if err := sess.SetPosition("junk"); !errors.Is(err, engine.ErrInvalidFEN) {
		t.Fatalf("set position junk = %v", err)
	}
}

func TestReleaseIsTerminal(t *testing.T) {
	sess, stub := newTestSession(t, "", nil)

	if err := sess.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if stub.closes != 1 {
		t.Fatalf("searcher closes = %d", stub.closes)
	}
	if got := sess.State(); got != StateReleased {
		t.Fatalf("state = %v", got)
	}

	if err := sess.ApplyCoordinateMove(sq(t, "e2"), sq(t, "e4")); !errors.Is(err, ErrSessionReleased) {
		t.Fatalf("apply after release = %v", err)
	}
	if _, err := sess.IsDraw(); !errors.Is(err, ErrSessionReleased) {
		t.Fatalf("isDraw after release = %v", err)
	}
	if err := sess.Release(); !errors.Is(err, ErrSessionReleased) {
		t.Fatalf("double release = %v", err)
	}
	if err := sess.SetOption("Hash", "32"); !errors.Is(err, ErrSessionReleased) {
		t.Fatalf("set option after release = %v", err)
	}
}

func TestReinitAfterRelease(t *testing.T) {
	sess, _ := newTestSession(t, "", nil)
	if err := sess.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	if err := sess.Init(context.Background(), ""); err != nil {
		t.Fatalf("re-init: %v", err)
	}
	if got := sess.State(); got != StateReady {
		t.Fatalf("state after re-init = %v", got)
	}
	if err := sess.ApplyCoordinateMove(sq(t, "g1"), sq(t, "f3")); err != nil {
		t.Fatalf("apply after re-init: %v", err)
	}
}

func TestSetOptionForwardsToWorker(t *testing.T) {
	sess, stub := newTestSession(t, "", nil)

	if err := sess.SetOption("Hash", "64"); err != nil {
		t.Fatalf("set option: %v", err)
	}
	if got := stub.option("Hash"); got != "64" {
		t.Fatalf("forwarded hash = %q", got)
	}

	if err := sess.SetOption("Skill Level", "99"); err == nil {
		t.Fatalf("out-of-range option accepted")
	}
	if err := sess.SetOption("Clear Hash", ""); err != nil {
		t.Fatalf("button press: %v", err)
	}
	if got := stub.option("Clear Hash"); got != "" {
		t.Fatalf("button forwarded with value %q", got)
	}
}

func TestChess960OptionFlipsDisplayMode(t *testing.T) {
	sess, _ := newTestSession(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", nil)

	if err := sess.SetOption("UCI_Chess960", "true"); err != nil {
		t.Fatalf("set option: %v", err)
	}
	if err := sess.ApplyCastle(engine.KingSide); err != nil {
		t.Fatalf("castle: %v", err)
	}
	hist, _ := sess.History()
	if got := engine.Coordinate(hist[0], true); got != "e1h1" {
		t.Fatalf("chess960 castle text = %q", got)
	}
}

func TestDrawQueries(t *testing.T) {
	sess, _ := newTestSession(t, "k7/8/8/8/8/8/4N3/7K w - - 100 80", nil)

	draw, err := sess.IsDraw()
	if err != nil || !draw {
		t.Fatalf("isDraw = %v, %v", draw, err)
	}
	count, err := sess.FiftyMoveCount()
	if err != nil || count != 100 {
		t.Fatalf("fifty count = %d, %v", count, err)
	}

	ok, err := sess.OrderedLegalMoveMatch(nil, nil)
	if err != nil || !ok {
		t.Fatalf("ordered match at saturated clock = %v, %v", ok, err)
	}
	ok, err = sess.UnorderedLegalMoveMatch(nil, nil)
	if err != nil || !ok {
		t.Fatalf("unordered match at saturated clock = %v, %v", ok, err)
	}
}

func TestLegalMovesStartPosition(t *testing.T) {
	sess, _ := newTestSession(t, "", nil)
	moves, err := sess.LegalMoves()
	if err != nil {
		t.Fatalf("legal moves: %v", err)
	}
	if len(moves) != 20 {
		t.Fatalf("start position legal moves = %d", len(moves))
	}
}
