// Package uci drives Stockfish worker processes over the UCI wire protocol
// and pools them for reuse across game sessions.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond
)

// Options is the spawn profile applied to a worker right after the
// handshake. Workers are pooled per profile; per-session changes are layered
// on top by the searcher adapter.
type Options struct {
	Threads            int
	HashMB             int
	SkillLevel         int
	MinThinkMillis     int
	MoveOverheadMillis int
}

// SearchSpec describes one position/go exchange.
type SearchSpec struct {
	FEN            string
	Moves          []string
	MoveTimeMillis int
}

// Engine is a single worker process. Writes are serialized by mu; search
// holds the wire for a full position/go/bestmove exchange.
type Engine struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
	search sync.Mutex
}

func NewEngine(ctx context.Context, binaryPath string, opt Options) (*Engine, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	e := &Engine{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdoutPipe),
	}

	if err := e.initialize(ctx, opt); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// Search runs one position/go exchange and returns the worker's best move in
// coordinate notation. Terminal positions come back as the literal "(none)".
func (e *Engine) Search(ctx context.Context, spec SearchSpec) (string, error) {
	e.search.Lock()
	defer e.search.Unlock()

	positionCmd := buildPositionCommand(spec.FEN, spec.Moves)
	if err := e.send(positionCmd); err != nil {
		return "", fmt.Errorf("send position: %w", err)
	}

	goCmd, err := buildGoCommand(spec)
	if err != nil {
		return "", err
	}
	if err := e.send(goCmd); err != nil {
		return "", fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, computeSearchTimeout(spec))
	defer cancel()

	for {
		line, err := e.readLine(searchCtx)
		if err != nil {
			log.Printf("[uci] read error (position=%s, go=%s): %v",
				strings.TrimSpace(positionCmd), strings.TrimSpace(goCmd), err)
			return "", fmt.Errorf("read line: %w", err)
		}
		if !strings.HasPrefix(line, "bestmove") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			return "", fmt.Errorf("malformed bestmove line %q", line)
		}
		return parts[1], nil
	}
}

// SetOption forwards a single setoption command. Buttons are pressed by
// passing an empty value.
func (e *Engine) SetOption(name, value string) error {
	var cmd string
	if value == "" {
		cmd = fmt.Sprintf("setoption name %s\n", name)
	} else {
		cmd = fmt.Sprintf("setoption name %s value %s\n", name, value)
	}
	if err := e.send(cmd); err != nil {
		return fmt.Errorf("set option %s: %w", name, err)
	}
	return nil
}

func (e *Engine) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := e.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := e.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (e *Engine) NewGame(ctx context.Context) error {
	if err := e.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}

	for attempt := 1; attempt <= newGameRetryAttempts; attempt++ {
		err := e.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts {
			return err
		}
		log.Printf("[uci] ensure ready retry %d/%d after ucinewgame: %v", attempt, newGameRetryAttempts, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin != nil {
		_, _ = io.WriteString(e.stdin, "quit\n")
		e.stdin.Close()
	}

	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}

	if e.cmd != nil {
		return e.cmd.Wait()
	}
	return nil
}

func (e *Engine) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := e.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := e.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := e.applyBaseline(opt); err != nil {
		return err
	}

	if err := e.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := e.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}

	return nil
}

func (e *Engine) applyBaseline(opt Options) error {
	threadCount := opt.Threads
	if threadCount <= 0 {
		threadCount = 1
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threadCount),
		fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB),
		fmt.Sprintf("setoption name Skill Level value %d\n", opt.SkillLevel),
		fmt.Sprintf("setoption name Minimum Thinking Time value %d\n", opt.MinThinkMillis),
		fmt.Sprintf("setoption name Move Overhead value %d\n", opt.MoveOverheadMillis),
	}
	for _, cmd := range cmds {
		if err := e.send(cmd); err != nil {
			return fmt.Errorf("apply baseline options: %w", err)
		}
	}
	return nil
}

func (e *Engine) send(msg string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := io.WriteString(e.stdin, msg)
	return err
}

func (e *Engine) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := e.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (e *Engine) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := e.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}

func validateOptions(opt Options) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.HashMB <= 0 {
		return fmt.Errorf("hash size must be > 0: %d", opt.HashMB)
	}
	if opt.MinThinkMillis < 0 {
		return fmt.Errorf("minimum thinking time must be >= 0: %d", opt.MinThinkMillis)
	}
	if opt.MoveOverheadMillis < 0 {
		return fmt.Errorf("move overhead must be >= 0: %d", opt.MoveOverheadMillis)
	}
	return nil
}

func buildPositionCommand(fen string, moves []string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(fen)
	}
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	sb.WriteString("\n")
	return sb.String()
}

func buildGoCommand(spec SearchSpec) (string, error) {
	if spec.MoveTimeMillis <= 0 {
		return "", fmt.Errorf("no search limits specified")
	}
	return "go movetime " + strconv.Itoa(spec.MoveTimeMillis) + "\n", nil
}

func computeSearchTimeout(spec SearchSpec) time.Duration {
	ms := spec.MoveTimeMillis + 2000
	return time.Duration(ms) * time.Millisecond * 3
}
