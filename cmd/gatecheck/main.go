// gatecheck smoke-checks a running gateway: it walks one session through
// create, events, moves, think, undo, draw query, and release, logging each
// step. Point it at a gateway with GATEWAY_BASE_URL.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/park285/chess-gateway/internal/gatewayclient"
	"github.com/park285/chess-gateway/pkg/gatewaydto"
)

func main() {
	baseURL := os.Getenv("GATEWAY_BASE_URL")
	if baseURL == "" {
		log.Fatal("GATEWAY_BASE_URL is required")
	}
	tier := os.Getenv("GATECHECK_TIER")
	if tier == "" {
		tier = "casual"
	}

	client := gatewayclient.NewClient(baseURL,
		gatewayclient.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := client.Healthz(ctx); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Println("/healthz ok")

	tiers, err := client.Tiers(ctx)
	if err != nil {
		log.Fatalf("/api/tiers error: %v", err)
	}
	log.Printf("tiers ok: %d presets", len(tiers.Tiers))

	created, err := client.CreateSession(ctx, gatewaydto.CreateSessionRequest{Tier: tier})
	if err != nil {
		log.Fatalf("create session error: %v", err)
	}
	id := created.State.SessionID
	log.Printf("session %s created: tier=%s approx_elo=%d", id, tier, created.ApproxElo)

	stream, err := client.OpenEvents(ctx, id)
	if err != nil {
		log.Printf("events error: %v", err)
	} else {
		defer stream.Close()
		go func() {
			for ev := range stream.Events() {
				log.Printf("event %s: move=%q turn=%s history=%d", ev.Kind, ev.MoveText, ev.Turn, ev.HistoryLen)
			}
		}()
	}

	state, err := client.Move(ctx, id, gatewaydto.MoveRequest{Text: "e2e4"})
	if err != nil {
		log.Fatalf("move error: %v", err)
	}
	log.Printf("move ok: turn=%s history=%d", state.State.Turn, len(state.State.Moves))

	think, err := client.Think(ctx, id)
	if err != nil {
		log.Fatalf("think error: %v", err)
	}
	log.Printf("think ok: best=%s", think.BestMove)

	if think.BestMove != "(none)" {
		if _, err := client.Move(ctx, id, gatewaydto.MoveRequest{Text: think.BestMove}); err != nil {
			log.Fatalf("apply best move error: %v", err)
		}
		log.Printf("applied best move %s", think.BestMove)
	}

	if _, err := client.Undo(ctx, id); err != nil {
		log.Fatalf("undo error: %v", err)
	}
	log.Println("undo ok")

	legal, err := client.LegalMoves(ctx, id)
	if err != nil {
		log.Fatalf("legal moves error: %v", err)
	}
	log.Printf("legal moves ok: %d moves", len(legal.Moves))

	draw, err := client.Draw(ctx, id)
	if err != nil {
		log.Fatalf("draw query error: %v", err)
	}
	log.Printf("draw ok: draw=%v fifty=%d", draw.Draw, draw.FiftyCount)

	if err := client.Release(ctx, id); err != nil {
		log.Fatalf("release error: %v", err)
	}
	log.Printf("session %s released", id)

	// give the event goroutine a moment to drain the close
	time.Sleep(200 * time.Millisecond)
}
