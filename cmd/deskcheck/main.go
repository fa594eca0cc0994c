// deskcheck probes a running desk server: health, session creation, a
// couple of opening moves, an undo, and a final state read. Useful as a
// smoke test after deployment.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/deskchess/deskchess/internal/deskclient"
)

func main() {
	baseURL := flag.String("base-url", "http://127.0.0.1:8430", "desk server base URL")
	timeControl := flag.Int("tc", 0, "time control in seconds (0 = server default)")
	flag.Parse()

	client := deskclient.NewClient(*baseURL, deskclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Println("/healthz ok")

	state, err := client.CreateSession(ctx, *timeControl)
	if err != nil {
		log.Fatalf("create session error: %v", err)
	}
	log.Printf("session created: id=%s tc=%d status=%q", state.ID, state.TimeControl, state.StatusText)

	for _, mv := range [][2]string{{"e2", "e4"}, {"e7", "e5"}} {
		resp, err := client.Move(ctx, state.ID, mv[0], mv[1])
		if err != nil {
			log.Fatalf("move %s%s error: %v", mv[0], mv[1], err)
		}
		if !resp.Accepted {
			log.Fatalf("move %s%s rejected: %s", mv[0], mv[1], resp.Reason)
		}
		log.Printf("move %s%s ok: %s [%s / %s]", mv[0], mv[1],
			resp.State.StatusText, resp.State.WhiteClock, resp.State.BlackClock)
	}

	// An illegal move must bounce without touching the game.
	resp, err := client.Move(ctx, state.ID, "e4", "e6")
	if err != nil {
		log.Fatalf("illegal move probe error: %v", err)
	}
	if resp.Accepted {
		log.Fatal("illegal move e4e6 was accepted")
	}
	log.Printf("illegal move bounced: %s", resp.Reason)

	if _, err := client.Undo(ctx, state.ID); err != nil {
		log.Fatalf("undo error: %v", err)
	}
	log.Println("undo ok")

	final, err := client.State(ctx, state.ID)
	if err != nil {
		log.Fatalf("state error: %v", err)
	}
	log.Printf("final: status=%q white=%v black=%v", final.StatusText, final.WhiteMoves, final.BlackMoves)

	ids, err := client.Sessions(ctx)
	if err != nil {
		log.Fatalf("list sessions error: %v", err)
	}
	log.Printf("live sessions: %d", len(ids))
}
