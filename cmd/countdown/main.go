// Command countdown follows one session's tick loop from a terminal: it
// subscribes to the session through the same broadcaster the SSE endpoint
// uses and prints every event until the stream closes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Druk83/TrainingGround-sub001/internal/config"
	"github.com/Druk83/TrainingGround-sub001/internal/redis"
	"github.com/Druk83/TrainingGround-sub001/internal/session"
	"github.com/Druk83/TrainingGround-sub001/internal/store"
	"github.com/Druk83/TrainingGround-sub001/internal/timer"
)

func main() {
	sessionID := flag.String("session", "", "session id to follow")
	flag.Parse()

	if *sessionID == "" {
		fmt.Fprintln(os.Stderr, "usage: countdown -session <session-id>")
		os.Exit(2)
	}

	cfg := config.Load()

	rdb, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer rdb.Close()

	kv := store.NewRedis(rdb.Client, nil)
	sessions := session.NewRedisStore(kv, cfg.SessionDuration, nil)
	broadcaster := timer.NewBroadcaster(sessions, cfg.TickInterval, nil)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	events, err := broadcaster.Subscribe(ctx, *sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "session not found or no longer active")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "subscribe: %v\n", err)
		os.Exit(1)
	}

	for ev := range events {
		payload, err := json.Marshal(ev.Payload())
		if err != nil {
			continue
		}
		fmt.Printf("%s %s\n", ev.Name(), payload)
	}

	fmt.Println("stream closed")
}
