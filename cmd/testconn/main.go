// Command testconn checks that the configured allocator backend is
// reachable and prints its counters without drawing from them. When NATS_URL
// is set it also sends an event through the bus and waits for it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/miniworld/modgen/internal/allocator"
	"github.com/miniworld/modgen/internal/config"
	"github.com/miniworld/modgen/internal/eventbus"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "testconn:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts := cfg.AllocatorOptions()
	fmt.Printf("backend: %s\n", opts.Backend)

	store, err := allocator.Open(ctx, opts, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	start := time.Now()
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	fmt.Printf("reachable in %s\n", time.Since(start).Round(time.Millisecond))

	state, err := store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read counters: %w", err)
	}
	fmt.Printf("next_id=%d next_result_id=%d\n", state.NextID, state.NextResultID)

	if cfg.NATSURL == "" {
		return nil
	}
	bus, err := eventbus.Connect(cfg.NATSURL, zap.NewNop())
	if err != nil {
		return err
	}
	defer bus.Close()
	rtt, err := bus.Echo(ctx)
	if err != nil {
		return fmt.Errorf("nats round trip: %w", err)
	}
	fmt.Printf("nats round trip on %s in %s\n", eventbus.SubjectPing, rtt.Round(time.Millisecond))
	return nil
}
