package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harunnryd/cortex/internal/api"
	"github.com/harunnryd/cortex/internal/console"
	"github.com/harunnryd/cortex/internal/transport"
)

// newConsole builds a console against the configured backend.
func newConsole() (*console.Console, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	client, err := api.NewFromConfig(cfg.Server)
	if err != nil {
		return nil, err
	}
	dialer := transport.NewSSEDialer(client.URL(cfg.Stream.Path))
	return console.New(cfg, client, dialer)
}

// executeWithConsole runs fn with a console and a context that ends on
// SIGINT or SIGTERM. The console is closed afterwards.
func executeWithConsole(fn func(ctx context.Context, c *console.Console) error) error {
	c, err := newConsole()
	if err != nil {
		return fmt.Errorf("failed to initialize console: %w", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, c)
}
