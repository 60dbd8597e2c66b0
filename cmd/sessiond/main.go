// Command sessiond serves a single-user web shell whose pages are gated by
// the goSession route guards.
//
// Configuration comes from SESSIOND_* environment variables (and .env).
// With SESSIOND_AUTH_URL unset, a demo accounts API is mounted under /api
// with three seeded users, all with password "demo-password":
// student@example.com, instructor@example.com and admin@example.com.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/goSession/internal/app"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := app.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	if err := a.Run(ctx); err != nil {
		logger.Error("sessiond stopped", "error", err)
		os.Exit(1)
	}
}
