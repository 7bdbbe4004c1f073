package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"MarketCast/internal/cli"
	"MarketCast/internal/di"
	"MarketCast/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(func(cfg *config.Config) (cli.Runner, error) {
		return di.InitializePipeline(cfg)
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
