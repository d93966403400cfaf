package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/textileplan/backend/internal/interfaces/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.New(cli.DefaultBootstrap).Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
