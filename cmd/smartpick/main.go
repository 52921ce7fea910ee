package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/use-agent/smartpick/cmd/smartpick/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := commands.Execute(ctx)
	stop()
	os.Exit(code)
}
