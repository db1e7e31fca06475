package main

import (
	"context"
	"os/signal"
	"syscall"

	"memslink/cmd/memslink/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	cmd.Execute(ctx)
}
