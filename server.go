//go:build server

// +build server

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codepad/internal/wsrpc"
)

// Server mode: no native dialogs exist, so the storage adapter runs
// handle-less and the browser frontend supplies uploads and receives
// forced downloads.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := NewApp()
	app.Startup(ctx)

	server := wsrpc.NewServer(app)
	app.SetEventHubBroadcaster(server)

	if _, err := server.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "start server: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	server.Stop(ctx)
	app.Shutdown(ctx)
}
