// Command pulse is a terminal client for the ratings service: it submits
// and clears ratings and draws the live rate graph.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "pulse:", err)
		stop()
		os.Exit(1)
	}
}
