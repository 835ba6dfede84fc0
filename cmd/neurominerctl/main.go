// neurominerctl evolves and inspects network echo strategies.
//
// Usage:
//
//	neurominerctl run [--config run.yaml] [--generations N] [--resume --run-id ID]
//	neurominerctl replay (--checkpoint best_individual.json | --run-id ID) [--games M]
//	neurominerctl weights (--checkpoint best_individual.json | --run-id ID)
//	neurominerctl runs [--limit N]
//	neurominerctl show --run-id ID
//	neurominerctl export --run-id ID --out DIR
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(&rootOptions{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
