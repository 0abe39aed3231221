// Command chronotree grows and merges replicated causal histories.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/chronotree/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chronotree:", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
