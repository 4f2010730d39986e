// Command codecity measures git repositories and draws them as a city.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/internal/cli"
)

// exitInterrupted is the shell's code for a process ended by SIGINT.
const exitInterrupted = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	switch {
	case err == nil:
		return
	case errors.Is(err, context.Canceled):
		os.Exit(exitInterrupted)
	default:
		fmt.Fprintln(os.Stderr, cli.ErrorLine(err))
		os.Exit(cli.ExitCode(err))
	}
}

func run(ctx context.Context) error {
	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()

	var (
		verbose  bool
		logLevel string
	)
	flags := root.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "shorthand for --log-level debug")
	flags.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	// Set the level before the config loads so its debug lines show.
	next := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if verbose {
			level = cli.LogDebug
		}
		c.SetLogLevel(level)
		if next == nil {
			return nil
		}
		return next(cmd, args)
	}

	return root.ExecuteContext(ctx)
}
