package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashdeck/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flashdeck",
		Short: "Spaced-repetition flashcards",
		Long: `flashdeck schedules flashcard reviews with a spaced-repetition algorithm.

The deck lives in SQLite (default), Redis or memory. An empty deck is seeded
from markdown Q:/A: files in a directory or git repository.

Settings come from defaults, a YAML file (--config), FLASHDECK_* environment
variables and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		serveCmd(),
		dueCmd(),
		addCmd(),
		removeCmd(),
		exportCmd(),
		importCmd(),
		validateCmd(),
		statsCmd(),
		resetCmd(),
	)
	return cmd
}
