package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/flashdeck/internal/codec"
	"github.com/conorfennell/flashdeck/internal/config"
	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/persist"
	"github.com/conorfennell/flashdeck/internal/seed"
	"github.com/conorfennell/flashdeck/internal/storage"
	"github.com/conorfennell/flashdeck/internal/web"
)

// session is an opened store with its hydrated deck.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  storage.Store
	deck   *deck.Deck
}

func (s *session) Close() error {
	return s.store.Close()
}

func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// open hydrates the deck from the configured store, seeding an empty store
// from the configured seed source.
func open(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	store, err := storage.OpenStore(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	logger.Debug("Store opened", "backend", cfg.Store)

	seeds, err := seed.Load(ctx, seed.Source{
		Dir:      cfg.Seed.Dir,
		Git:      cfg.Seed.Git,
		CacheDir: cfg.Seed.Cache,
		Include:  cfg.Seed.Include,
	}, logger)
	if err != nil {
		logger.Warn("Ignoring seed source", "error", err)
	}

	params := cfg.Params()
	gw := persist.New(store, cfg.Key, persist.WithLogger(logger), persist.WithParams(params))
	data := gw.Hydrate(ctx, seeds, time.Now())

	d := deck.New(data,
		deck.WithPersister(gw),
		deck.WithParams(params),
		deck.WithLogger(logger),
		deck.WithLocation(time.Local),
	)
	return &session{cfg: cfg, logger: logger, store: store, deck: d}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCmd() *cobra.Command {
	var metrics bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deck over the JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var opts []web.Option
			if metrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				opts = append(opts, web.WithMetrics(web.NewMetrics(reg)))
			}

			srv := &http.Server{
				Addr:              s.cfg.Addr,
				Handler:           web.NewServer(s.deck, s.logger, opts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				s.logger.Info("Starting server", "addr", s.cfg.Addr)
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				s.logger.Info("Shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&metrics, "metrics", true, "Serve Prometheus metrics on /metrics")
	return cmd
}

func dueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "Show the current card and due counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			out := map[string]any{"counts": s.deck.DueCounts(time.Now())}
			if card, ok := s.deck.Current(); ok {
				out["current"] = card
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func addCmd() *cobra.Command {
	var question, answer string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			card, err := s.deck.AddCard(cmd.Context(), question, answer)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), card)
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "Question text")
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "Answer text")
	return cmd
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a card; its review history is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.deck.RemoveCard(cmd.Context(), args[0]) {
				return fmt.Errorf("card %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed card %s\n", args[0])
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an export file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			now := time.Now()
			data := s.deck.Export(now)
			if out == "-" {
				return writeJSON(cmd.OutOrStdout(), data)
			}
			if out == "" {
				out = codec.FileName(now)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			if err := writeJSON(f, data); err != nil {
				f.Close()
				return fmt.Errorf("failed to write export file: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d cards to %s\n", len(data.Cards), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", `Output file; defaults to flashcards-export-<date>.json, "-" writes to stdout`)
	return cmd
}

// readPayload decodes the JSON document at path, or stdin when path is "-".
func readPayload(cmd *cobra.Command, path string) (any, error) {
	if path == "-" {
		return codec.Decode(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return codec.Decode(f)
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the cards with the contents of an import file",
		Long: `Replace the cards with the contents of an import file.

The file is either a snapshot or export document with a "cards" array, or a
bare array of {"question", "answer"} objects. Reviews in the file are appended
to the existing review history; events already in it are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			payload, err := readPayload(cmd, args[0])
			if err != nil {
				return err
			}
			if err := s.deck.Import(cmd.Context(), payload); err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d cards\n", len(s.deck.Cards()))
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check an import file without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := loadConfig(cmd); err != nil {
				return err
			}
			payload, err := readPayload(cmd, args[0])
			if err != nil {
				return err
			}

			res := codec.ValidateImportedData(payload, time.Now())
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.IsValid {
				return fmt.Errorf("import file is invalid: %d error(s)", len(res.Errors))
			}
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored deck; the next run starts from the seeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes every card and review; pass --yes to confirm")
			}
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := storage.OpenStore(cmd.Context(), cfg.StorageOptions())
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), cfg.Key); err != nil {
				return err
			}
			logger.Info("Deleted stored deck", "backend", cfg.Store, "key", cfg.Key)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted deck %s\n", cfg.Key)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting the stored deck")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show review statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return writeJSON(cmd.OutOrStdout(), s.deck.Stats(time.Now()))
		},
	}
}
