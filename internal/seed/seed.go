// Package seed collects the cards a brand-new deck starts with from markdown
// files in a local directory or a git repository.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conorfennell/flashdeck/internal/codec"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/knol"
	"github.com/conorfennell/flashdeck/internal/parser"
	"github.com/conorfennell/flashdeck/internal/scheduler"
)

// DefaultInclude selects every markdown file below the seed directory.
const DefaultInclude = "**/*.md"

// Source says where seed decks live. Git, when set, is cloned or pulled into
// CacheDir and Dir is then read relative to the checkout. Include is a
// doublestar glob matched against slash-separated paths relative to Dir.
type Source struct {
	Dir      string
	Git      string
	CacheDir string
	Include  string
}

// Load returns the seeds found under src. Files that fail to parse and cards
// missing a question or answer are logged and skipped; identical cards found in
// several files are returned once.
func Load(ctx context.Context, src Source, logger *slog.Logger) ([]domain.Seed, error) {
	if logger == nil {
		logger = slog.Default()
	}

	root := src.Dir
	if src.Git != "" {
		local, err := gitURLToLocalPath(src.CacheDir, src.Git)
		if err != nil {
			return nil, err
		}
		if err := syncRepo(ctx, logger, src.Git, local); err != nil {
			return nil, err
		}
		root = filepath.Join(local, src.Dir)
	}
	if root == "" {
		return nil, nil
	}
	include := src.Include
	if include == "" {
		include = DefaultInclude
	}
	if !doublestar.ValidatePattern(include) {
		return nil, fmt.Errorf("bad include pattern %q", include)
	}

	var (
		seeds       []domain.Seed
		parseErrors []error
		seen        = make(map[string]bool)
	)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		matched, err := doublestar.Match(include, filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("bad include pattern %q: %w", include, err)
		}
		if !matched {
			return nil
		}

		fileSeeds, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		for _, s := range fileSeeds {
			s.ID = knol.Hash(s)
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			if s.Context != "" {
				s.Answer = s.Answer + "\n\n" + s.Context
			}
			if err := validSeed(s); err != nil {
				logger.Warn("Skipping seed without question or answer", "file", rel, "question", s.Question, "error", err)
				continue
			}
			seeds = append(seeds, s)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk seed directory %s: %w", root, walkErr)
	}

	for _, err := range parseErrors {
		logger.Warn("Skipping unreadable seed file", "error", err)
	}
	logger.Info("Seed scan complete", "path", root, "seeds", len(seeds), "errors", len(parseErrors))

	if len(seeds) == 0 && len(parseErrors) > 0 {
		return nil, errors.Join(parseErrors...)
	}
	return seeds, nil
}

// validSeed reports whether s would make a card that survives a reload.
func validSeed(s domain.Seed) error {
	return codec.ValidateCard(scheduler.DefaultParams().NewCard(s.ID, s.Question, s.Answer, time.Time{}))
}
