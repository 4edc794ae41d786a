// Package persist bridges the live deck to a durable key-value store: it
// hydrates the deck once at session start and writes a full snapshot after
// every mutation.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/conorfennell/flashdeck/internal/codec"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/knol"
	"github.com/conorfennell/flashdeck/internal/scheduler"
)

// DefaultKey is the logical key the snapshot is stored under.
const DefaultKey = "flashcard-data"

// ErrNotHydrated is returned by Persist before Hydrate has run, so defaults
// never overwrite state that has not been loaded yet.
var ErrNotHydrated = errors.New("persist: snapshot written before hydration")

// Store is the durable key-value contract the gateway needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// StorageReadError describes a snapshot that could not be read or parsed.
// Hydrate logs it and falls back; it never reaches the caller.
type StorageReadError struct {
	Key string
	Err error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("failed to read snapshot %q: %v", e.Key, e.Err)
}

func (e *StorageReadError) Unwrap() error {
	return e.Err
}

// Gateway loads and saves the deck snapshot.
type Gateway struct {
	store  Store
	key    string
	params scheduler.Params
	logger *slog.Logger

	mu       sync.Mutex
	hydrated bool
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithParams sets the parameters used to initialize seed cards.
func WithParams(p scheduler.Params) Option {
	return func(g *Gateway) { g.params = p }
}

// New returns a gateway storing the snapshot under key in store.
func New(store Store, key string, opts ...Option) *Gateway {
	if key == "" {
		key = DefaultKey
	}
	g := &Gateway{
		store:  store,
		key:    key,
		params: scheduler.DefaultParams(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Hydrate returns the state the session starts from. A stored snapshot with at
// least one card wins and seeds are ignored. Otherwise the seeds become fresh
// cards with an empty review log and that state is written back. A snapshot
// that cannot be read is logged and treated as absent.
func (g *Gateway) Hydrate(ctx context.Context, seeds []domain.Seed, now time.Time) domain.ReviewData {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() { g.hydrated = true }()

	data, err := g.load(ctx, now)
	if err != nil {
		var readErr *StorageReadError
		if errors.As(err, &readErr) {
			g.logger.Warn("Discarding unreadable snapshot", "key", g.key, "error", readErr.Err)
		}
	}
	if len(data.Cards) > 0 {
		g.logger.Info("Loaded snapshot", "key", g.key, "cards", len(data.Cards), "reviews", len(data.Reviews))
		return data
	}

	if len(seeds) == 0 {
		g.logger.Info("Starting with an empty deck", "key", g.key)
		return domain.ReviewData{Cards: []domain.Card{}, Reviews: []domain.ReviewEvent{}}
	}

	fresh := domain.ReviewData{
		Cards:   make([]domain.Card, 0, len(seeds)),
		Reviews: []domain.ReviewEvent{},
	}
	for _, s := range seeds {
		id := s.ID
		if id == "" {
			id = knol.NewID()
		}
		card := g.params.NewCard(id, s.Question, s.Answer, now)
		if err := codec.ValidateCard(card); err != nil {
			g.logger.Warn("Skipping invalid seed", "question", s.Question, "error", err)
			continue
		}
		fresh.Cards = append(fresh.Cards, card)
	}
	if len(fresh.Cards) == 0 {
		g.logger.Info("Starting with an empty deck", "key", g.key)
		return fresh
	}
	g.logger.Info("Initialized deck from seeds", "key", g.key, "cards", len(fresh.Cards))

	if err := g.write(ctx, fresh); err != nil {
		g.logger.Error("Failed to persist seeded deck", "key", g.key, "error", err)
	}
	return fresh
}

// load reads and decodes the stored snapshot. A missing key is not an error.
// Snapshots from older versions get defaults for missing scheduling fields,
// and cards without a question or answer are dropped.
func (g *Gateway) load(ctx context.Context, now time.Time) (domain.ReviewData, error) {
	raw, ok, err := g.store.Get(ctx, g.key)
	if err != nil {
		return domain.ReviewData{}, &StorageReadError{Key: g.key, Err: err}
	}
	if !ok {
		return domain.ReviewData{}, nil
	}

	payload, err := codec.DecodeBytes(raw)
	if err != nil {
		return domain.ReviewData{}, &StorageReadError{Key: g.key, Err: err}
	}
	data, warnings, err := codec.RecoverSnapshot(payload, now)
	if err != nil {
		return domain.ReviewData{}, &StorageReadError{Key: g.key, Err: err}
	}
	if len(warnings) > 0 {
		g.logger.Warn("Snapshot needed repairs", "key", g.key, "warnings", len(warnings))
	}
	return data, nil
}

// Persist writes the full snapshot. Writes are serialized, and refused until
// Hydrate has completed.
func (g *Gateway) Persist(ctx context.Context, data domain.ReviewData) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.hydrated {
		return ErrNotHydrated
	}
	return g.write(ctx, data)
}

func (g *Gateway) write(ctx context.Context, data domain.ReviewData) error {
	// Clone turns nil slices into empty ones so the document always has arrays.
	doc, err := json.Marshal(data.Clone())
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := g.store.Put(ctx, g.key, doc); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
