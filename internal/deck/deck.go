// Package deck holds the live card store and review log of one study session
// and exposes the operations a front end drives it with.
package deck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/flashdeck/internal/codec"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/knol"
	"github.com/conorfennell/flashdeck/internal/scheduler"
	"github.com/conorfennell/flashdeck/internal/stats"
)

// ErrInvalidCard is returned by AddCard when the question or answer is empty.
var ErrInvalidCard = errors.New("deck: invalid card")

// Persister saves a full snapshot. persist.Gateway implements it.
type Persister interface {
	Persist(ctx context.Context, data domain.ReviewData) error
}

// Deck is the session-owned card store and review log. It is safe for
// concurrent use; every mutation is persisted before the lock is released so
// snapshots reach the persister in mutation order.
type Deck struct {
	mu      sync.Mutex
	cards   []domain.Card
	index   map[string]int
	queue   *scheduler.Queue
	reviews []domain.ReviewEvent

	params    scheduler.Params
	clock     func() time.Time
	loc       *time.Location
	persister Persister
	logger    *slog.Logger
}

// Option configures a Deck.
type Option func(*Deck)

// WithPersister sets where snapshots are written after each mutation. Without
// one the deck lives in memory only.
func WithPersister(p Persister) Option {
	return func(d *Deck) { d.persister = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Deck) { d.clock = now }
}

// WithParams sets the scheduling parameters.
func WithParams(p scheduler.Params) Option {
	return func(d *Deck) { d.params = p }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Deck) { d.logger = l }
}

// WithLocation sets the time zone calendar days are counted in by Stats.
func WithLocation(loc *time.Location) Option {
	return func(d *Deck) { d.loc = loc }
}

// New returns a deck holding a copy of data, typically the result of
// persist.Gateway.Hydrate.
func New(data domain.ReviewData, opts ...Option) *Deck {
	d := &Deck{
		params: scheduler.DefaultParams(),
		clock:  time.Now,
		loc:    time.UTC,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	snap := data.Clone()
	d.reset(snap.Cards, snap.Reviews)
	return d
}

// reset replaces the whole state and rebuilds the selection queue. Duplicate
// card ids are given fresh ids so every card stays addressable.
func (d *Deck) reset(cards []domain.Card, reviews []domain.ReviewEvent) {
	d.cards = cards
	d.reviews = reviews
	d.index = make(map[string]int, len(cards))
	d.queue = scheduler.NewQueue()
	for i := range d.cards {
		if _, dup := d.index[d.cards[i].ID]; dup {
			fresh := knol.NewID()
			d.logger.Warn("Renaming card with duplicate id", "id", d.cards[i].ID, "new_id", fresh)
			d.cards[i].ID = fresh
		}
		d.index[d.cards[i].ID] = i
		d.queue.Push(d.cards[i])
	}
}

// Current returns the card to show now, or false when the deck is empty.
func (d *Deck) Current() (domain.Card, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.currentLocked()
	if !ok {
		return domain.Card{}, false
	}
	return c.Clone(), true
}

func (d *Deck) currentLocked() (domain.Card, bool) {
	id, ok := d.queue.Peek()
	if !ok {
		return domain.Card{}, false
	}
	return d.cards[d.index[id]], true
}

// MarkKnown records a successful recall of the current card and returns the
// rescheduled card. It returns false when the deck is empty.
func (d *Deck) MarkKnown(ctx context.Context) (domain.Card, bool) {
	return d.review(ctx, d.params.MarkKnown)
}

// MarkNotKnown records a failed recall of the current card.
func (d *Deck) MarkNotKnown(ctx context.Context) (domain.Card, bool) {
	return d.review(ctx, d.params.MarkNotKnown)
}

func (d *Deck) review(ctx context.Context, outcome func(domain.Card, time.Time) (domain.Card, domain.ReviewEvent)) (domain.Card, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.currentLocked()
	if !ok {
		return domain.Card{}, false
	}
	updated, event := outcome(current, d.clock())

	d.cards[d.index[updated.ID]] = updated
	d.reviews = append(d.reviews, event)
	d.queue.Push(updated)

	d.logger.Debug("Card reviewed", "id", updated.ID, "known", event.Known, "interval", updated.Interval)
	d.persistLocked(ctx)
	return updated.Clone(), true
}

// AddCard creates a new card that is due immediately.
func (d *Deck) AddCard(ctx context.Context, question, answer string) (domain.Card, error) {
	question, answer = strings.TrimSpace(question), strings.TrimSpace(answer)
	card := d.params.NewCard(knol.NewID(), question, answer, d.clock())
	if err := codec.ValidateCard(card); err != nil {
		return domain.Card{}, fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.index[card.ID] = len(d.cards)
	d.cards = append(d.cards, card)
	d.queue.Push(card)

	d.logger.Info("Card added", "id", card.ID)
	d.persistLocked(ctx)
	return card.Clone(), nil
}

// RemoveCard deletes the card with the given id and reports whether it
// existed. Review events for the card are kept.
func (d *Deck) RemoveCard(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.index[id]
	if !ok {
		return false
	}
	d.cards = append(d.cards[:i], d.cards[i+1:]...)
	delete(d.index, id)
	for j := i; j < len(d.cards); j++ {
		d.index[d.cards[j].ID] = j
	}
	d.queue.Remove(id)

	d.logger.Info("Card removed", "id", id)
	d.persistLocked(ctx)
	return true
}

// DueCounts buckets the cards by when they become due relative to now.
func (d *Deck) DueCounts(now time.Time) scheduler.Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return scheduler.DueCounts(d.cards, now)
}

// ExportSnapshot returns a deep copy of the full state.
func (d *Deck) ExportSnapshot() domain.ReviewData {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Deck) snapshotLocked() domain.ReviewData {
	return domain.ReviewData{Cards: d.cards, Reviews: d.reviews}.Clone()
}

// Cards returns a copy of every card in store order.
func (d *Deck) Cards() []domain.Card {
	return d.ExportSnapshot().Cards
}

// Reviews returns a copy of the review log in append order.
func (d *Deck) Reviews() []domain.ReviewEvent {
	return d.ExportSnapshot().Reviews
}

// Stats summarizes the review log at now.
func (d *Deck) Stats(now time.Time) stats.Summary {
	return stats.Summarize(d.ExportSnapshot(), now, d.loc)
}

// Export builds the export file document at now, including statistics and
// the review log as its review history.
func (d *Deck) Export(now time.Time) codec.ExportData {
	snap := d.ExportSnapshot()
	return codec.PrepareDataForExport(codec.ExportInput{
		Cards:         snap.Cards,
		Stats:         stats.Summarize(snap, now, d.loc).Fields(),
		ReviewHistory: codec.HistoryFromEvents(snap.Reviews),
	}, now)
}

// Import replaces the card set with the cards in payload and appends its
// reviews to the existing log, skipping events whose id is already there. payload is an untyped decoded JSON value,
// either a snapshot object or a bare array of question/answer pairs. On error
// the deck is left unchanged.
func (d *Deck) Import(ctx context.Context, payload any) error {
	data, warnings, err := codec.NormalizeSnapshot(payload, d.clock())
	if err != nil {
		d.logger.Warn("Import rejected", "error", err)
		return err
	}
	for _, w := range warnings {
		d.logger.Debug("Import repaired value", "index", w.Index, "field", w.Field, "message", w.Message)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	known := make(map[string]bool, len(d.reviews))
	reviews := make([]domain.ReviewEvent, 0, len(d.reviews)+len(data.Reviews))
	for _, ev := range d.reviews {
		known[ev.ID] = true
		reviews = append(reviews, ev)
	}
	added := 0
	for _, ev := range data.Reviews {
		if known[ev.ID] {
			continue
		}
		known[ev.ID] = true
		reviews = append(reviews, ev)
		added++
	}
	d.reset(data.Cards, reviews)

	d.logger.Info("Imported cards", "cards", len(d.cards), "reviews", added, "warnings", len(warnings))
	d.persistLocked(ctx)
	return nil
}

// ImportSnapshot is Import reduced to a success flag.
func (d *Deck) ImportSnapshot(ctx context.Context, payload any) bool {
	return d.Import(ctx, payload) == nil
}

// persistLocked writes the current state. Failures are logged; the in-memory
// state stays authoritative for the rest of the session.
func (d *Deck) persistLocked(ctx context.Context) {
	if d.persister == nil {
		return
	}
	if err := d.persister.Persist(ctx, d.snapshotLocked()); err != nil {
		d.logger.Error("Failed to persist deck", "error", err)
	}
}
