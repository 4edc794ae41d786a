package codec

import (
	"fmt"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/knol"
	"github.com/conorfennell/flashdeck/internal/scheduler"
)

// NormalizeSnapshot is the permissive import path. It accepts either a
// {cards, reviews} snapshot or a bare array of {question, answer} objects and
// returns the typed cards and reviews it contains, plus the warnings raised
// while filling in defaults.
//
// A snapshot without "reviews" falls back to "reviewHistory" so an export
// file re-imports its review log. Review entries that cannot be read are
// skipped with a warning. Any card with an invalid question or answer fails
// the whole import with a *ValidationError.
func NormalizeSnapshot(payload any, now time.Time) (domain.ReviewData, []Issue, error) {
	switch p := payload.(type) {
	case map[string]any:
		return normalizeObject(p, now, false)
	case []any:
		return normalizeList(p, now)
	}
	return domain.ReviewData{}, nil, fmt.Errorf("%w: expected an object or an array", ErrFormat)
}

// RecoverSnapshot reads a stored {cards, reviews} snapshot. Unlike
// NormalizeSnapshot, a card with an invalid question or answer is dropped and
// reported as a warning, so one bad card does not cost the rest of the deck.
func RecoverSnapshot(payload any, now time.Time) (domain.ReviewData, []Issue, error) {
	p, ok := payload.(map[string]any)
	if !ok {
		return domain.ReviewData{}, nil, fmt.Errorf("%w: expected an object", ErrFormat)
	}
	return normalizeObject(p, now, true)
}

func normalizeObject(p map[string]any, now time.Time, dropInvalid bool) (domain.ReviewData, []Issue, error) {
	rawCards, ok := p["cards"].([]any)
	if !ok {
		return domain.ReviewData{}, nil, fmt.Errorf("%w: missing or invalid cards array", ErrFormat)
	}

	var (
		data     = domain.ReviewData{Cards: make([]domain.Card, 0, len(rawCards))}
		warnings []Issue
		errs     []Issue
	)
	for i, raw := range rawCards {
		n := normalizeCard(raw, i, now)
		warnings = append(warnings, n.warnings...)
		if len(n.errors) > 0 && dropInvalid {
			warnings = append(warnings, n.errors...)
			continue
		}
		errs = append(errs, n.errors...)
		data.Cards = append(data.Cards, n.card)
	}
	if len(errs) > 0 {
		return domain.ReviewData{}, warnings, &ValidationError{Issues: errs}
	}

	rawReviews, present := p["reviews"]
	if !present {
		rawReviews = p["reviewHistory"]
	}
	list, _ := rawReviews.([]any)
	data.Reviews = make([]domain.ReviewEvent, 0, len(list))
	for i, raw := range list {
		ev, ok := reviewEvent(raw, now)
		if !ok {
			warnings = append(warnings, Issue{
				Kind:    KindDefault,
				Index:   i,
				Field:   "reviews",
				Message: fmt.Sprintf("Review at index %d is malformed and was skipped", i),
			})
			continue
		}
		data.Reviews = append(data.Reviews, ev)
	}
	return data, warnings, nil
}

func normalizeList(list []any, now time.Time) (domain.ReviewData, []Issue, error) {
	params := scheduler.DefaultParams()
	data := domain.ReviewData{
		Cards:   make([]domain.Card, 0, len(list)),
		Reviews: []domain.ReviewEvent{},
	}

	var errs []Issue
	for i, raw := range list {
		obj, _ := raw.(map[string]any)
		q, _ := obj["question"].(string)
		a, _ := obj["answer"].(string)

		if q == "" || a == "" {
			errs = append(errs, Issue{
				Kind:    KindField,
				Index:   i,
				Message: fmt.Sprintf("Card at index %d has invalid or missing question or answer", i),
			})
			continue
		}
		data.Cards = append(data.Cards, params.NewCard(knol.NewID(), q, a, now))
	}
	if len(errs) > 0 {
		return domain.ReviewData{}, nil, &ValidationError{Issues: errs}
	}
	return data, nil, nil
}

// reviewEvent reads one review entry. cardId and known are required; a missing
// id or timestamp is filled in.
func reviewEvent(raw any, now time.Time) (domain.ReviewEvent, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return domain.ReviewEvent{}, false
	}
	cardID, ok := idValue(obj["cardId"])
	if !ok {
		return domain.ReviewEvent{}, false
	}
	known, ok := obj["known"].(bool)
	if !ok {
		return domain.ReviewEvent{}, false
	}

	ev := domain.ReviewEvent{CardID: cardID, Known: known, Timestamp: domain.At(now)}
	if ev.ID, ok = idValue(obj["id"]); !ok {
		ev.ID = knol.NewID()
	}
	if ts, ok := asInt(obj["timestamp"]); ok {
		ev.Timestamp = domain.Millis(ts)
	}
	return ev, true
}
