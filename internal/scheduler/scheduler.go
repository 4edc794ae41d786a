// Package scheduler implements the spaced-repetition rules: how a card is
// rescheduled after a review and which card is shown next.
package scheduler

import (
	"math"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/knol"
)

const day = 24 * time.Hour

// NewCard returns a never-reviewed card that is due immediately.
func (p Params) NewCard(id, question, answer string, now time.Time) domain.Card {
	at := domain.At(now)
	return domain.Card{
		ID:           id,
		Question:     question,
		Answer:       answer,
		Interval:     0,
		EaseFactor:   p.InitialEase,
		ReviewCount:  0,
		NextReviewAt: at,
		Created:      at,
	}
}

// MarkKnown reschedules the card after a successful recall at now.
// The input card is not mutated.
func (p Params) MarkKnown(card domain.Card, now time.Time) (domain.Card, domain.ReviewEvent) {
	c := card.Clone()

	if c.Interval == 0 {
		c.Interval = p.FirstInterval
	} else {
		// math.Round rounds half away from zero.
		c.Interval = p.clampInterval(math.Round(float64(c.Interval) * c.EaseFactor))
	}
	c.EaseFactor = math.Min(c.EaseFactor+p.EaseBonus, p.MaxEase)

	return p.stamp(c, now, time.Duration(c.Interval)*day), p.event(c, true, now)
}

// MarkNotKnown sends the card back to short-cycle relearning after a failed
// recall at now. The input card is not mutated.
func (p Params) MarkNotKnown(card domain.Card, now time.Time) (domain.Card, domain.ReviewEvent) {
	c := card.Clone()

	c.Interval = 0
	c.EaseFactor = math.Max(c.EaseFactor-p.EasePenalty, p.MinEase)

	return p.stamp(c, now, p.RelearnDelay), p.event(c, false, now)
}

// stamp records the review itself and schedules the next one after wait.
func (p Params) stamp(c domain.Card, now time.Time, wait time.Duration) domain.Card {
	at := domain.At(now)
	c.ReviewCount++
	c.LastReviewedAt = &at
	c.NextReviewAt = at.Add(wait)
	return c
}

func (p Params) event(c domain.Card, known bool, now time.Time) domain.ReviewEvent {
	return domain.ReviewEvent{
		ID:        knol.NewID(),
		CardID:    c.ID,
		Known:     known,
		Timestamp: domain.At(now),
	}
}

// clampInterval keeps a grown interval inside [FirstInterval, MaxInterval].
// Without the upper cap the interval overflows time.Duration within a few
// dozen successes.
func (p Params) clampInterval(days float64) int {
	if days > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	if days < float64(p.FirstInterval) {
		return p.FirstInterval
	}
	return int(days)
}
