package scheduler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/domain"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestDefaultParamsValid(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	bad := DefaultParams()
	bad.MinEase = 3
	assert.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.RelearnDelay = 0
	assert.Error(t, bad.Validate())
}

func TestNewCard(t *testing.T) {
	c := DefaultParams().NewCard("c1", "Q", "A", t0)

	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, 0, c.Interval)
	assert.Equal(t, 2.5, c.EaseFactor)
	assert.Equal(t, 0, c.ReviewCount)
	assert.Nil(t, c.LastReviewedAt)
	assert.Equal(t, domain.At(t0), c.NextReviewAt)
	assert.Equal(t, domain.At(t0), c.Created)
	assert.True(t, c.IsDue(t0))
}

func TestMarkKnown(t *testing.T) {
	p := DefaultParams()

	t.Run("first success schedules one day out", func(t *testing.T) {
		card := p.NewCard("c1", "Q", "A", t0)
		c, ev := p.MarkKnown(card, t0)

		assert.Equal(t, 1, c.Interval)
		assert.Equal(t, 2.5, c.EaseFactor)
		assert.Equal(t, 1, c.ReviewCount)
		require.NotNil(t, c.LastReviewedAt)
		assert.Equal(t, domain.At(t0), *c.LastReviewedAt)
		assert.Equal(t, domain.At(t0.Add(24*time.Hour)), c.NextReviewAt)

		assert.Equal(t, "c1", ev.CardID)
		assert.True(t, ev.Known)
		assert.Equal(t, domain.At(t0), ev.Timestamp)
		assert.NotEmpty(t, ev.ID)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		card := p.NewCard("c1", "Q", "A", t0)
		_, _ = p.MarkKnown(card, t0)
		assert.Equal(t, 0, card.Interval)
		assert.Nil(t, card.LastReviewedAt)
	})

	t.Run("grows by ease factor with rounding", func(t *testing.T) {
		card := p.NewCard("c1", "Q", "A", t0)
		card.Interval = 3
		card.EaseFactor = 1.5
		c, _ := p.MarkKnown(card, t0)
		// 3 * 1.5 = 4.5 rounds half away from zero.
		assert.Equal(t, 5, c.Interval)
		assert.InDelta(t, 1.6, c.EaseFactor, 1e-9)
		assert.Equal(t, domain.At(t0.Add(5*24*time.Hour)), c.NextReviewAt)
	})

	t.Run("interval is capped", func(t *testing.T) {
		card := p.NewCard("c1", "Q", "A", t0)
		card.Interval = p.MaxInterval
		c, _ := p.MarkKnown(card, t0)
		assert.Equal(t, p.MaxInterval, c.Interval)
	})
}

func TestIntervalGrowthAtCeiling(t *testing.T) {
	p := DefaultParams()
	card := p.NewCard("c1", "Q", "A", t0)
	card.Interval = 1

	want := []int{3, 8, 20, 50, 125}
	now := t0
	prev := card.Interval
	for i, w := range want {
		card, _ = p.MarkKnown(card, now)
		assert.Equal(t, w, card.Interval, "step %d", i)
		assert.Greater(t, card.Interval, prev)
		assert.Equal(t, 2.5, card.EaseFactor)
		prev = card.Interval
		now = card.NextReviewAt.Time()
	}
}

func TestMarkNotKnown(t *testing.T) {
	p := DefaultParams()

	states := []domain.Card{
		p.NewCard("new", "Q", "A", t0),
		{ID: "mature", Question: "Q", Answer: "A", Interval: 120, EaseFactor: 2.5, ReviewCount: 9, NextReviewAt: domain.At(t0)},
		{ID: "floor", Question: "Q", Answer: "A", Interval: 4, EaseFactor: 1.3, ReviewCount: 3, NextReviewAt: domain.At(t0)},
	}
	for _, card := range states {
		t.Run(card.ID, func(t *testing.T) {
			c, ev := p.MarkNotKnown(card, t0)

			assert.Equal(t, 0, c.Interval)
			assert.Equal(t, card.ReviewCount+1, c.ReviewCount)
			assert.Equal(t, domain.At(t0.Add(time.Hour)), c.NextReviewAt)
			assert.LessOrEqual(t, c.NextReviewAt.Time().Sub(t0), time.Hour)
			assert.GreaterOrEqual(t, c.EaseFactor, 1.3)
			assert.InDelta(t, max(card.EaseFactor-0.2, 1.3), c.EaseFactor, 1e-9)
			assert.False(t, ev.Known)
			assert.Equal(t, card.ID, ev.CardID)
		})
	}
}

func TestEaseFactorStaysBounded(t *testing.T) {
	p := DefaultParams()
	rng := rand.New(rand.NewSource(42))
	card := p.NewCard("c1", "Q", "A", t0)
	now := t0

	for i := 0; i < 2000; i++ {
		if rng.Intn(2) == 0 {
			card, _ = p.MarkKnown(card, now)
		} else {
			card, _ = p.MarkNotKnown(card, now)
		}
		require.GreaterOrEqual(t, card.EaseFactor, 1.3, "step %d", i)
		require.LessOrEqual(t, card.EaseFactor, 2.5, "step %d", i)
		require.GreaterOrEqual(t, card.Interval, 0, "step %d", i)
		now = now.Add(time.Hour)
	}
}
