package domain

import "time"

// Millis is a point in time as integer milliseconds since the Unix epoch.
// It is the on-disk and on-wire representation of every timestamp.
type Millis int64

// At converts t to Millis.
func At(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

// Time converts m back to a time.Time in UTC.
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m)).UTC()
}

// Add returns m shifted by d, truncated to whole milliseconds.
func (m Millis) Add(d time.Duration) Millis {
	return m + Millis(d.Milliseconds())
}

// Card is a question/answer unit with its scheduling state.
type Card struct {
	ID             string  `json:"id" validate:"required"`
	Question       string  `json:"question" validate:"required"`
	Answer         string  `json:"answer" validate:"required"`
	Interval       int     `json:"interval" validate:"gte=0"`
	EaseFactor     float64 `json:"easeFactor" validate:"gte=1.3,lte=2.5"`
	ReviewCount    int     `json:"reviewCount" validate:"gte=0"`
	LastReviewedAt *Millis `json:"lastReviewedAt"` // nil until the first review.
	NextReviewAt   Millis  `json:"nextReviewAt"`
	Created        Millis  `json:"created"`
}

// Clone returns a copy of the card that shares no pointers with c.
func (c Card) Clone() Card {
	out := c
	if c.LastReviewedAt != nil {
		v := *c.LastReviewedAt
		out.LastReviewedAt = &v
	}
	return out
}

// IsDue reports whether the card may be shown at now.
func (c Card) IsDue(now time.Time) bool {
	return c.NextReviewAt <= At(now)
}

// ReviewEvent records a single outcome report for a card.
// CardID is not checked against the card set; events for deleted cards stay.
type ReviewEvent struct {
	ID        string `json:"id"`
	CardID    string `json:"cardId"`
	Known     bool   `json:"known"`
	Timestamp Millis `json:"timestamp"`
}

// ReviewData is the full persisted state: every card and the review log.
type ReviewData struct {
	Cards   []Card        `json:"cards"`
	Reviews []ReviewEvent `json:"reviews"`
}

// Clone returns a deep copy of the snapshot. Nil slices come back empty so the
// JSON form always carries arrays.
func (d ReviewData) Clone() ReviewData {
	out := ReviewData{
		Cards:   make([]Card, len(d.Cards)),
		Reviews: make([]ReviewEvent, len(d.Reviews)),
	}
	for i, c := range d.Cards {
		out.Cards[i] = c.Clone()
	}
	copy(out.Reviews, d.Reviews)
	return out
}

// Seed is an externally supplied card used to populate an empty store.
// ID is optional; a fresh one is generated when it is empty.
type Seed struct {
	ID       string
	Question string
	Answer   string
	Context  string
}
