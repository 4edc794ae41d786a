package scheduler

import (
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Counts buckets cards by when they become due.
type Counts struct {
	DueNow      int `json:"dueNow"`      // nextReviewAt <= now
	DueToday    int `json:"dueToday"`    // (now, now+1d]
	DueTomorrow int `json:"dueTomorrow"` // (now+1d, now+2d]
	DueThisWeek int `json:"dueThisWeek"` // (now+2d, now+7d]
	Total       int `json:"total"`
}

// DueCounts counts cards per bucket at now. A card exactly on a bucket
// boundary is counted in the earlier bucket; cards due later than a week are
// only part of Total.
func DueCounts(cards []domain.Card, now time.Time) Counts {
	at := domain.At(now)
	oneDay, twoDays, week := at.Add(day), at.Add(2*day), at.Add(7*day)

	counts := Counts{Total: len(cards)}
	for _, c := range cards {
		switch next := c.NextReviewAt; {
		case next <= at:
			counts.DueNow++
		case next <= oneDay:
			counts.DueToday++
		case next <= twoDays:
			counts.DueTomorrow++
		case next <= week:
			counts.DueThisWeek++
		}
	}
	return counts
}
