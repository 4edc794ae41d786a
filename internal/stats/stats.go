// Package stats derives review statistics from a deck snapshot.
package stats

import (
	"math"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

const (
	day = 24 * time.Hour

	// ActivityDays is how many trailing days Summary.Activity covers.
	ActivityDays = 90
	// UpcomingWindow bounds Summary.UpcomingReviews.
	UpcomingWindow = 7 * day
)

// RetentionPeriods are the look-back windows, in days, of Summary.Retention.
var RetentionPeriods = []int{1, 7, 14, 30, 60, 90}

// DayActivity is the number of reviews on one calendar day.
type DayActivity struct {
	Date    string `json:"date"`
	Reviews int    `json:"reviews"`
	Known   int    `json:"known"`
}

// Retention is the share of successful recalls within the last Days days.
type Retention struct {
	Days int `json:"days"`
	Rate int `json:"rate"`
}

// Summary is the aggregate view of a snapshot at a point in time.
type Summary struct {
	TotalReviews       int           `json:"totalReviews"`
	KnownReviews       int           `json:"knownReviews"`
	AccuracyPercentage int           `json:"accuracyPercentage"`
	CurrentStreak      int           `json:"currentStreak"`
	UpcomingReviews    int           `json:"upcomingReviews"`
	Activity           []DayActivity `json:"activity"`
	Retention          []Retention   `json:"retention"`
	OrphanedReviews    int           `json:"orphanedReviews"`
}

// Summarize computes the summary at now. Calendar days are taken in loc; a nil
// loc means UTC. Review events whose card no longer exists are counted in
// OrphanedReviews and left out of every other figure.
func Summarize(data domain.ReviewData, now time.Time, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	known := make(map[string]bool, len(data.Cards))
	for _, c := range data.Cards {
		known[c.ID] = true
	}

	var s Summary
	reviews := make([]domain.ReviewEvent, 0, len(data.Reviews))
	for _, r := range data.Reviews {
		if !known[r.CardID] {
			s.OrphanedReviews++
			continue
		}
		reviews = append(reviews, r)
	}

	s.TotalReviews = len(reviews)
	for _, r := range reviews {
		if r.Known {
			s.KnownReviews++
		}
	}
	s.AccuracyPercentage = percent(s.KnownReviews, s.TotalReviews)
	s.CurrentStreak = streak(reviews, now, loc)
	s.UpcomingReviews = upcoming(data.Cards, now)
	s.Activity = activity(reviews, now, loc)
	s.Retention = retention(reviews, now)
	return s
}

// Fields returns the summary as the loosely typed object carried in export
// files.
func (s Summary) Fields() map[string]any {
	activity := make([]any, len(s.Activity))
	for i, a := range s.Activity {
		activity[i] = map[string]any{"date": a.Date, "reviews": a.Reviews, "known": a.Known}
	}
	retention := make([]any, len(s.Retention))
	for i, r := range s.Retention {
		retention[i] = map[string]any{"days": r.Days, "rate": r.Rate}
	}
	return map[string]any{
		"totalReviews":       s.TotalReviews,
		"knownReviews":       s.KnownReviews,
		"accuracyPercentage": s.AccuracyPercentage,
		"currentStreak":      s.CurrentStreak,
		"upcomingReviews":    s.UpcomingReviews,
		"activity":           activity,
		"retention":          retention,
		"orphanedReviews":    s.OrphanedReviews,
	}
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// streak counts consecutive calendar days with at least one review, ending
// today or, when nothing was reviewed yet today, yesterday.
func streak(reviews []domain.ReviewEvent, now time.Time, loc *time.Location) int {
	days := make(map[string]bool, len(reviews))
	for _, r := range reviews {
		days[dayKey(r.Timestamp.Time(), loc)] = true
	}

	d := midnight(now)
	if !days[d.Format(time.DateOnly)] {
		d = d.AddDate(0, 0, -1)
	}
	n := 0
	for days[d.Format(time.DateOnly)] {
		n++
		d = d.AddDate(0, 0, -1)
	}
	return n
}

// upcoming counts cards that are not due yet but will be within the window.
// Both bounds are exclusive.
func upcoming(cards []domain.Card, now time.Time) int {
	at := domain.At(now)
	limit := at.Add(UpcomingWindow)
	n := 0
	for _, c := range cards {
		if c.NextReviewAt > at && c.NextReviewAt < limit {
			n++
		}
	}
	return n
}

// activity returns one entry per calendar day for the trailing ActivityDays,
// oldest first, ending today.
func activity(reviews []domain.ReviewEvent, now time.Time, loc *time.Location) []DayActivity {
	out := make([]DayActivity, ActivityDays)
	index := make(map[string]int, ActivityDays)
	start := midnight(now).AddDate(0, 0, -(ActivityDays - 1))
	for i := range out {
		key := start.AddDate(0, 0, i).Format(time.DateOnly)
		out[i].Date = key
		index[key] = i
	}

	for _, r := range reviews {
		i, ok := index[dayKey(r.Timestamp.Time(), loc)]
		if !ok {
			continue
		}
		out[i].Reviews++
		if r.Known {
			out[i].Known++
		}
	}
	return out
}

func retention(reviews []domain.ReviewEvent, now time.Time) []Retention {
	at := domain.At(now)
	out := make([]Retention, len(RetentionPeriods))
	for i, days := range RetentionPeriods {
		cutoff := at.Add(-time.Duration(days) * day)
		var total, known int
		for _, r := range reviews {
			if r.Timestamp < cutoff {
				continue
			}
			total++
			if r.Known {
				known++
			}
		}
		out[i] = Retention{Days: days, Rate: percent(known, total)}
	}
	return out
}
