package codec

import (
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Result is the outcome of ValidateImportedData. Cards is only filled when
// IsValid is true; warnings never affect validity.
type Result struct {
	IsValid       bool           `json:"isValid"`
	Errors        []Issue        `json:"errors"`
	Warnings      []Issue        `json:"warnings"`
	Cards         []domain.Card  `json:"cards"`
	Stats         map[string]any `json:"stats"`
	ReviewHistory []any          `json:"reviewHistory"`
}

// ValidateImportedData checks an untyped import payload and normalizes its
// cards. Every card is examined even after an error so the caller sees all
// problems at once.
func ValidateImportedData(payload any, now time.Time) Result {
	res := Result{
		IsValid:       true,
		Errors:        []Issue{},
		Warnings:      []Issue{},
		Cards:         []domain.Card{},
		ReviewHistory: []any{},
	}

	data, ok := payload.(map[string]any)
	if !ok {
		res.IsValid = false
		res.Errors = append(res.Errors, formatIssue("Invalid data format: Expected a JSON object"))
		return res
	}

	rawCards, ok := data["cards"].([]any)
	if !ok {
		res.IsValid = false
		res.Errors = append(res.Errors, formatIssue("Missing or invalid cards array"))
		return res
	}

	cards := make([]domain.Card, 0, len(rawCards))
	for i, raw := range rawCards {
		n := normalizeCard(raw, i, now)
		res.Warnings = append(res.Warnings, n.warnings...)
		if len(n.errors) > 0 {
			res.Errors = append(res.Errors, n.errors...)
			res.IsValid = false
			continue
		}
		cards = append(cards, n.card)
	}

	if rawStats, present := data["stats"]; present && rawStats != nil {
		if stats, ok := rawStats.(map[string]any); ok {
			res.Stats = stats
		} else {
			res.Warnings = append(res.Warnings, Issue{
				Kind:    KindDefault,
				Index:   -1,
				Field:   "stats",
				Message: "Invalid stats object format. Using default stats.",
			})
		}
	}

	if rawHistory, present := data["reviewHistory"]; present && rawHistory != nil {
		if history, ok := rawHistory.([]any); ok {
			res.ReviewHistory = history
		} else {
			res.Warnings = append(res.Warnings, Issue{
				Kind:    KindDefault,
				Index:   -1,
				Field:   "reviewHistory",
				Message: "Invalid review history format. Review history will be reset.",
			})
		}
	}

	if res.IsValid {
		res.Cards = cards
	}
	return res
}
