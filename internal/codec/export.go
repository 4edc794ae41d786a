package codec

import (
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Version stamps every export so future importers can tell formats apart.
const Version = "1.0.0"

// isoLayout matches JavaScript's Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

// ExportInput is what the caller hands to PrepareDataForExport. Stats and
// ReviewHistory are optional.
type ExportInput struct {
	Cards         []domain.Card
	Stats         map[string]any
	ReviewHistory []any
}

// ExportData is the export file document.
type ExportData struct {
	Cards         []domain.Card  `json:"cards"`
	Stats         map[string]any `json:"stats"`
	ReviewHistory []any          `json:"reviewHistory"`
	ExportDate    string         `json:"exportDate"`
	Version       string         `json:"version"`
}

// PrepareDataForExport builds the export document. Every field is present;
// missing aggregates become empty values.
func PrepareDataForExport(in ExportInput, now time.Time) ExportData {
	out := ExportData{
		Cards:         in.Cards,
		Stats:         in.Stats,
		ReviewHistory: in.ReviewHistory,
		ExportDate:    now.UTC().Format(isoLayout),
		Version:       Version,
	}
	if out.Cards == nil {
		out.Cards = []domain.Card{}
	}
	if out.Stats == nil {
		out.Stats = map[string]any{}
	}
	if out.ReviewHistory == nil {
		out.ReviewHistory = []any{}
	}
	return out
}

// HistoryFromEvents turns the typed review log into the opaque review history
// carried by export files.
func HistoryFromEvents(events []domain.ReviewEvent) []any {
	history := make([]any, len(events))
	for i, ev := range events {
		history[i] = map[string]any{
			"id":        ev.ID,
			"cardId":    ev.CardID,
			"known":     ev.Known,
			"timestamp": int64(ev.Timestamp),
		}
	}
	return history
}

// FileName is the default name for an export written at now.
func FileName(now time.Time) string {
	return "flashcards-export-" + now.UTC().Format("2006-01-02") + ".json"
}
