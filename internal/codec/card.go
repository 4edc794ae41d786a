package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/knol"
	"github.com/conorfennell/flashdeck/internal/scheduler"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names so issues read the same as the import file.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCard checks a card against the domain invariants.
func ValidateCard(c domain.Card) error {
	return validate.Struct(c)
}

// scheduling lists the fields that get defaults when an import omits them.
var scheduling = []string{"interval", "easeFactor", "reviewCount", "lastReviewedAt", "nextReviewAt", "created"}

// normalized is the outcome of turning one untyped card into a domain.Card.
type normalized struct {
	card     domain.Card
	warnings []Issue
	errors   []Issue
}

// normalizeCard converts one untyped card. Missing ids and scheduling fields are
// filled in and reported as warnings; an invalid question or answer is an
// error, but the rest of the card is still processed.
func normalizeCard(raw any, index int, now time.Time) normalized {
	var out normalized
	obj, ok := raw.(map[string]any)
	if !ok {
		out.errors = append(out.errors, Issue{
			Kind:    KindField,
			Index:   index,
			Message: fmt.Sprintf("Card at index %d is not an object", index),
		})
		return out
	}

	defaults := scheduler.DefaultParams().NewCard("", "", "", now)
	c := defaults
	var filled []string

	c.ID, ok = idValue(obj["id"])
	if !ok {
		c.ID = knol.NewID()
		out.warnings = append(out.warnings, Issue{
			Kind:    KindDefault,
			Index:   index,
			Field:   "id",
			Message: fmt.Sprintf("Card at index %d is missing an ID. A new ID will be generated.", index),
		})
	}
	c.Question, _ = obj["question"].(string)
	c.Answer, _ = obj["answer"].(string)

	for _, field := range scheduling {
		v, present := obj[field]
		if !present || !assignScheduling(&c, field, v) {
			filled = append(filled, field)
		}
	}

	if err := ValidateCard(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			out.errors = append(out.errors, Issue{Kind: KindField, Index: index, Message: err.Error()})
			return out
		}
		for _, fe := range verrs {
			switch fe.Field() {
			case "question", "answer":
				out.errors = append(out.errors, Issue{
					Kind:    KindField,
					Index:   index,
					Field:   fe.Field(),
					Message: fmt.Sprintf("Card at index %d has invalid or missing %s", index, fe.Field()),
				})
			case "interval":
				c.Interval = defaults.Interval
				filled = append(filled, fe.Field())
			case "easeFactor":
				c.EaseFactor = defaults.EaseFactor
				filled = append(filled, fe.Field())
			case "reviewCount":
				c.ReviewCount = defaults.ReviewCount
				filled = append(filled, fe.Field())
			}
		}
	}

	if len(filled) > 0 {
		out.warnings = append(out.warnings, Issue{
			Kind:    KindDefault,
			Index:   index,
			Field:   strings.Join(filled, ","),
			Message: fmt.Sprintf("Card at index %d is missing scheduling data (%s). Setting default values.", index, strings.Join(filled, ", ")),
		})
	}
	out.card = c
	return out
}

// assignScheduling copies one scheduling value onto c, reporting false when
// the value has the wrong type and the default was kept.
func assignScheduling(c *domain.Card, field string, v any) bool {
	switch field {
	case "interval":
		n, ok := asInt(v)
		if ok {
			c.Interval = int(n)
		}
		return ok
	case "easeFactor":
		f, ok := asFloat(v)
		if ok {
			c.EaseFactor = f
		}
		return ok
	case "reviewCount":
		n, ok := asInt(v)
		if ok {
			c.ReviewCount = int(n)
		}
		return ok
	case "lastReviewedAt":
		if v == nil {
			c.LastReviewedAt = nil
			return true
		}
		n, ok := asInt(v)
		if ok {
			at := domain.Millis(n)
			c.LastReviewedAt = &at
		}
		return ok
	case "nextReviewAt":
		n, ok := asInt(v)
		if ok {
			c.NextReviewAt = domain.Millis(n)
		}
		return ok
	case "created":
		n, ok := asInt(v)
		if ok {
			c.Created = domain.Millis(n)
		}
		return ok
	}
	return false
}

func idValue(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case json.Number:
		return id.String(), true
	case float64, int, int64:
		return fmt.Sprint(id), true
	}
	return "", false
}
