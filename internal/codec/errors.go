package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormat is returned when an import payload is not an object or has no
// usable cards array. Nothing is imported.
var ErrFormat = errors.New("codec: invalid import format")

// Kind classifies an import issue.
type Kind string

const (
	KindFormat  Kind = "format"  // payload shape is unusable; fatal
	KindField   Kind = "field"   // a card's question or answer is invalid; fatal to validity
	KindDefault Kind = "default" // a value was missing and has been filled in; warning only
)

// Issue is one itemized import error or warning. Index is the position of the
// offending card, or -1 when the issue concerns the payload as a whole.
type Issue struct {
	Kind    Kind   `json:"kind"`
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (i Issue) Error() string {
	return i.Message
}

// ValidationError carries the field errors that made an import invalid.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.Message
	}
	return fmt.Sprintf("codec: %d invalid card field(s): %s", len(e.Issues), strings.Join(msgs, "; "))
}

func formatIssue(msg string) Issue {
	return Issue{Kind: KindFormat, Index: -1, Message: msg}
}
