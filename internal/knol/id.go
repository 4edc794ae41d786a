package knol

import "github.com/google/uuid"

// NewID returns a collision-resistant identifier for cards and review events.
// UUIDv7 puts a millisecond timestamp ahead of random bits and is monotonic
// within a process, so ids also sort by creation order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the system randomness source does.
		return uuid.NewString()
	}
	return id.String()
}
