package scheduler

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Params holds the constants of the ease-factor scheduling algorithm.
type Params struct {
	InitialEase   float64       `validate:"gtefield=MinEase,ltefield=MaxEase"`
	MinEase       float64       `validate:"gt=0"`
	MaxEase       float64       `validate:"gtefield=MinEase"`
	EaseBonus     float64       `validate:"gte=0"` // added on a successful recall
	EasePenalty   float64       `validate:"gte=0"` // subtracted on a failed recall
	FirstInterval int           `validate:"gte=1"` // days after the first success
	RelearnDelay  time.Duration `validate:"gt=0"`  // wait after a failure
	MaxInterval   int           `validate:"gtefield=FirstInterval"`
}

// DefaultParams returns the parameters the deck runs with unless configured.
func DefaultParams() Params {
	return Params{
		InitialEase:   2.5,
		MinEase:       1.3,
		MaxEase:       2.5,
		EaseBonus:     0.1,
		EasePenalty:   0.2,
		FirstInterval: 1,
		RelearnDelay:  time.Hour,
		MaxInterval:   36500,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports whether the parameters describe a usable schedule.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid scheduler params: %w", err)
	}
	return nil
}
