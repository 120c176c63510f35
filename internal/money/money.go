// Package money holds amount ranges and the seeded picking of amounts from them.
package money

import (
	"fmt"
	"math/rand"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// Range is an inclusive range of whole currency units.
type Range struct {
	Min int64 `yaml:"min" validate:"gt=0"`
	Max int64 `yaml:"max" validate:"gtefield=Min"`
}

// Fixed returns a range that always yields n.
func Fixed(n int64) Range {
	return Range{Min: n, Max: n}
}

// Validate reports whether the range is usable for picking.
func (r Range) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("range %d..%d: need 0 < min <= max", r.Min, r.Max)
	}
	return nil
}

// Pick returns an amount within the range using rnd.
// rnd must not be shared between goroutines.
func (r Range) Pick(rnd *rand.Rand) decimal.Decimal {
	if r.Max <= r.Min || rnd == nil {
		return decimal.NewFromInt(r.Min)
	}
	return decimal.NewFromInt(r.Min + rnd.Int63n(r.Max-r.Min+1))
}

func (r Range) String() string {
	if r.Min == r.Max {
		return fmt.Sprintf("%d", r.Min)
	}
	return fmt.Sprintf("%d..%d", r.Min, r.Max)
}
