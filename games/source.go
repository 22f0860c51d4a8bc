// Package games holds the outcome generators. They are pure functions of the
// draws taken from a Source, so a scripted Source replays any result.
package games

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"sweeps-settlement-system/money"
)

// Source yields uniform values in [0,1).
type Source interface {
	Float64() float64
}

type systemSource struct{}

func (systemSource) Float64() float64 { return rand.Float64() }

// SystemSource draws from the runtime's ChaCha8 generator, which is safe for
// concurrent use.
func SystemSource() Source { return systemSource{} }

// Outcome is the common result of one wager.
type Outcome struct {
	Win        bool            `json:"win"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     money.Amount    `json:"payout"`
	Draws      []float64       `json:"draws"`
}

func lose(draws ...float64) Outcome {
	return Outcome{Multiplier: decimal.Zero, Draws: draws}
}
