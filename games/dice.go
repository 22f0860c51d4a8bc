package games

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"sweeps-settlement-system/money"
)

type Direction string

const (
	Over  Direction = "over"
	Under Direction = "under"
)

var (
	ErrInvalidTarget    = errors.New("target must be strictly between 0 and 100")
	ErrInvalidDirection = errors.New("direction must be over or under")
)

// houseNumerator fixes a 1% edge for every target.
var houseNumerator = decimal.NewFromInt(99)

type DiceOutcome struct {
	Outcome
	Roll      float64   `json:"roll"`
	Target    float64   `json:"target"`
	Direction Direction `json:"direction"`
}

// WinChance returns the percent chance of winning for a target and direction.
func WinChance(target float64, dir Direction) (decimal.Decimal, error) {
	if target <= 0 || target >= 100 {
		return decimal.Zero, ErrInvalidTarget
	}
	t := decimal.NewFromFloat(target)
	switch dir {
	case Under:
		return t, nil
	case Over:
		return decimal.NewFromInt(100).Sub(t), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
}

// Roll draws a value in [0,100) and settles it against target.
func Roll(src Source, bet money.Amount, target float64, dir Direction) (DiceOutcome, error) {
	chance, err := WinChance(target, dir)
	if err != nil {
		return DiceOutcome{}, err
	}
	r := src.Float64()
	roll := r * 100

	won := (dir == Over && roll > target) || (dir == Under && roll < target)
	out := DiceOutcome{Roll: roll, Target: target, Direction: dir}
	if !won {
		out.Outcome = lose(r)
		return out, nil
	}

	mult := houseNumerator.DivRound(chance, 8)
	out.Outcome = Outcome{
		Win:        true,
		Multiplier: mult,
		Payout:     bet.MulFloor(mult),
		Draws:      []float64{r},
	}
	return out, nil
}
