package games

import (
	"errors"

	"sweeps-settlement-system/money"
)

var ErrInvalidPrizeRange = errors.New("prize range must satisfy 0 <= min <= max")

type TicketOutcome struct {
	Win   bool         `json:"win"`
	Prize money.Amount `json:"prize"`
	Draws []float64    `json:"draws"`
}

// DrawTicket decides a ticket once. A win pays uniformly in [min, max] minor units.
func DrawTicket(src Source, winProbability float64, min, max money.Amount) (TicketOutcome, error) {
	if min < 0 || max < min {
		return TicketOutcome{}, ErrInvalidPrizeRange
	}
	r := src.Float64()
	if r >= winProbability {
		return TicketOutcome{Draws: []float64{r}}, nil
	}

	p := src.Float64()
	span := int64(max-min) + 1
	prize := min + money.Amount(int64(p*float64(span)))
	if prize > max {
		prize = max
	}
	return TicketOutcome{Win: true, Prize: prize, Draws: []float64{r, p}}, nil
}
