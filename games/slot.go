package games

import (
	"errors"

	"github.com/shopspring/decimal"

	"sweeps-settlement-system/money"
)

var ErrInvalidRTP = errors.New("rtp must be within (0, 100]")

type slotTier struct {
	below      float64
	multiplier int64
}

// Tier draw thresholds. Anything above the last bound pays the base tier.
var slotTiers = []slotTier{
	{below: 0.01, multiplier: 50},
	{below: 0.10, multiplier: 10},
}

const slotBaseMultiplier = 2

// Spin plays one slot round. The first draw decides the win against rtp
// percent, the second picks the payout tier. Tier odds are fixed and not
// calibrated to rtp.
func Spin(src Source, bet money.Amount, rtp float64) (Outcome, error) {
	if rtp <= 0 || rtp > 100 {
		return Outcome{}, ErrInvalidRTP
	}
	r := src.Float64()
	if r >= rtp/100 {
		return lose(r), nil
	}

	tierDraw := src.Float64()
	mult := int64(slotBaseMultiplier)
	for _, t := range slotTiers {
		if tierDraw < t.below {
			mult = t.multiplier
			break
		}
	}
	m := decimal.NewFromInt(mult)
	return Outcome{
		Win:        true,
		Multiplier: m,
		Payout:     bet.MulFloor(m),
		Draws:      []float64{r, tierDraw},
	}, nil
}
