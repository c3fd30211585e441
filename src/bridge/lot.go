package bridge

import (
	"math"

	"github.com/shopspring/decimal"

	"mt5-bridge/src/models"
)

// QuickLots are the one-click lot presets.
var QuickLots = []float64{0.01, 0.1, 0.5, 1.0}

var defaultConstraints = models.MLotConstraints{MinLot: 0.01, MaxLot: 100, LotStep: 0.01}

// snapLot rounds current+delta to the nearest whole step, half away from zero,
// then clamps into [min, max]. Clamping happens after rounding, so off-step
// bounds can yield an off-step result.
func snapLot(current, delta float64, c models.MLotConstraints) float64 {
	v := decimal.NewFromFloat(current).Add(decimal.NewFromFloat(delta))
	if c.LotStep > 0 {
		step := decimal.NewFromFloat(c.LotStep)
		v = v.Div(step).Round(0).Mul(step)
	}
	v = clampDecimal(v, c)
	f, _ := v.Float64()
	return f
}

// clampLot only clamps, for values typed into the lot field.
func clampLot(value float64, c models.MLotConstraints) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return c.MinLot
	}
	f, _ := clampDecimal(decimal.NewFromFloat(value), c).Float64()
	return f
}

// clampDecimal applies max(min) then min(max), so max wins when min > max.
func clampDecimal(v decimal.Decimal, c models.MLotConstraints) decimal.Decimal {
	v = decimal.Max(v, decimal.NewFromFloat(c.MinLot))
	return decimal.Min(v, decimal.NewFromFloat(c.MaxLot))
}

// AdjustLot moves the lot by delta and snaps it to the lot step.
func (s *State) AdjustLot(delta float64) float64 {
	s.lot = snapLot(s.lot, delta, s.constraints)
	s.touch()
	return s.lot
}

// StepLot moves the lot one step up (dir > 0) or down.
func (s *State) StepLot(dir int) float64 {
	step := s.constraints.LotStep
	if step <= 0 {
		step = defaultConstraints.LotStep
	}
	if dir < 0 {
		step = -step
	}
	return s.AdjustLot(step)
}

// SetLot applies a typed lot value, clamped but not snapped.
func (s *State) SetLot(value float64) float64 {
	s.lot = clampLot(value, s.constraints)
	s.touch()
	return s.lot
}

// QuickLot sets one of QuickLots verbatim.
func (s *State) QuickLot(preset float64) (float64, error) {
	for _, q := range QuickLots {
		if q == preset {
			s.lot = q
			s.touch()
			return s.lot, nil
		}
	}
	return s.lot, ErrInvalidCommand
}

func (s *State) Lot() float64 {
	return s.lot
}
