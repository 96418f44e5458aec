package features

// todCurve normalizes expected intraday volume by exchange-local hour,
// per the normative table in the external interfaces section. Hours not
// listed (outside regular trading hours) fall back to 1.0.
var todCurve = map[int]float64{
	9:  1.8,
	10: 1.2,
	11: 0.8,
	12: 0.7,
	13: 0.8,
	14: 0.9,
	15: 1.3,
	16: 1.6,
}

// TODMultiplier returns the intraday volume curve multiplier for hour
// (exchange local time, 24h).
func TODMultiplier(hour int) float64 {
	if m, ok := todCurve[hour]; ok {
		return m
	}
	return 1.0
}
