package grades

import "math"

// Precision is a named rounding policy expressed in decimal places.
type Precision int

const (
	// StoragePrecision applies to every mean held in a report.
	StoragePrecision Precision = 2
	// DisplayPrecision applies to figures shown on the dashboard.
	DisplayPrecision Precision = 1
)

// Round rounds x to p decimal places, halves away from zero.
func (p Precision) Round(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	pow := math.Pow10(int(p))
	return math.Round(x*pow) / pow
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
