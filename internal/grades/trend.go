package grades

// Trend is a qualitative evolution label. The set of labels is closed.
type Trend string

const (
	TrendImproved          Trend = "improved in the second period"
	TrendDeclined          Trend = "declined in the second period"
	TrendStableTwo         Trend = "stable between both periods"
	TrendContinuousGrowth  Trend = "continuous improvement across all three periods"
	TrendContinuousDecline Trend = "continuous decline across all three periods"
	TrendPeakThenDecline   Trend = "improved in the second period but declined in the last"
	TrendDipThenRecovery   Trend = "declined in the second period but recovered in the last"
	TrendStableThree       Trend = "stable across all three periods"
	TrendVariable          Trend = "variable performance with ups and downs"
)

// TrendTolerance is the band within which two consecutive values count as unchanged.
const TrendTolerance = 0.1

// toleranceSlack absorbs binary representation error so that values exactly
// TrendTolerance apart (7.0 and 7.1) stay inside the band.
const toleranceSlack = 1e-9

type step int

const (
	flat step = iota
	up
	down
)

func direction(from, to float64) step {
	d := to - from
	switch {
	case d > TrendTolerance+toleranceSlack:
		return up
	case d < -(TrendTolerance + toleranceSlack):
		return down
	}
	return flat
}

// Classify labels an ordered series of term values. The second result is false
// when the series has fewer than two points and must be left out of the report.
//
// Longer series than three use the three-period labels for steady growth,
// steady decline and stability, and TrendVariable for everything else.
func Classify(series []float64) (Trend, bool) {
	switch len(series) {
	case 0, 1:
		return "", false
	case 2:
		switch direction(series[0], series[1]) {
		case up:
			return TrendImproved, true
		case down:
			return TrendDeclined, true
		}
		return TrendStableTwo, true
	}

	steps := make([]step, len(series)-1)
	for i := 1; i < len(series); i++ {
		steps[i-1] = direction(series[i-1], series[i])
	}
	switch {
	case all(steps, up):
		return TrendContinuousGrowth, true
	case all(steps, down):
		return TrendContinuousDecline, true
	case all(steps, flat):
		return TrendStableThree, true
	}
	if len(steps) == 2 {
		switch {
		case steps[0] == up && steps[1] == down:
			return TrendPeakThenDecline, true
		case steps[0] == down && steps[1] == up:
			return TrendDipThenRecovery, true
		}
	}
	return TrendVariable, true
}

func all(steps []step, s step) bool {
	for _, x := range steps {
		if x != s {
			return false
		}
	}
	return true
}
