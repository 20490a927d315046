package record

// Component weights for the total score, expressed in tenths so that
// composition stays in integer arithmetic.
const (
	FlavorWeightTenths  = 6
	SensoryWeightTenths = 4

	MinScore = 0
	MaxScore = 100
)

// ComposeTotal returns round(0.6*flavor + 0.4*sensory).
//
// 6f+4s is always even, so the fractional part is never exactly one half
// and rounding never has to pick a side.
func ComposeTotal(flavor, sensory int) int {
	return (FlavorWeightTenths*flavor + SensoryWeightTenths*sensory + 5) / 10
}

// ScoreBand is the coarse bucket a total score falls into.
type ScoreBand string

const (
	BandOutstanding ScoreBand = "90-100"
	BandExcellent   ScoreBand = "80-89"
	BandVeryGood    ScoreBand = "70-79"
	BandGood        ScoreBand = "60-69"
	BandBelow       ScoreBand = "0-59"
)

// ScoreBands lists bands from highest to lowest.
var ScoreBands = []ScoreBand{BandOutstanding, BandExcellent, BandVeryGood, BandGood, BandBelow}

// BandOf returns the band for a total score.
func BandOf(total int) ScoreBand {
	switch {
	case total >= 90:
		return BandOutstanding
	case total >= 80:
		return BandExcellent
	case total >= 70:
		return BandVeryGood
	case total >= 60:
		return BandGood
	default:
		return BandBelow
	}
}
