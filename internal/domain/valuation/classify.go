package valuation

import "fmt"

const (
	UndervaluedThreshold = 15.0
	OvervaluedThreshold  = -15.0
)

// Classify derives the valuation status.
//
// Precedence: a gap beyond either threshold always wins. Inside the band the
// upstream label is trusted when present, otherwise the player is fair.
func Classify(marketValue, predictedValue float64, upstream Optional[Status]) (Status, error) {
	pct, ok := GapPercent(marketValue, predictedValue)
	if !ok {
		return "", &DataIntegrityError{
			Field:  "marketValue",
			Reason: fmt.Sprintf("must be greater than zero, got %v", marketValue),
		}
	}

	switch {
	case pct > UndervaluedThreshold:
		return StatusUndervalued, nil
	case pct < OvervaluedThreshold:
		return StatusOvervalued, nil
	}

	if label, ok := upstream.Get(); ok {
		return label, nil
	}
	return StatusFair, nil
}

// Skills derives qualitative display tags from the rate stats.
func Skills(pointsPerGame, assistsPerGame, reboundsPerGame float64) []string {
	out := make([]string, 0, 3)
	if pointsPerGame > 20 {
		out = append(out, "Scorer")
	}
	if assistsPerGame > 5 {
		out = append(out, "Playmaker")
	}
	if reboundsPerGame > 7 {
		out = append(out, "Rebounder")
	}
	if len(out) == 0 {
		out = append(out, "Role Player")
	}
	return out
}
