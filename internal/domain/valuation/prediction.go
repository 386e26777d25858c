package valuation

import (
	"fmt"
	"math"
)

// Features is the fixed numeric payload accepted by the salary prediction model.
type Features struct {
	Age             float64 `validate:"gte=0,lte=60"`
	GamesPlayed     float64 `validate:"gte=0,lte=100"`
	ReboundsPerGame float64 `validate:"gte=0"`
	AssistsPerGame  float64 `validate:"gte=0"`
	PointsPerGame   float64 `validate:"gte=0"`
	BlocksPerGame   float64 `validate:"gte=0"`
	TrueShootingPct float64 `validate:"gte=0"`
}

// FeaturesOf extracts the prediction inputs of a record.
func FeaturesOf(record PlayerRecord) Features {
	return Features{
		Age:             float64(record.Age),
		GamesPlayed:     float64(record.GamesPlayed),
		ReboundsPerGame: record.ReboundsPerGame,
		AssistsPerGame:  record.AssistsPerGame,
		PointsPerGame:   record.PointsPerGame,
		BlocksPerGame:   record.BlocksPerGame,
		TrueShootingPct: record.TrueShootingPct,
	}
}

// Key is a stable identity for caching predictions.
func (f Features) Key() string {
	return fmt.Sprintf("%g|%g|%g|%g|%g|%g|%g",
		f.Age, f.GamesPlayed, f.ReboundsPerGame, f.AssistsPerGame,
		f.PointsPerGame, f.BlocksPerGame, f.TrueShootingPct)
}

func (f Features) Finite() bool {
	for _, v := range []float64{
		f.Age, f.GamesPlayed, f.ReboundsPerGame, f.AssistsPerGame,
		f.PointsPerGame, f.BlocksPerGame, f.TrueShootingPct,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
