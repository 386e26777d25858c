package valuation

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

type SortKey string

const (
	SortByID              SortKey = "id"
	SortByName            SortKey = "name"
	SortByTeam            SortKey = "team"
	SortByPosition        SortKey = "position"
	SortByAge             SortKey = "age"
	SortByPoints          SortKey = "pointsPerGame"
	SortByRebounds        SortKey = "reboundsPerGame"
	SortByAssists         SortKey = "assistsPerGame"
	SortByBlocks          SortKey = "blocksPerGame"
	SortByGamesPlayed     SortKey = "gamesPlayed"
	SortByTrueShooting    SortKey = "trueShootingPct"
	SortByMarketValue     SortKey = "marketValue"
	SortByPredictedValue  SortKey = "predictedValue"
	SortByValuationStatus SortKey = "valuationStatus"
	SortByValueGap        SortKey = "valueGap"
	SortByValueGapPercent SortKey = "valueGapPercent"
)

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

const (
	DefaultSortKey   = SortByName
	DefaultDirection = Ascending
)

var comparators = map[SortKey]func(a, b PlayerRecord) int{
	SortByID:              func(a, b PlayerRecord) int { return compareFold(a.ID, b.ID) },
	SortByName:            func(a, b PlayerRecord) int { return compareFold(a.Name, b.Name) },
	SortByTeam:            func(a, b PlayerRecord) int { return compareFold(a.Team, b.Team) },
	SortByPosition:        func(a, b PlayerRecord) int { return compareFold(a.Position, b.Position) },
	SortByAge:             func(a, b PlayerRecord) int { return cmp.Compare(a.Age, b.Age) },
	SortByPoints:          func(a, b PlayerRecord) int { return cmp.Compare(a.PointsPerGame, b.PointsPerGame) },
	SortByRebounds:        func(a, b PlayerRecord) int { return cmp.Compare(a.ReboundsPerGame, b.ReboundsPerGame) },
	SortByAssists:         func(a, b PlayerRecord) int { return cmp.Compare(a.AssistsPerGame, b.AssistsPerGame) },
	SortByBlocks:          func(a, b PlayerRecord) int { return cmp.Compare(a.BlocksPerGame, b.BlocksPerGame) },
	SortByGamesPlayed:     func(a, b PlayerRecord) int { return cmp.Compare(a.GamesPlayed, b.GamesPlayed) },
	SortByTrueShooting:    func(a, b PlayerRecord) int { return cmp.Compare(a.TrueShootingPct, b.TrueShootingPct) },
	SortByMarketValue:     func(a, b PlayerRecord) int { return cmp.Compare(a.MarketValue, b.MarketValue) },
	SortByPredictedValue:  func(a, b PlayerRecord) int { return cmp.Compare(a.PredictedValue, b.PredictedValue) },
	SortByValuationStatus: func(a, b PlayerRecord) int { return compareFold(string(a.ValuationStatus), string(b.ValuationStatus)) },
	SortByValueGap:        func(a, b PlayerRecord) int { return cmp.Compare(a.ValueGap(), b.ValueGap()) },
	SortByValueGapPercent: func(a, b PlayerRecord) int { return cmp.Compare(a.ValueGapPercent(), b.ValueGapPercent()) },
}

// Provider and dashboard column names accepted on input.
var sortKeyAliases = map[string]SortKey{
	"player":                 SortByName,
	"ppg":                    SortByPoints,
	"pts":                    SortByPoints,
	"points":                 SortByPoints,
	"rpg":                    SortByRebounds,
	"trb":                    SortByRebounds,
	"rebounds":               SortByRebounds,
	"apg":                    SortByAssists,
	"ast":                    SortByAssists,
	"assists":                SortByAssists,
	"bpg":                    SortByBlocks,
	"blk":                    SortByBlocks,
	"blocks":                 SortByBlocks,
	"gp":                     SortByGamesPlayed,
	"ts":                     SortByTrueShooting,
	"ts%":                    SortByTrueShooting,
	"salary":                 SortByMarketValue,
	"predictedsalary":        SortByPredictedValue,
	"predicted_salary":       SortByPredictedValue,
	"valuation":              SortByValuationStatus,
	"status":                 SortByValuationStatus,
	"diff":                   SortByValueGap,
	"valuedifference":        SortByValueGap,
	"valuedifferencepercent": SortByValueGapPercent,
}

// ParseSortKey resolves canonical names case-insensitively, then aliases.
// Empty input selects DefaultSortKey.
func ParseSortKey(raw string) (SortKey, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return DefaultSortKey, nil
	}
	for key := range comparators {
		if strings.EqualFold(string(key), value) {
			return key, nil
		}
	}
	if key, ok := sortKeyAliases[strings.ToLower(value)]; ok {
		return key, nil
	}
	return "", fmt.Errorf("unknown sort key %q", raw)
}

func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return DefaultDirection, nil
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", raw)
	}
}

func (d Direction) Toggle() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// Sort returns a new slice ordered by key. Ties keep their input order in
// both directions; descending inverts the comparison instead of reversing
// the ascending result. An unknown key returns a copy in input order.
func Sort(records []PlayerRecord, key SortKey, dir Direction) []PlayerRecord {
	out := slices.Clone(records)
	if out == nil {
		out = []PlayerRecord{}
	}

	compare, ok := comparators[key]
	if !ok {
		return out
	}
	if dir == Descending {
		asc := compare
		compare = func(a, b PlayerRecord) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

// NextSort applies a column selection: the active column flips direction,
// a new column starts ascending.
func NextSort(currentKey SortKey, currentDir Direction, selected SortKey) (SortKey, Direction) {
	if selected == currentKey {
		return currentKey, currentDir.Toggle()
	}
	return selected, Ascending
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
