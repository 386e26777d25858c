package valuation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Provider field names, tried in order. The first present key wins.
var (
	idKeys           = []string{"id", "ID", "player_id", "PLAYER_ID"}
	nameKeys         = []string{"PLAYER", "Player", "player", "name"}
	teamKeys         = []string{"TEAM", "Team", "team"}
	positionKeys     = []string{"POS", "Pos", "position"}
	ageKeys          = []string{"Age", "AGE", "age"}
	pointsKeys       = []string{"PTS", "pts", "points_per_game"}
	reboundsKeys     = []string{"TRB", "REB", "trb", "rebounds_per_game"}
	assistsKeys      = []string{"AST", "ast", "assists_per_game"}
	blocksKeys       = []string{"BLK", "blk", "blocks_per_game"}
	gamesPlayedKeys  = []string{"GP", "gp", "games_played"}
	trueShootingKeys = []string{"TS%", "TS", "ts_pct", "true_shooting"}
	marketValueKeys  = []string{"Salary", "salary", "market_value"}
	predictedKeys    = []string{"Predicted_Salary", "predicted_salary", "predicted_value"}
	labelKeys        = []string{"Valuation", "valuation", "valuation_status"}
)

// NormalizeResult holds the classified records of one batch and every
// record dropped on the way.
type NormalizeResult struct {
	Records []PlayerRecord
	Dropped []*DataIntegrityError
}

// Normalize turns decoded source items into classified records. Items that
// fail are reported in Dropped and never abort the batch. Source order is
// preserved.
func Normalize(items []any) NormalizeResult {
	result := NormalizeResult{
		Records: make([]PlayerRecord, 0, len(items)),
	}
	seen := make(map[string]struct{}, len(items))

	for index, item := range items {
		record, err := normalizeRecord(index, item)
		if err != nil {
			result.Dropped = append(result.Dropped, err)
			continue
		}
		if _, exists := seen[record.ID]; exists {
			result.Dropped = append(result.Dropped, &DataIntegrityError{
				Index:    index,
				RecordID: record.ID,
				Name:     record.Name,
				Field:    "id",
				Reason:   "duplicate id in batch",
			})
			continue
		}
		seen[record.ID] = struct{}{}
		result.Records = append(result.Records, record)
	}

	return result
}

// normalizeRecord maps one provider record onto PlayerRecord and classifies it.
// index is the position in the source collection and seeds the synthetic id.
func normalizeRecord(index int, item any) (PlayerRecord, *DataIntegrityError) {
	raw, ok := item.(map[string]any)
	if !ok {
		return PlayerRecord{}, &DataIntegrityError{
			Index:  index,
			Field:  "record",
			Reason: fmt.Sprintf("expected object, got %T", item),
		}
	}

	record := PlayerRecord{
		ID:              lookupString(raw, idKeys),
		Name:            lookupString(raw, nameKeys),
		Team:            lookupString(raw, teamKeys),
		Position:        lookupString(raw, positionKeys),
		Age:             int(math.Round(lookupNumber(raw, ageKeys))),
		PointsPerGame:   lookupNumber(raw, pointsKeys),
		ReboundsPerGame: lookupNumber(raw, reboundsKeys),
		AssistsPerGame:  lookupNumber(raw, assistsKeys),
		BlocksPerGame:   lookupNumber(raw, blocksKeys),
		GamesPlayed:     int(math.Round(lookupNumber(raw, gamesPlayedKeys))),
		TrueShootingPct: lookupNumber(raw, trueShootingKeys),
	}
	if record.ID == "" {
		record.ID = "player-" + strconv.Itoa(index)
	}
	if record.Position == "" || strings.EqualFold(record.Position, "N/A") {
		record.Position = UnknownPosition
	}

	fail := func(field, reason string) *DataIntegrityError {
		return &DataIntegrityError{
			Index:    index,
			RecordID: record.ID,
			Name:     record.Name,
			Field:    field,
			Reason:   reason,
		}
	}

	if record.Name == "" {
		return PlayerRecord{}, fail("name", "missing player name")
	}
	if record.Team == "" {
		return PlayerRecord{}, fail("team", "missing team")
	}

	// Only name and team are mandatory. A missing salary reads as 0 and is
	// rejected by Classify; a missing prediction stays 0.
	marketValue := lookupNumber(raw, marketValueKeys)
	predictedValue := lookupNumber(raw, predictedKeys)
	record.MarketValue = marketValue
	record.PredictedValue = predictedValue

	label := None[Status]()
	if rawLabel := lookupString(raw, labelKeys); rawLabel != "" {
		if status, ok := ParseStatus(rawLabel); ok {
			label = Some(status)
		}
	}

	status, err := Classify(marketValue, predictedValue, label)
	if err != nil {
		var integrityErr *DataIntegrityError
		if errors.As(err, &integrityErr) {
			return PlayerRecord{}, fail(integrityErr.Field, integrityErr.Reason)
		}
		return PlayerRecord{}, fail("valuationStatus", err.Error())
	}
	record.ValuationStatus = status
	record.Skills = Skills(record.PointsPerGame, record.AssistsPerGame, record.ReboundsPerGame)

	return record, nil
}

func lookup(raw map[string]any, keys []string) (any, bool) {
	for _, key := range keys {
		if value, ok := raw[key]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

func lookupString(raw map[string]any, keys []string) string {
	value, ok := lookup(raw, keys)
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// lookupNumber reads anything missing or unusable as 0.
func lookupNumber(raw map[string]any, keys []string) float64 {
	value, _ := lookupFinite(raw, keys)
	return value
}

func lookupFinite(raw map[string]any, keys []string) (float64, bool) {
	value, ok := lookup(raw, keys)
	if !ok {
		return 0, false
	}
	number, ok := asFloat64(value)
	if !ok || math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, false
	}
	return number, true
}

func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", "%", "").Replace(strings.TrimSpace(v))
		if cleaned == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case fmt.Stringer:
		return asFloat64(v.String())
	default:
		return 0, false
	}
}
