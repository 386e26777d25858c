package valuation

import (
	"strings"
	"time"
)

// Status is the valuation bucket of a player.
type Status string

const (
	StatusUndervalued Status = "undervalued"
	StatusOvervalued  Status = "overvalued"
	StatusFair        Status = "fair"
)

var AllStatuses = []Status{StatusUndervalued, StatusOvervalued, StatusFair}

// UnknownPosition is used when the source carries no position.
const UnknownPosition = "unknown"

// ParseStatus accepts provider labels ("Undervalued", "Fair Value", ...) and
// our own lowercase values.
func ParseStatus(raw string) (Status, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.TrimSuffix(value, " value")
	switch Status(value) {
	case StatusUndervalued, StatusOvervalued, StatusFair:
		return Status(value), true
	default:
		return "", false
	}
}

// PlayerRecord is the canonical, immutable view of one player in a batch.
type PlayerRecord struct {
	ID              string
	Name            string
	Team            string
	Position        string
	Age             int
	PointsPerGame   float64
	ReboundsPerGame float64
	AssistsPerGame  float64
	BlocksPerGame   float64
	GamesPlayed     int
	TrueShootingPct float64
	MarketValue     float64
	PredictedValue  float64
	ValuationStatus Status
	Skills          []string
}

// ValueGap is the signed difference between predicted and current salary.
func (p PlayerRecord) ValueGap() float64 {
	return p.PredictedValue - p.MarketValue
}

// ValueGapPercent is ValueGap relative to MarketValue, in percent. Normalized
// records always carry a positive MarketValue.
func (p PlayerRecord) ValueGapPercent() float64 {
	pct, _ := GapPercent(p.MarketValue, p.PredictedValue)
	return pct
}

// GapPercent returns false when marketValue is not positive.
func GapPercent(marketValue, predictedValue float64) (float64, bool) {
	if !(marketValue > 0) {
		return 0, false
	}
	return (predictedValue - marketValue) / marketValue * 100, true
}

// Batch is one complete replacement set of records produced by a single
// successful fetch.
type Batch struct {
	ID          string
	Sequence    uint64
	FetchedAt   time.Time
	SourceCount int
	Records     []PlayerRecord
	Dropped     []*DataIntegrityError
}

func (b Batch) Find(id string) (PlayerRecord, bool) {
	for _, item := range b.Records {
		if item.ID == id {
			return item, true
		}
	}
	return PlayerRecord{}, false
}

// SourcePayload is the decoded upstream envelope before normalization.
// Items keeps every element as decoded so one malformed record cannot fail
// the whole envelope.
type SourcePayload struct {
	Count int
	Items []any
}
