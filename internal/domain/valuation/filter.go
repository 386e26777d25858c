package valuation

import "strings"

// Criteria is the conjunction of active filters. Zero value matches everything.
type Criteria struct {
	Search   string
	Team     Optional[string]
	Position Optional[string]
	Status   Optional[Status]
}

func (c Criteria) Matches(record PlayerRecord) bool {
	if needle := strings.ToLower(strings.TrimSpace(c.Search)); needle != "" {
		if !strings.Contains(strings.ToLower(record.Name), needle) {
			return false
		}
	}
	return c.Team.Matches(record.Team) &&
		c.Position.Matches(record.Position) &&
		c.Status.Matches(record.ValuationStatus)
}

// Filter keeps the records matching c in their original relative order.
// It never returns nil.
func Filter(records []PlayerRecord, c Criteria) []PlayerRecord {
	out := make([]PlayerRecord, 0, len(records))
	for _, record := range records {
		if c.Matches(record) {
			out = append(out, record)
		}
	}
	return out
}

// DistinctTeams lists team values in first-seen order.
func DistinctTeams(records []PlayerRecord) []string {
	return distinct(records, func(r PlayerRecord) string { return r.Team })
}

// DistinctPositions lists position values in first-seen order.
func DistinctPositions(records []PlayerRecord) []string {
	return distinct(records, func(r PlayerRecord) string { return r.Position })
}

func distinct(records []PlayerRecord, field func(PlayerRecord) string) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0)
	for _, record := range records {
		value := field(record)
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
