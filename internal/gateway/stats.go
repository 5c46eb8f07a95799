package gateway

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/statafdev/nomadnest-front/internal/models"
)

type statsPayload struct {
	TotalUsers        *int           `json:"totalUsers"`
	TotalListings     *int           `json:"totalListings"`
	ByLocation        map[string]int `json:"byLocation"`
	WeeklyNewUsers    *int           `json:"weeklyNewUsers"`
	WeeklyNewListings *int           `json:"weeklyNewListings"`
}

func (p statsPayload) recognized() bool {
	return p.TotalUsers != nil || p.TotalListings != nil || p.ByLocation != nil ||
		p.WeeklyNewUsers != nil || p.WeeklyNewListings != nil
}

// ResolveStats merges an optional stats payload with counts computed from
// collections already fetched for the same page. Any field the payload does
// not carry is derived locally; weekly deltas stay nil when absent since the
// fetched collections cannot produce them reliably. body may be nil.
func ResolveStats(body []byte, users []models.User, listings []models.Listing) models.Stats {
	p, ok := parseStats(body)

	stats := models.Stats{
		WeeklyNewUsers:    p.WeeklyNewUsers,
		WeeklyNewListings: p.WeeklyNewListings,
		Computed:          !ok,
	}

	if p.TotalUsers != nil {
		stats.TotalUsers = *p.TotalUsers
	} else {
		stats.TotalUsers = len(users)
		stats.Computed = true
	}

	if p.TotalListings != nil {
		stats.TotalListings = *p.TotalListings
	} else {
		stats.TotalListings = len(listings)
		stats.Computed = true
	}

	if p.ByLocation != nil {
		stats.ByLocation = p.ByLocation
	} else {
		stats.ByLocation = CountByLocation(listings)
	}

	return stats
}

// parseStats looks for the stats object under "stats", then "data", then at
// the top level
func parseStats(body []byte) (statsPayload, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return statsPayload{}, false
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return statsPayload{}, false
	}

	candidates := make([][]byte, 0, 3)
	for _, key := range []string{"stats", "data"} {
		if v, ok := wrapper[key]; ok {
			candidates = append(candidates, v)
		}
	}
	candidates = append(candidates, body)

	for _, raw := range candidates {
		var p statsPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		if p.recognized() {
			return p, true
		}
	}
	return statsPayload{}, false
}

// CountByLocation counts listings per location; listings without a location
// are skipped
func CountByLocation(listings []models.Listing) map[string]int {
	counts := make(map[string]int)
	for _, l := range listings {
		loc := strings.TrimSpace(l.Location)
		if loc == "" {
			continue
		}
		counts[loc]++
	}
	return counts
}
