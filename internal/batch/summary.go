package batch

import (
	"sort"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/pipeline"
)

// Summary aggregates the outcome of a batch.
type Summary struct {
	Total        int            `json:"total"`
	Valid        int            `json:"valid"`
	InvalidLogo  int            `json:"invalid_logo"`
	NoPhoto      int            `json:"no_photo"`
	NoTables     int            `json:"no_tables"`
	PartialMatch int            `json:"partial_match"`
	Errors       int            `json:"error"`
	SuccessRate  float64        `json:"success_rate"`
	Boards       map[string]int `json:"boards"`
	DurationMs   int64          `json:"duration_ms"`
}

// Summarize counts items by overall status and board. The success rate is
// the share of valid items.
func Summarize(items []Item, d time.Duration) Summary {
	s := Summary{Total: len(items), Boards: make(map[string]int), DurationMs: d.Milliseconds()}
	for _, it := range items {
		switch it.Status() {
		case pipeline.StatusValid:
			s.Valid++
		case pipeline.StatusInvalidLogo:
			s.InvalidLogo++
		case pipeline.StatusNoPhoto:
			s.NoPhoto++
		case pipeline.StatusNoTables:
			s.NoTables++
		case pipeline.StatusPartialMatch:
			s.PartialMatch++
		default:
			s.Errors++
		}
		if it.Error == "" {
			s.Boards[it.Board()]++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Valid) / float64(s.Total)
	}
	return s
}

// BoardNames returns the boards seen, sorted.
func (s Summary) BoardNames() []string {
	names := make([]string, 0, len(s.Boards))
	for n := range s.Boards {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
