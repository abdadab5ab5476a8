package verify

import (
	"github.com/montanaflynn/stats"

	"nwuledger/internal/ledger"
)

// ScoreSummary holds dashboard statistics over a contributor's scores.
// Unlike StatsFor, these are float aggregates and carry no protocol
// semantics.
type ScoreSummary struct {
	Median float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes score statistics for a contributor.
// Returns a zero summary for a contributor with no verifications.
func (r *Registry) Summarize(contributor ledger.Identity) ScoreSummary {
	ids := r.byContributor[contributor]
	if len(ids) == 0 {
		return ScoreSummary{}
	}

	scores := make([]float64, 0, len(ids))
	for _, id := range ids {
		scores = append(scores, float64(r.records[id].Score))
	}

	// These only error on empty input, which is excluded above.
	median, _ := stats.Median(scores)
	stddev, _ := stats.StandardDeviation(scores)
	min, _ := stats.Min(scores)
	max, _ := stats.Max(scores)

	return ScoreSummary{
		Median: median,
		StdDev: stddev,
		Min:    min,
		Max:    max,
	}
}
