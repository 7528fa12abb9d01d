package inspection

import (
	"sort"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
)

// RankedFeature is a feature name paired with its importance score.
type RankedFeature struct {
	Name  string
	Score float64
}

// TopFeatures returns the k highest-scoring features in descending order.
// Ties keep the original column order. k <= 0 or k > len(names) returns all.
func TopFeatures(names []string, scores []float64, k int) ([]RankedFeature, error) {
	if len(names) != len(scores) {
		return nil, errors.NewFeatureCountError(len(names), len(scores))
	}

	ranked := make([]RankedFeature, len(names))
	for i := range names {
		ranked[i] = RankedFeature{Name: names[i], Score: scores[i]}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})

	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked, nil
}
