package rank

import (
	"cmp"
	"slices"
)

// DefaultTopN is the number of leading entries included in a Stats report.
const DefaultTopN = 20

// AppearanceCount is the number of ranked domains seen the given number of times.
type AppearanceCount struct {
	Appearances int `json:"appearances" yaml:"appearances"`
	Domains     int `json:"domains" yaml:"domains"`
}

// Stats is a read-only report over a finished ranking.
type Stats struct {
	Total        int               `json:"total" yaml:"total"`
	Distribution []AppearanceCount `json:"distribution,omitempty" yaml:"distribution,omitempty"`
	MaxScore     float64           `json:"max_score" yaml:"maxScore"`
	MinScore     float64           `json:"min_score" yaml:"minScore"`
	MeanScore    float64           `json:"mean_score" yaml:"meanScore"`
	MedianScore  float64           `json:"median_score" yaml:"medianScore"`
	Top          []Entry           `json:"top,omitempty" yaml:"top,omitempty"`
}

// Summarize computes the appearance distribution and composite score
// statistics of the entries, plus the first top entries. A non-positive top
// defaults to DefaultTopN.
func Summarize(entries []Entry, top int) *Stats {
	s := &Stats{Total: len(entries)}
	if len(entries) == 0 {
		return s
	}

	if top <= 0 {
		top = DefaultTopN
	}
	s.Top = slices.Clone(entries[:min(top, len(entries))])

	counts := make(map[int]int)
	scores := make([]float64, len(entries))
	var sum float64
	for i, e := range entries {
		counts[e.Appearances]++
		scores[i] = e.CompositeScore
		sum += e.CompositeScore
	}

	for a, n := range counts {
		s.Distribution = append(s.Distribution, AppearanceCount{Appearances: a, Domains: n})
	}
	slices.SortFunc(s.Distribution, func(x, y AppearanceCount) int {
		return cmp.Compare(y.Appearances, x.Appearances)
	})

	slices.Sort(scores)
	s.MinScore = scores[0]
	s.MaxScore = scores[len(scores)-1]
	s.MeanScore = sum / float64(len(scores))

	mid := len(scores) / 2
	if len(scores)%2 == 0 {
		s.MedianScore = (scores[mid-1] + scores[mid]) / 2
	} else {
		s.MedianScore = scores[mid]
	}

	return s
}
