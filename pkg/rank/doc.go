// Package rank fuses independently produced domain popularity lists into a
// single composite ranking. It exposes the reciprocal-rank [Score] normalizer,
// the [Aggregator] that folds weighted [SourceList] values into a ranked
// [Result], and the read-only [Summarize] report.
package rank
