package rank

// Score converts a rank into a Dowdall (reciprocal-rank) score. Top positions
// weigh the most and the score approaches zero for long tails. The size of
// the source list does not factor in.
func Score(rank int64) (float64, error) {
	if rank <= 0 {
		return 0, ErrInvalidRank
	}
	return 1.0 / float64(rank), nil
}
