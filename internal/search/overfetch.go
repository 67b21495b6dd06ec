package search

// overfetchSize returns the over-fetch size F (top_k times a multiplier
// chosen by top_k), per spec §4.5 step 1: wider multipliers for small top_k give the
// fusion stage enough overlap between the two sides to be stable.
func overfetchSize(topK int) int {
	var multiplier int
	switch {
	case topK <= 5:
		multiplier = 20
	case topK <= 10:
		multiplier = 15
	case topK <= 20:
		multiplier = 12
	case topK <= 50:
		multiplier = 10
	default:
		multiplier = 8
	}
	return topK * multiplier
}
