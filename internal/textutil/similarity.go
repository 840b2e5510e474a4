package textutil

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// MaxPairwiseSimilarity returns the highest cosine similarity between any two
// distinct fingerprints. Useful for spotting near-duplicate documents.
func MaxPairwiseSimilarity(fps []*Fingerprint) float64 {
	var max float64
	for i := 0; i < len(fps); i++ {
		for j := i + 1; j < len(fps); j++ {
			if sim := CosineSimilarity(fps[i], fps[j]); sim > max {
				max = sim
			}
		}
	}
	return max
}
