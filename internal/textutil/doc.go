// Package textutil provides text processing utilities for fingerprinting,
// similarity scoring, and profile identifier normalization.
//
// The primary use cases are:
//   - Creating token-based fingerprints from post text for comparison
//   - Computing cosine similarity between fingerprints to spot duplicates
//   - Weighting terms with corpus IDF statistics for theme extraction
//   - Normalizing and validating user-supplied profile identifiers
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// The tokenization process lowercases text, splits on non-alphanumeric
// characters, and filters tokens shorter than 3 characters.
package textutil
