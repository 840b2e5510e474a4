package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
		want float64
	}{
		{"both nil", nil, nil, 0},
		{"a nil", nil, NewFingerprint("hello world"), 0},
		{"b nil", NewFingerprint("hello world"), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog"
	a := NewFingerprint(text)
	b := NewFingerprint(text)

	got := CosineSimilarity(a, b)
	if got != 1.0 {
		t.Errorf("CosineSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestCosineSimilarityCompleteDifferent(t *testing.T) {
	a := NewFingerprint("apple banana cherry")
	b := NewFingerprint("dog elephant frog")

	got := CosineSimilarity(a, b)
	if got != 0 {
		t.Errorf("CosineSimilarity(different) = %v, want 0", got)
	}
}

func TestCosineSimilarityPartialOverlap(t *testing.T) {
	a := NewFingerprint("the quick brown fox")
	b := NewFingerprint("the slow brown cat")

	got := CosineSimilarity(a, b)
	if got <= 0 || got >= 1 {
		t.Errorf("CosineSimilarity(partial) = %v, want between 0 and 1", got)
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := NewFingerprint("hello world program")
	b := NewFingerprint("world program test")

	ab := CosineSimilarity(a, b)
	ba := CosineSimilarity(b, a)

	if ab != ba {
		t.Errorf("CosineSimilarity not symmetric: (%v, %v)", ab, ba)
	}
}

func TestCosineSimilarityZeroNorm(t *testing.T) {
	// Create fingerprint with zero norm (empty tokens)
	a := &Fingerprint{tokens: map[string]float64{}, norm: 0}
	b := NewFingerprint("hello world test")

	got := CosineSimilarity(a, b)
	if got != 0 {
		t.Errorf("CosineSimilarity(zero norm) = %v, want 0", got)
	}
}

func TestNewFingerprintEmpty(t *testing.T) {
	fp := NewFingerprint("")
	if fp != nil {
		t.Error("expected nil for empty text")
	}
}

func TestNewFingerprintShortTokens(t *testing.T) {
	// Only short tokens (< 3 chars) should result in nil
	fp := NewFingerprint("a an it to")
	if fp != nil {
		t.Error("expected nil for text with only short tokens")
	}
}

func TestNewFingerprintValid(t *testing.T) {
	fp := NewFingerprint("hello world programming")
	if fp == nil {
		t.Fatal("expected fingerprint, got nil")
	}
	if fp.norm == 0 {
		t.Error("expected non-zero norm")
	}
	if len(fp.tokens) == 0 {
		t.Error("expected tokens")
	}
}

func TestNewFingerprintNormCalculation(t *testing.T) {
	// "hello hello world" -> hello:2, world:1
	// norm = sqrt(2^2 + 1^2) = sqrt(5)
	fp := NewFingerprint("hello hello world")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}

	expectedNorm := math.Sqrt(5)
	if math.Abs(fp.norm-expectedNorm) > 0.0001 {
		t.Errorf("norm = %v, want %v", fp.norm, expectedNorm)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple words",
			input: "Hello World",
			want:  []string{"hello", "world"},
		},
		{
			name:  "filters short",
			input: "a to the quick fox",
			want:  []string{"the", "quick", "fox"},
		},
		{
			name:  "handles punctuation",
			input: "Hello, World! How are you?",
			want:  []string{"hello", "world", "how", "are", "you"},
		},
		{
			name:  "handles numbers",
			input: "test123 456test",
			want:  []string{"test123", "456test"},
		},
		{
			name:  "empty string",
			input: "",
			want:  []string{},
		},
		{
			name:  "only short tokens",
			input: "a b c",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize() = %v (len %d), want %v (len %d)",
					got, len(got), tt.want, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFingerprintTokenCount(t *testing.T) {
	tests := []struct {
		name string
		fp   *Fingerprint
		want int
	}{
		{
			name: "nil fingerprint",
			fp:   nil,
			want: 0,
		},
		{
			name: "unique tokens",
			fp:   NewFingerprint("hello world programming"),
			want: 3,
		},
		{
			name: "repeated tokens",
			fp:   NewFingerprint("hello hello world world world"),
			want: 2, // unique count
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fp.TokenCount()
			if got != tt.want {
				t.Errorf("TokenCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTopTermsOrdering(t *testing.T) {
	fp := NewFingerprint("coffee coffee coffee brewing brewing roast")
	terms := fp.TopTerms(2)
	if len(terms) != 2 {
		t.Fatalf("TopTerms(2) returned %d terms", len(terms))
	}
	if terms[0].Token != "coffee" || terms[0].Weight != 3 {
		t.Errorf("top term = %+v, want coffee/3", terms[0])
	}
	if terms[1].Token != "brewing" || terms[1].Weight != 2 {
		t.Errorf("second term = %+v, want brewing/2", terms[1])
	}
}

func TestTopTermsTieBreaksAlphabetically(t *testing.T) {
	fp := NewFingerprint("zebra apple mango")
	terms := fp.TopTerms(3)
	want := []string{"apple", "mango", "zebra"}
	for i, term := range terms {
		if term.Token != want[i] {
			t.Errorf("term[%d] = %q, want %q", i, term.Token, want[i])
		}
	}
}

func TestTopTermsNil(t *testing.T) {
	var fp *Fingerprint
	if got := fp.TopTerms(5); got != nil {
		t.Errorf("TopTerms on nil = %v, want nil", got)
	}
}

func TestCorpusIDFDownweightsCommonTerms(t *testing.T) {
	corpus := NewCorpus()
	docs := []*Fingerprint{
		NewFingerprint("coffee brewing techniques and gear"),
		NewFingerprint("coffee roasting profiles explained"),
		NewFingerprint("coffee tasting notes from ethiopia"),
		NewFingerprint("weekend hiking trip photos"),
	}
	for _, doc := range docs {
		corpus.Add(doc)
	}

	idf := corpus.IDF()
	if idf == nil {
		t.Fatal("expected IDF map")
	}
	if idf["coffee"] >= idf["hiking"] {
		t.Errorf("coffee idf %v should be below hiking idf %v", idf["coffee"], idf["hiking"])
	}

	weighted := docs[0].WithIDF(idf)
	if weighted == nil {
		t.Fatal("expected weighted fingerprint")
	}
	terms := weighted.TopTerms(weighted.TokenCount())
	var coffeeWeight, brewingWeight float64
	for _, term := range terms {
		switch term.Token {
		case "coffee":
			coffeeWeight = term.Weight
		case "brewing":
			brewingWeight = term.Weight
		}
	}
	if coffeeWeight >= brewingWeight {
		t.Errorf("expected corpus-wide term downweighted: coffee=%v brewing=%v", coffeeWeight, brewingWeight)
	}
}

func TestCorpusEmptyIDF(t *testing.T) {
	if got := NewCorpus().IDF(); got != nil {
		t.Errorf("empty corpus IDF = %v, want nil", got)
	}
}

func TestMergeFingerprints(t *testing.T) {
	merged := MergeFingerprints(
		NewFingerprint("coffee brewing"),
		nil,
		NewFingerprint("coffee roasting"),
	)
	if merged == nil {
		t.Fatal("expected merged fingerprint")
	}
	terms := merged.TopTerms(1)
	if len(terms) != 1 || terms[0].Token != "coffee" || terms[0].Weight != 2 {
		t.Errorf("merged top term = %+v, want coffee/2", terms)
	}
}

func TestMergeFingerprintsAllNil(t *testing.T) {
	if got := MergeFingerprints(nil, nil); got != nil {
		t.Errorf("MergeFingerprints(nil, nil) = %v, want nil", got)
	}
}

func TestMaxPairwiseSimilarity(t *testing.T) {
	posts := []*Fingerprint{
		NewFingerprint("check out my new video, link in bio"),
		NewFingerprint("check out my new video, link in bio"),
		NewFingerprint("thoughts on the latest championship game"),
	}
	if got := MaxPairwiseSimilarity(posts); got < 0.99 {
		t.Errorf("MaxPairwiseSimilarity = %v, want ~1.0 for duplicated posts", got)
	}

	distinct := []*Fingerprint{
		NewFingerprint("gardening tips for spring tomatoes"),
		NewFingerprint("favorite jazz albums this decade"),
	}
	if got := MaxPairwiseSimilarity(distinct); got >= 0.5 {
		t.Errorf("MaxPairwiseSimilarity = %v, want below 0.5 for distinct posts", got)
	}
}

func TestMaxPairwiseSimilaritySmallInput(t *testing.T) {
	if got := MaxPairwiseSimilarity(nil); got != 0 {
		t.Errorf("MaxPairwiseSimilarity(nil) = %v, want 0", got)
	}
	if got := MaxPairwiseSimilarity([]*Fingerprint{NewFingerprint("solo entry")}); got != 0 {
		t.Errorf("MaxPairwiseSimilarity(single) = %v, want 0", got)
	}
}

func TestSimilarityRealisticProfilePosts(t *testing.T) {
	// Posts from an account that recycles promotional copy.
	promoA := `
		Huge giveaway this week! Follow and share for a chance to win.
		Winners announced Friday. Link in bio for full rules.
	`
	promoB := `
		Huge giveaway this week! Follow and share for a chance to win.
		Winners announced Friday. Link in bio for full rules.
	`

	// An organic post discussing something unrelated.
	organic := `
		Spent the morning repotting the ficus and rearranging the studio.
		The light hits differently in autumn and I love it.
	`

	promoFP := NewFingerprint(promoA)
	repeatFP := NewFingerprint(promoB)
	organicFP := NewFingerprint(organic)

	recycled := CosineSimilarity(promoFP, repeatFP)
	if recycled < 0.99 {
		t.Errorf("recycled copy similarity = %v, want ~1.0", recycled)
	}

	unrelated := CosineSimilarity(promoFP, organicFP)
	if unrelated >= 0.5 {
		t.Errorf("organic post similarity = %v, should be < 0.5", unrelated)
	}
}
