package analysis

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"spyglass/internal/collector"
	"spyglass/internal/platform"
	"spyglass/internal/textutil"
)

// The heuristic path is fully deterministic: the same collected data always
// yields the same result.

var positiveLexicon = wordSet(
	"love", "loving", "loved", "loves", "great", "happy", "grateful",
	"obsessed", "amazing", "awesome", "excellent", "beautiful", "excited",
	"exciting", "win", "winning", "progress", "fantastic", "wonderful",
	"proud", "enjoy", "enjoyed", "enjoying", "best", "good", "glad",
	"thrilled", "delighted",
)

var negativeLexicon = wordSet(
	"frustrated", "frustrating", "disappointed", "disappointing", "tired",
	"annoyed", "annoying", "struggling", "struggle", "hate", "hated",
	"hates", "terrible", "awful", "worst", "angry", "sad", "broken",
	"failed", "failing", "fail", "bad", "miserable", "upset", "worse",
	"ruined",
)

var negators = wordSet(
	"not", "no", "never", "cant", "cannot", "dont", "wont", "hardly",
	"barely", "without", "isnt", "wasnt", "arent", "didnt", "doesnt",
	"nothing",
)

const negationWindow = 2

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

// sentimentTokens keeps short words, unlike textutil.Tokenize, because the
// negation window needs "no" and "not".
func sentimentTokens(text string) []string {
	lowered := strings.ToLower(strings.ReplaceAll(text, "'", ""))
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func scoreSentiment(text string) int {
	tokens := sentimentTokens(text)
	score := 0
	for i, token := range tokens {
		polarity := 0
		if _, ok := positiveLexicon[token]; ok {
			polarity = 1
		}
		if _, ok := negativeLexicon[token]; ok {
			polarity = -1
		}
		if polarity == 0 {
			continue
		}
		if negatedAt(tokens, i) {
			polarity = -polarity
		}
		score += polarity
	}
	return score
}

func negatedAt(tokens []string, index int) bool {
	start := index - negationWindow
	if start < 0 {
		start = 0
	}
	for i := start; i < index; i++ {
		if _, ok := negators[tokens[i]]; ok {
			return true
		}
	}
	return false
}

func heuristicSentiment(data *collector.CollectedData) Sentiment {
	posts := data.AllPosts()
	if len(posts) == 0 {
		return Sentiment{Neutral: 1, Overall: OverallNeutral}
	}
	var positive, neutral, negative int
	for _, post := range posts {
		switch score := scoreSentiment(post.Text); {
		case score > 0:
			positive++
		case score < 0:
			negative++
		default:
			neutral++
		}
	}
	total := float64(len(posts))
	sentiment := Sentiment{
		Positive: round3(float64(positive) / total),
		Neutral:  round3(float64(neutral) / total),
		Negative: round3(float64(negative) / total),
	}
	switch {
	case sentiment.Positive >= 0.3 && sentiment.Negative >= 0.3:
		sentiment.Overall = OverallMixed
	case sentiment.Positive > sentiment.Neutral && sentiment.Positive > sentiment.Negative:
		sentiment.Overall = OverallPositive
	case sentiment.Negative > sentiment.Neutral && sentiment.Negative > sentiment.Positive:
		sentiment.Overall = OverallNegative
	default:
		sentiment.Overall = OverallNeutral
	}
	return sentiment
}

const duplicateSimilarityThreshold = 0.9

func heuristicAuthenticity(data *collector.CollectedData) Authenticity {
	primary := data.Primary
	if primary == nil {
		return Authenticity{Score: 50, Flags: []string{"no_profile_data"}}
	}
	score := 100
	var flags []string
	deduct := func(points int, flag string) {
		score -= points
		flags = append(flags, flag)
	}

	posts := data.AllPosts()
	if strings.TrimSpace(primary.Bio) == "" {
		deduct(10, "empty_bio")
	}
	if len(posts) == 0 {
		deduct(20, "no_posts")
	}
	if primary.FollowingCount > 500 && float64(primary.FollowerCount) < 0.05*float64(primary.FollowingCount) {
		deduct(20, "follow_ratio_extreme")
	}
	if primary.FollowerCount >= 5000 && primary.EngagementRate < 0.001 {
		deduct(25, "engagement_mismatch")
	} else if primary.FollowerCount >= 1000 && primary.EngagementRate > 0.3 {
		deduct(15, "engagement_spike")
	}
	if len(posts) >= 4 {
		switch ratio := duplicatePostRatio(posts); {
		case ratio >= 0.5:
			deduct(30, "duplicate_posts")
		case ratio >= 0.2:
			deduct(15, "repetitive_content")
		}
	}
	if primary.Verified {
		score += 10
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return Authenticity{Score: score, Flags: flags}
}

// duplicatePostRatio is the share of posts that have a near-duplicate among
// the others, by token-fingerprint cosine similarity.
func duplicatePostRatio(posts []platform.Post) float64 {
	fingerprints := make([]*textutil.Fingerprint, 0, len(posts))
	for _, post := range posts {
		if fp := textutil.NewFingerprint(post.Text); fp != nil {
			fingerprints = append(fingerprints, fp)
		}
	}
	if len(fingerprints) < 2 {
		return 0
	}
	duplicates := 0
	for i := range fingerprints {
		for j := range fingerprints {
			if i == j {
				continue
			}
			if textutil.CosineSimilarity(fingerprints[i], fingerprints[j]) >= duplicateSimilarityThreshold {
				duplicates++
				break
			}
		}
	}
	return float64(duplicates) / float64(len(fingerprints))
}

const (
	themeCount       = 3
	themeKeywordSize = 3
)

var themeTitleCaser = cases.Title(language.English)

// heuristicThemes runs TF-IDF over every collected text (each post, caption,
// and comment is a document), merges the weighted vectors, and groups the top
// terms into themes.
func heuristicThemes(data *collector.CollectedData) []Theme {
	var texts []string
	for _, post := range data.AllPosts() {
		texts = append(texts, post.Text)
	}
	if section, ok := data.Sections[platform.SectionMedia]; ok {
		texts = append(texts, section.Captions...)
	}
	if section, ok := data.Sections[platform.SectionComments]; ok {
		for _, comment := range section.Comments {
			texts = append(texts, comment.Text)
		}
	}

	corpus := textutil.NewCorpus()
	fingerprints := make([]*textutil.Fingerprint, 0, len(texts))
	for _, text := range texts {
		if fp := textutil.NewFingerprint(text); fp != nil {
			corpus.Add(fp)
			fingerprints = append(fingerprints, fp)
		}
	}
	idf := corpus.IDF()
	weighted := make([]*textutil.Fingerprint, 0, len(fingerprints))
	for _, fp := range fingerprints {
		if wfp := fp.WithIDF(idf); wfp != nil {
			weighted = append(weighted, wfp)
		}
	}
	merged := textutil.MergeFingerprints(weighted...)
	if merged == nil {
		return nil
	}
	terms := merged.TopTerms(themeCount * themeKeywordSize)
	if len(terms) == 0 {
		return nil
	}
	var total float64
	for _, term := range terms {
		total += term.Weight
	}
	var themes []Theme
	for start := 0; start < len(terms); start += themeKeywordSize {
		end := start + themeKeywordSize
		if end > len(terms) {
			end = len(terms)
		}
		chunk := terms[start:end]
		keywords := make([]string, 0, len(chunk))
		var weight float64
		for _, term := range chunk {
			keywords = append(keywords, term.Token)
			weight += term.Weight
		}
		themes = append(themes, Theme{
			Label:    themeTitleCaser.String(chunk[0].Token),
			Keywords: keywords,
			Weight:   round3(weight / total),
		})
	}
	return themes
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}
