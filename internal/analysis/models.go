package analysis

import (
	"fmt"
	"strings"
	"time"

	"spyglass/internal/taskstore"
)

// Source values recorded on a Result.
const (
	SourceAI        = "ai"
	SourceHeuristic = "heuristic"
)

// Overall sentiment labels.
const (
	OverallPositive = "positive"
	OverallNeutral  = "neutral"
	OverallNegative = "negative"
	OverallMixed    = "mixed"
)

// Profile carries the factual profile fields into the result document.
type Profile struct {
	DisplayName    string   `json:"display_name,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	Verified       bool     `json:"verified"`
	FollowerCount  int      `json:"follower_count"`
	FollowingCount int      `json:"following_count"`
	PostCount      int      `json:"post_count"`
	EngagementRate float64  `json:"engagement_rate"`
	Platforms      []string `json:"platforms,omitempty"`
}

// Sentiment is the tone distribution over the collected posts.
type Sentiment struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
	Overall  string  `json:"overall"`
}

// Authenticity scores how organic the profile looks, 0 to 100. Every
// deduction leaves a flag naming what was penalized.
type Authenticity struct {
	Score int      `json:"score"`
	Flags []string `json:"flags,omitempty"`
}

// Theme is one recurring topic with its supporting keywords.
type Theme struct {
	Label    string   `json:"label"`
	Keywords []string `json:"keywords"`
	Weight   float64  `json:"weight"`
}

// SourceNote records one collection source that failed.
type SourceNote struct {
	Source string `json:"source"`
	Kind   string `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Sources records which collection sources fed the analysis, so readers can
// tell a complete picture from a partial one.
type Sources struct {
	Succeeded []string     `json:"succeeded"`
	Failed    []SourceNote `json:"failed,omitempty"`
}

// Result is the analysis document persisted for a completed task.
type Result struct {
	GeneratedAt  time.Time       `json:"generated_at"`
	Source       string          `json:"source"`
	Platform     string          `json:"platform"`
	Identifier   string          `json:"identifier"`
	Depth        taskstore.Depth `json:"depth"`
	Profile      Profile         `json:"profile"`
	Sentiment    Sentiment       `json:"sentiment"`
	Authenticity Authenticity    `json:"authenticity"`
	Themes       []Theme         `json:"themes,omitempty"`
	Sources      Sources         `json:"sources"`
}

// judgment is the model-produced slice of a Result. The engine owns the
// factual envelope; the model only supplies interpretation.
type judgment struct {
	Sentiment    Sentiment    `json:"sentiment"`
	Authenticity Authenticity `json:"authenticity"`
	Themes       []Theme      `json:"themes"`
}

func (j *judgment) validate() error {
	fractions := map[string]float64{
		"positive": j.Sentiment.Positive,
		"neutral":  j.Sentiment.Neutral,
		"negative": j.Sentiment.Negative,
	}
	var sum float64
	for name, value := range fractions {
		if value < -0.001 || value > 1.001 {
			return fmt.Errorf("sentiment %s fraction %v out of range", name, value)
		}
		sum += value
	}
	if sum < 0.9 || sum > 1.1 {
		return fmt.Errorf("sentiment fractions sum to %v, expected 1", sum)
	}
	switch j.Sentiment.Overall {
	case OverallPositive, OverallNeutral, OverallNegative, OverallMixed:
	default:
		return fmt.Errorf("unknown overall sentiment %q", j.Sentiment.Overall)
	}
	if j.Authenticity.Score < 0 || j.Authenticity.Score > 100 {
		return fmt.Errorf("authenticity score %d out of range", j.Authenticity.Score)
	}
	if len(j.Themes) > 10 {
		return fmt.Errorf("too many themes (%d)", len(j.Themes))
	}
	for i, theme := range j.Themes {
		if strings.TrimSpace(theme.Label) == "" {
			return fmt.Errorf("theme %d has no label", i)
		}
		if theme.Weight < 0 {
			return fmt.Errorf("theme %q has negative weight", theme.Label)
		}
	}
	return nil
}
