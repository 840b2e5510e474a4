package analysis

import (
	"encoding/json"
	"fmt"
	"sort"

	"spyglass/internal/collector"
	"spyglass/internal/platform"
	"spyglass/internal/textutil"
)

const analysisSystemPrompt = `You are a social media profile analyst. You receive a JSON evidence document describing one public profile: counts, bio, recent posts, media captions, comments, and linked profiles on other platforms.

Respond with a single JSON object and nothing else, shaped exactly like this:
{
  "sentiment": {"positive": 0.0, "neutral": 0.0, "negative": 0.0, "overall": "positive"},
  "authenticity": {"score": 0, "flags": []},
  "themes": [{"label": "", "keywords": [], "weight": 0.0}]
}

Rules:
- sentiment fractions describe the share of posts with that tone and must sum to 1; overall is one of positive, neutral, negative, mixed.
- authenticity score is an integer 0-100 where 100 looks fully organic; add a short snake_case flag for every signal that lowered the score (for example duplicate_posts, engagement_mismatch).
- themes lists up to 3 recurring topics, strongest first, each with 1-5 lowercase keywords and a weight between 0 and 1.
- Base everything only on the evidence document. Do not invent facts.`

const (
	maxEvidenceBytes   = 16 * 1024
	minEvidencePosts   = 4
	maxEvidenceText    = 280
	maxEvidenceAsides  = 10
	maxEvidenceCaption = 200
)

type evidencePost struct {
	Text    string `json:"text"`
	Likes   int    `json:"likes"`
	Reposts int    `json:"reposts"`
}

type evidenceLinked struct {
	Platform   string `json:"platform"`
	Identifier string `json:"identifier"`
	Followers  int    `json:"followers"`
	Bio        string `json:"bio,omitempty"`
}

type evidenceDoc struct {
	Platform       string           `json:"platform"`
	Identifier     string           `json:"identifier"`
	Depth          string           `json:"depth"`
	DisplayName    string           `json:"display_name,omitempty"`
	Bio            string           `json:"bio,omitempty"`
	Verified       bool             `json:"verified"`
	Followers      int              `json:"followers"`
	Following      int              `json:"following"`
	PostTotal      int              `json:"post_total"`
	EngagementRate float64          `json:"engagement_rate"`
	Posts          []evidencePost   `json:"posts,omitempty"`
	MediaCaptions  []string         `json:"media_captions,omitempty"`
	Comments       []string         `json:"comments,omitempty"`
	Linked         []evidenceLinked `json:"linked_profiles,omitempty"`
	FailedSources  []string         `json:"failed_sources,omitempty"`
}

// buildEvidence renders the collected data as a compact JSON document for the
// model, capped by post count and byte size. The post cap halves until the
// document fits.
func buildEvidence(data *collector.CollectedData, maxPosts int) (string, error) {
	if maxPosts <= 0 {
		maxPosts = minEvidencePosts
	}
	for {
		doc := newEvidenceDoc(data, maxPosts)
		encoded, err := json.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("encode evidence: %w", err)
		}
		if len(encoded) <= maxEvidenceBytes || maxPosts <= minEvidencePosts {
			return string(encoded), nil
		}
		maxPosts /= 2
		if maxPosts < minEvidencePosts {
			maxPosts = minEvidencePosts
		}
	}
}

func newEvidenceDoc(data *collector.CollectedData, maxPosts int) evidenceDoc {
	doc := evidenceDoc{
		Platform:   data.Platform,
		Identifier: data.Identifier,
		Depth:      string(data.Depth),
	}
	if primary := data.Primary; primary != nil {
		doc.DisplayName = primary.DisplayName
		doc.Bio = textutil.Truncate(primary.Bio, maxEvidenceCaption)
		doc.Verified = primary.Verified
		doc.Followers = primary.FollowerCount
		doc.Following = primary.FollowingCount
		doc.PostTotal = primary.PostCount
		doc.EngagementRate = primary.EngagementRate
		for _, post := range primary.Posts {
			if len(doc.Posts) >= maxPosts {
				break
			}
			doc.Posts = append(doc.Posts, evidencePost{
				Text:    textutil.Truncate(post.Text, maxEvidenceText),
				Likes:   post.Likes,
				Reposts: post.Reposts,
			})
		}
	}
	if section, ok := data.Sections[platform.SectionMedia]; ok {
		for _, caption := range section.Captions {
			if len(doc.MediaCaptions) >= maxEvidenceAsides {
				break
			}
			doc.MediaCaptions = append(doc.MediaCaptions, textutil.Truncate(caption, maxEvidenceCaption))
		}
	}
	if section, ok := data.Sections[platform.SectionComments]; ok {
		for _, comment := range section.Comments {
			if len(doc.Comments) >= maxEvidenceAsides {
				break
			}
			doc.Comments = append(doc.Comments, textutil.Truncate(comment.Text, maxEvidenceCaption))
		}
	}
	linkedNames := make([]string, 0, len(data.Linked))
	for name := range data.Linked {
		linkedNames = append(linkedNames, name)
	}
	sort.Strings(linkedNames)
	for _, name := range linkedNames {
		bundle := data.Linked[name]
		doc.Linked = append(doc.Linked, evidenceLinked{
			Platform:   name,
			Identifier: bundle.Identifier,
			Followers:  bundle.FollowerCount,
			Bio:        textutil.Truncate(bundle.Bio, maxEvidenceCaption),
		})
	}
	for _, failure := range data.Failures {
		doc.FailedSources = append(doc.FailedSources, failure.Source)
	}
	return doc
}
