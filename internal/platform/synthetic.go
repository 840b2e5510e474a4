package platform

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

var themePools = [][]string{
	{"espresso", "roast", "brewing", "coffee", "latte", "beans"},
	{"trail", "summit", "hiking", "alpine", "ridge", "basecamp"},
	{"synth", "vinyl", "mixtape", "bassline", "studio", "chords"},
	{"kubernetes", "compiler", "debugging", "refactor", "deploy", "shipping"},
	{"sourdough", "fermentation", "baking", "crumb", "starter", "flour"},
	{"marathon", "intervals", "training", "recovery", "stretching", "cadence"},
	{"watercolor", "sketchbook", "gallery", "canvas", "pigment", "composition"},
	{"telescope", "nebula", "stargazing", "aperture", "eclipse", "orbit"},
}

var positiveOpeners = []string{
	"Loving", "Obsessed with", "So happy about", "Grateful for", "Great progress on",
}

var negativeOpeners = []string{
	"Frustrated with", "Disappointed by", "Tired of", "Annoyed at", "Struggling with",
}

var neutralOpeners = []string{
	"Thinking about", "Notes on", "A quick look at", "This week in", "Working through",
}

var bioTemplates = []string{
	"Exploring %s and %s, one post at a time.",
	"%s enthusiast. %s on weekends.",
	"All things %s. Occasional %s.",
	"Documenting my %s journey. Also into %s.",
}

var captionTemplates = []string{
	"Morning %s session.",
	"New %s setup finally dialed in.",
	"Throwback to last month's %s.",
	"Close-up of today's %s.",
	"Behind the scenes: %s prep.",
}

var followerSuffixes = []string{"fan", "daily", "club", "crew", "lover", "hq"}

// offlineKnownPlatforms is where synthetic cross-platform links point.
var offlineKnownPlatforms = []string{"twitter", "instagram", "tiktok", "youtube"}

const promoPostText = "Huge giveaway! Follow and share to win. Link in bio. Do not miss out."

// syntheticProfile holds one fully generated profile so quick views, deep
// views, and sections all stay consistent with each other.
type syntheticProfile struct {
	platform    string
	identifier  string
	displayName string
	bio         string
	avatarURL   string
	followers   int
	following   int
	postTotal   int
	verified    bool
	engagement  float64
	allPosts    []Post
	links       []Handle
	followerIDs []Handle
	captions    []string
	comments    []Comment
}

// newSyntheticProfile draws every profile attribute from rng in a fixed
// order, so a given identifier always produces the same profile.
func newSyntheticProfile(platform, identifier string, rng *rand.Rand) *syntheticProfile {
	p := &syntheticProfile{
		platform:    platform,
		identifier:  identifier,
		displayName: displayNameFor(identifier),
		avatarURL:   fmt.Sprintf("https://cdn.%s.invalid/avatars/%08x.png", platform, fnv64(identifier)),
	}

	switch rng.Intn(4) {
	case 0:
		p.followers = 50 + rng.Intn(950)
	case 1:
		p.followers = 1_000 + rng.Intn(9_000)
	case 2:
		p.followers = 10_000 + rng.Intn(90_000)
	default:
		p.followers = 100_000 + rng.Intn(900_000)
	}
	p.following = 50 + rng.Intn(1_500)
	p.postTotal = 120 + rng.Intn(4_000)
	p.verified = p.followers > 100_000 && rng.Float64() < 0.6

	primary := themePools[rng.Intn(len(themePools))]
	secondary := themePools[rng.Intn(len(themePools))]
	mood := rng.Float64()
	repetitive := strings.Contains(strings.ToLower(identifier), "bot") || rng.Float64() < 0.12

	p.bio = fmt.Sprintf(bioTemplates[rng.Intn(len(bioTemplates))], primary[0], secondary[0])
	p.allPosts = generatePosts(identifier, rng, primary, secondary, mood, repetitive, p.followers)
	p.engagement = engagementRate(p.allPosts, p.followers)
	p.links = generateCrossLinks(platform, identifier, rng)
	p.followerIDs = generateFollowers(platform, rng, primary)
	p.captions = generateCaptions(rng, primary)
	p.comments = generateComments(rng, primary, secondary, mood, p.followerIDs)
	return p
}

func (p *syntheticProfile) bundle() *ProfileBundle {
	return &ProfileBundle{
		Platform:       p.platform,
		Identifier:     p.identifier,
		DisplayName:    p.displayName,
		Bio:            p.bio,
		AvatarURL:      p.avatarURL,
		Verified:       p.verified,
		FollowerCount:  p.followers,
		FollowingCount: p.following,
		PostCount:      p.postTotal,
		EngagementRate: p.engagement,
		Links:          cloneHandles(p.links),
		FetchedAt:      time.Now().UTC(),
	}
}

// posts returns the newest count posts; quick views are a prefix of deep ones.
func (p *syntheticProfile) posts(count int) []Post {
	if count > len(p.allPosts) {
		count = len(p.allPosts)
	}
	out := make([]Post, count)
	copy(out, p.allPosts[:count])
	return out
}

func (p *syntheticProfile) followerSample() []Handle {
	return cloneHandles(p.followerIDs)
}

func (p *syntheticProfile) mediaCaptions() []string {
	out := make([]string, len(p.captions))
	copy(out, p.captions)
	return out
}

func (p *syntheticProfile) recentComments() []Comment {
	out := make([]Comment, len(p.comments))
	copy(out, p.comments)
	return out
}

func (p *syntheticProfile) outboundLinks() []Handle {
	return cloneHandles(p.links)
}

func generatePosts(identifier string, rng *rand.Rand, primary, secondary []string, mood float64, repetitive bool, followers int) []Post {
	posts := make([]Post, 0, offlineDeepPosts)
	ts := time.Now().UTC().Add(-time.Duration(1+rng.Intn(12)) * time.Hour)
	likeBase := followers/40 + 1
	for i := 0; i < offlineDeepPosts; i++ {
		text := organicPostText(rng, primary, secondary, mood)
		if repetitive && rng.Float64() < 0.8 {
			text = promoPostText
		}
		likes := rng.Intn(likeBase*2 + 1)
		posts = append(posts, Post{
			ID:       fmt.Sprintf("%s-post-%d", identifier, i+1),
			Text:     text,
			PostedAt: ts,
			Likes:    likes,
			Reposts:  likes / (4 + rng.Intn(6)),
		})
		gap := time.Duration(6+rng.Intn(40)) * time.Hour
		if repetitive {
			gap = time.Duration(1+rng.Intn(3)) * time.Hour
		}
		ts = ts.Add(-gap)
	}
	return posts
}

func organicPostText(rng *rand.Rand, primary, secondary []string, mood float64) string {
	roll := rng.Float64()
	posCut := 0.25 + 0.55*mood
	negCut := posCut + 0.35*(1-mood)
	var opener string
	switch {
	case roll < posCut:
		opener = positiveOpeners[rng.Intn(len(positiveOpeners))]
	case roll < negCut:
		opener = negativeOpeners[rng.Intn(len(negativeOpeners))]
	default:
		opener = neutralOpeners[rng.Intn(len(neutralOpeners))]
	}
	first := primary[rng.Intn(len(primary))]
	second := primary[rng.Intn(len(primary))]
	if rng.Float64() < 0.35 {
		second = secondary[rng.Intn(len(secondary))]
	}
	return fmt.Sprintf("%s %s and %s today.", opener, first, second)
}

func engagementRate(posts []Post, followers int) float64 {
	if len(posts) == 0 || followers <= 0 {
		return 0
	}
	var interactions int
	for _, post := range posts {
		interactions += post.Likes + post.Reposts
	}
	return float64(interactions) / float64(len(posts)) / float64(followers)
}

// generateCrossLinks points at the same identifier on other platforms, the
// usual cross-posting pattern. Deep collection chases these.
func generateCrossLinks(platform, identifier string, rng *rand.Rand) []Handle {
	others := make([]string, 0, len(offlineKnownPlatforms))
	for _, name := range offlineKnownPlatforms {
		if name != platform {
			others = append(others, name)
		}
	}
	count := rng.Intn(3)
	if count > len(others) {
		count = len(others)
	}
	if count == 0 {
		return nil
	}
	order := rng.Perm(len(others))
	links := make([]Handle, 0, count)
	for i := 0; i < count; i++ {
		links = append(links, Handle{Platform: others[order[i]], Identifier: identifier})
	}
	return links
}

func generateFollowers(platform string, rng *rand.Rand, primary []string) []Handle {
	count := 3 + rng.Intn(4)
	followers := make([]Handle, 0, count)
	for i := 0; i < count; i++ {
		word := primary[rng.Intn(len(primary))]
		suffix := followerSuffixes[rng.Intn(len(followerSuffixes))]
		followers = append(followers, Handle{
			Platform:   platform,
			Identifier: fmt.Sprintf("%s_%s_%d", word, suffix, 1+rng.Intn(99)),
		})
	}
	return followers
}

func generateCaptions(rng *rand.Rand, primary []string) []string {
	count := 2 + rng.Intn(4)
	captions := make([]string, 0, count)
	for i := 0; i < count; i++ {
		template := captionTemplates[rng.Intn(len(captionTemplates))]
		captions = append(captions, fmt.Sprintf(template, primary[rng.Intn(len(primary))]))
	}
	return captions
}

func generateComments(rng *rand.Rand, primary, secondary []string, mood float64, authors []Handle) []Comment {
	count := 2 + rng.Intn(5)
	ts := time.Now().UTC().Add(-2 * time.Hour)
	comments := make([]Comment, 0, count)
	for i := 0; i < count; i++ {
		author := ""
		if len(authors) > 0 {
			author = authors[rng.Intn(len(authors))].Identifier
		}
		comments = append(comments, Comment{
			Author:   author,
			Text:     organicPostText(rng, primary, secondary, mood),
			PostedAt: ts,
		})
		ts = ts.Add(-time.Duration(3+rng.Intn(20)) * time.Hour)
	}
	return comments
}

func cloneHandles(handles []Handle) []Handle {
	if len(handles) == 0 {
		return nil
	}
	out := make([]Handle, len(handles))
	copy(out, handles)
	return out
}

func displayNameFor(identifier string) string {
	parts := strings.FieldsFunc(identifier, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	if len(parts) == 0 {
		return identifier
	}
	for i, part := range parts {
		runes := []rune(part)
		if len(runes) == 0 {
			continue
		}
		parts[i] = strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
	return strings.Join(parts, " ")
}
