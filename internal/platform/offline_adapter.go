package platform

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"spyglass/internal/taskstore"
)

const (
	offlineQuickPosts = 10
	offlineDeepPosts  = 30
)

// OfflineAdapter serves deterministic synthetic profiles with zero network.
// The same platform and identifier always yield the same profile, which keeps
// demos and tests reproducible. Identifiers containing "doesnotexist" or
// prefixed "missing" report not_found; a "ratelimited" prefix reports
// rate_limited.
type OfflineAdapter struct {
	platform string
	seed     int64
}

var _ Adapter = (*OfflineAdapter)(nil)

// NewOfflineAdapter builds an offline adapter for a platform.
func NewOfflineAdapter(platform string) *OfflineAdapter {
	return &OfflineAdapter{platform: platform}
}

// NewOfflineAdapterWithSeed perturbs the synthetic data for tests that need
// distinct profiles per run.
func NewOfflineAdapterWithSeed(platform string, seed int64) *OfflineAdapter {
	return &OfflineAdapter{platform: platform, seed: seed}
}

func (a *OfflineAdapter) Platform() string {
	return a.platform
}

func (a *OfflineAdapter) Fetch(ctx context.Context, identifier string, depth taskstore.Depth) (*ProfileBundle, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	identifier = strings.TrimSpace(identifier)
	if err := a.checkTriggers(identifier); err != nil {
		return nil, err
	}
	// Small synthetic latency so cancellation has something to interrupt.
	time.Sleep(2 * time.Millisecond)

	profile := newSyntheticProfile(a.platform, identifier, a.rng(identifier))
	bundle := profile.bundle()
	count := offlineQuickPosts
	if depth == taskstore.DepthDeep {
		count = offlineDeepPosts
	}
	bundle.Posts = profile.posts(count)
	return bundle, nil
}

func (a *OfflineAdapter) Section(ctx context.Context, identifier string, kind SectionKind) (*Section, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	identifier = strings.TrimSpace(identifier)
	if err := a.checkTriggers(identifier); err != nil {
		return nil, err
	}
	time.Sleep(2 * time.Millisecond)

	profile := newSyntheticProfile(a.platform, identifier, a.rng(identifier))
	section := &Section{Kind: kind}
	switch kind {
	case SectionFollowers:
		section.Handles = profile.followerSample()
	case SectionMedia:
		section.Captions = profile.mediaCaptions()
	case SectionComments:
		section.Comments = profile.recentComments()
	case SectionLinks:
		section.Handles = profile.outboundLinks()
	default:
		return nil, NewAdapterError(a.platform, KindUnknown, fmt.Sprintf("unsupported section %q", kind), nil)
	}
	return section, nil
}

func (a *OfflineAdapter) checkTriggers(identifier string) error {
	lower := strings.ToLower(identifier)
	if strings.Contains(lower, "doesnotexist") || strings.HasPrefix(lower, "missing") {
		return NewAdapterError(a.platform, KindNotFound, fmt.Sprintf("profile %q does not exist", identifier), nil)
	}
	if strings.HasPrefix(lower, "ratelimited") {
		return NewAdapterError(a.platform, KindRateLimited, "synthetic rate limit", nil)
	}
	return nil
}

func (a *OfflineAdapter) rng(identifier string) *rand.Rand {
	h := fnv64(a.platform + "|" + strings.ToLower(identifier))
	return rand.New(rand.NewSource(int64(h) ^ a.seed))
}

func fnv64(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
