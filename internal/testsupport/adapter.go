package testsupport

import (
	"context"
	"sync"
	"time"

	"spyglass/internal/platform"
	"spyglass/internal/taskstore"
)

// FakeAdapter serves scripted profile data so collector and dispatch tests
// can control exactly what each fetch returns.
type FakeAdapter struct {
	Name        string
	Bundle      *platform.ProfileBundle
	Sections    map[platform.SectionKind]*platform.Section
	FetchErr    error
	SectionErrs map[platform.SectionKind]error
	FetchDelay  time.Duration

	mu           sync.Mutex
	fetchCalls   int
	sectionCalls []platform.SectionKind
}

// NewFakeAdapter builds a fake with a small but analyzable default profile.
func NewFakeAdapter(name string) *FakeAdapter {
	now := time.Now().UTC()
	return &FakeAdapter{
		Name: name,
		Bundle: &platform.ProfileBundle{
			Platform:       name,
			Identifier:     "scripted",
			DisplayName:    "Scripted Profile",
			Bio:            "Exploring coffee and trails, one post at a time.",
			FollowerCount:  4200,
			FollowingCount: 310,
			PostCount:      870,
			EngagementRate: 0.011,
			Posts: []platform.Post{
				{ID: "p1", Text: "Loving this espresso roast today.", PostedAt: now.Add(-24 * time.Hour), Likes: 40, Reposts: 4},
				{ID: "p2", Text: "Great progress on the trail summit hike.", PostedAt: now.Add(-72 * time.Hour), Likes: 61, Reposts: 9},
				{ID: "p3", Text: "Notes on brewing and beans this week.", PostedAt: now.Add(-120 * time.Hour), Likes: 18, Reposts: 1},
			},
			FetchedAt: now,
		},
		Sections: make(map[platform.SectionKind]*platform.Section),
	}
}

var _ platform.Adapter = (*FakeAdapter)(nil)

func (a *FakeAdapter) Platform() string {
	return a.Name
}

func (a *FakeAdapter) Fetch(ctx context.Context, identifier string, depth taskstore.Depth) (*platform.ProfileBundle, error) {
	a.mu.Lock()
	a.fetchCalls++
	a.mu.Unlock()
	if a.FetchDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.FetchDelay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.FetchErr != nil {
		return nil, a.FetchErr
	}
	bundle := *a.Bundle
	if bundle.Identifier == "scripted" {
		bundle.Identifier = identifier
	}
	return &bundle, nil
}

func (a *FakeAdapter) Section(ctx context.Context, identifier string, kind platform.SectionKind) (*platform.Section, error) {
	a.mu.Lock()
	a.sectionCalls = append(a.sectionCalls, kind)
	a.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := a.SectionErrs[kind]; ok {
		return nil, err
	}
	if section, ok := a.Sections[kind]; ok {
		return section, nil
	}
	return &platform.Section{Kind: kind}, nil
}

// FetchCalls reports how many times Fetch ran.
func (a *FakeAdapter) FetchCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fetchCalls
}

// SectionCalls returns the section kinds fetched, in call order.
func (a *FakeAdapter) SectionCalls() []platform.SectionKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]platform.SectionKind, len(a.sectionCalls))
	copy(out, a.sectionCalls)
	return out
}
