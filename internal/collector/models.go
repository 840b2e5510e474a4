package collector

import (
	"fmt"
	"sort"
	"time"

	"spyglass/internal/platform"
	"spyglass/internal/taskstore"
)

// SourceFailure records one secondary fetch that failed during collection.
type SourceFailure struct {
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// CollectedData is everything collection gathered for one task. Secondary
// failures ride along instead of failing the run, so analysis can report
// which sources are missing.
type CollectedData struct {
	Platform   string
	Identifier string
	Depth      taskstore.Depth
	Primary    *platform.ProfileBundle
	Linked     map[string]*platform.ProfileBundle
	Sections   map[platform.SectionKind]*platform.Section
	Failures   []SourceFailure
	StartedAt  time.Time
	Duration   time.Duration
}

// Empty reports whether collection obtained nothing usable at all.
func (d *CollectedData) Empty() bool {
	if d == nil {
		return true
	}
	return d.Primary == nil && len(d.Linked) == 0 && len(d.Sections) == 0
}

// SucceededSources lists the sources that produced data, in stable order.
func (d *CollectedData) SucceededSources() []string {
	if d == nil {
		return nil
	}
	sources := make([]string, 0, 1+len(d.Sections)+len(d.Linked))
	if d.Primary != nil {
		sources = append(sources, "profile")
	}
	kinds := make([]string, 0, len(d.Sections))
	for kind := range d.Sections {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		sources = append(sources, "section:"+kind)
	}
	platforms := make([]string, 0, len(d.Linked))
	for name := range d.Linked {
		platforms = append(platforms, name)
	}
	sort.Strings(platforms)
	for _, name := range platforms {
		sources = append(sources, fmt.Sprintf("linked:%s/%s", name, d.Linked[name].Identifier))
	}
	return sources
}

// PlatformsSeen returns the primary platform plus every linked platform that
// produced a bundle, sorted.
func (d *CollectedData) PlatformsSeen() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{}, 1+len(d.Linked))
	if d.Platform != "" {
		seen[d.Platform] = struct{}{}
	}
	for name := range d.Linked {
		seen[name] = struct{}{}
	}
	platforms := make([]string, 0, len(seen))
	for name := range seen {
		platforms = append(platforms, name)
	}
	sort.Strings(platforms)
	return platforms
}

// AllPosts returns the primary posts followed by linked-profile posts in
// sorted platform order.
func (d *CollectedData) AllPosts() []platform.Post {
	if d == nil {
		return nil
	}
	var posts []platform.Post
	if d.Primary != nil {
		posts = append(posts, d.Primary.Posts...)
	}
	platforms := make([]string, 0, len(d.Linked))
	for name := range d.Linked {
		platforms = append(platforms, name)
	}
	sort.Strings(platforms)
	for _, name := range platforms {
		posts = append(posts, d.Linked[name].Posts...)
	}
	return posts
}
