package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spyglass/internal/taskstore"
)

// SectionKind names a deep-only secondary endpoint of a profile.
type SectionKind string

const (
	// SectionFollowers is a sample of the profile's followers.
	SectionFollowers SectionKind = "followers"
	// SectionMedia is the captions of recent media uploads.
	SectionMedia SectionKind = "media"
	// SectionComments is the profile's recent comment activity.
	SectionComments SectionKind = "comments"
	// SectionLinks is the outbound links the profile publishes.
	SectionLinks SectionKind = "links"
)

// DeepSections lists the sections deep collection fans out over.
func DeepSections() []SectionKind {
	return []SectionKind{SectionFollowers, SectionMedia, SectionComments, SectionLinks}
}

// Post is a single public post on a profile.
type Post struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	PostedAt time.Time `json:"posted_at"`
	Likes    int       `json:"likes"`
	Reposts  int       `json:"reposts"`
}

// Comment is one comment left by the profile elsewhere.
type Comment struct {
	Author   string    `json:"author,omitempty"`
	Text     string    `json:"text"`
	PostedAt time.Time `json:"posted_at"`
}

// Handle references a profile on a platform.
type Handle struct {
	Platform   string `json:"platform"`
	Identifier string `json:"identifier"`
}

// ProfileBundle is the normalized profile snapshot an adapter returns.
type ProfileBundle struct {
	Platform       string    `json:"platform"`
	Identifier     string    `json:"identifier"`
	DisplayName    string    `json:"display_name,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	Verified       bool      `json:"verified"`
	FollowerCount  int       `json:"follower_count"`
	FollowingCount int       `json:"following_count"`
	PostCount      int       `json:"post_count"`
	EngagementRate float64   `json:"engagement_rate"`
	Posts          []Post    `json:"posts,omitempty"`
	Links          []Handle  `json:"links,omitempty"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// Section is one secondary profile slice. The field matching Kind is set.
type Section struct {
	Kind     SectionKind `json:"kind"`
	Handles  []Handle    `json:"handles,omitempty"`
	Captions []string    `json:"captions,omitempty"`
	Comments []Comment   `json:"comments,omitempty"`
}

// Adapter abstracts all platform-specific collection logic.
//
// Implementations must be safe for concurrent use; the collector fans section
// fetches out across goroutines.
type Adapter interface {
	// Platform returns the platform name the adapter serves.
	Platform() string

	// Fetch returns the profile snapshot for an identifier: bio, counts,
	// recent posts, and any cross-platform handles discovered on the profile.
	Fetch(ctx context.Context, identifier string, depth taskstore.Depth) (*ProfileBundle, error)

	// Section fetches a single secondary slice.
	Section(ctx context.Context, identifier string, kind SectionKind) (*Section, error)
}

// ErrorKind classifies adapter failures for partial-failure reporting.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindRateLimited  ErrorKind = "rate_limited"
	KindTimeout      ErrorKind = "timeout"
	KindUnauthorized ErrorKind = "unauthorized"
	KindUnknown      ErrorKind = "unknown"
)

// AdapterError carries a classified collection failure.
type AdapterError struct {
	Platform string
	Kind     ErrorKind
	Detail   string
	Err      error
}

func (e *AdapterError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = KindUnknown
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Platform, kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Platform, kind)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// ErrorKind exposes the classification for error mappers.
func (e *AdapterError) ErrorKind() string {
	if e.Kind == "" {
		return string(KindUnknown)
	}
	return string(e.Kind)
}

// NewAdapterError builds a classified adapter failure.
func NewAdapterError(platform string, kind ErrorKind, detail string, err error) *AdapterError {
	return &AdapterError{Platform: platform, Kind: kind, Detail: detail, Err: err}
}

// AsAdapterError unwraps err into an AdapterError when one is present.
func AsAdapterError(err error) (*AdapterError, bool) {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr, true
	}
	return nil, false
}

// KindOf returns the classification for err, defaulting to unknown.
func KindOf(err error) ErrorKind {
	if adapterErr, ok := AsAdapterError(err); ok && adapterErr.Kind != "" {
		return adapterErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// IsNotFound reports whether err represents a missing profile.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
