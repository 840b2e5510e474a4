package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spyglass/internal/taskstore"
)

const (
	defaultHTTPTimeout   = 20 * time.Second
	defaultHTTPUserAgent = "Spyglass/dev"
)

// HTTPDoer describes the HTTP client used by the adapter.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPAdapterOptions configures an HTTP-backed adapter.
type HTTPAdapterOptions struct {
	Platform  string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Client    HTTPDoer
}

// HTTPAdapter collects profiles from a scrape gateway speaking the profile
// JSON contract: GET {base}/api/v1/profiles/{identifier} for the snapshot and
// GET {base}/api/v1/profiles/{identifier}/sections/{kind} for single sections.
type HTTPAdapter struct {
	platform  string
	baseURL   string
	userAgent string
	client    HTTPDoer
}

var _ Adapter = (*HTTPAdapter)(nil)

// NewHTTPAdapter validates the options and builds the adapter.
func NewHTTPAdapter(opts HTTPAdapterOptions) (*HTTPAdapter, error) {
	name := strings.TrimSpace(opts.Platform)
	if name == "" {
		return nil, errors.New("platform name required")
	}
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("base url required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", base)
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultHTTPUserAgent
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPAdapter{
		platform:  name,
		baseURL:   strings.TrimRight(base, "/"),
		userAgent: userAgent,
		client:    client,
	}, nil
}

func (a *HTTPAdapter) Platform() string {
	return a.platform
}

func (a *HTTPAdapter) Fetch(ctx context.Context, identifier string, depth taskstore.Depth) (*ProfileBundle, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, errors.New("identifier must not be empty")
	}
	endpoint := fmt.Sprintf("%s/api/v1/profiles/%s", a.baseURL, url.PathEscape(identifier))
	if depth != "" {
		endpoint += "?depth=" + url.QueryEscape(string(depth))
	}
	var bundle ProfileBundle
	if err := a.getJSON(ctx, endpoint, &bundle); err != nil {
		return nil, err
	}
	bundle.Platform = a.platform
	if bundle.Identifier == "" {
		bundle.Identifier = identifier
	}
	if bundle.FetchedAt.IsZero() {
		bundle.FetchedAt = time.Now().UTC()
	}
	return &bundle, nil
}

func (a *HTTPAdapter) Section(ctx context.Context, identifier string, kind SectionKind) (*Section, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, errors.New("identifier must not be empty")
	}
	endpoint := fmt.Sprintf("%s/api/v1/profiles/%s/sections/%s", a.baseURL, url.PathEscape(identifier), url.PathEscape(string(kind)))
	var section Section
	if err := a.getJSON(ctx, endpoint, &section); err != nil {
		return nil, err
	}
	if section.Kind == "" {
		section.Kind = kind
	}
	return &section, nil
}

func (a *HTTPAdapter) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.userAgent)

	requestStart := time.Now()
	resp, err := a.client.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return a.classifyTransport(err, latency)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewAdapterError(a.platform, classifyStatus(resp.StatusCode),
			fmt.Sprintf("gateway returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewAdapterError(a.platform, KindUnknown, "decode gateway response", err)
	}
	return nil
}

func (a *HTTPAdapter) classifyTransport(err error, latency time.Duration) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	kind := KindUnknown
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return NewAdapterError(a.platform, kind, fmt.Sprintf("execute request (latency=%v)", latency), err)
}

func classifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusNotFound, http.StatusGone:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindUnknown
	}
}
