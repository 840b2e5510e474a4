package platform_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"spyglass/internal/platform"
	"spyglass/internal/taskstore"
)

func TestNewHTTPAdapterValidatesOptions(t *testing.T) {
	if _, err := platform.NewHTTPAdapter(platform.HTTPAdapterOptions{BaseURL: "http://gateway.local"}); err == nil {
		t.Fatal("expected error when platform name missing")
	}
	if _, err := platform.NewHTTPAdapter(platform.HTTPAdapterOptions{Platform: "twitter"}); err == nil {
		t.Fatal("expected error when base url missing")
	}
	if _, err := platform.NewHTTPAdapter(platform.HTTPAdapterOptions{Platform: "twitter", BaseURL: "not a url"}); err == nil {
		t.Fatal("expected error for malformed base url")
	}
}

func TestHTTPFetchDecodesProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/profiles/octocat" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("depth") != "deep" {
			t.Fatalf("expected depth query parameter, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Fatalf("expected JSON accept header, got %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("User-Agent") != "spyglass-test/1.0" {
			t.Fatalf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"identifier":"octocat","bio":"builds things","follower_count":1234,"posts":[{"id":"p1","text":"hello"}]}`))
	}))
	t.Cleanup(server.Close)

	adapter, err := platform.NewHTTPAdapter(platform.HTTPAdapterOptions{
		Platform:  "github",
		BaseURL:   server.URL,
		UserAgent: "spyglass-test/1.0",
	})
	if err != nil {
		t.Fatalf("NewHTTPAdapter returned error: %v", err)
	}

	bundle, err := adapter.Fetch(context.Background(), "octocat", taskstore.DepthDeep)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if bundle.Platform != "github" {
		t.Fatalf("expected platform stamped on bundle, got %q", bundle.Platform)
	}
	if bundle.FollowerCount != 1234 || bundle.Bio != "builds things" {
		t.Fatalf("unexpected bundle: %#v", bundle)
	}
	if len(bundle.Posts) != 1 || bundle.Posts[0].Text != "hello" {
		t.Fatalf("unexpected posts: %#v", bundle.Posts)
	}
	if bundle.FetchedAt.IsZero() {
		t.Fatal("expected FetchedAt to be stamped")
	}
}

func TestHTTPFetchClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		kind   platform.ErrorKind
	}{
		{http.StatusNotFound, platform.KindNotFound},
		{http.StatusTooManyRequests, platform.KindRateLimited},
		{http.StatusUnauthorized, platform.KindUnauthorized},
		{http.StatusForbidden, platform.KindUnauthorized},
		{http.StatusGatewayTimeout, platform.KindTimeout},
		{http.StatusInternalServerError, platform.KindUnknown},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		adapter, err := platform.NewHTTPAdapter(platform.HTTPAdapterOptions{Platform: "twitter", BaseURL: server.URL})
		if err != nil {
			t.Fatalf("NewHTTPAdapter returned error: %v", err)
		}
		_, err = adapter.Fetch(context.Background(), "someone", taskstore.DepthQuick)
		server.Close()
		if err == nil {
			t.Fatalf("expected error for status %d", tc.status)
		}
		adapterErr, ok := platform.AsAdapterError(err)
		if !ok {
			t.Fatalf("expected AdapterError for status %d, got %v", tc.status, err)
		}
		if adapterErr.Kind != tc.kind {
			t.Fatalf("status %d classified as %s, want %s", tc.status, adapterErr.Kind, tc.kind)
		}
	}
}

func TestHTTPSectionFetchesSlice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/profiles/octocat/sections/media" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"captions":["sunset shot","studio tour"]}`))
	}))
	t.Cleanup(server.Close)

	adapter, err := platform.NewHTTPAdapter(platform.HTTPAdapterOptions{Platform: "github", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPAdapter returned error: %v", err)
	}
	section, err := adapter.Section(context.Background(), "octocat", platform.SectionMedia)
	if err != nil {
		t.Fatalf("Section returned error: %v", err)
	}
	if section.Kind != platform.SectionMedia {
		t.Fatalf("expected kind defaulted from request, got %q", section.Kind)
	}
	if len(section.Captions) != 2 {
		t.Fatalf("unexpected captions: %#v", section.Captions)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type stubDoer struct {
	err error
}

func (d stubDoer) Do(*http.Request) (*http.Response, error) {
	return nil, d.err
}

func TestHTTPTransportTimeoutClassified(t *testing.T) {
	adapter, err := platform.NewHTTPAdapter(platform.HTTPAdapterOptions{
		Platform: "twitter",
		BaseURL:  "http://gateway.local",
		Client:   stubDoer{err: timeoutErr{}},
	})
	if err != nil {
		t.Fatalf("NewHTTPAdapter returned error: %v", err)
	}
	_, err = adapter.Fetch(context.Background(), "someone", taskstore.DepthQuick)
	adapterErr, ok := platform.AsAdapterError(err)
	if !ok {
		t.Fatalf("expected AdapterError, got %v", err)
	}
	if adapterErr.Kind != platform.KindTimeout {
		t.Fatalf("expected timeout classification, got %s", adapterErr.Kind)
	}
}

func TestHTTPFetchEmptyIdentifier(t *testing.T) {
	adapter, err := platform.NewHTTPAdapter(platform.HTTPAdapterOptions{Platform: "twitter", BaseURL: "http://gateway.local"})
	if err != nil {
		t.Fatalf("NewHTTPAdapter returned error: %v", err)
	}
	if _, err := adapter.Fetch(context.Background(), "  ", taskstore.DepthQuick); err == nil {
		t.Fatal("expected error for empty identifier")
	}
}
