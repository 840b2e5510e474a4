package platform_test

import (
	"errors"
	"fmt"
	"testing"

	"spyglass/internal/config"
	"spyglass/internal/platform"
	"spyglass/internal/testsupport"
)

func TestRegistryBuildsConfiguredAdapters(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	registry, err := platform.NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	names := registry.Names()
	if len(names) == 0 {
		t.Fatal("expected default platforms to be registered")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("expected sorted names, got %v", names)
		}
	}
	if !registry.Supported("twitter") {
		t.Fatal("expected twitter adapter from default config")
	}
	adapter, ok := registry.Adapter("twitter")
	if !ok || adapter.Platform() != "twitter" {
		t.Fatalf("unexpected adapter lookup result: %v %v", adapter, ok)
	}
	if registry.Supported("myspace") {
		t.Fatal("did not expect unconfigured platform")
	}
}

func TestRegistryHTTPModeRequiresBaseURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Platforms["mastodon"] = config.Platform{Mode: "http"}

	if _, err := platform.NewRegistry(cfg); err == nil {
		t.Fatal("expected error for http adapter without base url")
	}
}

func TestRegistryRejectsUnknownMode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Platforms["mastodon"] = config.Platform{Mode: "carrier-pigeon"}

	if _, err := platform.NewRegistry(cfg); err == nil {
		t.Fatal("expected error for unsupported adapter mode")
	}
}

func TestRegistryRegisterOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	registry, err := platform.NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	replacement := platform.NewOfflineAdapterWithSeed("twitter", 7)
	registry.Register(replacement)

	adapter, ok := registry.Adapter("twitter")
	if !ok {
		t.Fatal("expected adapter after override")
	}
	if adapter != platform.Adapter(replacement) {
		t.Fatal("expected registered adapter to replace the configured one")
	}
}

func TestAdapterErrorFormatting(t *testing.T) {
	err := platform.NewAdapterError("twitter", platform.KindRateLimited, "gateway returned 429", nil)
	if err.Error() != "twitter: rate_limited: gateway returned 429" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if err.ErrorKind() != "rate_limited" {
		t.Fatalf("unexpected kind: %q", err.ErrorKind())
	}

	bare := platform.NewAdapterError("twitter", "", "", nil)
	if bare.Error() != "twitter: unknown" {
		t.Fatalf("unexpected bare message: %q", bare.Error())
	}
}

func TestAdapterErrorUnwrapsThroughWrapping(t *testing.T) {
	inner := platform.NewAdapterError("twitter", platform.KindNotFound, "no such profile", nil)
	wrapped := fmt.Errorf("collect profile: %w", inner)

	adapterErr, ok := platform.AsAdapterError(wrapped)
	if !ok || adapterErr.Kind != platform.KindNotFound {
		t.Fatalf("expected wrapped AdapterError, got %v %v", adapterErr, ok)
	}
	if !platform.IsNotFound(wrapped) {
		t.Fatal("expected IsNotFound through wrapping")
	}
	if platform.KindOf(errors.New("plain")) != platform.KindUnknown {
		t.Fatal("expected unknown kind for plain error")
	}
}
