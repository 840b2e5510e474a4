package services_test

import (
	"context"
	"testing"

	"spyglass/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTaskID(ctx, 42)
	ctx = services.WithPlatform(ctx, "twitter")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.TaskIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected task id: %v %v", id, ok)
	}
	if platform, ok := services.PlatformFromContext(ctx); !ok || platform != "twitter" {
		t.Fatalf("unexpected platform: %v %v", platform, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestPlatformBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPlatform(ctx, "")
	if _, ok := services.PlatformFromContext(ctx); ok {
		t.Fatal("expected no platform value")
	}
}
