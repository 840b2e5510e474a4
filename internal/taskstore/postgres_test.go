package taskstore_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"spyglass/internal/taskstore"
	"spyglass/internal/testsupport"
)

// TestPostgresLifecycle exercises the transition surface against a real
// PostgreSQL database. Set SPYGLASS_TEST_PG_DSN to a disposable database to
// enable it. Identifiers carry a nanosecond suffix so reruns against the
// same database never collide.
func TestPostgresLifecycle(t *testing.T) {
	dsn := os.Getenv("SPYGLASS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("SPYGLASS_TEST_PG_DSN not set")
	}

	cfg := testsupport.NewConfig(t,
		testsupport.WithStoreDriver("postgres"),
		testsupport.WithStoreDSN(dsn))
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	identifier := fmt.Sprintf("pg_lifecycle_%d", time.Now().UnixNano())
	task, err := store.Create(ctx, "twitter", identifier, taskstore.DepthDeep, "req-pg")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != taskstore.StatusPending || task.Depth != taskstore.DepthDeep {
		t.Fatalf("created = %+v", task)
	}

	claimed, err := store.Claim(ctx, task.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != taskstore.StatusProcessing || claimed.StartedAt == nil {
		t.Fatalf("claimed = %+v", claimed)
	}
	if _, err := store.Claim(ctx, task.ID); !errors.Is(err, taskstore.ErrNotClaimable) {
		t.Fatalf("second claim error = %v", err)
	}

	if err := store.UpdateProgress(ctx, task.ID, 40, "collecting profile"); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if err := store.Heartbeat(ctx, task.ID); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	completed, err := store.Complete(ctx, task.ID, `{"source":"heuristic"}`)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != taskstore.StatusCompleted || completed.ResultRef == "" {
		t.Fatalf("completed = %+v", completed)
	}
	record, err := store.Result(ctx, task.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if record == nil || record.Ref != completed.ResultRef {
		t.Fatalf("result = %+v, want ref %q", record, completed.ResultRef)
	}

	if _, err := store.Cancel(ctx, task.ID); !errors.Is(err, taskstore.ErrInvalidTransition) {
		t.Fatalf("cancel completed error = %v", err)
	}
	if _, err := store.Retry(ctx, task.ID); !errors.Is(err, taskstore.ErrNotRetryable) {
		t.Fatalf("retry completed error = %v", err)
	}

	second, err := store.Create(ctx, "twitter", identifier+"_retry", taskstore.DepthQuick, "")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := store.Claim(ctx, second.ID); err != nil {
		t.Fatalf("claim second: %v", err)
	}
	failed, err := store.Fail(ctx, second.ID, "gateway timeout")
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if failed.Status != taskstore.StatusFailed || failed.ErrorDetail != "gateway timeout" {
		t.Fatalf("failed = %+v", failed)
	}
	retried, err := store.Retry(ctx, second.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Status != taskstore.StatusPending || retried.ErrorDetail != "" || retried.StartedAt != nil {
		t.Fatalf("retried = %+v", retried)
	}
}
