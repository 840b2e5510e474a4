package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"spyglass/internal/config"
	"spyglass/internal/dispatch"
	"spyglass/internal/logging"
	"spyglass/internal/services"
	"spyglass/internal/taskstore"
	"spyglass/internal/testsupport"
)

func TestLocalDispatcherProcessesSubmittedTask(t *testing.T) {
	h := newHarness(t, nil, testsupport.NewFakeAdapter("twitter"))
	d := dispatch.NewLocalDispatcher(h.store, h.runner, h.cfg, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(d.Stop)

	task := testsupport.NewTask(t, h.store, "twitter", "morning_roast")
	if err := d.Submit(context.Background(), task.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitForStatus(t, h.store, task.ID, taskstore.StatusCompleted)
}

func TestLocalDispatcherDrainsBacklogOnStart(t *testing.T) {
	h := newHarness(t, nil, testsupport.NewFakeAdapter("twitter"))
	first := testsupport.NewTask(t, h.store, "twitter", "one")
	second := testsupport.NewTask(t, h.store, "twitter", "two")
	third := testsupport.NewTask(t, h.store, "twitter", "three")

	d := dispatch.NewLocalDispatcher(h.store, h.runner, h.cfg, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(d.Stop)

	waitForStatus(t, h.store, first.ID, taskstore.StatusCompleted)
	waitForStatus(t, h.store, second.ID, taskstore.StatusCompleted)
	waitForStatus(t, h.store, third.ID, taskstore.StatusCompleted)
}

func TestLocalDispatcherSubmitRequiresStart(t *testing.T) {
	h := newHarness(t, nil, testsupport.NewFakeAdapter("twitter"))
	d := dispatch.NewLocalDispatcher(h.store, h.runner, h.cfg, logging.NewNop())

	err := d.Submit(context.Background(), 1)
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLocalDispatcherStartRequeuesStaleClaims(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Queue.HeartbeatTimeout = 1
	}, testsupport.NewFakeAdapter("twitter"))
	task := testsupport.NewTask(t, h.store, "twitter", "abandoned")
	testsupport.ClaimTask(t, h.store, task.ID)

	// Let the claim's heartbeat age past the timeout.
	time.Sleep(1200 * time.Millisecond)

	d := dispatch.NewLocalDispatcher(h.store, h.runner, h.cfg, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(d.Stop)

	waitForStatus(t, h.store, task.ID, taskstore.StatusCompleted)
}

func TestLocalDispatcherStopIsIdempotent(t *testing.T) {
	h := newHarness(t, nil, testsupport.NewFakeAdapter("twitter"))
	d := dispatch.NewLocalDispatcher(h.store, h.runner, h.cfg, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	d.Stop()
	d.Stop()

	err := d.Submit(context.Background(), 1)
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after stop, got %v", err)
	}
}
