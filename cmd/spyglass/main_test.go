package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spyglass/internal/analysis"
	"spyglass/internal/api"
	"spyglass/internal/collector"
	"spyglass/internal/daemon"
	"spyglass/internal/dispatch"
	"spyglass/internal/httpapi"
	"spyglass/internal/logging"
	"spyglass/internal/platform"
	"spyglass/internal/services/llm"
	"spyglass/internal/taskstore"
	"spyglass/internal/testsupport"
)

type cliTestEnv struct {
	store taskstore.Store
	addr  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()

	store := taskstore.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	registry, err := platform.NewRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	engine := analysis.New(llm.NewClient(llm.Config{}), cfg, logger)
	coll := collector.New(registry, cfg, logger)
	runner := dispatch.NewRunner(store, coll, engine, nil, cfg, logger)
	dispatcher, err := dispatch.New(store, runner, cfg, logger)
	if err != nil {
		t.Fatalf("build dispatcher: %v", err)
	}

	server, err := httpapi.New(cfg, store, dispatcher, registry, daemon.Version, logger)
	if err != nil {
		t.Fatalf("build api server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := dispatcher.Start(ctx); err != nil {
		t.Fatalf("start dispatcher: %v", err)
	}
	t.Cleanup(dispatcher.Stop)
	if err := server.Start(ctx); err != nil {
		t.Fatalf("start api server: %v", err)
	}
	t.Cleanup(server.Stop)

	return &cliTestEnv{store: store, addr: server.Addr()}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--api", env.addr))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func failTask(t *testing.T, store taskstore.Store, id int64, detail string) {
	t.Helper()
	testsupport.ClaimTask(t, store, id)
	if _, err := store.Fail(context.Background(), id, detail); err != nil {
		t.Fatalf("fail task: %v", err)
	}
}

func completeTask(t *testing.T, store taskstore.Store, id int64, payload string) {
	t.Helper()
	testsupport.ClaimTask(t, store, id)
	if _, err := store.Complete(context.Background(), id, []byte(payload)); err != nil {
		t.Fatalf("complete task: %v", err)
	}
}

func TestSubmitWaitCompletes(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "submit", "twitter", "cli_user", "--wait")
	if err != nil {
		t.Fatalf("submit --wait: %v\n%s", err, out)
	}
	if !strings.Contains(out, "accepted") || !strings.Contains(out, "completed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "spyglass result") {
		t.Fatalf("expected result hint in output:\n%s", out)
	}
}

func TestSubmitJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "submit", "instagram", "json_user", "--json")
	if err != nil {
		t.Fatalf("submit --json: %v\n%s", err, out)
	}
	var resp api.TaskResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if resp.Task.Platform != "instagram" || resp.Task.ID == 0 {
		t.Fatalf("unexpected task: %+v", resp.Task)
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	task := testsupport.NewTask(t, env.store, "twitter", "status_user")

	out, err := runCLI(t, env, "status", fmt.Sprintf("%d", task.ID))
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	for _, want := range []string{fmt.Sprintf("Task %d", task.ID), "twitter", "status_user"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}

	if _, err := runCLI(t, env, "status", "abc"); err == nil || !strings.Contains(err.Error(), "invalid task id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}

func TestResultCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	done := testsupport.NewTask(t, env.store, "twitter", "done_user")
	completeTask(t, env.store, done.ID, `{"source":"heuristic","identifier":"done_user"}`)
	out, err := runCLI(t, env, "result", fmt.Sprintf("%d", done.ID))
	if err != nil {
		t.Fatalf("result: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"source": "heuristic"`) {
		t.Fatalf("expected indented payload:\n%s", out)
	}

	running := testsupport.NewTask(t, env.store, "twitter", "running_user")
	testsupport.ClaimTask(t, env.store, running.ID)
	if _, err := runCLI(t, env, "result", fmt.Sprintf("%d", running.ID)); err == nil || !strings.Contains(err.Error(), "processing") {
		t.Fatalf("expected not-ready error, got %v", err)
	}
}

func TestCancelCommandIsIdempotent(t *testing.T) {
	env := setupCLITestEnv(t)
	task := testsupport.NewTask(t, env.store, "tiktok", "cancel_user")
	testsupport.ClaimTask(t, env.store, task.ID)
	id := fmt.Sprintf("%d", task.ID)

	out, err := runCLI(t, env, "cancel", id)
	if err != nil {
		t.Fatalf("cancel: %v\n%s", err, out)
	}
	if !strings.Contains(out, fmt.Sprintf("Task %d cancelled", task.ID)) {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, err = runCLI(t, env, "cancel", id)
	if err != nil {
		t.Fatalf("second cancel: %v\n%s", err, out)
	}
	if !strings.Contains(out, "already cancelled") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRetryCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	task := testsupport.NewTask(t, env.store, "youtube", "retry_user")
	failTask(t, env.store, task.ID, "fetch exploded")

	out, err := runCLI(t, env, "retry", fmt.Sprintf("%d", task.ID))
	if err != nil {
		t.Fatalf("retry: %v\n%s", err, out)
	}
	if !strings.Contains(out, "re-queued (pending)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestListCommandFiltersAndJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	first := testsupport.NewTask(t, env.store, "twitter", "list_one")
	second := testsupport.NewTask(t, env.store, "instagram", "list_two")
	failTask(t, env.store, first.ID, "boom")

	out, err := runCLI(t, env, "list")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "list_one") || !strings.Contains(out, "list_two") {
		t.Fatalf("expected both tasks listed:\n%s", out)
	}

	out, err = runCLI(t, env, "list", "--status", "failed")
	if err != nil {
		t.Fatalf("list --status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "list_one") || strings.Contains(out, "list_two") {
		t.Fatalf("expected only the failed task:\n%s", out)
	}

	out, err = runCLI(t, env, "list", "--json")
	if err != nil {
		t.Fatalf("list --json: %v\n%s", err, out)
	}
	var resp api.TaskListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2; second id %d", resp.Count, second.ID)
	}
}

func TestPlatformsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "platforms")
	if err != nil {
		t.Fatalf("platforms: %v\n%s", err, out)
	}
	for _, name := range []string{"instagram", "tiktok", "twitter", "youtube"} {
		if !strings.Contains(out, name) {
			t.Fatalf("missing platform %q:\n%s", name, out)
		}
	}
}

func TestDaemonStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewTask(t, env.store, "twitter", "queued_user")

	out, err := runCLI(t, env, "daemon-status")
	if err != nil {
		t.Fatalf("daemon-status: %v\n%s", err, out)
	}
	for _, want := range []string{"Spyglass daemon v" + daemon.Version, "Queue mode", "local", "pending"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "spyglass "+daemon.Version) {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestUnreachableDaemonMessage(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"list", "--api", "127.0.0.1:1"})

	err := cmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "cannot reach the spyglass daemon") {
		t.Fatalf("expected unreachable error, got %v", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config init: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Wrote sample configuration") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.ExecuteContext(context.Background()); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite guard, got %v", err)
	}
}
