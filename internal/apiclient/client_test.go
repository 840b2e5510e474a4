package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"spyglass/internal/api"
	"spyglass/internal/apiclient"
)

func TestNewValidatesBind(t *testing.T) {
	if _, err := apiclient.New("   "); err == nil {
		t.Fatal("expected error for empty bind")
	}
	client, err := apiclient.New("127.0.0.1:7601")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client == nil {
		t.Fatal("expected client")
	}
}

func TestSubmitTaskPostsBody(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.TaskResponse{Task: api.Task{ID: 7, Platform: "twitter", Status: "pending"}})
	}))
	defer srv.Close()

	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	task, err := client.SubmitTask(context.Background(), "twitter", "morning_roast", "deep")
	if err != nil {
		t.Fatalf("SubmitTask: %v", err)
	}
	if task.ID != 7 || task.Status != "pending" {
		t.Fatalf("unexpected task: %+v", task)
	}
	if gotPath != "/api/v1/tasks" {
		t.Fatalf("path = %q", gotPath)
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(gotBody), &decoded); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if decoded["platform"] != "twitter" || decoded["identifier"] != "morning_roast" || decoded["depth"] != "deep" {
		t.Fatalf("unexpected request body: %q", gotBody)
	}
}

func TestListBuildsQuery(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.TaskListResponse{Tasks: []api.Task{{ID: 1}}, Count: 1, Limit: 10, Offset: 20})
	}))
	defer srv.Close()

	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := client.List(context.Background(), apiclient.ListOptions{
		Statuses: []string{"pending", "processing"},
		Platform: "twitter",
		Limit:    10,
		Offset:   20,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if resp.Count != 1 || len(resp.Tasks) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	for key, want := range map[string]string{
		"status":   "pending,processing",
		"platform": "twitter",
		"limit":    "10",
		"offset":   "20",
	} {
		if got := gotQuery.Get(key); got != want {
			t.Fatalf("query %s = %q, want %q", key, got, want)
		}
	}
}

func TestErrorEnvelopeDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: api.ErrorBody{
			Code:    "invalid_state",
			Message: "cannot cancel a completed task",
			Status:  "completed",
		}})
	}))
	defer srv.Close()

	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Cancel(context.Background(), 12)
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.HTTPStatus != http.StatusConflict || apiErr.Code != "invalid_state" || apiErr.TaskStatus != "completed" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
	if apiErr.Error() != "cannot cancel a completed task" {
		t.Fatalf("Error() = %q", apiErr.Error())
	}
}

func TestErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Status(context.Background())
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.HTTPStatus != http.StatusBadGateway || apiErr.Code != "" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
	if apiErr.Error() != "daemon returned status 502" {
		t.Fatalf("Error() = %q", apiErr.Error())
	}
}

func TestTaskResultReturnsRawPayload(t *testing.T) {
	payload := `{"source":"heuristic","platform":"twitter","themes":[{"name":"coffee"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw, err := client.TaskResult(context.Background(), 3)
	if err != nil {
		t.Fatalf("TaskResult: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("returned payload is not JSON: %v", err)
	}
	if decoded["source"] != "heuristic" {
		t.Fatalf("unexpected payload: %s", raw)
	}
}

func TestWaitForTaskPollsUntilTerminal(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "processing"
		if calls.Add(1) >= 3 {
			status = "completed"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.TaskResponse{Task: api.Task{ID: 5, Status: status}})
	}))
	defer srv.Close()

	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	task, err := client.WaitForTask(context.Background(), 5, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForTask: %v", err)
	}
	if task.Status != "completed" {
		t.Fatalf("status = %q, want completed", task.Status)
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 polls, got %d", calls.Load())
	}
}

func TestWaitForTaskHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.TaskResponse{Task: api.Task{ID: 5, Status: "processing"}})
	}))
	defer srv.Close()

	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.WaitForTask(ctx, 5, 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestIsDaemonUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	bind := srv.URL
	srv.Close()

	client, err := apiclient.New(bind)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Platforms(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !apiclient.IsDaemonUnavailable(err) {
		t.Fatalf("expected unavailable classification for %v", err)
	}
	if apiclient.IsDaemonUnavailable(&apiclient.APIError{HTTPStatus: 404}) {
		t.Fatal("APIError must not classify as unavailable")
	}
}
