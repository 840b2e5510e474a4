package taskstore_test

import (
	"testing"

	"spyglass/internal/taskstore"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  taskstore.Status
		ok    bool
	}{
		{"pending", taskstore.StatusPending, true},
		{" Processing ", taskstore.StatusProcessing, true},
		{"COMPLETED", taskstore.StatusCompleted, true},
		{"cancelled", taskstore.StatusCancelled, true},
		{"", "", false},
		{"unknown", "", false},
	}
	for _, tt := range tests {
		got, ok := taskstore.ParseStatus(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseStatus(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseStatus(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseDepth(t *testing.T) {
	tests := []struct {
		input string
		want  taskstore.Depth
		ok    bool
	}{
		{"", taskstore.DepthQuick, true},
		{"quick", taskstore.DepthQuick, true},
		{"Deep", taskstore.DepthDeep, true},
		{"exhaustive", "", false},
	}
	for _, tt := range tests {
		got, ok := taskstore.ParseDepth(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseDepth(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseDepth(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []taskstore.Status{taskstore.StatusCompleted, taskstore.StatusFailed, taskstore.StatusCancelled}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", status)
		}
	}
	for _, status := range []taskstore.Status{taskstore.StatusPending, taskstore.StatusProcessing} {
		if status.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", status)
		}
	}
}

func TestTaskHasResult(t *testing.T) {
	task := taskstore.Task{Status: taskstore.StatusCompleted, ResultRef: "abc"}
	if !task.HasResult() {
		t.Fatal("completed task with ref should have result")
	}
	task.ResultRef = ""
	if task.HasResult() {
		t.Fatal("completed task without ref must not report a result")
	}
	task = taskstore.Task{Status: taskstore.StatusFailed, ResultRef: "abc"}
	if task.HasResult() {
		t.Fatal("failed task must not report a result")
	}
}
