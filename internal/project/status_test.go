package project

import (
	"errors"
	"testing"
)

// TestAdvanceLifecycle walks the normal Draft to Completed progression.
func TestAdvanceLifecycle(t *testing.T) {
	status := StatusDraft
	steps := []struct {
		ev   Event
		want Status
	}{
		{EventAudioAttached, StatusUploaded},
		{EventTranscribeRequested, StatusProcessing},
		{EventTranscriptionSucceeded, StatusCompleted},
	}
	for _, step := range steps {
		next, err := Advance(status, step.ev)
		if err != nil {
			t.Fatalf("Advance(%s, %s): %v", status, step.ev, err)
		}
		if next != step.want {
			t.Fatalf("Advance(%s, %s) = %s, want %s", status, step.ev, next, step.want)
		}
		status = next
	}
}

// TestAdvanceGuards verifies duplicate transcribe requests are refused
// without changing status.
func TestAdvanceGuards(t *testing.T) {
	next, err := Advance(StatusProcessing, EventTranscribeRequested)
	if !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("err = %v, want ErrAlreadyProcessing", err)
	}
	if next != StatusProcessing {
		t.Fatalf("status changed to %s on refused event", next)
	}

	next, err = Advance(StatusCompleted, EventTranscribeRequested)
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("err = %v, want ErrAlreadyCompleted", err)
	}
	if next != StatusCompleted {
		t.Fatalf("status changed to %s on refused event", next)
	}
}

// TestAdvanceRetryAfterError verifies failed runs are retryable any
// number of times.
func TestAdvanceRetryAfterError(t *testing.T) {
	status := StatusError
	for i := 0; i < 3; i++ {
		next, err := Advance(status, EventTranscribeRequested)
		if err != nil {
			t.Fatalf("retry %d: %v", i, err)
		}
		if next != StatusProcessing {
			t.Fatalf("retry %d: status = %s, want %s", i, next, StatusProcessing)
		}
		status, err = Advance(next, EventTranscriptionFailed)
		if err != nil {
			t.Fatalf("fail %d: %v", i, err)
		}
	}
}

func TestAdvanceSave(t *testing.T) {
	tests := []struct {
		from    Status
		want    Status
		wantErr bool
	}{
		{StatusError, StatusCompleted, false},
		{StatusCompleted, StatusCompleted, false},
		{StatusUploaded, StatusCompleted, false},
		{StatusDraft, StatusDraft, false},
		{StatusProcessing, StatusProcessing, true},
	}
	for _, tt := range tests {
		next, err := Advance(tt.from, EventSaved)
		if (err != nil) != tt.wantErr {
			t.Errorf("Advance(%s, saved) err = %v, wantErr %v", tt.from, err, tt.wantErr)
			continue
		}
		if next != tt.want {
			t.Errorf("Advance(%s, saved) = %s, want %s", tt.from, next, tt.want)
		}
	}
}

// TestAdvanceRejectsInvalidEdges spot-checks transitions the state
// machine must not allow.
func TestAdvanceRejectsInvalidEdges(t *testing.T) {
	invalid := []struct {
		from Status
		ev   Event
	}{
		{StatusDraft, EventTranscribeRequested},
		{StatusDraft, EventTranscriptionSucceeded},
		{StatusUploaded, EventTranscriptionSucceeded},
		{StatusUploaded, EventAudioAttached},
		{StatusCompleted, EventTranscriptionFailed},
		{StatusError, EventTranscriptionSucceeded},
	}
	for _, tt := range invalid {
		next, err := Advance(tt.from, tt.ev)
		if err == nil {
			t.Errorf("Advance(%s, %s) should fail", tt.from, tt.ev)
		}
		if next != tt.from {
			t.Errorf("Advance(%s, %s) changed status to %s on error", tt.from, tt.ev, next)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusUploaded, StatusProcessing, StatusCompleted, StatusError} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []Status{"PendingTranscription", "Error", "", "done"} {
		if s.Valid() {
			t.Errorf("%s should be invalid", s)
		}
	}
}
