package project

import (
	"errors"
	"fmt"
)

// Event is a lifecycle trigger applied to a project's status.
type Event string

const (
	// EventAudioAttached fires when the upload collaborator completes.
	EventAudioAttached Event = "audio_attached"
	// EventTranscribeRequested fires on an explicit transcribe action.
	EventTranscribeRequested Event = "transcribe_requested"
	// EventTranscriptionSucceeded fires when the invoker settles successfully.
	EventTranscriptionSucceeded Event = "transcription_succeeded"
	// EventTranscriptionFailed fires on any invoker failure.
	EventTranscriptionFailed Event = "transcription_failed"
	// EventSaved fires on a successful manual save.
	EventSaved Event = "saved"
)

// ErrAlreadyProcessing rejects a transcribe request while one is in flight.
var ErrAlreadyProcessing = errors.New("transcription already in progress")

// ErrAlreadyCompleted rejects a transcribe request against a completed project.
var ErrAlreadyCompleted = errors.New("transcription already completed")

// Advance applies ev to current and returns the next status. All guard
// logic lives here; call sites never compare status strings themselves.
func Advance(current Status, ev Event) (Status, error) {
	switch ev {
	case EventAudioAttached:
		if current == StatusDraft {
			return StatusUploaded, nil
		}
	case EventTranscribeRequested:
		switch current {
		case StatusProcessing:
			return current, ErrAlreadyProcessing
		case StatusCompleted:
			return current, ErrAlreadyCompleted
		case StatusUploaded, StatusError:
			return StatusProcessing, nil
		}
	case EventTranscriptionSucceeded:
		if current == StatusProcessing {
			return StatusCompleted, nil
		}
	case EventTranscriptionFailed:
		if current == StatusProcessing {
			return StatusError, nil
		}
	case EventSaved:
		switch current {
		case StatusProcessing:
			return current, fmt.Errorf("cannot save while %s", current)
		case StatusError, StatusUploaded, StatusCompleted:
			return StatusCompleted, nil
		case StatusDraft:
			// A hand-written transcript on a draft is saved without
			// pretending a transcription run completed. This is the one
			// place a transcript may exist outside Completed and
			// ErrorTranscription.
			return current, nil
		}
	}
	return current, fmt.Errorf("event %s not allowed in status %s", ev, current)
}
