package project

import (
	"time"

	"github.com/lexyhq/lexy/internal/transcription"
)

// Status tracks where a project sits in the upload/transcribe/review
// lifecycle.
type Status string

const (
	// StatusDraft is a freshly created project with no audio attached.
	StatusDraft Status = "Draft"
	// StatusUploaded has audio attached and awaits transcription.
	StatusUploaded Status = "Uploaded"
	// StatusProcessing has a transcription request in flight.
	StatusProcessing Status = "ProcessingTranscription"
	// StatusCompleted holds a saved transcript.
	StatusCompleted Status = "Completed"
	// StatusError marks a failed transcription run; retryable.
	StatusError Status = "ErrorTranscription"
)

// Valid reports whether s is one of the modeled statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusUploaded, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Terminal reports whether the status is a settlement of a transcription
// run. Both terminal statuses allow a manual re-run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Project is one user's transcription project.
type Project struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`

	// Language is the hint passed to the model, or "auto".
	Language string `json:"language"`
	// Duration is the audio length in minutes, used for plan accounting.
	Duration int `json:"duration"`

	Status         Status `json:"status"`
	AudioReference string `json:"audioReference,omitempty"`

	// Transcript is populated iff Status is Completed, or Error after a
	// user manually saved over a failed run.
	Transcript        []transcription.Row `json:"transcript,omitempty"`
	DetectedLanguages []string            `json:"detectedLanguages,omitempty"`

	// ErrorMessage retains the last transcription failure for display.
	ErrorMessage string `json:"errorMessage,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// HasTranscript reports whether a transcript from a prior run exists.
func (p *Project) HasTranscript() bool {
	return p != nil && p.Transcript != nil
}
