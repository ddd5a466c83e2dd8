// Package editor drives a single project's lifecycle for one editing
// session: upload, transcribe, review, save. The session owns the
// project record for its duration; no concurrent writers are modeled.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lexyhq/lexy/internal/project"
	"github.com/lexyhq/lexy/internal/repository"
	"github.com/lexyhq/lexy/internal/transcription"
)

// ErrUnsavedChanges rejects a close while local edits are unsaved.
var ErrUnsavedChanges = errors.New("unsaved changes")

// ErrNothingToSave rejects a save with no local transcript.
var ErrNothingToSave = errors.New("no transcript to save")

// Session orchestrates one project's status transitions and tracks
// unsaved local edits.
type Session struct {
	repo    repository.Repository
	invoker transcription.Invoker

	mu         sync.Mutex
	proj       *project.Project
	transcript []transcription.Row
	detected   []string
	dirty      bool
	lastError  string
}

// Load opens an editing session for an existing project. A freshly
// loaded session is never dirty.
func Load(ctx context.Context, repo repository.Repository, invoker transcription.Invoker, id, ownerID string) (*Session, error) {
	p, err := repo.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return &Session{
		repo:       repo,
		invoker:    invoker,
		proj:       p,
		transcript: p.Transcript,
		detected:   p.DetectedLanguages,
	}, nil
}

// Project returns a snapshot of the session's project with the local
// transcript applied.
func (s *Session) Project() project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := *s.proj
	snapshot.Transcript = s.transcript
	snapshot.DetectedLanguages = s.detected
	return snapshot
}

// Dirty reports whether local edits have not been saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// LastError returns the retained message from the last failed run.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// AttachAudio records a completed upload and moves Draft to Uploaded.
func (s *Session) AttachAudio(ctx context.Context, audioReference string, durationMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := project.Advance(s.proj.Status, project.EventAudioAttached)
	if err != nil {
		return err
	}
	fields := repository.Fields{
		Status:         &next,
		AudioReference: &audioReference,
		Duration:       &durationMinutes,
	}
	if err := s.repo.Update(ctx, s.proj.ID, s.proj.OwnerID, fields); err != nil {
		return fmt.Errorf("persist upload: %w", err)
	}
	s.proj.Status = next
	s.proj.AudioReference = audioReference
	s.proj.Duration = durationMinutes
	return nil
}

// Transcribe runs one transcription attempt. The Processing status
// serializes attempts per project: a second call while one is in flight
// is refused before anything is dispatched. The session stays usable
// while the call is in flight; an in-flight call is never cancelled.
func (s *Session) Transcribe(ctx context.Context) error {
	req, err := s.begin(ctx)
	if err != nil {
		return err
	}

	// No lock held during the long-latency call.
	result, invokeErr := s.invoker.Transcribe(ctx, req)

	return s.settle(ctx, result, invokeErr)
}

// begin applies the transcribe guard and persists the Processing status
// before any network call.
func (s *Session) begin(ctx context.Context) (transcription.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proj.AudioReference == "" {
		return transcription.Request{}, &transcription.Error{
			Kind:    transcription.FailureInvalidRequest,
			Message: "project has no audio attached",
		}
	}

	next, err := project.Advance(s.proj.Status, project.EventTranscribeRequested)
	if err != nil {
		return transcription.Request{}, err
	}
	if err := s.repo.Update(ctx, s.proj.ID, s.proj.OwnerID, repository.Fields{Status: &next}); err != nil {
		return transcription.Request{}, fmt.Errorf("persist status: %w", err)
	}
	s.proj.Status = next
	s.lastError = ""

	return transcription.Request{
		AudioReference: s.proj.AudioReference,
		LanguageHint:   s.proj.Language,
	}, nil
}

// settle records the outcome of an invoker call. On success the
// transcript, detected languages and Completed status are written in one
// update; on failure the status flips to ErrorTranscription and any
// transcript from a prior run is left untouched.
func (s *Session) settle(ctx context.Context, result *transcription.Result, invokeErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if invokeErr != nil {
		next, err := project.Advance(s.proj.Status, project.EventTranscriptionFailed)
		if err != nil {
			return err
		}
		message := UserMessage(invokeErr)
		fields := repository.Fields{Status: &next, ErrorMessage: &message}
		if err := s.repo.Update(ctx, s.proj.ID, s.proj.OwnerID, fields); err != nil {
			log.Err(err).Str("project", s.proj.ID).Msg("failed to persist error status")
			return fmt.Errorf("persist status: %w", err)
		}
		s.proj.Status = next
		s.proj.ErrorMessage = message
		s.lastError = message
		log.Warn().Str("project", s.proj.ID).Str("kind", string(transcription.KindOf(invokeErr))).Msg("transcription failed")
		return invokeErr
	}

	next, err := project.Advance(s.proj.Status, project.EventTranscriptionSucceeded)
	if err != nil {
		return err
	}
	empty := ""
	fields := repository.Fields{
		Status:            &next,
		Transcript:        &result.Rows,
		DetectedLanguages: &result.DetectedLanguages,
		ErrorMessage:      &empty,
	}
	if err := s.repo.Update(ctx, s.proj.ID, s.proj.OwnerID, fields); err != nil {
		return fmt.Errorf("persist transcript: %w", err)
	}
	s.proj.Status = next
	s.proj.ErrorMessage = ""
	s.transcript = result.Rows
	s.detected = result.DetectedLanguages
	s.dirty = true // a fresh result still needs an explicit save
	log.Info().Str("project", s.proj.ID).Int("rows", len(result.Rows)).Msg("transcription completed")
	return nil
}

// SetTranscript replaces the local transcript with a manual edit.
func (s *Session) SetTranscript(rows []transcription.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = rows
	s.dirty = true
}

// Save persists the local transcript. Saving a non-empty transcript over
// a failed run advances the project to Completed. The dirty flag clears
// only when the write succeeds.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transcript == nil {
		return ErrNothingToSave
	}
	if s.proj.Status == project.StatusProcessing {
		return project.ErrAlreadyProcessing
	}

	next := s.proj.Status
	if s.proj.Status != project.StatusError || len(s.transcript) > 0 {
		advanced, err := project.Advance(s.proj.Status, project.EventSaved)
		if err != nil {
			return err
		}
		next = advanced
	}

	fields := repository.Fields{
		Status:            &next,
		Transcript:        &s.transcript,
		DetectedLanguages: &s.detected,
	}
	if next == project.StatusCompleted {
		// A save over a failed run supersedes the retained failure.
		empty := ""
		fields.ErrorMessage = &empty
	}
	if err := s.repo.Update(ctx, s.proj.ID, s.proj.OwnerID, fields); err != nil {
		return fmt.Errorf("persist save: %w", err)
	}
	s.proj.Status = next
	s.proj.Transcript = s.transcript
	s.proj.DetectedLanguages = s.detected
	if next == project.StatusCompleted {
		s.proj.ErrorMessage = ""
	}
	s.dirty = false
	return nil
}

// Close ends the session. With unsaved edits it is refused unless
// forced; closing during a transcription abandons the in-flight call.
func (s *Session) Close(force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty && !force {
		return ErrUnsavedChanges
	}
	return nil
}

// UserMessage maps a transcription failure to the text shown to the user.
func UserMessage(err error) string {
	var te *transcription.Error
	if !errors.As(err, &te) {
		return "Transcription failed: " + err.Error()
	}
	switch te.Kind {
	case transcription.FailureInvalidRequest:
		return "Transcription is misconfigured: " + te.Message + ". Retrying will not help."
	case transcription.FailureModelUnavailable:
		return "The transcription service is unreachable. Please try again."
	case transcription.FailureUpstream:
		msg := "The transcription service reported an error: " + te.Message
		if te.Details != "" {
			msg += " (" + te.Details + ")"
		}
		return msg + ". Please try again."
	case transcription.FailureModelRefusal:
		return "A transcription could not be produced for this audio."
	case transcription.FailureMalformedOutput:
		return "Transcription failed due to an unexpected service response."
	}
	return "Transcription failed: " + te.Message
}
