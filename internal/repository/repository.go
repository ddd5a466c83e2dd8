// Package repository keys projects by id and owner with last-writer-wins
// update semantics. The editor depends only on the Repository interface,
// never on ambient global state.
package repository

import (
	"context"
	"errors"

	"github.com/lexyhq/lexy/internal/project"
	"github.com/lexyhq/lexy/internal/transcription"
)

// ErrNotFound is returned when no project matches the id/owner pair.
var ErrNotFound = errors.New("project not found")

// Fields is a partial update; nil members are left untouched. Status and
// transcript changes travel in the same Fields value so they land
// atomically.
type Fields struct {
	Name              *string
	Status            *project.Status
	AudioReference    *string
	Duration          *int
	Transcript        *[]transcription.Row
	DetectedLanguages *[]string
	ErrorMessage      *string
}

// Repository persists projects. No transactions and no optimistic
// concurrency token are exposed; writes are last-writer-wins.
type Repository interface {
	Create(ctx context.Context, p *project.Project) error
	Get(ctx context.Context, id, ownerID string) (*project.Project, error)
	List(ctx context.Context, ownerID string) ([]*project.Project, error)
	Update(ctx context.Context, id, ownerID string, fields Fields) error
	Delete(ctx context.Context, id, ownerID string) error
	Close() error
}

// apply copies the set members of fields onto p.
func apply(p *project.Project, fields Fields) {
	if fields.Name != nil {
		p.Name = *fields.Name
	}
	if fields.Status != nil {
		p.Status = *fields.Status
	}
	if fields.AudioReference != nil {
		p.AudioReference = *fields.AudioReference
	}
	if fields.Duration != nil {
		p.Duration = *fields.Duration
	}
	if fields.Transcript != nil {
		p.Transcript = *fields.Transcript
	}
	if fields.DetectedLanguages != nil {
		p.DetectedLanguages = *fields.DetectedLanguages
	}
	if fields.ErrorMessage != nil {
		p.ErrorMessage = *fields.ErrorMessage
	}
}
