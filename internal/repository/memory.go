package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/lexyhq/lexy/internal/project"
)

// Memory is an in-process repository used by tests and --memory mode.
type Memory struct {
	mu       sync.RWMutex
	projects map[string]*project.Project
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{projects: make(map[string]*project.Project)}
}

func key(id, ownerID string) string {
	return ownerID + "/" + id
}

func clone(p *project.Project) *project.Project {
	cp := *p
	if p.Transcript != nil {
		cp.Transcript = append(cp.Transcript[:0:0], p.Transcript...)
	}
	if p.DetectedLanguages != nil {
		cp.DetectedLanguages = append(cp.DetectedLanguages[:0:0], p.DetectedLanguages...)
	}
	return &cp
}

// Create stores a new project.
func (m *Memory) Create(_ context.Context, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[key(p.ID, p.OwnerID)] = clone(p)
	return nil
}

// Get returns a copy of the stored project or ErrNotFound.
func (m *Memory) Get(_ context.Context, id, ownerID string) (*project.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[key(id, ownerID)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

// List returns the owner's projects, newest first.
func (m *Memory) List(_ context.Context, ownerID string) ([]*project.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*project.Project, 0)
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update applies a partial update or returns ErrNotFound.
func (m *Memory) Update(_ context.Context, id, ownerID string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[key(id, ownerID)]
	if !ok {
		return ErrNotFound
	}
	apply(p, fields)
	return nil
}

// Delete removes the project or returns ErrNotFound.
func (m *Memory) Delete(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(id, ownerID)
	if _, ok := m.projects[k]; !ok {
		return ErrNotFound
	}
	delete(m.projects, k)
	return nil
}

// Close implements Repository. No-op for the in-memory store.
func (m *Memory) Close() error { return nil }
