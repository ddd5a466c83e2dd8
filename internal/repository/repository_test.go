package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lexyhq/lexy/internal/project"
	"github.com/lexyhq/lexy/internal/transcription"
)

// each returns both implementations so every test exercises memory and
// sqlite with the same assertions.
func each(t *testing.T) map[string]Repository {
	t.Helper()
	sq, err := NewSQLite(filepath.Join(t.TempDir(), "lexy.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Repository{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func sample(id string, createdAt time.Time) *project.Project {
	return &project.Project{
		ID:        id,
		OwnerID:   "user123abc",
		Name:      "Customer Call",
		Language:  "en-US",
		Status:    project.StatusDraft,
		CreatedAt: createdAt,
	}
}

func TestCreateGet(t *testing.T) {
	for name, repo := range each(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sample("p1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
			if err := repo.Create(ctx, want); err != nil {
				t.Fatalf("create: %v", err)
			}

			got, err := repo.Get(ctx, "p1", "user123abc")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Name != want.Name || got.Status != want.Status || got.Language != want.Language {
				t.Fatalf("got %+v, want %+v", got, want)
			}
			if !got.CreatedAt.Equal(want.CreatedAt) {
				t.Fatalf("created at %v, want %v", got.CreatedAt, want.CreatedAt)
			}
			if got.Transcript != nil {
				t.Fatalf("unset transcript should stay nil, got %+v", got.Transcript)
			}
		})
	}
}

func TestGetUnknown(t *testing.T) {
	for name, repo := range each(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := repo.Get(ctx, "missing", "user123abc"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
			if err := repo.Update(ctx, "missing", "user123abc", Fields{Name: strPtr("x")}); !errors.Is(err, ErrNotFound) {
				t.Fatalf("update err = %v, want ErrNotFound", err)
			}
			if err := repo.Delete(ctx, "missing", "user123abc"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("delete err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestOwnerIsolation(t *testing.T) {
	for name, repo := range each(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := sample("p1", time.Now().UTC())
			if err := repo.Create(ctx, p); err != nil {
				t.Fatalf("create: %v", err)
			}
			if _, err := repo.Get(ctx, "p1", "someone-else"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("cross-owner get err = %v, want ErrNotFound", err)
			}
		})
	}
}

// TestPartialUpdate verifies nil members of Fields leave columns alone
// while set members land together.
func TestPartialUpdate(t *testing.T) {
	for name, repo := range each(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := sample("p1", time.Now().UTC())
			if err := repo.Create(ctx, p); err != nil {
				t.Fatalf("create: %v", err)
			}

			status := project.StatusCompleted
			rows := []transcription.Row{
				{Timestamp: "[00:00:05]", Speaker: "Operator", Text: "This call is recorded."},
			}
			langs := []string{"en"}
			err := repo.Update(ctx, "p1", "user123abc", Fields{
				Status:            &status,
				Transcript:        &rows,
				DetectedLanguages: &langs,
			})
			if err != nil {
				t.Fatalf("update: %v", err)
			}

			got, err := repo.Get(ctx, "p1", "user123abc")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Status != project.StatusCompleted {
				t.Fatalf("status = %s, want %s", got.Status, project.StatusCompleted)
			}
			if len(got.Transcript) != 1 || got.Transcript[0].Text != "This call is recorded." {
				t.Fatalf("transcript = %+v", got.Transcript)
			}
			if got.Name != "Customer Call" {
				t.Fatalf("name changed on partial update: %q", got.Name)
			}
			if len(got.DetectedLanguages) != 1 || got.DetectedLanguages[0] != "en" {
				t.Fatalf("detected languages = %+v", got.DetectedLanguages)
			}
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	for name, repo := range each(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			for i, id := range []string{"old", "mid", "new"} {
				if err := repo.Create(ctx, sample(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
					t.Fatalf("create %s: %v", id, err)
				}
			}

			list, err := repo.List(ctx, "user123abc")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 3 {
				t.Fatalf("len = %d, want 3", len(list))
			}
			wantOrder := []string{"new", "mid", "old"}
			for i, want := range wantOrder {
				if list[i].ID != want {
					t.Fatalf("list[%d] = %s, want %s", i, list[i].ID, want)
				}
			}

			other, err := repo.List(ctx, "someone-else")
			if err != nil {
				t.Fatalf("list other: %v", err)
			}
			if len(other) != 0 {
				t.Fatalf("other owner sees %d projects", len(other))
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, repo := range each(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := repo.Create(ctx, sample("p1", time.Now().UTC())); err != nil {
				t.Fatalf("create: %v", err)
			}
			if err := repo.Delete(ctx, "p1", "user123abc"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := repo.Get(ctx, "p1", "user123abc"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

// TestMemoryClones guards against callers mutating stored state through
// returned slices.
func TestMemoryClones(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	p := sample("p1", time.Now().UTC())
	p.Transcript = []transcription.Row{{Timestamp: "[00:00:05]", Speaker: "Operator", Text: "hi"}}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := repo.Get(ctx, "p1", "user123abc")
	got.Transcript[0].Text = "mutated"

	again, _ := repo.Get(ctx, "p1", "user123abc")
	if again.Transcript[0].Text != "hi" {
		t.Fatal("stored transcript was mutated through a returned copy")
	}
}

func TestSQLiteExpiry(t *testing.T) {
	sq, err := NewSQLite(filepath.Join(t.TempDir(), "lexy.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sq.Close()

	ctx := context.Background()
	p := sample("p1", time.Now().UTC())
	p.ExpiresAt = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if err := sq.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := sq.Get(ctx, "p1", "user123abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ExpiresAt.Equal(p.ExpiresAt) {
		t.Fatalf("expires at %v, want %v", got.ExpiresAt, p.ExpiresAt)
	}
}

func strPtr(s string) *string { return &s }
