package storage

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestPutOpenRemove(t *testing.T) {
	store, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}
	ctx := context.Background()

	ref, err := store.Put(ctx, "user123abc", "p1", "call.MP3", strings.NewReader("audio bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(ref, "audio/user123abc/p1/") || !strings.HasSuffix(ref, ".mp3") {
		t.Fatalf("unexpected reference %q", ref)
	}

	rc, err := store.Open(ctx, ref)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "audio bytes" {
		t.Fatalf("read back %q", data)
	}

	if err := store.Remove(ctx, ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Open(ctx, ref); err == nil {
		t.Fatal("open after remove should fail")
	}
	// removing twice is not an error
	if err := store.Remove(ctx, ref); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestPutRequiresIDs(t *testing.T) {
	store, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}
	if _, err := store.Put(context.Background(), "", "p1", "a.mp3", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for missing owner id")
	}
}

// TestResolveRejectsEscapes guards the storage root against traversal.
func TestResolveRejectsEscapes(t *testing.T) {
	store, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}
	ctx := context.Background()
	for _, ref := range []string{"../etc/passwd", "/etc/passwd", ".", "audio/../../x"} {
		if _, err := store.Open(ctx, ref); err == nil {
			t.Errorf("Open(%q) should be rejected", ref)
		}
	}
}
