// Package storage is the upload collaborator: it accepts raw audio bytes
// and hands back a stable reference the transcription invoker can resolve.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store persists uploaded audio and resolves references back to bytes.
type Store interface {
	// Put stores the stream and returns a stable audio reference.
	Put(ctx context.Context, ownerID, projectID, filename string, r io.Reader) (string, error)
	// Open resolves a reference produced by Put.
	Open(ctx context.Context, audioReference string) (io.ReadCloser, error)
	// Remove deletes the stored object; unknown references are not an error.
	Remove(ctx context.Context, audioReference string) error
}

// Disk stores audio under a local directory. References take the form
// "audio/<ownerID>/<projectID>/<uuid><ext>".
type Disk struct {
	root string
}

// NewDisk creates the backing directory if needed.
func NewDisk(root string) (*Disk, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure storage root: %w", err)
	}
	return &Disk{root: root}, nil
}

// Put implements Store.
func (d *Disk) Put(_ context.Context, ownerID, projectID, filename string, r io.Reader) (string, error) {
	if ownerID == "" || projectID == "" {
		return "", fmt.Errorf("owner and project ids are required")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	ref := filepath.ToSlash(filepath.Join("audio", ownerID, projectID, uuid.NewString()+ext))

	path := filepath.Join(d.root, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ensure audio directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write audio file: %w", err)
	}

	log.Debug().Str("ref", ref).Int64("bytes", written).Msg("audio stored")
	return ref, nil
}

// Open implements Store.
func (d *Disk) Open(_ context.Context, audioReference string) (io.ReadCloser, error) {
	path, err := d.resolve(audioReference)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio %s: %w", audioReference, err)
	}
	return f, nil
}

// Remove implements Store.
func (d *Disk) Remove(_ context.Context, audioReference string) error {
	path, err := d.resolve(audioReference)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove audio %s: %w", audioReference, err)
	}
	return nil
}

// resolve rejects references that escape the storage root.
func (d *Disk) resolve(audioReference string) (string, error) {
	ref := filepath.Clean(filepath.FromSlash(audioReference))
	if ref == "." || strings.HasPrefix(ref, "..") || filepath.IsAbs(ref) {
		return "", fmt.Errorf("invalid audio reference %q", audioReference)
	}
	return filepath.Join(d.root, ref), nil
}
