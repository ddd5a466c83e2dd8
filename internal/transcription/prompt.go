package transcription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "embed"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

//go:embed prompt.txt
var embeddedPrompt string

// PromptStore holds the instruction text sent to the model. The text is
// configuration data, not code: invokers pass it through unmodified and
// the structural half of the contract is enforced by ValidateResult
// regardless of wording.
type PromptStore struct {
	mu   sync.RWMutex
	text string
	path string
}

// NewPromptStore returns a store serving the embedded default prompt.
// When path is non-empty the file contents override the default.
func NewPromptStore(path string) (*PromptStore, error) {
	s := &PromptStore{text: embeddedPrompt, path: path}
	if path == "" {
		return s, nil
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Text returns the current instruction text.
func (s *PromptStore) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

func (s *PromptStore) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read prompt file: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Errorf("prompt file %s is empty", s.path)
	}

	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
	return nil
}

// Watch reloads the prompt whenever the backing file changes. It blocks
// until ctx is cancelled and is a no-op for embedded-only stores.
func (s *PromptStore) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files rather than write in place.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch prompt directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.reload(); err != nil {
				log.Err(err).Str("path", s.path).Msg("failed to reload prompt")
				continue
			}
			log.Info().Str("path", s.path).Msg("prompt reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Err(err).Msg("prompt watcher error")
		}
	}
}
