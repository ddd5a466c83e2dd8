// Package lexy wires configuration, storage, persistence, search and the
// transcription invoker into the running application.
package lexy

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lexyhq/lexy/internal/conf"
	lexyhttp "github.com/lexyhq/lexy/internal/lexy/http"
	"github.com/lexyhq/lexy/internal/repository"
	"github.com/lexyhq/lexy/internal/search"
	"github.com/lexyhq/lexy/internal/storage"
	"github.com/lexyhq/lexy/internal/transcription"
)

// App owns the application's long-lived components.
type App struct {
	conf  *conf.Config
	repo  repository.Repository
	store storage.Store
	index *search.Index
	http  *lexyhttp.Service

	mu      sync.RWMutex
	invoker transcription.Invoker
	prompts *transcription.PromptStore

	cancelWatch context.CancelFunc
}

// New builds the application from configuration.
func New(cfg *conf.Config) (*App, error) {
	app := &App{conf: cfg}

	prompts, err := transcription.NewPromptStore(cfg.Transcription.PromptPath)
	if err != nil {
		return nil, err
	}
	app.prompts = prompts

	invoker, err := buildInvoker(cfg.Transcription, prompts)
	if err != nil {
		return nil, err
	}
	app.invoker = invoker

	if cfg.Memory {
		app.repo = repository.NewMemory()
		app.index, err = search.Open("")
		if err != nil {
			return nil, err
		}
	} else {
		app.repo, err = repository.NewSQLite(cfg.DatabasePath())
		if err != nil {
			return nil, err
		}
		app.index, err = search.Open(cfg.SearchIndexPath())
		if err != nil {
			return nil, err
		}
	}

	app.store, err = storage.NewDisk(cfg.AudioDir())
	if err != nil {
		return nil, err
	}

	app.http = lexyhttp.NewService(cfg, app.repo, app.store, app.index, app)
	return app, nil
}

func buildInvoker(cfg conf.TranscriptionConfig, prompts *transcription.PromptStore) (transcription.Invoker, error) {
	switch cfg.Provider {
	case "endpoint":
		return transcription.NewHTTPInvoker(cfg.Endpoint, cfg.Timeout())
	case "model":
		mc := transcription.ModelConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}
		if cfg.Temperature != nil {
			mc.Temperature = *cfg.Temperature
		}
		return transcription.NewModelInvoker(mc, prompts)
	}
	return nil, fmt.Errorf("unsupported transcription provider %q", cfg.Provider)
}

// Invoker implements http.Control.
func (a *App) Invoker() transcription.Invoker {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.invoker
}

// SaveTranscriptionConfig implements http.Control: it swaps in a fresh
// invoker built from the new settings.
func (a *App) SaveTranscriptionConfig(cfg conf.TranscriptionConfig) error {
	invoker, err := buildInvoker(cfg, a.prompts)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.conf.Transcription = cfg
	a.invoker = invoker
	a.mu.Unlock()

	log.Info().Str("provider", cfg.Provider).Msg("transcription settings updated")
	return nil
}

// Run starts the prompt watcher and serves HTTP until the server stops.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelWatch = cancel
	go func() {
		if err := a.prompts.Watch(ctx); err != nil {
			log.Err(err).Msg("prompt watcher stopped")
		}
	}()

	return a.http.ListenAndServe()
}

// Stop shuts everything down.
func (a *App) Stop() error {
	if a.cancelWatch != nil {
		a.cancelWatch()
	}
	if err := a.http.Stop(); err != nil {
		return err
	}
	if err := a.index.Close(); err != nil {
		log.Debug().Err(err).Msg("failed to close search index")
	}
	return a.repo.Close()
}
