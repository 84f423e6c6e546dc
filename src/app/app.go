// Package app wires the application together: storage, secrets, provider
// clients, the registry, and the orchestrator, built from a loaded
// configuration.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/mkoskin/chatter/src/config"
	"github.com/mkoskin/chatter/src/controller"
	"github.com/mkoskin/chatter/src/googleclient"
	"github.com/mkoskin/chatter/src/imagestore"
	"github.com/mkoskin/chatter/src/localclient"
	"github.com/mkoskin/chatter/src/openaiclient"
	"github.com/mkoskin/chatter/src/orchestrator"
	"github.com/mkoskin/chatter/src/registry"
	"github.com/mkoskin/chatter/src/secrets"
	"github.com/mkoskin/chatter/src/storage"
	"github.com/mkoskin/chatter/src/websearch"
)

// App holds all initialized services.
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Store        *storage.DB
	Secrets      *secrets.Store
	Registry     *registry.Registry
	Orchestrator *orchestrator.Orchestrator
	Search       *websearch.Augmenter
}

// New initializes the full service graph. Paths default to the XDG layout
// when zero-valued.
func New(cfg *config.Config, paths config.StoragePaths, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	defaults := config.GetDefaultStoragePaths()
	if paths.DatabasePath == "" {
		paths.DatabasePath = defaults.DatabasePath
	}
	if paths.SecretsDir == "" {
		paths.SecretsDir = defaults.SecretsDir
	}
	if paths.ImagesPrimary == "" {
		paths.ImagesPrimary = defaults.ImagesPrimary
	}
	if paths.ImagesFallback == "" {
		paths.ImagesFallback = defaults.ImagesFallback
	}

	if err := os.MkdirAll(filepath.Dir(paths.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	store, err := storage.Open(paths.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}

	secretStore, err := secrets.Open(paths.SecretsDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open secret store: %w", err)
	}

	var openaiOpts []openaiclient.Option
	if cfg.Providers.OpenAI.BaseURL != "" {
		openaiOpts = append(openaiOpts, openaiclient.WithBaseURL(cfg.Providers.OpenAI.BaseURL))
	}
	openaiClient := openaiclient.New(logger, openaiOpts...)

	var googleOpts []googleclient.Option
	if cfg.Providers.Google.BaseURL != "" {
		googleOpts = append(googleOpts, googleclient.WithBaseURL(cfg.Providers.Google.BaseURL))
	}
	googleClient := googleclient.New(logger, googleOpts...)

	var localOpts []localclient.Option
	if cfg.Providers.Local.BaseURL != "" {
		localOpts = append(localOpts, localclient.WithBaseURL(cfg.Providers.Local.BaseURL))
	}
	localClient := localclient.New(logger, localOpts...)

	reg := registry.New(logger, localclient.NewProbe(localClient, logger))

	saver := imagestore.NewSaver(afero.NewOsFs(), paths.ImagesPrimary, paths.ImagesFallback, logger)
	orch := orchestrator.New(logger, reg, orchestrator.Providers{
		registry.ProviderOpenAI: {Text: openaiClient, Image: openaiClient},
		registry.ProviderGoogle: {Text: googleClient, Image: googleClient},
		localclient.ProviderID:  {Text: localClient},
	}, saver)

	search := websearch.New(websearch.Config{
		Endpoint: cfg.Search.Endpoint,
		APIKey:   cfg.Search.APIKey,
		MaxPages: cfg.Search.MaxPages,
	}, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Store:        store,
		Secrets:      secretStore,
		Registry:     reg,
		Orchestrator: orch,
		Search:       search,
	}, nil
}

// NewController creates a conversation controller backed by this app's
// services.
func (a *App) NewController() *controller.Controller {
	return controller.New(a.Logger, a.Store.DB(), a.Secrets, a.Search, a.Orchestrator)
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
