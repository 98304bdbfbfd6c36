// Package app wires the tunehub core together and manages its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/godbus/dbus/v5"

	audiobeep "github.com/tejashwikalptaru/tunehub/internal/adapter/audio/beep"
	audiomock "github.com/tejashwikalptaru/tunehub/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunehub/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunehub/internal/adapter/metadata"
	"github.com/tejashwikalptaru/tunehub/internal/adapter/provider/local"
	mockprovider "github.com/tejashwikalptaru/tunehub/internal/adapter/provider/mock"
	"github.com/tejashwikalptaru/tunehub/internal/adapter/provider/mpris"
	"github.com/tejashwikalptaru/tunehub/internal/adapter/repository/file"
	"github.com/tejashwikalptaru/tunehub/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunehub/internal/adapter/repository/preferences"
	"github.com/tejashwikalptaru/tunehub/internal/config"
	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/logger"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
	"github.com/tejashwikalptaru/tunehub/internal/service"
)

// Options inject dependencies that normally come from the configuration.
type Options struct {
	// Logger replaces the logger built from the logging section.
	Logger *slog.Logger

	// Engine replaces the engine selected by audio.engine.
	Engine ports.AudioEngine

	// Preferences, when set, stores the session in a fyne preferences store instead
	// of the configured session store.
	Preferences fyne.Preferences

	// DialBus replaces the session bus connection of the MPRIS provider.
	DialBus func() (*dbus.Conn, error)

	// Descriptors are registered after the built-in providers.
	Descriptors []ports.Descriptor
}

// Application holds every component of a running tunehub core.
type Application struct {
	cfg    *config.Config
	logger *slog.Logger

	bus       *eventbus.SyncEventBus
	engine    ports.AudioEngine
	extractor *metadata.Extractor
	cache     *metadata.Cache
	repo      ports.StateRepository

	state    *service.StateService
	registry *service.ProviderRegistry
	playback *service.PlaybackService
	session  *service.SessionService

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates the application with all dependencies wired. Nothing is activated
// until Start.
func New(cfg *config.Config, opts Options) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &Application{cfg: cfg, logger: opts.Logger}
	if a.logger == nil {
		level, _ := logger.ParseLevel(cfg.Logging.Level)
		a.logger = logger.NewLogger(logger.Config{Level: level, Format: cfg.Logging.Format})
	}
	a.logger.Info("initializing application", slog.String("version", GetVersionInfo().Version))

	a.bus = eventbus.NewSyncEventBus(a.logger.With(slog.String("component", "eventbus")))

	a.engine = opts.Engine
	if a.engine == nil {
		switch cfg.Audio.Engine {
		case config.EngineMock:
			a.engine = audiomock.NewEngine()
		default:
			a.engine = audiobeep.NewEngine()
		}
	}

	a.extractor = metadata.NewExtractor(a.logger)
	a.cache = a.openCache(cfg.Library.CachePath)

	repo, err := a.openRepository(opts.Preferences)
	if err != nil {
		return nil, err
	}
	a.repo = firstStart{StateRepository: repo, cfg: cfg}

	a.state = service.NewStateService(a.logger, a.bus, cfg.Playback.UndoLimit)
	a.registry = service.NewProviderRegistry(a.logger, a.bus, a.state, service.RegistryConfig{
		HostIntegration: cfg.Providers.HostIntegration,
	})

	playbackCfg := service.DefaultPlaybackConfig()
	playbackCfg.InitialVolume = cfg.Playback.Volume
	a.playback = service.NewPlaybackService(a.logger, a.bus, a.state, a.registry, playbackCfg)
	a.registry.AttachPlayback(a.playback)

	if err := a.registerProviders(opts); err != nil {
		a.Shutdown()
		return nil, err
	}

	a.session = service.NewSessionService(a.logger, a.bus, a.repo, a.state, a.registry, cfg.Session.SaveDelay)
	return a, nil
}

func (a *Application) openCache(path string) *metadata.Cache {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		a.logger.Warn("metadata cache disabled", slog.Any("error", err))
		return nil
	}
	cache, err := metadata.OpenCache(path, a.logger)
	if err != nil {
		// Non-fatal: scans just read every file again
		a.logger.Warn("metadata cache disabled", slog.Any("error", err))
		return nil
	}
	return cache
}

func (a *Application) openRepository(prefs fyne.Preferences) (ports.StateRepository, error) {
	if prefs != nil {
		return preferences.NewSnapshotRepository(prefs), nil
	}
	switch a.cfg.Session.Store {
	case config.StoreMemory:
		return memory.NewSnapshotRepository(), nil
	default:
		if err := os.MkdirAll(filepath.Dir(a.cfg.Session.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
		return file.NewSnapshotRepository(a.cfg.Session.Path, a.logger), nil
	}
}

func (a *Application) registerProviders(opts Options) error {
	localOpts := local.DefaultOptions()
	localOpts.Engine = a.engine
	localOpts.Extractor = a.extractor
	localOpts.Bus = a.bus
	localOpts.Logger = a.logger
	localOpts.SampleRate = a.cfg.Audio.SampleRate
	localOpts.Workers = a.cfg.Library.Workers
	if a.cache != nil {
		localOpts.Cache = a.cache
	}

	demo := &mockprovider.Factory{Tracks: mockprovider.DemoTracks(a.cfg.Providers.DemoTracks)}

	descriptors := []ports.Descriptor{
		local.Descriptor(localOpts),
		demo.Descriptor(mockprovider.ID),
		mpris.Descriptor(mpris.Options{Dial: opts.DialBus, Logger: a.logger}),
	}
	for _, desc := range append(descriptors, opts.Descriptors...) {
		if err := a.registry.Register(desc); err != nil {
			return fmt.Errorf("failed to register provider %s: %w", desc.ID, err)
		}
	}
	return nil
}

// Start restores the previous session and activates the enabled providers.
// A session that cannot be restored completely is logged and the application
// continues with what could be restored.
func (a *Application) Start(ctx context.Context) error {
	if err := a.session.Load(ctx); err != nil {
		a.logger.Warn("session restored with errors", slog.Any("error", err))
	}
	a.logger.Info("application started", slog.Any("providers", a.registry.Active()))
	return nil
}

// Run starts the application and blocks until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.logger.Info("application stopping")
	return nil
}

// Library returns the active local provider.
func (a *Application) Library() (*local.Provider, error) {
	h, err := a.registry.Handle(local.ID)
	if err != nil {
		return nil, err
	}
	p, ok := h.(*local.Provider)
	if !ok {
		return nil, domain.NewProviderError(local.ID, "library", domain.ErrCapabilityUnsupported)
	}
	return p, nil
}

// Scan activates the local provider if needed and rescans its folders.
func (a *Application) Scan(ctx context.Context) (local.ScanResult, error) {
	if _, err := a.registry.Handle(local.ID); errors.Is(err, domain.ErrProviderNotActive) {
		if err := a.registry.Enable(ctx, local.ID); err != nil {
			return local.ScanResult{}, err
		}
	}
	lib, err := a.Library()
	if err != nil {
		return local.ScanResult{}, err
	}
	return lib.Rescan(ctx)
}

// Shutdown saves the session and stops every component in reverse order of creation.
// It is safe to call more than once.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")
		var errs []error

		if a.session != nil {
			if err := a.session.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("session: %w", err))
			}
		}
		if a.playback != nil {
			a.playback.Shutdown()
		}
		if a.registry != nil {
			a.registry.Shutdown()
		}
		if a.engine != nil && a.engine.IsInitialized() {
			if err := a.engine.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("audio engine: %w", err))
			}
		}
		if a.cache != nil {
			if err := a.cache.Close(); err != nil {
				errs = append(errs, fmt.Errorf("metadata cache: %w", err))
			}
		}
		if a.bus != nil {
			if err := a.bus.Close(); err != nil {
				errs = append(errs, fmt.Errorf("event bus: %w", err))
			}
		}

		a.shutdownErr = errors.Join(errs...)
		a.logger.Info("application shutdown complete")
	})
	return a.shutdownErr
}

// Config returns the configuration the application was built with.
func (a *Application) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Bus returns the event bus.
func (a *Application) Bus() ports.EventBus { return a.bus }

// State returns the state service.
func (a *Application) State() *service.StateService { return a.state }

// Providers returns the provider registry.
func (a *Application) Providers() *service.ProviderRegistry { return a.registry }

// Playback returns the playback service.
func (a *Application) Playback() *service.PlaybackService { return a.playback }

// Session returns the session service.
func (a *Application) Session() *service.SessionService { return a.session }

// firstStart seeds an empty session with the providers and library folders from the
// configuration.
type firstStart struct {
	ports.StateRepository
	cfg *config.Config
}

func (r firstStart) Load() (*domain.Snapshot, error) {
	snap, err := r.StateRepository.Load()
	if err != nil || len(snap.EnabledProviders) > 0 || len(snap.ProviderConfigs) > 0 {
		return snap, err
	}
	snap.EnabledProviders = append([]string(nil), r.cfg.Providers.Enabled...)
	if snap.ProviderConfigs == nil {
		snap.ProviderConfigs = map[string]domain.ProviderData{}
	}
	snap.ProviderConfigs[local.ID] = domain.ProviderData{
		local.KeyFolders: append([]string(nil), r.cfg.Library.Folders...),
		local.KeyWatch:   r.cfg.Library.Watch,
	}
	return snap, nil
}
