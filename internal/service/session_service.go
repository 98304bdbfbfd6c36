package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// DefaultSaveDelay is how long the session waits after the last change before saving.
const DefaultSaveDelay = 2 * time.Second

// ProviderSession is the part of the provider registry the session persists.
type ProviderSession interface {
	Configs() map[string]domain.ProviderData
	Enabled() []string
	RestoreConfigs(configs map[string]domain.ProviderData, enabled []string)
	SetActive(ctx context.Context, ids []string) error
}

// SessionService loads the persisted snapshot at startup and saves it again, debounced,
// whenever the state or a provider configuration changes.
type SessionService struct {
	logger    *slog.Logger
	bus       ports.EventBus
	repo      ports.StateRepository
	state     *StateService
	providers ProviderSession
	delay     time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	subs    []domain.SubscriptionID
	pending bool
	closed  bool

	// saveMu serializes writes to the repository.
	saveMu sync.Mutex
}

// NewSessionService creates a session service. delay <= 0 uses DefaultSaveDelay.
func NewSessionService(
	logger *slog.Logger,
	bus ports.EventBus,
	repo ports.StateRepository,
	st *StateService,
	providers ProviderSession,
	delay time.Duration,
) *SessionService {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	return &SessionService{
		logger:    logger.With(slog.String("service", "session")),
		bus:       bus,
		repo:      repo,
		state:     st,
		providers: providers,
		delay:     delay,
	}
}

// Load restores the persisted snapshot, activates the enabled providers and starts
// watching for changes. Provider activation failures are returned joined after the
// rest of the session has been restored.
func (s *SessionService) Load(ctx context.Context) error {
	snap, err := s.repo.Load()
	if err != nil {
		return domain.NewServiceError("session", "load", "failed to load snapshot", err)
	}
	if snap.Version > domain.SnapshotVersion {
		return domain.NewServiceError("session", "load",
			fmt.Sprintf("snapshot version %d is newer than supported %d", snap.Version, domain.SnapshotVersion), nil)
	}

	if err := s.state.Restore(snap); err != nil {
		return err
	}
	s.providers.RestoreConfigs(snap.ProviderConfigs, snap.EnabledProviders)
	s.watch()

	enabled := s.providers.Enabled()
	s.logger.Info("session loaded",
		slog.Int("playlists", len(snap.Playlists.Nodes)),
		slog.Any("providers", enabled))
	return s.providers.SetActive(ctx, enabled)
}

func (s *SessionService) watch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.subs) > 0 {
		return
	}
	s.subs = []domain.SubscriptionID{
		s.bus.Subscribe(domain.EventStateChanged, s.onChange),
		s.bus.Subscribe(domain.EventProviderConfigChanged, s.onChange),
	}
}

func (s *SessionService) onChange(domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = true
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.flush)
		return
	}
	s.timer.Reset(s.delay)
}

func (s *SessionService) flush() {
	if err := s.Save(); err != nil {
		s.logger.Error("failed to save session", slog.Any("error", err))
	}
}

// Snapshot assembles the persisted form of the current session.
func (s *SessionService) Snapshot() *domain.Snapshot {
	snap := s.state.Export()
	snap.ProviderConfigs = s.providers.Configs()
	snap.EnabledProviders = s.providers.Enabled()
	return snap
}

// Save writes the current session to the repository.
func (s *SessionService) Save() error {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.repo.Save(s.Snapshot()); err != nil {
		return domain.NewServiceError("session", "save", "failed to save snapshot", err)
	}
	s.logger.Debug("session saved")
	return nil
}

// Pending reports whether a change is waiting to be saved.
func (s *SessionService) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Shutdown stops watching and writes any pending change.
func (s *SessionService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	if s.timer != nil {
		s.timer.Stop()
	}
	pending := s.pending
	s.mu.Unlock()

	for _, id := range subs {
		s.bus.Unsubscribe(id)
	}
	if !pending {
		// wait for a save started by the timer
		s.saveMu.Lock()
		defer s.saveMu.Unlock()
		return nil
	}
	return s.Save()
}
