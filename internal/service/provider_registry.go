package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// PlaybackHost is what providers reach through their callbacks: transport controls and
// the mixer settings. PlaybackService implements it.
type PlaybackHost interface {
	ports.PlaybackControls
	Volume() float64
	Muted() bool
}

// RegistryConfig configures the provider registry.
type RegistryConfig struct {
	// HostIntegration allows providers that need OS services to activate.
	HostIntegration bool

	// ActivationLimit bounds concurrent provider creation in SetActive. Zero means no limit.
	ActivationLimit int
}

// ProviderRegistry manages provider descriptors and their live handles.
//
// Creation and disposal of one provider are serialized by a per-entry mutex, so an id
// never holds two handles. Different providers activate concurrently.
type ProviderRegistry struct {
	logger *slog.Logger
	bus    ports.EventBus
	state  *StateService
	cfg    RegistryConfig

	mu      sync.RWMutex
	entries map[string]*providerEntry
	order   []string
	host    PlaybackHost
	subs    []domain.SubscriptionID
}

type providerEntry struct {
	desc ports.Descriptor

	// life serializes activate and deactivate of this provider.
	life sync.Mutex

	// written with both life and ProviderRegistry.mu held; read under either
	handle ports.BaseProvider
	scope  *providerScope

	// guarded by ProviderRegistry.mu
	data    domain.ProviderData
	enabled bool
}

// NewProviderRegistry creates an empty registry and subscribes it to the playback and
// track events it forwards to provider observers.
func NewProviderRegistry(logger *slog.Logger, bus ports.EventBus, st *StateService, cfg RegistryConfig) *ProviderRegistry {
	r := &ProviderRegistry{
		logger:  logger.With(slog.String("service", "providers")),
		bus:     bus,
		state:   st,
		cfg:     cfg,
		entries: make(map[string]*providerEntry),
	}
	r.subs = append(r.subs,
		bus.Subscribe(domain.EventPlaybackChanged, r.onPlaybackChanged),
		bus.Subscribe(domain.EventTracksChanged, r.onTracksChanged),
	)
	return r
}

// AttachPlayback sets the host reached through provider callbacks.
func (r *ProviderRegistry) AttachPlayback(host PlaybackHost) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.host = host
}

func (r *ProviderRegistry) playbackHost() PlaybackHost {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.host
}

// Register adds a descriptor. Registering the same id twice fails with ErrProviderExists.
func (r *ProviderRegistry) Register(desc ports.Descriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.ID]; exists {
		return domain.NewProviderError(desc.ID, "register", domain.ErrProviderExists)
	}
	r.entries[desc.ID] = &providerEntry{desc: desc, data: domain.ProviderData{}}
	r.order = append(r.order, desc.ID)

	r.logger.Debug("provider registered",
		slog.String("provider", desc.ID),
		slog.String("kind", desc.Kind.String()))
	return nil
}

// Descriptors returns every registered descriptor in registration order.
func (r *ProviderRegistry) Descriptors() []ports.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].desc)
	}
	return out
}

func (r *ProviderRegistry) entry(id string) (*providerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, domain.NewProviderError(id, "lookup", domain.ErrProviderNotFound)
	}
	return e, nil
}

// Activate creates the provider's handle. Activating a live provider is a no-op.
// Errors and panics from the factory are returned as ProviderError; the provider's
// partial deliveries are rolled back.
func (r *ProviderRegistry) Activate(ctx context.Context, id string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}
	if e.desc.RequiresHostIntegration && !r.cfg.HostIntegration {
		return domain.NewProviderError(id, "activate", domain.ErrCapabilityUnsupported)
	}

	e.life.Lock()
	defer e.life.Unlock()

	if e.handle != nil {
		return nil
	}

	r.mu.RLock()
	data := e.data.Clone()
	r.mu.RUnlock()

	scope := &providerScope{}
	handle, err := r.create(ctx, e.desc, data, scope)
	if err != nil {
		scope.close()
		r.state.RemoveProviderTracks(id)
		r.logger.Warn("provider activation failed", slog.String("provider", id), slog.Any("error", err))
		r.bus.Publish(domain.NewProviderFailedEvent(id, err))
		return domain.NewProviderError(id, "activate", err)
	}

	r.mu.Lock()
	e.handle = handle
	e.scope = scope
	r.mu.Unlock()

	r.logger.Info("provider activated", slog.String("provider", id))
	r.bus.Publish(domain.NewProviderActivatedEvent(id))
	return nil
}

func (r *ProviderRegistry) create(ctx context.Context, desc ports.Descriptor, data domain.ProviderData, scope *providerScope) (handle ports.BaseProvider, err error) {
	defer func() {
		if p := recover(); p != nil {
			handle = nil
			err = fmt.Errorf("%w: %v", domain.ErrProviderPanic, p)
		}
	}()

	base := baseCallbacks{reg: r, id: desc.ID, scope: scope}
	switch desc.Kind {
	case ports.KindSource:
		var src ports.SourceProvider
		src, err = desc.NewSource(ctx, data, &sourceCallbacks{baseCallbacks: base})
		if src != nil {
			handle = src
		}
	default:
		handle, err = desc.NewBase(ctx, data, &base)
	}
	if err == nil && handle == nil {
		err = errors.New("factory returned no handle")
	}
	return handle, err
}

// Deactivate disposes the provider's handle and removes its tracks. The callback scope
// is closed before Dispose runs. Deactivating a provider without a handle is a no-op.
func (r *ProviderRegistry) Deactivate(id string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.life.Lock()
	defer e.life.Unlock()

	if e.handle == nil {
		return nil
	}
	handle, scope := e.handle, e.scope
	scope.close()
	r.mu.Lock()
	e.handle = nil
	e.scope = nil
	r.mu.Unlock()

	r.dispose(id, handle)
	r.state.RemoveProviderTracks(id)

	r.logger.Info("provider deactivated", slog.String("provider", id))
	r.bus.Publish(domain.NewProviderDeactivatedEvent(id))
	return nil
}

func (r *ProviderRegistry) dispose(id string, handle ports.BaseProvider) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("provider panicked in dispose", slog.String("provider", id), slog.Any("panic", p))
		}
	}()
	handle.Dispose()
}

// Enable marks a provider enabled and activates it.
func (r *ProviderRegistry) Enable(ctx context.Context, id string) error {
	if err := r.setEnabled(id, true); err != nil {
		return err
	}
	return r.Activate(ctx, id)
}

// Disable marks a provider disabled and deactivates it.
func (r *ProviderRegistry) Disable(id string) error {
	if err := r.setEnabled(id, false); err != nil {
		return err
	}
	return r.Deactivate(id)
}

func (r *ProviderRegistry) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return domain.NewProviderError(id, "enable", domain.ErrProviderNotFound)
	}
	changed := e.enabled != enabled
	e.enabled = enabled
	data := e.data.Clone()
	r.mu.Unlock()

	if changed {
		r.bus.Publish(domain.NewProviderConfigChangedEvent(id, data, enabled))
	}
	return nil
}

// SetActive makes exactly ids active and enabled: other providers are deactivated,
// the listed ones are created concurrently. An unknown id fails the whole call with
// ErrProviderNotFound before anything changes. Failures of individual providers do
// not stop the others; they are joined into the returned error.
func (r *ProviderRegistry) SetActive(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := r.entry(id); err != nil {
			return err
		}
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, id := range r.registered() {
		if !want[id] {
			if err := r.Disable(id); err != nil {
				return err
			}
		}
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []error
	)
	if r.cfg.ActivationLimit > 0 {
		g.SetLimit(r.cfg.ActivationLimit)
	}
	for id := range want {
		g.Go(func() error {
			if err := r.Enable(ctx, id); err != nil {
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(failed...)
}

func (r *ProviderRegistry) registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Active returns the ids of providers with a live handle, in registration order.
func (r *ProviderRegistry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, id := range r.order {
		if r.entries[id].handle != nil {
			out = append(out, id)
		}
	}
	return out
}

// Enabled returns the ids of enabled providers in registration order.
func (r *ProviderRegistry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, id := range r.order {
		if r.entries[id].enabled {
			out = append(out, id)
		}
	}
	return out
}

// Source returns the live handle of a source provider.
func (r *ProviderRegistry) Source(id string) (ports.SourceProvider, error) {
	h, err := r.Handle(id)
	if err != nil {
		return nil, err
	}
	src, ok := h.(ports.SourceProvider)
	if !ok {
		return nil, domain.NewProviderError(id, "source", domain.ErrCapabilityUnsupported)
	}
	return src, nil
}

// Handle returns the live handle of any provider, for capability type assertions.
func (r *ProviderRegistry) Handle(id string) (ports.BaseProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, domain.NewProviderError(id, "handle", domain.ErrProviderNotFound)
	}
	if e.handle == nil {
		return nil, domain.NewProviderError(id, "handle", domain.ErrProviderNotActive)
	}
	return e.handle, nil
}

// UpdateData merges patch into a provider's configuration and publishes
// ProviderConfigChangedEvent.
func (r *ProviderRegistry) UpdateData(id string, patch domain.ProviderData) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return domain.NewProviderError(id, "update data", domain.ErrProviderNotFound)
	}
	e.data = e.data.Merge(patch)
	data, enabled := e.data.Clone(), e.enabled
	r.mu.Unlock()

	r.bus.Publish(domain.NewProviderConfigChangedEvent(id, data, enabled))
	return nil
}

// Data returns a copy of a provider's configuration.
func (r *ProviderRegistry) Data(id string) (domain.ProviderData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, domain.NewProviderError(id, "data", domain.ErrProviderNotFound)
	}
	return e.data.Clone(), nil
}

// Configs returns a copy of every provider's configuration.
func (r *ProviderRegistry) Configs() map[string]domain.ProviderData {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.ProviderData, len(r.entries))
	for id, e := range r.entries {
		if len(e.data) > 0 {
			out[id] = e.data.Clone()
		}
	}
	return out
}

// RestoreConfigs loads persisted configuration and enabled flags. Ids that are no
// longer registered are skipped. It does not activate anything.
func (r *ProviderRegistry) RestoreConfigs(configs map[string]domain.ProviderData, enabled []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, data := range configs {
		e, ok := r.entries[id]
		if !ok {
			r.logger.Warn("skipping config of unknown provider", slog.String("provider", id))
			continue
		}
		e.data = data.Clone()
	}
	for _, id := range enabled {
		if e, ok := r.entries[id]; ok {
			e.enabled = true
		}
	}
}

// Shutdown deactivates every provider and stops forwarding events.
func (r *ProviderRegistry) Shutdown() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	for _, id := range subs {
		r.bus.Unsubscribe(id)
	}
	for _, id := range r.Active() {
		if err := r.Deactivate(id); err != nil {
			r.logger.Warn("deactivate failed", slog.String("provider", id), slog.Any("error", err))
		}
	}
	r.logger.Debug("provider registry shut down")
}

func (r *ProviderRegistry) liveHandles() map[string]ports.BaseProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[string]ports.BaseProvider{}
	for id, e := range r.entries {
		if e.handle != nil {
			out[id] = e.handle
		}
	}
	return out
}

func (r *ProviderRegistry) onPlaybackChanged(event domain.Event) {
	e, ok := event.(domain.PlaybackChangedEvent)
	if !ok {
		return
	}
	for id, h := range r.liveHandles() {
		if obs, ok := h.(ports.PlaybackObserver); ok {
			r.guard(id, "playback observer", func() { obs.OnPlaybackChanged(e.State) })
		}
	}
}

func (r *ProviderRegistry) onTracksChanged(event domain.Event) {
	e, ok := event.(domain.TracksChangedEvent)
	if !ok {
		return
	}
	handles := r.liveHandles()
	for _, id := range e.Providers {
		if id == e.Origin {
			continue
		}
		obs, ok := handles[id].(ports.TracksObserver)
		if !ok {
			continue
		}
		tracks := r.state.ProviderTracks(id)
		r.guard(id, "tracks observer", func() { obs.OnTracksUpdate(tracks) })
	}
}

func (r *ProviderRegistry) guard(id, what string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("provider panicked", slog.String("provider", id), slog.String("in", what), slog.Any("panic", p))
		}
	}()
	fn()
}
