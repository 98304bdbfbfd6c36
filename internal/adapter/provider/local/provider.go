// Package local implements a source provider that plays audio files from folders on the
// local file system.
//
// Tracks are identified by their absolute path. A scan first pushes stubs for every new
// file and then fills in metadata from the extraction pool, so a large library shows up
// immediately and fills in as it is read.
package local

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tejashwikalptaru/tunehub/internal/adapter/metadata"
	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// ID is the provider id of the local provider.
const ID = "local"

// Configuration keys stored in the provider's data.
const (
	KeyFolders = "folders"
	KeyWatch   = "watch"
)

// Options are the host-side dependencies of the provider.
type Options struct {
	Engine    ports.AudioEngine
	Extractor ports.MetadataExtractor

	// Cache is optional.
	Cache ports.MetadataCache

	// Bus receives scan events. Optional.
	Bus ports.EventBus

	Logger *slog.Logger

	// SampleRate is used to initialize Engine if nobody did yet.
	SampleRate int

	Workers int

	// PollInterval is how often the playing track is checked for its end.
	PollInterval time.Duration

	// SettleDelay is how long a newly created file is left alone before it is read.
	SettleDelay time.Duration

	// BatchSize bounds how many metadata records go into one delivery.
	BatchSize int
}

// DefaultOptions fills in the timing and sizing defaults.
func DefaultOptions() Options {
	return Options{
		SampleRate:   44100,
		Workers:      metadata.DefaultWorkers,
		PollInterval: 250 * time.Millisecond,
		SettleDelay:  500 * time.Millisecond,
		BatchSize:    50,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SampleRate <= 0 {
		o.SampleRate = d.SampleRate
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Descriptor returns the registration record of the local provider.
func Descriptor(opts Options) ports.Descriptor {
	return ports.Descriptor{
		ID:          ID,
		Kind:        ports.KindSource,
		DisplayName: "Local Files",
		NewSource: func(ctx context.Context, data domain.ProviderData, cb ports.SourceCallbacks) (ports.SourceProvider, error) {
			return New(ctx, data, cb, opts)
		},
	}
}

// Provider is a live local provider.
type Provider struct {
	cb     ports.SourceCallbacks
	opts   Options
	logger *slog.Logger
	pool   *metadata.Pool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// scanMu serializes scans.
	scanMu sync.Mutex

	mu       sync.Mutex
	folders  []string
	handle   domain.TrackHandle
	playing  bool
	volume   float64
	muted    bool
	disposed bool
	watcher  *fsnotify.Watcher
}

// New creates the provider, starts the initial scan and, when configured, the folder
// watcher. The scan runs in the background.
func New(_ context.Context, data domain.ProviderData, cb ports.SourceCallbacks, opts Options) (*Provider, error) {
	opts = opts.withDefaults()
	if opts.Engine == nil || opts.Extractor == nil {
		return nil, errors.New("local provider needs an audio engine and a metadata extractor")
	}
	if !opts.Engine.IsInitialized() {
		if err := opts.Engine.Initialize(opts.SampleRate); err != nil && !errors.Is(err, domain.ErrAlreadyInitialized) {
			return nil, err
		}
	}

	// The provider outlives the activation context.
	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		cb:      cb,
		opts:    opts,
		logger:  opts.Logger.With(slog.String("provider", ID)),
		pool:    metadata.NewPool(opts.Extractor, opts.Cache, opts.Workers, opts.Logger),
		ctx:     ctx,
		cancel:  cancel,
		folders: cleanFolders(data.Strings(KeyFolders)),
		volume:  cb.Volume(),
		muted:   cb.Muted(),
	}

	if data.Bool(KeyWatch) {
		if err := p.startWatcher(); err != nil {
			cancel()
			return nil, err
		}
	}

	p.wg.Go(p.monitor)
	p.wg.Go(func() {
		if _, err := p.Rescan(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("initial scan failed", slog.Any("error", err))
		}
	})

	return p, nil
}

// Folders returns the configured library folders.
func (p *Provider) Folders() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.folders...)
}

// SetFolders replaces the library folders, persists them and rescans.
func (p *Provider) SetFolders(ctx context.Context, folders []string) error {
	folders = cleanFolders(folders)
	if err := p.cb.UpdateData(domain.ProviderData{KeyFolders: folders}); err != nil {
		return err
	}

	p.mu.Lock()
	p.folders = folders
	w := p.watcher
	p.mu.Unlock()

	if w != nil {
		for _, dir := range folders {
			if err := addRecursive(w, dir); err != nil {
				p.logger.Warn("failed to watch folder", slog.String("folder", dir), slog.Any("error", err))
			}
		}
	}
	_, err := p.Rescan(ctx)
	return err
}

// Dispose stops playback, the watcher and every background goroutine.
func (p *Provider) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	handle := p.handle
	p.handle = domain.InvalidTrackHandle
	p.playing = false
	w := p.watcher
	p.mu.Unlock()

	p.cancel()
	if w != nil {
		_ = w.Close()
	}
	if handle != domain.InvalidTrackHandle {
		if err := p.opts.Engine.Stop(handle); err != nil {
			p.logger.Debug("failed to stop track on dispose", slog.Any("error", err))
		}
	}
	p.wg.Wait()
	p.logger.Debug("local provider disposed")
}

type slot string

func (s slot) SlotName() string { return string(s) }

// ConfigSlot returns the folder settings view.
func (p *Provider) ConfigSlot() ports.UISlot { return slot("local.folders") }

// QuickStartSlot returns the "add a music folder" view shown on an empty library.
func (p *Provider) QuickStartSlot() ports.UISlot { return slot("local.quickstart") }

func (p *Provider) publish(event domain.Event) {
	if p.opts.Bus != nil {
		p.opts.Bus.Publish(event)
	}
}

var (
	_ ports.SourceProvider         = (*Provider)(nil)
	_ ports.ArtworkProvider        = (*Provider)(nil)
	_ ports.ConfigSlotProvider     = (*Provider)(nil)
	_ ports.QuickStartSlotProvider = (*Provider)(nil)
)
