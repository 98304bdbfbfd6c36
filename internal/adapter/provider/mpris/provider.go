// Package mpris implements a base provider that publishes the player on the D-Bus
// session bus as an MPRIS media player, so desktop media keys and widgets can drive it.
package mpris

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// ID is the provider id.
const ID = "mpris"

const (
	objectPath  = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	rootIface   = "org.mpris.MediaPlayer2"
	playerIface = "org.mpris.MediaPlayer2.Player"
	noTrack     = dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")
	trackPrefix = "/org/tunehub/track/"
)

// Options configure the provider.
type Options struct {
	// Identity is the player name shown by desktop widgets.
	Identity string

	// BusName suffix; the well-known name is org.mpris.MediaPlayer2.<BusName>.
	BusName string

	// Dial connects to the session bus. Defaults to dbus.ConnectSessionBus.
	Dial func() (*dbus.Conn, error)

	Logger *slog.Logger
}

// Descriptor returns the registration record of the MPRIS provider.
func Descriptor(opts Options) ports.Descriptor {
	return ports.Descriptor{
		ID:                      ID,
		Kind:                    ports.KindBase,
		DisplayName:             "Media Keys (MPRIS)",
		RequiresHostIntegration: true,
		NewBase: func(ctx context.Context, data domain.ProviderData, cb ports.BaseCallbacks) (ports.BaseProvider, error) {
			return New(ctx, data, cb, opts)
		},
	}
}

// propertySink receives property changes; *prop.Properties implements it.
type propertySink interface {
	SetMust(iface, property string, v any)
}

// Provider is a live MPRIS provider.
type Provider struct {
	cb     ports.BaseCallbacks
	logger *slog.Logger
	props  propertySink
	conn   io.Closer

	mu       sync.Mutex
	last     domain.PlaybackState
	disposed bool
}

// New connects to the session bus, exports the player and claims the bus name.
func New(_ context.Context, _ domain.ProviderData, cb ports.BaseCallbacks, opts Options) (*Provider, error) {
	if opts.Identity == "" {
		opts.Identity = "TuneHub"
	}
	if opts.BusName == "" {
		opts.BusName = "tunehub"
	}
	if opts.Dial == nil {
		opts.Dial = func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	conn, err := opts.Dial()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	pl := &player{controls: cb.Controls}
	if err := conn.Export(pl, objectPath, playerIface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export player: %w", err)
	}
	if err := conn.Export(root{}, objectPath, rootIface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export root: %w", err)
	}

	props, err := prop.Export(conn, objectPath, propertyMap(opts.Identity))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("export properties: %w", err)
	}

	name := rootIface + "." + opts.BusName
	reply, err := conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("request name %s: %w", name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s already taken", name)
	}

	p := newProvider(cb, props, conn, opts.Logger)
	p.logger.Info("media player published", slog.String("name", name))
	return p, nil
}

func newProvider(cb ports.BaseCallbacks, props propertySink, conn io.Closer, logger *slog.Logger) *Provider {
	return &Provider{
		cb:     cb,
		logger: logger.With(slog.String("provider", ID)),
		props:  props,
		conn:   conn,
	}
}

func propertyMap(identity string) prop.Map {
	ro := func(v any) *prop.Prop {
		return &prop.Prop{Value: v, Writable: false, Emit: prop.EmitTrue}
	}
	return prop.Map{
		rootIface: {
			"CanQuit":             ro(false),
			"CanRaise":            ro(false),
			"HasTrackList":        ro(false),
			"Identity":            ro(identity),
			"SupportedUriSchemes": ro([]string{}),
			"SupportedMimeTypes":  ro([]string{}),
		},
		playerIface: {
			"PlaybackStatus": ro("Stopped"),
			"Rate":           ro(1.0),
			"Metadata":       ro(map[string]dbus.Variant{"mpris:trackid": dbus.MakeVariant(noTrack)}),
			"Volume":         ro(1.0),
			"Position":       {Value: int64(0), Writable: false, Emit: prop.EmitFalse},
			"MinimumRate":    ro(1.0),
			"MaximumRate":    ro(1.0),
			"CanGoNext":      ro(true),
			"CanGoPrevious":  ro(true),
			"CanPlay":        ro(true),
			"CanPause":       ro(true),
			"CanSeek":        ro(true),
			"CanControl":     ro(true),
		},
	}
}

// OnPlaybackChanged mirrors the host playback state into the MPRIS properties.
func (p *Provider) OnPlaybackChanged(state domain.PlaybackState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}

	if state.Status != p.last.Status {
		p.props.SetMust(playerIface, "PlaybackStatus", statusName(state.Status))
	}
	if state.Item.ItemID != p.last.Item.ItemID || trackChanged(p.last.Track, state.Track) {
		p.props.SetMust(playerIface, "Metadata", trackMetadata(state))
	}
	if state.Volume != p.last.Volume || state.Muted != p.last.Muted {
		p.props.SetMust(playerIface, "Volume", volumeLevel(state))
	}
	p.last = state
}

// Dispose releases the bus connection, which drops the bus name.
func (p *Provider) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	p.disposed = true
	if err := p.conn.Close(); err != nil {
		p.logger.Debug("failed to close session bus", slog.Any("error", err))
	}
}

func statusName(s domain.PlaybackStatus) string {
	switch s {
	case domain.StatusPlaying, domain.StatusStalled:
		return "Playing"
	case domain.StatusPaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

func volumeLevel(state domain.PlaybackState) float64 {
	if state.Muted {
		return 0
	}
	return state.Volume / 100
}

func trackChanged(a, b *domain.Track) bool {
	if a == nil || b == nil {
		return a != b
	}
	return a.ID != b.ID || a.Title != b.Title || a.Duration != b.Duration
}

func trackMetadata(state domain.PlaybackState) map[string]dbus.Variant {
	if state.Track == nil || state.Item.ItemID == "" {
		return map[string]dbus.Variant{"mpris:trackid": dbus.MakeVariant(noTrack)}
	}
	t := state.Track
	md := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(trackPath(state.Item.ItemID)),
		"xesam:title":   dbus.MakeVariant(t.DisplayTitle()),
		"xesam:url":     dbus.MakeVariant(t.URI),
	}
	if len(t.Artists) > 0 {
		md["xesam:artist"] = dbus.MakeVariant(t.Artists)
	}
	if t.Album != "" {
		md["xesam:album"] = dbus.MakeVariant(t.Album)
	}
	if len(t.Genres) > 0 {
		md["xesam:genre"] = dbus.MakeVariant(t.Genres)
	}
	if t.TrackNumber > 0 {
		md["xesam:trackNumber"] = dbus.MakeVariant(int32(t.TrackNumber))
	}
	if t.Duration > 0 {
		// MPRIS lengths are in microseconds
		md["mpris:length"] = dbus.MakeVariant(t.Duration * 1000)
	}
	return md
}

// trackPath turns an item id into a valid object path element.
func trackPath(id domain.ItemID) dbus.ObjectPath {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, string(id))
	return dbus.ObjectPath(trackPrefix + clean)
}

// root implements org.mpris.MediaPlayer2. Raise and Quit are advertised as unsupported.
type root struct{}

func (root) Raise() *dbus.Error { return nil }
func (root) Quit() *dbus.Error  { return nil }

// player implements the methods of org.mpris.MediaPlayer2.Player.
type player struct {
	controls func() ports.PlaybackControls
}

func (pl *player) call(fn func(context.Context, ports.PlaybackControls) error) *dbus.Error {
	c := pl.controls()
	if c == nil {
		return dbus.MakeFailedError(errors.New("player not ready"))
	}
	if err := fn(context.Background(), c); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (pl *player) Next() *dbus.Error {
	return pl.call(func(ctx context.Context, c ports.PlaybackControls) error { return c.Next(ctx) })
}

func (pl *player) Previous() *dbus.Error {
	return pl.call(func(ctx context.Context, c ports.PlaybackControls) error { return c.Previous(ctx) })
}

func (pl *player) Pause() *dbus.Error {
	return pl.call(func(ctx context.Context, c ports.PlaybackControls) error { return c.Pause(ctx) })
}

func (pl *player) PlayPause() *dbus.Error {
	return pl.call(func(ctx context.Context, c ports.PlaybackControls) error { return c.TogglePlayback(ctx) })
}

func (pl *player) Stop() *dbus.Error {
	return pl.call(func(ctx context.Context, c ports.PlaybackControls) error { return c.Stop(ctx) })
}

func (pl *player) Play() *dbus.Error {
	return pl.call(func(ctx context.Context, c ports.PlaybackControls) error { return c.Resume(ctx) })
}

// Seek is relative and the host only seeks to absolute positions.
func (pl *player) Seek(int64) *dbus.Error {
	return dbus.MakeFailedError(domain.ErrCapabilityUnsupported)
}

// SetPosition seeks to an absolute position in microseconds.
func (pl *player) SetPosition(_ dbus.ObjectPath, us int64) *dbus.Error {
	return pl.call(func(ctx context.Context, c ports.PlaybackControls) error { return c.Seek(ctx, us/1000) })
}

func (pl *player) OpenUri(string) *dbus.Error {
	return dbus.MakeFailedError(domain.ErrCapabilityUnsupported)
}

var (
	_ ports.BaseProvider     = (*Provider)(nil)
	_ ports.PlaybackObserver = (*Provider)(nil)
)
