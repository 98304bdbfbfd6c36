package local

import (
	"context"
	"log/slog"
	"time"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

// LoadAndPlay stops whatever is playing and starts track from the beginning.
func (p *Provider) LoadAndPlay(_ context.Context, track domain.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return domain.ErrProviderDisposed
	}
	if p.handle != domain.InvalidTrackHandle {
		if err := p.opts.Engine.Stop(p.handle); err != nil {
			p.logger.Debug("failed to stop previous track", slog.Any("error", err))
		}
		p.handle = domain.InvalidTrackHandle
		p.playing = false
	}

	handle, err := p.opts.Engine.Load(track.URI)
	if err != nil {
		return err
	}
	if err := p.opts.Engine.SetVolume(handle, p.levelLocked()); err != nil {
		_ = p.opts.Engine.Unload(handle)
		return err
	}
	if err := p.opts.Engine.Play(handle); err != nil {
		_ = p.opts.Engine.Unload(handle)
		return err
	}
	p.handle = handle
	p.playing = true
	p.logger.Debug("playing", slog.String("path", track.URI))
	return nil
}

func (p *Provider) loadedLocked() (domain.TrackHandle, error) {
	if p.disposed {
		return domain.InvalidTrackHandle, domain.ErrProviderDisposed
	}
	if p.handle == domain.InvalidTrackHandle {
		return domain.InvalidTrackHandle, domain.ErrNoTrackLoaded
	}
	return p.handle, nil
}

// Pause pauses the loaded track.
func (p *Provider) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	handle, err := p.loadedLocked()
	if err != nil {
		return err
	}
	if err := p.opts.Engine.Pause(handle); err != nil {
		return err
	}
	p.playing = false
	return nil
}

// Resume continues the loaded track.
func (p *Provider) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	handle, err := p.loadedLocked()
	if err != nil {
		return err
	}
	if err := p.opts.Engine.Play(handle); err != nil {
		return err
	}
	p.playing = true
	return nil
}

// SetVolume sets the volume in percent.
func (p *Provider) SetVolume(pct float64) error {
	if pct < 0 || pct > 100 {
		return domain.ErrInvalidVolume
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = pct
	return p.applyVolumeLocked()
}

// SetMuted mutes or unmutes output without touching the volume.
func (p *Provider) SetMuted(muted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
	return p.applyVolumeLocked()
}

func (p *Provider) levelLocked() float64 {
	if p.muted {
		return 0
	}
	return p.volume / 100
}

func (p *Provider) applyVolumeLocked() error {
	if p.disposed || p.handle == domain.InvalidTrackHandle {
		return nil
	}
	return p.opts.Engine.SetVolume(p.handle, p.levelLocked())
}

// SetTime seeks the loaded track to ms milliseconds.
func (p *Provider) SetTime(ms int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	handle, err := p.loadedLocked()
	if err != nil {
		return err
	}
	return p.opts.Engine.Seek(handle, time.Duration(ms)*time.Millisecond)
}

// TrackArtwork reads the picture embedded in the track's file.
func (p *Provider) TrackArtwork(_ context.Context, track domain.Track) (*domain.Artwork, error) {
	ref := track.ArtworkRef
	if ref == "" {
		ref = track.URI
	}
	return p.opts.Extractor.Artwork(ref)
}

// monitor polls the playing track and reports when it reached its end.
func (p *Provider) monitor() {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if p.checkEnded() {
				if err := p.cb.TrackEnded(); err != nil {
					p.logger.Debug("failed to report track end", slog.Any("error", err))
				}
			}
		}
	}
}

func (p *Provider) checkEnded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing || p.handle == domain.InvalidTrackHandle {
		return false
	}
	status, err := p.opts.Engine.Status(p.handle)
	if err != nil || status != domain.StatusStopped {
		return false
	}
	p.playing = false
	return true
}
