package local

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

func (p *Provider) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range p.folders {
		if err := addRecursive(w, dir); err != nil {
			p.logger.Warn("failed to watch folder", slog.String("folder", dir), slog.Any("error", err))
		}
	}
	p.watcher = w
	p.wg.Go(func() { p.watch(w) })
	p.logger.Info("watching library folders", slog.Any("folders", p.folders))
	return nil
}

// addRecursive watches dir and every directory below it.
func addRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if hidden(path) && path != dir {
				return fs.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}

func (p *Provider) watch(w *fsnotify.Watcher) {
	for {
		select {
		case <-p.ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			p.handleFileEvent(w, event)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			p.logger.Error("file watcher error", slog.Any("error", err))
		}
	}
}

func (p *Provider) handleFileEvent(w *fsnotify.Watcher, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return
	}
	audio := p.opts.Extractor.Supports(event.Name)

	switch {
	case event.Has(fsnotify.Create) && audio:
		p.wg.Go(func() { p.handleNewFile(event.Name) })

	case event.Has(fsnotify.Write) && audio:
		p.wg.Go(func() { p.handleNewFile(event.Name) })

	case (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) && audio:
		if err := p.cb.RemoveTracks(event.Name); err != nil {
			p.logger.Debug("failed to remove track", slog.String("path", event.Name), slog.Any("error", err))
		}

	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addRecursive(w, event.Name); err != nil {
				p.logger.Warn("failed to watch directory", slog.String("directory", event.Name), slog.Any("error", err))
				return
			}
			p.logger.Info("watching new directory", slog.String("directory", event.Name))
			p.wg.Go(func() {
				if _, err := p.Rescan(p.ctx); err != nil {
					p.logger.Debug("rescan after new directory failed", slog.Any("error", err))
				}
			})
		}
	}
}

// handleNewFile waits for the file to settle, then adds or refreshes its track.
func (p *Provider) handleNewFile(path string) {
	if p.opts.SettleDelay > 0 {
		select {
		case <-time.After(p.opts.SettleDelay):
		case <-p.ctx.Done():
			return
		}
	}

	meta, err := p.opts.Extractor.Extract(path)
	if err != nil {
		p.logger.Debug("failed to read new file", slog.String("path", path), slog.Any("error", err))
		return
	}
	if err := p.cb.AddTracks([]domain.TrackMetadata{meta}); err != nil {
		p.logger.Debug("failed to add track", slog.String("path", path), slog.Any("error", err))
		return
	}
	p.logger.Info("added track from watched folder", slog.String("path", path))
}
