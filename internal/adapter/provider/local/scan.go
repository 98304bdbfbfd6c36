package local

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

// ScanResult summarizes one scan.
type ScanResult struct {
	Found    int
	Added    int
	Removed  int
	Updated  int
	Failed   int
	Duration time.Duration
}

// Rescan walks every folder, removes tracks whose files are gone, pushes stubs for new
// files and then loads metadata for every file that has none yet.
func (p *Provider) Rescan(ctx context.Context) (ScanResult, error) {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()

	start := time.Now()
	folders := p.Folders()
	p.publish(domain.NewScanStartedEvent(ID, folders))

	res, err := p.scan(ctx, folders)
	res.Duration = time.Since(start)

	p.publish(domain.NewScanCompletedEvent(ID, res.Found, res.Duration, err))
	p.logger.Info("scan finished",
		slog.Int("found", res.Found),
		slog.Int("added", res.Added),
		slog.Int("removed", res.Removed),
		slog.Int("failed", res.Failed),
		slog.Duration("took", res.Duration))
	return res, err
}

func (p *Provider) scan(ctx context.Context, folders []string) (ScanResult, error) {
	var res ScanResult

	files := p.walk(ctx, folders)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Found = len(files)

	known := lo.SliceToMap(p.cb.Tracks(), func(t domain.Track) (string, domain.Track) { return t.URI, t })
	onDisk := lo.SliceToMap(files, func(f string) (string, struct{}) { return f, struct{}{} })

	gone := lo.Filter(lo.Keys(known), func(uri string, _ int) bool {
		_, ok := onDisk[uri]
		return !ok
	})
	if len(gone) > 0 {
		slices.Sort(gone)
		if err := p.cb.RemoveTracks(gone...); err != nil {
			return res, err
		}
		res.Removed = len(gone)
	}

	fresh := lo.Filter(files, func(f string, _ int) bool {
		_, ok := known[f]
		return !ok
	})
	if len(fresh) > 0 {
		stubs := lo.Map(fresh, func(f string, _ int) domain.TrackMetadata { return stub(f) })
		for _, chunk := range lo.Chunk(stubs, p.opts.BatchSize) {
			if err := p.cb.AddTracks(chunk); err != nil {
				return res, err
			}
		}
		res.Added = len(fresh)
	}

	pending := lo.Filter(files, func(f string, _ int) bool {
		t, ok := known[f]
		return !ok || !t.MetadataLoaded
	})
	updated, failed, err := p.loadMetadata(ctx, pending)
	res.Updated, res.Failed = updated, failed
	return res, err
}

// walk lists the supported files under folders in lexical order. Unreadable folders are
// logged and skipped.
func (p *Provider) walk(ctx context.Context, folders []string) []string {
	seen := map[string]struct{}{}
	var files []string
	for _, root := range folders {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				p.logger.Warn("skipping unreadable path", slog.String("path", path), slog.Any("error", err))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if hidden(path) && path != root {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !p.opts.Extractor.Supports(path) {
				return nil
			}
			if _, dup := seen[path]; !dup {
				seen[path] = struct{}{}
				files = append(files, path)
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("folder walk failed", slog.String("folder", root), slog.Any("error", err))
		}
	}
	slices.Sort(files)
	return files
}

// loadMetadata runs paths through the extraction pool and delivers the results in batches.
func (p *Provider) loadMetadata(ctx context.Context, paths []string) (updated, failed int, err error) {
	if len(paths) == 0 {
		return 0, 0, nil
	}

	in := make(chan string)
	go func() {
		defer close(in)
		for _, path := range paths {
			select {
			case in <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	progress := domain.ScanProgress{ProviderID: ID, TotalFiles: len(paths)}
	batch := make([]domain.TrackMetadata, 0, p.opts.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.cb.UpdateMetadata(batch); err != nil {
			return err
		}
		updated += len(batch)
		batch = batch[:0]
		p.publish(domain.NewScanProgressEvent(progress))
		return nil
	}

	for r := range p.pool.Run(ctx, in) {
		if err != nil {
			// Keep draining so the pool can finish.
			continue
		}
		progress.FilesScanned++
		progress.CurrentFile = r.Path
		if r.Err != nil {
			failed++
			p.logger.Debug("metadata extraction failed", slog.String("path", r.Path), slog.Any("error", r.Err))
			continue
		}
		progress.TracksFound++
		batch = append(batch, r.Metadata)
		if len(batch) >= p.opts.BatchSize {
			err = flush()
		}
	}
	if err == nil {
		err = flush()
	}
	if err == nil {
		err = ctx.Err()
	}
	return updated, failed, err
}

func stub(path string) domain.TrackMetadata {
	name := filepath.Base(path)
	return domain.TrackMetadata{
		URI:            path,
		Title:          lo.ToPtr(strings.TrimSuffix(name, filepath.Ext(name))),
		MetadataLoaded: lo.ToPtr(false),
	}
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func cleanFolders(folders []string) []string {
	out := make([]string, 0, len(folders))
	for _, f := range folders {
		if strings.TrimSpace(f) == "" {
			continue
		}
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		out = append(out, filepath.Clean(f))
	}
	return lo.Uniq(out)
}
