package metadata

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 4

// Result is the outcome of extracting one file.
type Result struct {
	Path     string
	Metadata domain.TrackMetadata
	Err      error

	// Cached is true when Metadata came from the cache.
	Cached bool
}

// Pool extracts metadata on a fixed number of workers. It only talks to its caller
// through channels and never touches shared state.
type Pool struct {
	extractor ports.MetadataExtractor
	cache     ports.MetadataCache
	workers   int
	logger    *slog.Logger
}

// NewPool creates a pool. cache may be nil.
func NewPool(extractor ports.MetadataExtractor, cache ports.MetadataCache, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pool{
		extractor: extractor,
		cache:     cache,
		workers:   workers,
		logger:    logger.With(slog.String("component", "metadata-pool")),
	}
}

// Run extracts every path received on in and sends one Result per path.
// The returned channel closes once in is closed and drained, or ctx is cancelled.
func (p *Pool) Run(ctx context.Context, in <-chan string) <-chan Result {
	out := make(chan Result)

	g, ctx := errgroup.WithContext(ctx)
	for range p.workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case path, ok := <-in:
					if !ok {
						return nil
					}
					res := p.extract(path)
					select {
					case out <- res:
					case <-ctx.Done():
						return nil
					}
				}
			}
		})
	}

	go func() {
		_ = g.Wait()
		close(out)
	}()
	return out
}

func (p *Pool) extract(path string) Result {
	var (
		size int64
		info os.FileInfo
		err  error
	)
	if p.cache != nil {
		info, err = os.Stat(path)
		if err == nil {
			size = info.Size()
			meta, ok, err := p.cache.Get(path, size, info.ModTime())
			if err != nil {
				p.logger.Warn("metadata cache read failed", slog.String("path", path), slog.Any("error", err))
			} else if ok {
				return Result{Path: path, Metadata: meta, Cached: true}
			}
		}
	}

	meta, err := p.extractor.Extract(path)
	if err != nil {
		return Result{Path: path, Err: err}
	}

	if p.cache != nil && info != nil {
		if err := p.cache.Put(path, size, info.ModTime(), meta); err != nil {
			p.logger.Warn("metadata cache write failed", slog.String("path", path), slog.Any("error", err))
		}
	}
	return Result{Path: path, Metadata: meta}
}
