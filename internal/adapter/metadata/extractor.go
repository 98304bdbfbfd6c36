// Package metadata reads tags, durations and artwork from local audio files, caches the
// results in SQLite, and runs extraction on a bounded worker pool.
package metadata

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/samber/lo"
	"github.com/tcolgate/mp3"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// SupportedExtensions lists the file extensions the extractor reads.
var SupportedExtensions = []string{".mp3", ".flac", ".wav", ".m4a", ".ogg"}

// Extractor reads metadata with dhowden/tag and computes durations per container.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a new metadata extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With(slog.String("component", "metadata")),
	}
}

// Supports reports whether path has a supported audio extension.
func (e *Extractor) Supports(path string) bool {
	return lo.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path)))
}

// Extract reads the tags of path. A file without readable tags still yields a record
// titled after the file name.
func (e *Extractor) Extract(path string) (domain.TrackMetadata, error) {
	if path == "" {
		return domain.TrackMetadata{}, domain.ErrInvalidFilePath
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.TrackMetadata{}, fmt.Errorf("%s: %w", path, domain.ErrFileNotFound)
		}
		return domain.TrackMetadata{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return domain.TrackMetadata{}, err
	}

	meta := domain.TrackMetadata{
		URI:            path,
		FileSize:       lo.ToPtr(stat.Size()),
		MetadataLoaded: lo.ToPtr(true),
	}

	if d, err := e.duration(path); err != nil {
		e.logger.Debug("failed to calculate duration",
			slog.String("path", path),
			slog.Any("error", err))
	} else if d > 0 {
		meta.Duration = lo.ToPtr(d.Milliseconds())
	}

	tags, err := tag.ReadFrom(file)
	if err != nil {
		if !errors.Is(err, tag.ErrNoTagsFound) {
			e.logger.Debug("failed to read tags, using file name",
				slog.String("path", path),
				slog.Any("error", err))
		}
		meta.Title = lo.ToPtr(baseTitle(path))
		return meta, nil
	}

	title := strings.TrimSpace(tags.Title())
	if title == "" {
		title = baseTitle(path)
	}
	meta.Title = &title

	if artist := strings.TrimSpace(tags.Artist()); artist != "" {
		meta.Artists = splitNames(artist)
	}
	if album := strings.TrimSpace(tags.Album()); album != "" {
		meta.Album = &album
	}
	if albumArtist := strings.TrimSpace(tags.AlbumArtist()); albumArtist != "" {
		meta.AlbumArtist = &albumArtist
	}
	if genre := strings.TrimSpace(tags.Genre()); genre != "" {
		meta.Genres = splitNames(genre)
	}
	if composer := strings.TrimSpace(tags.Composer()); composer != "" {
		meta.Composers = splitNames(composer)
	}
	if comment := strings.TrimSpace(tags.Comment()); comment != "" {
		meta.Comment = &comment
	}
	if year := tags.Year(); year > 0 {
		meta.Year = &year
	}
	if n, total := tags.Track(); n > 0 {
		meta.TrackNumber = &n
		if total > 0 {
			meta.TrackCount = &total
		}
	}
	if n, total := tags.Disc(); n > 0 {
		meta.DiscNumber = &n
		if total > 0 {
			meta.DiscCount = &total
		}
	}
	if tags.Picture() != nil {
		meta.ArtworkRef = lo.ToPtr(path)
	}

	return meta, nil
}

// Artwork returns the picture embedded in path.
func (e *Extractor) Artwork(path string) (*domain.Artwork, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrFileNotFound)
		}
		return nil, err
	}
	defer file.Close()

	tags, err := tag.ReadFrom(file)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil, domain.ErrNoArtwork
		}
		return nil, err
	}
	pic := tags.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, domain.ErrNoArtwork
	}

	mime := pic.MIMEType
	if mime == "" {
		mime = http.DetectContentType(pic.Data)
	}
	return &domain.Artwork{MIMEType: mime, Data: pic.Data}, nil
}

func (e *Extractor) duration(path string) (time.Duration, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return durationMP3(path)
	case ".flac":
		return durationFLAC(path)
	case ".wav":
		return durationWAV(path)
	default:
		return 0, nil
	}
}

// durationMP3 sums frame durations. A file where no frame decodes is an error;
// a file that breaks partway reports what was decoded.
func durationMP3(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var (
		total   time.Duration
		frame   mp3.Frame
		skipped int
		frames  int
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || frames > 0 {
				break
			}
			return 0, fmt.Errorf("no mp3 frames: %w", err)
		}
		total += frame.Duration()
		frames++
	}
	return total, nil
}

// durationFLAC reads the STREAMINFO block.
func durationFLAC(path string) (time.Duration, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	info := stream.Info
	if info.NSamples == 0 || info.SampleRate == 0 {
		return 0, errors.New("flac stream missing sample info")
	}
	return time.Duration(float64(info.NSamples) / float64(info.SampleRate) * float64(time.Second)), nil
}

func durationWAV(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, errors.New("invalid wav file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, err
	}
	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if frameSize == 0 || dec.SampleRate == 0 {
		return 0, errors.New("invalid wav header")
	}
	frames := dec.PCMLen() / frameSize
	return time.Duration(frames) * time.Second / time.Duration(dec.SampleRate), nil
}

func baseTitle(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// splitNames splits multi-valued tag text on ';' and NUL.
func splitNames(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '\x00' })
	return lo.Filter(lo.Map(parts, func(p string, _ int) string { return strings.TrimSpace(p) }),
		func(p string, _ int) bool { return p != "" })
}

// Verify that Extractor implements the MetadataExtractor interface
var _ ports.MetadataExtractor = (*Extractor)(nil)
