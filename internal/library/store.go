// Package library implements the track store: the deduplicated, immutable table of
// every track known to the core, keyed by TrackID.
package library

import (
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

var generation atomic.Uint64

func nextGeneration() uint64 {
	return generation.Add(1)
}

// Store is an immutable track table. Every mutating method returns a new Store and
// leaves the receiver untouched, so old values can be kept for undo.
//
// Returned tracks share slice fields with the store; callers must not modify them.
type Store struct {
	tracks map[domain.TrackID]domain.Track
	gen    uint64
}

// New returns an empty store.
func New() Store {
	return Store{tracks: map[domain.TrackID]domain.Track{}, gen: nextGeneration()}
}

// Generation identifies this store value. Two values with equal generations hold the same tracks.
func (s Store) Generation() uint64 {
	return s.gen
}

// Len returns the number of tracks.
func (s Store) Len() int {
	return len(s.tracks)
}

// Get returns the track stored under id.
func (s Store) Get(id domain.TrackID) (domain.Track, bool) {
	t, ok := s.tracks[id]
	return t, ok
}

// Has reports whether id is stored.
func (s Store) Has(id domain.TrackID) bool {
	_, ok := s.tracks[id]
	return ok
}

// All returns every track ordered by id.
func (s Store) All() []domain.Track {
	out := lo.Values(s.tracks)
	slices.SortFunc(out, func(a, b domain.Track) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

// ForProvider returns the tracks of one provider ordered by id.
func (s Store) ForProvider(providerID string) []domain.Track {
	return lo.Filter(s.All(), func(t domain.Track, _ int) bool {
		return t.ProviderID == providerID
	})
}

// URIs returns the set of URIs stored for a provider.
func (s Store) URIs(providerID string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, t := range s.tracks {
		if t.ProviderID == providerID {
			out[t.URI] = struct{}{}
		}
	}
	return out
}

func (s Store) clone(extra int) map[domain.TrackID]domain.Track {
	m := make(map[domain.TrackID]domain.Track, len(s.tracks)+extra)
	for k, v := range s.tracks {
		m[k] = v
	}
	return m
}

// UpsertMany merges incoming records of one provider into the store.
// Absent fields preserve stored values; new tracks get DateAdded set to now.
// It returns the new store and the ids that were touched, in input order.
func (s Store) UpsertMany(providerID string, metas []domain.TrackMetadata, now time.Time) (Store, []domain.TrackID, error) {
	if len(metas) == 0 {
		return s, nil, nil
	}
	next := s.clone(len(metas))
	ids := make([]domain.TrackID, 0, len(metas))
	for _, m := range metas {
		id, err := domain.NewTrackID(providerID, m.URI)
		if err != nil {
			return s, nil, err
		}
		t, ok := next[id]
		if !ok {
			t = domain.Track{ID: id, ProviderID: providerID, URI: m.URI, DateAdded: now}
		}
		t = m.ApplyTo(t)
		t.DateModified = now
		next[id] = t
		ids = append(ids, id)
	}
	return Store{tracks: next, gen: nextGeneration()}, lo.Uniq(ids), nil
}

// Update merges meta into an existing track. Unlike UpsertMany it never inserts.
func (s Store) Update(id domain.TrackID, meta domain.TrackMetadata, now time.Time) (Store, error) {
	t, ok := s.tracks[id]
	if !ok {
		return s, domain.ErrTrackNotFound
	}
	next := s.clone(0)
	t = meta.ApplyTo(t)
	t.DateModified = now
	next[id] = t
	return Store{tracks: next, gen: nextGeneration()}, nil
}

// RemoveMany deletes the given ids and returns the ids that were actually present.
func (s Store) RemoveMany(ids []domain.TrackID) (Store, []domain.TrackID) {
	present := lo.Filter(lo.Uniq(ids), func(id domain.TrackID, _ int) bool {
		return s.Has(id)
	})
	if len(present) == 0 {
		return s, nil
	}
	next := s.clone(0)
	for _, id := range present {
		delete(next, id)
	}
	return Store{tracks: next, gen: nextGeneration()}, present
}

// RemoveURIs deletes tracks of a provider by URI.
func (s Store) RemoveURIs(providerID string, uris []string) (Store, []domain.TrackID) {
	ids := make([]domain.TrackID, 0, len(uris))
	for _, u := range uris {
		if id, err := domain.NewTrackID(providerID, u); err == nil {
			ids = append(ids, id)
		}
	}
	return s.RemoveMany(ids)
}

// RemoveAllForProvider deletes every track of a provider and returns how many were removed.
func (s Store) RemoveAllForProvider(providerID string) (Store, int) {
	ids := lo.FilterMap(lo.Values(s.tracks), func(t domain.Track, _ int) (domain.TrackID, bool) {
		return t.ID, t.ProviderID == providerID
	})
	next, removed := s.RemoveMany(ids)
	return next, len(removed)
}

// Providers returns the distinct provider ids owning the given track ids.
func Providers(ids []domain.TrackID) []string {
	return lo.Uniq(lo.Map(ids, func(id domain.TrackID, _ int) string {
		return id.ProviderID()
	}))
}
