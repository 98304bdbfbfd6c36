package service

import (
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/library"
	"github.com/tejashwikalptaru/tunehub/internal/state"
)

// tracksDelta is a store transform that is valid on any version of the store. Provider
// deliveries are expressed this way so they can be replayed onto the undo history.
type tracksDelta func(library.Store, time.Time) library.Store

// deliver commits a provider track change. The change is not undoable, and it is also
// applied to every recorded past and future state so a later undo or redo does not
// drop or resurrect provider data.
func (s *StateService) deliver(action, origin string, delta tracksDelta) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	prev := s.hist.Present()
	next := prev
	next.Tracks = delta(prev.Tracks, now)
	changed := state.Diff(prev, next)
	if changed == 0 {
		return nil
	}
	s.hist.Rebase(func(st state.State) state.State {
		st.Tracks = delta(st.Tracks, now)
		return st
	})
	events := s.record(action, next, changed)
	return append(events, domain.NewTracksChangedEvent([]string{origin}, origin))
}

// upsertTracksEvents inserts or merges tracks delivered by a provider.
func (s *StateService) upsertTracksEvents(providerID string, metas []domain.TrackMetadata) ([]domain.Event, error) {
	if err := domain.ValidateProviderID(providerID); err != nil {
		return nil, err
	}
	for _, m := range metas {
		if m.URI == "" {
			return nil, domain.NewValidationError("uri", m.URI, "track uri must not be empty")
		}
	}
	events := s.deliver(state.ActionTracksDelivered, providerID, func(st library.Store, now time.Time) library.Store {
		next, _, err := st.UpsertMany(providerID, metas, now)
		if err != nil {
			return st
		}
		return next
	})
	s.logger.Debug("tracks delivered", slog.String("provider", providerID), slog.Int("count", len(metas)))
	return events, nil
}

// mergeMetadataEvents merges metadata into tracks the provider already delivered.
// Metadata for unknown URIs is ignored.
func (s *StateService) mergeMetadataEvents(providerID string, metas []domain.TrackMetadata) ([]domain.Event, error) {
	if err := domain.ValidateProviderID(providerID); err != nil {
		return nil, err
	}
	events := s.deliver(state.ActionTracksDelivered, providerID, func(st library.Store, now time.Time) library.Store {
		known := st.URIs(providerID)
		present := lo.Filter(metas, func(m domain.TrackMetadata, _ int) bool {
			_, ok := known[m.URI]
			return ok
		})
		if len(present) == 0 {
			return st
		}
		next, _, err := st.UpsertMany(providerID, present, now)
		if err != nil {
			return st
		}
		return next
	})
	return events, nil
}

// removeProviderTracksEvents removes tracks by URI, or every track of the provider
// when no URI is given.
func (s *StateService) removeProviderTracksEvents(providerID string, uris []string) []domain.Event {
	return s.deliver(state.ActionTracksRemoved, providerID, func(st library.Store, _ time.Time) library.Store {
		if len(uris) == 0 {
			next, _ := st.RemoveAllForProvider(providerID)
			return next
		}
		next, _ := st.RemoveURIs(providerID, uris)
		return next
	})
}

// AddTracks inserts or merges tracks on behalf of a provider. Providers use their
// callbacks; this entry point serves tools that feed the store directly.
func (s *StateService) AddTracks(providerID string, metas []domain.TrackMetadata) error {
	events, err := s.upsertTracksEvents(providerID, metas)
	s.publish(events)
	return err
}

// RemoveProviderTracks removes tracks of a provider (all of them when uris is empty).
func (s *StateService) RemoveProviderTracks(providerID string, uris ...string) {
	s.publish(s.removeProviderTracksEvents(providerID, uris))
}

// EditTrack merges user-edited metadata into a track. Undoable.
func (s *StateService) EditTrack(id domain.TrackID, meta domain.TrackMetadata) error {
	return s.commit(state.ActionTrackEdit, func(cur state.State, now time.Time) (state.State, []domain.Event, error) {
		tracks, err := cur.Tracks.Update(id, meta, now)
		if err != nil {
			return cur, nil, err
		}
		cur.Tracks = tracks
		return cur, []domain.Event{domain.NewTracksChangedEvent([]string{id.ProviderID()}, OriginUser)}, nil
	})
}

// DeleteTracks removes tracks from the library. Playlist and queue references are left
// dangling. Undoable.
func (s *StateService) DeleteTracks(ids []domain.TrackID) (int, error) {
	var removed []domain.TrackID
	err := s.commit(state.ActionTrackDelete, func(cur state.State, _ time.Time) (state.State, []domain.Event, error) {
		tracks, gone := cur.Tracks.RemoveMany(ids)
		removed = gone
		if len(gone) == 0 {
			return cur, nil, nil
		}
		cur.Tracks = tracks
		return cur, []domain.Event{domain.NewTracksChangedEvent(library.Providers(gone), OriginUser)}, nil
	})
	return len(removed), err
}
