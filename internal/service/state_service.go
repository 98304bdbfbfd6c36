// Package service provides the tunehub core services: the undoable state, the provider
// registry, playback routing and session persistence.
package service

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/history"
	"github.com/tejashwikalptaru/tunehub/internal/library"
	"github.com/tejashwikalptaru/tunehub/internal/playlist"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
	"github.com/tejashwikalptaru/tunehub/internal/queue"
	"github.com/tejashwikalptaru/tunehub/internal/state"
)

// OriginUser marks track changes made through the service API rather than by a provider.
const OriginUser = ""

// StateService owns the core state and its undo history.
//
// Every operation is one atomic transition under a single mutex: the transform runs on
// the present value and either commits completely or leaves the state untouched.
// Events are published after the mutex is released.
type StateService struct {
	logger *slog.Logger
	bus    ports.EventBus
	now    func() time.Time

	mu       sync.Mutex
	hist     *history.History[state.State]
	revision uint64
}

// NewStateService creates a state service with an empty state.
// undoLimit bounds the undo depth; values below 1 use history.DefaultLimit.
func NewStateService(logger *slog.Logger, bus ports.EventBus, undoLimit int) *StateService {
	s := &StateService{
		logger: logger.With(slog.String("service", "state")),
		bus:    bus,
		now:    time.Now,
		hist:   state.NewHistory(state.New(), undoLimit),
	}
	s.logger.Debug("state service initialized", slog.Int("undo_limit", undoLimit))
	return s
}

// transition is a pure transform of the present state. It may return extra events that
// are published after the state event.
type transition func(cur state.State, now time.Time) (state.State, []domain.Event, error)

func (s *StateService) publish(events []domain.Event) {
	for _, e := range events {
		s.bus.Publish(e)
	}
}

func (s *StateService) commit(action string, fn transition) error {
	events, err := s.apply(action, fn)
	s.publish(events)
	return err
}

// apply runs fn under the lock and returns the events to publish.
func (s *StateService) apply(action string, fn transition) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(action, fn)
}

func (s *StateService) applyLocked(action string, fn transition) ([]domain.Event, error) {
	prev := s.hist.Present()
	next, extra, err := fn(prev, s.now())
	if err != nil {
		s.logger.Debug("transition rejected", slog.String("action", action), slog.Any("error", err))
		return nil, err
	}
	changed := state.Diff(prev, next)
	if changed == 0 {
		return extra, nil
	}
	return append(s.record(action, next, changed), extra...), nil
}

// record makes next the present and returns the state and history events.
func (s *StateService) record(action string, next state.State, changed domain.ChangeSet) []domain.Event {
	couldUndo, couldRedo := s.hist.CanUndo(), s.hist.CanRedo()
	s.hist.Apply(action, next)
	s.revision++

	events := []domain.Event{domain.NewStateChangedEvent(action, s.revision, changed)}
	if s.hist.CanUndo() != couldUndo || s.hist.CanRedo() != couldRedo {
		events = append(events, domain.NewHistoryChangedEvent(s.hist.CanUndo(), s.hist.CanRedo()))
	}
	return events
}

// Revision returns the number of committed transitions.
func (s *StateService) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Snapshot returns the present state value. It is immutable and safe to keep.
func (s *StateService) Snapshot() state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Present()
}

// Export returns the persisted form of the present state.
func (s *StateService) Export() *domain.Snapshot {
	return s.Snapshot().Export()
}

// Restore replaces playlists, queue and view with the snapshot contents and clears the
// undo history. Tracks are kept.
func (s *StateService) Restore(snap *domain.Snapshot) error {
	restored, err := state.FromSnapshot(snap)
	if err != nil {
		return domain.NewServiceError("state", "restore", "invalid snapshot", err)
	}

	s.mu.Lock()
	prev := s.hist.Present()
	restored.Tracks = prev.Tracks
	s.hist.Reset(restored)
	s.revision++
	events := []domain.Event{
		domain.NewStateChangedEvent(state.ActionRestore, s.revision, state.Diff(prev, restored)),
		domain.NewHistoryChangedEvent(false, false),
	}
	s.mu.Unlock()

	s.publish(events)
	s.logger.Info("state restored",
		slog.Int("playlists", restored.Playlists.Len()),
		slog.Int("queue", len(restored.Queue.Items)))
	return nil
}

// Undo reverts the last undoable action. View preferences keep their live value.
func (s *StateService) Undo() error {
	return s.travel(state.ActionUndo, (*history.History[state.State]).Undo, domain.ErrNothingToUndo)
}

// Redo re-applies the last undone action.
func (s *StateService) Redo() error {
	return s.travel(state.ActionRedo, (*history.History[state.State]).Redo, domain.ErrNothingToRedo)
}

func (s *StateService) travel(action string, step func(*history.History[state.State]) bool, empty error) error {
	s.mu.Lock()
	prev := s.hist.Present()
	if !step(s.hist) {
		s.mu.Unlock()
		return empty
	}
	next := s.hist.Present()
	s.revision++
	events := []domain.Event{
		domain.NewStateChangedEvent(action, s.revision, state.Diff(prev, next)),
		domain.NewHistoryChangedEvent(s.hist.CanUndo(), s.hist.CanRedo()),
	}
	if prev.Tracks.Generation() != next.Tracks.Generation() {
		events = append(events, domain.NewTracksChangedEvent(changedProviders(prev.Tracks, next.Tracks), OriginUser))
	}
	s.mu.Unlock()

	s.publish(events)
	s.logger.Debug("history step", slog.String("action", action))
	return nil
}

// CanUndo reports whether Undo would succeed.
func (s *StateService) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo()
}

// CanRedo reports whether Redo would succeed.
func (s *StateService) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo()
}

// changedProviders lists the providers whose tracks differ between two stores.
func changedProviders(a, b library.Store) []string {
	seen := map[string]bool{}
	var out []string
	mark := func(pid string) {
		if !seen[pid] {
			seen[pid] = true
			out = append(out, pid)
		}
	}
	for _, t := range a.All() {
		if other, ok := b.Get(t.ID); !ok || !trackEqual(t, other) {
			mark(t.ProviderID)
		}
	}
	for _, t := range b.All() {
		if !a.Has(t.ID) {
			mark(t.ProviderID)
		}
	}
	slices.Sort(out)
	return out
}

func trackEqual(a, b domain.Track) bool {
	return a.DateModified.Equal(b.DateModified) && a.Title == b.Title &&
		slices.Equal(a.Artists, b.Artists) && a.Album == b.Album && a.Duration == b.Duration
}

// Track returns a track by id.
func (s *StateService) Track(id domain.TrackID) (domain.Track, bool) {
	return s.Snapshot().Tracks.Get(id)
}

// Tracks returns every track ordered by id.
func (s *StateService) Tracks() []domain.Track {
	return s.Snapshot().Tracks.All()
}

// ProviderTracks returns the tracks of one provider.
func (s *StateService) ProviderTracks(providerID string) []domain.Track {
	return s.Snapshot().Tracks.ForProvider(providerID)
}

// LibraryView returns every track sorted by the library layout.
func (s *StateService) LibraryView() []domain.Track {
	st := s.Snapshot()
	return st.Tracks.Sorted(st.View.Library)
}

// Node returns a playlist or folder by id.
func (s *StateService) Node(id domain.NodeID) (domain.PlaylistNode, bool) {
	return s.Snapshot().Playlists.FindNode(id)
}

// Tree returns the present playlist tree.
func (s *StateService) Tree() playlist.Tree {
	return s.Snapshot().Playlists
}

// Queue returns the present queue.
func (s *StateService) Queue() queue.Queue {
	return s.Snapshot().Queue
}

// Layout returns the layout of a playlist, or of the library for playlist.RootID.
func (s *StateService) Layout(id domain.NodeID) domain.Layout {
	v := s.Snapshot().View
	if id == playlist.RootID {
		return v.Library
	}
	return v.LayoutFor(id)
}

// IsExpanded reports whether a folder is expanded.
func (s *StateService) IsExpanded(id domain.NodeID) bool {
	return s.Snapshot().View.IsExpanded(id)
}

// Entry is a playlist or queue item resolved against the track store. Track is nil for
// references to tracks that are not loaded.
type Entry struct {
	Item  domain.PlaylistItem
	Track *domain.Track
}

func resolve(tracks library.Store, item domain.PlaylistItem) Entry {
	e := Entry{Item: item}
	if t, ok := tracks.Get(item.TrackID); ok {
		e.Track = &t
	}
	return e
}

// PlaylistTracks returns the items of a playlist resolved against the track store.
// With a sort key in the playlist layout, loaded tracks are sorted by it and unresolved
// items follow in playlist order.
func (s *StateService) PlaylistTracks(id domain.NodeID) ([]Entry, error) {
	st := s.Snapshot()
	n, ok := st.Playlists.FindNode(id)
	if !ok {
		return nil, domain.NewNodeError("tracks", id, domain.ErrNodeNotFound)
	}
	if n.IsFolder() {
		return nil, domain.NewNodeError("tracks", id, domain.ErrNotAPlaylist)
	}

	entries := make([]Entry, 0, len(n.Items))
	for _, it := range n.Items {
		entries = append(entries, resolve(st.Tracks, it))
	}
	layout := st.View.LayoutFor(id)
	if layout.SortKey == domain.SortNone {
		return entries, nil
	}

	var loaded []domain.Track
	byTrack := map[domain.TrackID][]Entry{}
	var missing []Entry
	for _, e := range entries {
		if e.Track == nil {
			missing = append(missing, e)
			continue
		}
		if len(byTrack[e.Item.TrackID]) == 0 {
			loaded = append(loaded, *e.Track)
		}
		byTrack[e.Item.TrackID] = append(byTrack[e.Item.TrackID], e)
	}
	sorted := make([]Entry, 0, len(entries))
	for _, t := range library.Sorted(loaded, layout) {
		sorted = append(sorted, byTrack[t.ID]...)
	}
	return append(sorted, missing...), nil
}

// QueueRow is a visible queue row resolved against the track store.
type QueueRow struct {
	queue.Row
	Track *domain.Track
}

// VisibleQueue returns the sectioned queue projection with tracks resolved.
func (s *StateService) VisibleQueue() []QueueRow {
	st := s.Snapshot()
	rows := st.Queue.Rows()
	out := make([]QueueRow, len(rows))
	for i, r := range rows {
		out[i] = QueueRow{Row: r}
		if !r.IsSeparator() {
			out[i].Track = resolve(st.Tracks, r.Item).Track
		}
	}
	return out
}

// Current returns the current queue item and its track.
func (s *StateService) Current() (Entry, bool) {
	st := s.Snapshot()
	item, ok := st.Queue.Current()
	if !ok {
		return Entry{}, false
	}
	return resolve(st.Tracks, item), true
}
