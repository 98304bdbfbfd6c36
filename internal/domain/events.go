// Package domain defines events for the event-driven architecture.
// Events decouple the core from its consumers (UI, persistence, media integrations).
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// State events
	EventStateChanged       EventType = "state.changed"
	EventHistoryChanged     EventType = "history.changed"
	EventTracksChanged      EventType = "tracks.changed"
	EventPlaylistsDeleted   EventType = "playlist.deleted"
	EventQueueSourceRemoved EventType = "queue.source_removed"

	// Provider events
	EventProviderActivated     EventType = "provider.activated"
	EventProviderDeactivated   EventType = "provider.deactivated"
	EventProviderFailed        EventType = "provider.failed"
	EventProviderConfigChanged EventType = "provider.config_changed"

	// Playback events
	EventTrackStarted    EventType = "track.started"
	EventTrackPaused     EventType = "track.paused"
	EventTrackResumed    EventType = "track.resumed"
	EventTrackStopped    EventType = "track.stopped"
	EventTrackEnded      EventType = "track.ended"
	EventTrackSeeked     EventType = "track.seeked"
	EventTrackError      EventType = "track.error"
	EventPlaybackChanged EventType = "playback.changed"

	// Volume events
	EventVolumeChanged EventType = "volume.changed"
	EventMuteToggled   EventType = "mute.toggled"

	// Library scanning events
	EventScanStarted   EventType = "scan.started"
	EventScanProgress  EventType = "scan.progress"
	EventScanCompleted EventType = "scan.completed"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// ChangeSet flags which slices of the state a transition touched.
type ChangeSet uint8

const (
	ChangedTracks ChangeSet = 1 << iota
	ChangedPlaylists
	ChangedQueue
	ChangedView
)

// Has reports whether every flag in c is set.
func (s ChangeSet) Has(c ChangeSet) bool {
	return s&c == c
}

// StateChangedEvent is published after every committed state transition.
type StateChangedEvent struct {
	baseEvent
	Action   string
	Revision uint64
	Changed  ChangeSet
}

// Type returns the event type.
func (e StateChangedEvent) Type() EventType {
	return EventStateChanged
}

// NewStateChangedEvent creates a new StateChangedEvent.
func NewStateChangedEvent(action string, revision uint64, changed ChangeSet) StateChangedEvent {
	return StateChangedEvent{
		baseEvent: newBaseEvent(),
		Action:    action,
		Revision:  revision,
		Changed:   changed,
	}
}

// HistoryChangedEvent is published when undo/redo availability may have changed.
type HistoryChangedEvent struct {
	baseEvent
	CanUndo bool
	CanRedo bool
}

// Type returns the event type.
func (e HistoryChangedEvent) Type() EventType {
	return EventHistoryChanged
}

// NewHistoryChangedEvent creates a new HistoryChangedEvent.
func NewHistoryChangedEvent(canUndo, canRedo bool) HistoryChangedEvent {
	return HistoryChangedEvent{baseEvent: newBaseEvent(), CanUndo: canUndo, CanRedo: canRedo}
}

// TracksChangedEvent is published when tracks of one or more providers changed.
// Origin is the provider whose own callback caused the change, or empty for user
// actions, undo/redo and restores.
type TracksChangedEvent struct {
	baseEvent
	Providers []string
	Origin    string
}

// Type returns the event type.
func (e TracksChangedEvent) Type() EventType {
	return EventTracksChanged
}

// NewTracksChangedEvent creates a new TracksChangedEvent.
func NewTracksChangedEvent(providers []string, origin string) TracksChangedEvent {
	return TracksChangedEvent{baseEvent: newBaseEvent(), Providers: providers, Origin: origin}
}

// PlaylistsDeletedEvent is published with every node removed by a delete (cascade included).
type PlaylistsDeletedEvent struct {
	baseEvent
	Removed []PlaylistNode
}

// Type returns the event type.
func (e PlaylistsDeletedEvent) Type() EventType {
	return EventPlaylistsDeleted
}

// NewPlaylistsDeletedEvent creates a new PlaylistsDeletedEvent.
func NewPlaylistsDeletedEvent(removed []PlaylistNode) PlaylistsDeletedEvent {
	return PlaylistsDeletedEvent{baseEvent: newBaseEvent(), Removed: removed}
}

// QueueSourceRemovedEvent is published when the playlist the queue was built from is deleted.
type QueueSourceRemovedEvent struct {
	baseEvent
	Source NodeID
}

// Type returns the event type.
func (e QueueSourceRemovedEvent) Type() EventType {
	return EventQueueSourceRemoved
}

// NewQueueSourceRemovedEvent creates a new QueueSourceRemovedEvent.
func NewQueueSourceRemovedEvent(source NodeID) QueueSourceRemovedEvent {
	return QueueSourceRemovedEvent{baseEvent: newBaseEvent(), Source: source}
}

// ProviderActivatedEvent is published when a provider handle was created.
type ProviderActivatedEvent struct {
	baseEvent
	ProviderID string
}

// Type returns the event type.
func (e ProviderActivatedEvent) Type() EventType {
	return EventProviderActivated
}

// NewProviderActivatedEvent creates a new ProviderActivatedEvent.
func NewProviderActivatedEvent(id string) ProviderActivatedEvent {
	return ProviderActivatedEvent{baseEvent: newBaseEvent(), ProviderID: id}
}

// ProviderDeactivatedEvent is published after a provider handle was disposed.
type ProviderDeactivatedEvent struct {
	baseEvent
	ProviderID string
}

// Type returns the event type.
func (e ProviderDeactivatedEvent) Type() EventType {
	return EventProviderDeactivated
}

// NewProviderDeactivatedEvent creates a new ProviderDeactivatedEvent.
func NewProviderDeactivatedEvent(id string) ProviderDeactivatedEvent {
	return ProviderDeactivatedEvent{baseEvent: newBaseEvent(), ProviderID: id}
}

// ProviderFailedEvent is published when creating or disposing a provider failed.
type ProviderFailedEvent struct {
	baseEvent
	ProviderID string
	Err        error
}

// Type returns the event type.
func (e ProviderFailedEvent) Type() EventType {
	return EventProviderFailed
}

// NewProviderFailedEvent creates a new ProviderFailedEvent.
func NewProviderFailedEvent(id string, err error) ProviderFailedEvent {
	return ProviderFailedEvent{baseEvent: newBaseEvent(), ProviderID: id, Err: err}
}

// ProviderConfigChangedEvent is published when a provider's data or enabled flag changed.
type ProviderConfigChangedEvent struct {
	baseEvent
	ProviderID string
	Data       ProviderData
	Enabled    bool
}

// Type returns the event type.
func (e ProviderConfigChangedEvent) Type() EventType {
	return EventProviderConfigChanged
}

// NewProviderConfigChangedEvent creates a new ProviderConfigChangedEvent.
func NewProviderConfigChangedEvent(id string, data ProviderData, enabled bool) ProviderConfigChangedEvent {
	return ProviderConfigChangedEvent{baseEvent: newBaseEvent(), ProviderID: id, Data: data, Enabled: enabled}
}

// TrackStartedEvent is published when playback of a queue item starts.
type TrackStartedEvent struct {
	baseEvent
	Item  PlaylistItem
	Track Track
}

// Type returns the event type.
func (e TrackStartedEvent) Type() EventType {
	return EventTrackStarted
}

// NewTrackStartedEvent creates a new TrackStartedEvent.
func NewTrackStartedEvent(item PlaylistItem, track Track) TrackStartedEvent {
	return TrackStartedEvent{baseEvent: newBaseEvent(), Item: item, Track: track}
}

// TrackPausedEvent is published when playback is paused.
type TrackPausedEvent struct {
	baseEvent
	Item PlaylistItem
}

// Type returns the event type.
func (e TrackPausedEvent) Type() EventType {
	return EventTrackPaused
}

// NewTrackPausedEvent creates a new TrackPausedEvent.
func NewTrackPausedEvent(item PlaylistItem) TrackPausedEvent {
	return TrackPausedEvent{baseEvent: newBaseEvent(), Item: item}
}

// TrackResumedEvent is published when paused playback resumes.
type TrackResumedEvent struct {
	baseEvent
	Item PlaylistItem
}

// Type returns the event type.
func (e TrackResumedEvent) Type() EventType {
	return EventTrackResumed
}

// NewTrackResumedEvent creates a new TrackResumedEvent.
func NewTrackResumedEvent(item PlaylistItem) TrackResumedEvent {
	return TrackResumedEvent{baseEvent: newBaseEvent(), Item: item}
}

// TrackStoppedEvent is published when playback is stopped.
type TrackStoppedEvent struct {
	baseEvent
	Item PlaylistItem
}

// Type returns the event type.
func (e TrackStoppedEvent) Type() EventType {
	return EventTrackStopped
}

// NewTrackStoppedEvent creates a new TrackStoppedEvent.
func NewTrackStoppedEvent(item PlaylistItem) TrackStoppedEvent {
	return TrackStoppedEvent{baseEvent: newBaseEvent(), Item: item}
}

// TrackEndedEvent is published when a source provider reports the end of its track.
type TrackEndedEvent struct {
	baseEvent
	ProviderID string
}

// Type returns the event type.
func (e TrackEndedEvent) Type() EventType {
	return EventTrackEnded
}

// NewTrackEndedEvent creates a new TrackEndedEvent.
func NewTrackEndedEvent(providerID string) TrackEndedEvent {
	return TrackEndedEvent{baseEvent: newBaseEvent(), ProviderID: providerID}
}

// TrackSeekedEvent is published after a seek.
type TrackSeekedEvent struct {
	baseEvent
	Item PlaylistItem

	// PositionMs is the new position in milliseconds.
	PositionMs int64
}

// Type returns the event type.
func (e TrackSeekedEvent) Type() EventType {
	return EventTrackSeeked
}

// NewTrackSeekedEvent creates a new TrackSeekedEvent.
func NewTrackSeekedEvent(item PlaylistItem, positionMs int64) TrackSeekedEvent {
	return TrackSeekedEvent{baseEvent: newBaseEvent(), Item: item, PositionMs: positionMs}
}

// TrackErrorEvent is published when a provider fails to play an item.
type TrackErrorEvent struct {
	baseEvent
	Item  PlaylistItem
	Error error
}

// Type returns the event type.
func (e TrackErrorEvent) Type() EventType {
	return EventTrackError
}

// NewTrackErrorEvent creates a new TrackErrorEvent.
func NewTrackErrorEvent(item PlaylistItem, err error) TrackErrorEvent {
	return TrackErrorEvent{baseEvent: newBaseEvent(), Item: item, Error: err}
}

// PlaybackChangedEvent carries the full playback state after any playback change.
type PlaybackChangedEvent struct {
	baseEvent
	State PlaybackState
}

// Type returns the event type.
func (e PlaybackChangedEvent) Type() EventType {
	return EventPlaybackChanged
}

// NewPlaybackChangedEvent creates a new PlaybackChangedEvent.
func NewPlaybackChangedEvent(state PlaybackState) PlaybackChangedEvent {
	return PlaybackChangedEvent{baseEvent: newBaseEvent(), State: state}
}

// VolumeChangedEvent is published when the volume changes.
type VolumeChangedEvent struct {
	baseEvent
	Volume float64
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType {
	return EventVolumeChanged
}

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{baseEvent: newBaseEvent(), Volume: volume}
}

// MuteToggledEvent is published when mute state changes.
type MuteToggledEvent struct {
	baseEvent
	Muted bool
}

// Type returns the event type.
func (e MuteToggledEvent) Type() EventType {
	return EventMuteToggled
}

// NewMuteToggledEvent creates a new MuteToggledEvent.
func NewMuteToggledEvent(muted bool) MuteToggledEvent {
	return MuteToggledEvent{baseEvent: newBaseEvent(), Muted: muted}
}

// ScanStartedEvent is published when a provider starts scanning its library.
type ScanStartedEvent struct {
	baseEvent
	ProviderID string
	Paths      []string
}

// Type returns the event type.
func (e ScanStartedEvent) Type() EventType {
	return EventScanStarted
}

// NewScanStartedEvent creates a new ScanStartedEvent.
func NewScanStartedEvent(providerID string, paths []string) ScanStartedEvent {
	return ScanStartedEvent{baseEvent: newBaseEvent(), ProviderID: providerID, Paths: paths}
}

// ScanProgressEvent is published periodically during a scan.
type ScanProgressEvent struct {
	baseEvent
	Progress ScanProgress
}

// Type returns the event type.
func (e ScanProgressEvent) Type() EventType {
	return EventScanProgress
}

// NewScanProgressEvent creates a new ScanProgressEvent.
func NewScanProgressEvent(progress ScanProgress) ScanProgressEvent {
	return ScanProgressEvent{baseEvent: newBaseEvent(), Progress: progress}
}

// ScanCompletedEvent is published when a scan finishes or is cancelled.
type ScanCompletedEvent struct {
	baseEvent
	ProviderID  string
	TracksFound int
	Duration    time.Duration
	Err         error
}

// Type returns the event type.
func (e ScanCompletedEvent) Type() EventType {
	return EventScanCompleted
}

// NewScanCompletedEvent creates a new ScanCompletedEvent.
func NewScanCompletedEvent(providerID string, tracksFound int, duration time.Duration, err error) ScanCompletedEvent {
	return ScanCompletedEvent{
		baseEvent:   newBaseEvent(),
		ProviderID:  providerID,
		TracksFound: tracksFound,
		Duration:    duration,
		Err:         err,
	}
}
