// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Provider lifecycle errors.
var (
	// ErrProviderNotFound is returned when an id has no registered descriptor.
	// Callers must treat it as fatal for the triggering operation.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderExists is returned when registering a descriptor id twice.
	ErrProviderExists = errors.New("provider already registered")

	// ErrProviderNotActive is returned when an operation needs a live provider handle.
	ErrProviderNotActive = errors.New("provider not active")

	// ErrProviderDisposed is returned to a provider calling back after it was disposed.
	ErrProviderDisposed = errors.New("provider disposed")

	// ErrInvalidDescriptor is returned when a descriptor's kind and factory disagree.
	ErrInvalidDescriptor = errors.New("invalid provider descriptor")

	// ErrProviderPanic is wrapped around a recovered panic from provider code.
	ErrProviderPanic = errors.New("provider panicked")

	// ErrCapabilityUnsupported is returned when a provider lacks an optional capability.
	ErrCapabilityUnsupported = errors.New("provider capability not supported")
)

// Playlist tree errors.
var (
	// ErrParentNotFound is returned when the target parent folder does not exist.
	ErrParentNotFound = errors.New("parent not found")

	// ErrCycleDetected is returned when a move would place a folder inside itself.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrNodeNotFound is returned when a node id does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeExists is returned when creating a node with an id already in use.
	ErrNodeExists = errors.New("node already exists")

	// ErrNotAFolder is returned when a non-folder is used as a parent.
	ErrNotAFolder = errors.New("node is not a folder")

	// ErrNotAPlaylist is returned when item operations target a folder.
	ErrNotAPlaylist = errors.New("node is not a playlist")

	// ErrCorruptTree is returned when a restored tree breaks its structural invariants.
	ErrCorruptTree = errors.New("corrupt playlist tree")
)

// Track, queue and playback errors.
var (
	// ErrTrackNotFound is returned when a requested track cannot be found.
	ErrTrackNotFound = errors.New("track not found")

	// ErrInvalidTrackID is returned for ids missing the provider or URI part.
	ErrInvalidTrackID = errors.New("invalid track id")

	// ErrInvalidTrackHandle is returned when an invalid track handle is used.
	ErrInvalidTrackHandle = errors.New("invalid track handle")

	// ErrQueueEmpty is returned when queue operations are attempted on an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrEndOfQueue is returned when trying to navigate past the end of the queue.
	ErrEndOfQueue = errors.New("end of queue reached")

	// ErrStartOfQueue is returned when trying to navigate before the start of the queue.
	ErrStartOfQueue = errors.New("start of queue reached")

	// ErrInvalidIndex is returned when an index is out of bounds.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrInvalidReorder is returned when a reorder would add, drop or misplace rows.
	ErrInvalidReorder = errors.New("invalid reorder")

	// ErrNothingToUndo is returned when the history has no past state.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned when the history has no future state.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrInvalidVolume is returned when the volume is out of range (0-100).
	ErrInvalidVolume = errors.New("invalid volume: must be between 0 and 100")

	// ErrInvalidPosition is returned when seeking to an invalid position.
	ErrInvalidPosition = errors.New("invalid playback position")

	// ErrNoTrackLoaded is returned when playback is attempted with no track loaded.
	ErrNoTrackLoaded = errors.New("no track loaded")
)

// Infrastructure errors.
var (
	// ErrNotInitialized is returned when an operation is attempted on an uninitialized component.
	ErrNotInitialized = errors.New("component not initialized")

	// ErrAlreadyInitialized is returned when attempting to initialize an already initialized component.
	ErrAlreadyInitialized = errors.New("component already initialized")

	// ErrUnsupportedFormat is returned when an audio file format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileNotFound is returned when a file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidFilePath is returned when a file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrNoArtwork is returned when a track carries no artwork.
	ErrNoArtwork = errors.New("no artwork")
)

// ProviderError wraps a failure in a single provider's lifecycle or callbacks.
type ProviderError struct {
	ProviderID string
	Op         string // Operation that failed (e.g., "create", "dispose", "play")
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.ProviderID, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(providerID, op string, err error) *ProviderError {
	return &ProviderError{ProviderID: providerID, Op: op, Err: err}
}

// NodeError wraps a playlist tree failure with the node it concerns.
type NodeError struct {
	Op     string
	NodeID NodeID
	Err    error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("playlist tree %s %q: %v", e.Op, e.NodeID, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// NewNodeError creates a new NodeError.
func NewNodeError(op string, id NodeID, err error) *NodeError {
	return &NodeError{Op: op, NodeID: id, Err: err}
}

// AudioEngineError represents an error from the audio engine.
// This wraps low-level audio library errors with additional context.
type AudioEngineError struct {
	Op      string // Operation that failed (e.g., "load", "play", "stop")
	Path    string // File path (if applicable)
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AudioEngineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("audio engine %s failed for '%s': %s", e.Op, e.Path, e.Message)
	}
	return fmt.Sprintf("audio engine %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *AudioEngineError) Unwrap() error {
	return e.Err
}

// NewAudioEngineError creates a new AudioEngineError.
func NewAudioEngineError(op, path, message string, err error) *AudioEngineError {
	return &AudioEngineError{
		Op:      op,
		Path:    path,
		Message: message,
		Err:     err,
	}
}

// RepositoryError represents an error from a repository.
// This wraps persistence layer errors with additional context.
type RepositoryError struct {
	Op      string // Operation that failed (e.g., "save", "load", "clear")
	Type    string // Repository type (e.g., "file", "preferences")
	Message string
	Err     error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "PlaybackService", "StateService")
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
