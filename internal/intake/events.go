package intake

import (
	"github.com/google/uuid"
)

// EventKind identifies a pipeline notification.
type EventKind string

const (
	EventFileAdded          EventKind = "file-added"
	EventFileRemoved        EventKind = "file-removed"
	EventThumbnailGenerated EventKind = "thumbnail-generated"
	EventUploadResult       EventKind = "upload-result"
	EventComplete           EventKind = "complete"
	EventError              EventKind = "error"
)

// Event is one intake pipeline notification. Only the batch
// orchestrator consumes these.
type Event struct {
	Kind      EventKind
	SessionID uuid.UUID
	FileID    uuid.UUID
	// File is populated for file-added events.
	File *File
	// PreviewURL is populated for thumbnail-generated events.
	PreviewURL string
	// Succeeded reports the outcome for upload-result events.
	Succeeded bool
	// Reason carries the failure detail for upload-result and error events.
	Reason string
}

// Sink receives pipeline events. A nil sink drops them.
type Sink func(Event)
