package output

import (
	"context"
	"encoding/json"

	"checkin/internal/domain"
	"checkin/internal/domain/entities"
)

// Source is the capability contract shared by every roster backend.
type Source interface {
	Kind() domain.SourceKind
	// LoadData fetches and normalizes a full snapshot.
	LoadData(ctx context.Context) ([]entities.Attendee, error)
	// UpdateAttendee persists a single status change.
	UpdateAttendee(ctx context.Context, id string, update entities.StatusUpdate) error
	SupportsPolling() bool
	SupportsPush() bool
	// Close releases whatever the source owns (listener, connections).
	Close() error
}

// PushSource is implemented by sources with a real-time change feed.
// The channel is closed when the source is closed.
type PushSource interface {
	Source
	Changes() <-chan PushDelta
}

// Push event types, in the shape emitted by the database change feed.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// PushDelta is one change notification: {eventType, new, old}.
type PushDelta struct {
	EventType string          `json:"eventType"`
	New       json.RawMessage `json:"new"`
	Old       json.RawMessage `json:"old"`
}

// SourceFactory builds the adapter matching cfg.Kind.
type SourceFactory interface {
	Build(ctx context.Context, cfg domain.SourceConfig) (Source, error)
}

// DropReporter is implemented by sources that can tell how many raw rows
// their last LoadData discarded.
type DropReporter interface {
	Dropped() int
}

// FileImporter is implemented by sources that accept an operator-provided
// export when they cannot fetch the data themselves.
type FileImporter interface {
	Import(data []byte)
}
