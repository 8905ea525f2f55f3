package input

import (
	"context"

	"checkin/internal/domain"
	"checkin/internal/domain/entities"
)

// SwitchRequest asks the manager to replace the active source. Confirmed must
// be true: switching discards the whole in-memory roster.
type SwitchRequest struct {
	Config    domain.SourceConfig
	Confirmed bool
}

// RosterQuery filters and sorts the roster for display.
type RosterQuery struct {
	Search string
	Status domain.Status // empty = all
	SortBy string        // name | table | group | status | checkedInAt
	Desc   bool
}

type RosterUseCase interface {
	Initialize(ctx context.Context, cfg domain.SourceConfig) error
	SwitchSource(ctx context.Context, req SwitchRequest) error
	Refresh(ctx context.Context) error
	UpdateCheckIn(ctx context.Context, id string, status domain.Status) (entities.Attendee, error)
	Subscribe(fn func(entities.Roster)) (unsubscribe func())
	CurrentRoster() entities.Roster
	ActiveSourceType() domain.SourceKind
	ImportFile(ctx context.Context, data []byte) error
	Query(q RosterQuery) entities.Roster
	Stats() entities.Stats
	Status() SourceStatus
}

// SourceStatus is the manager's externally visible state.
type SourceStatus struct {
	Kind      domain.SourceKind `json:"type"`
	State     string            `json:"state"`
	ErrorCode string            `json:"errorCode,omitempty"`
	// Retryable is set when the last error may clear on the next refresh.
	Retryable bool `json:"retryable,omitempty"`
	// Dropped counts the rows discarded from the current snapshot.
	Dropped int `json:"droppedRows"`
}
