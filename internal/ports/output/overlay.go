package output

import (
	"context"

	"checkin/internal/domain/entities"
)

// CheckinOverlay is the small server-held id → status map that file and sheet
// sources use for check-in state, since neither backend supports row writes.
type CheckinOverlay interface {
	Fetch(ctx context.Context) (map[string]entities.StatusUpdate, error)
	Put(ctx context.Context, id string, update entities.StatusUpdate) error
}
