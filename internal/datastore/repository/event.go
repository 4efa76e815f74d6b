package repository

import (
	"context"

	"github.com/clusterfleet/manager/internal/datastore/entities"
)

// AlarmEventRepository persists alarm state transitions. Rows are
// append-only; there is no update or delete path.
type AlarmEventRepository interface {
	InsertEvent(ctx context.Context, event *entities.AlarmEvent) error
	// RecentEvents returns up to limit events, newest first.
	RecentEvents(ctx context.Context, limit int) ([]entities.AlarmEvent, error)
	// RecentEventsForNode narrows RecentEvents to one node.
	RecentEventsForNode(ctx context.Context, nodeID string, limit int) ([]entities.AlarmEvent, error)
}
