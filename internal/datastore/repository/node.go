package repository

import (
	"context"
	"time"

	"github.com/clusterfleet/manager/internal/datastore/entities"
)

// NodeRepository maintains the authoritative node identity records.
// Registration is an upsert keyed by the (box, slot, cpu) triple.
type NodeRepository interface {
	UpsertNode(ctx context.Context, node *entities.Node) error
	GetNodeByHostIP(ctx context.Context, hostIP string) (*entities.Node, error)
	ListNodes(ctx context.Context) ([]entities.Node, error)
	// TouchNode refreshes updated_at and flips the node online. Used on
	// every metric ingest.
	TouchNode(ctx context.Context, hostIP string) error
	// MarkStaleOffline flips nodes not updated since the cutoff to
	// offline, returning how many changed.
	MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error)
}
