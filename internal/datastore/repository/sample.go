package repository

import (
	"context"
	"time"

	"github.com/clusterfleet/manager/internal/datastore/entities"
)

// SampleRepository is the seam to the time-series backend. The bundled
// implementation flattens snapshots into the metric_samples table; a
// columnar store can replace it behind this interface.
type SampleRepository interface {
	// InsertSamples appends a batch extracted from one snapshot.
	InsertSamples(ctx context.Context, samples []entities.MetricSample) error
	// Recent returns up to limit samples of one metric on one node,
	// newest first.
	Recent(ctx context.Context, nodeID, name string, limit int) ([]entities.MetricSample, error)
	// DeleteBefore drops samples older than the cutoff, returning how
	// many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
