// Package ingest feeds agent metric snapshots into the metric cache and the
// sample store, from both the HTTP API and the optional MQTT bridge.
package ingest

import (
	"context"
	"errors"

	"github.com/clusterfleet/manager/internal/alarm"
	"github.com/clusterfleet/manager/internal/datastore/repository"
	"github.com/clusterfleet/manager/internal/logger"
)

// Ingestor routes one snapshot to the cache, the sample store and the node
// liveness record. Cache update is the critical path; persistence failures
// are logged and swallowed.
type Ingestor struct {
	cache   *alarm.MetricCache
	samples repository.SampleRepository
	nodes   repository.NodeRepository
	log     logger.Logger
}

// NewIngestor creates an Ingestor. samples and nodes may be nil when the
// corresponding persistence is disabled (tests, stripped-down deployments).
func NewIngestor(cache *alarm.MetricCache, samples repository.SampleRepository, nodes repository.NodeRepository, log logger.Logger) *Ingestor {
	return &Ingestor{cache: cache, samples: samples, nodes: nodes, log: log}
}

// HandleSnapshot ingests one snapshot for a node. The snapshot shape is
// open; only numeric leaves become samples.
func (i *Ingestor) HandleSnapshot(ctx context.Context, nodeID string, snapshot alarm.MetricSnapshot) {
	i.cache.UpdateNodeMetrics(nodeID, snapshot)

	if i.samples != nil {
		batch := FlattenSnapshot(nodeID, snapshot)
		if err := i.samples.InsertSamples(ctx, batch); err != nil {
			i.log.Error("failed to persist metric samples",
				logger.String("node_id", nodeID),
				logger.Int("samples", len(batch)),
				logger.Error(err))
		}
	}

	if i.nodes != nil {
		if err := i.nodes.TouchNode(ctx, nodeID); err != nil && !errors.Is(err, repository.ErrNodeNotFound) {
			i.log.Error("failed to refresh node liveness",
				logger.String("node_id", nodeID),
				logger.Error(err))
		}
	}
}
