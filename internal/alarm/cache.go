package alarm

import (
	"sync"
	"time"

	"github.com/clusterfleet/manager/internal/telemetry"
)

// MetricSnapshot is a decoded JSON value tree pushed by an agent: objects,
// arrays of objects, numeric leaves. The cache stores it as-is and does not
// validate the shape.
type MetricSnapshot = map[string]any

type nodeData struct {
	snapshot    MetricSnapshot
	lastUpdated time.Time
}

// MetricCache is the thread-safe last-value store for all nodes. Reads
// resolve hierarchical metric paths; missing nodes, unresolvable paths and
// non-numeric leaves all read as 0.0, never an error.
type MetricCache struct {
	mu    sync.Mutex
	nodes map[string]nodeData
	// now is swappable for liveness tests.
	now func() time.Time
}

// NewMetricCache creates an empty cache.
func NewMetricCache() *MetricCache {
	return &MetricCache{
		nodes: make(map[string]nodeData),
		now:   time.Now,
	}
}

// UpdateNodeMetrics replaces the node's snapshot and refreshes its liveness
// timestamp.
func (c *MetricCache) UpdateNodeMetrics(nodeID string, snapshot MetricSnapshot) {
	c.mu.Lock()
	c.nodes[nodeID] = nodeData{snapshot: snapshot, lastUpdated: c.now()}
	c.mu.Unlock()
	telemetry.MetricUpdates.Inc()
}

// GetMetric resolves metricName inside the node's latest snapshot.
// Returns 0.0 when the node is unknown or the path does not resolve to a
// numeric leaf.
func (c *MetricCache) GetMetric(nodeID, metricName string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := c.nodes[nodeID]
	if !ok {
		return 0
	}
	v, _ := resolvePath(node.snapshot, metricName)
	return v
}

// ActiveNodeIDs returns the ids of nodes updated within the window.
func (c *MetricCache) ActiveNodeIDs(window time.Duration) map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	active := make(map[string]struct{})
	for id, node := range c.nodes {
		if now.Sub(node.lastUpdated) < window {
			active[id] = struct{}{}
		}
	}
	return active
}

// LastUpdated returns the node's liveness timestamp, or false if the node
// has never reported.
func (c *MetricCache) LastUpdated(nodeID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := c.nodes[nodeID]
	return node.lastUpdated, ok
}
