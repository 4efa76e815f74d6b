package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clusterfleet/manager/internal/alarm"
)

// UpdateNodeMetrics ingests one metric snapshot pushed by an agent over
// HTTP. The body is the raw snapshot JSON object; the node id comes from
// the path. PUT /nodes/:nodeID/metrics.
func (c *Controller) UpdateNodeMetrics(ctx echo.Context) error {
	nodeID := ctx.Param("nodeID")
	if nodeID == "" {
		return c.failure(ctx, http.StatusBadRequest, "node id is required")
	}

	var snapshot alarm.MetricSnapshot
	if err := ctx.Bind(&snapshot); err != nil {
		return c.failure(ctx, http.StatusBadRequest, "malformed metric snapshot")
	}
	if len(snapshot) == 0 {
		return c.failure(ctx, http.StatusBadRequest, "metric snapshot must not be empty")
	}

	c.ingestor.HandleSnapshot(ctx.Request().Context(), nodeID, snapshot)
	return c.success(ctx, map[string]any{"node_id": nodeID, "metrics": len(snapshot)})
}
