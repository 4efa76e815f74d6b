package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clusterfleet/manager/internal/datastore/entities"
	"github.com/clusterfleet/manager/internal/logger"
)

// RegisterNode upserts a node identity record, keyed by its
// (box, slot, cpu) triple. Agents call this on startup and whenever
// their hardware inventory changes. POST /nodes.
func (c *Controller) RegisterNode(ctx echo.Context) error {
	var node entities.Node
	if err := ctx.Bind(&node); err != nil {
		return c.failure(ctx, http.StatusBadRequest, "malformed node payload")
	}
	if node.HostIP == "" {
		return c.failure(ctx, http.StatusBadRequest, "host_ip is required")
	}
	node.Status = entities.NodeStatusOnline

	if err := c.nodeRepo.UpsertNode(ctx.Request().Context(), &node); err != nil {
		c.log.Error("failed to register node",
			logger.String("host_ip", node.HostIP),
			logger.Error(err))
		return c.failure(ctx, http.StatusInternalServerError, "failed to register node")
	}

	c.log.Info("node registered",
		logger.String("host_ip", node.HostIP),
		logger.Int("box_id", node.BoxID),
		logger.Int("slot_id", node.SlotID),
		logger.Int("cpu_id", node.CPUID))
	return c.success(ctx, map[string]any{"node": node})
}

// ListNodes returns every known node. GET /nodes.
func (c *Controller) ListNodes(ctx echo.Context) error {
	nodes, err := c.nodeRepo.ListNodes(ctx.Request().Context())
	if err != nil {
		c.log.Error("failed to list nodes", logger.Error(err))
		return c.failure(ctx, http.StatusInternalServerError, "failed to list nodes")
	}
	if nodes == nil {
		nodes = []entities.Node{}
	}
	return c.success(ctx, map[string]any{"nodes": nodes})
}

// ListNodeSamples returns recent persisted samples of one metric on one
// node. GET /nodes/:nodeID/samples?name=cpu.usage&limit=N.
func (c *Controller) ListNodeSamples(ctx echo.Context) error {
	nodeID := ctx.Param("nodeID")
	name := ctx.QueryParam("name")
	if name == "" {
		return c.failure(ctx, http.StatusBadRequest, "name query parameter is required")
	}

	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.failure(ctx, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	samples, err := c.sampleRepo.Recent(ctx.Request().Context(), nodeID, name, limit)
	if err != nil {
		c.log.Error("failed to list metric samples",
			logger.String("node_id", nodeID),
			logger.String("name", name),
			logger.Error(err))
		return c.failure(ctx, http.StatusInternalServerError, "failed to list metric samples")
	}
	if samples == nil {
		samples = []entities.MetricSample{}
	}
	return c.success(ctx, map[string]any{"samples": samples})
}
