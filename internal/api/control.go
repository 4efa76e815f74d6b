package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clusterfleet/manager/internal/agentctl"
	"github.com/clusterfleet/manager/internal/datastore/repository"
	"github.com/clusterfleet/manager/internal/logger"
)

// ControlNode forwards a component start/stop command to one node's
// agent. POST /nodes/:nodeID/control.
func (c *Controller) ControlNode(ctx echo.Context) error {
	nodeID := ctx.Param("nodeID")

	var cmd agentctl.Command
	if err := ctx.Bind(&cmd); err != nil {
		return c.failure(ctx, http.StatusBadRequest, "malformed control command")
	}
	if cmd.Action == "" {
		return c.failure(ctx, http.StatusBadRequest, "action is required")
	}

	reqCtx := ctx.Request().Context()
	node, err := c.nodeRepo.GetNodeByHostIP(reqCtx, nodeID)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			return c.failure(ctx, http.StatusNotFound, "unknown node")
		}
		c.log.Error("failed to look up node for control command",
			logger.String("node_id", nodeID),
			logger.Error(err))
		return c.failure(ctx, http.StatusInternalServerError, "failed to look up node")
	}

	result, err := c.agents.SendCommand(reqCtx, node, cmd)
	if err != nil {
		c.log.Error("agent control command failed",
			logger.String("node_id", nodeID),
			logger.String("action", cmd.Action),
			logger.Error(err))
		return c.failure(ctx, http.StatusBadGateway, err.Error())
	}
	return c.success(ctx, map[string]any{"result": result})
}
