package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clusterfleet/manager/internal/alarm"
	"github.com/clusterfleet/manager/internal/datastore/entities"
	"github.com/clusterfleet/manager/internal/logger"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// SaveAlarmTemplate upserts one alarm template and pushes the refreshed
// set into the running engine. POST /alarm/rules.
func (c *Controller) SaveAlarmTemplate(ctx echo.Context) error {
	var tpl alarm.Template
	if err := ctx.Bind(&tpl); err != nil {
		return c.failure(ctx, http.StatusBadRequest, "malformed alarm template payload")
	}
	if err := tpl.Validate(); err != nil {
		return c.failure(ctx, http.StatusBadRequest, err.Error())
	}

	reqCtx := ctx.Request().Context()
	if err := c.tplRepo.SaveTemplate(reqCtx, &tpl); err != nil {
		c.log.Error("failed to save alarm template",
			logger.String("template_id", tpl.TemplateID),
			logger.Error(err))
		return c.failure(ctx, http.StatusInternalServerError, "failed to save alarm template")
	}
	if err := c.engine.ReloadTemplates(reqCtx); err != nil {
		c.log.Error("failed to reload alarm templates", logger.Error(err))
	}

	c.log.Info("alarm template saved",
		logger.String("template_id", tpl.TemplateID),
		logger.String("metric", tpl.MetricName))
	return c.success(ctx, map[string]any{"template_id": tpl.TemplateID})
}

// ListAlarmTemplates returns every stored template. GET /alarm/rules.
func (c *Controller) ListAlarmTemplates(ctx echo.Context) error {
	templates, err := c.tplRepo.LoadAllTemplates(ctx.Request().Context())
	if err != nil {
		// Broken templates are skipped on load; serve the good set.
		c.log.Warn("some alarm templates failed to load", logger.Error(err))
	}
	if templates == nil {
		templates = []alarm.Template{}
	}
	return c.success(ctx, map[string]any{"alarm_rules": templates})
}

// ListAlarmEvents returns recent alarm events, newest first. An optional
// node_id query narrows to one node. GET /alarm/events?limit=N.
func (c *Controller) ListAlarmEvents(ctx echo.Context) error {
	limit := defaultEventLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.failure(ctx, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	reqCtx := ctx.Request().Context()

	var events []entities.AlarmEvent
	var err error
	if nodeID := ctx.QueryParam("node_id"); nodeID != "" {
		events, err = c.evtRepo.RecentEventsForNode(reqCtx, nodeID, limit)
	} else {
		events, err = c.evtRepo.RecentEvents(reqCtx, limit)
	}
	if err != nil {
		c.log.Error("failed to list alarm events", logger.Error(err))
		return c.failure(ctx, http.StatusInternalServerError, "failed to list alarm events")
	}
	if events == nil {
		events = []entities.AlarmEvent{}
	}
	return c.success(ctx, map[string]any{"alarm_events": events})
}
