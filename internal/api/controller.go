// Package api serves the Manager's HTTP interface: alarm template
// administration, event queries, node registration and metric ingest.
// Every response wears the envelope
// {"api_version":1,"status":"success"|"error","data":{...}}.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clusterfleet/manager/internal/agentctl"
	"github.com/clusterfleet/manager/internal/alarm"
	"github.com/clusterfleet/manager/internal/datastore/repository"
	"github.com/clusterfleet/manager/internal/ingest"
	"github.com/clusterfleet/manager/internal/logger"
)

// apiVersion is the envelope version stamped on every response.
const apiVersion = 1

// Controller owns the echo server and its route handlers.
type Controller struct {
	echo     *echo.Echo
	engine   *alarm.Engine
	tplRepo    repository.TemplateRepository
	evtRepo    repository.AlarmEventRepository
	nodeRepo   repository.NodeRepository
	sampleRepo repository.SampleRepository
	ingestor   *ingest.Ingestor
	agents     *agentctl.Client
	log        logger.Logger
}

// NewController wires the handlers onto a fresh echo instance.
func NewController(
	engine *alarm.Engine,
	tplRepo repository.TemplateRepository,
	evtRepo repository.AlarmEventRepository,
	nodeRepo repository.NodeRepository,
	sampleRepo repository.SampleRepository,
	ingestor *ingest.Ingestor,
	agents *agentctl.Client,
	log logger.Logger,
) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	c := &Controller{
		echo:       e,
		engine:     engine,
		tplRepo:    tplRepo,
		evtRepo:    evtRepo,
		nodeRepo:   nodeRepo,
		sampleRepo: sampleRepo,
		ingestor:   ingestor,
		agents:     agents,
		log:        log,
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.echo.POST("/alarm/rules", c.SaveAlarmTemplate)
	c.echo.GET("/alarm/rules", c.ListAlarmTemplates)
	c.echo.GET("/alarm/events", c.ListAlarmEvents)

	c.echo.POST("/nodes", c.RegisterNode)
	c.echo.GET("/nodes", c.ListNodes)
	c.echo.PUT("/nodes/:nodeID/metrics", c.UpdateNodeMetrics)
	c.echo.GET("/nodes/:nodeID/samples", c.ListNodeSamples)
	c.echo.POST("/nodes/:nodeID/control", c.ControlNode)

	c.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	c.echo.GET("/healthz", c.Health)
}

// Start serves until Shutdown is called.
func (c *Controller) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	c.log.Info("http api listening", logger.String("addr", addr))
	if err := c.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.echo.Shutdown(ctx)
}

// Echo exposes the underlying server for tests.
func (c *Controller) Echo() *echo.Echo {
	return c.echo
}

// success writes the success envelope around data.
func (c *Controller) success(ctx echo.Context, data map[string]any) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"api_version": apiVersion,
		"status":      "success",
		"data":        data,
	})
}

// failure writes the error envelope with a message.
func (c *Controller) failure(ctx echo.Context, code int, message string) error {
	return ctx.JSON(code, map[string]any{
		"api_version": apiVersion,
		"status":      "error",
		"data":        map[string]any{"message": message},
	})
}

// Health reports liveness.
func (c *Controller) Health(ctx echo.Context) error {
	return c.success(ctx, map[string]any{"healthy": true})
}
