// Package agentctl proxies control commands from the Manager to node
// agents over their HTTP control endpoint.
package agentctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/clusterfleet/manager/internal/datastore/entities"
	"github.com/clusterfleet/manager/internal/logger"
)

const (
	controlPath    = "/api/node/control"
	requestTimeout = 5 * time.Second

	// Health probe results are cached briefly so bursts of status
	// queries do not hammer the agents.
	healthCacheTTL     = 10 * time.Second
	healthCacheCleanup = time.Minute
)

// Command is a control instruction forwarded to one agent. The request id
// correlates the command with agent-side logs.
type Command struct {
	RequestID string         `json:"request_id"`
	Action    string         `json:"action"`
	Params    map[string]any `json:"params,omitempty"`
}

// CommandResult is the agent's reply.
type CommandResult struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// Client sends control commands and health probes to agents.
type Client struct {
	httpClient *http.Client
	health     *cache.Cache
	log        logger.Logger
}

// NewClient creates an agent control client.
func NewClient(log logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		health:     cache.New(healthCacheTTL, healthCacheCleanup),
		log:        log,
	}
}

// SendCommand posts an action to one node's control endpoint. A fresh
// request id is assigned when the command carries none.
func (c *Client) SendCommand(ctx context.Context, node *entities.Node, cmd Command) (*CommandResult, error) {
	if node.ServicePort <= 0 {
		return nil, fmt.Errorf("node %s has no service port registered", node.HostIP)
	}
	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode control command: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d%s", node.HostIP, node.ServicePort, controlPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build control request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Info("sending agent control command",
		logger.String("host_ip", node.HostIP),
		logger.String("action", cmd.Action),
		logger.String("request_id", cmd.RequestID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("control request to %s failed: %w", node.HostIP, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("agent %s rejected command: status %d: %s",
			node.HostIP, resp.StatusCode, bytes.TrimSpace(data))
	}

	var result CommandResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("malformed control reply from %s: %w", node.HostIP, err)
	}
	return &result, nil
}

// Healthy probes an agent's health endpoint. Results are cached for
// healthCacheTTL.
func (c *Client) Healthy(ctx context.Context, node *entities.Node) bool {
	key := fmt.Sprintf("%s:%d", node.HostIP, node.ServicePort)
	if cached, found := c.health.Get(key); found {
		return cached.(bool)
	}

	healthy := c.probe(ctx, node)
	c.health.Set(key, healthy, cache.DefaultExpiration)
	return healthy
}

func (c *Client) probe(ctx context.Context, node *entities.Node) bool {
	if node.ServicePort <= 0 {
		return false
	}
	url := fmt.Sprintf("http://%s:%d/healthz", node.HostIP, node.ServicePort)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
