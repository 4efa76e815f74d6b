// Package nodewatch flips nodes that stopped reporting to offline.
package nodewatch

import (
	"context"
	"sync"
	"time"

	"github.com/clusterfleet/manager/internal/datastore/repository"
	"github.com/clusterfleet/manager/internal/logger"
)

const (
	// DefaultOfflineAfter is how long a node may stay silent before it is
	// marked offline.
	DefaultOfflineAfter = 2 * time.Minute
	// DefaultCheckInterval is how often the sweep runs.
	DefaultCheckInterval = 30 * time.Second

	sweepTimeout = 10 * time.Second
)

// Monitor periodically marks stale nodes offline.
type Monitor struct {
	nodes        repository.NodeRepository
	offlineAfter time.Duration
	interval     time.Duration
	log          logger.Logger

	loopMu sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMonitor creates a stopped Monitor. Non-positive durations fall back
// to the package defaults.
func NewMonitor(nodes repository.NodeRepository, offlineAfter, interval time.Duration, log logger.Logger) *Monitor {
	if offlineAfter <= 0 {
		offlineAfter = DefaultOfflineAfter
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Monitor{
		nodes:        nodes,
		offlineAfter: offlineAfter,
		interval:     interval,
		log:          log,
	}
}

// Start launches the sweep loop. Safe to call on a running monitor.
func (m *Monitor) Start() {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.stopCh != nil {
		return
	}
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run(m.stopCh, m.doneCh)
	m.log.Info("node status monitor started",
		logger.Duration("offline_after", m.offlineAfter),
		logger.Duration("interval", m.interval))
}

// Stop halts the loop, blocking until it has exited. Idempotent.
func (m *Monitor) Stop() {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	<-m.doneCh
	m.stopCh = nil
	m.doneCh = nil
}

func (m *Monitor) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep marks every node silent for longer than offlineAfter as offline.
func (m *Monitor) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	cutoff := time.Now().Add(-m.offlineAfter)
	changed, err := m.nodes.MarkStaleOffline(ctx, cutoff)
	if err != nil {
		m.log.Error("stale node sweep failed", logger.Error(err))
		return
	}
	if changed > 0 {
		m.log.Info("marked stale nodes offline", logger.Int64("nodes", changed))
	}
}
