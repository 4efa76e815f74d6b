// Package announce broadcasts the Manager's coordinates over UDP
// multicast so agents can discover it without static configuration.
package announce

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/clusterfleet/manager/internal/conf"
	"github.com/clusterfleet/manager/internal/logger"
)

const (
	// heartbeatURL is advertised on every beacon; agents POST liveness
	// there. resourceURL is advertised every resourceCycle-th beacon and
	// asks agents for a full inventory refresh.
	heartbeatURL  = "/heartbeat"
	resourceURL   = "/resource"
	resourceCycle = 3

	beaconAPIVersion = 1
)

// beacon is the wire shape of one announcement datagram.
type beacon struct {
	APIVersion int        `json:"api_version"`
	Data       beaconData `json:"data"`
}

type beaconData struct {
	ManagerIP   string `json:"manager_ip"`
	ManagerPort int    `json:"manager_port"`
	URL         string `json:"url"`
}

// Announcer periodically sends discovery beacons to a multicast group.
type Announcer struct {
	settings    conf.AnnounceSettings
	managerIP   string
	managerPort int
	log         logger.Logger

	loopMu sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewAnnouncer creates a stopped Announcer advertising the given manager
// endpoint.
func NewAnnouncer(settings conf.AnnounceSettings, managerIP string, managerPort int, log logger.Logger) *Announcer {
	return &Announcer{
		settings:    settings,
		managerIP:   managerIP,
		managerPort: managerPort,
		log:         log,
	}
}

// Start launches the beacon loop. Returns an error when the multicast
// socket cannot be opened.
func (a *Announcer) Start() error {
	a.loopMu.Lock()
	defer a.loopMu.Unlock()
	if a.stopCh != nil {
		return nil
	}

	conn, err := a.dial()
	if err != nil {
		return err
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.run(conn, a.stopCh, a.doneCh)

	a.log.Info("discovery announcer started",
		logger.String("group", a.settings.Address),
		logger.Int("port", a.settings.Port),
		logger.Duration("interval", a.settings.Interval.Std()))
	return nil
}

// Stop halts the loop and closes the socket. Blocks until the loop has
// exited. Idempotent.
func (a *Announcer) Stop() {
	a.loopMu.Lock()
	defer a.loopMu.Unlock()
	if a.stopCh == nil {
		return
	}
	close(a.stopCh)
	<-a.doneCh
	a.stopCh = nil
	a.doneCh = nil
}

func (a *Announcer) dial() (*net.UDPConn, error) {
	group := net.JoinHostPort(a.settings.Address, fmt.Sprintf("%d", a.settings.Port))
	addr, err := net.ResolveUDPAddr("udp4", group)
	if err != nil {
		return nil, fmt.Errorf("invalid multicast group %s: %w", group, err)
	}

	var local *net.UDPAddr
	if a.settings.Interface != "" {
		local = &net.UDPAddr{IP: net.ParseIP(a.settings.Interface)}
	}
	conn, err := net.DialUDP("udp4", local, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open multicast socket to %s: %w", group, err)
	}
	return conn, nil
}

func (a *Announcer) run(conn *net.UDPConn, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer conn.Close()

	ticker := time.NewTicker(a.settings.Interval.Std())
	defer ticker.Stop()

	cycle := 0
	a.send(conn, cycle)
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			cycle++
			a.send(conn, cycle)
		}
	}
}

// send emits the heartbeat beacon, plus the resource beacon on every
// resourceCycle-th cycle.
func (a *Announcer) send(conn *net.UDPConn, cycle int) {
	a.sendBeacon(conn, heartbeatURL)
	if cycle%resourceCycle == resourceCycle-1 {
		a.sendBeacon(conn, resourceURL)
	}
}

func (a *Announcer) sendBeacon(conn *net.UDPConn, url string) {
	payload, err := json.Marshal(beacon{
		APIVersion: beaconAPIVersion,
		Data: beaconData{
			ManagerIP:   a.managerIP,
			ManagerPort: a.managerPort,
			URL:         url,
		},
	})
	if err != nil {
		a.log.Error("failed to encode discovery beacon", logger.Error(err))
		return
	}
	if _, err := conn.Write(payload); err != nil {
		a.log.Warn("failed to send discovery beacon", logger.Error(err))
	}
}
