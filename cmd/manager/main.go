// Command manager runs the fleet telemetry Manager: the HTTP API, the
// alarm engine, node housekeeping and the discovery announcer.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clusterfleet/manager/internal/agentctl"
	"github.com/clusterfleet/manager/internal/alarm"
	"github.com/clusterfleet/manager/internal/announce"
	"github.com/clusterfleet/manager/internal/api"
	"github.com/clusterfleet/manager/internal/conf"
	"github.com/clusterfleet/manager/internal/datastore"
	"github.com/clusterfleet/manager/internal/datastore/repository"
	"github.com/clusterfleet/manager/internal/ingest"
	"github.com/clusterfleet/manager/internal/logger"
	"github.com/clusterfleet/manager/internal/nodewatch"
)

const shutdownTimeout = 10 * time.Second

func main() {
	root := &cobra.Command{
		Use:   "manager",
		Short: "Fleet telemetry manager with a dynamic alarm engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return run(configPath)
		},
	}
	root.Flags().String("config", "manager.yaml", "path to the configuration file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	settings, err := conf.LoadSettings(configPath)
	if err != nil {
		return err
	}

	log := logger.NewSlogLogger(os.Stdout, parseLogLevel(settings.LogLevel), nil)

	db, err := datastore.Open(&settings.Database)
	if err != nil {
		return err
	}

	tplRepo := repository.NewTemplateRepository(db)
	evtRepo := repository.NewAlarmEventRepository(db)
	nodeRepo := repository.NewNodeRepository(db)
	sampleRepo := repository.NewSampleRepository(db)

	engine, err := alarm.Initialize(tplRepo, evtRepo, alarm.Options{
		EvaluateInterval:    settings.Alarm.EvaluateInterval.Std(),
		SynchronizeInterval: settings.Alarm.SynchronizeInterval.Std(),
		LivenessWindow:      settings.Alarm.LivenessWindow.Std(),
		SeedDefaults:        settings.Alarm.SeedDefaults,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize alarm engine: %w", err)
	}
	engine.Start()
	defer engine.Stop()

	monitor := nodewatch.NewMonitor(nodeRepo,
		settings.Node.OfflineAfter.Std(),
		settings.Node.CheckInterval.Std(),
		log)
	monitor.Start()
	defer monitor.Stop()

	ingestor := ingest.NewIngestor(engine.Cache, sampleRepo, nodeRepo, log)

	var bridge *ingest.MQTTBridge
	if settings.MQTT.Enabled {
		bridge = ingest.NewMQTTBridge(settings.MQTT, ingestor, log)
		if err := bridge.Start(); err != nil {
			return fmt.Errorf("failed to start mqtt bridge: %w", err)
		}
		defer bridge.Stop()
	}

	if settings.Announce.Enabled {
		announcer := announce.NewAnnouncer(settings.Announce,
			managerIP(settings), settings.Server.Port, log)
		if err := announcer.Start(); err != nil {
			log.Error("discovery announcer disabled", logger.Error(err))
		} else {
			defer announcer.Stop()
		}
	}

	agents := agentctl.NewClient(log)
	controller := api.NewController(engine, tplRepo, evtRepo, nodeRepo, sampleRepo, ingestor, agents, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- controller.Start(settings.Server.Host, settings.Server.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", logger.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := controller.Shutdown(ctx); err != nil {
		log.Error("http shutdown failed", logger.Error(err))
	}
	return nil
}

// managerIP picks the address advertised in discovery beacons: the
// configured bind host when concrete, otherwise the outbound interface
// address.
func managerIP(settings *conf.Settings) string {
	host := settings.Server.Host
	if host != "" && host != "0.0.0.0" && host != "::" {
		return host
	}
	conn, err := net.Dial("udp4", "8.8.8.8:53")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func parseLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.LogLevelDebug
	case "warn":
		return logger.LogLevelWarn
	case "error":
		return logger.LogLevelError
	default:
		return logger.LogLevelInfo
	}
}
