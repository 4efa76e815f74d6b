package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/clusterfleet/manager/internal/alarm"
	"github.com/clusterfleet/manager/internal/conf"
	"github.com/clusterfleet/manager/internal/logger"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttQoS            = 1
)

// MQTTBridge subscribes to the fleet metrics topic and feeds received
// snapshots into the Ingestor. Topic layout: fleet/<nodeID>/metrics, node
// id taken from the topic, payload is the snapshot JSON.
type MQTTBridge struct {
	settings conf.MQTTSettings
	ingestor *Ingestor
	log      logger.Logger
	client   mqtt.Client
}

// NewMQTTBridge creates an unconnected bridge.
func NewMQTTBridge(settings conf.MQTTSettings, ingestor *Ingestor, log logger.Logger) *MQTTBridge {
	return &MQTTBridge{settings: settings, ingestor: ingestor, log: log}
}

// Start connects to the broker and subscribes. Reconnects are handled by
// the client; the subscription is re-established on connect.
func (b *MQTTBridge) Start() error {
	opts := mqtt.NewClientOptions().
		AddBroker(b.settings.Broker).
		SetClientID(b.settings.ClientID).
		SetUsername(b.settings.Username).
		SetPassword(b.settings.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetOnConnectHandler(func(c mqtt.Client) {
			token := c.Subscribe(b.settings.Topic, mqttQoS, b.handleMessage)
			token.Wait()
			if err := token.Error(); err != nil {
				b.log.Error("mqtt subscribe failed",
					logger.String("topic", b.settings.Topic),
					logger.Error(err))
				return
			}
			b.log.Info("mqtt metric bridge subscribed",
				logger.String("broker", b.settings.Broker),
				logger.String("topic", b.settings.Topic))
		})

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return fmt.Errorf("timeout connecting to mqtt broker %s", b.settings.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker %s: %w", b.settings.Broker, err)
	}
	return nil
}

// Stop disconnects from the broker.
func (b *MQTTBridge) Stop() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
}

func (b *MQTTBridge) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	nodeID, ok := NodeIDFromTopic(msg.Topic())
	if !ok {
		b.log.Warn("ignoring metrics message with unexpected topic",
			logger.String("topic", msg.Topic()))
		return
	}
	var snapshot alarm.MetricSnapshot
	if err := json.Unmarshal(msg.Payload(), &snapshot); err != nil {
		b.log.Warn("ignoring malformed metrics payload",
			logger.String("node_id", nodeID),
			logger.Error(err))
		return
	}
	b.ingestor.HandleSnapshot(context.Background(), nodeID, snapshot)
}

// NodeIDFromTopic extracts the node id from a "fleet/<nodeID>/metrics"
// topic.
func NodeIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[2] != "metrics" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
