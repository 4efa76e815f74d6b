//go:build integration

package containers

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MosquittoContainer wraps a disposable Eclipse Mosquitto broker for the
// MQTT ingest bridge integration tests.
type MosquittoContainer struct {
	container  testcontainers.Container
	brokerURL  string
	configFile string
}

const mosquittoConf = `listener 1883
allow_anonymous true
`

// StartMosquitto creates and starts a Mosquitto broker that accepts
// anonymous connections.
func StartMosquitto(ctx context.Context) (*MosquittoContainer, error) {
	configFile, err := writeMosquittoConf()
	if err != nil {
		return nil, err
	}

	req := testcontainers.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-test.conf"},
		Files: []testcontainers.ContainerFile{{
			HostFilePath:      configFile,
			ContainerFilePath: "/mosquitto-test.conf",
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForLog("mosquitto version").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		_ = os.Remove(configFile)
		return nil, fmt.Errorf("failed to start mosquitto container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		_ = os.Remove(configFile)
		return nil, fmt.Errorf("failed to get mosquitto host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, "1883")
	if err != nil {
		_ = container.Terminate(ctx)
		_ = os.Remove(configFile)
		return nil, fmt.Errorf("failed to get mosquitto port: %w", err)
	}

	return &MosquittoContainer{
		container:  container,
		brokerURL:  "tcp://" + net.JoinHostPort(host, strconv.Itoa(mappedPort.Int())),
		configFile: configFile,
	}, nil
}

func writeMosquittoConf() (string, error) {
	tmp, err := os.CreateTemp("", "mosquitto-*.conf")
	if err != nil {
		return "", fmt.Errorf("failed to create mosquitto config: %w", err)
	}
	if _, err := tmp.WriteString(mosquittoConf); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write mosquitto config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close mosquitto config: %w", err)
	}
	return tmp.Name(), nil
}

// BrokerURL returns the tcp:// address of the broker.
func (c *MosquittoContainer) BrokerURL() string {
	return c.brokerURL
}

// Publish connects a throwaway client and publishes one message.
func (c *MosquittoContainer) Publish(topic string, payload []byte) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.brokerURL).
		SetClientID("test-publisher").
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(false)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timeout connecting test publisher")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect test publisher: %w", err)
	}
	defer client.Disconnect(250)

	pub := client.Publish(topic, 1, false, payload)
	if !pub.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timeout publishing to %s", topic)
	}
	if err := pub.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Terminate removes the container and the temp config file.
func (c *MosquittoContainer) Terminate(ctx context.Context) error {
	var terminateErr error
	if c.container != nil {
		if err := c.container.Terminate(ctx); err != nil {
			terminateErr = fmt.Errorf("failed to terminate mosquitto container: %w", err)
		}
	}
	if c.configFile != "" {
		_ = os.Remove(c.configFile)
	}
	return terminateErr
}
