package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manager.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", s.Server.Host)
	assert.Equal(t, 8080, s.Server.Port)
	assert.Equal(t, "sqlite", s.Database.Dialect)
	assert.Equal(t, time.Second, s.Alarm.EvaluateInterval.Std())
	assert.Equal(t, 20*time.Second, s.Alarm.SynchronizeInterval.Std())
	assert.Equal(t, 5*time.Minute, s.Alarm.LivenessWindow.Std())
	assert.True(t, s.Alarm.SeedDefaults)
	assert.True(t, s.Announce.Enabled)
	assert.Equal(t, "239.255.0.1", s.Announce.Address)
	assert.Equal(t, 50000, s.Announce.Port)
	assert.Equal(t, 5*time.Second, s.Announce.Interval.Std())
	assert.False(t, s.MQTT.Enabled)
	assert.Equal(t, "fleet/+/metrics", s.MQTT.Topic)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, s.Server.Port)
}

func TestLoadSettings_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9999
database:
  dialect: mysql
  dsn: fleet:fleet@tcp(127.0.0.1:3306)/fleet?parseTime=true
alarm:
  evaluate_interval: 2s
  seed_defaults: false
mqtt:
  enabled: true
  broker: tcp://127.0.0.1:1883
log_level: debug
`)

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", s.Server.Host)
	assert.Equal(t, 9999, s.Server.Port)
	assert.Equal(t, "mysql", s.Database.Dialect)
	assert.Equal(t, 2*time.Second, s.Alarm.EvaluateInterval.Std())
	assert.False(t, s.Alarm.SeedDefaults)
	assert.True(t, s.MQTT.Enabled)
	assert.Equal(t, "tcp://127.0.0.1:1883", s.MQTT.Broker)
	assert.Equal(t, "debug", s.LogLevel)
	// Unspecified keys keep their defaults.
	assert.Equal(t, "239.255.0.1", s.Announce.Address)
}

func TestLoadSettings_MalformedFile(t *testing.T) {
	path := writeConfig(t, "server: [not: a: mapping")
	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Settings {
		return &Settings{
			Server:   ServerSettings{Port: 8080},
			Database: DatabaseSettings{Dialect: "sqlite"},
		}
	}

	t.Run("bad port", func(t *testing.T) {
		s := base()
		s.Server.Port = 0
		assert.Error(t, s.Validate())

		s.Server.Port = 70000
		assert.Error(t, s.Validate())
	})

	t.Run("bad dialect", func(t *testing.T) {
		s := base()
		s.Database.Dialect = "postgres"
		assert.Error(t, s.Validate())
	})

	t.Run("interval clamps", func(t *testing.T) {
		s := base()
		s.Alarm.EvaluateInterval = Duration(10 * time.Millisecond)
		require.NoError(t, s.Validate())
		assert.Equal(t, time.Second, s.Alarm.EvaluateInterval.Std())
		assert.Equal(t, 20*time.Second, s.Alarm.SynchronizeInterval.Std())
		assert.Equal(t, 5*time.Minute, s.Alarm.LivenessWindow.Std())
	})
}
