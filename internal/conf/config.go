// Package conf loads and validates Manager configuration from a YAML file
// with environment-variable overrides.
package conf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerSettings configures the HTTP API listener.
type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseSettings configures the relational store.
type DatabaseSettings struct {
	// Dialect is "sqlite" or "mysql".
	Dialect string `mapstructure:"dialect"`
	// Path is the SQLite database file ("file::memory:?cache=shared" for tests).
	Path string `mapstructure:"path"`
	// DSN is the MySQL connection string, used when Dialect is "mysql".
	DSN string `mapstructure:"dsn"`
}

// AlarmSettings configures the alarm engine loops.
type AlarmSettings struct {
	EvaluateInterval    Duration `mapstructure:"evaluate_interval"`
	SynchronizeInterval Duration `mapstructure:"synchronize_interval"`
	LivenessWindow      Duration `mapstructure:"liveness_window"`
	SeedDefaults        bool     `mapstructure:"seed_defaults"`
}

// AnnounceSettings configures the multicast beacon.
type AnnounceSettings struct {
	Enabled  bool     `mapstructure:"enabled"`
	Address  string   `mapstructure:"address"`
	Port     int      `mapstructure:"port"`
	Interval Duration `mapstructure:"interval"`
	// Interface is the local IP to send beacons from. Empty lets the OS
	// pick the outbound interface.
	Interface string `mapstructure:"interface"`
}

// MQTTSettings configures the optional MQTT metric ingest bridge.
type MQTTSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// NodeSettings configures node identity housekeeping.
type NodeSettings struct {
	OfflineAfter  Duration `mapstructure:"offline_after"`
	CheckInterval Duration `mapstructure:"check_interval"`
}

// Settings is the full Manager configuration tree.
type Settings struct {
	Server   ServerSettings   `mapstructure:"server"`
	Database DatabaseSettings `mapstructure:"database"`
	Alarm    AlarmSettings    `mapstructure:"alarm"`
	Announce AnnounceSettings `mapstructure:"announce"`
	MQTT     MQTTSettings     `mapstructure:"mqtt"`
	Node     NodeSettings     `mapstructure:"node"`
	LogLevel string           `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.dialect", "sqlite")
	v.SetDefault("database.path", "manager.db")
	v.SetDefault("alarm.evaluate_interval", "1s")
	v.SetDefault("alarm.synchronize_interval", "20s")
	v.SetDefault("alarm.liveness_window", "5m")
	v.SetDefault("alarm.seed_defaults", true)
	v.SetDefault("announce.enabled", true)
	v.SetDefault("announce.address", "239.255.0.1")
	v.SetDefault("announce.port", 50000)
	v.SetDefault("announce.interval", "5s")
	v.SetDefault("announce.interface", "")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.topic", "fleet/+/metrics")
	v.SetDefault("mqtt.client_id", "fleet-manager")
	v.SetDefault("node.offline_after", "5m")
	v.SetDefault("node.check_interval", "1m")
	v.SetDefault("log_level", "info")
}

// LoadSettings reads configuration from the given file path. A missing file
// is not an error; defaults and FLEET_* environment variables apply.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks settings for values the Manager cannot start with.
func (s *Settings) Validate() error {
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", s.Server.Port)
	}
	switch s.Database.Dialect {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database dialect %q", s.Database.Dialect)
	}
	if s.Alarm.EvaluateInterval.Std() < time.Second {
		s.Alarm.EvaluateInterval = Duration(time.Second)
	}
	if s.Alarm.SynchronizeInterval.Std() <= 0 {
		s.Alarm.SynchronizeInterval = Duration(20 * time.Second)
	}
	if s.Alarm.LivenessWindow.Std() <= 0 {
		s.Alarm.LivenessWindow = Duration(5 * time.Minute)
	}
	return nil
}
