package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sparques/rftrx"
)

// Config is the root of the rfbridge configuration.
type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Logging  LoggingConfig  `yaml:"logging"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	History  HistoryConfig  `yaml:"history"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Devices  []DeviceConfig `yaml:"devices"`
}

// BridgeConfig identifies this bridge and tunes the receive loop.
type BridgeConfig struct {
	ID string `yaml:"id"`
	// PollInterval is in milliseconds.
	PollInterval int `yaml:"poll_interval"`
	// DedupeWindow is in milliseconds. Zero publishes every decoded frame.
	DedupeWindow int `yaml:"dedupe_window"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// HistoryConfig contains the SQLite code history settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// BusyTimeout is in seconds.
	BusyTimeout int `yaml:"busy_timeout"`
	// Retention is the number of events kept. Zero keeps everything.
	Retention int `yaml:"retention"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled   bool   `yaml:"enabled"`
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	Org       string `yaml:"org"`
	Bucket    string `yaml:"bucket"`
	BatchSize int    `yaml:"batch_size"`
	// FlushInterval is in seconds.
	FlushInterval int `yaml:"flush_interval"`
}

// Device roles and backends.
const (
	RoleTx = "tx"
	RoleRx = "rx"

	BackendCdev   = "cdev"
	BackendPeriph = "periph"
	BackendSim    = "sim"
)

// DeviceConfig is one RF module. Timings are in microseconds; zero selects
// the protocol or package default.
type DeviceConfig struct {
	Name    string `yaml:"name"`
	Role    string `yaml:"role"`
	Backend string `yaml:"backend"`
	// Chip is the gpiochip for cdev, and the loopback name for sim: a tx
	// and an rx device on the same sim chip hear each other.
	Chip string `yaml:"chip"`
	GPIO int    `yaml:"gpio"`

	Protocol      int  `yaml:"protocol"`
	PulseLength   int  `yaml:"pulse_length"`
	Repeat        int  `yaml:"repeat"`
	BitLength     int  `yaml:"bit_length"`
	Tolerance     *int `yaml:"tolerance"`
	SyncThreshold int  `yaml:"sync_threshold"`
	TickThreshold int  `yaml:"tick_threshold"`
	MinChanges    *int `yaml:"min_changes"`
	AcceptZero    bool `yaml:"accept_zero"`
}

// CoreConfig converts the entry into a device configuration, filling unset
// fields from rftrx.DefaultConfig.
func (d DeviceConfig) CoreConfig() rftrx.Config {
	c := rftrx.DefaultConfig()
	if d.Protocol != 0 {
		c.Protocol = d.Protocol
	}
	c.PulseLength = time.Duration(d.PulseLength) * time.Microsecond
	if d.Repeat != 0 {
		c.Repeat = d.Repeat
	}
	if d.BitLength != 0 {
		c.BitLength = d.BitLength
	}
	if d.Tolerance != nil {
		c.Tolerance = *d.Tolerance
	}
	if d.SyncThreshold != 0 {
		c.SyncThreshold = time.Duration(d.SyncThreshold) * time.Microsecond
	}
	if d.TickThreshold != 0 {
		c.TickThreshold = time.Duration(d.TickThreshold) * time.Microsecond
	}
	if d.MinChanges != nil {
		c.MinChanges = *d.MinChanges
	}
	c.AcceptZero = d.AcceptZero
	return c
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// Environment variables follow the pattern RFTRX_SECTION_KEY, e.g.
// RFTRX_MQTT_HOST or RFTRX_API_PORT.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with no devices.
func Default() *Config { return defaultConfig() }

func defaultConfig() *Config {
	host, _ := os.Hostname()
	if host == "" {
		host = "rfbridge"
	}
	return &Config{
		Bridge: BridgeConfig{
			ID:           host,
			PollInterval: 50,
			DedupeWindow: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "rftrx-" + host,
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "rftrx",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8433,
		},
		History: HistoryConfig{
			Path:        "./data/rftrx.db",
			BusyTimeout: 5,
			Retention:   10000,
		},
		InfluxDB: InfluxDBConfig{
			Org:           "rftrx",
			Bucket:        "rftrx",
			BatchSize:     100,
			FlushInterval: 10,
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RFTRX_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("RFTRX_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("RFTRX_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("RFTRX_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	if v := os.Getenv("RFTRX_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("RFTRX_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RFTRX_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	return nil
}

// Validate checks the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	if strings.ContainsAny(c.Bridge.ID, "+#/") {
		errs = append(errs, "bridge.id must not contain MQTT wildcards or '/'")
	}
	if c.Bridge.PollInterval < 1 {
		errs = append(errs, "bridge.poll_interval must be at least 1")
	}
	if c.Bridge.DedupeWindow < 0 {
		errs = append(errs, "bridge.dedupe_window must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required")
	}

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		prefix := fmt.Sprintf("devices[%d]", i)
		if d.Name == "" {
			errs = append(errs, prefix+".name is required")
		} else if seen[d.Name] {
			errs = append(errs, fmt.Sprintf("%s.name %q is duplicated", prefix, d.Name))
		} else if strings.ContainsAny(d.Name, "+#/") {
			errs = append(errs, prefix+".name must not contain MQTT wildcards or '/'")
		}
		seen[d.Name] = true

		if d.Role != RoleTx && d.Role != RoleRx {
			errs = append(errs, fmt.Sprintf("%s.role must be %q or %q", prefix, RoleTx, RoleRx))
		}
		switch d.Backend {
		case BackendCdev, BackendPeriph, BackendSim:
		default:
			errs = append(errs, fmt.Sprintf("%s.backend must be cdev, periph or sim", prefix))
		}
		if d.GPIO < 0 {
			errs = append(errs, prefix+".gpio must not be negative")
		}
		if err := d.CoreConfig().Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", prefix, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PollInterval returns bridge.poll_interval as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Bridge.PollInterval) * time.Millisecond
}

// DedupeWindow returns bridge.dedupe_window as a Duration.
func (c *Config) DedupeWindow() time.Duration {
	return time.Duration(c.Bridge.DedupeWindow) * time.Millisecond
}

// Device returns the entry called name.
func (c *Config) Device(name string) (DeviceConfig, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return DeviceConfig{}, false
}
