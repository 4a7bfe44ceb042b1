package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/sparques/rftrx"
)

func writeConfig(c *qt.C, content string) string {
	path := filepath.Join(c.TempDir(), "config.yaml")
	c.Assert(os.WriteFile(path, []byte(content), 0600), qt.IsNil)
	return path
}

func TestLoadValidConfig(t *testing.T) {
	c := qt.New(t)

	path := writeConfig(c, `
bridge:
  id: "garage"
  poll_interval: 20
mqtt:
  enabled: true
  broker:
    host: "broker.lan"
  topic_prefix: "home/rf"
devices:
  - name: "remote"
    role: "tx"
    backend: "cdev"
    chip: "gpiochip0"
    gpio: 17
    protocol: 2
    repeat: 5
  - name: "sniffer"
    role: "rx"
    backend: "sim"
    chip: "lab"
    gpio: 27
    protocol: 4
    sync_threshold: 5000
    tolerance: 0
    min_changes: 0
`)
	cfg, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Bridge.ID, qt.Equals, "garage")
	c.Assert(cfg.PollInterval(), qt.Equals, 20*time.Millisecond)
	c.Assert(cfg.DedupeWindow(), qt.Equals, 500*time.Millisecond)
	c.Assert(cfg.MQTT.Broker.Host, qt.Equals, "broker.lan")
	c.Assert(cfg.MQTT.Broker.Port, qt.Equals, 1883)
	c.Assert(cfg.MQTT.TopicPrefix, qt.Equals, "home/rf")
	c.Assert(cfg.Devices, qt.HasLen, 2)

	remote, ok := cfg.Device("remote")
	c.Assert(ok, qt.IsTrue)
	rc := remote.CoreConfig()
	c.Assert(rc.Protocol, qt.Equals, 2)
	c.Assert(rc.Repeat, qt.Equals, 5)
	c.Assert(rc.BitLength, qt.Equals, 24)
	c.Assert(rc.MinChanges, qt.Equals, 6)
	c.Assert(rc.Tolerance, qt.Equals, 70)

	sniffer, ok := cfg.Device("sniffer")
	c.Assert(ok, qt.IsTrue)
	sc := sniffer.CoreConfig()
	c.Assert(sc.SyncThreshold, qt.Equals, 5*time.Millisecond)
	c.Assert(sc.TickThreshold, qt.Equals, rftrx.TickThreshold)
	c.Assert(sc.MinChanges, qt.Equals, 0)
	c.Assert(sc.Tolerance, qt.Equals, 0)

	_, ok = cfg.Device("nope")
	c.Assert(ok, qt.IsFalse)
}

func TestLoadMissingFile(t *testing.T) {
	c := qt.New(t)
	_, err := Load("/nonexistent/path/config.yaml")
	c.Assert(err, qt.ErrorMatches, "reading config file: .*")
}

func TestLoadInvalidYAML(t *testing.T) {
	c := qt.New(t)
	_, err := Load(writeConfig(c, "invalid: [yaml: content"))
	c.Assert(err, qt.ErrorMatches, "parsing config file: .*")
}

func TestLoadEnvOverrides(t *testing.T) {
	c := qt.New(t)

	c.Setenv("RFTRX_MQTT_HOST", "env-broker")
	c.Setenv("RFTRX_MQTT_USERNAME", "bridge")
	c.Setenv("RFTRX_MQTT_PASSWORD", "secret")
	c.Setenv("RFTRX_HISTORY_PATH", "/var/lib/rftrx/history.db")
	c.Setenv("RFTRX_INFLUXDB_TOKEN", "token")
	c.Setenv("RFTRX_API_PORT", "9000")

	cfg, err := Load(writeConfig(c, "mqtt:\n  broker:\n    host: file-broker\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.MQTT.Broker.Host, qt.Equals, "env-broker")
	c.Assert(cfg.MQTT.Auth.Username, qt.Equals, "bridge")
	c.Assert(cfg.MQTT.Auth.Password, qt.Equals, "secret")
	c.Assert(cfg.History.Path, qt.Equals, "/var/lib/rftrx/history.db")
	c.Assert(cfg.InfluxDB.Token, qt.Equals, "token")
	c.Assert(cfg.API.Port, qt.Equals, 9000)
}

func TestLoadBadPortOverride(t *testing.T) {
	c := qt.New(t)
	c.Setenv("RFTRX_API_PORT", "http")
	_, err := Load(writeConfig(c, "{}"))
	c.Assert(err, qt.ErrorMatches, "RFTRX_API_PORT: .*")
}

func TestValidate(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{{
		name:   "defaults",
		mutate: func(*Config) {},
	}, {
		name:   "empty bridge id",
		mutate: func(cfg *Config) { cfg.Bridge.ID = "" },
		want:   ".*bridge.id is required.*",
	}, {
		name:   "wildcard bridge id",
		mutate: func(cfg *Config) { cfg.Bridge.ID = "a/#" },
		want:   ".*bridge.id must not contain.*",
	}, {
		name:   "zero poll interval",
		mutate: func(cfg *Config) { cfg.Bridge.PollInterval = 0 },
		want:   ".*bridge.poll_interval.*",
	}, {
		name:   "bad qos",
		mutate: func(cfg *Config) { cfg.MQTT.QoS = 3 },
		want:   ".*mqtt.qos.*",
	}, {
		name:   "bad api port",
		mutate: func(cfg *Config) { cfg.API.Enabled = true; cfg.API.Port = 0 },
		want:   ".*api.port.*",
	}, {
		name:   "influx without url",
		mutate: func(cfg *Config) { cfg.InfluxDB.Enabled = true },
		want:   ".*influxdb.url is required.*",
	}, {
		name: "duplicate device",
		mutate: func(cfg *Config) {
			d := DeviceConfig{Name: "a", Role: RoleTx, Backend: BackendSim}
			cfg.Devices = []DeviceConfig{d, d}
		},
		want: `.*devices\[1\].name "a" is duplicated.*`,
	}, {
		name: "bad role",
		mutate: func(cfg *Config) {
			cfg.Devices = []DeviceConfig{{Name: "a", Role: "both", Backend: BackendSim}}
		},
		want: `.*devices\[0\].role.*`,
	}, {
		name: "bad backend",
		mutate: func(cfg *Config) {
			cfg.Devices = []DeviceConfig{{Name: "a", Role: RoleRx, Backend: "serial"}}
		},
		want: `.*devices\[0\].backend.*`,
	}, {
		name: "bad protocol",
		mutate: func(cfg *Config) {
			cfg.Devices = []DeviceConfig{{Name: "a", Role: RoleRx, Backend: BackendSim, Protocol: 9}}
		},
		want: `.*devices\[0\]: rftrx: invalid protocol: 9.*`,
	}, {
		name: "several problems",
		mutate: func(cfg *Config) {
			cfg.Bridge.ID = ""
			cfg.MQTT.QoS = -1
		},
		want: "configuration errors: bridge.id is required; mqtt.qos must be 0, 1, or 2",
	}}

	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			if test.want == "" {
				c.Assert(err, qt.IsNil)
				return
			}
			c.Assert(err, qt.ErrorMatches, test.want)
		})
	}
}

func TestCoreConfigDefaults(t *testing.T) {
	c := qt.New(t)

	got := DeviceConfig{Name: "a", Role: RoleTx, Backend: BackendSim}.CoreConfig()
	c.Assert(got, qt.Equals, rftrx.DefaultConfig())

	got = DeviceConfig{PulseLength: 400, AcceptZero: true}.CoreConfig()
	c.Assert(got.PulseLength, qt.Equals, 400*time.Microsecond)
	c.Assert(got.AcceptZero, qt.IsTrue)
}
