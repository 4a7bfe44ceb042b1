// Package config loads the rfbridge configuration.
//
// Values are resolved in three layers: built-in defaults, the YAML file,
// then RFTRX_* environment variables. The result is validated before use.
//
//	bridge:
//	  id: "garage"
//	  poll_interval: 50      # milliseconds
//	  dedupe_window: 500     # milliseconds, 0 disables
//	mqtt:
//	  broker:
//	    host: "localhost"
//	    port: 1883
//	  topic_prefix: "rftrx"
//	devices:
//	  - name: "remote"
//	    role: "tx"
//	    backend: "cdev"
//	    chip: "gpiochip0"
//	    gpio: 17
//	    protocol: 1
//	  - name: "sniffer"
//	    role: "rx"
//	    backend: "cdev"
//	    chip: "gpiochip0"
//	    gpio: 27
//	    protocol: 1
//
// Secrets (MQTT password, InfluxDB token) should come from the environment.
package config
