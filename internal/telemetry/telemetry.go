// Package telemetry writes code events and receiver counters to InfluxDB.
//
// Writes are non-blocking and batched by the client library; errors arrive
// asynchronously through SetOnError.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sparques/rftrx"
	"github.com/sparques/rftrx/internal/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	millisecondsPerSecond = 1000

	measurementCodes = "rf_codes"
	measurementStats = "rf_receiver"
)

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("telemetry: influxdb disabled")
	// ErrConnectionFailed is returned when the server cannot be reached.
	ErrConnectionFailed = errors.New("telemetry: connection failed")
	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("telemetry: not connected")
)

// Client wraps the InfluxDB v2 client. Safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	connected bool
	mu        sync.RWMutex
	onError   func(err error)
}

// Connect pings the server and sets up the batching write API.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	c := &Client{
		client:    client,
		writeAPI:  writeAPI,
		connected: true,
	}
	go c.handleWriteErrors(writeAPI.Errors())

	return c, nil
}

func (c *Client) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()

		if callback != nil {
			callback(err)
		}
	}
}

// SetOnError sets the callback for asynchronous write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// IsConnected reports the last known state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}
	return nil
}

// Close flushes pending points and closes the client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// WriteCode records one sent or received code.
func (c *Client) WriteCode(device, direction string, code uint64, bitLength int, pulse time.Duration, protocol int, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(codePoint(device, direction, code, bitLength, pulse, protocol, at))
}

// WriteStats records a receiver's counters.
func (c *Client) WriteStats(device string, st rftrx.Stats, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(statsPoint(device, st, at))
}

func codePoint(device, direction string, code uint64, bitLength int, pulse time.Duration, protocol int, at time.Time) *write.Point {
	return write.NewPoint(
		measurementCodes,
		map[string]string{
			"device":    device,
			"direction": direction,
		},
		map[string]interface{}{
			// Codes above 2^63 keep their bits; line protocol has no
			// portable unsigned type.
			"code":     int64(code),
			"bits":     bitLength,
			"pulse_us": pulse.Microseconds(),
			"protocol": protocol,
		},
		at,
	)
}

func statsPoint(device string, st rftrx.Stats, at time.Time) *write.Point {
	return write.NewPoint(
		measurementStats,
		map[string]string{
			"device": device,
		},
		map[string]interface{}{
			"decoded":   int64(st.Decoded),
			"rejected":  int64(st.Rejected),
			"overflows": int64(st.Overflows),
			"noise":     int64(st.Noise),
			"syncs":     int64(st.Syncs),
		},
		at,
	)
}
