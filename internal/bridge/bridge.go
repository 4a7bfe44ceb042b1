package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sparques/rftrx"
	"github.com/sparques/rftrx/internal/history"
	"github.com/sparques/rftrx/internal/mqtt"
)

const (
	defaultPollInterval  = 50 * time.Millisecond
	defaultStatsInterval = 30 * time.Second

	recordTimeout = 5 * time.Second

	// Event types pushed to the Broadcaster.
	EventCodeReceived = "code.received"
	EventCodeSent     = "code.sent"
)

// Device roles.
const (
	RoleTx = "tx"
	RoleRx = "rx"
)

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Recorder persists events. Satisfied by *history.Store.
type Recorder interface {
	Record(ctx context.Context, e history.Event) (history.Event, error)
}

// Telemetry receives events and receiver counters. Satisfied by
// *telemetry.Client.
type Telemetry interface {
	WriteCode(device, direction string, code uint64, bitLength int, pulse time.Duration, protocol int, at time.Time)
	WriteStats(device string, st rftrx.Stats, at time.Time)
}

// Broadcaster pushes events to live subscribers. Satisfied by *api.Hub.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// Logger is satisfied by logging.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Event is a code that went over the air.
type Event struct {
	ID            string    `json:"id"`
	Device        string    `json:"device"`
	Direction     string    `json:"direction"`
	Code          uint64    `json:"code"`
	BitLength     int       `json:"bit_length"`
	PulseLengthUS int64     `json:"pulse_length_us"`
	Protocol      int       `json:"protocol"`
	Timestamp     time.Time `json:"timestamp"`
}

// Options configures a Bridge. Everything but ID is optional.
type Options struct {
	ID     string
	Topics mqtt.Topics
	QoS    byte

	PollInterval  time.Duration
	DedupeWindow  time.Duration
	StatsInterval time.Duration

	MQTT        MQTTClient
	History     Recorder
	Telemetry   Telemetry
	Broadcaster Broadcaster
	Logger      Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

type device struct {
	name string
	role string
	dev  *rftrx.Device

	// sem serialises sends.
	sem chan struct{}

	// Dedupe state, touched only by the poll loop.
	lastCode uint64
	lastAt   time.Time
	seen     bool
}

// DeviceInfo describes one device for the API.
type DeviceInfo struct {
	Name     string       `json:"name"`
	Role     string       `json:"role"`
	GPIO     int          `json:"gpio"`
	Protocol int          `json:"protocol"`
	Stats    *rftrx.Stats `json:"stats,omitempty"`
}

// Bridge owns a set of devices. All exported methods are safe for
// concurrent use.
type Bridge struct {
	opts Options

	mu      sync.RWMutex
	devices map[string]*device

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New returns a stopped Bridge.
func New(opts Options) *Bridge {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = defaultStatsInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		opts:    opts,
		devices: make(map[string]*device),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddDevice takes ownership of dev and enables it in role.
func (b *Bridge) AddDevice(name, role string, dev *rftrx.Device) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.devices[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDevice, name)
	}
	var err error
	switch role {
	case RoleTx:
		err = dev.EnableTx()
	case RoleRx:
		err = dev.EnableRx()
	default:
		return fmt.Errorf("bridge: device %s: unknown role %q", name, role)
	}
	if err != nil {
		return fmt.Errorf("bridge: enable %s: %w", name, err)
	}
	b.devices[name] = &device{
		name: name,
		role: role,
		dev:  dev,
		sem:  make(chan struct{}, 1),
	}
	b.logInfo("device enabled", "device", name, "role", role, "gpio", dev.Pin().Number(), "protocol", dev.Config().Protocol)
	return nil
}

// Start subscribes to send commands and starts the receive loop. The loop
// runs until Stop or until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	if b.opts.MQTT != nil {
		topic := b.opts.Topics.AllSend()
		if err := b.opts.MQTT.Subscribe(topic, b.opts.QoS, b.handleSendMessage); err != nil {
			return fmt.Errorf("subscribe to commands: %w", err)
		}
		b.logInfo("subscribed to commands", "topic", topic)
	}

	b.wg.Add(1)
	go b.run(ctx)

	b.logInfo("bridge started", "bridge_id", b.opts.ID, "devices", len(b.Devices()))
	return nil
}

// Stop ends the receive loop, waits for in-flight sends and returns every
// pin to a pulled-down input.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.cancel()
		b.wg.Wait()

		b.mu.Lock()
		defer b.mu.Unlock()
		for _, d := range b.devices {
			d.sem <- struct{}{}
			if err := d.dev.Cleanup(); err != nil {
				b.logError("cleanup failed", err, "device", d.name)
			}
			<-d.sem
		}
		b.logInfo("bridge stopped")
	})
}

func (b *Bridge) run(ctx context.Context) {
	defer b.wg.Done()

	poll := time.NewTicker(b.opts.PollInterval)
	defer poll.Stop()
	stats := time.NewTicker(b.opts.StatsInterval)
	defer stats.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ctx.Done():
			return
		case <-poll.C:
			b.pollOnce()
		case <-stats.C:
			b.writeStats()
		}
	}
}

// receivers returns the rx devices in name order.
func (b *Bridge) receivers() []*device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*device
	for _, d := range b.devices {
		if d.role == RoleRx {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// pollOnce drains every receiver's mailbox. Only the poll loop calls it.
func (b *Bridge) pollOnce() {
	for _, d := range b.receivers() {
		r, ok := d.dev.Poll()
		if !ok {
			continue
		}
		now := b.opts.Now()
		if b.duplicate(d, r.Code, now) {
			b.logDebug("duplicate code suppressed", "device", d.name, "code", r.Code)
			continue
		}
		b.emit(Event{
			ID:            uuid.NewString(),
			Device:        d.name,
			Direction:     RoleRx,
			Code:          r.Code,
			BitLength:     r.BitLength,
			PulseLengthUS: r.PulseLength.Microseconds(),
			Protocol:      r.Protocol,
			Timestamp:     now,
		})
	}
}

// duplicate reports whether code repeats the last reported code within the
// dedupe window, and otherwise remembers it as reported.
func (b *Bridge) duplicate(d *device, code uint64, now time.Time) bool {
	if b.opts.DedupeWindow > 0 && d.seen && d.lastCode == code && now.Sub(d.lastAt) < b.opts.DedupeWindow {
		return true
	}
	d.seen, d.lastCode, d.lastAt = true, code, now
	return false
}

func (b *Bridge) writeStats() {
	if b.opts.Telemetry == nil {
		return
	}
	now := b.opts.Now()
	for _, d := range b.receivers() {
		b.opts.Telemetry.WriteStats(d.name, d.dev.Stats(), now)
	}
}

// emit fans an event out to every configured sink.
func (b *Bridge) emit(e Event) {
	if e.Direction == RoleRx {
		b.logInfo("code received", "device", e.Device, "code", e.Code, "bits", e.BitLength, "pulse_us", e.PulseLengthUS)
	}

	if b.opts.MQTT != nil && e.Direction == RoleRx {
		payload, err := json.Marshal(e)
		if err == nil {
			err = b.opts.MQTT.Publish(b.opts.Topics.Received(e.Device), payload, b.opts.QoS, false)
		}
		if err != nil {
			b.logError("publish failed", err, "device", e.Device)
		}
	}

	if b.opts.History != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		_, err := b.opts.History.Record(ctx, history.Event{
			ID:          e.ID,
			Device:      e.Device,
			Direction:   e.Direction,
			Code:        e.Code,
			BitLength:   e.BitLength,
			PulseLength: time.Duration(e.PulseLengthUS) * time.Microsecond,
			Protocol:    e.Protocol,
			CreatedAt:   e.Timestamp,
		})
		cancel()
		if err != nil {
			b.logError("history record failed", err, "device", e.Device)
		}
	}

	if b.opts.Telemetry != nil {
		b.opts.Telemetry.WriteCode(e.Device, e.Direction, e.Code, e.BitLength,
			time.Duration(e.PulseLengthUS)*time.Microsecond, e.Protocol, e.Timestamp)
	}

	if b.opts.Broadcaster != nil {
		eventType := EventCodeReceived
		if e.Direction == RoleTx {
			eventType = EventCodeSent
		}
		b.opts.Broadcaster.Broadcast(eventType, e)
	}
}

// Send transmits code through the named transmitter. It waits for any send
// already in progress on that device, honouring ctx while it waits; once
// the waveform starts it runs to completion.
func (b *Bridge) Send(ctx context.Context, name string, code uint64) error {
	b.mu.RLock()
	d, ok := b.devices[name]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}
	if d.role != RoleTx {
		return fmt.Errorf("%w: %s", ErrWrongRole, name)
	}
	if b.ctx.Err() != nil {
		return ErrStopped
	}

	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-b.ctx.Done():
		return b.ctx.Err()
	}
	err := d.dev.SendCode(code)
	<-d.sem
	if err != nil {
		return err
	}

	cfg := d.dev.Config()
	p, _ := rftrx.LookupProtocol(cfg.Protocol)
	pulse := cfg.PulseLength
	if pulse == 0 {
		pulse = p.PulseLength
	}
	bits := cfg.BitLength
	if cfg.Protocol == rftrx.Manchester {
		bits = 64
	}
	b.logInfo("code sent", "device", name, "code", code)
	b.emit(Event{
		ID:            uuid.NewString(),
		Device:        name,
		Direction:     RoleTx,
		Code:          code,
		BitLength:     bits,
		PulseLengthUS: (pulse * rftrx.ScaleTime).Microseconds(),
		Protocol:      cfg.Protocol,
		Timestamp:     b.opts.Now(),
	})
	return nil
}

// sendCommand is the payload of a send topic.
type sendCommand struct {
	Code *uint64 `json:"code"`
}

// ParseSendPayload accepts {"code": 255} or a bare decimal.
func ParseSendPayload(payload []byte) (uint64, error) {
	s := strings.TrimSpace(string(payload))
	if strings.HasPrefix(s, "{") {
		var cmd sendCommand
		if err := json.Unmarshal([]byte(s), &cmd); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		if cmd.Code == nil {
			return 0, fmt.Errorf("%w: missing code", ErrInvalidCommand)
		}
		return *cmd.Code, nil
	}
	code, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return code, nil
}

func (b *Bridge) handleSendMessage(topic string, payload []byte) error {
	name, ok := b.opts.Topics.DeviceFromSend(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %s", ErrInvalidCommand, topic)
	}
	code, err := ParseSendPayload(payload)
	if err != nil {
		return err
	}
	return b.Send(b.ctx, name, code)
}

// Devices lists every device in name order. Receivers carry their counters.
func (b *Bridge) Devices() []DeviceInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]DeviceInfo, 0, len(b.devices))
	for _, d := range b.devices {
		info := DeviceInfo{
			Name:     d.name,
			Role:     d.role,
			GPIO:     d.dev.Pin().Number(),
			Protocol: d.dev.Config().Protocol,
		}
		if d.role == RoleRx {
			st := d.dev.Stats()
			info.Stats = &st
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if b.opts.Logger != nil {
		b.opts.Logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if b.opts.Logger != nil {
		b.opts.Logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error, keysAndValues ...any) {
	if b.opts.Logger != nil {
		b.opts.Logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}
