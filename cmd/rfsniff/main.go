// rfsniff prints the codes a 433/315 MHz receiver decodes until
// interrupted, then the receive counters.
//
//	rfsniff -chip gpiochip0 -gpio 27
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sparques/rftrx"
	"github.com/sparques/rftrx/internal/backend"
	"github.com/sparques/rftrx/internal/config"
	"github.com/sparques/rftrx/internal/logging"
)

var version = "dev"

type options struct {
	device config.DeviceConfig
	poll   time.Duration
	trace  bool
}

func main() {
	var o options
	o.device = config.DeviceConfig{Name: "rfsniff", Role: config.RoleRx}
	dc := &o.device
	flag.StringVar(&dc.Backend, "backend", config.BackendCdev, "GPIO backend: cdev, periph or sim")
	flag.StringVar(&dc.Chip, "chip", "gpiochip0", "GPIO chip (cdev)")
	flag.IntVar(&dc.GPIO, "gpio", 27, "receiver data pin")
	flag.IntVar(&dc.Protocol, "protocol", 1, "protocol 1-6")
	tolerance := flag.Int("tolerance", 70, "timing tolerance in percent")
	flag.IntVar(&dc.SyncThreshold, "sync", 0, "sync gap threshold in µs (0: 15000)")
	flag.IntVar(&dc.TickThreshold, "tick", 0, "noise threshold in µs (0: 300)")
	flag.BoolVar(&dc.AcceptZero, "zero", false, "report all-zero frames")
	flag.DurationVar(&o.poll, "poll", 50*time.Millisecond, "mailbox poll interval")
	flag.BoolVar(&o.trace, "trace", false, "count edge classes and print them on exit")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()
	dc.Tolerance = tolerance

	log := logging.New(config.LoggingConfig{Level: *level, Format: "text", Output: "stderr"}, version)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, o, os.Stdout, log); err != nil {
		log.Error("sniff failed", "error", err)
		os.Exit(1)
	}
}

// edgeCounts is filled from the edge handler.
type edgeCounts [4]atomic.Uint32

func (e *edgeCounts) trace(class rftrx.EdgeClass) {
	if int(class) < len(e) {
		e[class].Add(1)
	}
}

func run(ctx context.Context, o options, out io.Writer, log *logging.Logger) error {
	opener := backend.NewOpener()
	defer opener.Close()

	dev, err := opener.Open(o.device)
	if err != nil {
		return err
	}
	defer dev.Cleanup()

	var edges edgeCounts
	if o.trace {
		dev.SetTracer(edges.trace)
	}
	if err := dev.EnableRx(); err != nil {
		return err
	}
	log.Info("listening", "backend", o.device.Backend, "gpio", o.device.GPIO, "protocol", o.device.Protocol)

	sniff(ctx, dev, o.poll, out)

	st := dev.Stats()
	log.Info("receiver stats",
		"decoded", st.Decoded,
		"rejected", st.Rejected,
		"syncs", st.Syncs,
		"overflows", st.Overflows,
		"noise", st.Noise,
	)
	if o.trace {
		log.Info("edge classes",
			"noise", edges[rftrx.EdgeNoise].Load(),
			"data", edges[rftrx.EdgeData].Load(),
			"sync", edges[rftrx.EdgeSync].Load(),
			"overflow", edges[rftrx.EdgeOverflow].Load(),
		)
	}
	return nil
}

// sniff prints every code Poll returns until ctx is done.
func sniff(ctx context.Context, dev *rftrx.Device, every time.Duration, out io.Writer) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if r, ok := dev.Poll(); ok {
			fmt.Fprintf(out, "%s code=%d bits=%d pulse=%dus protocol=%d\n",
				time.Now().Format(time.TimeOnly), r.Code, r.BitLength, r.PulseLength.Microseconds(), r.Protocol)
		}
	}
}
