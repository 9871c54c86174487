package stream

import (
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/posacc/common"
	"github.com/rotblauer/posacc/types/frame"
)

type tickScanMeter struct {
	lastStep   atomic.Int64
	lastTime   atomic.Uint64 // float64 bits
	interval   time.Duration
	started    time.Time
	ticker     *time.Ticker
	done       chan struct{}
	reg        metrics.Registry
	frames     metrics.Counter
	controls   metrics.Counter
	countMeter metrics.Meter
	sizeMeter  metrics.Meter
}

func newTickScanMeter(interval time.Duration) *tickScanMeter {
	// Meters are no-ops unless metrics are enabled globally.
	metrics.Enabled = true

	reg := metrics.NewRegistry()
	rl := &tickScanMeter{
		reg:        reg,
		interval:   interval,
		started:    time.Now(),
		done:       make(chan struct{}),
		frames:     metrics.NewCounter(),
		controls:   metrics.NewCounter(),
		countMeter: metrics.NewMeter(),
		sizeMeter:  metrics.NewMeter(),
	}
	for name, m := range map[string]interface{}{
		"frames.count":   rl.frames,
		"controls.count": rl.controls,
		"line.meter":     rl.countMeter,
		"size.meter":     rl.sizeMeter,
	} {
		if err := reg.Register(name, m); err != nil {
			panic(err)
		}
	}
	go rl.run()
	return rl
}

func (rl *tickScanMeter) mark(m *frame.Message, size int) {
	if m.Kind == frame.KindFrame {
		rl.frames.Inc(1)
		rl.lastStep.Store(m.Frame.Step)
		rl.lastTime.Store(math.Float64bits(m.Frame.Time))
	} else {
		rl.controls.Inc(1)
	}
	rl.countMeter.Mark(1)
	rl.sizeMeter.Mark(int64(size))
}

func (rl *tickScanMeter) run() {
	rl.ticker = time.NewTicker(rl.interval)
	defer rl.ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-rl.ticker.C:
			rl.log("Read frames")
		}
	}
}

func (rl *tickScanMeter) log(msg string) {
	countSnap := rl.countMeter.Snapshot()
	sizeSnap := rl.sizeMeter.Snapshot()

	slog.Info(msg, "frames", humanize.Comma(rl.frames.Snapshot().Count()),
		"controls", rl.controls.Snapshot().Count(),
		"step.last", rl.lastStep.Load(),
		"time.last", common.DecimalToFixed(math.Float64frombits(rl.lastTime.Load()), 2),
		"lps", common.DecimalToFixed(countSnap.Rate1(), 1),
		"bps", humanize.Bytes(uint64(sizeSnap.Rate1())),
		"total.bytes", humanize.Bytes(uint64(sizeSnap.Count())),
		"running", time.Since(rl.started).Round(time.Second))
}

func (rl *tickScanMeter) stop() {
	if rl == nil {
		return
	}
	close(rl.done)
	rl.log("Transport closed")
	rl.countMeter.Stop()
	rl.sizeMeter.Stop()
}
