/*
Package session owns one position accuracy logging session.

A Session is created explicitly by its host and driven from a single goroutine:
every Tick, Export, Clear and Finalize call must come from the same loop.
Other goroutines observe the session only through its event feeds,
which carry copies.
*/
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/google/uuid"
	"github.com/rotblauer/posacc/accdb/flat"
	"github.com/rotblauer/posacc/aggregate"
	"github.com/rotblauer/posacc/correlate"
	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/report"
	"github.com/rotblauer/posacc/state"
	"github.com/rotblauer/posacc/types/frame"
	"github.com/rotblauer/posacc/types/sample"
)

var (
	ErrDisabled  = errors.New("session disabled")
	ErrFinalized = errors.New("session finalized")
)

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithClock replaces time.Now for artifact stamps and summary times.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithIndex records the session in x on Finalize.
// The caller keeps ownership of x.
func WithIndex(x *state.Index) Option {
	return func(s *Session) {
		s.index = x
	}
}

type Session struct {
	config params.SessionConfig
	logger *slog.Logger
	now    func() time.Time

	id      string
	stamp   string
	started time.Time
	flat    *flat.Flat

	rowLog      *flat.SessionLog
	logDisabled bool

	agg   *aggregate.Aggregator
	index *state.Index

	haveSampled bool
	lastSample  float64
	lastTime    float64
	sampled     int64
	tracked     int
	unmatched   int
	exports     int

	finalized   bool
	summaryPath string

	sampleFeed   event.FeedOf[[]*sample.AccuracySample]
	snapshotFeed event.FeedOf[*aggregate.Snapshot]
}

// New creates a session and opens its row log.
// Failing to open the row log does not fail the session: statistics are still
// kept and summaries still written, and LogDisabled reports the condition.
func New(config params.SessionConfig, opts ...Option) *Session {
	s := &Session{
		config: config,
		logger: slog.Default(),
		now:    time.Now,
		id:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.OutputDir == "" {
		s.config.OutputDir = params.DefaultOutputDir
	}
	s.logger = s.logger.With("d", "session", "session", s.id)
	s.agg = aggregate.NewAggregator(s.config.WindowSize)
	s.started = s.now()

	if !s.config.Enabled {
		s.logger.Info("Position accuracy logging disabled")
		return s
	}

	s.flat = flat.NewFlatWithRoot(s.config.OutputDir)
	if err := s.flat.MkdirAll(); err != nil {
		s.disableLog(fmt.Errorf("create output dir: %w", err))
		return s
	}
	s.stamp = s.flat.ReserveStamp(s.started)
	path := filepath.Join(s.flat.Path(), flat.RowLogName(s.stamp))
	lc := flat.DefaultSessionLogConfig()
	lc.AutoSaveThreshold = s.config.AutoSaveThreshold
	l, err := flat.NewSessionLog(path, lc)
	if err != nil {
		s.disableLog(fmt.Errorf("create row log: %w", err))
		return s
	}
	s.rowLog = l
	s.logger.Info("Started position accuracy session",
		"log", l.Path(), "interval", s.config.SampleInterval, "window", s.agg.WindowSize())
	return s
}

func (s *Session) disableLog(err error) {
	s.logDisabled = true
	s.logger.Error("Row logging disabled", "error", err)
	if s.rowLog != nil {
		s.rowLog.MaybeClose()
	}
}

// intervalTolerance absorbs float error in frame time differences,
// so frames spaced exactly SampleInterval apart are all sampled.
const intervalTolerance = 1e-9

// Tick processes one frame. Frames closer than SampleInterval in simulated time
// to the last sampled frame are skipped. A frame whose time runs backwards is sampled,
// since the simulator was restarted.
func (s *Session) Tick(f *frame.Frame) {
	if !s.config.Enabled || s.finalized || f == nil {
		return
	}
	if s.haveSampled && f.Time >= s.lastSample && f.Time-s.lastSample < s.config.SampleInterval-intervalTolerance {
		return
	}
	s.haveSampled = true
	s.lastSample = f.Time
	s.lastTime = f.Time

	corr := correlate.Resolve(f.Reference, f.Rendered)
	s.tracked, s.unmatched = corr.Len(), corr.Unmatched

	batch := make([]*sample.AccuracySample, 0, corr.Len())
	for _, p := range corr.Pairs {
		smp := sample.New(f.Time, p.External.ID, p.Rendered, p.External.Position, p.External.Speed, p.External.Angle)
		if math.IsNaN(smp.PositionError) || math.IsInf(smp.PositionError, 0) {
			s.logger.Warn("Non-finite position error", "vehicle", smp.EntityID, "time", f.Time)
		}
		s.agg.Record(smp.EntityID, smp)
		batch = append(batch, smp)
		if s.rowLog != nil && !s.logDisabled {
			if err := s.rowLog.Append(smp); err != nil {
				s.disableLog(fmt.Errorf("append: %w", err))
			}
		}
	}
	s.sampled++

	if len(batch) > 0 {
		s.sampleFeed.Send(batch)
	}
	s.snapshotFeed.Send(s.agg.Snapshot(f.Time))

	if s.config.ExportEvery > 0 && s.sampled%int64(s.config.ExportEvery) == 0 {
		if _, err := s.Export(); err != nil {
			s.logger.Error("Periodic export failed", "error", err)
		}
	}
}

// Handle applies one transport message. It returns true on the end marker.
func (s *Session) Handle(m *frame.Message) (done bool) {
	switch m.Kind {
	case frame.KindFrame:
		s.Tick(m.Frame)
	case frame.KindExport:
		if p, err := s.Export(); err != nil {
			s.logger.Error("Export failed", "error", err)
		} else {
			s.logger.Info("Exported summary", "path", p)
		}
	case frame.KindClear:
		s.Clear()
	case frame.KindEnd:
		return true
	default:
		s.logger.Warn("Unknown message kind", "kind", m.Kind)
	}
	return false
}

// Summary builds a summary of the current statistics.
func (s *Session) Summary() *report.Summary {
	meta := report.Meta{Generated: s.now(), SessionID: s.id}
	if s.rowLog != nil {
		meta.LogFile = s.rowLog.Path()
	}
	return report.Build(meta, s.agg)
}

// Export writes an intermediate summary and returns its path.
// The row log is flushed first so the summary never runs ahead of it.
func (s *Session) Export() (string, error) {
	if !s.config.Enabled {
		return "", ErrDisabled
	}
	if s.finalized {
		return "", ErrFinalized
	}
	if s.rowLog != nil && !s.logDisabled {
		if err := s.rowLog.Flush(); err != nil {
			s.disableLog(fmt.Errorf("flush: %w", err))
		}
	}
	s.exports++
	return s.writeSummary(flat.ExportName(s.stamp, s.exports))
}

func (s *Session) writeSummary(name string) (string, error) {
	if s.flat == nil {
		return "", fmt.Errorf("no output directory")
	}
	return s.flat.WriteFileAtomic(name, []byte(s.Summary().String()))
}

// Clear resets statistics and per-entity histories. The row log is kept.
func (s *Session) Clear() {
	s.agg.Clear()
	s.tracked, s.unmatched = 0, 0
	s.logger.Info("Cleared statistics")
}

// Finalize closes the row log, writes the final summary and records the session in the index.
// Only the first call has an effect.
func (s *Session) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true
	if !s.config.Enabled {
		return nil
	}

	var errs []error
	if s.rowLog != nil {
		if err := s.rowLog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close row log: %w", err))
		}
	}
	if s.stamp != "" {
		p, err := s.writeSummary(flat.SummaryName(s.stamp))
		if err != nil {
			errs = append(errs, fmt.Errorf("write summary: %w", err))
		} else {
			s.summaryPath = p
		}
	}
	if err := s.recordIndex(); err != nil {
		// The index is a convenience; the artifacts are already written.
		s.logger.Warn("Failed to record session", "error", err)
	}

	g := s.agg.Global()
	s.logger.Info("Finalized position accuracy session",
		"summary", s.summaryPath, "entries", g.TotalEntriesLogged,
		"vehicles", g.ActiveVehicleCount, "avg", g.AveragePositionError, "max", g.MaxPositionError)
	return errors.Join(errs...)
}

func (s *Session) recordIndex() error {
	if !s.config.UseIndex || s.flat == nil {
		return nil
	}
	x := s.index
	if x == nil {
		var err error
		x, err = state.OpenIndex(s.flat.Path(), false)
		if err != nil {
			return err
		}
		defer x.Close()
	}
	g := s.agg.Global()
	return x.RecordSession(&state.Record{
		ID:           s.id,
		Stamp:        s.stamp,
		Started:      s.started,
		Finished:     s.now(),
		RowLog:       s.RowLogPath(),
		Summary:      s.summaryPath,
		Entries:      g.TotalEntriesLogged,
		Vehicles:     g.ActiveVehicleCount,
		AverageError: g.AveragePositionError,
		MaxError:     g.MaxPositionError,
		LogDisabled:  s.logDisabled,
	})
}

// SubscribeSamples delivers each tick's samples. Sends block the tick loop
// until every subscriber has received, so subscribers must drain promptly.
func (s *Session) SubscribeSamples(ch chan<- []*sample.AccuracySample) event.Subscription {
	return s.sampleFeed.Subscribe(ch)
}

// SubscribeSnapshots delivers a statistics snapshot after each sampled tick.
func (s *Session) SubscribeSnapshots(ch chan<- *aggregate.Snapshot) event.Subscription {
	return s.snapshotFeed.Subscribe(ch)
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Stamp() string {
	return s.stamp
}

func (s *Session) Enabled() bool {
	return s.config.Enabled
}

// LogDisabled is true when the row log could not be created or written.
func (s *Session) LogDisabled() bool {
	return s.logDisabled
}

func (s *Session) RowLogPath() string {
	if s.rowLog == nil {
		return ""
	}
	return s.rowLog.Path()
}

// SummaryPath is the final summary, set by Finalize.
func (s *Session) SummaryPath() string {
	return s.summaryPath
}

// Tracked is the size of the last correlation set.
func (s *Session) Tracked() int {
	return s.tracked
}

// Unmatched is the number of external entities without a rendered counterpart in the last sampled tick.
func (s *Session) Unmatched() int {
	return s.unmatched
}

func (s *Session) Global() aggregate.GlobalStatistics {
	return s.agg.Global()
}

func (s *Session) Snapshot() *aggregate.Snapshot {
	return s.agg.Snapshot(s.lastTime)
}

func (s *Session) Finalized() bool {
	return s.finalized
}
