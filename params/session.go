package params

import (
	"compress/gzip"
	"path/filepath"
)

const (
	// RowLogPrefix and SummaryPrefix name the session artifacts,
	// e.g. position_accuracy_2025-11-04_12-30-00.csv.
	RowLogPrefix  = "position_accuracy_"
	RowLogExt     = ".csv"
	SummaryPrefix = "statistics_summary_"
	SummaryExt    = ".txt"

	// StampLayout is the creation timestamp embedded in artifact names.
	StampLayout = "2006-01-02_15-04-05"

	SessionIndexDBName = "sessions.db"

	// RecordingPrefix names gzipped transport recordings.
	RecordingPrefix = "transport_"
)

var (
	DefaultOutputDir         = filepath.Join("Logs", "PositionAccuracy")
	DefaultSampleInterval    = 0.1
	DefaultAutoSaveThreshold = 1000
	DefaultWindowSize        = 10

	DefaultGZipCompressionLevel = gzip.BestSpeed
)

type SessionConfig struct {
	// Enabled turns sampling on. A disabled session ignores every tick.
	Enabled bool

	// SampleInterval is the minimum simulated time, in seconds, between samples.
	// Ticks arriving sooner are skipped. Zero samples every tick.
	SampleInterval float64

	// OutputDir receives the row log, the summaries and the session index.
	OutputDir string

	// AutoSaveThreshold forces a flush of the row log every N entries.
	AutoSaveThreshold int

	// WindowSize is the per-entity rolling window capacity.
	WindowSize int

	// ExportEvery writes an intermediate summary every N sampled ticks.
	// Zero disables periodic export; the final summary is always written.
	ExportEvery int

	// UseIndex records finished sessions in a bbolt index in OutputDir.
	UseIndex bool
}

func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		Enabled:           true,
		SampleInterval:    DefaultSampleInterval,
		OutputDir:         DefaultOutputDir,
		AutoSaveThreshold: DefaultAutoSaveThreshold,
		WindowSize:        DefaultWindowSize,
		ExportEvery:       0,
		UseIndex:          true,
	}
}
