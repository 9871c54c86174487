/*
Package influxdb exports accuracy samples to an InfluxDB v2 Write API.

A Sink subscribes to a session's sample feed and posts points in batches.
Attach subscribes synchronously, so a sink attached before the first tick sees every sample.
The write API buffers and flushes on its own; Close flushes the rest.
*/
package influxdb

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/types/sample"
)

const Measurement = "position_accuracy"

var ErrNoURL = errors.New("no influxdb url configured")

// SampleSource is the feed a Sink drains. A session satisfies it.
type SampleSource interface {
	SubscribeSamples(ch chan<- []*sample.AccuracySample) event.Subscription
}

// newSamplePoint converts one sample. Sample time is simulation-relative,
// so points are stamped with the wall clock time of capture.
func newSamplePoint(s *sample.AccuracySample, at time.Time) *write.Point {
	return influxdb2.NewPointWithMeasurement(Measurement).
		SetTime(at).
		AddTag("entity", s.EntityID.String()).
		AddField("sim_time", s.Timestamp).
		AddField("position_error", s.PositionError).
		AddField("lateral_error", s.LateralError).
		AddField("longitudinal_error", s.LongitudinalError).
		AddField("speed", s.Speed).
		AddField("steering_angle", s.SteeringAngle)
}

type Sink struct {
	config   *params.InfluxConfig
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	written int64
	lastErr error

	wait sync.WaitGroup
}

func NewSink(config *params.InfluxConfig) (*Sink, error) {
	if config == nil || config.URL == "" {
		return nil, ErrNoURL
	}
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Millisecond)
	if config.BatchSize > 0 {
		opts.SetBatchSize(uint(config.BatchSize))
	}
	client := influxdb2.NewClientWithOptions(config.URL, config.Token, opts)
	return &Sink{
		config:   config,
		client:   client,
		writeAPI: client.WriteAPI(config.Org, config.Bucket),
		logger:   slog.With("d", "influx", "bucket", config.Bucket),
		now:      time.Now,
	}, nil
}

// Attach subscribes to src before it returns, so every batch sent afterwards is written.
// Points are written until ctx is done; the client is then flushed and closed,
// and the returned channel yields the last write error seen.
func (s *Sink) Attach(ctx context.Context, src SampleSource) <-chan error {
	batches := make(chan []*sample.AccuracySample, 16)
	sub := src.SubscribeSamples(batches)
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- s.run(ctx, sub, batches)
	}()
	return done
}

func (s *Sink) run(ctx context.Context, sub event.Subscription, batches <-chan []*sample.AccuracySample) error {
	defer sub.Unsubscribe()

	// Errors must be read before any write, or the writer blocks.
	errorsCh := s.writeAPI.Errors()
	s.wait.Add(1)
	go func() {
		defer s.wait.Done()
		for e := range errorsCh {
			if e == nil {
				continue
			}
			s.logger.Warn("InfluxDB write failed", "error", e)
			s.mu.Lock()
			s.lastErr = e
			s.mu.Unlock()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return s.close()
		case err := <-sub.Err():
			if err != nil {
				s.logger.Error("Sample subscription failed", "error", err)
			}
			return s.close()
		case batch := <-batches:
			at := s.now()
			for _, smp := range batch {
				s.writeAPI.WritePoint(newSamplePoint(smp, at))
			}
			s.mu.Lock()
			s.written += int64(len(batch))
			s.mu.Unlock()
		}
	}
}

func (s *Sink) close() error {
	s.writeAPI.Flush()
	s.client.Close()
	s.wait.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("InfluxDB export done", "points", s.written)
	return s.lastErr
}

func (s *Sink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}
