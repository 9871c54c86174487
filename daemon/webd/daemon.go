package webd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/olahol/melody"
	"github.com/rotblauer/posacc/aggregate"
	"github.com/rotblauer/posacc/conceptual"
	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/report"
	"github.com/rotblauer/posacc/types/sample"
)

// Source is what the overlay observes. A session satisfies it.
type Source interface {
	SubscribeSamples(ch chan<- []*sample.AccuracySample) event.Subscription
	SubscribeSnapshots(ch chan<- *aggregate.Snapshot) event.Subscription
}

// WebDaemon is the diagnostic overlay. It only reads copies handed over by the
// session feeds, so it never touches session state directly.
type WebDaemon struct {
	Config         *params.WebDaemonConfig
	logger         *slog.Logger
	started        time.Time
	melodyInstance *melody.Melody

	snapshot  atomic.Pointer[aggregate.Snapshot]
	lastKnown *ttlcache.Cache[conceptual.EntityID, *sample.AccuracySample]
	summaries *lru.Cache[string, *report.Summary]

	feedSamples event.FeedOf[[]*sample.AccuracySample]
	subs        event.SubscriptionScope
}

func NewWebDaemon(config *params.WebDaemonConfig) (*WebDaemon, error) {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	summaries, err := lru.New[string, *report.Summary](config.SummaryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("summary cache: %w", err)
	}
	s := &WebDaemon{
		Config:  config,
		logger:  slog.With("d", "web"),
		started: time.Now(),
		lastKnown: ttlcache.New[conceptual.EntityID, *sample.AccuracySample](
			ttlcache.WithTTL[conceptual.EntityID, *sample.AccuracySample](config.LastKnownTTL)),
		summaries: summaries,
	}
	s.initMelody()
	return s, nil
}

// Attach subscribes to src and keeps the overlay state current until ctx is done.
// Feed sends block the session loop, so the consumers only copy and hand off.
func (s *WebDaemon) Attach(ctx context.Context, src Source) {
	samples := make(chan []*sample.AccuracySample, 16)
	snaps := make(chan *aggregate.Snapshot, 16)
	sampleSub := s.subs.Track(src.SubscribeSamples(samples))
	snapSub := s.subs.Track(src.SubscribeSnapshots(snaps))

	go func() {
		defer sampleSub.Unsubscribe()
		defer snapSub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case batch := <-samples:
				for _, smp := range batch {
					s.lastKnown.Set(smp.EntityID, smp, ttlcache.DefaultTTL)
				}
				s.feedSamples.Send(batch)
			case snap := <-snaps:
				s.snapshot.Store(snap)
			case err := <-sampleSub.Err():
				if err != nil {
					s.logger.Error("Sample subscription failed", "error", err)
				}
				return
			case err := <-snapSub.Err():
				if err != nil {
					s.logger.Error("Snapshot subscription failed", "error", err)
				}
				return
			}
		}
	}()
}

// Run serves the overlay until ctx is done.
func (s *WebDaemon) Run(ctx context.Context) error {
	ln, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *WebDaemon) Serve(ctx context.Context, ln net.Listener) error {
	go s.lastKnown.Start()
	defer s.lastKnown.Stop()

	server := &http.Server{
		Handler:           s.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		s.subs.Close()
		_ = s.melodyInstance.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	s.logger.Info("Starting overlay", "address", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *WebDaemon) NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(false)
	router.Use(s.loggingMiddleware)

	apiRoutes := router.NewRoute().Subrouter()
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)
	apiRoutes.Path("/chart").HandlerFunc(s.handleChart).Methods(http.MethodGet)
	apiRoutes.Path("/socket").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/vehicles").HandlerFunc(s.handleVehicles).Methods(http.MethodGet)
	apiJSONRoutes.Path("/last/{entity}").HandlerFunc(s.handleLastKnown).Methods(http.MethodGet)
	apiJSONRoutes.Path("/summaries").HandlerFunc(s.handleSummaries).Methods(http.MethodGet)
	apiJSONRoutes.Path("/summaries/{name}").HandlerFunc(s.handleSummary).Methods(http.MethodGet)

	return router
}
