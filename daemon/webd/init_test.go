package webd

import (
	"testing"

	"github.com/ethereum/go-ethereum/event"
	"github.com/rotblauer/posacc/aggregate"
	"github.com/rotblauer/posacc/common"
	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/types/sample"
)

func init() {
	common.SlogResetLevel(1000)
}

type testSource struct {
	samples   event.FeedOf[[]*sample.AccuracySample]
	snapshots event.FeedOf[*aggregate.Snapshot]
}

func (f *testSource) SubscribeSamples(ch chan<- []*sample.AccuracySample) event.Subscription {
	return f.samples.Subscribe(ch)
}

func (f *testSource) SubscribeSnapshots(ch chan<- *aggregate.Snapshot) event.Subscription {
	return f.snapshots.Subscribe(ch)
}

func newTestWebDaemon(t *testing.T, summaryDir string) *WebDaemon {
	t.Helper()
	c := params.DefaultTestWebDaemonConfig()
	c.SummaryDir = summaryDir
	s, err := NewWebDaemon(c)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		s.subs.Close()
		_ = s.melodyInstance.Close()
	})
	return s
}
