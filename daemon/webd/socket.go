package webd

import (
	"encoding/json"

	"github.com/olahol/melody"
	"github.com/rotblauer/posacc/types/sample"
)

type websocketAction string

const (
	websocketActionSamples websocketAction = "samples"
	websocketActionLast    websocketAction = "last"
)

type broadcast struct {
	Action  websocketAction          `json:"action"`
	Samples []*sample.AccuracySample `json:"samples"`
}

// initMelody sets up the websocket handler.
// New clients get the last known sample of every entity, then every sample batch as it is taken.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	s.melodyInstance.HandleConnect(func(ms *melody.Session) {
		s.logger.Debug("Websocket connected", "remote", ms.Request.RemoteAddr)
		var last []*sample.AccuracySample
		for _, item := range s.lastKnown.Items() {
			last = append(last, item.Value())
		}
		if len(last) == 0 {
			return
		}
		b, err := json.Marshal(broadcast{Action: websocketActionLast, Samples: last})
		if err != nil {
			s.logger.Error("Failed to marshal last known samples", "error", err)
			return
		}
		_ = ms.Write(b)
	})

	// Clients have nothing to say. Log and drop.
	s.melodyInstance.HandleMessage(func(ms *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message", "remote", ms.Request.RemoteAddr, "msg", string(msg))
	})

	s.melodyInstance.HandleDisconnect(func(ms *melody.Session) {
		s.logger.Debug("Websocket disconnected", "remote", ms.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(ms *melody.Session, e error) {
		s.logger.Warn("Websocket error", "error", e, "remote", ms.Request.RemoteAddr)
	})

	batches := make(chan []*sample.AccuracySample, 16)
	sub := s.subs.Track(s.feedSamples.Subscribe(batches))
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case batch := <-batches:
				if s.melodyInstance.Len() == 0 {
					continue
				}
				b, err := json.Marshal(broadcast{Action: websocketActionSamples, Samples: batch})
				if err != nil {
					s.logger.Error("Failed to marshal samples", "error", err)
					continue
				}
				if err := s.melodyInstance.Broadcast(b); err != nil {
					s.logger.Warn("Failed to broadcast samples", "error", err)
				}
			case err := <-sub.Err():
				if err != nil {
					s.logger.Error("Sample feed failed", "error", err)
				}
				return
			}
		}
	}()
}
