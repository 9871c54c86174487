package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/types/frame"
	"github.com/tidwall/gjson"
)

const AttrType = "type"

// MaxLineSize bounds one transport line. Frames with many entities can be large.
var MaxLineSize = 16 * 1024 * 1024

var ErrInvalidLine = errors.New("invalid transport line")

// DecodeMessage decodes one NDJSON transport line.
// Lines without a type are frames.
func DecodeMessage(line []byte) (*frame.Message, error) {
	if !gjson.ValidBytes(line) {
		return nil, ErrInvalidLine
	}
	kind := frame.Kind(gjson.GetBytes(line, AttrType).String())
	switch kind {
	case "", frame.KindFrame:
		f := &frame.Frame{}
		if err := json.Unmarshal(line, f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLine, err)
		}
		return &frame.Message{Kind: frame.KindFrame, Frame: f}, nil
	case frame.KindExport, frame.KindClear, frame.KindEnd:
		return &frame.Message{Kind: kind}, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidLine, kind)
}

// ReadMessages decodes transport lines from r until EOF or ctx is done.
// Undecodable lines are logged and skipped. Repeated identical frames are dropped.
// The error channel yields at most one read error after the message channel closes.
func ReadMessages(ctx context.Context, r io.Reader) (<-chan *frame.Message, <-chan error) {
	out := make(chan *frame.Message)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)

		met := newTickScanMeter(params.MeterInterval)
		defer met.stop()

		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		n := 0
		for sc.Scan() {
			n++
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			m, err := DecodeMessage(line)
			if err != nil {
				slog.Warn("Skipping transport line", "line", n, "error", err)
				continue
			}
			met.mark(m, len(line))
			select {
			case <-ctx.Done():
				return
			case out <- m:
			}
		}
		if err := sc.Err(); err != nil {
			errs <- fmt.Errorf("scanner(%w)", err)
		}
	}()
	return Filter(ctx, NewDedupeLRUFunc(params.DedupeCacheSize), out), errs
}
