/*
Package gate applies the position accuracy threshold to the newest session report.

It runs once per CI invocation: locate a report, load it, evaluate it, exit.
There are no retries; a report that cannot be found or read is not a pass.
*/
package gate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotblauer/posacc/params"
)

var ErrNoData = errors.New("no accuracy data")

type Status int

const (
	StatusNoData Status = iota
	StatusPass
	StatusFail
	StatusInconclusive
)

func (s Status) String() string {
	switch s {
	case StatusNoData:
		return "NO_DATA"
	case StatusPass:
		return "PASS"
	case StatusFail:
		return "FAIL"
	case StatusInconclusive:
		return "INCONCLUSIVE"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

var defaultPatterns = []string{
	params.SummaryPrefix + "*" + params.SummaryExt,
	params.RowLogPrefix + "*" + params.RowLogExt,
}

// FindLatest returns the most recently modified report in dir.
// Without a pattern, summaries are searched before row logs.
func FindLatest(dir, pattern string) (string, error) {
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("%w: log directory %s: %v", ErrNoData, dir, err)
	}
	patterns := defaultPatterns
	if pattern != "" {
		patterns = []string{pattern}
	}
	for _, p := range patterns {
		newest, n, err := newestMatch(dir, p)
		if err != nil {
			return "", err
		}
		if newest != "" {
			slog.Debug("Found reports", "pattern", p, "matches", n, "selected", newest)
			return newest, nil
		}
		slog.Debug("No reports for pattern", "pattern", p)
	}
	return "", fmt.Errorf("%w: no reports in %s matching %s", ErrNoData, dir, strings.Join(patterns, ", "))
}

// newestMatch picks by modification time. Equal times fall back to name order,
// which for stamped names is creation order.
func newestMatch(dir, pattern string) (string, int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", 0, err
	}
	type cand struct {
		path string
		mod  int64
	}
	var cands []cand
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		cands = append(cands, cand{m, fi.ModTime().UnixNano()})
	}
	if len(cands) == 0 {
		return "", 0, nil
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].mod != cands[j].mod {
			return cands[i].mod < cands[j].mod
		}
		return cands[i].path < cands[j].path
	})
	return cands[len(cands)-1].path, len(cands), nil
}
