package gate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/report"
)

// Load reads a summary or a row log.
// When a summary cannot be parsed, the row log with the same stamp is used instead,
// else the newest row log next to it. The returned path is the file actually used.
func Load(path string) (*report.Summary, string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case params.RowLogExt:
		s, err := loadRowLog(path)
		return s, path, err
	case params.SummaryExt:
		s, err := loadSummary(path)
		if err == nil {
			return s, path, nil
		}
		slog.Warn("Failed to parse summary", "path", path, "error", err)
		fallback := findMatchingRowLog(path)
		if fallback == "" {
			slog.Debug("No row log fallback available")
			return nil, path, err
		}
		slog.Info("Using row log fallback", "path", fallback, "size", fileSize(fallback))
		s, ferr := loadRowLog(fallback)
		if ferr != nil {
			return nil, fallback, fmt.Errorf("fallback %s: %w (summary: %v)", fallback, ferr, err)
		}
		return s, fallback, nil
	}
	return nil, path, fmt.Errorf("unsupported report format: %s", path)
}

func loadSummary(path string) (*report.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	slog.Debug("Reading summary", "path", path, "size", fileSize(path))
	return report.ParseText(f)
}

func loadRowLog(path string) (*report.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.FromRowLog(f, report.Meta{LogFile: path}, params.DefaultWindowSize)
}

// findMatchingRowLog maps statistics_summary_<stamp>[_<n>].txt to position_accuracy_<stamp>.csv.
func findMatchingRowLog(summaryPath string) string {
	dir := filepath.Dir(summaryPath)
	stem := strings.TrimSuffix(filepath.Base(summaryPath), filepath.Ext(summaryPath))
	stamp, ok := strings.CutPrefix(stem, params.SummaryPrefix)
	if ok && stamp != "" {
		candidates := []string{stamp}
		if i := strings.LastIndex(stamp, "_"); i > 0 {
			candidates = append(candidates, stamp[:i])
		}
		for _, c := range candidates {
			p := filepath.Join(dir, params.RowLogPrefix+c+params.RowLogExt)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	newest, _, err := newestMatch(dir, params.RowLogPrefix+"*"+params.RowLogExt)
	if err != nil {
		return ""
	}
	return newest
}

func fileSize(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(fi.Size()))
}
