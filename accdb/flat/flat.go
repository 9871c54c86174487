package flat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotblauer/posacc/params"
)

// Flat is a directory of session artifacts.
type Flat struct {
	// path includes the root directory.
	path string
}

func NewFlatWithRoot(root string) *Flat {
	root = filepath.Clean(root)
	// If root is not absolute, make it absolute.
	if !filepath.IsAbs(root) {
		root, _ = filepath.Abs(root)
	}
	return &Flat{path: root}
}

func (f *Flat) Joining(paths ...string) *Flat {
	return &Flat{path: filepath.Join(append([]string{f.path}, paths...)...)}
}

// Exists returns true if the directory exists.
func (f *Flat) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

func (f *Flat) MkdirAll() error {
	return os.MkdirAll(f.path, 0770)
}

func (f *Flat) Path() string {
	return f.path
}

// Stamp formats a creation time for artifact names.
func Stamp(t time.Time) string {
	return t.Format(params.StampLayout)
}

// RowLogName is the row log file name for a session stamp.
func RowLogName(stamp string) string {
	return params.RowLogPrefix + stamp + params.RowLogExt
}

// SummaryName is the final summary file name for a session stamp.
func SummaryName(stamp string) string {
	return params.SummaryPrefix + stamp + params.SummaryExt
}

// ExportName is the name of the n-th intermediate summary of a session.
func ExportName(stamp string, n int) string {
	return fmt.Sprintf("%s%s_%03d%s", params.SummaryPrefix, stamp, n, params.SummaryExt)
}

// ReserveStamp returns a stamp for t whose row log does not exist yet in the directory.
// Repeated runs within the same second get a numeric suffix.
func (f *Flat) ReserveStamp(t time.Time) string {
	base := Stamp(t)
	stamp := base
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(f.path, RowLogName(stamp))); errors.Is(err, os.ErrNotExist) {
			return stamp
		}
		stamp = fmt.Sprintf("%s_%d", base, i)
	}
}

// WriteFileAtomic writes data to a temporary file in the same directory
// and renames it into place, so readers see either nothing or the whole file.
func (f *Flat) WriteFileAtomic(name string, data []byte) (string, error) {
	target := filepath.Join(f.path, name)
	tmp, err := os.CreateTemp(f.path, "."+name+".tmp*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0660); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", err
	}
	return target, nil
}
