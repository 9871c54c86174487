package flat

import (
	"bufio"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/types/sample"
)

var ErrClosed = errors.New("session log closed")

type SessionLogConfig struct {
	// AutoSaveThreshold forces flush and fsync every N appended rows.
	AutoSaveThreshold int
	Flag              int
	FilePerm          os.FileMode
	DirPerm           os.FileMode
}

func DefaultSessionLogConfig() *SessionLogConfig {
	return &SessionLogConfig{
		AutoSaveThreshold: params.DefaultAutoSaveThreshold,
		// O_EXCL: a session never appends to another session's log.
		Flag:     os.O_WRONLY | os.O_APPEND | os.O_CREATE | os.O_EXCL,
		FilePerm: 0660,
		DirPerm:  0770,
	}
}

// SessionLog is the append-only row log of one session.
// While open, an exclusive lock is held on the file.
type SessionLog struct {
	f      *os.File
	bw     *bufio.Writer
	csvw   *csv.Writer
	count  int64
	closed bool

	SessionLogConfig
}

// NewSessionLog creates the log file at path and writes the header row.
func NewSessionLog(path string, config *SessionLogConfig) (*SessionLog, error) {
	if config == nil {
		config = DefaultSessionLogConfig()
	}
	if config.AutoSaveThreshold < 1 {
		config.AutoSaveThreshold = params.DefaultAutoSaveThreshold
	}
	if err := os.MkdirAll(filepath.Dir(path), config.DirPerm); err != nil {
		return nil, err
	}
	fi, err := os.OpenFile(path, config.Flag, config.FilePerm)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(fi.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		fi.Close()
		return nil, err
	}
	bw := bufio.NewWriter(fi)
	l := &SessionLog{
		f:                fi,
		bw:               bw,
		csvw:             csv.NewWriter(bw),
		SessionLogConfig: *config,
	}
	if err := l.csvw.Write(sample.Header()); err != nil {
		l.MaybeClose()
		return nil, err
	}
	// The header is flushed right away so an early crash still leaves a parseable file.
	if err := l.Flush(); err != nil {
		l.MaybeClose()
		return nil, err
	}
	return l, nil
}

// Append writes one row. Every AutoSaveThreshold rows the log is flushed to disk.
func (l *SessionLog) Append(s *sample.AccuracySample) error {
	if l.closed {
		return ErrClosed
	}
	if err := l.csvw.Write(s.Row()); err != nil {
		return err
	}
	l.count++
	if l.count%int64(l.AutoSaveThreshold) == 0 {
		return l.Flush()
	}
	return nil
}

// Flush pushes buffered rows to the file and syncs it.
func (l *SessionLog) Flush() error {
	if l.closed {
		return ErrClosed
	}
	l.csvw.Flush()
	if err := l.csvw.Error(); err != nil {
		return err
	}
	if err := l.bw.Flush(); err != nil {
		return err
	}
	return l.f.Sync()
}

// Close flushes and closes the log. Closing a closed log is a no-op.
func (l *SessionLog) Close() error {
	if l.closed {
		return nil
	}
	err := l.Flush()
	l.closed = true
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// MaybeClose closes the file, ignoring errors.
func (l *SessionLog) MaybeClose() {
	if l.closed {
		return
	}
	l.closed = true
	l.csvw.Flush()
	_ = l.bw.Flush()
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	_ = l.f.Close()
}

// Count is the number of rows appended, excluding the header.
func (l *SessionLog) Count() int64 {
	return l.count
}

func (l *SessionLog) Path() string {
	return l.f.Name()
}

func (l *SessionLog) Closed() bool {
	return l.closed
}
