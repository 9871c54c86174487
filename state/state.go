/*
Package state keeps the index of finished sessions.

The index is a bbolt database in the session output directory. A writable handle
holds the database file lock, so concurrent writers wait up to OpenTimeout.
*/
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotblauer/posacc/params"
	"go.etcd.io/bbolt"
)

var sessionsBucket = []byte("sessions")

var ErrNoSessions = errors.New("no sessions recorded")

// OpenTimeout bounds the wait for another process holding the index.
var OpenTimeout = 2 * time.Second

// Record describes one finished session.
type Record struct {
	ID       string    `json:"id"`
	Stamp    string    `json:"stamp"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	RowLog  string `json:"row_log"`
	Summary string `json:"summary"`

	Entries      int64   `json:"entries"`
	Vehicles     int     `json:"vehicles"`
	AverageError float64 `json:"average_error"`
	MaxError     float64 `json:"max_error"`

	// LogDisabled is set when the row log could not be written.
	LogDisabled bool `json:"log_disabled"`

	// NonFinite is set when the session's error statistics were NaN or infinite.
	// Those values are stored as zero.
	NonFinite bool `json:"non_finite,omitempty"`
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type Index struct {
	DB    *bbolt.DB
	rOnly bool
}

// OpenIndex opens (or creates, unless readOnly) the index in dir.
func OpenIndex(dir string, readOnly bool) (*Index, error) {
	db, err := bbolt.Open(filepath.Join(dir, params.SessionIndexDBName), 0600, &bbolt.Options{
		ReadOnly: readOnly,
		Timeout:  OpenTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open session index: %w", err)
	}
	return &Index{DB: db, rOnly: readOnly}, nil
}

func (x *Index) Close() error {
	return x.DB.Close()
}

// RecordSession stores r under its id, replacing an earlier record with the same id.
// Non-finite errors are stored as zero with NonFinite set, since JSON cannot hold them.
func (x *Index) RecordSession(r *Record) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("record session: missing id")
	}
	if !finite(r.AverageError) || !finite(r.MaxError) {
		c := *r
		c.NonFinite = true
		if !finite(c.AverageError) {
			c.AverageError = 0
		}
		if !finite(c.MaxError) {
			c.MaxError = 0
		}
		r = &c
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return x.DB.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(sessionsBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(r.ID), b)
	})
}

// Sessions returns every record, most recently finished first.
func (x *Index) Sessions() ([]*Record, error) {
	var out []*Record
	err := x.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			r := &Record{}
			if err := json.Unmarshal(v, r); err != nil {
				return fmt.Errorf("session %s: %w", k, err)
			}
			out = append(out, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Finished.After(out[j].Finished)
	})
	return out, nil
}

// Latest returns the most recently finished session.
func (x *Index) Latest() (*Record, error) {
	all, err := x.Sessions()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNoSessions
	}
	return all[0], nil
}
