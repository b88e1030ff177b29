// Package store persists the recorded motion sequence and the scan history
// in a local storm (bolt) database.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/asdine/storm/v3"
	bolt "go.etcd.io/bbolt"

	"github.com/bluefox/agrobot/motion"
)

// sequenceID is the key of the single retained sequence.
const sequenceID = 1

type sequenceRecord struct {
	ID    int `storm:"id"`
	Steps []motion.Step
	Saved time.Time
}

// ScanRecord is the outcome of one plant scan. The image itself is not kept.
type ScanRecord struct {
	ID         int `storm:"increment"`
	Label      int
	Class      string `storm:"index"`
	Name       string
	Confidence float64
	Action     string
	Time       time.Time
}

type DB struct {
	db *storm.DB
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	db, err := storm.Open(path, storm.BoltOptions(0600, &bolt.Options{Timeout: time.Second}))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// call inits for each type
	for _, t := range []interface{}{&sequenceRecord{}, &ScanRecord{}} {
		if err := db.Init(t); err != nil {
			db.Close()
			return nil, fmt.Errorf("init %T: %w", t, err)
		}
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// SaveSequence replaces the stored sequence.
func (d *DB) SaveSequence(steps []motion.Step) error {
	return d.db.Save(&sequenceRecord{ID: sequenceID, Steps: steps, Saved: time.Now()})
}

// LoadSequence returns the stored sequence, or nil if none was ever saved.
func (d *DB) LoadSequence() ([]motion.Step, error) {
	var rec sequenceRecord
	err := d.db.One("ID", sequenceID, &rec)
	if errors.Is(err, storm.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.Steps, nil
}

// SaveScan stores rec and sets its ID.
func (d *DB) SaveScan(rec *ScanRecord) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	return d.db.Save(rec)
}

// RecentScans returns up to n scans, newest first.
func (d *DB) RecentScans(n int) ([]ScanRecord, error) {
	var recs []ScanRecord
	err := d.db.All(&recs, storm.Limit(n), storm.Reverse())
	if errors.Is(err, storm.ErrNotFound) {
		return nil, nil
	}
	return recs, err
}
