// Package storage provides persistent prediction history for the habitability service.
// It uses BoltDB as the underlying storage engine; records are keyed by timestamp so
// recent and time-range queries are cursor scans.
package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"exohab/internal/predict"

	"go.etcd.io/bbolt"
)

const (
	dbFile            = "habitability.db"
	predictionsBucket = "predictions" // Bucket name for prediction records
)

// Sources of a stored prediction.
const (
	SourceSingle    = "single"
	SourceBatch     = "batch"
	SourceWebSocket = "websocket"
)

// Record is one stored prediction.
type Record struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Source     string             `json:"source"`
	Input      map[string]float64 `json:"input_data"`
	Prediction predict.Prediction `json:"prediction"`
}

// Store provides persistent storage for predictions using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New opens (or creates) the history database under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePrediction stores one prediction. A zero Timestamp is set to now.
func (s *Store) SavePrediction(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return s.SavePredictions([]Record{rec})
}

// SavePredictions stores records in a single transaction.
func (s *Store) SavePredictions(recs []Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		for _, rec := range recs {
			if rec.Timestamp.IsZero() {
				rec.Timestamp = time.Now().UTC()
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal prediction: %w", err)
			}
			if err := b.Put(recordKey(rec.Timestamp, rec.ID), data); err != nil {
				return fmt.Errorf("put prediction %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	records := make([]Record, 0)
	if limit <= 0 {
		return records, nil
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// Range returns up to limit records with start <= timestamp <= end, oldest first.
// A limit <= 0 returns every record in the window.
func (s *Store) Range(start, end time.Time, limit int) ([]Record, error) {
	records := make([]Record, 0)
	endPrefix := timePrefix(end)

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		for k, v := c.Seek(timePrefix(start)); k != nil && bytes.Compare(k[:8], endPrefix) <= 0; k, v = c.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(predictionsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

// recordKey orders records by time; the id keeps keys unique within a nanosecond.
func recordKey(ts time.Time, id string) []byte {
	key := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(key, uint64(ts.UnixNano()))
	return append(key, id...)
}

func timePrefix(ts time.Time) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(ts.UnixNano()))
	return key
}
