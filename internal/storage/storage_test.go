package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"exohab/internal/predict"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func record(id string, ts time.Time, p float64) Record {
	return Record{
		ID:        id,
		Timestamp: ts,
		Source:    SourceSingle,
		Input:     map[string]float64{"pl_rade": 1.0, "pl_eqt": 288},
		Prediction: predict.Prediction{
			IsHabitable:             1,
			HabitabilityProbability: p,
			Confidence:              predict.Confidence(p),
			Classification:          predict.LabelHabitable,
		},
	}
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	dbPath := filepath.Join(tempDir, "habitability.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "dir"))
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestSavePrediction_Recent(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := store.SavePrediction(record(id, base.Add(time.Duration(i)*time.Second), 0.9)); err != nil {
			t.Fatalf("Failed to save prediction %s: %v", id, err)
		}
	}

	recent, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recent))
	}
	if recent[0].ID != "c" || recent[1].ID != "b" {
		t.Errorf("Expected newest first [c b], got [%s %s]", recent[0].ID, recent[1].ID)
	}
	if recent[0].Input["pl_eqt"] != 288 {
		t.Errorf("Expected stored input pl_eqt=288, got %v", recent[0].Input["pl_eqt"])
	}
	if recent[0].Prediction.Classification != predict.LabelHabitable {
		t.Errorf("Unexpected classification %q", recent[0].Prediction.Classification)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected count 3, got %d", count)
	}
}

func TestSavePrediction_RequiresID(t *testing.T) {
	store := newTestStore(t)
	if err := store.SavePrediction(Record{}); err == nil {
		t.Error("Expected error for record without id")
	}
}

func TestSavePrediction_DefaultsTimestamp(t *testing.T) {
	store := newTestStore(t)
	before := time.Now()

	if err := store.SavePrediction(record("x", time.Time{}, 0.5)); err != nil {
		t.Fatalf("Failed to save prediction: %v", err)
	}

	recent, err := store.Recent(1)
	if err != nil || len(recent) != 1 {
		t.Fatalf("Expected one record, got %d (err %v)", len(recent), err)
	}
	if recent[0].Timestamp.Before(before.Add(-time.Second)) {
		t.Errorf("Expected timestamp near now, got %v", recent[0].Timestamp)
	}
}

func TestRange(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var batch []Record
	for i := 0; i < 5; i++ {
		batch = append(batch, record(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute), 0.1))
	}
	if err := store.SavePredictions(batch); err != nil {
		t.Fatalf("Failed to save batch: %v", err)
	}

	got, err := store.Range(base.Add(time.Minute), base.Add(3*time.Minute), 0)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 records in range, got %d", len(got))
	}
	if got[0].ID != "b" || got[2].ID != "d" {
		t.Errorf("Expected oldest-first b..d, got %s..%s", got[0].ID, got[2].ID)
	}

	got, err = store.Range(base.Add(time.Hour), base.Add(2*time.Hour), 0)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty range, got %d records", len(got))
	}

	got, err = store.Range(base, base.Add(time.Hour), 2)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("Expected the two oldest records a, b; got %d records", len(got))
	}
}

func TestRecent_EmptyAndZeroLimit(t *testing.T) {
	store := newTestStore(t)

	recent, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if recent == nil || len(recent) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", recent)
	}

	recent, err = store.Recent(0)
	if err != nil || len(recent) != 0 {
		t.Errorf("Expected no records for zero limit, got %d (err %v)", len(recent), err)
	}
}
