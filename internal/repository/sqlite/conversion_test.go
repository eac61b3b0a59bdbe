package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sakif/business-cards/internal/model"
	"github.com/sakif/business-cards/internal/repository"
)

// newTestDB opens a fresh in-memory database that is closed with the test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func recordTestConversion(t *testing.T, db *DB, cardID, status string, at time.Time) *model.Conversion {
	t.Helper()
	c := &model.Conversion{
		CardID:    cardID,
		Converter: "wkhtmltopdf",
		Status:    status,
		Bytes:     1024,
		Duration:  1500 * time.Millisecond,
		CreatedAt: at,
	}
	if err := db.Record(context.Background(), c); err != nil {
		t.Fatalf("failed to record conversion: %v", err)
	}
	return c
}

func TestRecord_FillsIDAndTime(t *testing.T) {
	db := newTestDB(t)

	c := &model.Conversion{CardID: "0123456789abcdef0123456789abcdef", Converter: "docker", Status: model.ConversionFailed, Error: "exit 1"}
	if err := db.Record(context.Background(), c); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if c.ID == "" {
		t.Error("Record() did not set ID")
	}
	if c.CreatedAt.IsZero() {
		t.Error("Record() did not set CreatedAt")
	}
}

func TestList_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	recordTestConversion(t, db, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", model.ConversionSucceeded, base)
	recordTestConversion(t, db, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", model.ConversionFailed, base.Add(time.Minute))

	got, err := db.List(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d rows, want 2", len(got))
	}
	if got[0].CardID != "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" {
		t.Errorf("first row = %s, want the newest conversion", got[0].CardID)
	}
	if got[1].Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v, want 1.5s", got[1].Duration)
	}
}

func TestList_Pagination(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		recordTestConversion(t, db, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", model.ConversionSucceeded, base.Add(time.Duration(i)*time.Second))
	}

	page, err := db.List(context.Background(), repository.ListOptions{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 1 {
		t.Errorf("last page has %d rows, want 1", len(page))
	}
}

func TestList_FilterByCard(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	recordTestConversion(t, db, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", model.ConversionSucceeded, now)
	recordTestConversion(t, db, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", model.ConversionFailed, now)
	recordTestConversion(t, db, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", model.ConversionSucceeded, now)

	got, err := db.List(context.Background(), repository.ListOptions{CardID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() for one card returned %d rows, want 2", len(got))
	}
	for _, c := range got {
		if c.CardID != "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
			t.Errorf("List() returned a row of card %s", c.CardID)
		}
	}

	none, err := db.List(context.Background(), repository.ListOptions{CardID: "cccccccccccccccccccccccccccccccc"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("List() for an unknown card returned %d rows, want 0", len(none))
	}
}

func TestNew_FileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	recordTestConversion(t, db, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", model.ConversionSucceeded, time.Now().UTC())
	db.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.List(context.Background(), repository.ListOptions{CardID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("List() after reopen returned %d rows, want 1", len(got))
	}
}
