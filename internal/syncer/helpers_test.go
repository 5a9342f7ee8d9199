package syncer

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/logging"
	"github.com/dmitrijs2005/movesync/internal/remote"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE accounts (
  email TEXT PRIMARY KEY,
  role TEXT NOT NULL,
  display_name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  credential_hash TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
CREATE TABLE balances (
  owner_email TEXT PRIMARY KEY,
  amount INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
CREATE TABLE balance_transactions (
  id TEXT PRIMARY KEY,
  owner_email TEXT NOT NULL,
  counterparty_email TEXT NOT NULL DEFAULT '',
  direction TEXT NOT NULL,
  source TEXT NOT NULL,
  amount INTEGER NOT NULL,
  balance_before INTEGER NOT NULL,
  balance_after INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
CREATE TABLE driver_profiles (
  email TEXT PRIMARY KEY,
  certifications TEXT NOT NULL DEFAULT '',
  online INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
CREATE TABLE rentals (
  id TEXT PRIMARY KEY,
  vehicle_id TEXT NOT NULL,
  renter_email TEXT NOT NULL,
  owner_email TEXT NOT NULL,
  driver_email TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  start_at INTEGER NOT NULL,
  end_at INTEGER NOT NULL,
  assigned_at INTEGER NOT NULL DEFAULT 0,
  delivered_at INTEGER NOT NULL DEFAULT 0,
  returned_early_at INTEGER NOT NULL DEFAULT 0,
  price_total INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
CREATE TABLE driver_rentals (
  id TEXT PRIMARY KEY,
  renter_email TEXT NOT NULL,
  driver_email TEXT NOT NULL,
  status TEXT NOT NULL,
  start_at INTEGER NOT NULL,
  end_at INTEGER NOT NULL,
  assigned_at INTEGER NOT NULL DEFAULT 0,
  completed_at INTEGER NOT NULL DEFAULT 0,
  price_total INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  rental_id TEXT NOT NULL,
  payer_email TEXT NOT NULL,
  owner_amount INTEGER NOT NULL DEFAULT 0,
  driver_amount INTEGER NOT NULL DEFAULT 0,
  platform_fee INTEGER NOT NULL DEFAULT 0,
  method TEXT NOT NULL,
  status TEXT NOT NULL,
  balance_synced INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
CREATE TABLE income_records (
  id TEXT PRIMARY KEY,
  rental_id TEXT NOT NULL,
  recipient_email TEXT NOT NULL,
  amount INTEGER NOT NULL,
  source TEXT NOT NULL,
  balance_synced INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
CREATE TABLE vehicles (
  id TEXT PRIMARY KEY,
  owner_email TEXT NOT NULL,
  make TEXT NOT NULL DEFAULT '',
  model TEXT NOT NULL DEFAULT '',
  plate TEXT NOT NULL DEFAULT '',
  daily_rate INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
CREATE TABLE personal_vehicles (
  id TEXT PRIMARY KEY,
  owner_email TEXT NOT NULL,
  make TEXT NOT NULL DEFAULT '',
  model TEXT NOT NULL DEFAULT '',
  plate TEXT NOT NULL DEFAULT '',
  daily_rate INTEGER NOT NULL DEFAULT 0,
  available INTEGER NOT NULL DEFAULT 1,
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

// fakeCollection is an in-memory remote.Collection. Documents are stored as
// field maps; Upsert merges like the CouchDB implementation does. Failures
// can be injected per document id.
type fakeCollection struct {
	mu         sync.Mutex
	docs       map[string]map[string]any
	upsertIDs  []string
	upsertErrs map[string]error
	findErr    error
	feed       chan remote.Change
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{
		docs:       make(map[string]map[string]any),
		upsertErrs: make(map[string]error),
	}
}

func (f *fakeCollection) Get(ctx context.Context, id string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return json.Marshal(doc)
}

func (f *fakeCollection) Find(ctx context.Context, selector map[string]any) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []json.RawMessage
	for _, doc := range f.docs {
		match := true
		for k, v := range selector {
			if !reflect.DeepEqual(doc[k], v) {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (f *fakeCollection) Upsert(ctx context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.upsertErrs[id]; err != nil {
		return err
	}
	doc, ok := f.docs[id]
	if !ok {
		doc = make(map[string]any)
		f.docs[id] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	f.upsertIDs = append(f.upsertIDs, id)
	return nil
}

func (f *fakeCollection) Changes(ctx context.Context) (<-chan remote.Change, error) {
	return f.feed, nil
}

func (f *fakeCollection) upserts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.upsertIDs...)
}

// seed stores a document directly, bypassing the upsert log.
func (f *fakeCollection) seed(id string, doc map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id] = doc
}

func (f *fakeCollection) doc(id string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[id]
}
