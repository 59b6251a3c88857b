package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JovSele/patentapi/internal/clock"
	"github.com/JovSele/patentapi/internal/patent"
	cachedomain "github.com/JovSele/patentapi/internal/patentcache/domain"
	cacherepository "github.com/JovSele/patentapi/internal/patentcache/repository"
	sourcedomain "github.com/JovSele/patentapi/internal/source/domain"
)

type mapAdapter struct {
	src     patent.Source
	records map[string]*patent.Record
	errs    map[string]error
	calls   int
}

func (a *mapAdapter) Source() patent.Source { return a.src }

func (a *mapAdapter) Fetch(_ context.Context, id patent.CanonicalIdentifier) (*patent.Record, error) {
	a.calls++
	if err, ok := a.errs[id.String()]; ok {
		return nil, err
	}
	if rec, ok := a.records[id.String()]; ok {
		return rec, nil
	}
	return nil, sourcedomain.ErrNotFound
}

func setupRefreshTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS patent_cache (
			id INTEGER PRIMARY KEY,
			patent_number TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			expiry_date DATE,
			jurisdictions TEXT NOT NULL DEFAULT '[]',
			lapse_reason TEXT,
			source TEXT NOT NULL,
			raw_payload TEXT,
			fetch_count INTEGER NOT NULL DEFAULT 1,
			last_fetched DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	).Error; err != nil {
		t.Fatalf("create patent_cache: %v", err)
	}
	if err := db.Exec(`DELETE FROM patent_cache`).Error; err != nil {
		t.Fatalf("reset patent_cache: %v", err)
	}
	return db
}

func grantedRecord(t *testing.T, number string, fetchedAt time.Time) *patent.Record {
	t.Helper()
	id, err := patent.Normalize(number)
	if err != nil {
		t.Fatalf("normalize %q: %v", number, err)
	}
	expiry := time.Date(2033, time.June, 1, 0, 0, 0, 0, time.UTC)
	return &patent.Record{
		Identifier:    id,
		Status:        patent.StatusGranted,
		ExpiryDate:    &expiry,
		Jurisdictions: patent.Jurisdictions(id.Jurisdiction),
		Source:        patent.SourceEPO,
		FetchedAt:     fetchedAt,
	}
}

func newTestWorker(t *testing.T, db *gorm.DB, adapter sourcedomain.Adapter, now time.Time) *Worker {
	t.Helper()
	registry := sourcedomain.NewRegistry()
	registry.Register(patent.JurisdictionEP, adapter)
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Worker{
		db:        db,
		log:       zap.NewNop(),
		clock:     clock.Fixed{At: now},
		genID:     node,
		registry:  registry,
		cacherepo: cacherepository.Provide(),
		cfg:       Config{TopN: 10, PollInterval: time.Hour, CacheTTL: 30 * 24 * time.Hour}.withDefaults(),
	}
}

func seedEntry(t *testing.T, db *gorm.DB, repo cachedomain.Repository, rec *patent.Record) {
	t.Helper()
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	entry, err := cachedomain.FromRecord(node.Generate(), *rec)
	if err != nil {
		t.Fatalf("from record: %v", err)
	}
	if _, err := repo.Upsert(context.Background(), db, entry); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
}

func TestRunOnceRefreshesStaleEntries(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	db := setupRefreshTestDB(t)
	repo := cacherepository.Provide()

	seedEntry(t, db, repo, grantedRecord(t, "EP1111111", now.AddDate(0, 0, -40)))
	seedEntry(t, db, repo, grantedRecord(t, "EP2222222", now.AddDate(0, 0, -35)))
	seedEntry(t, db, repo, grantedRecord(t, "EP3333333", now.Add(-time.Hour)))

	adapter := &mapAdapter{
		src: patent.SourceEPO,
		records: map[string]*patent.Record{
			"EP1111111": grantedRecord(t, "EP1111111", now),
			"EP2222222": grantedRecord(t, "EP2222222", now),
		},
	}
	worker := newTestWorker(t, db, adapter, now)

	processed, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if processed != 2 {
		t.Fatalf("processed = %d, want 2", processed)
	}
	if adapter.calls != 2 {
		t.Fatalf("adapter calls = %d, want 2 (fresh entry untouched)", adapter.calls)
	}

	for _, number := range []string{"EP1111111", "EP2222222"} {
		entry, err := repo.Find(context.Background(), db, number)
		if err != nil {
			t.Fatalf("find %s: %v", number, err)
		}
		if entry == nil {
			t.Fatalf("entry %s missing after refresh", number)
		}
		if entry.Stale(now, worker.cfg.CacheTTL) {
			t.Fatalf("entry %s still stale after refresh", number)
		}
	}
}

func TestRunOnceSkipsFailingEntries(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	db := setupRefreshTestDB(t)
	repo := cacherepository.Provide()

	seedEntry(t, db, repo, grantedRecord(t, "EP1111111", now.AddDate(0, 0, -40)))
	seedEntry(t, db, repo, grantedRecord(t, "EP2222222", now.AddDate(0, 0, -40)))

	adapter := &mapAdapter{
		src: patent.SourceEPO,
		records: map[string]*patent.Record{
			"EP2222222": grantedRecord(t, "EP2222222", now),
		},
		errs: map[string]error{
			"EP1111111": sourcedomain.ErrTransient,
		},
	}
	worker := newTestWorker(t, db, adapter, now)

	processed, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	// The failed entry keeps its old fetch time.
	entry, err := repo.Find(context.Background(), db, "EP1111111")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !entry.Stale(now, worker.cfg.CacheTTL) {
		t.Fatal("failed entry should remain stale")
	}
}

func TestRunOnceWithEmptyBacklog(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	db := setupRefreshTestDB(t)
	repo := cacherepository.Provide()

	seedEntry(t, db, repo, grantedRecord(t, "EP3333333", now.Add(-time.Hour)))

	adapter := &mapAdapter{src: patent.SourceEPO}
	worker := newTestWorker(t, db, adapter, now)

	processed, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if processed != 0 {
		t.Fatalf("processed = %d, want 0", processed)
	}
	if adapter.calls != 0 {
		t.Fatalf("adapter calls = %d, want 0", adapter.calls)
	}
}
