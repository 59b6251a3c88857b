package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JovSele/patentapi/internal/cache"
	"github.com/JovSele/patentapi/internal/clientauth/domain"
	"github.com/JovSele/patentapi/internal/clock"
	ratelimitdomain "github.com/JovSele/patentapi/internal/ratelimit/domain"
	"github.com/JovSele/patentapi/pkg/repository"
)

func setupKeyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS api_keys (
			id INTEGER PRIMARY KEY,
			key_hash TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			tier TEXT NOT NULL DEFAULT 'free',
			is_active INTEGER NOT NULL DEFAULT 1,
			expires_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	).Error; err != nil {
		t.Fatalf("create api_keys: %v", err)
	}
	if err := db.Exec(`DELETE FROM api_keys`).Error; err != nil {
		t.Fatalf("reset api_keys: %v", err)
	}
	return db
}

func newTestResolver(t *testing.T, db *gorm.DB, now time.Time) *Resolver {
	t.Helper()
	return &Resolver{
		keys:     repository.ProvideStore[domain.APIKey](db),
		log:      zap.NewNop(),
		clock:    clock.Fixed{At: now},
		resolved: cache.NewTTLCache[string, domain.Client](),
	}
}

func insertKey(t *testing.T, db *gorm.DB, raw, name, tier string, active bool, expiresAt *time.Time) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO api_keys (id, key_hash, name, tier, is_active, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UnixNano(), domain.HashKey(raw), name, tier, active, expiresAt,
	).Error; err != nil {
		t.Fatalf("insert api key: %v", err)
	}
}

func TestResolveKnownKey(t *testing.T) {
	db := setupKeyTestDB(t)
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	r := newTestResolver(t, db, now)
	insertKey(t, db, "pk_live_abc", "acme", "pro", true, nil)

	client := r.Resolve(context.Background(), domain.Credentials{APIKey: "pk_live_abc", ClientIP: "203.0.113.9"})
	if client.Anonymous {
		t.Fatal("expected authenticated client")
	}
	if client.Tier != ratelimitdomain.TierPro {
		t.Fatalf("tier = %q, want pro", client.Tier)
	}
	if client.Name != "acme" {
		t.Fatalf("name = %q, want acme", client.Name)
	}
	if client.Key != domain.HashKey("pk_live_abc") {
		t.Fatalf("rate limit key = %q, want key hash", client.Key)
	}
}

func TestResolveUsesCacheOnRepeat(t *testing.T) {
	db := setupKeyTestDB(t)
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	r := newTestResolver(t, db, now)
	insertKey(t, db, "pk_live_cached", "acme", "starter", true, nil)

	first := r.Resolve(context.Background(), domain.Credentials{APIKey: "pk_live_cached"})
	if first.Anonymous {
		t.Fatal("expected authenticated client")
	}

	// Row deletion is invisible until the resolved entry expires.
	if err := db.Exec(`DELETE FROM api_keys`).Error; err != nil {
		t.Fatalf("delete keys: %v", err)
	}
	second := r.Resolve(context.Background(), domain.Credentials{APIKey: "pk_live_cached"})
	if second.Anonymous {
		t.Fatal("expected cached identity to survive row deletion")
	}
	if second.Tier != ratelimitdomain.TierStarter {
		t.Fatalf("tier = %q, want starter", second.Tier)
	}
}

func TestResolveUnknownKeyIsAnonymous(t *testing.T) {
	db := setupKeyTestDB(t)
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	r := newTestResolver(t, db, now)

	client := r.Resolve(context.Background(), domain.Credentials{APIKey: "pk_live_nope", ClientIP: "203.0.113.9"})
	if !client.Anonymous {
		t.Fatal("expected anonymous client")
	}
	if client.Key != "ip:203.0.113.9" {
		t.Fatalf("rate limit key = %q, want ip keyed", client.Key)
	}
	if client.Tier != ratelimitdomain.TierFree {
		t.Fatalf("tier = %q, want free", client.Tier)
	}
}

func TestResolveInactiveKeyIsAnonymous(t *testing.T) {
	db := setupKeyTestDB(t)
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	r := newTestResolver(t, db, now)
	insertKey(t, db, "pk_live_revoked", "acme", "pro", false, nil)

	client := r.Resolve(context.Background(), domain.Credentials{APIKey: "pk_live_revoked", ClientIP: "203.0.113.9"})
	if !client.Anonymous {
		t.Fatal("revoked key must resolve to anonymous")
	}
}

func TestResolveExpiredKeyIsAnonymous(t *testing.T) {
	db := setupKeyTestDB(t)
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	r := newTestResolver(t, db, now)
	expired := now.Add(-time.Hour)
	insertKey(t, db, "pk_live_old", "acme", "pro", true, &expired)

	client := r.Resolve(context.Background(), domain.Credentials{APIKey: "pk_live_old", ClientIP: "203.0.113.9"})
	if !client.Anonymous {
		t.Fatal("expired key must resolve to anonymous")
	}
}

func TestResolveFailsOpenOnDatabaseError(t *testing.T) {
	db := setupKeyTestDB(t)
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	r := newTestResolver(t, db, now)
	if err := db.Exec(`DROP TABLE api_keys`).Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}

	client := r.Resolve(context.Background(), domain.Credentials{APIKey: "pk_live_abc", ClientIP: "203.0.113.9"})
	if !client.Anonymous {
		t.Fatal("database failure must resolve to anonymous")
	}
	if client.Key != "ip:203.0.113.9" {
		t.Fatalf("rate limit key = %q, want ip keyed", client.Key)
	}
}

func TestResolveWithoutKeyHonorsTierHint(t *testing.T) {
	db := setupKeyTestDB(t)
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	r := newTestResolver(t, db, now)

	client := r.Resolve(context.Background(), domain.Credentials{TierHint: "BASIC", ClientIP: "198.51.100.7"})
	if !client.Anonymous {
		t.Fatal("expected anonymous client")
	}
	if client.Tier != ratelimitdomain.TierStarter {
		t.Fatalf("tier = %q, want starter from hint", client.Tier)
	}
	if client.Key != "ip:198.51.100.7" {
		t.Fatalf("rate limit key = %q", client.Key)
	}
}
