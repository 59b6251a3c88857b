package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/JovSele/patentapi/internal/clock"
	"github.com/JovSele/patentapi/internal/ratelimit/domain"
	"github.com/JovSele/patentapi/internal/ratelimit/store"
)

type failingStore struct{ err error }

func (f failingStore) Admit(context.Context, string, domain.Tier, int64, time.Time) (domain.AdmitResult, error) {
	return domain.AdmitResult{}, f.err
}

func newTestService(t *testing.T, ws domain.WindowStore, now time.Time) *Service {
	t.Helper()
	return &Service{
		store:  ws,
		limits: domain.Limits{Free: 2, Starter: 1000, Pro: 10000},
		clock:  clock.Fixed{At: now},
		log:    zap.NewNop(),
	}
}

func TestAdmitCountsDownToDenial(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, store.NewMemoryStore(), now)
	ctx := context.Background()

	first, err := svc.Admit(ctx, "key-1", domain.TierFree)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if !first.Allowed || first.Limit != 2 || first.Remaining != 1 {
		t.Fatalf("first decision = %+v", first)
	}

	second, err := svc.Admit(ctx, "key-1", domain.TierFree)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if !second.Allowed || second.Remaining != 0 {
		t.Fatalf("second decision = %+v", second)
	}

	third, err := svc.Admit(ctx, "key-1", domain.TierFree)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if third.Allowed {
		t.Fatal("expected denial past the free limit")
	}
	if third.Remaining != 0 {
		t.Fatalf("denied remaining = %d, want 0", third.Remaining)
	}
	if want := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC); !third.ResetAt.Equal(want) {
		t.Fatalf("reset at = %s, want %s", third.ResetAt, want)
	}
}

func TestAdmitEnterpriseIsNeverDenied(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, store.NewMemoryStore(), now)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d, err := svc.Admit(ctx, "key-ent", domain.TierEnterprise)
		if err != nil {
			t.Fatalf("admit: %v", err)
		}
		if !d.Allowed {
			t.Fatal("enterprise must always be admitted")
		}
		if d.Limit != 0 || d.Remaining != 0 {
			t.Fatalf("enterprise decision = %+v, want no numeric quota", d)
		}
	}
}

func TestAdmitFailsOpenWhenStoreErrors(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, failingStore{err: errors.New("connection refused")}, now)

	d, err := svc.Admit(context.Background(), "key-2", domain.TierFree)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if !d.Allowed {
		t.Fatal("store failure must not deny the request")
	}
	if d.Remaining != 2 {
		t.Fatalf("remaining = %d, want full quota on fail open", d.Remaining)
	}
}
