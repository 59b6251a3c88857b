package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JovSele/patentapi/internal/ratelimit/domain"
)

func TestMemoryAdmitSequenceAtLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 3; i++ {
		res, err := s.Admit(ctx, "client-a", domain.TierFree, 3, now)
		if err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
		if !res.Allowed || res.Count != i {
			t.Fatalf("admit %d = %+v, want allowed with count %d", i, res, i)
		}
	}

	for i := 0; i < 2; i++ {
		res, err := s.Admit(ctx, "client-a", domain.TierFree, 3, now)
		if err != nil {
			t.Fatalf("denied admit: %v", err)
		}
		if res.Allowed {
			t.Fatal("expected denial past the limit")
		}
		if res.Count != 3 {
			t.Fatalf("denied admit count = %d, want 3 (denials never count)", res.Count)
		}
	}
}

func TestMemoryWindowRollsOver(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	january := time.Date(2026, time.January, 20, 12, 0, 0, 0, time.UTC)
	february := time.Date(2026, time.February, 1, 0, 0, 1, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if _, err := s.Admit(ctx, "client-b", domain.TierFree, 2, january); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}
	res, err := s.Admit(ctx, "client-b", domain.TierFree, 2, january)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected january window to be full")
	}

	res, err = s.Admit(ctx, "client-b", domain.TierFree, 2, february)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if !res.Allowed || res.Count != 1 {
		t.Fatalf("february admit = %+v, want allowed with count 1", res)
	}
	if want := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC); !res.WindowStart.Equal(want) {
		t.Fatalf("window start = %s, want %s", res.WindowStart, want)
	}
}

func TestMemoryUnlimitedStillCounts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	var last domain.AdmitResult
	for i := 0; i < 25; i++ {
		res, err := s.Admit(ctx, "client-c", domain.TierEnterprise, 0, now)
		if err != nil {
			t.Fatalf("admit: %v", err)
		}
		if !res.Allowed {
			t.Fatal("unlimited tier must always be admitted")
		}
		last = res
	}
	if last.Count != 25 {
		t.Fatalf("count = %d, want 25", last.Count)
	}
}

func TestMemoryConcurrentAdmitsNeverOverrun(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	const limit = 50
	const attempts = 100

	var wg sync.WaitGroup
	allowed := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Admit(ctx, "client-d", domain.TierStarter, limit, now)
			if err != nil {
				t.Errorf("admit: %v", err)
				return
			}
			allowed <- res.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	var admitted int
	for ok := range allowed {
		if ok {
			admitted++
		}
	}
	if admitted != limit {
		t.Fatalf("admitted %d requests, want exactly %d", admitted, limit)
	}
}
