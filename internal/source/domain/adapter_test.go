package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JovSele/patentapi/internal/patent"
)

type stubAdapter struct {
	source patent.Source
}

func (s *stubAdapter) Source() patent.Source {
	return s.source
}

func (s *stubAdapter) Fetch(ctx context.Context, id patent.CanonicalIdentifier) (*patent.Record, error) {
	return nil, ErrNotFound
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	epo := &stubAdapter{source: patent.SourceEPO}
	uspto := &stubAdapter{source: patent.SourceUSPTO}
	reg.Register(patent.JurisdictionEP, epo)
	reg.Register(patent.JurisdictionUS, uspto)

	got, err := reg.Resolve(patent.JurisdictionEP)
	if err != nil {
		t.Fatalf("resolve EP: %v", err)
	}
	if got.Source() != patent.SourceEPO {
		t.Fatalf("EP resolved to %q", got.Source())
	}

	got, err = reg.Resolve(patent.JurisdictionUS)
	if err != nil {
		t.Fatalf("resolve US: %v", err)
	}
	if got.Source() != patent.SourceUSPTO {
		t.Fatalf("US resolved to %q", got.Source())
	}
}

func TestRegistryResolveUnknownJurisdiction(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Resolve("JP"); !errors.Is(err, ErrUnsupportedJurisdiction) {
		t.Fatalf("err = %v, want ErrUnsupportedJurisdiction", err)
	}
}

func TestRegistryJurisdictionsSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register("US", &stubAdapter{source: patent.SourceUSPTO})
	reg.Register("EP", &stubAdapter{source: patent.SourceEPO})

	codes := reg.Jurisdictions()
	if len(codes) != 2 || codes[0] != "EP" || codes[1] != "US" {
		t.Fatalf("jurisdictions = %v", codes)
	}
}

func TestThrottleUnlimited(t *testing.T) {
	throttle := NewThrottle(0)
	if err := throttle.Wait(context.Background()); err != nil {
		t.Fatalf("unlimited throttle: %v", err)
	}
}

func TestThrottleCancelledContext(t *testing.T) {
	throttle := NewThrottle(1)
	if err := throttle.Wait(context.Background()); err != nil {
		t.Fatalf("burst wait: %v", err)
	}

	cancelled, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := throttle.Wait(cancelled); !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
}
