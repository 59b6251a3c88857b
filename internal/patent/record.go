package patent

import (
	"errors"
	"time"
)

// Status is the normalized legal status of a patent.
type Status string

const (
	StatusGranted Status = "Granted"
	StatusExpired Status = "Expired"
	StatusLapsed  Status = "Lapsed"
	StatusUnknown Status = "Unknown"
)

// Source identifies the upstream office a record was fetched from.
type Source string

const (
	SourceEPO   Source = "EPO"
	SourceUSPTO Source = "USPTO"
)

// ErrIncompleteRecord flags a record whose status requires supporting fields
// that are missing.
var ErrIncompleteRecord = errors.New("incomplete_record")

// Jurisdiction marks one territory in which a patent has effect. Exactly one
// entry in a record's jurisdiction list carries Primary.
type Jurisdiction struct {
	Code    string `json:"code"`
	Primary bool   `json:"primary"`
}

// Jurisdictions builds an ordered jurisdiction list with the first code
// marked primary.
func Jurisdictions(primary string, rest ...string) []Jurisdiction {
	out := make([]Jurisdiction, 0, len(rest)+1)
	out = append(out, Jurisdiction{Code: primary, Primary: true})
	for _, code := range rest {
		out = append(out, Jurisdiction{Code: code})
	}
	return out
}

// Record is the normalized result of one upstream fetch. Records are value
// objects and never mutated after construction.
type Record struct {
	Identifier    CanonicalIdentifier
	Status        Status
	ExpiryDate    *time.Time
	Jurisdictions []Jurisdiction
	LapseReason   *string
	Source        Source
	FetchedAt     time.Time
	Raw           map[string]any
}

// Validate checks the internal consistency of a record. A terminal status
// must be explainable by either an expiry date or a lapse reason.
func (r Record) Validate() error {
	switch r.Status {
	case StatusGranted, StatusUnknown:
	case StatusExpired, StatusLapsed:
		if r.ExpiryDate == nil && r.LapseReason == nil {
			return ErrIncompleteRecord
		}
	default:
		return ErrIncompleteRecord
	}
	if len(r.Jurisdictions) == 0 {
		return ErrIncompleteRecord
	}
	return nil
}

// PrimaryJurisdiction returns the code flagged primary, falling back to the
// first entry.
func (r Record) PrimaryJurisdiction() string {
	for _, j := range r.Jurisdictions {
		if j.Primary {
			return j.Code
		}
	}
	if len(r.Jurisdictions) > 0 {
		return r.Jurisdictions[0].Code
	}
	return ""
}
