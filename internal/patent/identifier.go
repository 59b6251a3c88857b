// Package patent defines the canonical identifier and record types shared by
// the lookup pipeline.
package patent

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier rejects raw input that cannot be parsed into a
// canonical identifier for a supported jurisdiction.
var ErrInvalidIdentifier = errors.New("invalid_identifier_format")

const (
	JurisdictionEP = "EP"
	JurisdictionUS = "US"
)

// identifierPattern splits a cleaned identifier into jurisdiction prefix,
// numeric body and an optional document kind code (A1, B2, ...).
var identifierPattern = regexp.MustCompile(`^([A-Z]{2})([0-9]+)([A-Z][0-9]?)?$`)

type numberRule struct {
	minDigits int
	maxDigits int
}

var numberRules = map[string]numberRule{
	JurisdictionEP: {minDigits: 7, maxDigits: 8},
	JurisdictionUS: {minDigits: 7, maxDigits: 8},
}

var separatorReplacer = strings.NewReplacer(
	" ", "",
	"\t", "",
	"-", "",
	".", "",
	"/", "",
	",", "",
)

// CanonicalIdentifier is a validated patent number with an explicit
// jurisdiction. It is immutable once constructed and serves as the cache key
// through String.
type CanonicalIdentifier struct {
	Jurisdiction string
	Number       string
	Kind         string
}

// String renders the identifier in its canonical display form, e.g.
// "EP1234567" or "US7654321B2".
func (id CanonicalIdentifier) String() string {
	return id.Jurisdiction + id.Number + id.Kind
}

// Normalize parses a raw patent identifier into its canonical form. It strips
// separators, upper-cases the input and validates the numeric body length for
// the jurisdiction. Normalize is side-effect free and idempotent over its own
// display output.
func Normalize(raw string) (CanonicalIdentifier, error) {
	cleaned := strings.ToUpper(separatorReplacer.Replace(strings.TrimSpace(raw)))
	if cleaned == "" {
		return CanonicalIdentifier{}, ErrInvalidIdentifier
	}

	match := identifierPattern.FindStringSubmatch(cleaned)
	if match == nil {
		return CanonicalIdentifier{}, ErrInvalidIdentifier
	}

	jurisdiction, number, kind := match[1], match[2], match[3]
	rule, ok := numberRules[jurisdiction]
	if !ok {
		return CanonicalIdentifier{}, ErrInvalidIdentifier
	}
	if len(number) < rule.minDigits || len(number) > rule.maxDigits {
		return CanonicalIdentifier{}, ErrInvalidIdentifier
	}

	return CanonicalIdentifier{
		Jurisdiction: jurisdiction,
		Number:       number,
		Kind:         kind,
	}, nil
}

// SupportedJurisdictions lists the jurisdiction prefixes Normalize accepts.
func SupportedJurisdictions() []string {
	return []string{JurisdictionEP, JurisdictionUS}
}
