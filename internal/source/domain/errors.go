// Package domain defines the upstream adapter contract shared by every
// patent office integration.
package domain

import "errors"

var (
	// ErrNotFound means the upstream authoritatively knows nothing about
	// the identifier. Not-found results are never cached.
	ErrNotFound = errors.New("patent_not_found")
	// ErrTransient covers timeouts, connection failures and 5xx class
	// upstream responses. Callers may retry once.
	ErrTransient = errors.New("upstream_transient_failure")
	// ErrAuth covers rejected credentials after the adapter's own token
	// refresh has been exhausted.
	ErrAuth = errors.New("upstream_auth_failure")
	// ErrUnsupportedJurisdiction means no adapter serves the jurisdiction.
	ErrUnsupportedJurisdiction = errors.New("unsupported_jurisdiction")
)
