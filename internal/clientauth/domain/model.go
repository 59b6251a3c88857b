// Package domain describes API key credentials and the resolved client
// identity attached to every request.
package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"

	ratelimitdomain "github.com/JovSele/patentapi/internal/ratelimit/domain"
)

// APIKey is an issued credential. Only the SHA-256 hash of the key is
// stored, the plaintext exists solely on the caller's side.
type APIKey struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	KeyHash   string       `gorm:"uniqueIndex;type:text;not null"`
	Name      string       `gorm:"type:text;not null"`
	Tier      string       `gorm:"type:text;not null;default:'free'"`
	IsActive  bool         `gorm:"not null;default:true"`
	ExpiresAt *time.Time
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

// Valid reports whether the key may authenticate requests at the given
// instant.
func (k APIKey) Valid(now time.Time) bool {
	if !k.IsActive {
		return false
	}
	if k.ExpiresAt != nil && !now.Before(*k.ExpiresAt) {
		return false
	}
	return true
}

// HashKey derives the stored digest for a plaintext API key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Client is the resolved identity of one request. Anonymous clients are
// keyed by address so that they share the free quota per origin.
type Client struct {
	Key       string
	KeyHash   string
	Name      string
	Tier      ratelimitdomain.Tier
	Anonymous bool
}

// Credentials carries the raw material extracted from request headers.
type Credentials struct {
	APIKey   string
	TierHint string
	ClientIP string
}

// Resolver turns request credentials into a Client. Resolution never
// fails, unknown or invalid keys degrade to an anonymous client.
type Resolver interface {
	Resolve(ctx context.Context, creds Credentials) Client
}
