// Package handoff passes a finished analysis from the upload flow to the
// result view as a one-shot message. A published bundle can be taken exactly
// once and expires after a TTL; nothing survives a restart of the in-memory
// store.
package handoff

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/anvishah1/ForReal/internal/upload"
)

// DefaultTTL is how long an untaken result is kept.
const DefaultTTL = 10 * time.Minute

// ErrNotFound is returned for unknown, expired or already taken tokens.
var ErrNotFound = errors.New("result not found")

// Store publishes bundles under opaque tokens.
type Store interface {
	Put(ctx context.Context, bundle upload.Bundle) (string, error)
	Take(ctx context.Context, token string) (upload.Bundle, error)
}

func newToken() string {
	return uuid.NewString()
}
