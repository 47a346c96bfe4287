// Package cache tracks which article URLs have already been processed so
// repeated collection passes skip them cheaply. Backed by Redis when
// configured, with an in-memory fallback for development and tests.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Cache answers whether a URL was already processed and records new ones.
type Cache interface {
	IsProcessed(ctx context.Context, url string) (bool, error)
	MarkProcessed(ctx context.Context, url string) error
	Close() error
}

// hashURL produces a fixed-length key segment from a URL. Raw URLs can
// exceed key length limits and contain characters awkward in key spaces.
func hashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
