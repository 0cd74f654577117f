// Package cache stores rendered consent documents in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"consentpdf/internal/domain"
	"consentpdf/internal/infra/logging"
)

const (
	keyPrefix  = "consentpdf:"
	defaultTTL = time.Minute
	opTimeout  = time.Second
)

// PDFCache is a Redis-backed document cache. A nil *PDFCache is valid and
// never hits.
type PDFCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a cache over rdb. A non-positive ttl means one minute.
func New(rdb *redis.Client, ttl time.Duration) *PDFCache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &PDFCache{rdb: rdb, ttl: ttl}
}

// Key derives the cache key for rec rendered with the font identified by
// fontID (see fonts.Selection.Fingerprint).
func Key(fontID string, rec domain.ClientRecord) string {
	h := sha256.New()
	for _, part := range []string{fontID, rec.FIO, rec.Phone, rec.Email, rec.BirthDate, rec.SubmittedAt, rec.RequestID} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached document or nil on a miss.
func (c *PDFCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil, err
	}
	logging.Debug("PDF cache hit", "key", key)
	return data, nil
}

// Set stores data under key. Failures are logged, not returned.
func (c *PDFCache) Set(ctx context.Context, key string, data []byte) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}
