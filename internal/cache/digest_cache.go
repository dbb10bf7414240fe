package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/spacesedan/sportsdigest/internal/clients"
	"github.com/spacesedan/sportsdigest/internal/models"
)

// ErrMiss is returned when no digest exists for the requested key.
var ErrMiss = errors.New("cache: miss")

const (
	cacheRetries = 3

	// Stale copies never expire on their own; they exist for the
	// stale-if-error path and are overwritten on every successful Put.
	seenSetTTL = 168 * time.Hour
)

func liveKey(userID string) string  { return "digest:" + userID }
func staleKey(userID string) string { return "digest:stale:" + userID }

// DigestCache stores generated digests in Valkey: a TTL'd live copy that
// short-circuits the pipeline, and a non-expiring stale copy consulted when
// the live path fails.
type DigestCache struct {
	vc  *clients.ValkeyClient
	ttl time.Duration
}

func NewDigestCache(vc *clients.ValkeyClient, ttl time.Duration) *DigestCache {
	return &DigestCache{vc: vc, ttl: ttl}
}

// Get returns the live digest for the user, or ErrMiss once the TTL lapsed.
func (c *DigestCache) Get(ctx context.Context, userID string) (models.CachedDigest, error) {
	return c.get(ctx, liveKey(userID))
}

// GetStale returns the last successfully generated digest regardless of TTL.
func (c *DigestCache) GetStale(ctx context.Context, userID string) (models.CachedDigest, error) {
	return c.get(ctx, staleKey(userID))
}

func (c *DigestCache) get(ctx context.Context, key string) (models.CachedDigest, error) {
	res := c.vc.DoWithRetry(ctx, c.vc.Client.B().Get().Key(key).Build(), cacheRetries)
	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return models.CachedDigest{}, ErrMiss
		}
		return models.CachedDigest{}, fmt.Errorf("reading %s: %w", key, err)
	}

	raw, err := res.AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return models.CachedDigest{}, ErrMiss
		}
		return models.CachedDigest{}, fmt.Errorf("reading %s: %w", key, err)
	}

	var digest models.CachedDigest
	if err := json.Unmarshal(raw, &digest); err != nil {
		return models.CachedDigest{}, fmt.Errorf("unmarshaling %s: %w", key, err)
	}
	return digest, nil
}

// Put writes both copies of the digest. The live copy carries the cache TTL;
// the stale copy persists until the next Put.
func (c *DigestCache) Put(ctx context.Context, digest models.CachedDigest) error {
	payload, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("marshaling digest for %s: %w", digest.UserID, err)
	}

	cmds := []valkey.Completed{
		c.vc.Client.B().Set().Key(liveKey(digest.UserID)).Value(string(payload)).
			Ex(c.ttl).Build(),
		c.vc.Client.B().Set().Key(staleKey(digest.UserID)).Value(string(payload)).Build(),
	}

	for _, res := range c.vc.DoMultiWithRetry(ctx, cmds, cacheRetries) {
		if err := res.Error(); err != nil && !valkey.IsValkeyNil(err) {
			return fmt.Errorf("writing digest for %s: %w", digest.UserID, err)
		}
	}
	return nil
}

const seenSetKey = "digest:seen_hashes"

// MarkSeen records content hashes that already have a stored embedding so
// later runs can skip re-embedding them.
func (c *DigestCache) MarkSeen(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	cmds := []valkey.Completed{
		c.vc.Client.B().Sadd().Key(seenSetKey).Member(hashes...).Build(),
		c.vc.Client.B().Expire().Key(seenSetKey).Seconds(int64(seenSetTTL.Seconds())).Build(),
	}
	for _, res := range c.vc.DoMultiWithRetry(ctx, cmds, cacheRetries) {
		if err := res.Error(); err != nil && !valkey.IsValkeyNil(err) {
			return fmt.Errorf("marking seen hashes: %w", err)
		}
	}
	return nil
}

// FilterUnseen returns the subset of hashes with no recorded embedding. On
// any cache error it returns all hashes; re-embedding is only wasteful,
// skipping is lossy.
func (c *DigestCache) FilterUnseen(ctx context.Context, hashes []string) []string {
	if len(hashes) == 0 {
		return nil
	}

	res := c.vc.DoWithRetry(ctx,
		c.vc.Client.B().Smismember().Key(seenSetKey).Member(hashes...).Build(),
		cacheRetries)
	flags, err := res.AsIntSlice()
	if err != nil || len(flags) != len(hashes) {
		return hashes
	}

	unseen := make([]string, 0, len(hashes))
	for i, flag := range flags {
		if flag == 0 {
			unseen = append(unseen, hashes[i])
		}
	}
	return unseen
}
