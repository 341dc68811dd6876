package hold

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFingerprintStore backs the idempotency window with a shared Redis
// key space, so a duplicate create on one gateway replica can resolve to a
// hold another replica already recorded. Keys are written with a plain SET
// under TTL and read with GET. The claim is not atomic: two replicas that
// both miss on Lookup each create a hold, and the later Record overwrites
// the earlier holdId.
type RedisFingerprintStore struct {
	client *redis.Client
	prefix string
}

var _ FingerprintStore = (*RedisFingerprintStore)(nil)

// NewRedisFingerprintStore wraps an already-connected client. prefix
// namespaces keys, e.g. "gatekeeper:hold:fp:".
func NewRedisFingerprintStore(client *redis.Client, prefix string) *RedisFingerprintStore {
	return &RedisFingerprintStore{client: client, prefix: prefix}
}

// Lookup reads the holdId recorded for fp. Redis's own TTL (set by Record)
// does the expiry work, so a missing key is simply a miss.
func (s *RedisFingerprintStore) Lookup(fp string, ttl time.Duration, now time.Time) (string, bool) {
	val, err := s.client.Get(context.Background(), s.prefix+fp).Result()
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

// Record stores fp -> holdID with the given TTL so the key self-expires;
// best-effort, matching the notify.Notifier "never block or fail the
// caller" contract.
func (s *RedisFingerprintStore) Record(fp, holdID string, ttl time.Duration, now time.Time) {
	_ = s.client.Set(context.Background(), s.prefix+fp, holdID, ttl)
}
