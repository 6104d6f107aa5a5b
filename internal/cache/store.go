package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Store is the shared cache capability the resolver and directions memoizer
// depend on. CreateIfAbsent must be atomic across every process sharing the
// store; it is the only synchronization primitive between resolvers.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	CreateIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Key derives a content-addressed key: prefix + ":" + sha256(JSON(parts)).
// Identical logical inputs always map to the same key, and distinct prefixes
// never collide.
func Key(prefix string, parts ...any) string {
	data, err := json.Marshal(parts)
	if err != nil {
		data = []byte(fmt.Sprint(parts...))
	}
	sum := sha256.Sum256(data)
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// LockKey is the key whose presence marks an in-flight computation of key.
func LockKey(key string) string {
	return "lock:" + key
}
