package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// Store is an advisory cache of serialized generation results. Absence is a
// miss, never an error. Implementations must be safe for concurrent use;
// last-write-wins per key is acceptable since keys are content-derived.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Key derives the deterministic cache key for an input. Identical
// (content, kind, phase) tuples always produce the same key.
func Key(content, kind, phase string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%s", kind, content, phase)))
	return "model_cache:" + hex.EncodeToString(sum[:])
}
