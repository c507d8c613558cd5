package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound 키 없음
var ErrNotFound = errors.New("redis key not found")

// Blob stores opaque byte values under "<prefix>:<namespace>:<key>"
// ⭐ SSOT: 바이트 저장 헬퍼는 여기서만
type Blob struct {
	client    *Client
	namespace string
}

// NewBlob creates a new blob helper
func NewBlob(client *Client, namespace string) *Blob {
	return &Blob{
		client:    client,
		namespace: namespace,
	}
}

// FullKey returns the namespaced redis key
func (b *Blob) FullKey(key string) string {
	return fmt.Sprintf("%s:%s:%s", b.client.Prefix(), b.namespace, key)
}

// Put stores a value without expiry
func (b *Blob) Put(ctx context.Context, key string, data []byte) error {
	if !b.client.Enabled() {
		return ErrDisabled
	}
	return b.client.Redis().Set(ctx, b.FullKey(key), data, 0).Err()
}

// Get retrieves a value
func (b *Blob) Get(ctx context.Context, key string) ([]byte, error) {
	if !b.client.Enabled() {
		return nil, ErrDisabled
	}
	data, err := b.client.Redis().Get(ctx, b.FullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Delete removes a value
func (b *Blob) Delete(ctx context.Context, key string) error {
	if !b.client.Enabled() {
		return ErrDisabled
	}
	return b.client.Redis().Del(ctx, b.FullKey(key)).Err()
}

// Keys lists the keys (namespace stripped) matching the pattern, sorted
func (b *Blob) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !b.client.Enabled() {
		return nil, ErrDisabled
	}
	head := b.FullKey("")
	var out []string
	iter := b.client.Redis().Scan(ctx, 0, head+pattern, 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), head))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	sort.Strings(out)
	return out, nil
}
