// Package artifact 피처셋/모델 아티팩트 저장소 (파일 기본, Redis 선택)
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/pkg/redis"
)

// Store 키 단위 바이트 저장소
// ⭐ SSOT: (세그먼트, 계열) 마다 서로 다른 키를 사용하므로 동시 쓰기 충돌 없음
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	// Get returns contracts.ErrArtifactMissing when the key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	Location() string
}

// FeatureSetKey features/selected_features_segment_<i>.json
func FeatureSetKey(segment int) string {
	return fmt.Sprintf("features/selected_features_segment_%d.json", segment)
}

// ModelKey <family>/segment_<i>.json
func ModelKey(family contracts.ModelFamily, segment int) string {
	return fmt.Sprintf("%s/segment_%d.json", family, segment)
}

// FileStore 디렉터리 기반 저장소. 쓰기는 같은 디렉터리 임시 파일 → rename
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// Location returns the root directory
func (s *FileStore) Location() string {
	return s.root
}

func (s *FileStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes data atomically (기존 파일은 통째로 교체됨)
func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name()) // rename 이후에는 no-op

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync artifact %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename artifact %s: %w", key, err)
	}
	return nil
}

// Get reads one artifact
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", contracts.ErrArtifactMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return data, nil
}

// RedisStore "<prefix>:artifact:<key>" 에 같은 JSON 을 저장
type RedisStore struct {
	blob *redis.Blob
}

// NewRedisStore creates a store on an enabled redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{blob: redis.NewBlob(client, "artifact")}
}

// Location returns the key pattern
func (s *RedisStore) Location() string {
	return s.blob.FullKey("*")
}

// Put stores one artifact
func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	return s.blob.Put(ctx, key, data)
}

// Get reads one artifact
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.blob.Get(ctx, key)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", contracts.ErrArtifactMissing, s.blob.FullKey(key))
	}
	return data, err
}
