package modelconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML file on top of Default() and returns Config with raw bytes.
// path 가 비어 있으면 기본값만 사용
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read model config: %w", err)
	}
	if err := Decode(data, cfg); err != nil {
		return nil, nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, data, err
	}

	return cfg, data, nil
}

// Decode overlays YAML onto cfg (알 수 없는 필드 발견 시 에러 반환)
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode model config: %w", err)
	}
	return nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
