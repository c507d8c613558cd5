package contracts

import (
	"errors"
	"fmt"
)

// 오류 분류 (SSOT)
// 세그먼트/시나리오 단위 오류는 격리되어 로그로 남고, SchemaError 만 실행을 중단함
var (
	// ErrDataQuality 잘못된 소수, 조인 키 누락, 퇴화된 시계열
	ErrDataQuality = errors.New("data quality")

	// ErrArtifactMissing 예측 시점에 피처셋/모델 아티팩트 없음
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrArtifactMismatch 아티팩트가 현재 피처 엔진 버전과 다름
	ErrArtifactMismatch = errors.New("artifact mismatch")

	// ErrIndeterminate 통계 검정 계산 불가 (관측치 부족, 특이 행렬)
	ErrIndeterminate = errors.New("statistical test indeterminate")

	// ErrSchema 입력 테이블에 필수 컬럼 없음 (치명적)
	ErrSchema = errors.New("schema")

	// ErrEmptyFeatureSet 선택된 피처가 없음 (세그먼트 스킵)
	ErrEmptyFeatureSet = errors.New("empty feature set")
)

// DataQualityError carries the row/segment context of a data quality failure
type DataQualityError struct {
	Segment int    // 0 if not segment-scoped
	Period  string // raw period key, empty if not row-scoped
	Field   string
	Value   string
	Err     error
}

func (e *DataQualityError) Error() string {
	msg := fmt.Sprintf("data quality: field %s value %q", e.Field, e.Value)
	if e.Segment != 0 {
		msg += fmt.Sprintf(" segment %d", e.Segment)
	}
	if e.Period != "" {
		msg += fmt.Sprintf(" period %s", e.Period)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches ErrDataQuality
func (e *DataQualityError) Is(target error) bool {
	return target == ErrDataQuality
}

func (e *DataQualityError) Unwrap() error {
	return e.Err
}

// SchemaError 필수 컬럼 누락
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: table %s: missing required column %q", e.Table, e.Column)
}

// Is matches ErrSchema
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// ArtifactError 아티팩트 로드 실패 (missing / mismatch)
type ArtifactError struct {
	Segment int
	Key     string
	Err     error // ErrArtifactMissing or ErrArtifactMismatch, possibly wrapped
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact %s (segment %d): %v", e.Key, e.Segment, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort the whole run
func IsFatal(err error) bool {
	return errors.Is(err, ErrSchema)
}
