// Package model 모델 계열 (앙상블 RF / 절편 포함 OLS) 공통 인터페이스
package model

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// Model 계열 무관 학습/예측/직렬화 인터페이스
// ⭐ SSOT: 저장/예측 코드는 이 인터페이스만 사용함
type Model interface {
	Family() contracts.ModelFamily
	Fit(x mat.Matrix, y []float64) error
	Predict(x mat.Matrix) ([]float64, error)
	json.Marshaler
	json.Unmarshaler
}

// New creates an unfitted model of the given family
func New(family contracts.ModelFamily, cfg ForestConfig) (Model, error) {
	switch family {
	case contracts.FamilyEnsemble:
		return NewForest(cfg), nil
	case contracts.FamilyLinear:
		return NewLinear(), nil
	default:
		return nil, fmt.Errorf("unknown model family %q", family)
	}
}

// Decode restores a fitted model from its serialized form
func Decode(family contracts.ModelFamily, data []byte) (Model, error) {
	m, err := New(family, DefaultForestConfig())
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode %s model: %w", family, err)
	}
	return m, nil
}

func checkXY(x mat.Matrix, y []float64) (int, int, error) {
	r, c := x.Dims()
	if r != len(y) {
		return 0, 0, fmt.Errorf("design has %d rows, target has %d", r, len(y))
	}
	if r == 0 || c == 0 {
		return 0, 0, fmt.Errorf("%w: empty design matrix", contracts.ErrDataQuality)
	}
	return r, c, nil
}
