package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/stats"
)

// Linear 절편 포함 OLS. 입력 행렬에는 절편 컬럼이 없고 Fit/Predict 가 직접 추가함
type Linear struct {
	params []float64 // [절편, β1..βp]
	fit    *stats.OLSResult
}

// NewLinear creates an unfitted linear model
func NewLinear() *Linear {
	return &Linear{}
}

// Family returns linear
func (l *Linear) Family() contracts.ModelFamily {
	return contracts.FamilyLinear
}

// Fit solves the least-squares problem with an intercept column
func (l *Linear) Fit(x mat.Matrix, y []float64) error {
	if _, _, err := checkXY(x, y); err != nil {
		return fmt.Errorf("linear fit: %w", err)
	}
	res, err := stats.OLS(stats.WithIntercept(x), y)
	if err != nil {
		return fmt.Errorf("linear fit: %w", err)
	}
	l.params = res.Params
	l.fit = res
	return nil
}

// Predict applies the coefficients (intercept added)
func (l *Linear) Predict(x mat.Matrix) ([]float64, error) {
	if l.params == nil {
		return nil, errors.New("linear predict: model is not fitted")
	}
	if _, c := x.Dims(); c+1 != len(l.params) {
		return nil, fmt.Errorf("%w: linear model expects %d features, got %d", contracts.ErrArtifactMismatch, len(l.params)-1, c)
	}
	return stats.Predict(stats.WithIntercept(x), l.params)
}

// Params returns intercept followed by slopes
func (l *Linear) Params() []float64 {
	return append([]float64(nil), l.params...)
}

// Result 마지막 학습의 OLS 결과 (잔차 진단용, 복원된 모델은 nil)
func (l *Linear) Result() *stats.OLSResult {
	return l.fit
}

type linearJSON struct {
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

// MarshalJSON serializes the coefficients
func (l *Linear) MarshalJSON() ([]byte, error) {
	if l.params == nil {
		return nil, errors.New("linear model is not fitted")
	}
	return json.Marshal(linearJSON{Intercept: l.params[0], Coef: l.params[1:]})
}

// UnmarshalJSON restores the coefficients
func (l *Linear) UnmarshalJSON(b []byte) error {
	var v linearJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	l.params = append([]float64{v.Intercept}, v.Coef...)
	l.fit = nil
	return nil
}
