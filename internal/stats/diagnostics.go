package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// TestResult 통계량 + p-value
type TestResult struct {
	Statistic float64
	PValue    float64
}

// DurbinWatson Σ(e_t - e_{t-1})² / Σe²
func DurbinWatson(resid []float64) (float64, error) {
	if len(resid) < 2 {
		return math.NaN(), fmt.Errorf("%w: durbin-watson needs 2 residuals", contracts.ErrIndeterminate)
	}
	den := floats.Dot(resid, resid)
	if den == 0 {
		return math.NaN(), fmt.Errorf("%w: durbin-watson on zero residuals", contracts.ErrIndeterminate)
	}
	d := Diff(resid)
	return floats.Dot(d, d) / den, nil
}

// BreuschPagan studentized (Koenker) LM test: e² ~ exog, LM = n·R², χ²(k-1).
// exog 는 상수 컬럼을 포함해야 함.
func BreuschPagan(resid []float64, exog mat.Matrix) (TestResult, error) {
	n, k := exog.Dims()
	if n != len(resid) {
		return TestResult{}, fmt.Errorf("breusch-pagan: %d residuals but %d rows", len(resid), n)
	}
	if k < 2 {
		return TestResult{}, fmt.Errorf("%w: breusch-pagan needs a regressor besides the constant", contracts.ErrIndeterminate)
	}
	sq := make([]float64, n)
	for i, e := range resid {
		sq[i] = e * e
	}
	if stat.Variance(sq, nil) == 0 {
		return TestResult{}, fmt.Errorf("%w: breusch-pagan on constant squared residuals", contracts.ErrIndeterminate)
	}
	aux, err := OLS(exog, sq)
	if err != nil {
		return TestResult{}, fmt.Errorf("breusch-pagan auxiliary regression: %w", err)
	}
	lm := float64(n) * aux.R2
	chi := distuv.ChiSquared{K: float64(k - 1)}
	return TestResult{Statistic: lm, PValue: chi.Survival(lm)}, nil
}

// JarqueBera n/6·(S² + (K-3)²/4), χ²(2). 편향 적률 사용.
func JarqueBera(x []float64) (TestResult, error) {
	n := len(x)
	if n < 2 {
		return TestResult{}, fmt.Errorf("%w: jarque-bera needs 2 observations", contracts.ErrIndeterminate)
	}
	mean := stat.Mean(x, nil)
	var m2, m3, m4 float64
	for _, v := range x {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	nf := float64(n)
	m2, m3, m4 = m2/nf, m3/nf, m4/nf
	if m2 == 0 {
		return TestResult{}, fmt.Errorf("%w: jarque-bera on constant input", contracts.ErrIndeterminate)
	}
	skew := m3 / math.Pow(m2, 1.5)
	kurt := m4 / (m2 * m2)
	jb := nf / 6 * (skew*skew + (kurt-3)*(kurt-3)/4)
	chi := distuv.ChiSquared{K: 2}
	return TestResult{Statistic: jb, PValue: chi.Survival(jb)}, nil
}
