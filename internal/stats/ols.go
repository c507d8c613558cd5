// Package stats 시계열/회귀 수치 커널 (gonum 기반)
// ⭐ SSOT: OLS, 단위근 검정, HP 필터, 잔차 진단은 여기서만 계산
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// pinvRcond 의사역행렬 특이값 cutoff (rcond * 최대 특이값)
const pinvRcond = 1e-15

// OLSResult 최소제곱 적합 결과
type OLSResult struct {
	Params    []float64
	StdErr    []float64
	TValues   []float64
	Fitted    []float64
	Residuals []float64
	SSR       float64
	R2        float64
	Rank      int
	NObs      int
	LogLik    float64
	AIC       float64
}

// OLS fits y ~ X by pseudo-inverse (SVD), tolerating collinear columns.
// X 에 절편이 필요하면 호출자가 상수 컬럼을 포함해야 함. R² 는 중심화 TSS 기준.
func OLS(x mat.Matrix, y []float64) (*OLSResult, error) {
	n, k := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("ols: %d rows but %d targets", n, len(y))
	}
	if n == 0 || k == 0 {
		return nil, fmt.Errorf("%w: ols on empty design", contracts.ErrIndeterminate)
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: ols svd did not converge", contracts.ErrIndeterminate)
	}
	sv := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	maxSV := 0.0
	for _, s := range sv {
		maxSV = math.Max(maxSV, s)
	}
	cutoff := pinvRcond * maxSV

	inv := make([]float64, len(sv))
	rank := 0
	for i, s := range sv {
		if s > cutoff {
			inv[i] = 1 / s
			rank++
		}
	}
	if rank == 0 {
		return nil, fmt.Errorf("%w: ols design has rank 0", contracts.ErrIndeterminate)
	}

	// beta = V diag(1/s) U' y
	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	var uty mat.VecDense
	uty.MulVec(u.T(), yv)
	for i := range inv {
		uty.SetVec(i, uty.AtVec(i)*inv[i])
	}
	var beta mat.VecDense
	beta.MulVec(&v, &uty)

	params := make([]float64, k)
	for i := range params {
		params[i] = beta.AtVec(i)
	}

	var fittedV mat.VecDense
	fittedV.MulVec(x, &beta)
	fitted := make([]float64, n)
	resid := make([]float64, n)
	var ssr float64
	for i := 0; i < n; i++ {
		fitted[i] = fittedV.AtVec(i)
		resid[i] = y[i] - fitted[i]
		ssr += resid[i] * resid[i]
	}

	// cov_unscaled = V diag(1/s²) V'
	dfResid := n - rank
	stderr := make([]float64, k)
	tvalues := make([]float64, k)
	scale := math.NaN()
	if dfResid > 0 {
		scale = ssr / float64(dfResid)
	}
	for j := 0; j < k; j++ {
		var c float64
		for i := range inv {
			vji := v.At(j, i)
			c += vji * vji * inv[i] * inv[i]
		}
		stderr[j] = math.Sqrt(scale * c)
		tvalues[j] = params[j] / stderr[j]
	}

	nf := float64(n)
	llf := -nf/2*math.Log(2*math.Pi) - nf/2*math.Log(ssr/nf) - nf/2

	return &OLSResult{
		Params:    params,
		StdErr:    stderr,
		TValues:   tvalues,
		Fitted:    fitted,
		Residuals: resid,
		SSR:       ssr,
		R2:        RSquared(y, fitted),
		Rank:      rank,
		NObs:      n,
		LogLik:    llf,
		AIC:       -2*llf + 2*float64(rank),
	}, nil
}

// Predict applies params to a design with the same column layout
func Predict(x mat.Matrix, params []float64) ([]float64, error) {
	n, k := x.Dims()
	if k != len(params) {
		return nil, fmt.Errorf("predict: design has %d columns, model has %d params", k, len(params))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var s float64
		for j := 0; j < k; j++ {
			s += x.At(i, j) * params[j]
		}
		out[i] = s
	}
	return out, nil
}

// RSquared 1 - SSR/SST (상수 y: 완전 적합 1, 그 외 0)
func RSquared(y, fitted []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var ssr, sst float64
	for i, v := range y {
		d := v - fitted[i]
		ssr += d * d
		c := v - mean
		sst += c * c
	}
	if sst == 0 {
		if ssr == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssr/sst
}

// WithIntercept prepends a constant column
func WithIntercept(x mat.Matrix) *mat.Dense {
	n, k := x.Dims()
	out := mat.NewDense(n, k+1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, 1)
		for j := 0; j < k; j++ {
			out.Set(i, j+1, x.At(i, j))
		}
	}
	return out
}
