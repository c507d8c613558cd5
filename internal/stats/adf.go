package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// ADFResult 단위근 검정 결과 (상수+추세, AIC 시차 선택)
type ADFResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	UsedLag   int     `json:"used_lag"`
	NObs      int     `json:"nobs"`
	MaxLag    int     `json:"max_lag"`
}

// adfTrendTerms const + linear trend
const adfTrendTerms = 2

// ADF runs the augmented Dickey-Fuller test with constant and linear trend.
// 시차는 0..maxlag 에서 AIC 최소 (동률이면 작은 시차), maxlag = ceil(12·(n/100)^¼).
// 계산 불가한 입력은 contracts.ErrIndeterminate 로 감싸서 반환.
func ADF(x []float64) (ADFResult, error) {
	n := len(x)
	if err := checkSeries(x); err != nil {
		return ADFResult{}, err
	}

	maxlag := int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	if capLag := n/2 - adfTrendTerms - 1; capLag < maxlag {
		maxlag = capLag
	}
	if maxlag < 0 {
		return ADFResult{}, fmt.Errorf("%w: adf sample size %d is too short", contracts.ErrIndeterminate, n)
	}

	dx := Diff(x)

	// 같은 표본(앞 maxlag 행 제외)에서 시차별 AIC 비교
	bestLag, bestAIC := 0, math.Inf(1)
	for lag := 0; lag <= maxlag; lag++ {
		design, y := adfDesign(x, dx, lag, maxlag)
		res, err := OLS(design, y)
		if err != nil {
			return ADFResult{}, fmt.Errorf("adf lag %d: %w", lag, err)
		}
		if res.AIC < bestAIC {
			bestLag, bestAIC = lag, res.AIC
		}
	}

	// 선택된 시차로 더 긴 표본에서 재적합
	design, y := adfDesign(x, dx, bestLag, bestLag)
	res, err := OLS(design, y)
	if err != nil {
		return ADFResult{}, fmt.Errorf("adf final fit: %w", err)
	}
	stat := res.TValues[0]
	if math.IsNaN(stat) || math.IsInf(stat, 0) {
		return ADFResult{}, fmt.Errorf("%w: adf statistic is not finite", contracts.ErrIndeterminate)
	}

	return ADFResult{
		Statistic: stat,
		PValue:    MacKinnonPValue(stat),
		UsedLag:   bestLag,
		NObs:      len(y),
		MaxLag:    maxlag,
	}, nil
}

// adfDesign builds [x_{t-1}, Δx_{t-1..t-lag}, 1, t] against Δx_t, skipping the first trim diffs
func adfDesign(x, dx []float64, lag, trim int) (*mat.Dense, []float64) {
	nobs := len(dx) - trim
	cols := 1 + lag + adfTrendTerms
	design := mat.NewDense(nobs, cols, nil)
	y := make([]float64, nobs)
	for r := 0; r < nobs; r++ {
		t := trim + r
		y[r] = dx[t]
		design.Set(r, 0, x[t])
		for j := 1; j <= lag; j++ {
			design.Set(r, j, dx[t-j])
		}
		design.Set(r, lag+1, 1)
		design.Set(r, lag+2, float64(r+1))
	}
	return design, y
}

func checkSeries(x []float64) error {
	if len(x) == 0 {
		return fmt.Errorf("%w: empty series", contracts.ErrIndeterminate)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: series contains non-finite values", contracts.ErrIndeterminate)
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return fmt.Errorf("%w: series is constant", contracts.ErrIndeterminate)
	}
	return nil
}

// MacKinnon (1994, 2010) 응답곡면 계수: 상수+추세, 단일 시계열
var (
	mackinnonSmallP = []float64{3.2512, 1.6047, 0.049588}
	mackinnonLargeP = []float64{2.5261, 0.61654, -0.37956, -0.060285}
)

const (
	mackinnonMaxStat  = 0.70
	mackinnonMinStat  = -16.18
	mackinnonStarStat = -2.89
)

// MacKinnonPValue approximates the asymptotic p-value of an ADF "ct" statistic
func MacKinnonPValue(stat float64) float64 {
	if stat > mackinnonMaxStat {
		return 1
	}
	if stat < mackinnonMinStat {
		return 0
	}
	coef := mackinnonLargeP
	if stat <= mackinnonStarStat {
		coef = mackinnonSmallP
	}
	return distuv.UnitNormal.CDF(polyval(coef, stat))
}

// polyval c[0] + c[1]x + c[2]x² + ...
func polyval(c []float64, x float64) float64 {
	var out float64
	for i := len(c) - 1; i >= 0; i-- {
		out = out*x + c[i]
	}
	return out
}

// Diff first difference (length n-1)
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}
