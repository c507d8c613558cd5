package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// Royston (1995) AS R94 다항 계수
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.544, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

const swMaxN = 5000

// ShapiroWilk W 통계량과 p-value (Royston 근사, 3 ≤ n ≤ 5000)
func ShapiroWilk(x []float64) (TestResult, error) {
	n := len(x)
	if n < 3 {
		return TestResult{}, fmt.Errorf("%w: shapiro-wilk needs at least 3 observations, got %d", contracts.ErrIndeterminate, n)
	}
	if n > swMaxN {
		return TestResult{}, fmt.Errorf("%w: shapiro-wilk supports at most %d observations", contracts.ErrIndeterminate, swMaxN)
	}

	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	if sorted[0] == sorted[n-1] {
		return TestResult{}, fmt.Errorf("%w: shapiro-wilk on constant input", contracts.ErrIndeterminate)
	}

	a := swCoefficients(n)

	// W = corr(a, x_(i))²
	var mean float64
	for _, v := range sorted {
		mean += v
	}
	mean /= float64(n)
	var sax, saa, sxx float64
	for i, v := range sorted {
		d := v - mean
		sax += a[i] * d
		saa += a[i] * a[i]
		sxx += d * d
	}
	w := sax * sax / (saa * sxx)
	if w > 1 {
		w = 1
	}

	return TestResult{Statistic: w, PValue: swPValue(w, n)}, nil
}

// swCoefficients 반대칭 계수 벡터 (길이 n, 오름차순 정렬 순서 기준)
func swCoefficients(n int) []float64 {
	half := n / 2
	a := make([]float64, n)
	if n == 3 {
		a[0], a[2] = -math.Sqrt(0.5), math.Sqrt(0.5)
		return a
	}

	an := float64(n)
	m := make([]float64, half)
	var summ2 float64
	for i := 0; i < half; i++ {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (an + 0.25))
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(an)
	a1 := polyval(swC1, rsn) - m[0]/ssumm2

	upper := make([]float64, half)
	start := 1
	var fac float64
	if n > 5 {
		start = 2
		a2 := -m[1]/ssumm2 + polyval(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		upper[1] = a2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	upper[0] = a1
	for i := start; i < half; i++ {
		upper[i] = -m[i] / fac
	}

	for i := 0; i < half; i++ {
		a[i] = -upper[i]
		a[n-1-i] = upper[i]
	}
	return a
}

func swPValue(w float64, n int) float64 {
	if n == 3 {
		p := 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		return math.Max(p, 0)
	}
	an := float64(n)
	y := math.Log(1 - w)
	var mu, sigma float64
	if n <= 11 {
		gamma := polyval(swG, an)
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		mu = polyval(swC3, an)
		sigma = math.Exp(polyval(swC4, an))
	} else {
		xx := math.Log(an)
		mu = polyval(swC5, xx)
		sigma = math.Exp(polyval(swC6, xx))
	}
	return distuv.Normal{Mu: mu, Sigma: sigma}.Survival(y)
}
