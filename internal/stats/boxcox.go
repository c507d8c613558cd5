package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// BoxCox transforms a strictly positive series with the λ maximizing the profile log-likelihood
func BoxCox(x []float64) ([]float64, float64, error) {
	if len(x) < 2 {
		return nil, 0, fmt.Errorf("%w: box-cox needs at least 2 observations", contracts.ErrIndeterminate)
	}
	var sumLog float64
	for _, v := range x {
		if !(v > 0) {
			return nil, 0, fmt.Errorf("%w: box-cox requires strictly positive data", contracts.ErrIndeterminate)
		}
		sumLog += math.Log(v)
	}

	n := float64(len(x))
	buf := make([]float64, len(x))
	negLLF := func(p []float64) float64 {
		boxcoxInto(buf, x, p[0])
		v := stat.PopVariance(buf, nil)
		if v <= 0 {
			return math.Inf(1)
		}
		return -((p[0]-1)*sumLog - n/2*math.Log(v))
	}

	res, err := optimize.Minimize(optimize.Problem{Func: negLLF}, []float64{1}, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: box-cox lambda search: %v", contracts.ErrIndeterminate, err)
	}
	lambda := res.X[0]
	if math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return nil, 0, fmt.Errorf("%w: box-cox lambda is not finite", contracts.ErrIndeterminate)
	}

	out := make([]float64, len(x))
	boxcoxInto(out, x, lambda)
	return out, lambda, nil
}

func boxcoxInto(dst, x []float64, lambda float64) {
	for i, v := range x {
		if math.Abs(lambda) < 1e-12 {
			dst[i] = math.Log(v)
			continue
		}
		dst[i] = (math.Pow(v, lambda) - 1) / lambda
	}
}
