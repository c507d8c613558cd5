package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// HPLambdaQuarterly 분기 데이터 표준 평활 계수
const HPLambdaQuarterly = 1600.0

// HPFilter Hodrick-Prescott 분해: (I + λK'K)·trend = x, cycle = x - trend
// K 는 (n-2)×n 2차 차분 연산자. 입력은 NaN 이 없어야 함 (호출자가 유효 인덱스로 정렬).
func HPFilter(x []float64, lambda float64) (trend, cycle []float64, err error) {
	n := len(x)
	if n < 3 {
		return nil, nil, fmt.Errorf("%w: hp filter needs at least 3 observations, got %d", contracts.ErrIndeterminate, n)
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("%w: hp filter input contains non-finite values", contracts.ErrIndeterminate)
		}
	}

	// I + λK'K (오각 대칭 행렬)
	a := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		a.SetSym(i, i, 1)
	}
	stencil := [3]float64{1, -2, 1}
	for r := 0; r < n-2; r++ {
		for p := 0; p < 3; p++ {
			for q := p; q < 3; q++ {
				i, j := r+p, r+q
				a.SetSym(i, j, a.At(i, j)+lambda*stencil[p]*stencil[q])
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, nil, fmt.Errorf("%w: hp filter system is not positive definite", contracts.ErrIndeterminate)
	}
	var tau mat.VecDense
	if err := chol.SolveVecTo(&tau, mat.NewVecDense(n, append([]float64(nil), x...))); err != nil {
		return nil, nil, fmt.Errorf("hp filter solve: %w", err)
	}

	trend = make([]float64, n)
	cycle = make([]float64, n)
	for i := 0; i < n; i++ {
		trend[i] = tau.AtVec(i)
		cycle[i] = x[i] - trend[i]
	}
	return trend, cycle, nil
}
