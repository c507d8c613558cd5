package model

import (
	"context"
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// synthetic y = 3·x0 + 노이즈, x1/x2 는 무관
func synthetic(n int) (*mat.Dense, []float64) {
	r := rand.New(rand.NewPCG(3, 3))
	x := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x0 := float64(i) / float64(n)
		x.Set(i, 0, x0)
		x.Set(i, 1, r.NormFloat64())
		x.Set(i, 2, r.NormFloat64())
		y[i] = 3*x0 + 0.01*r.NormFloat64()
	}
	return x, y
}

func TestForest_FitPredict(t *testing.T) {
	x, y := synthetic(60)
	f := NewForest(ForestConfig{NEstimators: 20})
	require.NoError(t, f.Fit(x, y))

	pred, err := f.Predict(x)
	require.NoError(t, err)
	require.Len(t, pred, 60)
	for i := range y {
		assert.InDelta(t, y[i], pred[i], 0.3)
	}

	imp := f.Importances()
	require.Len(t, imp, 3)
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
	assert.Greater(t, imp[0], imp[1])
	assert.Greater(t, imp[0], imp[2])

	_, err = f.Predict(mat.NewDense(2, 2, nil))
	assert.ErrorIs(t, err, contracts.ErrArtifactMismatch)
}

// expiringCtx 는 Err 를 n 번 호출한 뒤부터 DeadlineExceeded
type expiringCtx struct {
	context.Context
	n int
}

func (c *expiringCtx) Err() error {
	if c.n <= 0 {
		return context.DeadlineExceeded
	}
	c.n--
	return nil
}

func TestForest_FitContextStopsBetweenTrees(t *testing.T) {
	x, y := synthetic(40)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := NewForest(ForestConfig{NEstimators: 10})
	err := f.FitContext(ctx, x, y)
	require.ErrorIs(t, err, context.Canceled)
	_, err = f.Predict(x)
	assert.Error(t, err, "canceled forest stays unfitted")

	// 3그루 후 마감
	err = f.FitContext(&expiringCtx{Context: context.Background(), n: 3}, x, y)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "tree 3/10")
	assert.Empty(t, f.trees)

	require.NoError(t, f.FitContext(context.Background(), x, y))
	assert.Len(t, f.trees, 10)
}

func TestForest_Deterministic(t *testing.T) {
	x, y := synthetic(40)
	a := NewForest(ForestConfig{NEstimators: 10, RandomState: 0})
	b := NewForest(ForestConfig{NEstimators: 10, RandomState: 0})
	require.NoError(t, a.Fit(x, y))
	require.NoError(t, b.Fit(x, y))

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
}

func TestForest_ConstantTarget(t *testing.T) {
	x, _ := synthetic(10)
	y := make([]float64, 10)
	for i := range y {
		y[i] = 0.4
	}
	f := NewForest(ForestConfig{NEstimators: 5})
	require.NoError(t, f.Fit(x, y))
	assert.Equal(t, []float64{0, 0, 0}, f.Importances())

	pred, err := f.Predict(x)
	require.NoError(t, err)
	for _, v := range pred {
		assert.InDelta(t, 0.4, v, 1e-12)
	}
}

func TestLinear_FitPredict(t *testing.T) {
	x := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	y := []float64{3, 5, 7, 9, 11}

	l := NewLinear()
	require.NoError(t, l.Fit(x, y))
	p := l.Params()
	require.Len(t, p, 2)
	assert.InDelta(t, 1.0, p[0], 1e-9)
	assert.InDelta(t, 2.0, p[1], 1e-9)
	require.NotNil(t, l.Result())

	pred, err := l.Predict(mat.NewDense(1, 1, []float64{10}))
	require.NoError(t, err)
	assert.InDelta(t, 21.0, pred[0], 1e-9)

	_, err = l.Predict(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, contracts.ErrArtifactMismatch)
}

func TestModel_RoundTrip(t *testing.T) {
	x, y := synthetic(50)

	for _, family := range contracts.AllFamilies() {
		t.Run(string(family), func(t *testing.T) {
			m, err := New(family, ForestConfig{NEstimators: 15})
			require.NoError(t, err)
			require.NoError(t, m.Fit(x, y))
			want, err := m.Predict(x)
			require.NoError(t, err)

			data, err := json.Marshal(m)
			require.NoError(t, err)
			restored, err := Decode(family, data)
			require.NoError(t, err)
			assert.Equal(t, family, restored.Family())

			got, err := restored.Predict(x)
			require.NoError(t, err)
			assert.Equal(t, want, got, "reloaded model reproduces identical predictions")
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(contracts.ModelFamily("svm"), []byte(`{}`))
	assert.Error(t, err)

	_, err = Decode(contracts.FamilyEnsemble, []byte(`{"n_features":1,"trees":[{"nodes":[{"f":0,"l":0,"r":0,"v":1}]}]}`))
	assert.Error(t, err, "malformed tree is rejected")

	_, err = Decode(contracts.FamilyLinear, []byte(`not json`))
	assert.Error(t, err)
}

func TestSelectByImportance(t *testing.T) {
	names := []string{"PIB", "TCH_diff1", "year", "quarter"}

	tests := []struct {
		name string
		imp  []float64
		want []string
	}{
		{"above mean", []float64{0.5, 0.3, 0.1, 0.1}, []string{"PIB", "TCH_diff1"}},
		{"equal to mean kept", []float64{0.25, 0.25, 0.25, 0.25}, names},
		{"all zero keeps all", []float64{0, 0, 0, 0}, names},
		{"single dominant", []float64{0.97, 0.01, 0.01, 0.01}, []string{"PIB"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := SelectByImportance(2, names, tt.imp)
			require.NoError(t, err)
			assert.Equal(t, 2, set.Segment)
			assert.Equal(t, tt.want, set.Features)
		})
	}

	_, err := SelectByImportance(1, names, []float64{1})
	assert.Error(t, err)
	_, err = SelectByImportance(1, nil, nil)
	assert.ErrorIs(t, err, contracts.ErrEmptyFeatureSet)
	_, err = SelectByImportance(1, []string{"a"}, []float64{math.NaN()})
	assert.ErrorIs(t, err, contracts.ErrEmptyFeatureSet)
}
