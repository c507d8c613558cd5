package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// ForestConfig 랜덤 포레스트 하이퍼파라미터
type ForestConfig struct {
	NEstimators    int    `yaml:"n_estimators" json:"n_estimators"`         // 100
	RandomState    uint64 `yaml:"random_state" json:"random_state"`         // 0
	MinSamplesLeaf int    `yaml:"min_samples_leaf" json:"min_samples_leaf"` // 1 (완전 성장)
}

// DefaultForestConfig returns 100 fully grown trees, seed 0
func DefaultForestConfig() ForestConfig {
	return ForestConfig{NEstimators: 100, RandomState: 0, MinSamplesLeaf: 1}
}

// node 트리 노드, Feature < 0 이면 리프
type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

func (t *tree) predict(row []float64) float64 {
	i := 0
	for t.Nodes[i].Feature >= 0 {
		n := t.Nodes[i]
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// Forest 부트스트랩 CART 회귀 트리 앙상블 (MSE 기준, 분할마다 전 피처 탐색)
// 트리 i 의 난수열은 PCG(random_state, i) 로 고정되어 재학습 결과가 동일함
type Forest struct {
	cfg         ForestConfig
	nFeatures   int
	trees       []tree
	importances []float64
}

// NewForest creates an unfitted forest
func NewForest(cfg ForestConfig) *Forest {
	if cfg.NEstimators <= 0 {
		cfg.NEstimators = 100
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = 1
	}
	return &Forest{cfg: cfg}
}

// Family returns ensemble
func (f *Forest) Family() contracts.ModelFamily {
	return contracts.FamilyEnsemble
}

// Fit grows NEstimators trees on bootstrap samples
func (f *Forest) Fit(x mat.Matrix, y []float64) error {
	return f.FitContext(context.Background(), x, y)
}

// FitContext is Fit that stops between trees once ctx is done.
// 취소되면 이전 학습 결과도 버리고 미학습 상태로 남음
func (f *Forest) FitContext(ctx context.Context, x mat.Matrix, y []float64) error {
	n, p, err := checkXY(x, y)
	if err != nil {
		return fmt.Errorf("forest fit: %w", err)
	}

	cols := make([][]float64, p)
	for j := range cols {
		cols[j] = mat.Col(nil, j, x)
	}

	f.nFeatures = p
	f.trees = make([]tree, f.cfg.NEstimators)
	sum := make([]float64, p)
	counted := 0

	for t := range f.trees {
		if err := ctx.Err(); err != nil {
			f.trees = nil
			return fmt.Errorf("forest fit: tree %d/%d: %w", t, f.cfg.NEstimators, err)
		}
		rng := rand.New(rand.NewPCG(f.cfg.RandomState, uint64(t)))
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}

		g := &grower{cols: cols, y: y, minLeaf: f.cfg.MinSamplesLeaf, rng: rng, imp: make([]float64, p)}
		g.grow(sample)
		f.trees[t] = tree{Nodes: g.nodes}

		if len(g.nodes) > 1 {
			total := 0.0
			for _, v := range g.imp {
				total += v
			}
			if total > 0 {
				for j, v := range g.imp {
					sum[j] += v / total
				}
			}
			counted++
		}
	}

	f.importances = make([]float64, p)
	if counted > 0 {
		total := 0.0
		for j := range sum {
			f.importances[j] = sum[j] / float64(counted)
			total += f.importances[j]
		}
		if total > 0 {
			for j := range f.importances {
				f.importances[j] /= total
			}
		}
	}
	return nil
}

// Predict averages the tree predictions
func (f *Forest) Predict(x mat.Matrix) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, errors.New("forest predict: model is not fitted")
	}
	r, c := x.Dims()
	if c != f.nFeatures {
		return nil, fmt.Errorf("%w: forest expects %d features, got %d", contracts.ErrArtifactMismatch, f.nFeatures, c)
	}

	out := make([]float64, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, x)
		s := 0.0
		for t := range f.trees {
			s += f.trees[t].predict(row)
		}
		out[i] = s / float64(len(f.trees))
	}
	return out, nil
}

// Importances 정규화된 불순도 감소 중요도 (합 1, 단일 리프만 있으면 전부 0)
func (f *Forest) Importances() []float64 {
	return append([]float64(nil), f.importances...)
}

type forestJSON struct {
	Config      ForestConfig `json:"config"`
	NFeatures   int          `json:"n_features"`
	Importances []float64    `json:"importances"`
	Trees       []tree       `json:"trees"`
}

// MarshalJSON serializes the fitted forest
func (f *Forest) MarshalJSON() ([]byte, error) {
	return json.Marshal(forestJSON{
		Config:      f.cfg,
		NFeatures:   f.nFeatures,
		Importances: f.importances,
		Trees:       f.trees,
	})
}

// UnmarshalJSON restores a fitted forest
func (f *Forest) UnmarshalJSON(b []byte) error {
	var v forestJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	for i, t := range v.Trees {
		if err := t.validate(v.NFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	f.cfg = v.Config
	f.nFeatures = v.NFeatures
	f.importances = v.Importances
	f.trees = v.Trees
	return nil
}

func (t tree) validate(p int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Feature < 0 {
			continue
		}
		if n.Feature >= p || n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d is malformed", i)
		}
	}
	return nil
}

// grower 단일 트리 성장 (깊이 우선, 노드는 전위 순서로 저장)
type grower struct {
	cols    [][]float64
	y       []float64
	minLeaf int
	rng     *rand.Rand
	nodes   []node
	imp     []float64
}

func (g *grower) grow(sample []int) int {
	id := len(g.nodes)
	mean, sse := g.moments(sample)
	g.nodes = append(g.nodes, node{Feature: -1, Value: mean})

	if len(sample) < 2*g.minLeaf || sse <= 0 || g.pure(sample) {
		return id
	}

	feat, thr, ok := g.bestSplit(sample, sse)
	if !ok {
		return id
	}

	left := make([]int, 0, len(sample))
	right := make([]int, 0, len(sample))
	for _, i := range sample {
		if g.cols[feat][i] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	_, sseL := g.moments(left)
	_, sseR := g.moments(right)
	g.imp[feat] += sse - sseL - sseR

	l := g.grow(left)
	r := g.grow(right)
	g.nodes[id] = node{Feature: feat, Threshold: thr, Left: l, Right: r, Value: mean}
	return id
}

func (g *grower) pure(sample []int) bool {
	first := g.y[sample[0]]
	for _, i := range sample[1:] {
		if g.y[i] != first {
			return false
		}
	}
	return true
}

func (g *grower) moments(sample []int) (mean, sse float64) {
	for _, i := range sample {
		mean += g.y[i]
	}
	mean /= float64(len(sample))
	for _, i := range sample {
		d := g.y[i] - mean
		sse += d * d
	}
	return mean, sse
}

// bestSplit 피처 순서를 섞은 뒤 SSE 최소 분할 탐색 (엄격한 개선만 채택)
func (g *grower) bestSplit(sample []int, sse float64) (int, float64, bool) {
	m := len(sample)
	order := g.rng.Perm(len(g.cols))
	sorted := make([]int, m)

	total := 0.0
	for _, i := range sample {
		total += g.y[i]
	}
	// SSE = Σy² − (Σy)²/n 이므로 (ΣyL)²/nL + (ΣyR)²/nR 최대화와 동치
	parent := total * total / float64(m)
	best := parent
	bestFeat, bestThr, found := -1, 0.0, false

	for _, j := range order {
		x := g.cols[j]
		copy(sorted, sample)
		sort.SliceStable(sorted, func(a, b int) bool { return x[sorted[a]] < x[sorted[b]] })
		if x[sorted[0]] == x[sorted[m-1]] {
			continue
		}

		sumL := 0.0
		for k := 0; k < m-1; k++ {
			sumL += g.y[sorted[k]]
			nL := k + 1
			nR := m - nL
			lo, hi := x[sorted[k]], x[sorted[k+1]]
			if lo == hi || nL < g.minLeaf || nR < g.minLeaf {
				continue
			}
			sumR := total - sumL
			score := sumL*sumL/float64(nL) + sumR*sumR/float64(nR)
			if score > best+1e-12*sse {
				best = score
				bestFeat = j
				bestThr = lo + (hi-lo)/2
				if bestThr >= hi {
					bestThr = lo
				}
				found = true
			}
		}
	}
	return bestFeat, bestThr, found
}
