package pipeline

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// syntheticLogistic draws n samples from a one-feature logistic model with
// the given intercept and slope, seeded for reproducibility.
func syntheticLogistic(n int, bias, slope float64, seed int64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := rng.Float64()*4 - 2
		x.Set(i, 0, v)
		if rng.Float64() < sigmoid(bias+slope*v) {
			y[i] = 1
		}
	}
	return x, y
}

func TestTrainLogistic_RecoversSignal(t *testing.T) {
	x, y := syntheticLogistic(400, -1, 2, 7)

	m, err := TrainLogistic(x, y, DefaultTrainOptions())
	require.NoError(t, err)
	require.Len(t, m.Weights, 1)
	assert.Positive(t, m.Iterations)
	assert.Positive(t, m.Weights[0], "slope sign must match the generating model")

	probs, err := m.Probabilities(mat.NewDense(2, 1, []float64{-2, 2}))
	require.NoError(t, err)
	assert.Less(t, probs[0], probs[1])
	assert.Less(t, probs[0], 0.5)
	assert.Greater(t, probs[1], 0.5)
}

func TestTrainLogistic_Deterministic(t *testing.T) {
	x, y := syntheticLogistic(200, 0.5, -1.5, 11)

	a, err := TrainLogistic(x, y, DefaultTrainOptions())
	require.NoError(t, err)
	b, err := TrainLogistic(x, y, DefaultTrainOptions())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTrainLogistic_ImbalancedRecall(t *testing.T) {
	// Roughly 85/15 class balance with a real but noisy signal.
	rng := rand.New(rand.NewSource(3))
	n := 600
	x := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := rng.Float64()*4 - 2
		x.Set(i, 0, v)
		if rng.Float64() < sigmoid(-2.5+2*v) {
			y[i] = 1
		}
	}

	m, err := TrainLogistic(x, y, DefaultTrainOptions())
	require.NoError(t, err)

	probs, err := m.Probabilities(x)
	require.NoError(t, err)
	metrics := Evaluate(Classes(probs, 0.5), y)

	assert.Greater(t, metrics.Recall, 0.3, "balanced class weights must keep minority recall usable")
}

func TestTrainLogistic_InputErrors(t *testing.T) {
	_, err := TrainLogistic(mat.NewDense(1, 1, nil), nil, DefaultTrainOptions())
	assert.Error(t, err, "target length mismatch")

	_, err = TrainLogistic(new(mat.Dense), nil, DefaultTrainOptions())
	assert.Error(t, err, "empty training matrix")
}

func TestProbabilities_DimensionMismatch(t *testing.T) {
	m := &Logistic{Weights: []float64{1, 2}}
	_, err := m.Probabilities(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestClasses(t *testing.T) {
	probs := []float64{0.1, 0.5, 0.9}
	assert.Equal(t, []int{0, 1, 1}, Classes(probs, 0.5))
	assert.Equal(t, []int{0, 0, 1}, Classes(probs, 0.7))
}

func TestClassWeights_Balanced(t *testing.T) {
	w := classWeights([]float64{1, 0, 0, 0})
	assert.InDelta(t, 2.0, w[0], 1e-12)       // 4 / (2*1)
	assert.InDelta(t, 4.0/6.0, w[1], 1e-12)   // 4 / (2*3)

	// Positive and negative halves contribute equally overall.
	total := w[0]
	for _, v := range w[1:] {
		total -= v
	}
	assert.InDelta(t, 0, total, 1e-12)
}

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.5, sigmoid(0), 1e-12)
	assert.InDelta(t, 1, sigmoid(40), 1e-12)
	assert.InDelta(t, 0, sigmoid(-40), 1e-12)
	assert.False(t, math.IsNaN(sigmoid(-1000)))
}
