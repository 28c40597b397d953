package pipeline

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// TrainOptions tunes the logistic regression fit.
type TrainOptions struct {
	MaxIter int     // iteration cap; exceeding it is a hard failure
	Tol     float64 // convergence tolerance on the mean absolute gradient
}

// DefaultTrainOptions uses a cap generous enough that non-convergence
// signals a real problem.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{MaxIter: 1000, Tol: 1e-6}
}

// Logistic is a fitted binary logistic regression classifier. Prediction
// never mutates it, so a single instance is safe for concurrent readers.
type Logistic struct {
	Bias       float64   `json:"bias"`
	Weights    []float64 `json:"weights"`
	Iterations int       `json:"iterations"`
}

// TrainLogistic fits a logistic regression of y on X by iteratively
// reweighted least squares. Class imbalance is corrected by weighting each
// sample inversely to its class frequency (n / 2*n_class), leaving the row
// count untouched. The fit is deterministic: weights start at zero and every
// step is a closed-form solve.
func TrainLogistic(X *mat.Dense, y []float64, opts TrainOptions) (*Logistic, error) {
	n, p := X.Dims()
	if n == 0 {
		return nil, eris.New("classifier: empty training matrix")
	}
	if len(y) != n {
		return nil, eris.Errorf("classifier: %d rows but %d targets", n, len(y))
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultTrainOptions().MaxIter
	}
	if opts.Tol <= 0 {
		opts.Tol = DefaultTrainOptions().Tol
	}

	sample := classWeights(y)

	// Design matrix with an intercept column.
	z := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		z.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			z.Set(i, j+1, X.At(i, j))
		}
	}

	w := mat.NewVecDense(p+1, nil)
	probs := make([]float64, n)

	for iter := 1; iter <= opts.MaxIter; iter++ {
		// Current predictions.
		var eta mat.VecDense
		eta.MulVec(z, w)
		for i := 0; i < n; i++ {
			probs[i] = sigmoid(eta.AtVec(i))
		}

		// Weighted gradient g = Z^T s(y - p).
		resid := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			resid.SetVec(i, sample[i]*(y[i]-probs[i]))
		}
		grad := mat.NewVecDense(p+1, nil)
		grad.MulVec(z.T(), resid)

		gnorm := 0.0
		for j := 0; j < p+1; j++ {
			gnorm += math.Abs(grad.AtVec(j))
		}
		if gnorm/float64(n) < opts.Tol {
			zap.L().Named("classifier").Info("converged",
				zap.Int("iterations", iter-1),
				zap.Int("features", p),
			)
			return &Logistic{
				Bias:       w.AtVec(0),
				Weights:    vecTail(w),
				Iterations: iter - 1,
			}, nil
		}

		// Newton step: (Z^T W Z + ridge) d = g, W_ii = s p (1-p). The tiny
		// ridge keeps the solve stable when indicator columns are collinear.
		wz := mat.NewDense(n, p+1, nil)
		for i := 0; i < n; i++ {
			wi := sample[i] * probs[i] * (1 - probs[i])
			for j := 0; j < p+1; j++ {
				wz.Set(i, j, wi*z.At(i, j))
			}
		}
		var hess mat.Dense
		hess.Mul(z.T(), wz)
		for j := 0; j < p+1; j++ {
			hess.Set(j, j, hess.At(j, j)+1e-8)
		}

		var step mat.VecDense
		if err := step.SolveVec(&hess, grad); err != nil {
			return nil, eris.Wrap(ErrConvergence, "classifier: singular Hessian")
		}
		w.AddVec(w, &step)
	}

	return nil, eris.Wrapf(ErrConvergence, "classifier: %d iterations exceeded", opts.MaxIter)
}

// Probabilities returns P(class=1) for every row of X.
func (m *Logistic) Probabilities(X *mat.Dense) ([]float64, error) {
	n, p := X.Dims()
	if p != len(m.Weights) {
		return nil, eris.Errorf("classifier: matrix has %d features, model has %d", p, len(m.Weights))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		eta := m.Bias
		for j := 0; j < p; j++ {
			eta += m.Weights[j] * X.At(i, j)
		}
		out[i] = sigmoid(eta)
	}
	return out, nil
}

// Classes thresholds probabilities into {0,1} labels.
func Classes(probs []float64, threshold float64) []int {
	out := make([]int, len(probs))
	for i, p := range probs {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}

// classWeights assigns each sample n/(2*n_class), the "balanced" scheme:
// both classes contribute equally to the loss regardless of frequency.
func classWeights(y []float64) []float64 {
	n := float64(len(y))
	pos := 0.0
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	neg := n - pos

	wPos, wNeg := 1.0, 1.0
	if pos > 0 {
		wPos = n / (2 * pos)
	}
	if neg > 0 {
		wNeg = n / (2 * neg)
	}

	out := make([]float64, len(y))
	for i, v := range y {
		if v == 1 {
			out[i] = wPos
		} else {
			out[i] = wNeg
		}
	}
	return out
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func vecTail(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len()-1)
	for j := 1; j < v.Len(); j++ {
		out[j-1] = v.AtVec(j)
	}
	return out
}
