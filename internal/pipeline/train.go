package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/attrition-cli/internal/model"
)

// Source supplies the training data: a tabular record set whose columns are
// a superset of the feature contract plus the target and metadata columns.
type Source interface {
	LoadEmployees(ctx context.Context) (*model.Table, error)
}

// TrainConfig tunes a training run.
type TrainConfig struct {
	TestFraction float64 // held-out share, 0.20 by default
	Seed         int64   // split shuffle seed
	MaxIter      int     // classifier iteration cap
	Tolerance    float64 // classifier convergence tolerance
	ArtifactPath string  // where the fitted pipeline is published
}

// TrainReport is the outcome of a completed training run.
type TrainReport struct {
	Version      string  `json:"version"`
	ArtifactPath string  `json:"artifact_path"`
	TrainRows    int     `json:"train_rows"`
	TestRows     int     `json:"test_rows"`
	Metrics      Metrics `json:"metrics"`
}

// Trainer runs the offline training pipeline: load, clean, assemble, split,
// fit transform, fit classifier, evaluate, persist. Any stage failure aborts
// the run with nothing written; evaluation is reported but never gates
// persistence. Training runs must not race each other on the artifact path;
// deployments serialize them by construction (one scheduled run at a time).
type Trainer struct {
	source   Source
	contract *model.Contract
	cfg      TrainConfig
}

// NewTrainer wires a training run over the given data source and contract.
func NewTrainer(source Source, contract *model.Contract, cfg TrainConfig) *Trainer {
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = 0.20
	}
	return &Trainer{source: source, contract: contract, cfg: cfg}
}

// Run executes the full training pipeline and publishes the artifact.
func (tr *Trainer) Run(ctx context.Context) (*TrainReport, error) {
	log := zap.L().Named("train")
	log.Info("training run starting", zap.Float64("test_fraction", tr.cfg.TestFraction), zap.Int64("seed", tr.cfg.Seed))

	raw, err := tr.source.LoadEmployees(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "train: load employees")
	}
	if raw.NumRows() == 0 {
		return nil, eris.New("train: employee source is empty")
	}
	log.Info("employees loaded", zap.Int("rows", raw.NumRows()))

	cleaned, err := Clean(raw, tr.contract, ModeTrain)
	if err != nil {
		return nil, eris.Wrap(err, "train: clean")
	}
	assembled := Assemble(cleaned)

	labeled, y := extractTarget(assembled)
	if dropped := assembled.NumRows() - labeled.NumRows(); dropped > 0 {
		log.Warn("rows without target label dropped", zap.Int("rows", dropped))
	}

	trainIdx, testIdx, err := SplitIndices(y, tr.cfg.TestFraction, tr.cfg.Seed)
	if err != nil {
		return nil, eris.Wrap(err, "train: split")
	}
	trainTable := labeled.Subset(trainIdx)
	testTable := labeled.Subset(testIdx)
	yTrain := subsetFloats(y, trainIdx)
	yTest := subsetFloats(y, testIdx)

	ft, err := Fit(trainTable, tr.contract)
	if err != nil {
		return nil, eris.Wrap(err, "train: fit transform")
	}
	xTrain, err := ft.Apply(trainTable)
	if err != nil {
		return nil, eris.Wrap(err, "train: transform training set")
	}

	clf, err := TrainLogistic(xTrain, yTrain, TrainOptions{MaxIter: tr.cfg.MaxIter, Tol: tr.cfg.Tolerance})
	if err != nil {
		return nil, eris.Wrap(err, "train: fit classifier")
	}

	xTest, err := ft.Apply(testTable)
	if err != nil {
		return nil, eris.Wrap(err, "train: transform test set")
	}
	probs, err := clf.Probabilities(xTest)
	if err != nil {
		return nil, eris.Wrap(err, "train: score test set")
	}
	metrics := Evaluate(Classes(probs, 0.5), yTest)

	art := &Artifact{
		Version:   "attrition-logistic-" + uuid.NewString()[:8],
		CreatedAt: time.Now().UTC(),
		Contract:  tr.contract,
		Transform: ft,
		Model:     clf,
	}
	if err := art.Save(tr.cfg.ArtifactPath); err != nil {
		return nil, eris.Wrap(err, "train: persist artifact")
	}

	log.Info("training run complete",
		zap.String("version", art.Version),
		zap.String("artifact", tr.cfg.ArtifactPath),
		zap.Int("train_rows", trainTable.NumRows()),
		zap.Int("test_rows", testTable.NumRows()),
		zap.Float64("recall", metrics.Recall),
		zap.Float64("f2", metrics.F2),
	)

	return &TrainReport{
		Version:      art.Version,
		ArtifactPath: tr.cfg.ArtifactPath,
		TrainRows:    trainTable.NumRows(),
		TestRows:     testTable.NumRows(),
		Metrics:      metrics,
	}, nil
}

// extractTarget splits the numeric target out of the table, dropping rows
// whose label is missing. The returned table keeps all non-target columns.
func extractTarget(t *model.Table) (*model.Table, []float64) {
	var keep []int
	var y []float64
	for r := 0; r < t.NumRows(); r++ {
		c := t.At(r, model.ColTarget)
		if c.IsNumber() {
			keep = append(keep, r)
			y = append(y, c.Num())
		}
	}
	return t.Subset(keep).DropColumns(model.ColTarget), y
}

func subsetFloats(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
