package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/attrition-cli/internal/model"
)

// Identifier fallbacks when the caller supplies none; positional for bulk
// requests so results line up with inputs.
const (
	singleRequestID = "PREDICT_SINGLE_REQUEST"
	bulkRequestID   = "BULK_REQ_%d"
)

// Service runs inference over an immutable fitted artifact. The artifact is
// loaded once, injected here, and never mutated, so one Service is safe for
// concurrent prediction calls; swapping in a new artifact means constructing
// a new Service.
type Service struct {
	art       *Artifact
	threshold float64
}

// NewService wraps a loaded artifact. Threshold outside (0,1) falls back to
// the 0.5 default.
func NewService(art *Artifact, threshold float64) (*Service, error) {
	if art == nil {
		return nil, eris.Wrap(ErrPipelineUnavailable, "service: nil artifact")
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}
	return &Service{art: art, threshold: threshold}, nil
}

// Version reports the artifact version serving predictions, for audit tags.
func (s *Service) Version() string { return s.art.Version }

// Outcome is the per-record result of a bulk prediction: either a
// prediction or that record's own error, never a batch-wide failure.
type Outcome struct {
	Index      int               `json:"index"`
	Prediction *model.Prediction `json:"prediction,omitempty"`
	Err        error             `json:"-"`
}

// PredictOne runs the full serving path for a single raw record.
func (s *Service) PredictOne(ctx context.Context, in model.EmployeeInput) (*model.Prediction, error) {
	if in.IDEmploye == "" {
		in.IDEmploye = singleRequestID
	}
	outcomes, err := s.PredictMany(ctx, []model.EmployeeInput{in})
	if err != nil {
		return nil, err
	}
	if outcomes[0].Err != nil {
		return nil, outcomes[0].Err
	}
	return outcomes[0].Prediction, nil
}

// PredictMany predicts a batch. Records are validated and cleaned
// individually so one malformed record fails alone; the surviving records
// are transformed together as a single batch against the shared fitted
// state and predicted independently.
func (s *Service) PredictMany(ctx context.Context, ins []model.EmployeeInput) ([]Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "service: context done")
	}
	if len(ins) == 0 {
		return nil, eris.New("service: empty batch")
	}

	log := zap.L().Named("predict")
	outcomes := make([]Outcome, len(ins))
	ids := make([]string, len(ins))

	// Per-record cleaning doubles as validation: a bad percentage string or
	// similar malformed field is attributed to its record here, before the
	// batch transform runs.
	var batch *model.Table
	var batchIdx []int
	for i, in := range ins {
		outcomes[i].Index = i
		ids[i] = in.IDEmploye
		if ids[i] == "" {
			ids[i] = fmt.Sprintf(bulkRequestID, i)
		}

		cleaned, err := Clean(model.InputTable([]model.EmployeeInput{in}), s.art.Contract, ModePredict)
		if err != nil {
			outcomes[i].Err = eris.Wrapf(err, "service: record %d", i)
			log.Warn("record failed cleaning", zap.Int("index", i), zap.Error(err))
			continue
		}
		if batch == nil {
			batch = cleaned
		} else {
			merged, err := batch.Append(cleaned)
			if err != nil {
				outcomes[i].Err = eris.Wrapf(err, "service: record %d", i)
				continue
			}
			batch = merged
		}
		batchIdx = append(batchIdx, i)
	}

	if batch == nil || batch.NumRows() == 0 {
		return outcomes, nil
	}

	x, err := s.art.Transform.Apply(Assemble(batch))
	if err != nil {
		return nil, eris.Wrap(err, "service: transform batch")
	}
	probs, err := s.art.Model.Probabilities(x)
	if err != nil {
		return nil, eris.Wrap(err, "service: score batch")
	}
	classes := Classes(probs, s.threshold)

	for row, i := range batchIdx {
		outcomes[i].Prediction = &model.Prediction{
			IDEmploye:         ids[i],
			ProbabiliteDepart: probs[row],
			PredictionDepart:  classes[row],
		}
	}
	return outcomes, nil
}
