// Package pipeline implements the attrition prediction pipeline: cleaning,
// feature assembly, the fittable column transform, the logistic classifier,
// training orchestration, and the inference service. The same cleaning,
// assembly, and transform code runs at training time (fit mode) and at
// serving time (transform-only mode) so the two paths cannot drift.
package pipeline

import "github.com/rotisserie/eris"

// Sentinel errors for the pipeline failure taxonomy. Call sites wrap these
// with eris for context; callers match with errors.Is.
var (
	// ErrMissingColumn means a required column is absent from the input
	// table. Fatal for the stage that needed it.
	ErrMissingColumn = eris.New("required column missing")

	// ErrMalformedValue means a value is present but unparsable, such as a
	// percentage string that is not a number. Fatal for that record or run.
	ErrMalformedValue = eris.New("malformed value")

	// ErrUnknownOrdinalCategories means an ordinal column was declared
	// without a configured rank order, or a training value falls outside
	// it. A configuration bug, fatal at fit time.
	ErrUnknownOrdinalCategories = eris.New("ordinal categories not configured")

	// ErrConvergence means the classifier failed to converge within its
	// iteration budget.
	ErrConvergence = eris.New("classifier did not converge")

	// ErrPipelineUnavailable means the persisted artifact is missing or
	// corrupt. Fatal for the serving process, not per call.
	ErrPipelineUnavailable = eris.New("prediction pipeline unavailable")
)
