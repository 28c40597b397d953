package pipeline

import "github.com/sells-group/attrition-cli/internal/model"

// Assemble is the feature-engineering stage. It is currently the identity
// transform: derived features belong here, between cleaning and the column
// transform, so that both the training and the serving path pick them up
// without touching either neighbor. It must stay in both call paths even
// while empty.
func Assemble(t *model.Table) *model.Table {
	return t
}
