package pipeline

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/attrition-cli/internal/model"
)

// NumericState holds the fit-time statistics of one numeric column.
type NumericState struct {
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// NominalState holds the fit-time mode and vocabulary of one nominal column.
// Vocabulary is sorted; its first entry is the dropped baseline category,
// implicitly represented by an all-zero indicator row.
type NominalState struct {
	Mode       string   `json:"mode"`
	Vocabulary []string `json:"vocabulary"`
}

// OrdinalState holds the fit-time mode and the externally configured rank
// order of one ordinal column.
type OrdinalState struct {
	Mode  string   `json:"mode"`
	Order []string `json:"order"`
}

// FittedTransform is the learned state of the column transform: imputation
// values, scaler parameters, one-hot vocabularies, ordinal rank maps, and the
// output column order fixed once at fit time. It is fit exactly once per
// training run and then applied unmodified at inference; Apply reproduces the
// same column count and order on every call.
type FittedTransform struct {
	Inputs  []string                `json:"inputs"`  // feature columns consumed, contract order
	Columns []string                `json:"columns"` // output matrix columns, fixed at fit time
	Numeric map[string]NumericState `json:"numeric"`
	Nominal map[string]NominalState `json:"nominal"`
	Ordinal map[string]OrdinalState `json:"ordinal"`
}

// Fit learns the column transform state from a cleaned training table. Every
// field the contract declares must be present; a declared-versus-actual
// mismatch is a configuration defect, not tolerable input. Fitting twice
// simply produces a fresh state; there is no incremental mode.
func Fit(t *model.Table, c *model.Contract) (*FittedTransform, error) {
	log := zap.L().Named("transform")

	ft := &FittedTransform{
		Numeric: make(map[string]NumericState),
		Nominal: make(map[string]NominalState),
		Ordinal: make(map[string]OrdinalState),
	}

	for _, f := range c.Fields {
		if !t.HasColumn(f.Name) {
			return nil, eris.Wrapf(ErrMissingColumn, "transform: fit: declared column %q", f.Name)
		}
		ft.Inputs = append(ft.Inputs, f.Name)

		switch f.Role {
		case model.RoleNumeric, model.RoleBinary:
			st, err := fitNumeric(t, f.Name)
			if err != nil {
				return nil, err
			}
			ft.Numeric[f.Name] = st
			ft.Columns = append(ft.Columns, f.Name)

		case model.RoleOrdinal:
			st, err := fitOrdinal(t, f)
			if err != nil {
				return nil, err
			}
			ft.Ordinal[f.Name] = st
			ft.Columns = append(ft.Columns, f.Name)

		case model.RoleNominal:
			st := fitNominal(t, f.Name)
			if len(st.Vocabulary) == 0 {
				log.Warn("nominal column has no observed categories", zap.String("column", f.Name))
			}
			ft.Nominal[f.Name] = st
			for _, cat := range st.Vocabulary[min(1, len(st.Vocabulary)):] {
				ft.Columns = append(ft.Columns, indicatorName(f.Name, cat))
			}

		default:
			return nil, eris.Errorf("transform: fit: column %q has unknown role %q", f.Name, f.Role)
		}
	}

	log.Info("transform fitted",
		zap.Int("input_columns", len(ft.Inputs)),
		zap.Int("output_columns", len(ft.Columns)),
		zap.Int("rows", t.NumRows()),
	)
	return ft, nil
}

// Apply transforms a cleaned table into the numeric feature matrix using the
// previously fitted state. The output column order is exactly the fit-time
// order regardless of which categories the batch happens to contain.
func (ft *FittedTransform) Apply(t *model.Table) (*mat.Dense, error) {
	log := zap.L().Named("transform")

	for _, col := range ft.Inputs {
		if !t.HasColumn(col) {
			return nil, eris.Wrapf(ErrMissingColumn, "transform: apply: fitted column %q", col)
		}
	}

	n := t.NumRows()
	out := mat.NewDense(n, len(ft.Columns), nil)
	unseen := make(map[string]int)

	j := 0
	for _, col := range ft.Inputs {
		switch {
		case hasKey(ft.Numeric, col):
			st := ft.Numeric[col]
			for r := 0; r < n; r++ {
				v, err := numericValue(t.At(r, col), st.Median)
				if err != nil {
					return nil, eris.Wrapf(ErrMalformedValue, "transform: row %d column %q", r, col)
				}
				out.Set(r, j, (v-st.Mean)/st.Std)
			}
			j++

		case hasKey(ft.Ordinal, col):
			st := ft.Ordinal[col]
			for r := 0; r < n; r++ {
				out.Set(r, j, ordinalRank(t.At(r, col), st, unseen, col))
			}
			j++

		case hasKey(ft.Nominal, col):
			st := ft.Nominal[col]
			width := len(st.Vocabulary) - 1
			if width < 0 {
				width = 0
			}
			for r := 0; r < n; r++ {
				cat := nominalCategory(t.At(r, col), st.Mode)
				hit := false
				for k, v := range st.Vocabulary {
					if v != cat {
						continue
					}
					hit = true
					if k > 0 {
						out.Set(r, j+k-1, 1)
					}
					break
				}
				// Unseen categories encode as the all-zero baseline row.
				if !hit && cat != "" {
					unseen[col]++
				}
			}
			j += width
		}
	}

	for col, count := range unseen {
		log.Warn("categories unseen at fit time resolved to baseline",
			zap.String("column", col),
			zap.Int("count", count),
		)
	}
	return out, nil
}

func fitNumeric(t *model.Table, col string) (NumericState, error) {
	var data stats.Float64Data
	for r := 0; r < t.NumRows(); r++ {
		c := t.At(r, col)
		switch {
		case c.IsNumber():
			data = append(data, c.Num())
		case c.IsString():
			return NumericState{}, eris.Wrapf(ErrMalformedValue, "transform: fit: row %d column %q: %q", r, col, c.Str())
		}
	}
	if len(data) == 0 {
		zap.L().Named("transform").Warn("numeric column entirely missing", zap.String("column", col))
		return NumericState{Std: 1}, nil
	}

	median, err := stats.Median(data)
	if err != nil {
		return NumericState{}, eris.Wrapf(err, "transform: fit: median of %q", col)
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return NumericState{}, eris.Wrapf(err, "transform: fit: mean of %q", col)
	}
	std, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return NumericState{}, eris.Wrapf(err, "transform: fit: std of %q", col)
	}
	if std == 0 {
		std = 1
	}
	return NumericState{Median: median, Mean: mean, Std: std}, nil
}

func fitOrdinal(t *model.Table, f model.FieldSpec) (OrdinalState, error) {
	if len(f.Ordering) == 0 {
		return OrdinalState{}, eris.Wrapf(ErrUnknownOrdinalCategories, "transform: fit: column %q", f.Name)
	}
	rank := make(map[string]bool, len(f.Ordering))
	for _, v := range f.Ordering {
		rank[v] = true
	}

	counts := make(map[string]int)
	for r := 0; r < t.NumRows(); r++ {
		c := t.At(r, f.Name)
		if !c.IsString() {
			continue
		}
		if !rank[c.Str()] {
			return OrdinalState{}, eris.Wrapf(ErrUnknownOrdinalCategories,
				"transform: fit: column %q value %q outside configured order", f.Name, c.Str())
		}
		counts[c.Str()]++
	}

	mode := modeOf(counts)
	if mode == "" {
		mode = f.Ordering[0]
	}
	return OrdinalState{Mode: mode, Order: append([]string(nil), f.Ordering...)}, nil
}

func fitNominal(t *model.Table, col string) NominalState {
	counts := make(map[string]int)
	for r := 0; r < t.NumRows(); r++ {
		c := t.At(r, col)
		if c.IsNull() {
			continue
		}
		counts[c.Render()]++
	}

	vocab := make([]string, 0, len(counts))
	for v := range counts {
		vocab = append(vocab, v)
	}
	sort.Strings(vocab)

	return NominalState{Mode: modeOf(counts), Vocabulary: vocab}
}

// numericValue resolves a cell on the numeric path: numbers pass through,
// missing values take the fit-time median, strings are malformed.
func numericValue(c model.Cell, median float64) (float64, error) {
	switch {
	case c.IsNumber():
		return c.Num(), nil
	case c.IsNull():
		return median, nil
	default:
		return 0, eris.New("string on numeric path")
	}
}

// ordinalRank resolves a cell on the ordinal path. Unseen categories at
// apply time are treated as missing and imputed with the mode, unlike at fit
// time where they are fatal.
func ordinalRank(c model.Cell, st OrdinalState, unseen map[string]int, col string) float64 {
	if c.IsNumber() {
		return c.Num() // already encoded upstream
	}
	cat := st.Mode
	if c.IsString() {
		cat = c.Str()
	}
	for k, v := range st.Order {
		if v == cat {
			return float64(k)
		}
	}
	unseen[col]++
	for k, v := range st.Order {
		if v == st.Mode {
			return float64(k)
		}
	}
	return 0
}

func nominalCategory(c model.Cell, mode string) string {
	if c.IsNull() {
		return mode
	}
	return c.Render()
}

// modeOf returns the most frequent key; ties break toward the
// lexicographically smallest so refitting is deterministic.
func modeOf(counts map[string]int) string {
	best := ""
	bestN := -1
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > bestN {
			best = k
			bestN = counts[k]
		}
	}
	return best
}

func indicatorName(col, category string) string {
	return fmt.Sprintf("%s=%s", col, category)
}

func hasKey[V any](m map[string]V, k string) bool {
	_, ok := m[k]
	return ok
}
