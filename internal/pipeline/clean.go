package pipeline

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/attrition-cli/internal/model"
)

// Mode selects the cleaning behavior that differs between training and
// serving: only training requires (and derives) the target column, and only
// training de-duplicates rows. Everything else is identical on both paths.
type Mode int

const (
	// ModeTrain requires the target column and removes duplicate rows.
	ModeTrain Mode = iota
	// ModePredict ignores the target and keeps duplicate rows, since a
	// batch may legitimately ask for the same employee twice.
	ModePredict
)

// Clean normalizes a raw table into the representation the column transform
// expects: target text mapped to {0,1}, percentage strings parsed to decimal
// fractions, binary text fields mapped via the contract lookup tables,
// administrative columns dropped. Pure with respect to its input, and
// idempotent: cleaning cleaned output is a no-op.
func Clean(t *model.Table, c *model.Contract, mode Mode) (*model.Table, error) {
	log := zap.L().Named("clean")
	out := t.Clone()
	before := out.NumRows()

	normalizeStrings(out)

	if err := convertTarget(out, mode); err != nil {
		return nil, err
	}
	if out.HasColumn(model.ColTargetText) {
		out = out.DropColumns(model.ColTargetText)
	}

	if err := convertPercentages(out, c); err != nil {
		return nil, err
	}

	mapBinaryFields(out, c, log)

	if len(c.DropColumns) > 0 {
		out = out.DropColumns(c.DropColumns...)
	}

	if mode == ModeTrain {
		out = out.Dedupe()
	}

	if dropped := before - out.NumRows(); dropped > 0 {
		log.Info("dropped duplicate rows", zap.Int("rows", dropped), zap.Int("remaining", out.NumRows()))
	}
	return out, nil
}

// normalizeStrings rewrites every string cell to NFC form and trims
// surrounding whitespace, so accented category values ("Célibataire",
// "Marié(e)") compare equal regardless of the source encoding.
func normalizeStrings(t *model.Table) {
	for _, col := range t.Columns() {
		for r := 0; r < t.NumRows(); r++ {
			c := t.At(r, col)
			if !c.IsString() {
				continue
			}
			s := strings.TrimSpace(norm.NFC.String(c.Str()))
			if s == "" {
				t.Set(r, col, model.Null)
			} else if s != c.Str() {
				t.Set(r, col, model.String(s))
			}
		}
	}
}

// convertTarget derives the numeric target from the textual yes/no column.
// In training mode one of the two target columns must be present; a table
// that already carries the numeric column passes through untouched.
func convertTarget(t *model.Table, mode Mode) error {
	if !t.HasColumn(model.ColTargetText) {
		if mode == ModeTrain && !t.HasColumn(model.ColTarget) {
			return eris.Wrapf(ErrMissingColumn, "clean: target column %q", model.ColTargetText)
		}
		return nil
	}

	tt := t.AddColumn(model.ColTarget)
	*t = *tt
	for r := 0; r < t.NumRows(); r++ {
		c := t.At(r, model.ColTargetText)
		switch {
		case c.IsString() && c.Str() == "Oui":
			t.Set(r, model.ColTarget, model.Number(1))
		case c.IsString() && c.Str() == "Non":
			t.Set(r, model.ColTarget, model.Number(0))
		default:
			t.Set(r, model.ColTarget, model.Null)
		}
	}
	return nil
}

// convertPercentages parses percentage-formatted feature strings ("15 %")
// into decimal fractions (0.15). Already-numeric cells pass through, which
// keeps cleaning idempotent and lets training data arrive pre-converted.
func convertPercentages(t *model.Table, c *model.Contract) error {
	for _, f := range c.Fields {
		if !f.Percent || !t.HasColumn(f.Name) {
			continue
		}
		for r := 0; r < t.NumRows(); r++ {
			cell := t.At(r, f.Name)
			if !cell.IsString() {
				continue
			}
			v, err := parsePercent(cell.Str())
			if err != nil {
				return eris.Wrapf(ErrMalformedValue, "clean: row %d column %q: %q", r, f.Name, cell.Str())
			}
			t.Set(r, f.Name, model.Number(v))
		}
	}
	return nil
}

// parsePercent converts "15 %" (or "15%", "15") to 0.15.
func parsePercent(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v / 100, nil
}

// mapBinaryFields replaces binary text values with their {0,1} encoding.
// Values outside the lookup become missing and are imputed at transform
// time; that is logged but never fails the run.
func mapBinaryFields(t *model.Table, c *model.Contract, log *zap.Logger) {
	for _, f := range c.FieldsByRole(model.RoleBinary) {
		if !t.HasColumn(f.Name) {
			log.Warn("binary column absent", zap.String("column", f.Name))
			continue
		}
		unmapped := 0
		for r := 0; r < t.NumRows(); r++ {
			cell := t.At(r, f.Name)
			if cell.IsNumber() || cell.IsNull() {
				continue
			}
			if v, ok := f.Binary[cell.Str()]; ok {
				t.Set(r, f.Name, model.Number(v))
			} else {
				t.Set(r, f.Name, model.Null)
				unmapped++
			}
		}
		if unmapped > 0 {
			log.Warn("unmapped binary values set to missing",
				zap.String("column", f.Name),
				zap.Int("count", unmapped),
			)
		}
	}
}
