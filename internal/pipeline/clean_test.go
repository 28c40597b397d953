package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/attrition-cli/internal/model"
)

func tableWith(t *testing.T, cols []string, rows ...[]model.Cell) *model.Table {
	t.Helper()
	tbl := model.NewTable(cols)
	for _, row := range rows {
		require.NoError(t, tbl.AppendRow(row))
	}
	return tbl
}

func minimalContract() *model.Contract {
	return &model.Contract{
		Fields: []model.FieldSpec{
			{Name: "age", Role: model.RoleNumeric},
		},
	}
}

func TestClean_TargetMapping(t *testing.T) {
	tbl := tableWith(t, []string{model.ColTargetText, "age"},
		[]model.Cell{model.String("Oui"), model.Number(30)},
		[]model.Cell{model.String("Non"), model.Number(31)},
		[]model.Cell{model.String("Peut-etre"), model.Number(32)},
		[]model.Cell{model.Null, model.Number(33)},
	)

	out, err := Clean(tbl, minimalContract(), ModeTrain)
	require.NoError(t, err)

	assert.False(t, out.HasColumn(model.ColTargetText))
	require.True(t, out.HasColumn(model.ColTarget))
	assert.Equal(t, model.Number(1), out.At(0, model.ColTarget))
	assert.Equal(t, model.Number(0), out.At(1, model.ColTarget))
	assert.Equal(t, model.Null, out.At(2, model.ColTarget))
	assert.Equal(t, model.Null, out.At(3, model.ColTarget))
}

func TestClean_TrainRequiresTarget(t *testing.T) {
	tbl := tableWith(t, []string{"age"}, []model.Cell{model.Number(30)})

	_, err := Clean(tbl, minimalContract(), ModeTrain)
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestClean_PredictModeTargetOptional(t *testing.T) {
	tbl := tableWith(t, []string{"age"}, []model.Cell{model.Number(30)})

	out, err := Clean(tbl, minimalContract(), ModePredict)
	require.NoError(t, err)
	assert.False(t, out.HasColumn(model.ColTarget))
}

func TestClean_NumericTargetPassesThrough(t *testing.T) {
	tbl := tableWith(t, []string{model.ColTarget, "age"},
		[]model.Cell{model.Number(1), model.Number(30)},
	)

	out, err := Clean(tbl, minimalContract(), ModeTrain)
	require.NoError(t, err)
	assert.Equal(t, model.Number(1), out.At(0, model.ColTarget))
}

func TestClean_PercentParsing(t *testing.T) {
	c := &model.Contract{Fields: []model.FieldSpec{
		{Name: "raise", Role: model.RoleNumeric, Percent: true},
	}}
	tbl := tableWith(t, []string{"raise"},
		[]model.Cell{model.String("15 %")},
		[]model.Cell{model.String("7.5%")},
		[]model.Cell{model.String("20")},
		[]model.Cell{model.Number(0.15)},
		[]model.Cell{model.Null},
	)

	out, err := Clean(tbl, c, ModePredict)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, out.At(0, "raise").Num(), 1e-12)
	assert.InDelta(t, 0.075, out.At(1, "raise").Num(), 1e-12)
	assert.InDelta(t, 0.20, out.At(2, "raise").Num(), 1e-12)
	assert.InDelta(t, 0.15, out.At(3, "raise").Num(), 1e-12)
	assert.True(t, out.At(4, "raise").IsNull())
}

func TestClean_PercentMalformed(t *testing.T) {
	c := &model.Contract{Fields: []model.FieldSpec{
		{Name: "raise", Role: model.RoleNumeric, Percent: true},
	}}
	tbl := tableWith(t, []string{"raise"}, []model.Cell{model.String("abc %")})

	_, err := Clean(tbl, c, ModePredict)
	require.ErrorIs(t, err, ErrMalformedValue)
}

func TestClean_BinaryMapping(t *testing.T) {
	c := &model.Contract{Fields: []model.FieldSpec{
		{Name: "genre", Role: model.RoleBinary, Binary: map[string]float64{"M": 0, "F": 1}},
	}}
	tbl := tableWith(t, []string{"genre"},
		[]model.Cell{model.String("M")},
		[]model.Cell{model.String("F")},
		[]model.Cell{model.String("X")},
		[]model.Cell{model.Number(1)},
	)

	out, err := Clean(tbl, c, ModePredict)
	require.NoError(t, err)
	assert.Equal(t, model.Number(0), out.At(0, "genre"))
	assert.Equal(t, model.Number(1), out.At(1, "genre"))
	assert.True(t, out.At(2, "genre").IsNull(), "unmapped value becomes missing")
	assert.Equal(t, model.Number(1), out.At(3, "genre"))
}

func TestClean_DropsAdministrativeColumns(t *testing.T) {
	c := &model.Contract{
		Fields:      []model.FieldSpec{{Name: "age", Role: model.RoleNumeric}},
		DropColumns: []string{model.ColCreatedAt, model.ColModifiedAt, "eval_number"},
	}
	tbl := tableWith(t, []string{"age", model.ColCreatedAt, model.ColModifiedAt},
		[]model.Cell{model.Number(30), model.String("2024-01-01"), model.String("2024-02-01")},
	)

	out, err := Clean(tbl, c, ModePredict)
	require.NoError(t, err)
	assert.Equal(t, []string{"age"}, out.Columns())
}

func TestClean_DedupeTrainOnly(t *testing.T) {
	row := []model.Cell{model.String("Non"), model.Number(30)}
	tbl := tableWith(t, []string{model.ColTargetText, "age"}, row, row)

	trained, err := Clean(tbl, minimalContract(), ModeTrain)
	require.NoError(t, err)
	assert.Equal(t, 1, trained.NumRows())

	predicted, err := Clean(tbl, minimalContract(), ModePredict)
	require.NoError(t, err)
	assert.Equal(t, 2, predicted.NumRows())
}

func TestClean_NormalizesStrings(t *testing.T) {
	c := &model.Contract{Fields: []model.FieldSpec{
		{Name: "statut", Role: model.RoleNominal},
	}}
	// NFD-encoded accent plus surrounding whitespace.
	tbl := tableWith(t, []string{"statut"},
		[]model.Cell{model.String("  Marié(e) ")},
		[]model.Cell{model.String("   ")},
	)

	out, err := Clean(tbl, c, ModePredict)
	require.NoError(t, err)
	assert.Equal(t, "Marié(e)", out.At(0, "statut").Str())
	assert.True(t, out.At(1, "statut").IsNull(), "whitespace-only strings become missing")
}

func TestClean_Idempotent(t *testing.T) {
	c := &model.Contract{
		Fields: []model.FieldSpec{
			{Name: "age", Role: model.RoleNumeric},
			{Name: "raise", Role: model.RoleNumeric, Percent: true},
			{Name: "genre", Role: model.RoleBinary, Binary: map[string]float64{"M": 0, "F": 1}},
		},
		DropColumns: []string{model.ColCreatedAt},
	}
	tbl := tableWith(t, []string{model.ColTargetText, "age", "raise", "genre", model.ColCreatedAt},
		[]model.Cell{model.String("Oui"), model.Number(30), model.String("15 %"), model.String("F"), model.String("2024-01-01")},
		[]model.Cell{model.String("Non"), model.Number(45), model.String("5 %"), model.String("M"), model.String("2024-01-02")},
	)

	once, err := Clean(tbl, c, ModeTrain)
	require.NoError(t, err)
	twice, err := Clean(once, c, ModeTrain)
	require.NoError(t, err)

	require.Equal(t, once.Columns(), twice.Columns())
	require.Equal(t, once.NumRows(), twice.NumRows())
	for r := 0; r < once.NumRows(); r++ {
		for _, col := range once.Columns() {
			assert.Equal(t, once.At(r, col), twice.At(r, col), "row %d column %s", r, col)
		}
	}
}

func TestClean_DefaultContractRecord(t *testing.T) {
	in := model.EmployeeInput{
		IDEmploye:                       "E-451",
		Age:                             45,
		Genre:                           "F",
		RevenuMensuel:                   4500,
		StatutMarital:                   "Célibataire",
		Departement:                     "Consulting",
		Poste:                           "Consultant",
		NombreExperiencesPrecedentes:    3,
		AnneesDansLEntreprise:           7,
		SatisfactionEnvironnement:       3,
		SatisfactionNatureTravail:       4,
		SatisfactionEquipe:              3,
		SatisfactionEquilibreProPerso:   2,
		NoteEvaluationPrecedente:        3,
		NoteEvaluationActuelle:          4,
		HeureSupplementaires:            "Oui",
		AugmentationSalairePrecedente:   "15 %",
		NombreParticipationPEE:          1,
		NbFormationsSuivies:             2,
		DistanceDomicileTravail:         12,
		NiveauEducation:                 4,
		DomaineEtude:                    "Marketing",
		FrequenceDeplacement:            "Occasionnel",
		AnneesDepuisLaDernierePromotion: 2,
	}

	out, err := Clean(model.InputTable([]model.EmployeeInput{in}), model.DefaultContract(), ModePredict)
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows())

	assert.Equal(t, "E-451", out.At(0, model.ColEmployeeID).Str())
	assert.InDelta(t, 0.15, out.At(0, model.ColSalaryRaise).Num(), 1e-12)
	assert.Equal(t, model.Number(1), out.At(0, "genre"))
	assert.Equal(t, model.Number(1), out.At(0, "heure_supplementaires"))
	assert.Equal(t, "Occasionnel", out.At(0, "frequence_deplacement").Str())
	assert.Equal(t, "Célibataire", out.At(0, "statut_marital").Str())
	assert.Equal(t, model.Number(45), out.At(0, "age"))
}

func TestParsePercent(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
	}{
		{"15 %", 0.15},
		{"15%", 0.15},
		{"15", 0.15},
		{" 7.5 % ", 0.075},
		{"0 %", 0},
	} {
		got, err := parsePercent(tc.in)
		require.NoError(t, err, tc.in)
		assert.InDelta(t, tc.want, got, 1e-12, tc.in)
	}

	_, err := parsePercent("abc %")
	assert.Error(t, err)
}
