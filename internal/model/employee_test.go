package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputTable(t *testing.T) {
	ins := []EmployeeInput{
		{
			IDEmploye:                     "E-1",
			Age:                           45,
			Genre:                         "F",
			RevenuMensuel:                 4500,
			HeureSupplementaires:          "Oui",
			AugmentationSalairePrecedente: "15 %",
			FrequenceDeplacement:          "Occasionnel",
		},
		{Age: 30, Genre: "M"},
	}

	tbl := InputTable(ins)
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, InputColumns(), tbl.Columns())

	assert.Equal(t, String("E-1"), tbl.At(0, ColEmployeeID))
	assert.Equal(t, Number(45), tbl.At(0, "age"))
	assert.Equal(t, String("15 %"), tbl.At(0, ColSalaryRaise))
	assert.Equal(t, String("Oui"), tbl.At(0, "heure_supplementaires"))
	assert.Equal(t, Number(30), tbl.At(1, "age"))
}

func TestInputColumns_Copy(t *testing.T) {
	cols := InputColumns()
	cols[0] = "mutated"
	assert.Equal(t, ColEmployeeID, InputColumns()[0])
}

func TestInputTable_Empty(t *testing.T) {
	tbl := InputTable(nil)
	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, len(InputColumns()), tbl.NumCols())
}
