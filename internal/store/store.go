// Package store persists employee records and prediction audit logs behind a
// driver-agnostic interface with Postgres and SQLite implementations.
package store

import (
	"context"

	"github.com/sells-group/attrition-cli/internal/model"
)

// LogFilter specifies criteria for listing prediction logs.
type LogFilter struct {
	EmployeeID   string `json:"employee_id,omitempty"`
	ModelVersion string `json:"model_version,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the attrition pipeline.
type Store interface {
	// Employees
	UpsertEmployees(ctx context.Context, t *model.Table) (int64, error)
	LoadEmployees(ctx context.Context) (*model.Table, error)
	CountEmployees(ctx context.Context) (int, error)

	// Prediction audit log
	LogPrediction(ctx context.Context, entry *model.AuditEntry) error
	ListPredictionLogs(ctx context.Context, filter LogFilter) ([]model.AuditEntry, error)
	CountPredictionLogs(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// employeeColumn describes one column of the employees table.
type employeeColumn struct {
	Name string
	Text bool
}

// employeeColumns lists the employees table columns both drivers share, in
// the order model.InputColumns declares plus the raw target. The two
// audit timestamps are maintained by the store itself.
var employeeColumns = []employeeColumn{
	{Name: model.ColEmployeeID, Text: true},
	{Name: "age"},
	{Name: "genre", Text: true},
	{Name: "revenu_mensuel"},
	{Name: "statut_marital", Text: true},
	{Name: "departement", Text: true},
	{Name: "poste", Text: true},
	{Name: "nombre_experiences_precedentes"},
	{Name: "annees_dans_l_entreprise"},
	{Name: "satisfaction_employee_environnement"},
	{Name: "satisfaction_employee_nature_travail"},
	{Name: "satisfaction_employee_equipe"},
	{Name: "satisfaction_employee_equilibre_pro_perso"},
	{Name: "note_evaluation_precedente"},
	{Name: "note_evaluation_actuelle"},
	{Name: "heure_supplementaires", Text: true},
	{Name: model.ColSalaryRaise},
	{Name: "nombre_participation_pee"},
	{Name: "nb_formations_suivies"},
	{Name: "distance_domicile_travail"},
	{Name: "niveau_education"},
	{Name: "domaine_etude", Text: true},
	{Name: "frequence_deplacement", Text: true},
	{Name: "annees_depuis_la_derniere_promotion"},
	{Name: model.ColTargetText, Text: true},
}

func employeeColumnNames() []string {
	names := make([]string, len(employeeColumns))
	for i, c := range employeeColumns {
		names[i] = c.Name
	}
	return names
}

// rowValues extracts one table row in employees-column order. Columns the
// table does not carry, and null cells, become NULL.
func rowValues(t *model.Table, row int) []any {
	vals := make([]any, len(employeeColumns))
	for i, col := range employeeColumns {
		if !t.HasColumn(col.Name) {
			continue
		}
		cell := t.At(row, col.Name)
		if cell.IsNull() {
			continue
		}
		if cell.IsString() {
			vals[i] = cell.Str()
		} else {
			vals[i] = cell.Num()
		}
	}
	return vals
}

// scanTargets allocates scan destinations for one employees row: nullable
// strings for text columns, nullable floats for the rest.
func scanTargets() []any {
	dests := make([]any, len(employeeColumns))
	for i, col := range employeeColumns {
		if col.Text {
			dests[i] = new(*string)
		} else {
			dests[i] = new(*float64)
		}
	}
	return dests
}

// appendScanned converts one set of scan destinations into table cells.
func appendScanned(t *model.Table, dests []any) error {
	cells := make([]model.Cell, len(dests))
	for i, d := range dests {
		switch v := d.(type) {
		case **string:
			if *v == nil {
				cells[i] = model.Null
			} else {
				cells[i] = model.String(**v)
			}
		case **float64:
			if *v == nil {
				cells[i] = model.Null
			} else {
				cells[i] = model.Number(**v)
			}
		}
	}
	return t.AppendRow(cells)
}
