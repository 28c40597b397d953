package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/attrition-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// sqliteMigration mirrors the Postgres schema with SQLite types. The
// employees DDL is generated from employeeColumns so both drivers stay in
// step.
func sqliteMigration() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS employees (\n")
	for _, col := range employeeColumns {
		typ := "REAL"
		if col.Text {
			typ = "TEXT"
		}
		constraint := ""
		if col.Name == model.ColEmployeeID {
			constraint = " PRIMARY KEY"
		}
		fmt.Fprintf(&b, "\t%s %s%s,\n", col.Name, typ, constraint)
	}
	b.WriteString("\t" + model.ColCreatedAt + " DATETIME NOT NULL DEFAULT (datetime('now')),\n")
	b.WriteString("\t" + model.ColModifiedAt + " DATETIME NOT NULL DEFAULT (datetime('now'))\n")
	b.WriteString(");\n")

	b.WriteString(`
CREATE TABLE IF NOT EXISTS api_prediction_logs (
	log_id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp_requete      DATETIME NOT NULL DEFAULT (datetime('now')),
	employee_id_concerne   TEXT,
	input_data             TEXT NOT NULL,
	prediction_probabilite REAL NOT NULL,
	prediction_classe      INTEGER NOT NULL,
	version_modele         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prediction_logs_employee ON api_prediction_logs(employee_id_concerne);
CREATE INDEX IF NOT EXISTS idx_prediction_logs_timestamp ON api_prediction_logs(timestamp_requete);
`)
	return b.String()
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration())
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertEmployees(ctx context.Context, t *model.Table) (int64, error) {
	if !t.HasColumn(model.ColEmployeeID) {
		return 0, eris.Errorf("sqlite: upsert employees: missing column %s", model.ColEmployeeID)
	}
	if t.NumRows() == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert employees: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertSQL())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert employees: prepare")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var total int64
	for i := 0; i < t.NumRows(); i++ {
		if _, err := stmt.ExecContext(ctx, append(rowValues(t, i), now)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert employee row %d", i)
		}
		total++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert employees: commit")
	}
	return total, nil
}

// sqliteUpsertSQL builds the per-row INSERT ... ON CONFLICT statement over
// the shared column list plus the modification timestamp.
func sqliteUpsertSQL() string {
	cols := append(employeeColumnNames(), model.ColModifiedAt)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	var sets []string
	for _, c := range cols {
		if c == model.ColEmployeeID {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}

	return fmt.Sprintf(
		`INSERT INTO employees (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s`,
		strings.Join(cols, ", "), placeholders, model.ColEmployeeID, strings.Join(sets, ", "),
	)
}

func (s *SQLiteStore) LoadEmployees(ctx context.Context) (*model.Table, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees ORDER BY %s`,
		strings.Join(employeeColumnNames(), ", "), model.ColEmployeeID)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load employees")
	}
	defer rows.Close()

	t := model.NewTable(employeeColumnNames())
	for rows.Next() {
		dests := scanTargets()
		if err := rows.Scan(dests...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan employee")
		}
		if err := appendScanned(t, dests); err != nil {
			return nil, eris.Wrap(err, "sqlite: append employee")
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: load employees iterate")
	}
	return t, nil
}

func (s *SQLiteStore) CountEmployees(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count employees")
}

func (s *SQLiteStore) LogPrediction(ctx context.Context, entry *model.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO api_prediction_logs
		 (timestamp_requete, employee_id_concerne, input_data, prediction_probabilite, prediction_classe, version_modele)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.EmployeeID, string(entry.Input),
		entry.Probability, entry.Class, entry.ModelVersion,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: log prediction")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: log prediction id")
	}
	entry.LogID = id
	return nil
}

func (s *SQLiteStore) ListPredictionLogs(ctx context.Context, filter LogFilter) ([]model.AuditEntry, error) {
	query := `SELECT log_id, timestamp_requete, employee_id_concerne, input_data, prediction_probabilite, prediction_classe, version_modele
	          FROM api_prediction_logs WHERE 1=1`
	var args []any

	if filter.EmployeeID != "" {
		query += ` AND employee_id_concerne = ?`
		args = append(args, filter.EmployeeID)
	}
	if filter.ModelVersion != "" {
		query += ` AND version_modele = ?`
		args = append(args, filter.ModelVersion)
	}
	query += ` ORDER BY timestamp_requete DESC, log_id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list prediction logs")
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var input string
		var employeeID sql.NullString
		if err := rows.Scan(&e.LogID, &e.Timestamp, &employeeID, &input,
			&e.Probability, &e.Class, &e.ModelVersion); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prediction log")
		}
		e.EmployeeID = employeeID.String
		e.Input = []byte(input)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list prediction logs iterate")
}

func (s *SQLiteStore) CountPredictionLogs(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_prediction_logs`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count prediction logs")
}
