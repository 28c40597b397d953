package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/attrition-cli/internal/db"
	"github.com/sells-group/attrition-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_prediction_log": `INSERT INTO api_prediction_logs
		(timestamp_requete, employee_id_concerne, input_data, prediction_probabilite, prediction_classe, version_modele)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING log_id`,
	"count_employees":       `SELECT COUNT(*) FROM employees`,
	"count_prediction_logs": `SELECT COUNT(*) FROM api_prediction_logs`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, mainly for tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for use by subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// postgresMigration creates the employees and prediction-log tables. The
// employees DDL is generated from employeeColumns so the schema cannot drift
// from what the store reads and writes.
func postgresMigration() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS employees (\n")
	for _, col := range employeeColumns {
		typ := "DOUBLE PRECISION"
		if col.Text {
			typ = "TEXT"
		}
		constraint := ""
		if col.Name == model.ColEmployeeID {
			constraint = " PRIMARY KEY"
		}
		fmt.Fprintf(&b, "\t%s %s%s,\n", pgx.Identifier{col.Name}.Sanitize(), typ, constraint)
	}
	b.WriteString("\t" + pgx.Identifier{model.ColCreatedAt}.Sanitize() + " TIMESTAMPTZ NOT NULL DEFAULT now(),\n")
	b.WriteString("\t" + pgx.Identifier{model.ColModifiedAt}.Sanitize() + " TIMESTAMPTZ NOT NULL DEFAULT now()\n")
	b.WriteString(");\n")

	b.WriteString(`
CREATE TABLE IF NOT EXISTS api_prediction_logs (
	log_id                 BIGSERIAL PRIMARY KEY,
	timestamp_requete      TIMESTAMPTZ NOT NULL DEFAULT now(),
	employee_id_concerne   TEXT,
	input_data             JSONB NOT NULL,
	prediction_probabilite DOUBLE PRECISION NOT NULL,
	prediction_classe      INTEGER NOT NULL,
	version_modele         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prediction_logs_employee ON api_prediction_logs(employee_id_concerne);
CREATE INDEX IF NOT EXISTS idx_prediction_logs_timestamp ON api_prediction_logs(timestamp_requete DESC);
CREATE INDEX IF NOT EXISTS idx_prediction_logs_version ON api_prediction_logs(version_modele);
`)
	return b.String()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration())
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertEmployees(ctx context.Context, t *model.Table) (int64, error) {
	if !t.HasColumn(model.ColEmployeeID) {
		return 0, eris.Errorf("postgres: upsert employees: missing column %s", model.ColEmployeeID)
	}

	cols := append(employeeColumnNames(), model.ColModifiedAt)
	now := time.Now().UTC()

	rows := make([][]any, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		rows = append(rows, append(rowValues(t, i), now))
	}

	// An empty table has nothing to conflict with, so the initial load
	// skips the temp-table upsert and goes straight through COPY.
	count, err := s.CountEmployees(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert employees")
	}
	if count == 0 {
		n, err := db.CopyFrom(ctx, s.pool, "employees", cols, rows)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: bulk load employees")
		}
		return n, nil
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "employees",
		Columns:      cols,
		ConflictKeys: []string{model.ColEmployeeID},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert employees")
	}
	return n, nil
}

func (s *PostgresStore) LoadEmployees(ctx context.Context) (*model.Table, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees ORDER BY %s`,
		quotedEmployeeColumns(), pgx.Identifier{model.ColEmployeeID}.Sanitize())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load employees")
	}
	defer rows.Close()

	t := model.NewTable(employeeColumnNames())
	for rows.Next() {
		dests := scanTargets()
		if err := rows.Scan(dests...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan employee")
		}
		if err := appendScanned(t, dests); err != nil {
			return nil, eris.Wrap(err, "postgres: append employee")
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: load employees iterate")
	}
	return t, nil
}

func (s *PostgresStore) CountEmployees(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM employees`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count employees")
}

func (s *PostgresStore) LogPrediction(ctx context.Context, entry *model.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO api_prediction_logs
		 (timestamp_requete, employee_id_concerne, input_data, prediction_probabilite, prediction_classe, version_modele)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING log_id`,
		entry.Timestamp, entry.EmployeeID, []byte(entry.Input),
		entry.Probability, entry.Class, entry.ModelVersion,
	).Scan(&entry.LogID)
	return eris.Wrap(err, "postgres: log prediction")
}

func (s *PostgresStore) ListPredictionLogs(ctx context.Context, filter LogFilter) ([]model.AuditEntry, error) {
	query := `SELECT log_id, timestamp_requete, employee_id_concerne, input_data, prediction_probabilite, prediction_classe, version_modele
	          FROM api_prediction_logs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.EmployeeID != "" {
		query += fmt.Sprintf(` AND employee_id_concerne = $%d`, argIdx)
		args = append(args, filter.EmployeeID)
		argIdx++
	}
	if filter.ModelVersion != "" {
		query += fmt.Sprintf(` AND version_modele = $%d`, argIdx)
		args = append(args, filter.ModelVersion)
		argIdx++
	}
	query += ` ORDER BY timestamp_requete DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list prediction logs")
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var input []byte
		if err := rows.Scan(&e.LogID, &e.Timestamp, &e.EmployeeID, &input,
			&e.Probability, &e.Class, &e.ModelVersion); err != nil {
			return nil, eris.Wrap(err, "postgres: scan prediction log")
		}
		e.Input = input
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list prediction logs iterate")
}

func (s *PostgresStore) CountPredictionLogs(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_prediction_logs`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count prediction logs")
}

func quotedEmployeeColumns() string {
	quoted := make([]string, len(employeeColumns))
	for i, c := range employeeColumns {
		quoted[i] = pgx.Identifier{c.Name}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
