package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "employees", []string{"id_employee", "age"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"employees"}, []string{"id_employee", "age"}).WillReturnResult(3)

	rows := [][]any{{"E1", 31.0}, {"E2", 44.0}, {"E3", 27.0}}
	n, err := CopyFrom(context.Background(), mock, "employees", []string{"id_employee", "age"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"employees"}, []string{"id_employee", "age"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"E1", 31.0}}
	_, err = CopyFrom(context.Background(), mock, "employees", []string{"id_employee", "age"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO employees")
	assert.NoError(t, mock.ExpectationsWereMet())
}
