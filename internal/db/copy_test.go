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
	n, err := CopyFrom(context.TODO(), nil, "resources", []string{"id", "url"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"resources"}, []string{"id", "url"}).WillReturnResult(3)

	rows := [][]any{
		{"r1", "http://example.gov/a.csv"},
		{"r2", "http://example.gov/b.csv"},
		{"r3", "http://example.gov/c.csv"},
	}
	n, err := CopyFrom(context.Background(), mock, "resources", []string{"id", "url"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"resources"}, []string{"id", "url"}).
		WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"r1", "http://example.gov/a.csv"}}
	_, err = CopyFrom(context.Background(), mock, "resources", []string{"id", "url"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO resources")
	assert.NoError(t, mock.ExpectationsWereMet())
}
