package tenant

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(siteColumns)
	siteRow(rows, 1, "acme", "acme.example.com")
	siteRow(rows, 2, "beta", "beta.example.com")
	mock.ExpectQuery(`FROM\s+site\s+WHERE\s+suspended_at IS NULL\s+AND\s+deleted_at\s+IS NULL\s+ORDER\s+BY id`).
		WillReturnRows(rows)

	sites, err := AllActive(context.Background(), sqlx.NewDb(db, "sqlmock"))
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "beta_db", sites[1].DBName)
}
