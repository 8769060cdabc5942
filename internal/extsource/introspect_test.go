package extsource

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockDB(t *testing.T) (sqlmock.Sqlmock, Querier) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, db
}

func tableRows(names ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"Tables_in_db"})
	for _, n := range names {
		rows.AddRow(n)
	}
	return rows
}

func describeRows(cols ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"})
	for _, c := range cols {
		rows.AddRow(c, "varchar(255)", "YES", "", nil, "")
	}
	return rows
}

func TestDiscoverEventsTableMatchesCaseInsensitively(t *testing.T) {
	mock, db := mockDB(t)
	mock.ExpectQuery("SHOW TABLES").WillReturnRows(tableRows("Usuarios", "Eventos", "Inscricoes"))
	mock.ExpectQuery("DESCRIBE `Eventos`").WillReturnRows(describeRows("id", "nome", "data"))

	table, err := DiscoverEventsTable(context.Background(), db)
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Equal(t, "Eventos", table.Table)
	assert.Equal(t, "id", table.IDColumn)
	assert.Equal(t, "nome", table.NameColumn)
}

func TestDiscoverEventsTableMissingIsNotAnError(t *testing.T) {
	mock, db := mockDB(t)
	mock.ExpectQuery("SHOW TABLES").WillReturnRows(tableRows("usuarios", "inscricoes"))

	table, err := DiscoverEventsTable(context.Background(), db)
	require.NoError(t, err)
	assert.Nil(t, table)
}

func TestDiscoverEventsTableNameFallsBackToFirstColumn(t *testing.T) {
	mock, db := mockDB(t)
	mock.ExpectQuery("SHOW TABLES").WillReturnRows(tableRows("eventos"))
	mock.ExpectQuery("DESCRIBE `eventos`").WillReturnRows(describeRows("codigo", "quando"))

	table, err := DiscoverEventsTable(context.Background(), db)
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Equal(t, "codigo", table.IDColumn)
	assert.Equal(t, "codigo", table.NameColumn)
}

func TestDiscoverRegistrationSchema(t *testing.T) {
	mock, db := mockDB(t)
	mock.ExpectQuery("SHOW TABLES").
		WillReturnRows(tableRows("Inscricoes", "distritos", "igrejas", "lotes"))
	mock.ExpectQuery("DESCRIBE `Inscricoes`").WillReturnRows(describeRows(
		"id", "nome_completo", "data_nascimento", "status", "foto",
		"distrito_id", "igreja_id", "lote_id", "evento_id", "created_at",
	))

	schema, err := DiscoverRegistrationSchema(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, "Inscricoes", schema.Table)
	assert.Equal(t, "nome_completo", schema.Name)
	assert.Equal(t, "evento_id", schema.EventRef)
	assert.Equal(t, "distritos", schema.Lookups.District)
	assert.Equal(t, "igrejas", schema.Lookups.Church)
	assert.Equal(t, "lotes", schema.Lookups.Lot)
}

func TestDiscoverRegistrationSchemaMissingTableIsFatal(t *testing.T) {
	mock, db := mockDB(t)
	mock.ExpectQuery("SHOW TABLES").WillReturnRows(tableRows("whatever"))

	_, err := DiscoverRegistrationSchema(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no registration table")
}
