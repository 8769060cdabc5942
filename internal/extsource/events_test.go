package extsource

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventListerListsWithoutCache(t *testing.T) {
	mock, db := mockDB(t)
	mock.ExpectQuery("SHOW TABLES").WillReturnRows(tableRows("eventos", "inscricoes"))
	mock.ExpectQuery("DESCRIBE `eventos`").WillReturnRows(describeRows("id", "nome"))
	mock.ExpectQuery("SELECT `id`, `nome` FROM `eventos` ORDER BY `id`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "nome"}).
			AddRow(1, "Acampamento 2026").
			AddRow(2, "Retiro de Jovens"))

	lister := NewEventLister(nil, nil)
	events, err := lister.List(context.Background(), db, "mysql://source-a")
	require.NoError(t, err)
	assert.Equal(t, []Event{
		{ID: "1", Name: "Acampamento 2026"},
		{ID: "2", Name: "Retiro de Jovens"},
	}, events)
}

func TestEventListerNoEventsTableYieldsEmptyList(t *testing.T) {
	mock, db := mockDB(t)
	mock.ExpectQuery("SHOW TABLES").WillReturnRows(tableRows("inscricoes"))

	lister := NewEventLister(nil, nil)
	events, err := lister.List(context.Background(), db, "mysql://source-a")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEventsCacheKeyVariesBySource(t *testing.T) {
	a := eventsCacheKey("mysql://source-a")
	b := eventsCacheKey("mysql://source-b")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, eventsCacheKey("mysql://source-a"))
}
