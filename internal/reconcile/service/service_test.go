package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"eventdesk/internal/audit"
	"eventdesk/internal/extsource"
	"eventdesk/internal/reconcile"
	"eventdesk/internal/registration"
	regstore "eventdesk/internal/registration/store"
)

type ServiceSuite struct {
	suite.Suite

	store *regstore.MemoryStore
	audit *audit.MemoryStore
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = regstore.NewMemory()
	s.audit = audit.NewMemoryStore()
}

// newService wires a Service whose external connections are served by the
// given sqlmock database.
func (s *ServiceSuite) newService(db *sql.DB) *Service {
	svc, err := New("mysql://user:pw@source/db",
		extsource.NewFetcher("https://media.test/uploads", nil),
		s.store,
		WithConnector(func(ctx context.Context, dsn string) (*sql.DB, error) {
			if db == nil {
				return nil, errors.New("connection refused")
			}
			return db, nil
		}),
		WithAudit(audit.NewPublisher(s.audit, nil)),
	)
	s.Require().NoError(err)
	return svc
}

// expectExternalSource queues the introspection plus a registration result
// set with the given rows. Lookup tables load concurrently, so matching is
// unordered.
func expectExternalSource(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("SHOW TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_db"}).AddRow("inscricoes"))
	mock.ExpectQuery("DESCRIBE `inscricoes`").
		WillReturnRows(sqlmock.NewRows([]string{"Field", "Type"}).
			AddRow("id", "int").
			AddRow("nome", "varchar(255)").
			AddRow("status", "varchar(32)").
			AddRow("created_at", "datetime"))
	mock.ExpectQuery("SELECT .+ FROM `inscricoes`").WillReturnRows(rows)
}

func externalRows(pairs ...[2]string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "nome", "status", "created_at"})
	for i, p := range pairs {
		rows.AddRow(p[0], p[1], "pago", fmt.Sprintf("2026-01-%02d 08:00:00", i+1))
	}
	return rows
}

func (s *ServiceSuite) TestRun() {
	s.Run("replaces external records and preserves manual ones", func() {
		s.SetupTest()
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		s.Require().NoError(err)
		expectExternalSource(mock, externalRows(
			[2]string{"10", "Ana Souza"},
			[2]string{"11", "Bruno Lima"},
		))

		s.Require().NoError(s.store.ReplaceAll(context.Background(), "owner-1", []registration.Registrant{
			{ID: "stale", OwnerID: "owner-1", Number: 1, Name: "Old External", ExternalID: "9"},
			{ID: "man-1", OwnerID: "owner-1", Number: 2, Name: "Carla Manual", IsManual: true,
				PaymentStatus: registration.StatusManual},
		}))

		svc := s.newService(db)
		res, err := svc.Run(context.Background(), "owner-1", extsource.Filter{})
		s.Require().NoError(err)

		s.Equal(reconcile.StateDone, res.State)
		s.Equal(2, res.ExternalCount)
		s.Equal(1, res.ManualCount)
		s.Equal(3, res.Total)

		regs, err := s.store.ListByOwner(context.Background(), "owner-1")
		s.Require().NoError(err)
		s.Require().Len(regs, 3)
		s.Equal("Ana Souza", regs[0].Name)
		s.Equal(1, regs[0].Number)
		s.Equal(registration.StatusPaid, regs[0].PaymentStatus)
		s.Equal("Carla Manual", regs[2].Name)
		s.Equal(3, regs[2].Number)
		s.True(regs[2].IsManual)

		// The stale external record must be gone.
		for _, reg := range regs {
			s.NotEqual("9", reg.ExternalID)
		}
		s.NoError(mock.ExpectationsWereMet())
	})

	s.Run("records the run for status queries", func() {
		s.SetupTest()
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		s.Require().NoError(err)
		expectExternalSource(mock, externalRows([2]string{"10", "Ana Souza"}))

		svc := s.newService(db)
		s.Equal(reconcile.StateIdle, svc.LastRun("owner-1").State)

		_, err = svc.Run(context.Background(), "owner-1", extsource.Filter{})
		s.Require().NoError(err)

		last := svc.LastRun("owner-1")
		s.Equal(reconcile.StateDone, last.State)
		s.Equal(1, last.Total)
		s.Equal(reconcile.StateIdle, svc.LastRun("owner-2").State)
	})

	s.Run("connection failure aborts with zero counts", func() {
		s.SetupTest()
		svc := s.newService(nil)

		res, err := svc.Run(context.Background(), "owner-1", extsource.Filter{})
		s.Require().Error(err)
		s.Equal(reconcile.StateFailed, res.State)
		s.Equal("connection refused", res.Error)
		s.Zero(res.Total)
		s.Equal(reconcile.StateFailed, svc.LastRun("owner-1").State)
	})

	s.Run("fetch failure leaves the stored collection untouched", func() {
		s.SetupTest()
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		s.Require().NoError(err)
		// No registration table upstream: discovery fails.
		mock.ExpectQuery("SHOW TABLES").
			WillReturnRows(sqlmock.NewRows([]string{"Tables_in_db"}).AddRow("unrelated"))

		s.Require().NoError(s.store.Insert(context.Background(), registration.Registrant{
			ID: "man-1", OwnerID: "owner-1", Number: 1, Name: "Carla Manual", IsManual: true,
		}))

		svc := s.newService(db)
		res, err := svc.Run(context.Background(), "owner-1", extsource.Filter{})
		s.Require().Error(err)
		s.Equal(reconcile.StateFailed, res.State)

		regs, err := s.store.ListByOwner(context.Background(), "owner-1")
		s.Require().NoError(err)
		s.Len(regs, 1)
	})

	s.Run("emits an audit event per run", func() {
		s.SetupTest()
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		s.Require().NoError(err)
		expectExternalSource(mock, externalRows([2]string{"10", "Ana Souza"}))

		svc := s.newService(db)
		_, err = svc.Run(context.Background(), "owner-1", extsource.Filter{})
		s.Require().NoError(err)

		events, err := s.audit.ListByOwner(context.Background(), "owner-1")
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal("reconcile", events[0].Action)
		s.Equal(audit.OutcomeSuccess, events[0].Outcome)
		s.Equal(1, events[0].Count)
	})
}

func (s *ServiceSuite) TestGatewayActions() {
	s.Run("lists tables", func() {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		s.Require().NoError(err)
		mock.ExpectQuery("SHOW TABLES").
			WillReturnRows(sqlmock.NewRows([]string{"Tables_in_db"}).
				AddRow("inscricoes").AddRow("eventos"))

		svc := s.newService(db)
		tables, err := svc.ListTables(context.Background())
		s.Require().NoError(err)
		s.Equal([]string{"inscricoes", "eventos"}, tables)
	})

	s.Run("describes a table", func() {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		s.Require().NoError(err)
		mock.ExpectQuery("DESCRIBE `inscricoes`").
			WillReturnRows(sqlmock.NewRows([]string{"Field", "Type"}).
				AddRow("id", "int").AddRow("nome", "varchar(255)"))

		svc := s.newService(db)
		cols, err := svc.DescribeTable(context.Background(), "inscricoes")
		s.Require().NoError(err)
		s.Equal([]extsource.Column{
			{Name: "id", Type: "int"},
			{Name: "nome", Type: "varchar(255)"},
		}, cols)
	})

	s.Run("rejects describe without a table", func() {
		svc := s.newService(nil)
		_, err := svc.DescribeTable(context.Background(), "")
		s.Require().Error(err)
	})

	s.Run("lists upstream events", func() {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		s.Require().NoError(err)
		mock.ExpectQuery("SHOW TABLES").
			WillReturnRows(sqlmock.NewRows([]string{"Tables_in_db"}).AddRow("eventos"))
		mock.ExpectQuery("DESCRIBE `eventos`").
			WillReturnRows(sqlmock.NewRows([]string{"Field", "Type"}).
				AddRow("id", "int").AddRow("nome", "varchar(255)"))
		mock.ExpectQuery("SELECT `id`, `nome` FROM `eventos`").
			WillReturnRows(sqlmock.NewRows([]string{"id", "nome"}).AddRow(1, "Acampamento 2026"))

		svc := s.newService(db)
		events, err := svc.Events(context.Background())
		s.Require().NoError(err)
		s.Equal([]extsource.Event{{ID: "1", Name: "Acampamento 2026"}}, events)
	})
}
