package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/controle-mandatos/mandatos-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestChangeRequestRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO change_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	request := &models.ChangeRequest{
		Operation:   models.OperationCreate,
		Entity:      models.TargetPerson,
		Payload:     []byte(`{"name":"Maria Souza"}`),
		RequestedBy: "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.Equal(t, int64(7), request.ID)
	require.Equal(t, models.ChangePending, request.Status)

	rows := sqlmock.NewRows([]string{"id", "operation", "entity", "target_id", "payload", "status", "requested_by", "decided_by", "decided_at", "note", "created_at", "updated_at"}).
		AddRow(int64(7), "CREATE", "PERSON", nil, []byte(`{"name":"Maria Souza"}`), "PENDING", "user-1", nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, operation, entity")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, models.ChangePending, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM change_requests")).
		WithArgs("PENDING", "OCCUPATION").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	rows := sqlmock.NewRows([]string{"id", "operation", "entity", "target_id", "payload", "status", "requested_by", "decided_by", "decided_at", "note", "created_at", "updated_at"}).
		AddRow(int64(3), "DELETE", "OCCUPATION", int64(12), []byte(`{}`), "PENDING", "user-2", nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, operation, entity")).
		WithArgs("PENDING", "OCCUPATION").
		WillReturnRows(rows)

	status := models.ChangePending
	entity := models.TargetOccupation
	list, total, err := repo.List(context.Background(), models.ChangeRequestFilter{Status: &status, Entity: &entity})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	require.Equal(t, int64(3), list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryDecideIsTerminal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	now := time.Now()
	note := "duplicate of an earlier request"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.Decide(context.Background(), DecideParams{
		ID: 3, Status: models.ChangeRefused, DecidedBy: "reviewer-1", DecidedAt: now, Note: &note,
	})
	require.NoError(t, err)

	// second decision races against a no-longer-pending row
	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Decide(context.Background(), DecideParams{
		ID: 3, Status: models.ChangeApproved, DecidedBy: "reviewer-2", DecidedAt: now,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryReopenClearsVerdict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("decided_by = NULL, decided_at = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Reopen(context.Background(), 3))

	mock.ExpectExec(regexp.QuoteMeta("decided_by = NULL, decided_at = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Reopen(context.Background(), 99), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
