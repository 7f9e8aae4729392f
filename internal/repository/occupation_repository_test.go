package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/controle-mandatos/mandatos-api/internal/models"
)

func TestOccupationRepositoryCreateRenumbersConsecutiveTerms(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOccupationRepository(db)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO occupations")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	// same person already held the previous term, so the new row becomes term 2
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, person_id, term_number FROM occupations")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "person_id", "term_number"}).
			AddRow(int64(8), int64(5), 1).
			AddRow(int64(9), int64(5), 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE occupations SET term_number")).
		WithArgs(2, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT term_number FROM occupations")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"term_number"}).AddRow(2))
	mock.ExpectCommit()

	occupation := &models.Occupation{PersonID: 5, PositionID: 4, StartDate: start}
	require.NoError(t, repo.Create(context.Background(), occupation))
	require.Equal(t, int64(9), occupation.ID)
	require.Equal(t, 2, occupation.TermNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupationRepositoryDeleteRenumbersRemaining(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOccupationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT position_id FROM occupations")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"position_id"}).AddRow(int64(4)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM occupations")).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT person_id FROM occupations")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"person_id"}).AddRow(int64(5)))
	// removing the first term collapses the successor back to term 1
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, person_id, term_number FROM occupations")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "person_id", "term_number"}).
			AddRow(int64(9), int64(5), 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE occupations SET term_number")).
		WithArgs(1, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 8, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupationRepositoryDeleteRejectsMergedRunOverLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOccupationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT position_id FROM occupations")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"position_id"}).AddRow(int64(4)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM occupations")).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// the removed row separated two runs of person 5; merged they make three
	mock.ExpectQuery(regexp.QuoteMeta("SELECT person_id FROM occupations")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"person_id"}).
			AddRow(int64(5)).
			AddRow(int64(5)).
			AddRow(int64(5)))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 8, 2)
	require.ErrorIs(t, err, ErrTermLimitExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupationRepositoryFinalizeRejectsClosedTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOccupationRepository(db)
	start := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "person_id", "position_id", "directive_id", "start_date", "end_date", "term_number", "notes", "created_at", "updated_at"}).
			AddRow(int64(9), int64(5), int64(4), nil, start, end, 1, nil, time.Now(), time.Now()))
	mock.ExpectRollback()

	_, _, err := repo.FinalizeCascade(context.Background(), FinalizeParams{
		OccupationID: 9,
		EndDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupationRepositoryFinalizePromotesSubstituteChain(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOccupationRepository(db)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(9)).
		WillReturnRows(occupationRows().AddRow(int64(9), int64(5), int64(4), nil, start, nil, 1, nil, time.Now(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE occupations SET end_date")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// position 6 substitutes position 4 and its occupant moves up
	mock.ExpectQuery(regexp.QuoteMeta("FROM positions WHERE substitute_of")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "organization_id", "active", "exclusive", "substitute_of", "created_at", "updated_at"}).
			AddRow(int64(6), "Vice Director", int64(1), true, true, int64(4), time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(6)).
		WillReturnRows(occupationRows().AddRow(int64(11), int64(7), int64(6), nil, start, nil, 1, nil, time.Now(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE occupations SET end_date")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO occupations")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM people")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Ana Lima"))
	// nobody substitutes position 6, the cascade stops there
	mock.ExpectQuery(regexp.QuoteMeta("FROM positions WHERE substitute_of")).
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "organization_id", "active", "exclusive", "substitute_of", "created_at", "updated_at"}))
	for range [2]struct{}{} {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, person_id, term_number FROM occupations")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "person_id", "term_number"}))
	}
	mock.ExpectCommit()

	finalized, promotions, err := repo.FinalizeCascade(context.Background(), FinalizeParams{
		OccupationID: 9,
		EndDate:      end,
		CascadeNote:  "automatic substitution",
	})
	require.NoError(t, err)
	require.NotNil(t, finalized.EndDate)
	require.Len(t, promotions, 1)
	require.Equal(t, int64(7), promotions[0].PersonID)
	require.Equal(t, int64(4), promotions[0].ToPositionID)
	require.Equal(t, "Ana Lima", promotions[0].PersonName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupationRepositoryFinalizeDefinitiveSkipsCascade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOccupationRepository(db)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(9)).
		WillReturnRows(occupationRows().AddRow(int64(9), int64(5), int64(4), nil, start, nil, 1, nil, time.Now(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE occupations SET end_date")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// no substitute lookup happens, only the vacated position is renumbered
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, person_id, term_number FROM occupations")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "person_id", "term_number"}))
	mock.ExpectCommit()

	finalized, promotions, err := repo.FinalizeCascade(context.Background(), FinalizeParams{
		OccupationID: 9,
		EndDate:      end,
		Definitive:   true,
	})
	require.NoError(t, err)
	require.NotNil(t, finalized.EndDate)
	require.Empty(t, promotions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupationRepositoryFindSuccessorCandidateExcludesOutgoing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOccupationRepository(db)
	notBefore := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("person_id <> $2")).
		WithArgs(int64(6), int64(5), notBefore).
		WillReturnRows(occupationRows().AddRow(int64(41), int64(7), int64(6), nil, start, nil, 1, nil, time.Now(), time.Now()))

	candidate, err := repo.FindSuccessorCandidate(context.Background(), 6, 5, &notBefore)
	require.NoError(t, err)
	require.NotNil(t, candidate)
	require.Equal(t, int64(7), candidate.PersonID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupationRepositoryFindSuccessorCandidateNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOccupationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("end_date IS NULL")).
		WithArgs(int64(6), int64(5)).
		WillReturnRows(occupationRows())

	candidate, err := repo.FindSuccessorCandidate(context.Background(), 6, 5, nil)
	require.NoError(t, err)
	require.Nil(t, candidate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func occupationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "person_id", "position_id", "directive_id", "start_date", "end_date", "term_number", "notes", "created_at", "updated_at"})
}
