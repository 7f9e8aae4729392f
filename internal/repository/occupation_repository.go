package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/controle-mandatos/mandatos-api/internal/models"
)

// OccupationRepository persists occupations. Mutations run inside a
// transaction so term numbers stay consistent with the insertion order of
// the position they belong to.
type OccupationRepository struct {
	db *sqlx.DB
}

// NewOccupationRepository constructs the repository.
func NewOccupationRepository(db *sqlx.DB) *OccupationRepository {
	return &OccupationRepository{db: db}
}

const occupationColumns = `id, person_id, position_id, directive_id, start_date, end_date, term_number, notes, created_at, updated_at`

// Create inserts a new occupation and renumbers the terms of its position.
func (r *OccupationRepository) Create(ctx context.Context, occupation *models.Occupation) error {
	now := time.Now().UTC()
	occupation.CreatedAt = now
	occupation.UpdatedAt = now
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create occupation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT INTO occupations (person_id, position_id, directive_id, start_date, end_date, term_number, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8) RETURNING id`
	if err := tx.GetContext(ctx, &occupation.ID, query,
		occupation.PersonID, occupation.PositionID, occupation.DirectiveID,
		occupation.StartDate, occupation.EndDate, occupation.Notes,
		occupation.CreatedAt, occupation.UpdatedAt); err != nil {
		return fmt.Errorf("create occupation: %w", err)
	}
	if err := r.renumberPositionTx(ctx, tx, occupation.PositionID); err != nil {
		return err
	}
	if err := tx.GetContext(ctx, &occupation.TermNumber,
		`SELECT term_number FROM occupations WHERE id = $1`, occupation.ID); err != nil {
		return fmt.Errorf("reload term number: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create occupation: %w", err)
	}
	return nil
}

// GetByID fetches an occupation by identifier.
func (r *OccupationRepository) GetByID(ctx context.Context, id int64) (*models.Occupation, error) {
	var occupation models.Occupation
	if err := r.db.GetContext(ctx, &occupation,
		`SELECT `+occupationColumns+` FROM occupations WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &occupation, nil
}

// List returns occupations matching the filter alongside the total row count.
func (r *OccupationRepository) List(ctx context.Context, filter models.OccupationFilter) ([]models.Occupation, int64, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	if filter.PersonID != nil {
		args = append(args, *filter.PersonID)
		conditions = append(conditions, fmt.Sprintf("person_id = $%d", len(args)))
	}
	if filter.PositionID != nil {
		args = append(args, *filter.PositionID)
		conditions = append(conditions, fmt.Sprintf("position_id = $%d", len(args)))
	}
	if filter.DirectiveID != nil {
		args = append(args, *filter.DirectiveID)
		conditions = append(conditions, fmt.Sprintf("directive_id = $%d", len(args)))
	}
	if filter.OpenOnly {
		conditions = append(conditions, "end_date IS NULL")
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM occupations"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count occupations: %w", err)
	}

	query := "SELECT " + occupationColumns + " FROM occupations" + where +
		orderClause(filter.SortBy, filter.SortOrder, map[string]string{"start_date": "start_date", "created_at": "created_at"}, "start_date DESC, id DESC") +
		limitClause(filter.Page, filter.PageSize)
	var occupations []models.Occupation
	if err := r.db.SelectContext(ctx, &occupations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list occupations: %w", err)
	}
	return occupations, total, nil
}

// ListByPosition returns every occupation of a position in term order.
func (r *OccupationRepository) ListByPosition(ctx context.Context, positionID int64) ([]models.Occupation, error) {
	var occupations []models.Occupation
	if err := r.db.SelectContext(ctx, &occupations,
		`SELECT `+occupationColumns+` FROM occupations WHERE position_id = $1 ORDER BY start_date ASC, id ASC`,
		positionID); err != nil {
		return nil, fmt.Errorf("list position occupations: %w", err)
	}
	return occupations, nil
}

// FindSuccessorCandidate returns the most recently created occupation on the
// position held by someone other than excludePersonID whose term starts on or
// after notBefore. With a nil notBefore only open occupations qualify. Nil
// means no candidate.
func (r *OccupationRepository) FindSuccessorCandidate(ctx context.Context, positionID, excludePersonID int64, notBefore *time.Time) (*models.Occupation, error) {
	query := `SELECT ` + occupationColumns + ` FROM occupations
	 WHERE position_id = $1 AND person_id <> $2`
	args := []interface{}{positionID, excludePersonID}
	if notBefore != nil {
		args = append(args, *notBefore)
		query += ` AND start_date >= $3`
	} else {
		query += ` AND end_date IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	var occupation models.Occupation
	if err := r.db.GetContext(ctx, &occupation, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find successor candidate: %w", err)
	}
	return &occupation, nil
}

// ListOverlapping returns occupations of the position whose window intersects
// [start, end]; a nil end means the candidate window is open-ended.
func (r *OccupationRepository) ListOverlapping(ctx context.Context, positionID int64, start time.Time, end *time.Time) ([]models.Occupation, error) {
	query := `SELECT ` + occupationColumns + ` FROM occupations
	WHERE position_id = $1 AND (end_date IS NULL OR end_date >= $2)`
	args := []interface{}{positionID, start}
	if end != nil {
		args = append(args, *end)
		query += ` AND start_date <= $3`
	}
	var occupations []models.Occupation
	if err := r.db.SelectContext(ctx, &occupations, query, args...); err != nil {
		return nil, fmt.Errorf("list overlapping occupations: %w", err)
	}
	return occupations, nil
}

// Update persists mutable occupation columns and renumbers the position.
func (r *OccupationRepository) Update(ctx context.Context, occupation *models.Occupation) error {
	occupation.UpdatedAt = time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update occupation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `UPDATE occupations SET directive_id = :directive_id, start_date = :start_date,
	end_date = :end_date, notes = :notes, updated_at = :updated_at WHERE id = :id`
	result, err := tx.NamedExecContext(ctx, query, occupation)
	if err != nil {
		return fmt.Errorf("update occupation: %w", err)
	}
	if err := requireRowsAffected(result); err != nil {
		return err
	}
	if err := r.renumberPositionTx(ctx, tx, occupation.PositionID); err != nil {
		return err
	}
	if err := tx.GetContext(ctx, &occupation.TermNumber,
		`SELECT term_number FROM occupations WHERE id = $1`, occupation.ID); err != nil {
		return fmt.Errorf("reload term number: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update occupation: %w", err)
	}
	return nil
}

// Delete removes an occupation and renumbers the remaining terms. Removing a
// term that separates two runs of the same person can merge them into one;
// when the merged run would exceed termLimit the whole delete rolls back with
// ErrTermLimitExceeded.
func (r *OccupationRepository) Delete(ctx context.Context, id int64, termLimit int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete occupation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var positionID int64
	if err := tx.GetContext(ctx, &positionID, `SELECT position_id FROM occupations WHERE id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM occupations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete occupation: %w", err)
	}
	if err := r.checkTermLimitTx(ctx, tx, positionID, termLimit); err != nil {
		return err
	}
	if err := r.renumberPositionTx(ctx, tx, positionID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete occupation: %w", err)
	}
	return nil
}

// checkTermLimitTx walks the position's remaining terms in start-date order
// and fails when any person would hold more than limit consecutive ones.
func (r *OccupationRepository) checkTermLimitTx(ctx context.Context, tx *sqlx.Tx, positionID int64, limit int) error {
	if limit <= 0 {
		return nil
	}
	var holders []int64
	if err := tx.SelectContext(ctx, &holders,
		`SELECT person_id FROM occupations WHERE position_id = $1 ORDER BY start_date ASC, id ASC`,
		positionID); err != nil {
		return fmt.Errorf("load occupations for term limit check: %w", err)
	}
	var prevPerson int64
	streak := 0
	for _, holder := range holders {
		if holder == prevPerson {
			streak++
		} else {
			streak = 1
			prevPerson = holder
		}
		if streak > limit {
			return ErrTermLimitExceeded
		}
	}
	return nil
}

// FinalizeParams closes an open occupation. Definitive terminations skip the
// substitution cascade entirely; otherwise SuccessorStart fixes the start of
// the first promoted term and SuccessorEnd optionally closes it.
type FinalizeParams struct {
	OccupationID   int64
	EndDate        time.Time
	DirectiveID    *int64
	Definitive     bool
	SuccessorStart *time.Time
	SuccessorEnd   *time.Time
	// CascadeNote annotates the occupations opened for promoted substitutes.
	CascadeNote string
}

// PromotionRecord is one hop of the substitution cascade applied by
// FinalizeCascade.
type PromotionRecord struct {
	FromPositionID int64
	ToPositionID   int64
	PersonID       int64
	PersonName     string
	OccupationID   int64
}

// FinalizeCascade closes the occupation and, unless the termination is
// definitive, promotes the substitution chain in a single transaction. For
// each substitute position holding an open occupation, that occupation is
// closed and a fresh term is opened in the position one level up; the first
// promoted term uses the successor window from the params, later hops start
// on the finalize date. The whole chain either commits or rolls back.
func (r *OccupationRepository) FinalizeCascade(ctx context.Context, params FinalizeParams) (*models.Occupation, []PromotionRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin finalize occupation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var target models.Occupation
	if err := tx.GetContext(ctx, &target,
		`SELECT `+occupationColumns+` FROM occupations WHERE id = $1 FOR UPDATE`, params.OccupationID); err != nil {
		return nil, nil, err
	}
	if target.EndDate != nil {
		return nil, nil, ErrAlreadyFinalized
	}
	if params.EndDate.Before(target.StartDate) {
		return nil, nil, ErrEndBeforeStart
	}

	now := time.Now().UTC()
	if err := r.closeTx(ctx, tx, target.ID, params.EndDate, params.DirectiveID, now); err != nil {
		return nil, nil, err
	}
	target.EndDate = &params.EndDate
	if params.DirectiveID != nil {
		target.DirectiveID = params.DirectiveID
	}
	target.UpdatedAt = now

	promotions := make([]PromotionRecord, 0, 2)
	touched := map[int64]bool{target.PositionID: true}
	vacated := target.PositionID
	for !params.Definitive {
		substitute, err := r.findSubstituteTx(ctx, tx, vacated)
		if err != nil {
			return nil, nil, err
		}
		if substitute == nil || touched[substitute.ID] {
			break
		}
		touched[substitute.ID] = true

		var incumbent models.Occupation
		err = tx.GetContext(ctx, &incumbent,
			`SELECT `+occupationColumns+` FROM occupations
			 WHERE position_id = $1 AND end_date IS NULL ORDER BY created_at DESC, id DESC LIMIT 1 FOR UPDATE`,
			substitute.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				break
			}
			return nil, nil, fmt.Errorf("lock substitute occupation: %w", err)
		}
		if err := r.closeTx(ctx, tx, incumbent.ID, params.EndDate, nil, now); err != nil {
			return nil, nil, err
		}

		promotedStart := params.EndDate
		var promotedEnd *time.Time
		if len(promotions) == 0 {
			if params.SuccessorStart != nil {
				promotedStart = *params.SuccessorStart
			}
			promotedEnd = params.SuccessorEnd
		}
		note := params.CascadeNote
		var promotedID int64
		if err := tx.GetContext(ctx, &promotedID,
			`INSERT INTO occupations (person_id, position_id, directive_id, start_date, end_date, term_number, notes, created_at, updated_at)
			 VALUES ($1, $2, NULL, $3, $4, 1, $5, $6, $6) RETURNING id`,
			incumbent.PersonID, vacated, promotedStart, promotedEnd, note, now); err != nil {
			return nil, nil, fmt.Errorf("promote substitute: %w", err)
		}

		var personName string
		if err := tx.GetContext(ctx, &personName, `SELECT name FROM people WHERE id = $1`, incumbent.PersonID); err != nil {
			return nil, nil, fmt.Errorf("load promoted person: %w", err)
		}
		promotions = append(promotions, PromotionRecord{
			FromPositionID: substitute.ID,
			ToPositionID:   vacated,
			PersonID:       incumbent.PersonID,
			PersonName:     personName,
			OccupationID:   promotedID,
		})
		vacated = substitute.ID
	}

	for positionID := range touched {
		if err := r.renumberPositionTx(ctx, tx, positionID); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit finalize occupation: %w", err)
	}
	return &target, promotions, nil
}

// ErrAlreadyFinalized signals a finalize attempt on a closed occupation.
var ErrAlreadyFinalized = errors.New("occupation already finalized")

// ErrEndBeforeStart signals an end date earlier than the term start.
var ErrEndBeforeStart = errors.New("end date precedes start date")

// ErrTermLimitExceeded signals a mutation that would leave a person holding
// more consecutive terms on a position than allowed.
var ErrTermLimitExceeded = errors.New("consecutive term limit exceeded")

func (r *OccupationRepository) closeTx(ctx context.Context, tx *sqlx.Tx, id int64, endDate time.Time, directiveID *int64, now time.Time) error {
	if directiveID != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE occupations SET end_date = $1, directive_id = $2, updated_at = $3 WHERE id = $4`,
			endDate, directiveID, now, id); err != nil {
			return fmt.Errorf("close occupation: %w", err)
		}
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE occupations SET end_date = $1, updated_at = $2 WHERE id = $3`, endDate, now, id); err != nil {
		return fmt.Errorf("close occupation: %w", err)
	}
	return nil
}

func (r *OccupationRepository) findSubstituteTx(ctx context.Context, tx *sqlx.Tx, principalID int64) (*models.Position, error) {
	var position models.Position
	err := tx.GetContext(ctx, &position,
		`SELECT id, name, organization_id, active, exclusive, substitute_of, created_at, updated_at
		 FROM positions WHERE substitute_of = $1 AND active = true ORDER BY id LIMIT 1`, principalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find substitute position: %w", err)
	}
	return &position, nil
}

// renumberPositionTx recomputes term numbers for every occupation of the
// position: terms count up while the same person holds consecutive rows in
// start-date order and reset to 1 when the person changes.
func (r *OccupationRepository) renumberPositionTx(ctx context.Context, tx *sqlx.Tx, positionID int64) error {
	type row struct {
		ID         int64 `db:"id"`
		PersonID   int64 `db:"person_id"`
		TermNumber int   `db:"term_number"`
	}
	var rows []row
	if err := tx.SelectContext(ctx, &rows,
		`SELECT id, person_id, term_number FROM occupations WHERE position_id = $1 ORDER BY start_date ASC, id ASC`,
		positionID); err != nil {
		return fmt.Errorf("load occupations for renumbering: %w", err)
	}

	var prevPerson int64
	term := 0
	for _, current := range rows {
		if current.PersonID == prevPerson {
			term++
		} else {
			term = 1
			prevPerson = current.PersonID
		}
		if current.TermNumber == term {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE occupations SET term_number = $1 WHERE id = $2`, term, current.ID); err != nil {
			return fmt.Errorf("renumber occupation: %w", err)
		}
	}
	return nil
}
