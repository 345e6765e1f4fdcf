package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-api/internal/models"
)

const rateColumns = `id, academy_id, student_id, amount, start_date, end_date, created_at`

// TuitionRateRepository persists per-student rate history.
type TuitionRateRepository struct {
	db *sqlx.DB
}

// NewTuitionRateRepository constructs the repository.
func NewTuitionRateRepository(db *sqlx.DB) *TuitionRateRepository {
	return &TuitionRateRepository{db: db}
}

// Create inserts a rate unless it overlaps an existing rate of the same
// student. The student row is locked so concurrent inserts serialise.
func (r *TuitionRateRepository) Create(ctx context.Context, rate *models.TuitionRate) (err error) {
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	rate.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create rate: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM students WHERE id = $1 AND academy_id = $2 FOR UPDATE`, rate.StudentID, rate.AcademyID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock student for rate: %w", err)
	}

	const overlapQuery = `SELECT COUNT(*) FROM tuition_rates WHERE student_id = $1 AND (end_date IS NULL OR end_date > $2) AND ($3::date IS NULL OR start_date < $3)`
	var overlapping int
	if err = tx.GetContext(ctx, &overlapping, overlapQuery, rate.StudentID, rate.StartDate, rate.EndDate); err != nil {
		return fmt.Errorf("check rate overlap: %w", err)
	}
	if overlapping > 0 {
		err = ErrRateOverlap
		return err
	}

	const insertQuery = `INSERT INTO tuition_rates (id, academy_id, student_id, amount, start_date, end_date, created_at)
VALUES (:id, :academy_id, :student_id, :amount, :start_date, :end_date, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, rate); err != nil {
		return fmt.Errorf("create rate: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create rate: %w", err)
	}
	return nil
}

// FindByID returns a rate scoped to the academy.
func (r *TuitionRateRepository) FindByID(ctx context.Context, academyID, id string) (*models.TuitionRate, error) {
	query := `SELECT ` + rateColumns + ` FROM tuition_rates WHERE id = $1 AND academy_id = $2`
	var rate models.TuitionRate
	if err := r.db.GetContext(ctx, &rate, query, id, academyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find rate: %w", err)
	}
	return &rate, nil
}

// SetEndDate closes an open-ended or later-ending rate. Shortening a range cannot create overlap.
func (r *TuitionRateRepository) SetEndDate(ctx context.Context, academyID, id string, end time.Time) error {
	const query = `UPDATE tuition_rates SET end_date = $3 WHERE id = $1 AND academy_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, academyID, end)
	if err != nil {
		return fmt.Errorf("end rate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByStudent returns a student's rate history, newest first.
func (r *TuitionRateRepository) ListByStudent(ctx context.Context, academyID, studentID string) ([]models.TuitionRate, error) {
	query := `SELECT ` + rateColumns + ` FROM tuition_rates WHERE academy_id = $1 AND student_id = $2 ORDER BY start_date DESC`
	rates := []models.TuitionRate{}
	if err := r.db.SelectContext(ctx, &rates, query, academyID, studentID); err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	return rates, nil
}

// Effective returns the rate covering day, or sql.ErrNoRows.
func (r *TuitionRateRepository) Effective(ctx context.Context, studentID string, day time.Time) (*models.TuitionRate, error) {
	query := `SELECT ` + rateColumns + ` FROM tuition_rates
WHERE student_id = $1 AND start_date <= $2 AND (end_date IS NULL OR end_date > $2)
ORDER BY start_date DESC LIMIT 1`
	var rate models.TuitionRate
	if err := r.db.GetContext(ctx, &rate, query, studentID, day); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find effective rate: %w", err)
	}
	return &rate, nil
}
