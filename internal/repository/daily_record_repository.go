package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academy-api/internal/models"
)

const dailyRecordColumns = `d.id, d.academy_id, d.student_id, d.record_date, d.attendance, d.homework, d.test_score, d.memo, d.author_id, d.created_at, d.updated_at`

// DailyRecordRepository persists per-day student performance entries.
type DailyRecordRepository struct {
	db *sqlx.DB
}

// NewDailyRecordRepository constructs the repository.
func NewDailyRecordRepository(db *sqlx.DB) *DailyRecordRepository {
	return &DailyRecordRepository{db: db}
}

// List returns records for the academy ordered by date then student name.
func (r *DailyRecordRepository) List(ctx context.Context, filter models.DailyRecordFilter) ([]models.DailyRecordDetail, error) {
	if filter.ClassIDs != nil && len(filter.ClassIDs) == 0 {
		return []models.DailyRecordDetail{}, nil
	}

	conditions := []string{"d.academy_id = $1"}
	args := []interface{}{filter.AcademyID}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("d.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("d.record_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("d.record_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.ClassIDs != nil {
		conditions = append(conditions, fmt.Sprintf("s.class_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ClassIDs))
	}

	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, s.class_id
FROM daily_records d JOIN students s ON s.id = d.student_id
WHERE %s ORDER BY d.record_date DESC, s.full_name ASC`, dailyRecordColumns, strings.Join(conditions, " AND "))

	var records []models.DailyRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list daily records: %w", err)
	}
	return records, nil
}

// FindByID returns a record scoped to the academy.
func (r *DailyRecordRepository) FindByID(ctx context.Context, academyID, id string) (*models.DailyRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_records d WHERE d.id = $1 AND d.academy_id = $2`, dailyRecordColumns)
	var record models.DailyRecord
	if err := r.db.GetContext(ctx, &record, query, id, academyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find daily record: %w", err)
	}
	return &record, nil
}

// Create inserts a record. A second record for the same student and date yields ErrDuplicate.
func (r *DailyRecordRepository) Create(ctx context.Context, record *models.DailyRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	const query = `INSERT INTO daily_records (id, academy_id, student_id, record_date, attendance, homework, test_score, memo, author_id, created_at, updated_at)
VALUES (:id, :academy_id, :student_id, :record_date, :attendance, :homework, :test_score, :memo, :author_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create daily record: %w", err)
	}
	return nil
}

// Update modifies the mutable fields of a record.
func (r *DailyRecordRepository) Update(ctx context.Context, record *models.DailyRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE daily_records SET attendance = :attendance, homework = :homework, test_score = :test_score, memo = :memo,
author_id = :author_id, updated_at = :updated_at WHERE id = :id AND academy_id = :academy_id`
	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update daily record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a record.
func (r *DailyRecordRepository) Delete(ctx context.Context, academyID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM daily_records WHERE id = $1 AND academy_id = $2`, id, academyID)
	if err != nil {
		return fmt.Errorf("delete daily record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
