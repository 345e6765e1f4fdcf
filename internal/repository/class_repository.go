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

const classDetailSelect = `SELECT c.id, c.academy_id, c.name, c.description, c.teacher_id, c.created_at, c.updated_at,
u.full_name AS teacher_name,
(SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS student_count
FROM classes c LEFT JOIN users u ON u.id = c.teacher_id`

// ClassRepository manages persistence for class groups.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns the academy's classes matching filter criteria.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	conditions := []string{"c.academy_id = $1"}
	args := []interface{}{filter.AcademyID}

	if filter.ClassIDs != nil {
		conditions = append(conditions, fmt.Sprintf("c.id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ClassIDs))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	p := models.NewPagination(filter.Page, filter.PageSize, 0)
	offset := (p.Page - 1) * p.PageSize

	query := fmt.Sprintf("%s%s ORDER BY c.name ASC LIMIT %d OFFSET %d", classDetailSelect, where, p.PageSize, offset)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM classes c"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID fetches a class scoped to its academy.
func (r *ClassRepository) FindByID(ctx context.Context, academyID, id string) (*models.ClassDetail, error) {
	query := classDetailSelect + ` WHERE c.id = $1 AND c.academy_id = $2`
	var class models.ClassDetail
	if err := r.db.GetContext(ctx, &class, query, id, academyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// Create inserts a class and, when a lead teacher is set, records the assignment.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) (err error) {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO classes (id, academy_id, name, description, teacher_id, created_at, updated_at)
VALUES (:id, :academy_id, :name, :description, :teacher_id, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	if err = assignTeacherTx(ctx, tx, class.TeacherID, class.ID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create class: %w", err)
	}
	return nil
}

// Update modifies class attributes and records the lead teacher assignment.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) (err error) {
	class.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE classes SET name = :name, description = :description, teacher_id = :teacher_id, updated_at = :updated_at
WHERE id = :id AND academy_id = :academy_id`
	res, err := tx.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	if n, rowsErr := res.RowsAffected(); rowsErr == nil && n == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = assignTeacherTx(ctx, tx, class.TeacherID, class.ID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update class: %w", err)
	}
	return nil
}

// Delete removes a class, detaching its students and dropping teacher assignments.
func (r *ClassRepository) Delete(ctx context.Context, academyID, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE students SET class_id = NULL, updated_at = $2 WHERE class_id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("detach class students: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_classes WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("delete class assignments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1 AND academy_id = $2`, id, academyID)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	if n, rowsErr := res.RowsAffected(); rowsErr == nil && n == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete class: %w", err)
	}
	return nil
}

func assignTeacherTx(ctx context.Context, tx *sqlx.Tx, teacherID *string, classID string) error {
	if teacherID == nil || *teacherID == "" {
		return nil
	}
	if _, err := tx.ExecContext(ctx, insertAssignmentQuery, *teacherID, classID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign class teacher: %w", err)
	}
	return nil
}
