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

const studentDetailColumns = `s.id, s.academy_id, s.class_id, s.full_name, s.school, s.grade, s.phone, s.guardian_name, s.guardian_phone,
s.status, s.enrolled_at, s.memo, s.created_at, s.updated_at, c.name AS class_name`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns the academy's students matching the provided filters. A non-nil
// empty ClassIDs returns no rows without touching the database.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	if filter.ClassIDs != nil && len(filter.ClassIDs) == 0 {
		return []models.StudentDetail{}, 0, nil
	}

	base := "FROM students s LEFT JOIN classes c ON c.id = s.class_id"
	conditions := []string{"s.academy_id = $1"}
	args := []interface{}{filter.AcademyID}

	if filter.ClassIDs != nil {
		conditions = append(conditions, fmt.Sprintf("s.class_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ClassIDs))
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(s.school) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"full_name":   "s.full_name",
		"grade":       "s.grade",
		"enrolled_at": "s.enrolled_at",
		"created_at":  "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	p := models.NewPagination(filter.Page, filter.PageSize, 0)
	offset := (p.Page - 1) * p.PageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentDetailColumns, base, column, order, p.PageSize, offset)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student scoped to its academy.
func (r *StudentRepository) FindByID(ctx context.Context, academyID, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE s.id = $1 AND s.academy_id = $2", studentDetailColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id, academyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	if student.EnrolledAt.IsZero() {
		student.EnrolledAt = now
	}
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}

	const query = `INSERT INTO students (id, academy_id, class_id, full_name, school, grade, phone, guardian_name, guardian_phone, status, enrolled_at, memo, created_at, updated_at)
VALUES (:id, :academy_id, :class_id, :full_name, :school, :grade, :phone, :guardian_name, :guardian_phone, :status, :enrolled_at, :memo, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies student attributes.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET class_id = :class_id, full_name = :full_name, school = :school, grade = :grade, phone = :phone,
guardian_name = :guardian_name, guardian_phone = :guardian_phone, status = :status, enrolled_at = :enrolled_at, memo = :memo, updated_at = :updated_at
WHERE id = :id AND academy_id = :academy_id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a student. Billing and daily records cascade.
func (r *StudentRepository) Delete(ctx context.Context, academyID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1 AND academy_id = $2`, id, academyID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
