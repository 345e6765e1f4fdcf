package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-api/internal/models"
)

const (
	paymentColumns = `p.id, p.academy_id, p.student_id, p.year, p.month, p.amount, p.paid_amount, p.status, p.created_at, p.updated_at`
	derivedStatus  = `CASE WHEN p.paid_amount >= p.amount THEN 'paid' WHEN p.paid_amount = 0 THEN 'unpaid' ELSE 'partial' END`
)

// PaymentMutation identifies a billing period and the change to apply to it.
// AmountIfAbsent is the due amount used when the period row does not exist yet.
type PaymentMutation struct {
	AcademyID      string
	StudentID      string
	Year           int
	Month          int
	AmountIfAbsent int64
}

// TuitionPaymentRepository persists per-month billing records.
type TuitionPaymentRepository struct {
	db *sqlx.DB
}

// NewTuitionPaymentRepository constructs the repository.
func NewTuitionPaymentRepository(db *sqlx.DB) *TuitionPaymentRepository {
	return &TuitionPaymentRepository{db: db}
}

// Find returns the record for a student and period.
func (r *TuitionPaymentRepository) Find(ctx context.Context, studentID string, year, month int) (*models.TuitionPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM tuition_payments p WHERE p.student_id = $1 AND p.year = $2 AND p.month = $3`
	var payment models.TuitionPayment
	if err := r.db.GetContext(ctx, &payment, query, studentID, year, month); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	payment.Normalize()
	return &payment, nil
}

// ApplyPayment adds delta to paid_amount atomically. The period row is
// created with AmountIfAbsent when missing and locked for the update. A
// result below zero rolls back with ErrNegativePaid, leaving the row unchanged.
func (r *TuitionPaymentRepository) ApplyPayment(ctx context.Context, m PaymentMutation, delta int64) (*models.TuitionPayment, error) {
	return r.mutate(ctx, m, func(p *models.TuitionPayment) error {
		next := p.PaidAmount + delta
		if next < 0 {
			return ErrNegativePaid
		}
		p.PaidAmount = next
		return nil
	})
}

// SetAmount overrides the due amount for a period, creating the row when missing.
func (r *TuitionPaymentRepository) SetAmount(ctx context.Context, m PaymentMutation, amount int64) (*models.TuitionPayment, error) {
	m.AmountIfAbsent = amount
	return r.mutate(ctx, m, func(p *models.TuitionPayment) error {
		p.Amount = amount
		return nil
	})
}

func (r *TuitionPaymentRepository) mutate(ctx context.Context, m PaymentMutation, apply func(*models.TuitionPayment) error) (payment *models.TuitionPayment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const insertQuery = `INSERT INTO tuition_payments (id, academy_id, student_id, year, month, amount, paid_amount, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $8)
ON CONFLICT (student_id, year, month) DO NOTHING`
	if _, err = tx.ExecContext(ctx, insertQuery, uuid.NewString(), m.AcademyID, m.StudentID, m.Year, m.Month, m.AmountIfAbsent,
		models.DerivePaymentStatus(m.AmountIfAbsent, 0), now); err != nil {
		return nil, fmt.Errorf("ensure payment period: %w", err)
	}

	selectQuery := `SELECT ` + paymentColumns + ` FROM tuition_payments p WHERE p.student_id = $1 AND p.year = $2 AND p.month = $3 FOR UPDATE`
	var current models.TuitionPayment
	if err = tx.GetContext(ctx, &current, selectQuery, m.StudentID, m.Year, m.Month); err != nil {
		return nil, fmt.Errorf("lock payment period: %w", err)
	}

	if err = apply(&current); err != nil {
		return nil, err
	}
	current.Normalize()
	current.UpdatedAt = now

	const updateQuery = `UPDATE tuition_payments SET amount = $2, paid_amount = $3, status = $4, updated_at = $5 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, current.ID, current.Amount, current.PaidAmount, current.Status, now); err != nil {
		return nil, fmt.Errorf("update payment period: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment period: %w", err)
	}
	return &current, nil
}

// List returns the ledger rows for an academy and period.
func (r *TuitionPaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.LedgerRow, error) {
	conditions := []string{"p.academy_id = $1", "p.year = $2", "p.month = $3"}
	args := []interface{}{filter.AcademyID, filter.Year, filter.Month}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", derivedStatus, len(args)+1))
		args = append(args, filter.Status)
	}

	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, c.name AS class_name
FROM tuition_payments p JOIN students s ON s.id = p.student_id LEFT JOIN classes c ON c.id = s.class_id
WHERE %s ORDER BY s.full_name ASC`, paymentColumns, strings.Join(conditions, " AND "))

	rows := []models.LedgerRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	for i := range rows {
		rows[i].Normalize()
	}
	return rows, nil
}

// Summary aggregates billed and collected amounts for an academy's month.
func (r *TuitionPaymentRepository) Summary(ctx context.Context, academyID string, year, month int) (*models.BillingSummary, error) {
	query := fmt.Sprintf(`SELECT $2::int AS year, $3::int AS month,
COALESCE(SUM(p.amount), 0) AS billed,
COALESCE(SUM(p.paid_amount), 0) AS collected,
COALESCE(SUM(GREATEST(p.amount - p.paid_amount, 0)), 0) AS outstanding,
COUNT(*) FILTER (WHERE %[1]s = 'paid') AS paid_count,
COUNT(*) FILTER (WHERE %[1]s = 'partial') AS partial_count,
COUNT(*) FILTER (WHERE %[1]s = 'unpaid') AS unpaid_count
FROM tuition_payments p WHERE p.academy_id = $1 AND p.year = $2 AND p.month = $3`, derivedStatus)

	var summary models.BillingSummary
	if err := r.db.GetContext(ctx, &summary, query, academyID, year, month); err != nil {
		return nil, fmt.Errorf("summarise payments: %w", err)
	}
	return &summary, nil
}
