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

const verificationColumns = `id, director_id, code, active, created_at, revoked_at`

// VerificationRepository persists teacher onboarding codes.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository constructs the repository.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Replace deactivates the director's active code and stores the new one in a
// single transaction. A code collision yields ErrDuplicate.
func (r *VerificationRepository) Replace(ctx context.Context, code *models.VerificationCode) (err error) {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	code.CreatedAt = now
	code.Active = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin issue code: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const revokeQuery = `UPDATE verification_codes SET active = FALSE, revoked_at = $2 WHERE director_id = $1 AND active`
	if _, err = tx.ExecContext(ctx, revokeQuery, code.DirectorID, now); err != nil {
		return fmt.Errorf("revoke active code: %w", err)
	}

	const insertQuery = `INSERT INTO verification_codes (id, director_id, code, active, created_at) VALUES (:id, :director_id, :code, :active, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, code); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return err
		}
		return fmt.Errorf("insert code: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit issue code: %w", err)
	}
	return nil
}

// FindActiveByDirector returns the director's current code.
func (r *VerificationRepository) FindActiveByDirector(ctx context.Context, directorID string) (*models.VerificationCode, error) {
	query := `SELECT ` + verificationColumns + ` FROM verification_codes WHERE director_id = $1 AND active LIMIT 1`
	var code models.VerificationCode
	if err := r.db.GetContext(ctx, &code, query, directorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active code: %w", err)
	}
	return &code, nil
}

// FindActiveByCode resolves a presented code. Inactive codes are not returned.
func (r *VerificationRepository) FindActiveByCode(ctx context.Context, value string) (*models.VerificationCode, error) {
	query := `SELECT ` + verificationColumns + ` FROM verification_codes WHERE code = $1 AND active LIMIT 1`
	var code models.VerificationCode
	if err := r.db.GetContext(ctx, &code, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find code: %w", err)
	}
	return &code, nil
}
