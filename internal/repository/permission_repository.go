package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-api/internal/models"
)

const insertAssignmentQuery = `INSERT INTO teacher_classes (teacher_id, class_id, created_at) VALUES ($1, $2, $3)
ON CONFLICT (teacher_id, class_id) DO NOTHING`

// PermissionRepository stores teacher capability flags and class assignments.
type PermissionRepository struct {
	db *sqlx.DB
}

// NewPermissionRepository constructs the repository.
func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// ListCapabilities returns the stored capability rows for a teacher.
func (r *PermissionRepository) ListCapabilities(ctx context.Context, teacherID string) ([]models.CapabilityGrant, error) {
	const query = `SELECT teacher_id, capability, enabled, updated_at FROM teacher_capabilities WHERE teacher_id = $1`
	var grants []models.CapabilityGrant
	if err := r.db.SelectContext(ctx, &grants, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher capabilities: %w", err)
	}
	return grants, nil
}

// UpsertCapabilities writes one row per capability in a single transaction.
func (r *PermissionRepository) UpsertCapabilities(ctx context.Context, grants []models.CapabilityGrant) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin capability upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO teacher_capabilities (teacher_id, capability, enabled, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (teacher_id, capability) DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for _, g := range grants {
		if _, err = tx.ExecContext(ctx, query, g.TeacherID, g.Capability, g.Enabled, now); err != nil {
			return fmt.Errorf("upsert capability %s: %w", g.Capability, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit capability upsert: %w", err)
	}
	return nil
}

// ListClassIDs returns the classes assigned to a teacher.
func (r *PermissionRepository) ListClassIDs(ctx context.Context, teacherID string) ([]string, error) {
	const query = `SELECT class_id FROM teacher_classes WHERE teacher_id = $1 ORDER BY created_at ASC`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher classes: %w", err)
	}
	return ids, nil
}

// AssignClass adds a class to the teacher's assignment set. Assigning twice is a no-op.
func (r *PermissionRepository) AssignClass(ctx context.Context, teacherID, classID string) error {
	if _, err := r.db.ExecContext(ctx, insertAssignmentQuery, teacherID, classID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign teacher class: %w", err)
	}
	return nil
}

// UnassignClass removes a class from the teacher's assignment set.
func (r *PermissionRepository) UnassignClass(ctx context.Context, teacherID, classID string) error {
	const query = `DELETE FROM teacher_classes WHERE teacher_id = $1 AND class_id = $2`
	if _, err := r.db.ExecContext(ctx, query, teacherID, classID); err != nil {
		return fmt.Errorf("unassign teacher class: %w", err)
	}
	return nil
}
