package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-api/internal/models"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

type accountRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindInAcademy(ctx context.Context, academyID, id string, role models.UserRole) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AccountService manages teacher accounts for directors and director tenants for admins.
type AccountService struct {
	repo   accountRepository
	logger *zap.Logger
}

// NewAccountService creates an instance of AccountService.
func NewAccountService(repo accountRepository, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{repo: repo, logger: logger}
}

// ListTeachers returns the teachers of the director's academy.
func (s *AccountService) ListTeachers(ctx context.Context, principal *models.Principal, search string, page, pageSize int) ([]models.User, *models.Pagination, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, nil, err
	}
	role := models.RoleTeacher
	return s.list(ctx, models.UserFilter{Role: &role, AcademyID: academyID, Search: strings.TrimSpace(search), Page: page, PageSize: pageSize})
}

// GetTeacher returns one teacher of the director's academy.
func (s *AccountService) GetTeacher(ctx context.Context, principal *models.Principal, teacherID string) (*models.User, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	return s.findTeacher(ctx, academyID, teacherID)
}

// DeactivateTeacher disables a teacher and revokes their sessions.
func (s *AccountService) DeactivateTeacher(ctx context.Context, principal *models.Principal, teacherID string) error {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return err
	}
	if _, err := s.findTeacher(ctx, academyID, teacherID); err != nil {
		return err
	}
	return s.setActive(ctx, principal, teacherID, false)
}

// ListDirectors returns every director (tenant) for an admin.
func (s *AccountService) ListDirectors(ctx context.Context, principal *models.Principal, search string, active *bool, page, pageSize int) ([]models.User, *models.Pagination, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, nil, err
	}
	role := models.RoleDirector
	return s.list(ctx, models.UserFilter{Role: &role, Active: active, Search: strings.TrimSpace(search), Page: page, PageSize: pageSize})
}

// SetDirectorStatus activates or deactivates a tenant. Teachers of an
// inactive director are rejected at login.
func (s *AccountService) SetDirectorStatus(ctx context.Context, principal *models.Principal, directorID string, active bool) (*models.User, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	director, err := s.repo.FindByID(ctx, directorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "director not found")
		}
		return nil, appErrors.Internal(err, "failed to load director")
	}
	if director.Role != models.RoleDirector {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "director not found")
	}
	if err := s.setActive(ctx, principal, directorID, active); err != nil {
		return nil, err
	}
	director.Active = active
	return director, nil
}

func (s *AccountService) list(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list accounts")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *AccountService) findTeacher(ctx context.Context, academyID, teacherID string) (*models.User, error) {
	teacher, err := s.repo.FindInAcademy(ctx, academyID, teacherID, models.RoleTeacher)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Internal(err, "failed to load teacher")
	}
	return teacher, nil
}

func (s *AccountService) setActive(ctx context.Context, principal *models.Principal, userID string, active bool) error {
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return appErrors.Internal(err, "failed to update account status")
	}
	if !active {
		if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
			s.logger.Warn("failed to revoke refresh tokens", zap.String("user_id", userID), zap.Error(err))
		}
	}
	recordAudit(ctx, s.repo, s.logger, principal, models.AuditActionAccountStatus, "users", userID, map[string]interface{}{"active": active})
	return nil
}

func requireAdmin(principal *models.Principal) error {
	if principal == nil {
		return appErrors.ErrUnauthenticated
	}
	if !principal.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return nil
}
