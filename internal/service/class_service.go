package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, academyID, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, academyID, id string) error
}

// ClassService manages class groups.
type ClassService struct {
	repo      classRepository
	teachers  teacherLookup
	access    accessResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a class service.
func NewClassService(repo classRepository, teachers teacherLookup, access accessResolver, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, teachers: teachers, access: access, validator: validate, logger: logger}
}

// List returns classes visible to the principal: all academy classes for
// directors and view-all teachers, otherwise the teacher's assigned classes.
func (s *ClassService) List(ctx context.Context, principal *models.Principal, search string, page, pageSize int) ([]models.ClassDetail, *models.Pagination, error) {
	scope, err := s.access.Resolve(ctx, principal)
	if err != nil {
		return nil, nil, err
	}
	filter := models.ClassFilter{
		AcademyID: scope.AcademyID,
		Search:    strings.TrimSpace(search),
		ClassIDs:  scope.ClassFilter(),
		Page:      page,
		PageSize:  pageSize,
	}
	if filter.ClassIDs != nil && len(filter.ClassIDs) == 0 {
		return []models.ClassDetail{}, models.NewPagination(page, pageSize, 0), nil
	}
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list classes")
	}
	return classes, models.NewPagination(page, pageSize, total), nil
}

// Get returns a class visible to the principal.
func (s *ClassService) Get(ctx context.Context, principal *models.Principal, id string) (*models.ClassDetail, error) {
	scope, err := s.access.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}
	class, err := s.find(ctx, scope.AcademyID, id)
	if err != nil {
		return nil, err
	}
	if !scope.CoversClass(&class.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class is not assigned to you")
	}
	return class, nil
}

// Create adds a class to the director's academy.
func (s *ClassService) Create(ctx context.Context, principal *models.Principal, req dto.ClassRequest) (*models.ClassDetail, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	class := &models.Class{AcademyID: academyID}
	if err := s.apply(ctx, class, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Internal(err, "failed to create class")
	}
	return s.find(ctx, academyID, class.ID)
}

// Update modifies a class. Setting a lead teacher also assigns the class to them.
func (s *ClassService) Update(ctx context.Context, principal *models.Principal, id string, req dto.ClassRequest) (*models.ClassDetail, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	existing, err := s.find(ctx, academyID, id)
	if err != nil {
		return nil, err
	}
	class := existing.Class
	if err := s.apply(ctx, &class, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &class); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to update class")
	}
	return s.find(ctx, academyID, id)
}

// Delete removes a class; its students are detached, not deleted.
func (s *ClassService) Delete(ctx context.Context, principal *models.Principal, id string) error {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, academyID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Internal(err, "failed to delete class")
	}
	return nil
}

func (s *ClassService) apply(ctx context.Context, class *models.Class, req dto.ClassRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid class payload")
	}
	class.Name = strings.TrimSpace(req.Name)
	class.Description = req.Description
	class.TeacherID = nil
	if req.TeacherID != nil && *req.TeacherID != "" {
		if _, err := s.teachers.FindInAcademy(ctx, class.AcademyID, *req.TeacherID, models.RoleTeacher); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return appErrors.Internal(err, "failed to load teacher")
		}
		class.TeacherID = req.TeacherID
	}
	return nil
}

func (s *ClassService) find(ctx context.Context, academyID, id string) (*models.ClassDetail, error) {
	class, err := s.repo.FindByID(ctx, academyID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to load class")
	}
	return class, nil
}
