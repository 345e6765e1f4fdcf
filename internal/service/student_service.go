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

type studentRepository interface {
	FindByID(ctx context.Context, academyID, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, academyID, id string) error
}

type accessResolver interface {
	Resolve(ctx context.Context, principal *models.Principal) (*models.AccessScope, error)
	VisibleStudents(ctx context.Context, principal *models.Principal, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
}

// StudentService handles student roster use cases.
type StudentService struct {
	repo      studentRepository
	classes   classLookup
	access    accessResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, classes classLookup, access accessResolver, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, classes: classes, access: access, validator: validate, logger: logger}
}

// List returns the students visible to the principal.
func (s *StudentService) List(ctx context.Context, principal *models.Principal, query dto.StudentQuery) ([]models.StudentDetail, *models.Pagination, error) {
	filter := models.StudentFilter{
		Search:    strings.TrimSpace(query.Search),
		ClassID:   query.ClassID,
		Status:    models.StudentStatus(strings.ToUpper(query.Status)),
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	return s.access.VisibleStudents(ctx, principal, filter)
}

// Get returns a student when it is visible to the principal.
func (s *StudentService) Get(ctx context.Context, principal *models.Principal, id string) (*models.StudentDetail, error) {
	scope, err := s.access.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}
	student, err := s.find(ctx, scope.AcademyID, id)
	if err != nil {
		return nil, err
	}
	if !scope.CoversClass(student.ClassID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is outside your assigned classes")
	}
	return student, nil
}

// Create enrolls a new student in the director's academy.
func (s *StudentService) Create(ctx context.Context, principal *models.Principal, req dto.StudentRequest) (*models.StudentDetail, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	student := &models.Student{AcademyID: academyID}
	if err := s.apply(ctx, student, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to create student")
	}
	return s.find(ctx, academyID, student.ID)
}

// Update replaces the student's mutable fields.
func (s *StudentService) Update(ctx context.Context, principal *models.Principal, id string, req dto.StudentRequest) (*models.StudentDetail, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	existing, err := s.find(ctx, academyID, id)
	if err != nil {
		return nil, err
	}
	student := existing.Student
	if err := s.apply(ctx, &student, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to update student")
	}
	return s.find(ctx, academyID, id)
}

// Delete removes a student with its billing and daily records.
func (s *StudentService) Delete(ctx context.Context, principal *models.Principal, id string) error {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, academyID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to delete student")
	}
	return nil
}

func (s *StudentService) apply(ctx context.Context, student *models.Student, req dto.StudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid student payload")
	}
	if req.ClassID != nil && *req.ClassID != "" {
		if _, err := s.classes.FindByID(ctx, student.AcademyID, *req.ClassID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return appErrors.Internal(err, "failed to load class")
		}
		student.ClassID = req.ClassID
	} else {
		student.ClassID = nil
	}
	if req.EnrolledAt != "" {
		enrolled, err := parseDate("enrolled_at", req.EnrolledAt)
		if err != nil {
			return err
		}
		student.EnrolledAt = enrolled
	}
	if req.Status != "" {
		student.Status = models.StudentStatus(req.Status)
	}
	student.FullName = strings.TrimSpace(req.FullName)
	student.School = req.School
	student.Grade = req.Grade
	student.Phone = req.Phone
	student.GuardianName = req.GuardianName
	student.GuardianPhone = req.GuardianPhone
	student.Memo = req.Memo
	return nil
}

func (s *StudentService) find(ctx context.Context, academyID, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, academyID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}
