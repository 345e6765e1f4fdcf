package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/internal/repository"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

type dailyRecordRepository interface {
	List(ctx context.Context, filter models.DailyRecordFilter) ([]models.DailyRecordDetail, error)
	FindByID(ctx context.Context, academyID, id string) (*models.DailyRecord, error)
	Create(ctx context.Context, record *models.DailyRecord) error
	Update(ctx context.Context, record *models.DailyRecord) error
	Delete(ctx context.Context, academyID, id string) error
}

type studentFinder interface {
	FindByID(ctx context.Context, academyID, id string) (*models.StudentDetail, error)
}

// DailyRecordService records attendance, homework and test results per student per day.
type DailyRecordService struct {
	repo      dailyRecordRepository
	students  studentFinder
	access    accessResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDailyRecordService constructs the daily record service.
func NewDailyRecordService(repo dailyRecordRepository, students studentFinder, access accessResolver, validate *validator.Validate, logger *zap.Logger) *DailyRecordService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyRecordService{repo: repo, students: students, access: access, validator: validate, logger: logger}
}

// List returns records for one visible student, or for every visible student
// when no student is given, optionally bounded by a date range.
func (s *DailyRecordService) List(ctx context.Context, principal *models.Principal, query dto.DailyRecordQuery) ([]models.DailyRecordDetail, error) {
	scope, err := s.access.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}
	filter := models.DailyRecordFilter{AcademyID: scope.AcademyID}
	if query.From != "" {
		from, err := parseDate("from", query.From)
		if err != nil {
			return nil, err
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := parseDate("to", query.To)
		if err != nil {
			return nil, err
		}
		filter.To = &to
	}
	if query.StudentID != "" {
		if _, err := s.visibleStudent(ctx, scope, query.StudentID); err != nil {
			return nil, err
		}
		filter.StudentID = query.StudentID
	} else {
		filter.ClassIDs = scope.ClassFilter()
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list daily records")
	}
	if records == nil {
		records = []models.DailyRecordDetail{}
	}
	return records, nil
}

// Create writes the record for (student, date). A second record for the same day is a Conflict.
func (s *DailyRecordService) Create(ctx context.Context, principal *models.Principal, req dto.DailyRecordRequest) (*models.DailyRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid daily record payload")
	}
	scope, err := s.writableScope(ctx, principal)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleStudent(ctx, scope, req.StudentID); err != nil {
		return nil, err
	}
	day, err := parseDate("record_date", req.RecordDate)
	if err != nil {
		return nil, err
	}

	record := &models.DailyRecord{
		AcademyID:  scope.AcademyID,
		StudentID:  req.StudentID,
		RecordDate: day,
		AuthorID:   principal.UserID,
	}
	applyDailyRecord(record, req)
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a record already exists for this student and date")
		}
		return nil, appErrors.Internal(err, "failed to create daily record")
	}
	return record, nil
}

// Update rewrites the record body. Student and date are fixed once created.
func (s *DailyRecordService) Update(ctx context.Context, principal *models.Principal, id string, req dto.DailyRecordRequest) (*models.DailyRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid daily record payload")
	}
	scope, err := s.writableScope(ctx, principal)
	if err != nil {
		return nil, err
	}
	record, err := s.find(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	applyDailyRecord(record, req)
	record.AuthorID = principal.UserID
	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "daily record not found")
		}
		return nil, appErrors.Internal(err, "failed to update daily record")
	}
	return record, nil
}

// Delete removes a record of a visible student.
func (s *DailyRecordService) Delete(ctx context.Context, principal *models.Principal, id string) error {
	scope, err := s.writableScope(ctx, principal)
	if err != nil {
		return err
	}
	if _, err := s.find(ctx, scope, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, scope.AcademyID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "daily record not found")
		}
		return appErrors.Internal(err, "failed to delete daily record")
	}
	return nil
}

func (s *DailyRecordService) writableScope(ctx context.Context, principal *models.Principal) (*models.AccessScope, error) {
	scope, err := s.access.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}
	if !scope.CanWriteDailyRecord {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "write_daily_reports permission required")
	}
	return scope, nil
}

func (s *DailyRecordService) find(ctx context.Context, scope *models.AccessScope, id string) (*models.DailyRecord, error) {
	record, err := s.repo.FindByID(ctx, scope.AcademyID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "daily record not found")
		}
		return nil, appErrors.Internal(err, "failed to load daily record")
	}
	if _, err := s.visibleStudent(ctx, scope, record.StudentID); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *DailyRecordService) visibleStudent(ctx context.Context, scope *models.AccessScope, studentID string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, scope.AcademyID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if !scope.CoversClass(student.ClassID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is outside your assigned classes")
	}
	return student, nil
}

func applyDailyRecord(record *models.DailyRecord, req dto.DailyRecordRequest) {
	record.Attendance = models.Attendance(req.Attendance)
	record.Homework = req.Homework
	record.TestScore = req.TestScore
	record.Memo = req.Memo
}
