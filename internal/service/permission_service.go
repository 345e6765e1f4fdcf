package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

type permissionRepository interface {
	ListCapabilities(ctx context.Context, teacherID string) ([]models.CapabilityGrant, error)
	UpsertCapabilities(ctx context.Context, grants []models.CapabilityGrant) error
	ListClassIDs(ctx context.Context, teacherID string) ([]string, error)
	AssignClass(ctx context.Context, teacherID, classID string) error
	UnassignClass(ctx context.Context, teacherID, classID string) error
}

type teacherLookup interface {
	FindInAcademy(ctx context.Context, academyID, id string, role models.UserRole) (*models.User, error)
}

type classLookup interface {
	FindByID(ctx context.Context, academyID, id string) (*models.ClassDetail, error)
}

type studentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
}

// PermissionService stores teacher capabilities and resolves what a principal may see.
type PermissionService struct {
	repo     permissionRepository
	teachers teacherLookup
	classes  classLookup
	students studentLister
	audit    auditRecorder
	logger   *zap.Logger
}

// NewPermissionService constructs the service.
func NewPermissionService(repo permissionRepository, teachers teacherLookup, classes classLookup, students studentLister, audit auditRecorder, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{repo: repo, teachers: teachers, classes: classes, students: students, audit: audit, logger: logger}
}

// GetPermissions returns a teacher's flags and assigned classes.
func (s *PermissionService) GetPermissions(ctx context.Context, principal *models.Principal, teacherID string) (*models.TeacherPermissions, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTeacher(ctx, academyID, teacherID); err != nil {
		return nil, err
	}
	return s.load(ctx, teacherID)
}

// UpdateCapabilities writes the provided flags; omitted flags are left as stored.
func (s *PermissionService) UpdateCapabilities(ctx context.Context, principal *models.Principal, teacherID string, req dto.UpdatePermissionsRequest) (*models.TeacherPermissions, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTeacher(ctx, academyID, teacherID); err != nil {
		return nil, err
	}

	perms, err := s.load(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if req.ViewAllStudents != nil {
		perms.ViewAllStudents = *req.ViewAllStudents
	}
	if req.WriteDailyReports != nil {
		perms.WriteDailyReports = *req.WriteDailyReports
	}

	if err := s.repo.UpsertCapabilities(ctx, perms.Grants()); err != nil {
		return nil, appErrors.Internal(err, "failed to update permissions")
	}
	recordAudit(ctx, s.audit, s.logger, principal, models.AuditActionPermissionChange, "teacher_capabilities", teacherID, perms)
	return perms, nil
}

// AssignClass adds classID to the teacher's assignment set. Repeating it is a no-op.
func (s *PermissionService) AssignClass(ctx context.Context, principal *models.Principal, teacherID, classID string) (*models.TeacherPermissions, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTeacher(ctx, academyID, teacherID); err != nil {
		return nil, err
	}
	if err := s.ensureClass(ctx, academyID, classID); err != nil {
		return nil, err
	}
	if err := s.repo.AssignClass(ctx, teacherID, classID); err != nil {
		return nil, appErrors.Internal(err, "failed to assign class")
	}
	recordAudit(ctx, s.audit, s.logger, principal, models.AuditActionPermissionChange, "teacher_classes", teacherID, map[string]string{"assigned": classID})
	return s.load(ctx, teacherID)
}

// UnassignClass removes classID from the teacher's assignment set.
func (s *PermissionService) UnassignClass(ctx context.Context, principal *models.Principal, teacherID, classID string) (*models.TeacherPermissions, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTeacher(ctx, academyID, teacherID); err != nil {
		return nil, err
	}
	if err := s.repo.UnassignClass(ctx, teacherID, classID); err != nil {
		return nil, appErrors.Internal(err, "failed to unassign class")
	}
	recordAudit(ctx, s.audit, s.logger, principal, models.AuditActionPermissionChange, "teacher_classes", teacherID, map[string]string{"unassigned": classID})
	return s.load(ctx, teacherID)
}

// Resolve computes the principal's access scope. Directors see their whole
// academy; teachers see it only with view_all_students, otherwise exactly the
// students of their assigned classes. Admins have no academy scope.
func (s *PermissionService) Resolve(ctx context.Context, principal *models.Principal) (*models.AccessScope, error) {
	academyID, err := academyOf(principal)
	if err != nil {
		return nil, err
	}
	if principal.IsDirector() {
		return &models.AccessScope{AcademyID: academyID, AllStudents: true, CanWriteDailyRecord: true}, nil
	}

	perms, err := s.load(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return &models.AccessScope{
		AcademyID:           academyID,
		AllStudents:         perms.ViewAllStudents,
		ClassIDs:            perms.ClassIDs,
		CanWriteDailyRecord: perms.WriteDailyReports,
	}, nil
}

// VisibleStudents lists the students the principal may see. A teacher without
// view_all_students and without classes gets an empty page, not an error.
func (s *PermissionService) VisibleStudents(ctx context.Context, principal *models.Principal, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	scope, err := s.Resolve(ctx, principal)
	if err != nil {
		return nil, nil, err
	}
	filter.AcademyID = scope.AcademyID
	filter.ClassIDs = scope.ClassFilter()
	if filter.ClassIDs != nil && len(filter.ClassIDs) == 0 {
		return []models.StudentDetail{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
	}

	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *PermissionService) load(ctx context.Context, teacherID string) (*models.TeacherPermissions, error) {
	grants, err := s.repo.ListCapabilities(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load permissions")
	}
	classIDs, err := s.repo.ListClassIDs(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load class assignments")
	}
	if classIDs == nil {
		classIDs = []string{}
	}
	perms := &models.TeacherPermissions{TeacherID: teacherID, ClassIDs: classIDs}
	perms.Apply(grants)
	return perms, nil
}

func (s *PermissionService) ensureTeacher(ctx context.Context, academyID, teacherID string) error {
	if _, err := s.teachers.FindInAcademy(ctx, academyID, teacherID, models.RoleTeacher); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Internal(err, "failed to load teacher")
	}
	return nil
}

func (s *PermissionService) ensureClass(ctx context.Context, academyID, classID string) error {
	if _, err := s.classes.FindByID(ctx, academyID, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Internal(err, "failed to load class")
	}
	return nil
}
