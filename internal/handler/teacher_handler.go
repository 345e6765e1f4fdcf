package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/pkg/response"
)

type teacherAccounts interface {
	ListTeachers(ctx context.Context, principal *models.Principal, search string, page, pageSize int) ([]models.User, *models.Pagination, error)
	GetTeacher(ctx context.Context, principal *models.Principal, teacherID string) (*models.User, error)
	DeactivateTeacher(ctx context.Context, principal *models.Principal, teacherID string) error
}

type teacherPermissions interface {
	GetPermissions(ctx context.Context, principal *models.Principal, teacherID string) (*models.TeacherPermissions, error)
	UpdateCapabilities(ctx context.Context, principal *models.Principal, teacherID string, req dto.UpdatePermissionsRequest) (*models.TeacherPermissions, error)
	AssignClass(ctx context.Context, principal *models.Principal, teacherID, classID string) (*models.TeacherPermissions, error)
	UnassignClass(ctx context.Context, principal *models.Principal, teacherID, classID string) (*models.TeacherPermissions, error)
}

// TeacherHandler serves the director's teacher roster and permission grants.
type TeacherHandler struct {
	accounts    teacherAccounts
	permissions teacherPermissions
}

// NewTeacherHandler constructs TeacherHandler.
func NewTeacherHandler(accounts teacherAccounts, permissions teacherPermissions) *TeacherHandler {
	return &TeacherHandler{accounts: accounts, permissions: permissions}
}

// List godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	teachers, pagination, err := h.accounts.ListTeachers(c.Request.Context(), principal, search(c), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, pagination)
}

// Get godoc
// @Summary Get teacher
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	teacher, err := h.accounts.GetTeacher(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Delete godoc
// @Summary Deactivate teacher
// @Description Deactivates the account and revokes its sessions
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.accounts.DeactivateTeacher(c.Request.Context(), principal, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c)
}

// GetPermissions godoc
// @Summary Get teacher permissions
// @Tags Teacher Permissions
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/permissions [get]
func (h *TeacherHandler) GetPermissions(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	perms, err := h.permissions.GetPermissions(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perms, nil)
}

// UpdatePermissions godoc
// @Summary Update teacher capabilities
// @Tags Teacher Permissions
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.UpdatePermissionsRequest true "Capability flags"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/permissions [put]
func (h *TeacherHandler) UpdatePermissions(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdatePermissionsRequest
	if !bindJSON(c, &req) {
		return
	}
	perms, err := h.permissions.UpdateCapabilities(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perms, nil)
}

// AssignClass godoc
// @Summary Assign class to teacher
// @Tags Teacher Permissions
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.AssignClassRequest true "Class"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/classes [post]
func (h *TeacherHandler) AssignClass(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.AssignClassRequest
	if !bindJSON(c, &req) {
		return
	}
	perms, err := h.permissions.AssignClass(c.Request.Context(), principal, c.Param("id"), req.ClassID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perms, nil)
}

// UnassignClass godoc
// @Summary Remove class from teacher
// @Tags Teacher Permissions
// @Produce json
// @Param id path string true "Teacher ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/classes/{classId} [delete]
func (h *TeacherHandler) UnassignClass(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	perms, err := h.permissions.UnassignClass(c.Request.Context(), principal, c.Param("id"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perms, nil)
}
