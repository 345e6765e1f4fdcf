package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-api/internal/middleware"
	"github.com/noah-isme/academy-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth         *AuthHandler
	Classes      *ClassHandler
	Students     *StudentHandler
	Teachers     *TeacherHandler
	DailyRecords *DailyRecordHandler
	Billing      *BillingHandler
	Exports      *ExportHandler
	Verification *VerificationHandler
	Admin        *AdminHandler
}

// RouteDeps carries the cross-cutting collaborators of the route table.
type RouteDeps struct {
	Tokens middleware.TokenValidator
	Audit  middleware.AuditRecorder
	Logger *zap.Logger
}

// RegisterRoutes mounts the API on group. Role gates here are coarse; tenant
// and per-teacher scoping is enforced by the services.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, deps RouteDeps) {
	director := middleware.RequireRoles(models.RoleDirector)
	staff := middleware.RequireRoles(models.RoleDirector, models.RoleTeacher)
	admin := middleware.RequireRoles(models.RoleAdmin)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/register/director", h.Auth.RegisterDirector)
	auth.POST("/register/teacher", h.Auth.RegisterTeacher)

	api.GET("/exports/download/:token",
		middleware.Audit(deps.Audit, deps.Logger, models.AuditActionExportDownloaded, "export_jobs", ""),
		h.Exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.GET("/auth/me", h.Auth.Me)

	classes := secured.Group("/classes")
	classes.GET("", staff, h.Classes.List)
	classes.GET("/:id", staff, h.Classes.Get)
	classes.POST("", director, h.Classes.Create)
	classes.PUT("/:id", director, h.Classes.Update)
	classes.DELETE("/:id", director, h.Classes.Delete)

	students := secured.Group("/students")
	students.GET("", staff, h.Students.List)
	students.GET("/:id", staff, h.Students.Get)
	students.POST("", director, h.Students.Create)
	students.PUT("/:id", director, h.Students.Update)
	students.DELETE("/:id", director, h.Students.Delete)

	teachers := secured.Group("/teachers", director)
	teachers.GET("", h.Teachers.List)
	teachers.GET("/:id", h.Teachers.Get)
	teachers.DELETE("/:id", h.Teachers.Delete)
	teachers.GET("/:id/permissions", h.Teachers.GetPermissions)
	teachers.PUT("/:id/permissions", h.Teachers.UpdatePermissions)
	teachers.POST("/:id/classes", h.Teachers.AssignClass)
	teachers.DELETE("/:id/classes/:classId", h.Teachers.UnassignClass)

	records := secured.Group("/daily-records", staff)
	records.GET("", h.DailyRecords.List)
	records.POST("", h.DailyRecords.Create)
	records.PUT("/:id", h.DailyRecords.Update)
	records.DELETE("/:id", h.DailyRecords.Delete)

	billing := secured.Group("/billing", director)
	billing.GET("/rates", h.Billing.ListRates)
	billing.POST("/rates", h.Billing.CreateRate)
	billing.GET("/rates/effective", h.Billing.EffectiveRate)
	billing.POST("/rates/:id/end", h.Billing.EndRate)
	billing.GET("/payments", h.Billing.ListPayments)
	billing.POST("/payments", h.Billing.RecordPayment)
	billing.PUT("/payments/amount", h.Billing.AdjustAmount)
	billing.GET("/summary", middleware.WithResponseMeta(), h.Billing.Summary)
	billing.POST("/exports",
		middleware.Audit(deps.Audit, deps.Logger, models.AuditActionExportRequested, "export_jobs", ""),
		h.Billing.CreateExport)
	billing.GET("/exports/:id", h.Billing.ExportStatus)

	codes := secured.Group("/verification-code", director)
	codes.GET("", h.Verification.Current)
	codes.POST("", h.Verification.Issue)

	adminGroup := secured.Group("/admin", admin)
	adminGroup.GET("/directors", h.Admin.ListDirectors)
	adminGroup.PATCH("/directors/:id/status", h.Admin.SetDirectorStatus)
	adminGroup.GET("/metrics", h.Admin.Metrics)
}
