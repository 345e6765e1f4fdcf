package dto

// UpdatePermissionsRequest toggles capability flags. Omitted flags keep their value.
type UpdatePermissionsRequest struct {
	ViewAllStudents   *bool `json:"view_all_students"`
	WriteDailyReports *bool `json:"write_daily_reports"`
}

// AssignClassRequest adds a class to a teacher's assignment set.
type AssignClassRequest struct {
	ClassID string `json:"class_id" validate:"required,uuid"`
}

// AccountStatusRequest activates or deactivates an account.
type AccountStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}
