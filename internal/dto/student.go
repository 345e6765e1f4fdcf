package dto

// StudentRequest defines payload for creating or updating a student.
type StudentRequest struct {
	FullName      string  `json:"full_name" validate:"required,max=100"`
	ClassID       *string `json:"class_id,omitempty" validate:"omitempty,uuid"`
	School        string  `json:"school" validate:"max=100"`
	Grade         string  `json:"grade" validate:"max=20"`
	Phone         string  `json:"phone" validate:"max=30"`
	GuardianName  string  `json:"guardian_name" validate:"max=100"`
	GuardianPhone string  `json:"guardian_phone" validate:"max=30"`
	Status        string  `json:"status" validate:"omitempty,oneof=ACTIVE LEFT"`
	EnrolledAt    string  `json:"enrolled_at" validate:"omitempty,datetime=2006-01-02"`
	Memo          string  `json:"memo" validate:"max=1000"`
}

// StudentQuery captures list query parameters.
type StudentQuery struct {
	Search    string `form:"search"`
	ClassID   string `form:"class_id"`
	Status    string `form:"status"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}
