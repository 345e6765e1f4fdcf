package models

import "time"

// StudentStatus tracks enrollment state.
type StudentStatus string

const (
	StudentStatusActive StudentStatus = "ACTIVE"
	StudentStatusLeft   StudentStatus = "LEFT"
)

// Student represents a learner enrolled in an academy.
type Student struct {
	ID            string        `db:"id" json:"id"`
	AcademyID     string        `db:"academy_id" json:"academy_id"`
	ClassID       *string       `db:"class_id" json:"class_id,omitempty"`
	FullName      string        `db:"full_name" json:"full_name"`
	School        string        `db:"school" json:"school"`
	Grade         string        `db:"grade" json:"grade"`
	Phone         string        `db:"phone" json:"phone"`
	GuardianName  string        `db:"guardian_name" json:"guardian_name"`
	GuardianPhone string        `db:"guardian_phone" json:"guardian_phone"`
	Status        StudentStatus `db:"status" json:"status"`
	EnrolledAt    time.Time     `db:"enrolled_at" json:"enrolled_at"`
	Memo          string        `db:"memo" json:"memo"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentDetail contains student information with the current class name.
type StudentDetail struct {
	Student
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
// ClassIDs, when non-nil, restricts results to those classes; an empty
// non-nil slice matches nothing.
type StudentFilter struct {
	AcademyID string
	Search    string
	ClassID   string
	ClassIDs  []string
	Status    StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
