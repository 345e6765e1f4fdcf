package models

import "time"

// Class is a ClassGroup: a roster of students inside one academy with at most one lead teacher.
type Class struct {
	ID          string    `db:"id" json:"id"`
	AcademyID   string    `db:"academy_id" json:"academy_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	TeacherID   *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with the lead teacher's name and roster size.
type ClassDetail struct {
	Class
	TeacherName  *string `db:"teacher_name" json:"teacher_name,omitempty"`
	StudentCount int     `db:"student_count" json:"student_count"`
}

// ClassFilter narrows class listings. ClassIDs follows StudentFilter semantics.
type ClassFilter struct {
	AcademyID string
	Search    string
	ClassIDs  []string
	Page      int
	PageSize  int
}
