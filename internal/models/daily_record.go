package models

import "time"

// Attendance values for a daily record.
type Attendance string

const (
	AttendancePresent Attendance = "PRESENT"
	AttendanceAbsent  Attendance = "ABSENT"
	AttendanceLate    Attendance = "LATE"
)

// DailyRecord is the per-day performance entry for a student.
type DailyRecord struct {
	ID         string     `db:"id" json:"id"`
	AcademyID  string     `db:"academy_id" json:"academy_id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	RecordDate time.Time  `db:"record_date" json:"record_date"`
	Attendance Attendance `db:"attendance" json:"attendance"`
	Homework   string     `db:"homework" json:"homework"`
	TestScore  *float64   `db:"test_score" json:"test_score,omitempty"`
	Memo       string     `db:"memo" json:"memo"`
	AuthorID   string     `db:"author_id" json:"author_id"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// DailyRecordDetail adds the student's name for list views.
type DailyRecordDetail struct {
	DailyRecord
	StudentName string  `db:"student_name" json:"student_name"`
	ClassID     *string `db:"class_id" json:"class_id,omitempty"`
}

// DailyRecordFilter narrows record listings. ClassIDs follows StudentFilter semantics.
type DailyRecordFilter struct {
	AcademyID string
	StudentID string
	From      *time.Time
	To        *time.Time
	ClassIDs  []string
}
