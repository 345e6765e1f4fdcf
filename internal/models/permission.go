package models

import "time"

// Capability is a per-teacher permission flag.
type Capability string

const (
	CapabilityViewAllStudents   Capability = "view_all_students"
	CapabilityWriteDailyReports Capability = "write_daily_reports"
)

// Capabilities lists every known capability in storage order.
var Capabilities = []Capability{CapabilityViewAllStudents, CapabilityWriteDailyReports}

// CapabilityGrant is one stored (teacher, capability) row.
type CapabilityGrant struct {
	TeacherID  string     `db:"teacher_id" json:"teacher_id"`
	Capability Capability `db:"capability" json:"capability"`
	Enabled    bool       `db:"enabled" json:"enabled"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// TeacherPermissions is the resolved permission set for a teacher.
// Missing capability rows mean disabled.
type TeacherPermissions struct {
	TeacherID         string   `json:"teacher_id"`
	ViewAllStudents   bool     `json:"view_all_students"`
	WriteDailyReports bool     `json:"write_daily_reports"`
	ClassIDs          []string `json:"class_ids"`
}

// Apply folds stored grants into the flag fields.
func (p *TeacherPermissions) Apply(grants []CapabilityGrant) {
	for _, g := range grants {
		switch g.Capability {
		case CapabilityViewAllStudents:
			p.ViewAllStudents = g.Enabled
		case CapabilityWriteDailyReports:
			p.WriteDailyReports = g.Enabled
		}
	}
}

// Grants expands the flag fields into one row per capability.
func (p TeacherPermissions) Grants() []CapabilityGrant {
	return []CapabilityGrant{
		{TeacherID: p.TeacherID, Capability: CapabilityViewAllStudents, Enabled: p.ViewAllStudents},
		{TeacherID: p.TeacherID, Capability: CapabilityWriteDailyReports, Enabled: p.WriteDailyReports},
	}
}

// HasClass reports whether classID is in the assigned set.
func (p TeacherPermissions) HasClass(classID string) bool {
	for _, id := range p.ClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// AccessScope is a principal's resolved view of its academy.
type AccessScope struct {
	AcademyID           string
	AllStudents         bool
	ClassIDs            []string
	CanWriteDailyRecord bool
}

// ClassFilter returns nil for an unrestricted scope, otherwise the assigned
// class set as a non-nil slice so that an empty assignment matches nothing.
func (s AccessScope) ClassFilter() []string {
	if s.AllStudents {
		return nil
	}
	if s.ClassIDs == nil {
		return []string{}
	}
	return s.ClassIDs
}

// CoversClass reports whether students of classID are visible.
func (s AccessScope) CoversClass(classID *string) bool {
	if s.AllStudents {
		return true
	}
	if classID == nil {
		return false
	}
	for _, id := range s.ClassIDs {
		if id == *classID {
			return true
		}
	}
	return false
}
