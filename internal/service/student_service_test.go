package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

const roomClassID = "8f0c2a52-3d1e-4c55-9a43-0b3c1f7d2e10"

func (s *stubStudentStore) FindByID(ctx context.Context, academyID, id string) (*models.StudentDetail, error) {
	for i := range s.students {
		st := s.students[i]
		if st.ID == id && st.AcademyID == academyID {
			return &st, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubStudentStore) Create(ctx context.Context, student *models.Student) error {
	student.ID = "new-student"
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	if student.EnrolledAt.IsZero() {
		student.EnrolledAt = time.Now().UTC()
	}
	s.students = append(s.students, models.StudentDetail{Student: *student})
	return nil
}

func (s *stubStudentStore) Update(ctx context.Context, student *models.Student) error {
	for i := range s.students {
		if s.students[i].ID == student.ID && s.students[i].AcademyID == student.AcademyID {
			s.students[i].Student = *student
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubStudentStore) Delete(ctx context.Context, academyID, id string) error {
	for i := range s.students {
		if s.students[i].ID == id && s.students[i].AcademyID == academyID {
			s.students = append(s.students[:i], s.students[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func newStudentFixture() (*academyFixture, *StudentService) {
	f := newAcademyFixture()
	f.classes.classes[roomClassID] = &models.ClassDetail{Class: models.Class{ID: roomClassID, AcademyID: "d1"}}
	return f, NewStudentService(f.students, f.classes, f.svc, nil, nil)
}

func TestStudentGetRespectsTeacherScope(t *testing.T) {
	f, svc := newStudentFixture()
	ctx := context.Background()

	_, err := svc.Get(ctx, f.teacher, "s1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.AssignClass(ctx, f.director, "t1", "c1")
	require.NoError(t, err)
	student, err := svc.Get(ctx, f.teacher, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)

	_, err = svc.Get(ctx, f.teacher, "s3")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Get(ctx, f.teacher, "s9")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentListUsesVisibleSet(t *testing.T) {
	f, svc := newStudentFixture()

	students, page, err := svc.List(context.Background(), f.teacher, dto.StudentQuery{})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Equal(t, 0, page.TotalCount)

	all, _, err := svc.List(context.Background(), f.director, dto.StudentQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, studentIDs(all))
}

func TestStudentCreateDefaults(t *testing.T) {
	f, svc := newStudentFixture()
	classID := roomClassID

	student, err := svc.Create(context.Background(), f.director, dto.StudentRequest{FullName: " Kim Minji ", ClassID: &classID})
	require.NoError(t, err)
	assert.Equal(t, "Kim Minji", student.FullName)
	assert.Equal(t, "d1", student.AcademyID)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.False(t, student.EnrolledAt.IsZero())
}

func TestStudentCreateRejectsForeignClassAndTeacher(t *testing.T) {
	f, svc := newStudentFixture()
	foreign := "1b8e7f0d-5a8c-4c2e-b1f4-8d6a3e2c9f01"
	f.classes.classes[foreign] = &models.ClassDetail{Class: models.Class{ID: foreign, AcademyID: "d2"}}

	_, err := svc.Create(context.Background(), f.director, dto.StudentRequest{FullName: "Lee", ClassID: &foreign})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Create(context.Background(), f.teacher, dto.StudentRequest{FullName: "Lee"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestStudentCreateValidation(t *testing.T) {
	f, svc := newStudentFixture()

	_, err := svc.Create(context.Background(), f.director, dto.StudentRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), f.director, dto.StudentRequest{FullName: "Lee", EnrolledAt: "2024/03/01"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentUpdateAndDelete(t *testing.T) {
	f, svc := newStudentFixture()
	ctx := context.Background()

	updated, err := svc.Update(ctx, f.director, "s4", dto.StudentRequest{FullName: "Park", Status: "LEFT", EnrolledAt: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusLeft, updated.Status)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), updated.EnrolledAt)

	_, err = svc.Update(ctx, f.director, "s9", dto.StudentRequest{FullName: "Park"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, f.director, "s4"))
	assert.ErrorIs(t, svc.Delete(ctx, f.director, "s4"), appErrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, f.teacher, "s1"), appErrors.ErrForbidden)
}
