package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/internal/repository"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

const (
	pupilC1 = "0a6f3e2d-1b4c-4d8e-9f70-5a2b3c4d5e61"
	pupilC2 = "7c1d2e3f-4a5b-4c6d-8e9f-0a1b2c3d4e52"
)

type stubDailyRepo struct {
	records []*models.DailyRecord
	filters []models.DailyRecordFilter
}

func (s *stubDailyRepo) List(ctx context.Context, filter models.DailyRecordFilter) ([]models.DailyRecordDetail, error) {
	s.filters = append(s.filters, filter)
	out := []models.DailyRecordDetail{}
	for _, r := range s.records {
		if r.AcademyID == filter.AcademyID && (filter.StudentID == "" || r.StudentID == filter.StudentID) {
			out = append(out, models.DailyRecordDetail{DailyRecord: *r})
		}
	}
	return out, nil
}

func (s *stubDailyRepo) FindByID(ctx context.Context, academyID, id string) (*models.DailyRecord, error) {
	for _, r := range s.records {
		if r.ID == id && r.AcademyID == academyID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubDailyRepo) Create(ctx context.Context, record *models.DailyRecord) error {
	for _, r := range s.records {
		if r.StudentID == record.StudentID && r.RecordDate.Equal(record.RecordDate) {
			return repository.ErrDuplicate
		}
	}
	record.ID = "rec-" + record.RecordDate.Format(dateLayout)
	copied := *record
	s.records = append(s.records, &copied)
	return nil
}

func (s *stubDailyRepo) Update(ctx context.Context, record *models.DailyRecord) error {
	for i, r := range s.records {
		if r.ID == record.ID {
			copied := *record
			s.records[i] = &copied
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubDailyRepo) Delete(ctx context.Context, academyID, id string) error {
	for i, r := range s.records {
		if r.ID == id && r.AcademyID == academyID {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func newDailyFixture() (*academyFixture, *stubDailyRepo, *DailyRecordService) {
	f := newAcademyFixture()
	f.students.students = append(f.students.students,
		models.StudentDetail{Student: models.Student{ID: pupilC1, AcademyID: "d1", ClassID: strPtr("c1")}},
		models.StudentDetail{Student: models.Student{ID: pupilC2, AcademyID: "d1", ClassID: strPtr("c2")}},
	)
	repo := &stubDailyRepo{}
	return f, repo, NewDailyRecordService(repo, f.students, f.svc, nil, nil)
}

func presentOn(studentID, day string) dto.DailyRecordRequest {
	return dto.DailyRecordRequest{StudentID: studentID, RecordDate: day, Attendance: "PRESENT", Homework: "done"}
}

func TestDailyRecordDirectorAlwaysAllowed(t *testing.T) {
	f, repo, svc := newDailyFixture()

	record, err := svc.Create(context.Background(), f.director, presentOn(pupilC2, "2024-03-04"))
	require.NoError(t, err)
	assert.Equal(t, "d1", record.AuthorID)
	assert.Equal(t, models.AttendancePresent, record.Attendance)
	assert.Len(t, repo.records, 1)
}

func TestDailyRecordTeacherNeedsCapabilityAndVisibility(t *testing.T) {
	f, repo, svc := newDailyFixture()
	ctx := context.Background()

	_, err := f.svc.AssignClass(ctx, f.director, "t1", "c1")
	require.NoError(t, err)
	_, err = svc.Create(ctx, f.teacher, presentOn(pupilC1, "2024-03-04"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	yes := true
	_, err = f.svc.UpdateCapabilities(ctx, f.director, "t1", dto.UpdatePermissionsRequest{WriteDailyReports: &yes})
	require.NoError(t, err)

	_, err = svc.Create(ctx, f.teacher, presentOn(pupilC2, "2024-03-04"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	record, err := svc.Create(ctx, f.teacher, presentOn(pupilC1, "2024-03-04"))
	require.NoError(t, err)
	assert.Equal(t, "t1", record.AuthorID)
	assert.Len(t, repo.records, 1)
}

func TestDailyRecordDuplicateDayConflicts(t *testing.T) {
	f, _, svc := newDailyFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, f.director, presentOn(pupilC1, "2024-03-04"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, f.director, presentOn(pupilC1, "2024-03-04"))
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestDailyRecordListByStudentChecksVisibility(t *testing.T) {
	f, repo, svc := newDailyFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, f.director, presentOn(pupilC2, "2024-03-04"))
	require.NoError(t, err)

	_, err = svc.List(ctx, f.teacher, dto.DailyRecordQuery{StudentID: pupilC2})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	records, err := svc.List(ctx, f.director, dto.DailyRecordQuery{StudentID: pupilC2})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, pupilC2, repo.filters[0].StudentID)
}

func TestDailyRecordListByDateUsesVisibleClasses(t *testing.T) {
	f, repo, svc := newDailyFixture()
	ctx := context.Background()

	_, err := f.svc.AssignClass(ctx, f.director, "t1", "c2")
	require.NoError(t, err)
	_, err = svc.List(ctx, f.teacher, dto.DailyRecordQuery{From: "2024-03-01", To: "2024-03-31"})
	require.NoError(t, err)

	require.Len(t, repo.filters, 1)
	filter := repo.filters[0]
	assert.Equal(t, []string{"c2"}, filter.ClassIDs)
	require.NotNil(t, filter.From)
	assert.Equal(t, "2024-03-01", filter.From.Format(dateLayout))

	_, err = svc.List(ctx, f.teacher, dto.DailyRecordQuery{From: "03/01/2024"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestDailyRecordUpdateAndDelete(t *testing.T) {
	f, repo, svc := newDailyFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, f.director, presentOn(pupilC1, "2024-03-04"))
	require.NoError(t, err)

	score := 88.5
	req := presentOn(pupilC1, "2024-03-04")
	req.Attendance = "LATE"
	req.TestScore = &score
	updated, err := svc.Update(ctx, f.director, created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceLate, updated.Attendance)
	assert.Equal(t, 88.5, *updated.TestScore)

	assert.ErrorIs(t, svc.Delete(ctx, f.teacher, created.ID), appErrors.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, f.director, created.ID))
	assert.Empty(t, repo.records)
	assert.ErrorIs(t, svc.Delete(ctx, f.director, created.ID), appErrors.ErrNotFound)
}
