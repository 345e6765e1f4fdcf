package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-api/internal/models"
)

var studentRowColumns = []string{"id", "academy_id", "class_id", "full_name", "school", "grade", "phone", "guardian_name", "guardian_phone", "status", "enrolled_at", "memo", "created_at", "updated_at", "class_name"}

func TestStudentListEmptyClassSetSkipsQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	students, total, err := repo.List(context.Background(), models.StudentFilter{AcademyID: "d1", ClassIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentListByClasses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s1", "d1", "c1", "Kim Minji", "Seoul Middle", "2", "", "", "", "ACTIVE", now, "", now, now, "Math A")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.academy_id = $1 AND s.class_id = ANY($2) ORDER BY s.full_name ASC LIMIT 20 OFFSET 0")).
		WithArgs("d1", sqlmock.AnyArg()).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{AcademyID: "d1", ClassIDs: []string{"c1"}})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Math A", *students[0].ClassName)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentCreateDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{AcademyID: "d1", FullName: "Lee Jiho"}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.False(t, student.EnrolledAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
