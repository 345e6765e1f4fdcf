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

func TestAssignClassIsIdempotentInsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (teacher_id, class_id) DO NOTHING")).
			WithArgs("t1", "c1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, int64(1-i)))
	}

	require.NoError(t, repo.AssignClass(context.Background(), "t1", "c1"))
	require.NoError(t, repo.AssignClass(context.Background(), "t1", "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCapabilitiesWritesEveryRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	perms := models.TeacherPermissions{TeacherID: "t1", ViewAllStudents: true}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_capabilities")).
		WithArgs("t1", "view_all_students", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_capabilities")).
		WithArgs("t1", "write_daily_reports", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpsertCapabilities(context.Background(), perms.Grants()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCapabilitiesAndClasses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_capabilities WHERE teacher_id = $1")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "capability", "enabled", "updated_at"}).
			AddRow("t1", "write_daily_reports", true, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id FROM teacher_classes WHERE teacher_id = $1")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id"}).AddRow("c1").AddRow("c2"))

	grants, err := repo.ListCapabilities(context.Background(), "t1")
	require.NoError(t, err)
	ids, err := repo.ListClassIDs(context.Background(), "t1")
	require.NoError(t, err)

	perms := models.TeacherPermissions{TeacherID: "t1", ClassIDs: ids}
	perms.Apply(grants)
	assert.True(t, perms.WriteDailyReports)
	assert.False(t, perms.ViewAllStudents)
	assert.Equal(t, []string{"c1", "c2"}, perms.ClassIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
