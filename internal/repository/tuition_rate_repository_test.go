package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-api/internal/models"
)

func TestCreateRateRejectsOverlap(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTuitionRateRepository(db)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE id = $1 AND academy_id = $2 FOR UPDATE")).
		WithArgs("s1", "d1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tuition_rates WHERE student_id = $1")).
		WithArgs("s1", start, nil).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.TuitionRate{AcademyID: "d1", StudentID: "s1", Amount: 300000, StartDate: start})
	assert.ErrorIs(t, err, ErrRateOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRateInsertsWhenFree(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTuitionRateRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tuition_rates")).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO tuition_rates").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rate := &models.TuitionRate{AcademyID: "d1", StudentID: "s1", Amount: 300000, StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Create(context.Background(), rate))
	assert.NotEmpty(t, rate.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRateUnknownStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTuitionRateRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.TuitionRate{AcademyID: "d2", StudentID: "s1", Amount: 1, StartDate: time.Now()})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEffectiveRateNone(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTuitionRateRepository(db)

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("start_date <= $2 AND (end_date IS NULL OR end_date > $2)")).
		WithArgs("s1", day).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Effective(context.Background(), "s1", day)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
