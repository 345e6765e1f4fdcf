package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/internal/repository"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

type stubCodeRepo struct {
	codes      []*models.VerificationCode
	collisions int
}

func (s *stubCodeRepo) Replace(ctx context.Context, code *models.VerificationCode) error {
	if s.collisions > 0 {
		s.collisions--
		return repository.ErrDuplicate
	}
	for _, c := range s.codes {
		if c.DirectorID == code.DirectorID {
			c.Active = false
		}
	}
	code.ID = code.Code
	code.Active = true
	copied := *code
	s.codes = append(s.codes, &copied)
	return nil
}

func (s *stubCodeRepo) FindActiveByDirector(ctx context.Context, directorID string) (*models.VerificationCode, error) {
	for _, c := range s.codes {
		if c.DirectorID == directorID && c.Active {
			copied := *c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubCodeRepo) FindActiveByCode(ctx context.Context, value string) (*models.VerificationCode, error) {
	for _, c := range s.codes {
		if c.Code == value && c.Active {
			copied := *c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestGenerateCodeUsesUnambiguousAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode(8)
		require.NoError(t, err)
		assert.Len(t, code, 8)
		assert.Empty(t, strings.Trim(code, codeAlphabet))
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "I")
	}
}

func TestReissueInvalidatesOnlyThatDirectorsCode(t *testing.T) {
	repo := &stubCodeRepo{}
	audit := &stubAudit{}
	svc := NewVerificationService(repo, audit, 6, nil)
	ctx := context.Background()
	other := &models.Principal{UserID: "d2", Role: models.RoleDirector, AcademyID: "d2"}

	first, err := svc.Issue(ctx, directorD1)
	require.NoError(t, err)
	assert.Len(t, first.Code, 6)
	otherCode, err := svc.Issue(ctx, other)
	require.NoError(t, err)

	directorID, err := svc.Validate(ctx, strings.ToLower(first.Code))
	require.NoError(t, err)
	assert.Equal(t, "d1", directorID)

	second, err := svc.Issue(ctx, directorD1)
	require.NoError(t, err)

	_, err = svc.Validate(ctx, first.Code)
	assert.ErrorIs(t, err, appErrors.ErrInvalidOrExpiredCode)
	directorID, err = svc.Validate(ctx, second.Code)
	require.NoError(t, err)
	assert.Equal(t, "d1", directorID)
	directorID, err = svc.Validate(ctx, otherCode.Code)
	require.NoError(t, err)
	assert.Equal(t, "d2", directorID)

	current, err := svc.Current(ctx, directorD1)
	require.NoError(t, err)
	assert.Equal(t, second.Code, current.Code)
	assert.Len(t, audit.logs, 3)
}

func TestIssueRetriesOnCollision(t *testing.T) {
	repo := &stubCodeRepo{collisions: 2}
	svc := NewVerificationService(repo, nil, 0, nil)

	code, err := svc.Issue(context.Background(), directorD1)
	require.NoError(t, err)
	assert.Len(t, code.Code, 6)

	repo.collisions = maxIssueAttempts
	_, err = svc.Issue(context.Background(), directorD1)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestVerificationCodeRequiresDirector(t *testing.T) {
	svc := NewVerificationService(&stubCodeRepo{}, nil, 6, nil)
	teacher := &models.Principal{UserID: "t1", Role: models.RoleTeacher, AcademyID: "d1"}

	_, err := svc.Issue(context.Background(), teacher)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Current(context.Background(), directorD1)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Validate(context.Background(), "  ")
	assert.ErrorIs(t, err, appErrors.ErrInvalidOrExpiredCode)
}
