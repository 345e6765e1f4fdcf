package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/internal/repository"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

// codeAlphabet omits characters that are easy to misread: 0/O, 1/I/L.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const maxIssueAttempts = 5

type verificationRepository interface {
	Replace(ctx context.Context, code *models.VerificationCode) error
	FindActiveByDirector(ctx context.Context, directorID string) (*models.VerificationCode, error)
	FindActiveByCode(ctx context.Context, value string) (*models.VerificationCode, error)
}

// VerificationService issues the onboarding code a director hands to teachers.
// A director has at most one active code; it stays valid until reissued.
type VerificationService struct {
	repo   verificationRepository
	audit  auditRecorder
	length int
	logger *zap.Logger
}

// NewVerificationService constructs the service. length below 4 falls back to 6.
func NewVerificationService(repo verificationRepository, audit auditRecorder, length int, logger *zap.Logger) *VerificationService {
	if length < 4 {
		length = 6
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{repo: repo, audit: audit, length: length, logger: logger}
}

// Issue generates a new code for the director, revoking the previous one.
func (s *VerificationService) Issue(ctx context.Context, principal *models.Principal) (*models.VerificationCode, error) {
	directorID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		value, err := generateCode(s.length)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to generate verification code")
		}
		code := &models.VerificationCode{DirectorID: directorID, Code: value}
		err = s.repo.Replace(ctx, code)
		if errors.Is(err, repository.ErrDuplicate) {
			s.logger.Debug("verification code collision, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, appErrors.Internal(err, "failed to issue verification code")
		}
		recordAudit(ctx, s.audit, s.logger, principal, models.AuditActionCodeIssued, "verification_codes", code.ID, nil)
		return code, nil
	}
	return nil, appErrors.Internal(errors.New("exhausted code generation attempts"), "failed to issue verification code")
}

// Current returns the director's active code.
func (s *VerificationService) Current(ctx context.Context, principal *models.Principal) (*models.VerificationCode, error) {
	directorID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	code, err := s.repo.FindActiveByDirector(ctx, directorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active verification code")
		}
		return nil, appErrors.Internal(err, "failed to load verification code")
	}
	return code, nil
}

// Validate resolves a presented code to its director. Validation does not consume the code.
func (s *VerificationService) Validate(ctx context.Context, value string) (string, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return "", appErrors.ErrInvalidOrExpiredCode
	}
	code, err := s.repo.FindActiveByCode(ctx, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.ErrInvalidOrExpiredCode
		}
		return "", appErrors.Internal(err, "failed to validate verification code")
	}
	return code.DirectorID, nil
}

func generateCode(length int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
