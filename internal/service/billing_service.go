package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/internal/repository"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

type tuitionRateRepository interface {
	Create(ctx context.Context, rate *models.TuitionRate) error
	FindByID(ctx context.Context, academyID, id string) (*models.TuitionRate, error)
	SetEndDate(ctx context.Context, academyID, id string, end time.Time) error
	ListByStudent(ctx context.Context, academyID, studentID string) ([]models.TuitionRate, error)
	Effective(ctx context.Context, studentID string, day time.Time) (*models.TuitionRate, error)
}

type tuitionPaymentRepository interface {
	Find(ctx context.Context, studentID string, year, month int) (*models.TuitionPayment, error)
	ApplyPayment(ctx context.Context, m repository.PaymentMutation, delta int64) (*models.TuitionPayment, error)
	SetAmount(ctx context.Context, m repository.PaymentMutation, amount int64) (*models.TuitionPayment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.LedgerRow, error)
	Summary(ctx context.Context, academyID string, year, month int) (*models.BillingSummary, error)
}

// BillingService tracks tuition rates and the per-month payment state of each student.
// Every operation is director-only.
type BillingService struct {
	rates     tuitionRateRepository
	payments  tuitionPaymentRepository
	students  studentFinder
	audit     auditRecorder
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBillingService constructs the billing service. cache and metrics may be nil.
func NewBillingService(rates tuitionRateRepository, payments tuitionPaymentRepository, students studentFinder, audit auditRecorder, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BillingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{
		rates:     rates,
		payments:  payments,
		students:  students,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateRate adds a rate effective over [start_date, end_date). Any overlap
// with another rate of the same student is a Conflict.
func (s *BillingService) CreateRate(ctx context.Context, principal *models.Principal, req dto.CreateRateRequest) (*models.TuitionRate, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid rate payload")
	}
	if req.Amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "rate amount must be positive")
	}
	if err := s.ensureStudent(ctx, academyID, req.StudentID); err != nil {
		return nil, err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	rate := &models.TuitionRate{AcademyID: academyID, StudentID: req.StudentID, Amount: req.Amount, StartDate: start}
	if req.EndDate != nil && *req.EndDate != "" {
		end, err := parseDate("end_date", *req.EndDate)
		if err != nil {
			return nil, err
		}
		if !end.After(start) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
		}
		rate.EndDate = &end
	}

	if err := s.rates.Create(ctx, rate); err != nil {
		switch {
		case errors.Is(err, repository.ErrRateOverlap):
			return nil, appErrors.Clone(appErrors.ErrConflict, "rate overlaps an existing rate for this student")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to create rate")
	}
	recordAudit(ctx, s.audit, s.logger, principal, models.AuditActionBillingChange, "tuition_rates", rate.ID, rate)
	return rate, nil
}

// EndRate closes a rate at end_date. A rate can only be shortened.
func (s *BillingService) EndRate(ctx context.Context, principal *models.Principal, id string, req dto.EndRateRequest) (*models.TuitionRate, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid end date payload")
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	rate, err := s.rates.FindByID(ctx, academyID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rate not found")
		}
		return nil, appErrors.Internal(err, "failed to load rate")
	}
	if !end.After(rate.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
	}
	if rate.EndDate != nil && end.After(*rate.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date cannot extend a closed rate")
	}
	if err := s.rates.SetEndDate(ctx, academyID, id, end); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rate not found")
		}
		return nil, appErrors.Internal(err, "failed to end rate")
	}
	rate.EndDate = &end
	recordAudit(ctx, s.audit, s.logger, principal, models.AuditActionBillingChange, "tuition_rates", rate.ID, map[string]interface{}{"end_date": req.EndDate})
	return rate, nil
}

// ListRates returns the rate history of a student.
func (s *BillingService) ListRates(ctx context.Context, principal *models.Principal, studentID string) ([]models.TuitionRate, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	if err := s.ensureStudent(ctx, academyID, studentID); err != nil {
		return nil, err
	}
	rates, err := s.rates.ListByStudent(ctx, academyID, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list rates")
	}
	return rates, nil
}

// GetEffectiveRate returns the rate covering asOf (YYYY-MM-DD, default today).
func (s *BillingService) GetEffectiveRate(ctx context.Context, principal *models.Principal, studentID, asOf string) (*models.TuitionRate, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	if err := s.ensureStudent(ctx, academyID, studentID); err != nil {
		return nil, err
	}
	day := s.today()
	if asOf != "" {
		if day, err = parseDate("as_of", asOf); err != nil {
			return nil, err
		}
	}
	return s.effectiveRate(ctx, studentID, day)
}

// RecordPayment adds delta to the period's paid amount. The period row is
// created on first use with the rate effective on the first day of the month.
// A delta that would leave the paid amount negative is rejected and nothing changes.
func (s *BillingService) RecordPayment(ctx context.Context, principal *models.Principal, req dto.RecordPaymentRequest) (*models.TuitionPayment, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid payment payload")
	}
	if req.Delta == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "payment delta must not be zero")
	}
	if err := s.ensureStudent(ctx, academyID, req.StudentID); err != nil {
		return nil, err
	}
	mutation, err := s.mutation(ctx, academyID, req.StudentID, models.BillingPeriod{Year: req.Year, Month: req.Month}, true)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.ApplyPayment(ctx, mutation, req.Delta)
	if err != nil {
		if errors.Is(err, repository.ErrNegativePaid) {
			return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "paid amount cannot become negative")
		}
		return nil, appErrors.Internal(err, "failed to record payment")
	}
	s.metrics.RecordPayment(payment.Status)
	s.logger.Info("tuition payment recorded",
		zap.String("academy_id", academyID),
		zap.String("student_id", req.StudentID),
		zap.Int("year", req.Year),
		zap.Int("month", req.Month),
		zap.Int64("delta", req.Delta),
		zap.String("status", string(payment.Status)),
	)
	recordAudit(ctx, s.audit, s.logger, principal, models.AuditActionPaymentRecorded, "tuition_payments", payment.ID, map[string]interface{}{
		"delta":       req.Delta,
		"paid_amount": payment.PaidAmount,
		"status":      payment.Status,
	})
	s.invalidateSummary(ctx, academyID)
	return payment, nil
}

// AdjustAmount overrides the amount due for a period, e.g. for a discount.
func (s *BillingService) AdjustAmount(ctx context.Context, principal *models.Principal, req dto.AdjustAmountRequest) (*models.TuitionPayment, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid amount payload")
	}
	if req.Amount < 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "amount must not be negative")
	}
	if err := s.ensureStudent(ctx, academyID, req.StudentID); err != nil {
		return nil, err
	}
	mutation, err := s.mutation(ctx, academyID, req.StudentID, models.BillingPeriod{Year: req.Year, Month: req.Month}, false)
	if err != nil {
		return nil, err
	}
	payment, err := s.payments.SetAmount(ctx, mutation, req.Amount)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to adjust amount")
	}
	recordAudit(ctx, s.audit, s.logger, principal, models.AuditActionBillingChange, "tuition_payments", payment.ID, map[string]interface{}{
		"amount": payment.Amount,
		"status": payment.Status,
	})
	s.invalidateSummary(ctx, academyID)
	return payment, nil
}

// ListPayments returns the month's ledger, defaulting to the current month.
func (s *BillingService) ListPayments(ctx context.Context, principal *models.Principal, query dto.PaymentQuery) ([]models.LedgerRow, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, err
	}
	period, err := s.period(query.Year, query.Month)
	if err != nil {
		return nil, err
	}
	filter := models.PaymentFilter{AcademyID: academyID, Year: period.Year, Month: period.Month, StudentID: query.StudentID}
	if query.Status != "" {
		status := models.PaymentStatus(strings.ToLower(query.Status))
		switch status {
		case models.PaymentStatusPaid, models.PaymentStatusPartial, models.PaymentStatusUnpaid:
			filter.Status = status
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be paid, partial or unpaid")
		}
	}
	rows, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list payments")
	}
	return rows, nil
}

// MonthlySummary aggregates the month's ledger and reports whether it came
// from cache. Results are cached per academy and dropped on every billing
// mutation of that academy.
func (s *BillingService) MonthlySummary(ctx context.Context, principal *models.Principal, year, month int) (*models.BillingSummary, bool, error) {
	academyID, err := directorAcademy(principal)
	if err != nil {
		return nil, false, err
	}
	period, err := s.period(year, month)
	if err != nil {
		return nil, false, err
	}
	key := summaryCacheKey(academyID, period)
	var cached models.BillingSummary
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}
	summary, err := s.payments.Summary(ctx, academyID, period.Year, period.Month)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to summarise payments")
	}
	s.cache.Set(ctx, key, summary, 0)
	return summary, false, nil
}

func (s *BillingService) mutation(ctx context.Context, academyID, studentID string, period models.BillingPeriod, requireRate bool) (repository.PaymentMutation, error) {
	m := repository.PaymentMutation{AcademyID: academyID, StudentID: studentID, Year: period.Year, Month: period.Month}
	if err := s.validator.Struct(period); err != nil {
		return m, validationError(err, "invalid billing period")
	}
	if _, err := s.payments.Find(ctx, studentID, period.Year, period.Month); err == nil {
		return m, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return m, appErrors.Internal(err, "failed to load payment")
	}
	if !requireRate {
		return m, nil
	}
	rate, err := s.effectiveRate(ctx, studentID, period.FirstDay())
	if err != nil {
		return m, err
	}
	m.AmountIfAbsent = rate.Amount
	return m, nil
}

func (s *BillingService) effectiveRate(ctx context.Context, studentID string, day time.Time) (*models.TuitionRate, error) {
	rate, err := s.rates.Effective(ctx, studentID, day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoActiveRate
		}
		return nil, appErrors.Internal(err, "failed to resolve rate")
	}
	return rate, nil
}

func (s *BillingService) ensureStudent(ctx context.Context, academyID, studentID string) error {
	if _, err := s.students.FindByID(ctx, academyID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to load student")
	}
	return nil
}

func (s *BillingService) period(year, month int) (models.BillingPeriod, error) {
	if year == 0 && month == 0 {
		return models.PeriodOf(s.today()), nil
	}
	period := models.BillingPeriod{Year: year, Month: month}
	if err := s.validator.Struct(period); err != nil {
		return period, validationError(err, "invalid billing period")
	}
	return period, nil
}

func (s *BillingService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *BillingService) invalidateSummary(ctx context.Context, academyID string) {
	s.cache.Invalidate(ctx, fmt.Sprintf("billing:summary:%s:*", academyID))
}

func summaryCacheKey(academyID string, period models.BillingPeriod) string {
	return fmt.Sprintf("billing:summary:%s:%04d-%02d", academyID, period.Year, period.Month)
}
