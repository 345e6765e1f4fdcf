package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/internal/repository"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

const (
	billedStudent  = "3e9d6c1a-8b2f-4a7e-9c0d-1f2e3a4b5c6d"
	foreignStudent = "6a5b4c3d-2e1f-4a0b-9c8d-7e6f5a4b3c2d"
)

type stubRateRepo struct {
	rates []models.TuitionRate
}

func (s *stubRateRepo) Create(ctx context.Context, rate *models.TuitionRate) error {
	for _, r := range s.rates {
		if r.StudentID != rate.StudentID {
			continue
		}
		endsAfterStart := r.EndDate == nil || r.EndDate.After(rate.StartDate)
		startsBeforeEnd := rate.EndDate == nil || r.StartDate.Before(*rate.EndDate)
		if endsAfterStart && startsBeforeEnd {
			return repository.ErrRateOverlap
		}
	}
	rate.ID = fmt.Sprintf("rate-%d", len(s.rates)+1)
	s.rates = append(s.rates, *rate)
	return nil
}

func (s *stubRateRepo) FindByID(ctx context.Context, academyID, id string) (*models.TuitionRate, error) {
	for _, r := range s.rates {
		if r.ID == id && r.AcademyID == academyID {
			copied := r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubRateRepo) SetEndDate(ctx context.Context, academyID, id string, end time.Time) error {
	for i := range s.rates {
		if s.rates[i].ID == id && s.rates[i].AcademyID == academyID {
			s.rates[i].EndDate = &end
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubRateRepo) ListByStudent(ctx context.Context, academyID, studentID string) ([]models.TuitionRate, error) {
	out := []models.TuitionRate{}
	for _, r := range s.rates {
		if r.AcademyID == academyID && r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRateRepo) Effective(ctx context.Context, studentID string, day time.Time) (*models.TuitionRate, error) {
	for _, r := range s.rates {
		if r.StudentID == studentID && r.Covers(day) {
			copied := r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubPaymentRepo struct {
	records      map[string]*models.TuitionPayment
	summaryCalls int
}

func paymentKey(studentID string, year, month int) string {
	return fmt.Sprintf("%s-%04d-%02d", studentID, year, month)
}

func (s *stubPaymentRepo) Find(ctx context.Context, studentID string, year, month int) (*models.TuitionPayment, error) {
	p, ok := s.records[paymentKey(studentID, year, month)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *p
	copied.Normalize()
	return &copied, nil
}

func (s *stubPaymentRepo) mutate(m repository.PaymentMutation, apply func(*models.TuitionPayment) error) (*models.TuitionPayment, error) {
	key := paymentKey(m.StudentID, m.Year, m.Month)
	current, ok := s.records[key]
	if !ok {
		current = &models.TuitionPayment{ID: key, AcademyID: m.AcademyID, StudentID: m.StudentID, Year: m.Year, Month: m.Month, Amount: m.AmountIfAbsent}
	}
	next := *current
	if err := apply(&next); err != nil {
		return nil, err
	}
	next.Normalize()
	s.records[key] = &next
	out := next
	return &out, nil
}

func (s *stubPaymentRepo) ApplyPayment(ctx context.Context, m repository.PaymentMutation, delta int64) (*models.TuitionPayment, error) {
	return s.mutate(m, func(p *models.TuitionPayment) error {
		if p.PaidAmount+delta < 0 {
			return repository.ErrNegativePaid
		}
		p.PaidAmount += delta
		return nil
	})
}

func (s *stubPaymentRepo) SetAmount(ctx context.Context, m repository.PaymentMutation, amount int64) (*models.TuitionPayment, error) {
	m.AmountIfAbsent = amount
	return s.mutate(m, func(p *models.TuitionPayment) error {
		p.Amount = amount
		return nil
	})
}

func (s *stubPaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.LedgerRow, error) {
	rows := []models.LedgerRow{}
	for _, p := range s.records {
		if p.AcademyID != filter.AcademyID || p.Year != filter.Year || p.Month != filter.Month {
			continue
		}
		if filter.Status != "" && models.DerivePaymentStatus(p.Amount, p.PaidAmount) != filter.Status {
			continue
		}
		rows = append(rows, models.LedgerRow{TuitionPayment: *p})
	}
	return rows, nil
}

func (s *stubPaymentRepo) Summary(ctx context.Context, academyID string, year, month int) (*models.BillingSummary, error) {
	s.summaryCalls++
	summary := &models.BillingSummary{Year: year, Month: month}
	for _, p := range s.records {
		if p.AcademyID != academyID || p.Year != year || p.Month != month {
			continue
		}
		summary.Billed += p.Amount
		summary.Collected += p.PaidAmount
		summary.Outstanding += p.Outstanding()
		switch models.DerivePaymentStatus(p.Amount, p.PaidAmount) {
		case models.PaymentStatusPaid:
			summary.PaidCount++
		case models.PaymentStatusPartial:
			summary.PartialCount++
		default:
			summary.UnpaidCount++
		}
	}
	return summary, nil
}

type billingFixture struct {
	rates    *stubRateRepo
	payments *stubPaymentRepo
	audit    *stubAudit
	metrics  *MetricsService
	svc      *BillingService
}

func newBillingFixture(t *testing.T) *billingFixture {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	students := &stubStudentStore{students: []models.StudentDetail{
		{Student: models.Student{ID: billedStudent, AcademyID: "d1"}},
		{Student: models.Student{ID: foreignStudent, AcademyID: "d2"}},
	}}
	metrics := NewMetricsService()
	cache := NewCacheService(repository.NewCacheRepository(client, nil), metrics, time.Minute, nil, true)
	f := &billingFixture{
		rates:    &stubRateRepo{},
		payments: &stubPaymentRepo{records: map[string]*models.TuitionPayment{}},
		audit:    &stubAudit{},
		metrics:  metrics,
	}
	f.svc = NewBillingService(f.rates, f.payments, students, f.audit, cache, metrics, nil, nil)
	f.svc.now = func() time.Time { return time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC) }
	return f
}

func (f *billingFixture) rate(t *testing.T, amount int64, start string, end *string) *models.TuitionRate {
	t.Helper()
	rate, err := f.svc.CreateRate(context.Background(), directorD1, dto.CreateRateRequest{StudentID: billedStudent, Amount: amount, StartDate: start, EndDate: end})
	require.NoError(t, err)
	return rate
}

func pay(delta int64) dto.RecordPaymentRequest {
	return dto.RecordPaymentRequest{StudentID: billedStudent, Year: 2024, Month: 3, Delta: delta}
}

func TestRecordPaymentPartialThenPaid(t *testing.T) {
	f := newBillingFixture(t)
	f.rate(t, 300000, "2024-01-01", nil)
	ctx := context.Background()

	first, err := f.svc.RecordPayment(ctx, directorD1, pay(150000))
	require.NoError(t, err)
	assert.Equal(t, int64(300000), first.Amount)
	assert.Equal(t, models.PaymentStatusPartial, first.Status)

	second, err := f.svc.RecordPayment(ctx, directorD1, pay(150000))
	require.NoError(t, err)
	assert.Equal(t, int64(300000), second.PaidAmount)
	assert.Equal(t, models.PaymentStatusPaid, second.Status)

	assert.Equal(t, uint64(2), f.metrics.Snapshot().PaymentsRecorded)
	require.NotEmpty(t, f.audit.logs)
	assert.Equal(t, models.AuditActionPaymentRecorded, f.audit.logs[len(f.audit.logs)-1].Action)
}

func TestRecordPaymentRejectsNegativeResult(t *testing.T) {
	f := newBillingFixture(t)
	f.rate(t, 300000, "2024-01-01", nil)
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, directorD1, pay(30000))
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, directorD1, pay(-50000))
	assert.ErrorIs(t, err, appErrors.ErrInvalidAmount)

	stored, err := f.payments.Find(ctx, billedStudent, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), stored.PaidAmount)
	assert.Equal(t, models.PaymentStatusPartial, stored.Status)

	refund, err := f.svc.RecordPayment(ctx, directorD1, pay(-30000))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, refund.Status)
}

func TestRecordPaymentRejectsZeroDelta(t *testing.T) {
	f := newBillingFixture(t)
	f.rate(t, 300000, "2024-01-01", nil)

	_, err := f.svc.RecordPayment(context.Background(), directorD1, pay(0))
	assert.ErrorIs(t, err, appErrors.ErrInvalidAmount)
	assert.Empty(t, f.payments.records)
}

func TestRecordPaymentWithoutRate(t *testing.T) {
	f := newBillingFixture(t)

	_, err := f.svc.RecordPayment(context.Background(), directorD1, pay(10000))
	assert.ErrorIs(t, err, appErrors.ErrNoActiveRate)
	assert.Empty(t, f.payments.records)
}

func TestPeriodAmountUsesRateOnFirstOfMonth(t *testing.T) {
	f := newBillingFixture(t)
	end := "2024-03-15"
	f.rate(t, 200000, "2024-01-01", &end)
	f.rate(t, 250000, "2024-03-15", nil)
	ctx := context.Background()

	march, err := f.svc.RecordPayment(ctx, directorD1, pay(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(200000), march.Amount)

	april := pay(1000)
	april.Month = 4
	payment, err := f.svc.RecordPayment(ctx, directorD1, april)
	require.NoError(t, err)
	assert.Equal(t, int64(250000), payment.Amount)
}

func TestBillingIsDirectorOnly(t *testing.T) {
	f := newBillingFixture(t)
	teacher := &models.Principal{UserID: "t1", Role: models.RoleTeacher, AcademyID: "d1"}
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, teacher, pay(1000))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = f.svc.CreateRate(ctx, teacher, dto.CreateRateRequest{StudentID: billedStudent, Amount: 1, StartDate: "2024-01-01"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, _, err = f.svc.MonthlySummary(ctx, teacher, 2024, 3)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = f.svc.ListPayments(ctx, adminUser, dto.PaymentQuery{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestCreateRateValidation(t *testing.T) {
	f := newBillingFixture(t)
	f.rate(t, 300000, "2024-01-01", nil)
	ctx := context.Background()

	_, err := f.svc.CreateRate(ctx, directorD1, dto.CreateRateRequest{StudentID: billedStudent, Amount: 100, StartDate: "2024-06-01"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	early := "2023-06-01"
	_, err = f.svc.CreateRate(ctx, directorD1, dto.CreateRateRequest{StudentID: billedStudent, Amount: 100, StartDate: "2023-07-01", EndDate: &early})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.CreateRate(ctx, directorD1, dto.CreateRateRequest{StudentID: billedStudent, Amount: 0, StartDate: "2023-01-01"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.CreateRate(ctx, directorD1, dto.CreateRateRequest{StudentID: foreignStudent, Amount: 100, StartDate: "2023-01-01"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestEndRateOnlyShortens(t *testing.T) {
	f := newBillingFixture(t)
	rate := f.rate(t, 300000, "2024-01-01", nil)
	ctx := context.Background()

	ended, err := f.svc.EndRate(ctx, directorD1, rate.ID, dto.EndRateRequest{EndDate: "2024-06-01"})
	require.NoError(t, err)
	require.NotNil(t, ended.EndDate)

	_, err = f.svc.EndRate(ctx, directorD1, rate.ID, dto.EndRateRequest{EndDate: "2024-09-01"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.EndRate(ctx, directorD1, rate.ID, dto.EndRateRequest{EndDate: "2023-12-01"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	next := f.rate(t, 320000, "2024-06-01", nil)
	effective, err := f.svc.GetEffectiveRate(ctx, directorD1, billedStudent, "2024-07-01")
	require.NoError(t, err)
	assert.Equal(t, next.ID, effective.ID)

	_, err = f.svc.GetEffectiveRate(ctx, directorD1, billedStudent, "2023-07-01")
	assert.ErrorIs(t, err, appErrors.ErrNoActiveRate)
}

func TestAdjustAmountRederivesStatus(t *testing.T) {
	f := newBillingFixture(t)
	f.rate(t, 300000, "2024-01-01", nil)
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, directorD1, pay(150000))
	require.NoError(t, err)

	adjusted, err := f.svc.AdjustAmount(ctx, directorD1, dto.AdjustAmountRequest{StudentID: billedStudent, Year: 2024, Month: 3, Amount: 150000})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, adjusted.Status)

	rows, err := f.svc.ListPayments(ctx, directorD1, dto.PaymentQuery{Status: "PAID"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(150000), rows[0].Amount)

	_, err = f.svc.ListPayments(ctx, directorD1, dto.PaymentQuery{Status: "late"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestMonthlySummaryCachedUntilMutation(t *testing.T) {
	f := newBillingFixture(t)
	f.rate(t, 300000, "2024-01-01", nil)
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, directorD1, pay(100000))
	require.NoError(t, err)

	first, hit, err := f.svc.MonthlySummary(ctx, directorD1, 2024, 3)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(100000), first.Collected)
	assert.Equal(t, 1, first.PartialCount)

	cached, hit, err := f.svc.MonthlySummary(ctx, directorD1, 0, 0)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, *first, *cached)
	assert.Equal(t, 1, f.payments.summaryCalls)

	_, err = f.svc.RecordPayment(ctx, directorD1, pay(200000))
	require.NoError(t, err)

	refreshed, hit, err := f.svc.MonthlySummary(ctx, directorD1, 2024, 3)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, f.payments.summaryCalls)
	assert.Equal(t, 1, refreshed.PaidCount)
	assert.Equal(t, int64(0), refreshed.Outstanding)
}
