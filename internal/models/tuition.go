package models

import "time"

// PaymentStatus is always derived from a payment record's amounts.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// DerivePaymentStatus maps billed and paid amounts to a status. An amount
// of zero is treated as settled.
func DerivePaymentStatus(amount, paid int64) PaymentStatus {
	switch {
	case paid >= amount:
		return PaymentStatusPaid
	case paid == 0:
		return PaymentStatusUnpaid
	default:
		return PaymentStatusPartial
	}
}

// TuitionRate is a monthly amount effective over a date range. EndDate nil means open-ended.
type TuitionRate struct {
	ID        string     `db:"id" json:"id"`
	AcademyID string     `db:"academy_id" json:"academy_id"`
	StudentID string     `db:"student_id" json:"student_id"`
	Amount    int64      `db:"amount" json:"amount"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Covers reports whether the rate is effective on day: StartDate <= day < EndDate.
func (r TuitionRate) Covers(day time.Time) bool {
	if day.Before(r.StartDate) {
		return false
	}
	return r.EndDate == nil || day.Before(*r.EndDate)
}

// TuitionPayment is the per-student, per-month billing record.
type TuitionPayment struct {
	ID         string        `db:"id" json:"id"`
	AcademyID  string        `db:"academy_id" json:"academy_id"`
	StudentID  string        `db:"student_id" json:"student_id"`
	Year       int           `db:"year" json:"year"`
	Month      int           `db:"month" json:"month"`
	Amount     int64         `db:"amount" json:"amount"`
	PaidAmount int64         `db:"paid_amount" json:"paid_amount"`
	Status     PaymentStatus `db:"status" json:"status"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// Normalize recomputes Status from the amounts, ignoring the stored value.
func (p *TuitionPayment) Normalize() {
	p.Status = DerivePaymentStatus(p.Amount, p.PaidAmount)
}

// Outstanding returns the unpaid remainder, never negative.
func (p TuitionPayment) Outstanding() int64 {
	if p.PaidAmount >= p.Amount {
		return 0
	}
	return p.Amount - p.PaidAmount
}

// BillingPeriod identifies a calendar month.
type BillingPeriod struct {
	Year  int `json:"year" validate:"required,min=2000,max=2100"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

// FirstDay returns midnight UTC on the first day of the period.
func (p BillingPeriod) FirstDay() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodOf returns the billing period containing t.
func PeriodOf(t time.Time) BillingPeriod {
	return BillingPeriod{Year: t.Year(), Month: int(t.Month())}
}

// LedgerRow is a payment record joined with student and class names.
type LedgerRow struct {
	TuitionPayment
	StudentName string  `db:"student_name" json:"student_name"`
	ClassName   *string `db:"class_name" json:"class_name,omitempty"`
}

// PaymentFilter scopes ledger listings to an academy and period.
type PaymentFilter struct {
	AcademyID string
	Year      int
	Month     int
	StudentID string
	Status    PaymentStatus
}

// BillingSummary aggregates a month's ledger for one academy.
type BillingSummary struct {
	Year         int   `db:"year" json:"year"`
	Month        int   `db:"month" json:"month"`
	Billed       int64 `db:"billed" json:"billed"`
	Collected    int64 `db:"collected" json:"collected"`
	Outstanding  int64 `db:"outstanding" json:"outstanding"`
	PaidCount    int   `db:"paid_count" json:"paid_count"`
	PartialCount int   `db:"partial_count" json:"partial_count"`
	UnpaidCount  int   `db:"unpaid_count" json:"unpaid_count"`
}
