package dto

// CreateRateRequest defines a tuition rate over [start_date, end_date).
type CreateRateRequest struct {
	StudentID string  `json:"student_id" validate:"required,uuid"`
	Amount    int64   `json:"amount" validate:"required,gt=0"`
	StartDate string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// EndRateRequest closes an open rate.
type EndRateRequest struct {
	EndDate string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// RecordPaymentRequest adds a signed delta to a period's paid amount.
type RecordPaymentRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	Year      int    `json:"year" validate:"required,min=2000,max=2100"`
	Month     int    `json:"month" validate:"required,min=1,max=12"`
	Delta     int64  `json:"delta"`
}

// AdjustAmountRequest overrides the amount due for a period.
type AdjustAmountRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	Year      int    `json:"year" validate:"required,min=2000,max=2100"`
	Month     int    `json:"month" validate:"required,min=1,max=12"`
	Amount    int64  `json:"amount" validate:"min=0"`
}

// PaymentQuery captures ledger query parameters.
type PaymentQuery struct {
	Year      int    `form:"year"`
	Month     int    `form:"month"`
	StudentID string `form:"student_id"`
	Status    string `form:"status"`
}

// ExportRequest captures POST /billing/exports payload.
type ExportRequest struct {
	Year   int    `json:"year" validate:"required,min=2000,max=2100"`
	Month  int    `json:"month" validate:"required,min=1,max=12"`
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	ResultURL *string `json:"result_url,omitempty"`
	Error     *string `json:"error,omitempty"`
}
