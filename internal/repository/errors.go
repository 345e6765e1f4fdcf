package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrRateOverlap is returned when a tuition rate would overlap another rate of the same student.
	ErrRateOverlap = errors.New("tuition rate overlaps an existing rate")
	// ErrNegativePaid is returned when a payment delta would drive paid_amount below zero.
	ErrNegativePaid = errors.New("paid amount would become negative")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
