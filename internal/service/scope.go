package service

import (
	"time"

	"github.com/noah-isme/academy-api/internal/models"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

// academyOf returns the tenant a director or teacher acts within.
func academyOf(principal *models.Principal) (string, error) {
	if principal == nil {
		return "", appErrors.ErrUnauthenticated
	}
	if principal.IsAdmin() || principal.AcademyID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "academy scope required")
	}
	return principal.AcademyID, nil
}

// directorAcademy returns the academy of a director principal or Forbidden.
func directorAcademy(principal *models.Principal) (string, error) {
	if principal == nil {
		return "", appErrors.ErrUnauthenticated
	}
	if !principal.IsDirector() || principal.AcademyID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "director role required")
	}
	return principal.AcademyID, nil
}

const dateLayout = "2006-01-02"

// parseDate parses a YYYY-MM-DD value as midnight UTC.
func parseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, field+" must be YYYY-MM-DD")
	}
	return t, nil
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
