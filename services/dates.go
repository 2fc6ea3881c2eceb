package services

import (
	"time"

	"github.com/defect-tracker/models"
	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

// parseDate reads an optional yyyy-mm-dd value; empty input yields nil
func parseDate(field, value string) (*datatypes.Date, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, Invalid(field, "must be a date in yyyy-mm-dd format")
	}
	d := datatypes.Date(t)
	return &d, nil
}

// today is the caller's local calendar date stored the way parseDate stores dates
func today(now time.Time) datatypes.Date {
	return datatypes.Date(models.CalendarDate(now))
}
