package models

import (
	"strings"
	"time"

	dErrors "clientpulse/pkg/domain-errors"
)

// dateLayouts are tried in order. Slash dates are day first.
var dateLayouts = []string{
	time.RFC3339,
	time.DateOnly,
	"02/01/2006",
	"2/1/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006/01/02",
}

// ParseDate reads the date formats seen in upstream feeds. Results are UTC.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "unrecognised date %q", s)
}
