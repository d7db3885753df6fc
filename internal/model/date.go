package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const DateLayout = "2006-01-02"

// DateOf truncates t to midnight UTC of its calendar day
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func NewDate(t time.Time) *datatypes.Date {
	d := datatypes.Date(DateOf(t))
	return &d
}

// TimeOf converts a nullable date column to a nullable time at midnight UTC
func TimeOf(d *datatypes.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := DateOf(time.Time(*d))
	return &t
}

// ParseDate accepts YYYY-MM-DD, an empty string yields nil
func ParseDate(s string) (*datatypes.Date, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return NewDate(t), nil
}

// FormatDate renders a nullable date as YYYY-MM-DD, nil becomes an empty string
func FormatDate(d *datatypes.Date) string {
	if d == nil {
		return ""
	}
	return DateOf(time.Time(*d)).Format(DateLayout)
}
