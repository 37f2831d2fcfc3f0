package commitment

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var enrollmentLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseEnrollmentDate converts a date form value into whole Unix seconds.
// Date-only and zone-less values are read as UTC; sub-second parts are
// truncated. A bare decimal string is taken as Unix seconds.
func ParseEnrollmentDate(value string) (uint64, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, fmt.Errorf("%w: enrollment date is required", ErrInvalidInput)
	}
	if isDecimal(v) {
		secs, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: enrollment date %q out of range", ErrInvalidInput, v)
		}
		return secs, nil
	}
	for _, layout := range enrollmentLayouts {
		t, err := time.Parse(layout, v)
		if err != nil {
			continue
		}
		secs := t.Unix()
		if secs < 0 {
			return 0, fmt.Errorf("%w: enrollment date %q is before 1970-01-01", ErrInvalidInput, v)
		}
		return uint64(secs), nil
	}
	return 0, fmt.Errorf("%w: enrollment date %q is not a date", ErrInvalidInput, v)
}

func EnrollmentTime(epoch uint64) time.Time {
	return time.Unix(int64(epoch), 0).UTC()
}

func isDecimal(v string) bool {
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
