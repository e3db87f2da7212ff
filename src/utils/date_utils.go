package utils

import (
	"fmt"
	"time"
)

const QueryDateFormat = "2006-01-02"

// ParseQueryDate parses the optional date of a pricing request. An empty
// value means "today".
func ParseQueryDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(QueryDateFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected %s", dateStr, QueryDateFormat)
	}
	return t, nil
}
