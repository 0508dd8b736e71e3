package db

import "strings"

// IsUniqueViolation reports whether the error is a unique violation that
// references one of the provided markers. Postgres names the index in its
// message ("duplicate key value violates unique constraint \"ux_...\"");
// sqlite names the columns instead ("UNIQUE constraint failed:
// reviews.order_id"), so callers pass both the index name and the
// table.column form. With no markers, any unique violation matches.
func IsUniqueViolation(err error, markers ...string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") &&
		!strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if len(markers) == 0 {
		return true
	}
	for _, marker := range markers {
		if marker != "" && strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
