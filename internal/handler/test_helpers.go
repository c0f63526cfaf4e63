package handler

import "time"

// Fixed timestamp for test data
func testTime() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}
