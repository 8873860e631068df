package dto

import "time"

// FileFilters describe user-provided filters to narrow the file list.
type FileFilters struct {
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Limit         int
	Offset        int
}
