package authx

import "time"

// RecordFilter provides options for filtering record-history queries.
type RecordFilter struct {
	// Filter by creation time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewRecordFilter creates a RecordFilter with the default page size.
func NewRecordFilter() RecordFilter {
	return RecordFilter{
		Limit: 100,
	}
}

// WithSince sets the lower bound of the creation time range.
func (f RecordFilter) WithSince(t time.Time) RecordFilter {
	f.Since = t
	return f
}

// WithUntil sets the upper bound of the creation time range.
func (f RecordFilter) WithUntil(t time.Time) RecordFilter {
	f.Until = t
	return f
}

// WithLimit sets the maximum number of records returned.
func (f RecordFilter) WithLimit(limit int) RecordFilter {
	f.Limit = limit
	return f
}

// WithOffset sets the pagination offset.
func (f RecordFilter) WithOffset(offset int) RecordFilter {
	f.Offset = offset
	return f
}
