// Package filter implements the in-memory result filter shared by every
// dashboard screen: criteria matching, sorting and fixed-size pagination
// over an already-fetched record collection. It is a pure function over its
// inputs; the source slice is never reordered or mutated.
package filter

import (
	"sort"
	"strings"
	"time"
)

// All disables a categorical clause or the time window.
const All = "all"

// Predefined relative time windows, in days.
const (
	WindowDay     = 1
	WindowWeek    = 7
	WindowMonth   = 30
	WindowQuarter = 90
	WindowYear    = 365
)

// Sortable fields.
const (
	FieldTime     = "timestamp"
	FieldScore    = "score"
	FieldTitle    = "title"
	FieldSeverity = "severity"
)

// Criteria is one screen's active filter state. Zero values and All both
// disable a clause; active clauses combine with logical AND.
type Criteria struct {
	Category string
	Severity string
	Tag      string
	Search   string
	Window   TimeWindow
}

// TimeWindow restricts records to a time range. The zero value matches
// everything. Records without a parsable timestamp fail any non-zero window.
type TimeWindow struct {
	Days  int
	Start time.Time
	End   time.Time
}

// LastDays returns a relative window covering the past n days.
func LastDays(n int) TimeWindow {
	return TimeWindow{Days: n}
}

// Between returns an explicit [start, end] window.
func Between(start, end time.Time) TimeWindow {
	return TimeWindow{Start: start, End: end}
}

func (w TimeWindow) active() bool {
	return w.Days > 0 || !w.Start.IsZero() || !w.End.IsZero()
}

func (w TimeWindow) contains(t time.Time, now time.Time) bool {
	if w.Days > 0 {
		if t.Before(now.AddDate(0, 0, -w.Days)) {
			return false
		}
	}
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Sort names the field and direction applied before pagination.
type Sort struct {
	Field     string
	Ascending bool
}

// View adapts a record type to the filter. Nil accessors mark the field as
// absent for that screen: an active exact-match clause on an absent field
// matches nothing, and search only spans the text accessors that exist.
type View[T any] struct {
	Title    func(T) string
	URL      func(T) string
	Summary  func(T) string
	Category func(T) string
	Severity func(T) string
	Tag      func(T) string
	Score    func(T) float64
	// Time reports the record timestamp; ok is false when the field is
	// missing or unparsable.
	Time func(T) (time.Time, bool)
}

// Apply filters records by c, orders them by s (timestamp descending when s
// is zero) and returns the 1-indexed page of size pageSize together with the
// total number of matches. A page beyond the last yields an empty slice,
// never an error.
func Apply[T any](records []T, view View[T], c Criteria, s Sort, page, pageSize int) ([]T, int) {
	now := time.Now().UTC()

	matched := make([]T, 0, len(records))
	for _, r := range records {
		if matches(r, view, c, now) {
			matched = append(matched, r)
		}
	}

	sortRecords(matched, view, s)

	total := len(matched)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return []T{}, total
	}

	start := (page - 1) * pageSize
	if start >= total {
		return []T{}, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total
}

func matches[T any](r T, view View[T], c Criteria, now time.Time) bool {
	if !matchExact(c.Category, view.Category, r) {
		return false
	}
	if !matchExact(c.Severity, view.Severity, r) {
		return false
	}
	if !matchExact(c.Tag, view.Tag, r) {
		return false
	}
	if !matchSearch(c.Search, view, r) {
		return false
	}
	if c.Window.active() {
		if view.Time == nil {
			return false
		}
		t, ok := view.Time(r)
		if !ok {
			// Policy: records without a usable timestamp never satisfy
			// an active time window.
			return false
		}
		if !c.Window.contains(t, now) {
			return false
		}
	}
	return true
}

func matchExact[T any](want string, get func(T) string, r T) bool {
	if want == "" || strings.EqualFold(want, All) {
		return true
	}
	if get == nil {
		return false
	}
	return strings.EqualFold(get(r), want)
}

func matchSearch[T any](query string, view View[T], r T) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, get := range []func(T) string{view.Title, view.URL, view.Summary} {
		if get == nil {
			continue
		}
		if strings.Contains(strings.ToLower(get(r)), q) {
			return true
		}
	}
	return false
}

func sortRecords[T any](records []T, view View[T], s Sort) {
	field := s.Field
	if field == "" {
		field = FieldTime
	}

	var less func(a, b T) bool
	switch field {
	case FieldScore:
		if view.Score == nil {
			return
		}
		less = func(a, b T) bool { return view.Score(a) < view.Score(b) }
	case FieldTitle:
		if view.Title == nil {
			return
		}
		less = func(a, b T) bool {
			return strings.ToLower(view.Title(a)) < strings.ToLower(view.Title(b))
		}
	case FieldSeverity:
		if view.Severity == nil {
			return
		}
		less = func(a, b T) bool {
			return severityRank(view.Severity(a)) < severityRank(view.Severity(b))
		}
	default: // FieldTime
		if view.Time == nil {
			return
		}
		// Records without a timestamp sort last in either direction.
		sort.SliceStable(records, func(i, j int) bool {
			ti, iok := view.Time(records[i])
			tj, jok := view.Time(records[j])
			if iok != jok {
				return iok
			}
			if !iok {
				return false
			}
			if s.Ascending {
				return ti.Before(tj)
			}
			return ti.After(tj)
		})
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		if s.Ascending {
			return less(records[i], records[j])
		}
		return less(records[j], records[i])
	})
}

func severityRank(s string) int {
	switch strings.ToLower(s) {
	case "critical":
		return 4
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	}
	return 0
}

// ParseTime parses the timestamp formats the backend emits: RFC 3339 with
// or without sub-second precision, and a bare date. ok is false for empty
// or malformed input.
func ParseTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
