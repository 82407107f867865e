// Package schedule provides the weekly class timetable.
//
// The e-learning platform has no timetable API, so lessons come from a Source:
// either the built-in sample timetable or an iCalendar feed exported by the
// university's scheduling system.
package schedule

import (
	"context"
	"time"

	"github.com/sakif/eljunior/internal/model"
)

// Source returns the recurring weekly lessons.
type Source interface {
	Lessons(ctx context.Context) ([]model.ScheduleItem, error)
}

// IsEvenWeek reports whether date falls in an even ISO-8601 week.
func IsEvenWeek(date time.Time) bool {
	_, week := date.ISOWeek()
	return week%2 == 0
}

// WeekStart returns midnight of the Monday of date's week.
func WeekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	y, m, d := date.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location())
}
