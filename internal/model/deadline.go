package model

import (
	"fmt"
	"time"
)

// UrgencyWindow is how far ahead a deadline counts as urgent.
const UrgencyWindow = 24 * time.Hour

// DeadlineKind classifies a calendar event by the activity that produced it.
type DeadlineKind string

const (
	DeadlineAssignment DeadlineKind = "assignment"
	DeadlineQuiz       DeadlineKind = "quiz"
	DeadlineForum      DeadlineKind = "forum"
	DeadlineOther      DeadlineKind = "other"
)

// ParseDeadlineKind maps a Moodle module name to a DeadlineKind.
// Matching is exact; anything unrecognised is DeadlineOther.
func ParseDeadlineKind(moduleName string) DeadlineKind {
	switch moduleName {
	case "assign":
		return DeadlineAssignment
	case "quiz":
		return DeadlineQuiz
	case "forum":
		return DeadlineForum
	default:
		return DeadlineOther
	}
}

// Label is the display name shown next to the deadline.
func (k DeadlineKind) Label() string {
	switch k {
	case DeadlineAssignment:
		return "Задание"
	case DeadlineQuiz:
		return "Тест"
	case DeadlineForum:
		return "Форум"
	default:
		return "Событие"
	}
}

// Icon is the icon name the UI uses for the kind.
func (k DeadlineKind) Icon() string {
	switch k {
	case DeadlineAssignment:
		return "assignment"
	case DeadlineQuiz:
		return "quiz"
	case DeadlineForum:
		return "forum"
	default:
		return "event"
	}
}

// Deadline is an upcoming calendar event with a due time.
//
// IsUrgent is computed when the deadline is built. Anything that renders
// later should call UrgentAt with the current time instead of trusting it.
type Deadline struct {
	ID         int64        `json:"id"`
	Title      string       `json:"title"`
	CourseName string       `json:"courseName"`
	CourseID   *int64       `json:"courseId,omitempty"`
	DueAt      time.Time    `json:"dueAt"`
	Kind       DeadlineKind `json:"kind"`
	URL        *string      `json:"url,omitempty"`
	IsUrgent   bool         `json:"isUrgent"`
}

// UrgentAt reports whether the deadline is due within UrgencyWindow of now
// and not already past.
func (d Deadline) UrgentAt(now time.Time) bool {
	until := d.DueAt.Sub(now)
	return until >= 0 && until <= UrgencyWindow
}

// IsTodayAt reports whether the deadline falls on the same calendar day as now,
// in now's location.
func (d Deadline) IsTodayAt(now time.Time) bool {
	return sameDay(d.DueAt.In(now.Location()), now)
}

// TimeRemainingAt renders the countdown until the deadline.
func (d Deadline) TimeRemainingAt(now time.Time) string {
	minutes := int64(d.DueAt.Sub(now) / time.Minute)
	switch {
	case minutes < 0:
		return "Просрочено"
	case minutes < 60:
		return fmt.Sprintf("%d мин", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%d ч", minutes/60)
	default:
		return fmt.Sprintf("%d дн", minutes/(24*60))
	}
}

// FormattedTime returns the due time as HH:MM.
func (d Deadline) FormattedTime() string {
	return d.DueAt.Format("15:04")
}

// FormattedDate returns the due date as e.g. "7 Mar".
func (d Deadline) FormattedDate() string {
	return d.DueAt.Format("2 Jan")
}

// UrgentAlert is the banner shown for a deadline that is about to close.
// Build it with NewUrgentAlert; it is always a projection of a Deadline.
type UrgentAlert struct {
	ID         int64        `json:"id"`
	Title      string       `json:"title"`
	Subtitle   string       `json:"subtitle"`
	CourseName string       `json:"courseName"`
	ModuleInfo string       `json:"moduleInfo"`
	DueAt      time.Time    `json:"dueAt"`
	URL        *string      `json:"url,omitempty"`
	Kind       DeadlineKind `json:"kind"`
}

func NewUrgentAlert(d Deadline) UrgentAlert {
	return UrgentAlert{
		ID:         d.ID,
		Title:      d.Title,
		Subtitle:   d.CourseName,
		CourseName: d.CourseName,
		ModuleInfo: d.Kind.Label(),
		DueAt:      d.DueAt,
		URL:        d.URL,
		Kind:       d.Kind,
	}
}

// TimeRemainingAt renders the short countdown used in the alert banner.
func (a UrgentAlert) TimeRemainingAt(now time.Time) string {
	minutes := int64(a.DueAt.Sub(now) / time.Minute)
	switch {
	case minutes < 0:
		return "Просрочено"
	case minutes < 60:
		return fmt.Sprintf("%d мин", minutes)
	default:
		return fmt.Sprintf("%d ч", minutes/60)
	}
}

// ClosingTime returns the time the activity closes as HH:MM.
func (a UrgentAlert) ClosingTime() string {
	return a.DueAt.Format("15:04")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
