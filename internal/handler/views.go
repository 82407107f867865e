package handler

// Views are what the UI renders: the screen data plus the labels derived
// from it. They are built on every request from the current clock, so
// urgency, "today" and countdowns never go stale between refreshes.

import (
	"time"

	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/viewstate"
)

type userView struct {
	*model.Session
	Initials  string `json:"initials"`
	ShortName string `json:"shortName"`
}

func newUserView(s *model.Session) *userView {
	if s == nil {
		return nil
	}
	return &userView{Session: s, Initials: s.Initials(), ShortName: s.ShortName()}
}

type deadlineView struct {
	model.Deadline
	KindLabel     string `json:"kindLabel"`
	KindIcon      string `json:"kindIcon"`
	IsToday       bool   `json:"isToday"`
	TimeRemaining string `json:"timeRemaining"`
	Time          string `json:"time"`
	Date          string `json:"date"`
}

// newDeadlineView renders d at now. IsUrgent is recomputed; the value set
// when the deadline was fetched is ignored.
func newDeadlineView(d model.Deadline, now time.Time) deadlineView {
	d.DueAt = d.DueAt.In(now.Location())
	d.IsUrgent = d.UrgentAt(now)
	return deadlineView{
		Deadline:      d,
		KindLabel:     d.Kind.Label(),
		KindIcon:      d.Kind.Icon(),
		IsToday:       d.IsTodayAt(now),
		TimeRemaining: d.TimeRemainingAt(now),
		Time:          d.FormattedTime(),
		Date:          d.FormattedDate(),
	}
}

func newDeadlineViews(ds []model.Deadline, now time.Time) []deadlineView {
	views := make([]deadlineView, 0, len(ds))
	for _, d := range ds {
		views = append(views, newDeadlineView(d, now))
	}
	return views
}

type alertView struct {
	model.UrgentAlert
	TimeRemaining string `json:"timeRemaining"`
	ClosingTime   string `json:"closingTime"`
}

func newAlertView(a model.UrgentAlert, now time.Time) alertView {
	a.DueAt = a.DueAt.In(now.Location())
	return alertView{
		UrgentAlert:   a,
		TimeRemaining: a.TimeRemainingAt(now),
		ClosingTime:   a.ClosingTime(),
	}
}

type lessonView struct {
	model.ScheduleItem
	KindLabel string `json:"kindLabel"`
	Location  string `json:"location"`
}

type dayView struct {
	model.DaySchedule
	Title string       `json:"title"`
	Items []lessonView `json:"items"`
}

func newLessonViews(items []model.ScheduleItem) []lessonView {
	views := make([]lessonView, 0, len(items))
	for _, it := range items {
		views = append(views, lessonView{ScheduleItem: it, KindLabel: it.Kind.Label(), Location: it.LocationString()})
	}
	return views
}

func newDayView(d model.DaySchedule) dayView {
	return dayView{DaySchedule: d, Title: d.FormattedDate(), Items: newLessonViews(d.Items)}
}

type homeView struct {
	User        *userView      `json:"user"`
	UrgentAlert *alertView     `json:"urgentAlert"`
	Deadlines   []deadlineView `json:"deadlines"`
	Today       *dayView       `json:"today"`
}

// renderHome picks the banner and the listed deadlines at now.
func renderHome(d viewstate.HomeData, now time.Time) homeView {
	v := homeView{
		User:      newUserView(d.User),
		Deadlines: newDeadlineViews(d.ShownDeadlines(), now),
	}
	if a := d.UrgentAlertAt(now); a != nil {
		av := newAlertView(*a, now)
		v.UrgentAlert = &av
	}
	if d.Today != nil {
		day := newDayView(*d.Today)
		v.Today = &day
	}
	return v
}

type profileView struct {
	User  *userView         `json:"user"`
	Email string            `json:"email,omitempty"`
	Stats model.CourseStats `json:"stats"`
}

func renderProfile(d viewstate.ProfileData) profileView {
	return profileView{User: newUserView(d.User), Email: d.Email, Stats: d.Stats}
}

type scheduleView struct {
	SelectedDate time.Time    `json:"selectedDate"`
	Title        string       `json:"title"`
	WeekDays     []dayView    `json:"weekDays"`
	IsEvenWeek   bool         `json:"isEvenWeek"`
	Items        []lessonView `json:"items"`
}

func renderSchedule(d viewstate.ScheduleData) scheduleView {
	selected := model.NewDaySchedule(d.SelectedDate, d.IsEvenWeek, nil)
	v := scheduleView{
		SelectedDate: d.SelectedDate,
		Title:        selected.FormattedDate(),
		WeekDays:     make([]dayView, 0, len(d.WeekDays)),
		IsEvenWeek:   d.IsEvenWeek,
		Items:        newLessonViews(d.Items),
	}
	for _, day := range d.WeekDays {
		v.WeekDays = append(v.WeekDays, newDayView(day))
	}
	return v
}
