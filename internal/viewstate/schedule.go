package viewstate

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/schedule"
)

// ScheduleData backs the timetable: the week around SelectedDate and the
// lessons of SelectedDate itself.
type ScheduleData struct {
	SelectedDate time.Time
	WeekDays     []model.DaySchedule
	IsEvenWeek   bool
	Items        []model.ScheduleItem
}

// ScheduleController moves through the timetable a date or a week at a time.
type ScheduleController struct {
	*lifetime
	state     *State[ScheduleData]
	timetable Timetable
}

// NewScheduleController starts on today's date. A nil clock means time.Now.
func NewScheduleController(parent context.Context, timetable Timetable, clock func() time.Time, logger *slog.Logger) *ScheduleController {
	if clock == nil {
		clock = time.Now
	}
	today := clock()
	return &ScheduleController{
		lifetime:  newLifetime(parent, logger),
		state:     NewState(ScheduleData{SelectedDate: today, IsEvenWeek: schedule.IsEvenWeek(today)}),
		timetable: timetable,
	}
}

// State is the timetable snapshot.
func (c *ScheduleController) State() *State[ScheduleData] { return c.state }

// SelectDate loads the week containing date and the lessons of date itself.
func (c *ScheduleController) SelectDate(date time.Time) {
	gen := c.state.begin()
	c.state.Update(func(s *Snapshot[ScheduleData]) {
		s.Data.SelectedDate = date
		s.Data.IsEvenWeek = schedule.IsEvenWeek(date)
	})

	c.launch(func(ctx context.Context) {
		week, err := c.timetable.Week(ctx, date)
		c.state.finish(gen, func(s *Snapshot[ScheduleData]) {
			if err != nil {
				s.Err = err
				return
			}
			s.Data.WeekDays = week
			s.Data.Items = nil
			for _, d := range week {
				if sameDate(d.Date, date) {
					s.Data.Items = d.Items
				}
			}
		})
	})
}

// NextWeek selects the same weekday a week later.
func (c *ScheduleController) NextWeek() {
	c.SelectDate(c.state.Snapshot().Data.SelectedDate.AddDate(0, 0, 7))
}

// PreviousWeek selects the same weekday a week earlier.
func (c *ScheduleController) PreviousWeek() {
	c.SelectDate(c.state.Snapshot().Data.SelectedDate.AddDate(0, 0, -7))
}

func sameDate(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
