package viewstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/model"
)

const (
	homeDeadlineFetch = 10
	homeDeadlineShown = 5
)

// HomeData backs the dashboard. Sections that failed to load are left empty.
//
// Deadlines holds everything fetched for the screen, earliest first. Urgency
// moves with the clock, so the banner and the list are picked when the screen
// is rendered, with UrgentAlertAt and ShownDeadlines.
type HomeData struct {
	User      *model.Session
	Deadlines []model.Deadline
	Today     *model.DaySchedule
}

// UrgentAlertAt returns the banner for the first deadline urgent at now, or
// nil when none is.
func (d HomeData) UrgentAlertAt(now time.Time) *model.UrgentAlert {
	for _, dl := range d.Deadlines {
		if dl.UrgentAt(now) {
			a := model.NewUrgentAlert(dl)
			return &a
		}
	}
	return nil
}

// ShownDeadlines returns the deadlines listed on the dashboard.
func (d HomeData) ShownDeadlines() []model.Deadline {
	return d.Deadlines[:min(len(d.Deadlines), homeDeadlineShown)]
}

// HomeController loads the dashboard: the student, upcoming deadlines and
// today's lessons.
type HomeController struct {
	*lifetime
	state     *State[HomeData]
	auth      Authenticator
	data      Aggregator
	timetable Timetable
	now       func() time.Time
}

// NewHomeController creates the controller. A nil clock means time.Now.
func NewHomeController(parent context.Context, auth Authenticator, data Aggregator, timetable Timetable, clock func() time.Time, logger *slog.Logger) *HomeController {
	if clock == nil {
		clock = time.Now
	}
	return &HomeController{
		lifetime:  newLifetime(parent, logger),
		state:     NewState(HomeData{}),
		auth:      auth,
		data:      data,
		timetable: timetable,
		now:       clock,
	}
}

// State is the dashboard snapshot.
func (c *HomeController) State() *State[HomeData] { return c.state }

// Refresh reloads the dashboard.
func (c *HomeController) Refresh() { c.Load() }

// Reset empties the dashboard after sign-out. A load still in flight is
// discarded.
func (c *HomeController) Reset() { c.state.reset(HomeData{}) }

// Load fetches the user, deadlines and today's lessons concurrently.
// Only a missing session fails the whole screen.
func (c *HomeController) Load() {
	gen := c.state.begin()
	c.launch(func(ctx context.Context) {
		var (
			wg        sync.WaitGroup
			user      *model.Session
			userErr   error
			deadlines []model.Deadline
			dlErr     error
			today     model.DaySchedule
			todayErr  error
		)

		wg.Add(3)
		go func() {
			defer wg.Done()
			user, userErr = c.auth.CurrentSession(ctx)
		}()
		go func() {
			defer wg.Done()
			deadlines, dlErr = c.data.ListUpcomingDeadlines(ctx, homeDeadlineFetch)
		}()
		go func() {
			defer wg.Done()
			today, todayErr = c.timetable.Day(ctx, c.now())
		}()
		wg.Wait()

		var fatal error
		switch {
		case userErr != nil:
			fatal = userErr
		case user == nil, errors.Is(dlErr, apperror.ErrNotAuthenticated):
			fatal = apperror.NotAuthenticated()
		}

		c.state.finish(gen, func(s *Snapshot[HomeData]) {
			if fatal != nil {
				s.Err = fatal
				s.Data = HomeData{}
				return
			}

			data := HomeData{User: user}
			if dlErr != nil {
				c.logger.Warn("home: deadlines unavailable", slog.String("error", dlErr.Error()))
			} else {
				data.Deadlines = deadlines
			}
			if todayErr != nil {
				c.logger.Warn("home: schedule unavailable", slog.String("error", todayErr.Error()))
			} else {
				data.Today = &today
			}
			s.Data = data
		})
	})
}
