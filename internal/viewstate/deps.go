package viewstate

import (
	"context"
	"time"

	"github.com/sakif/eljunior/internal/model"
)

// Authenticator is implemented by service.AuthService.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Logout(ctx context.Context)
	RefreshProfile(ctx context.Context) (*model.Session, error)
	CurrentSession(ctx context.Context) (*model.Session, error)
}

// Aggregator is implemented by service.AggregationService.
type Aggregator interface {
	ListCourses(ctx context.Context) ([]model.Course, error)
	ListUpcomingDeadlines(ctx context.Context, limit int) ([]model.Deadline, error)
	GetUserProfile(ctx context.Context) (*model.UserProfile, error)
}

// Timetable is implemented by service.ScheduleService.
type Timetable interface {
	Day(ctx context.Context, date time.Time) (model.DaySchedule, error)
	Week(ctx context.Context, date time.Time) ([]model.DaySchedule, error)
}

// SessionObserver is implemented by session.Store.
type SessionObserver interface {
	Subscribe(ctx context.Context, fn func(*model.Session)) (func(), error)
}
