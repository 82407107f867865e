package service

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/moodle"
)

const (
	DeadlineWindow       = 30 * 24 * time.Hour
	DefaultDeadlineLimit = 10
	alertCandidates      = 20
	maxUrgentAlerts      = 3
)

// CourseReader is the read side of the Moodle client.
type CourseReader interface {
	GetUserCourses(ctx context.Context, token string, userID int64) ([]moodle.RawCourse, error)
	GetCalendarEvents(ctx context.Context, token string, from, to time.Time, limit int) (*moodle.CalendarEvents, error)
	GetCourseContents(ctx context.Context, token string, courseID int64) ([]moodle.RawSection, error)
	GetUserProfile(ctx context.Context, token string, userID int64) ([]moodle.RawProfile, error)
}

// SessionReader gives access to the signed-in session.
type SessionReader interface {
	CurrentSession(ctx context.Context) (*model.Session, error)
}

// AggregationService turns raw Moodle data into the models the screens show.
type AggregationService struct {
	moodle   CourseReader
	sessions SessionReader
	now      func() time.Time
	logger   *slog.Logger
}

// NewAggregationService creates the service. A nil clock means time.Now.
func NewAggregationService(m CourseReader, sessions SessionReader, clock func() time.Time, logger *slog.Logger) *AggregationService {
	if clock == nil {
		clock = time.Now
	}
	return &AggregationService{
		moodle:   m,
		sessions: sessions,
		now:      clock,
		logger:   logger,
	}
}

// ListCourses returns the courses the signed-in student is enrolled in.
func (s *AggregationService) ListCourses(ctx context.Context) ([]model.Course, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	raws, err := s.moodle.GetUserCourses(ctx, sess.Token, sess.UserID)
	if err != nil {
		return nil, s.remoteError("courses", err)
	}
	return toCourses(raws), nil
}

// ListUpcomingDeadlines returns the events due in the next 30 days, earliest
// first. limit is sent to Moodle as limitnum and the answer is used as is.
// A limit of zero or less means DefaultDeadlineLimit.
func (s *AggregationService) ListUpcomingDeadlines(ctx context.Context, limit int) ([]model.Deadline, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultDeadlineLimit
	}

	now := s.now()
	events, err := s.moodle.GetCalendarEvents(ctx, sess.Token, now, now.Add(DeadlineWindow), limit)
	if err != nil {
		return nil, s.remoteError("deadlines", err)
	}

	deadlines := make([]model.Deadline, 0, len(events.Events))
	for _, e := range events.Events {
		deadlines = append(deadlines, toDeadline(e, now))
	}
	slices.SortStableFunc(deadlines, func(a, b model.Deadline) int {
		return a.DueAt.Compare(b.DueAt)
	})
	return deadlines, nil
}

// ListUrgentAlerts returns at most three alerts for deadlines due within a day.
func (s *AggregationService) ListUrgentAlerts(ctx context.Context) ([]model.UrgentAlert, error) {
	deadlines, err := s.ListUpcomingDeadlines(ctx, alertCandidates)
	if err != nil {
		return nil, err
	}

	alerts := make([]model.UrgentAlert, 0, maxUrgentAlerts)
	for _, d := range deadlines {
		if !d.IsUrgent {
			continue
		}
		alerts = append(alerts, model.NewUrgentAlert(d))
		if len(alerts) == maxUrgentAlerts {
			break
		}
	}
	return alerts, nil
}

// GetCourseDetails finds one of the student's courses by id.
func (s *AggregationService) GetCourseDetails(ctx context.Context, courseID int64) (*model.Course, error) {
	courses, err := s.ListCourses(ctx)
	if err != nil {
		return nil, err
	}

	i := slices.IndexFunc(courses, func(c model.Course) bool { return c.ID == courseID })
	if i < 0 {
		return nil, apperror.NotFound("course", strconv.FormatInt(courseID, 10))
	}
	return &courses[i], nil
}

// GetCourseContents returns the sections and activities of a course.
func (s *AggregationService) GetCourseContents(ctx context.Context, courseID int64) ([]model.CourseSection, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	raws, err := s.moodle.GetCourseContents(ctx, sess.Token, courseID)
	if err != nil {
		return nil, s.remoteError("course contents", err)
	}
	return toSections(raws), nil
}

// GetUserProfile loads the signed-in student's full profile record.
func (s *AggregationService) GetUserProfile(ctx context.Context) (*model.UserProfile, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	raws, err := s.moodle.GetUserProfile(ctx, sess.Token, sess.UserID)
	if err != nil {
		return nil, s.remoteError("profile", err)
	}
	if len(raws) == 0 {
		return nil, apperror.NotFound("user", strconv.FormatInt(sess.UserID, 10))
	}

	p := toUserProfile(raws[0])
	return &p, nil
}

// SummarizeCourses counts completed courses and maps the mean progress onto
// a 5-point grade. An empty list yields zero stats.
func SummarizeCourses(courses []model.Course) model.CourseStats {
	stats := model.CourseStats{Total: len(courses)}
	if len(courses) == 0 {
		return stats
	}

	var sum float64
	for _, c := range courses {
		if c.Completed() {
			stats.Completed++
		}
		sum += c.ProgressPercent
	}
	stats.AverageGrade = sum / float64(len(courses)) / 20
	return stats
}

func (s *AggregationService) session(ctx context.Context) (*model.Session, error) {
	sess, err := s.sessions.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, apperror.NotAuthenticated()
	}
	return sess, nil
}

func (s *AggregationService) remoteError(what string, err error) error {
	if moodle.IsInvalidToken(err) {
		s.logger.Info("moodle rejected the stored token", slog.String("loading", what))
		return apperror.NotAuthenticated()
	}
	s.logger.Warn("remote fetch failed",
		slog.String("loading", what),
		slog.String("error", err.Error()),
	)
	return apperror.RemoteFetchFailed(what, err)
}
