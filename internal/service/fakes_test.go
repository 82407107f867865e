package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/moodle"
)

// fakeMoodle implements Authenticator and CourseReader.
type fakeMoodle struct {
	tokenResp *moodle.TokenResponse
	tokenErr  error
	siteInfo  *moodle.SiteInfo
	siteErr   error

	courses    []moodle.RawCourse
	coursesErr error
	events     []moodle.RawEvent
	eventsErr  error
	sections   []moodle.RawSection
	profiles   []moodle.RawProfile
	profileErr error

	siteCalls  int
	lastToken  string
	lastFrom   time.Time
	lastTo     time.Time
	lastLimit  int
	lastUserID int64
}

func (f *fakeMoodle) GetToken(ctx context.Context, username, password string) (*moodle.TokenResponse, error) {
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return f.tokenResp, nil
}

func (f *fakeMoodle) GetSiteInfo(ctx context.Context, token string) (*moodle.SiteInfo, error) {
	f.siteCalls++
	f.lastToken = token
	if f.siteErr != nil {
		return nil, f.siteErr
	}
	return f.siteInfo, nil
}

func (f *fakeMoodle) GetUserCourses(ctx context.Context, token string, userID int64) ([]moodle.RawCourse, error) {
	f.lastToken, f.lastUserID = token, userID
	return f.courses, f.coursesErr
}

func (f *fakeMoodle) GetCalendarEvents(ctx context.Context, token string, from, to time.Time, limit int) (*moodle.CalendarEvents, error) {
	f.lastToken, f.lastFrom, f.lastTo, f.lastLimit = token, from, to, limit
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return &moodle.CalendarEvents{Events: f.events}, nil
}

func (f *fakeMoodle) GetCourseContents(ctx context.Context, token string, courseID int64) ([]moodle.RawSection, error) {
	f.lastToken = token
	return f.sections, nil
}

func (f *fakeMoodle) GetUserProfile(ctx context.Context, token string, userID int64) ([]moodle.RawProfile, error) {
	f.lastToken, f.lastUserID = token, userID
	return f.profiles, f.profileErr
}

// fakeStore is an in-memory SessionStore.
type fakeStore struct {
	mu        sync.Mutex
	session   *model.Session
	readErr   error
	writeErr  error
	clearErrs []error // consumed one per Clear call
	writes    int
	clears    int
}

func (f *fakeStore) Read(ctx context.Context) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	if f.session == nil {
		return nil, nil
	}
	c := *f.session
	return &c, nil
}

func (f *fakeStore) Write(ctx context.Context, s model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.session = &s
	return nil
}

func (f *fakeStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	if len(f.clearErrs) > 0 {
		err := f.clearErrs[0]
		f.clearErrs = f.clearErrs[1:]
		if err != nil {
			return err
		}
	}
	f.session = nil
	return nil
}

func (f *fakeStore) CurrentSession(ctx context.Context) (*model.Session, error) {
	return f.Read(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

var errBoom = errors.New("boom")

func signedIn() *fakeStore {
	return &fakeStore{session: &model.Session{Token: "abc123", UserID: 7, Username: "student1"}}
}
