package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/service"
	"github.com/sakif/eljunior/internal/viewstate"
)

const maxDeadlineLimit = 50

// The screens are implemented by the viewstate controllers.
type (
	HomeScreen interface {
		State() *viewstate.State[viewstate.HomeData]
		Refresh()
	}
	CoursesScreen interface {
		State() *viewstate.State[viewstate.CoursesData]
		Refresh()
		ToggleFavourite(courseID int64) bool
	}
	ProfileScreen interface {
		State() *viewstate.State[viewstate.ProfileData]
		Refresh()
	}
	ScheduleScreen interface {
		State() *viewstate.State[viewstate.ScheduleData]
		SelectDate(date time.Time)
		NextWeek()
		PreviousWeek()
	}
)

// Screens groups the controllers the dashboard exposes.
type Screens struct {
	Home     HomeScreen
	Courses  CoursesScreen
	Profile  ProfileScreen
	Schedule ScheduleScreen
}

// CourseCatalog is implemented by service.AggregationService. It serves the
// reads that have no screen of their own.
type CourseCatalog interface {
	ListUpcomingDeadlines(ctx context.Context, limit int) ([]model.Deadline, error)
	ListUrgentAlerts(ctx context.Context) ([]model.UrgentAlert, error)
	GetCourseDetails(ctx context.Context, courseID int64) (*model.Course, error)
	GetCourseContents(ctx context.Context, courseID int64) ([]model.CourseSection, error)
}

// DashboardHandler exposes the screen states and the course reads.
//
// Screen routes never block on Moodle: GET returns the current snapshot and
// the action routes start work in the background and answer 202 with the
// snapshot as it is right after the action began. The UI polls GET until
// isLoading is false.
type DashboardHandler struct {
	screens Screens
	catalog CourseCatalog
	clock   func() time.Time
	loc     *time.Location
	logger  *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler. clock drives urgency and
// countdowns; nil means time.Now. loc is the student's timezone, used for
// "today", due times and dates picked on the schedule screen.
func NewDashboardHandler(screens Screens, catalog CourseCatalog, clock func() time.Time, loc *time.Location, logger *slog.Logger) *DashboardHandler {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &DashboardHandler{
		screens: screens,
		catalog: catalog,
		clock:   clock,
		loc:     loc,
		logger:  logger,
	}
}

func (h *DashboardHandler) now() time.Time {
	return h.clock().In(h.loc)
}

// GET /api/home
func (h *DashboardHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.home())
}

// POST /api/home/refresh
func (h *DashboardHandler) HandleHomeRefresh(w http.ResponseWriter, r *http.Request) {
	h.screens.Home.Refresh()
	writeJSON(w, http.StatusAccepted, h.home())
}

func (h *DashboardHandler) home() StateResponse[homeView] {
	now := h.now()
	return renderState(h.screens.Home.State().Snapshot(), func(d viewstate.HomeData) homeView {
		return renderHome(d, now)
	})
}

// GET /api/courses
func (h *DashboardHandler) HandleCourses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse(h.screens.Courses.State().Snapshot()))
}

// POST /api/courses/refresh
func (h *DashboardHandler) HandleCoursesRefresh(w http.ResponseWriter, r *http.Request) {
	h.screens.Courses.Refresh()
	writeJSON(w, http.StatusAccepted, stateResponse(h.screens.Courses.State().Snapshot()))
}

// HandleToggleFavourite flips the star on a loaded course. The change is
// local to this process.
//
// POST /api/courses/{id}/favourite
func (h *DashboardHandler) HandleToggleFavourite(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	if !h.screens.Courses.ToggleFavourite(id) {
		writeError(w, apperror.NotFound("course", strconv.FormatInt(id, 10)))
		return
	}
	writeJSON(w, http.StatusOK, stateResponse(h.screens.Courses.State().Snapshot()))
}

// GET /api/courses/{id}
func (h *DashboardHandler) HandleCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	course, err := h.catalog.GetCourseDetails(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// GET /api/courses/{id}/contents
func (h *DashboardHandler) HandleCourseContents(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	sections, err := h.catalog.GetCourseContents(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

// GET /api/deadlines?limit=N
func (h *DashboardHandler) HandleDeadlines(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultDeadlineLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxDeadlineLimit {
			writeError(w, apperror.ValidationFailed("limit", "limit must be a number between 1 and "+strconv.Itoa(maxDeadlineLimit)))
			return
		}
		limit = n
	}

	deadlines, err := h.catalog.ListUpcomingDeadlines(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDeadlineViews(deadlines, h.now()))
}

// GET /api/alerts
func (h *DashboardHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.catalog.ListUrgentAlerts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	now := h.now()
	views := make([]alertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, newAlertView(a, now))
	}
	writeJSON(w, http.StatusOK, views)
}

// GET /api/profile
func (h *DashboardHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, renderState(h.screens.Profile.State().Snapshot(), renderProfile))
}

// POST /api/profile/refresh
func (h *DashboardHandler) HandleProfileRefresh(w http.ResponseWriter, r *http.Request) {
	h.screens.Profile.Refresh()
	writeJSON(w, http.StatusAccepted, renderState(h.screens.Profile.State().Snapshot(), renderProfile))
}

// GET /api/schedule
func (h *DashboardHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.schedule())
}

func (h *DashboardHandler) schedule() StateResponse[scheduleView] {
	return renderState(h.screens.Schedule.State().Snapshot(), renderSchedule)
}

type selectDateRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
}

// POST /api/schedule/date {"date": "2024-10-14"}
func (h *DashboardHandler) HandleSelectDate(w http.ResponseWriter, r *http.Request) {
	var req selectDateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	date, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(req.Date), h.loc)
	if err != nil {
		writeError(w, apperror.ValidationFailed("date", "date must look like 2024-10-14"))
		return
	}

	h.screens.Schedule.SelectDate(date)
	writeJSON(w, http.StatusAccepted, h.schedule())
}

// POST /api/schedule/next
func (h *DashboardHandler) HandleNextWeek(w http.ResponseWriter, r *http.Request) {
	h.screens.Schedule.NextWeek()
	writeJSON(w, http.StatusAccepted, h.schedule())
}

// POST /api/schedule/previous
func (h *DashboardHandler) HandlePreviousWeek(w http.ResponseWriter, r *http.Request) {
	h.screens.Schedule.PreviousWeek()
	writeJSON(w, http.StatusAccepted, h.schedule())
}

// fail writes err and logs it when it is the bridge's fault rather than
// Moodle's or the student's.
func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("dashboard request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, body)
}

func courseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, apperror.ValidationFailed("id", "course id must be a positive number"))
		return 0, false
	}
	return id, true
}
