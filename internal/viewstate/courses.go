package viewstate

import (
	"context"
	"log/slog"
	"slices"

	"github.com/sakif/eljunior/internal/model"
)

// CoursesData backs the course list.
type CoursesData struct {
	Courses []model.Course `json:"courses"`
}

// CoursesController loads the enrolled courses and keeps the local favourites.
type CoursesController struct {
	*lifetime
	state *State[CoursesData]
	data  Aggregator
}

// NewCoursesController creates the controller with an empty list.
func NewCoursesController(parent context.Context, data Aggregator, logger *slog.Logger) *CoursesController {
	return &CoursesController{
		lifetime: newLifetime(parent, logger),
		state:    NewState(CoursesData{}),
		data:     data,
	}
}

// State is the course list snapshot.
func (c *CoursesController) State() *State[CoursesData] { return c.state }

// Refresh reloads the course list.
func (c *CoursesController) Refresh() { c.Load() }

// Reset empties the list after sign-out. A load still in flight is discarded.
func (c *CoursesController) Reset() { c.state.reset(CoursesData{}) }

// Load replaces the course list. On failure the previous list stays visible.
func (c *CoursesController) Load() {
	gen := c.state.begin()
	c.launch(func(ctx context.Context) {
		courses, err := c.data.ListCourses(ctx)
		c.state.finish(gen, func(s *Snapshot[CoursesData]) {
			if err != nil {
				s.Err = err
				return
			}
			s.Data.Courses = courses
		})
	})
}

// ToggleFavourite flips the star locally. The change is not sent to Moodle
// and is lost on the next Load.
func (c *CoursesController) ToggleFavourite(courseID int64) bool {
	found := false
	c.state.Update(func(s *Snapshot[CoursesData]) {
		courses := slices.Clone(s.Data.Courses)
		for i := range courses {
			if courses[i].ID == courseID {
				courses[i].IsFavourite = !courses[i].IsFavourite
				found = true
			}
		}
		s.Data.Courses = courses
	})
	return found
}
