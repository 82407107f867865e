package viewstate

import (
	"context"
	"log/slog"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/service"
)

// ProfileData backs the profile screen.
type ProfileData struct {
	User  *model.Session
	Email string
	Stats model.CourseStats
}

// ProfileController shows the student's identity and course statistics.
// Signing out goes through AuthController.
type ProfileController struct {
	*lifetime
	state *State[ProfileData]
	auth  Authenticator
	data  Aggregator
}

// NewProfileController creates the controller with an empty profile.
func NewProfileController(parent context.Context, auth Authenticator, data Aggregator, logger *slog.Logger) *ProfileController {
	return &ProfileController{
		lifetime: newLifetime(parent, logger),
		state:    NewState(ProfileData{}),
		auth:     auth,
		data:     data,
	}
}

// State is the profile snapshot.
func (c *ProfileController) State() *State[ProfileData] { return c.state }

// Reset empties the profile after sign-out. A load still in flight is
// discarded.
func (c *ProfileController) Reset() { c.state.reset(ProfileData{}) }

// Load shows the stored identity with course statistics. The e-mail and the
// statistics are best effort.
func (c *ProfileController) Load() {
	gen := c.state.begin()
	c.launch(func(ctx context.Context) {
		user, err := c.auth.CurrentSession(ctx)
		if err == nil && user == nil {
			err = apperror.NotAuthenticated()
		}
		if err != nil {
			c.state.finish(gen, func(s *Snapshot[ProfileData]) { s.Err = err })
			return
		}
		c.finishProfile(ctx, gen, user)
	})
}

// Refresh reloads the identity from Moodle before rebuilding the screen.
func (c *ProfileController) Refresh() {
	gen := c.state.begin()
	c.launch(func(ctx context.Context) {
		user, err := c.auth.RefreshProfile(ctx)
		if err != nil {
			c.state.finish(gen, func(s *Snapshot[ProfileData]) { s.Err = err })
			return
		}
		c.finishProfile(ctx, gen, user)
	})
}

func (c *ProfileController) finishProfile(ctx context.Context, gen uint64, user *model.Session) {
	var email string
	if p, err := c.data.GetUserProfile(ctx); err == nil {
		email = p.Email
	} else {
		c.logger.Debug("profile: e-mail unavailable", slog.String("error", err.Error()))
	}

	var stats model.CourseStats
	if courses, err := c.data.ListCourses(ctx); err == nil {
		stats = service.SummarizeCourses(courses)
	} else {
		c.logger.Warn("profile: course statistics unavailable", slog.String("error", err.Error()))
	}

	c.state.finish(gen, func(s *Snapshot[ProfileData]) {
		s.Data.User = user
		s.Data.Email = email
		s.Data.Stats = stats
	})
}
