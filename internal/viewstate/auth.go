package viewstate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/model"
)

// AuthData backs the login screen.
type AuthData struct {
	LoggedIn bool
	Session  *model.Session
}

// AuthController runs sign-in and sign-out for the login screen.
type AuthController struct {
	*lifetime
	state *State[AuthData]
	auth  Authenticator
}

// NewAuthController starts following the stored session, so LoggedIn tracks
// logins and logouts made anywhere in the process.
func NewAuthController(parent context.Context, auth Authenticator, sessions SessionObserver, logger *slog.Logger) (*AuthController, error) {
	c := &AuthController{
		lifetime: newLifetime(parent, logger),
		state:    NewState(AuthData{}),
		auth:     auth,
	}

	unsubscribe, err := sessions.Subscribe(c.ctx, func(s *model.Session) {
		c.state.Update(func(snap *Snapshot[AuthData]) {
			snap.Data.LoggedIn = s != nil
			snap.Data.Session = s
		})
	})
	if err != nil {
		c.cancel()
		return nil, err
	}
	c.launch(func(ctx context.Context) {
		<-ctx.Done()
		unsubscribe()
	})

	return c, nil
}

// State is the login screen snapshot.
func (c *AuthController) State() *State[AuthData] { return c.state }

// Login validates the input locally, then signs in. It blocks until Moodle
// answers; observers of State see IsLoading meanwhile and the outcome after.
// The call is cancelled when ctx is done or the controller is closed.
func (c *AuthController) Login(ctx context.Context, username, password string) (*model.Session, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		err := apperror.ValidationFailed("credentials", "enter username and password")
		c.state.Update(func(s *Snapshot[AuthData]) { s.Err = err })
		return nil, err
	}

	ctx, cancel := c.bind(ctx)
	defer cancel()

	gen := c.state.begin()
	sess, err := c.auth.Login(ctx, username, password)
	c.state.finish(gen, func(s *Snapshot[AuthData]) {
		if err != nil {
			s.Err = err
			return
		}
		s.Data.LoggedIn = true
		s.Data.Session = sess
	})
	return sess, err
}

// Logout signs out. LoggedIn follows through the session subscription.
func (c *AuthController) Logout(ctx context.Context) {
	c.auth.Logout(ctx)
	c.state.Update(func(s *Snapshot[AuthData]) { s.Err = nil })
}

// ClearError dismisses the last login error.
func (c *AuthController) ClearError() {
	c.state.Update(func(s *Snapshot[AuthData]) { s.Err = nil })
}
