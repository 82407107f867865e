package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/moodle"
)

const defaultLoginError = "invalid username or password"

// Authenticator is the part of the Moodle client needed to sign in.
type Authenticator interface {
	GetToken(ctx context.Context, username, password string) (*moodle.TokenResponse, error)
	GetSiteInfo(ctx context.Context, token string) (*moodle.SiteInfo, error)
}

// SessionStore persists the signed-in session.
type SessionStore interface {
	Read(ctx context.Context) (*model.Session, error)
	Write(ctx context.Context, s model.Session) error
	Clear(ctx context.Context) error
}

// AuthService signs the student in and out and owns the stored session.
// Nothing else writes the session.
type AuthService struct {
	moodle   Authenticator
	store    SessionStore
	validate *validator.Validate
	logger   *slog.Logger

	// mu serialises Login and RefreshProfile so two writers never interleave.
	mu sync.Mutex
}

// NewAuthService creates the service. Credentials are checked against m and
// the resulting session is kept in store.
func NewAuthService(m Authenticator, store SessionStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		moodle:   m,
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Login exchanges credentials for a token, loads the user's identity with it
// and stores both as the current session.
//
// Failures are reported as:
//   - ErrValidation when either field is blank
//   - ErrInvalidCredentials when Moodle refuses the credentials
//   - ErrRemoteFetch when Moodle cannot be reached
//   - ErrProfileFetch when the token works but the identity cannot be loaded
//
// Nothing is stored unless every step succeeds.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.Session, error) {
	creds := model.Credentials{
		Username: strings.TrimSpace(username),
		Password: strings.TrimSpace(password),
	}
	if err := s.validate.Struct(creds); err != nil {
		var verrs validator.ValidationErrors
		field := "credentials"
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field = strings.ToLower(verrs[0].Field())
		}
		return nil, apperror.ValidationFailed(field, "enter username and password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The password is sent as typed; only the blank check ignores spaces.
	tr, err := s.moodle.GetToken(ctx, creds.Username, password)
	if err != nil {
		var se *moodle.StatusError
		if errors.As(err, &se) {
			return nil, apperror.InvalidCredentials(fmt.Sprintf("server error: %d", se.Code))
		}
		s.logger.Warn("token request failed",
			slog.String("username", creds.Username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unreachable(err)
	}

	if tr.Token == "" || tr.Error != "" {
		msg := tr.Error
		if msg == "" {
			msg = defaultLoginError
		}
		s.logger.Info("login refused",
			slog.String("username", creds.Username),
			slog.String("errorcode", tr.ErrorCode),
		)
		return nil, apperror.InvalidCredentials(msg)
	}

	info, err := s.moodle.GetSiteInfo(ctx, tr.Token)
	if err != nil {
		s.logger.Warn("site info request failed after login",
			slog.String("username", creds.Username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.ProfileFetchFailed(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, apperror.RemoteFetchFailed("session", err)
	}

	sess := sessionFromSiteInfo(tr.Token, info)
	if err := s.store.Write(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("student signed in",
		slog.Int64("userID", sess.UserID),
		slog.String("username", sess.Username),
	)
	return &sess, nil
}

// Logout clears the stored session. A failed clear is retried once and then
// only logged: the caller always ends up signed out from the UI's view.
func (s *AuthService) Logout(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	err := s.store.Clear(ctx)
	if err == nil {
		s.logger.Info("student signed out")
		return
	}

	s.logger.Warn("clearing session failed, retrying", slog.String("error", err.Error()))
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("clearing session failed", slog.String("error", err.Error()))
	}
}

// RefreshProfile reloads the identity fields for the stored token.
// On failure the stored session is left as it was.
func (s *AuthService) RefreshProfile(ctx context.Context) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperror.NotAuthenticated()
	}

	info, err := s.moodle.GetSiteInfo(ctx, current.Token)
	if err != nil {
		if moodle.IsInvalidToken(err) {
			return nil, apperror.NotAuthenticated()
		}
		return nil, apperror.RemoteFetchFailed("profile", err)
	}

	sess := sessionFromSiteInfo(current.Token, info)
	if err := s.store.Write(ctx, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// CurrentSession returns the stored session, or nil when signed out.
func (s *AuthService) CurrentSession(ctx context.Context) (*model.Session, error) {
	return s.store.Read(ctx)
}

// CurrentToken returns the stored token and whether there is one.
func (s *AuthService) CurrentToken(ctx context.Context) (string, bool, error) {
	sess, err := s.store.Read(ctx)
	if err != nil || sess == nil {
		return "", false, err
	}
	return sess.Token, true, nil
}

// CurrentUserID returns the stored user id and whether there is one.
func (s *AuthService) CurrentUserID(ctx context.Context) (int64, bool, error) {
	sess, err := s.store.Read(ctx)
	if err != nil || sess == nil {
		return 0, false, err
	}
	return sess.UserID, true, nil
}

func sessionFromSiteInfo(token string, info *moodle.SiteInfo) model.Session {
	return model.Session{
		Token:     token,
		UserID:    info.UserID,
		Username:  info.Username,
		FirstName: info.FirstName,
		LastName:  info.LastName,
		FullName:  info.FullName,
		AvatarURL: info.UserPictureURL,
	}
}
