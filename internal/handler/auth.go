package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/auth"
	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/viewstate"
)

// LoginScreen is implemented by viewstate.AuthController.
type LoginScreen interface {
	State() *viewstate.State[viewstate.AuthData]
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Logout(ctx context.Context)
	ClearError()
}

// SessionReader is implemented by service.AuthService.
type SessionReader interface {
	CurrentSession(ctx context.Context) (*model.Session, error)
}

// AuthHandler signs the student in and out of Moodle and issues the cookie
// that authorises the UI against the /api routes.
//
// The cookie only proves that this process completed a login. The Moodle
// token itself never leaves the process.
type AuthHandler struct {
	screen   LoginScreen
	sessions SessionReader
	tokens   *auth.TokenService
	onLogin  func()
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. onLogin, if set, runs after every
// successful login.
func NewAuthHandler(
	screen LoginScreen,
	sessions SessionReader,
	tokens *auth.TokenService,
	onLogin func(),
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		screen:   screen,
		sessions: sessions,
		tokens:   tokens,
		onLogin:  onLogin,
		logger:   logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin authenticates against Moodle.
//
// HTTP: POST /auth/login {"username": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	sess, err := h.screen.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	tokenStr, err := h.tokens.Generate(sess.UserID)
	if err != nil {
		h.logger.Error("login: token generation failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    tokenStr,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	if h.onLogin != nil {
		h.onLogin()
	}

	writeJSON(w, http.StatusOK, newUserView(sess))
}

// HandleLogout clears the stored session and the cookie. It always succeeds.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.screen.Logout(r.Context())

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type authStateResponse struct {
	LoggedIn  bool           `json:"loggedIn"`
	IsLoading bool           `json:"isLoading"`
	Error     *ErrorResponse `json:"error,omitempty"`
}

// HandleState tells the UI whether to show the login screen. It is not
// behind RequireAuth and so reveals nothing about who is signed in.
//
// HTTP: GET /auth/state
func (h *AuthHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.authState())
}

// HandleClearError dismisses the last login error.
//
// HTTP: DELETE /auth/error
func (h *AuthHandler) HandleClearError(w http.ResponseWriter, r *http.Request) {
	h.screen.ClearError()
	writeJSON(w, http.StatusOK, h.authState())
}

func (h *AuthHandler) authState() authStateResponse {
	snap := h.screen.State().Snapshot()
	resp := authStateResponse{LoggedIn: snap.Data.LoggedIn, IsLoading: snap.IsLoading}
	if snap.Err != nil {
		_, body := classify(snap.Err)
		resp.Error = &body
	}
	return resp
}

// RequireSession rejects requests whose cookie was issued for a session
// that is no longer stored: one from before a logout, or for another account.
// It runs after auth.RequireAuth.
func (h *AuthHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.currentSession(r); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleMe returns the signed-in student.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess, err := h.currentSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(sess))
}

func (h *AuthHandler) currentSession(r *http.Request) (*model.Session, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, apperror.NotAuthenticated()
	}

	sess, err := h.sessions.CurrentSession(r.Context())
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != userID {
		return nil, apperror.NotAuthenticated()
	}
	return sess, nil
}
