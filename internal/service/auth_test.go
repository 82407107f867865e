package service

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/moodle"
)

func validSiteInfo() *moodle.SiteInfo {
	return &moodle.SiteInfo{
		UserID:    7,
		Username:  "student1",
		FirstName: "Иван",
		LastName:  "Петров",
		FullName:  "Иван Петров",
	}
}

func TestLogin_Success(t *testing.T) {
	m := &fakeMoodle{
		tokenResp: &moodle.TokenResponse{Token: "abc123"},
		siteInfo:  validSiteInfo(),
	}
	store := &fakeStore{}
	svc := NewAuthService(m, store, discardLogger())

	sess, err := svc.Login(context.Background(), "student1", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if sess.Token != "abc123" || sess.UserID != 7 {
		t.Errorf("Login() = %+v, want token abc123 and user 7", sess)
	}
	if m.lastToken != "abc123" {
		t.Errorf("site info called with token %q, want abc123", m.lastToken)
	}

	stored, _ := store.Read(context.Background())
	if stored == nil || stored.Token != "abc123" || stored.UserID != 7 || stored.FullName != "Иван Петров" {
		t.Errorf("stored session = %+v, want the logged-in session", stored)
	}
}

func TestLogin_Validation(t *testing.T) {
	tests := []struct {
		name, username, password string
	}{
		{name: "blank username", username: "  ", password: "secret"},
		{name: "blank password", username: "student1", password: ""},
		{name: "both blank", username: "", password: " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMoodle{tokenResp: &moodle.TokenResponse{Token: "abc123"}, siteInfo: validSiteInfo()}
			store := &fakeStore{}
			svc := NewAuthService(m, store, discardLogger())

			_, err := svc.Login(context.Background(), tt.username, tt.password)

			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Login() error = %v, want ErrValidation", err)
			}
			if m.siteCalls != 0 || store.writes != 0 {
				t.Error("Login() contacted Moodle or wrote a session for blank credentials")
			}
		})
	}
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name        string
		moodle      *fakeMoodle
		wantKind    error
		wantMessage string
	}{
		{
			name:        "error payload",
			moodle:      &fakeMoodle{tokenResp: &moodle.TokenResponse{Error: "Invalid login, please try again", ErrorCode: "invalidlogin"}},
			wantKind:    apperror.ErrInvalidCredentials,
			wantMessage: "Invalid login, please try again",
		},
		{
			name:        "no token and no message",
			moodle:      &fakeMoodle{tokenResp: &moodle.TokenResponse{}},
			wantKind:    apperror.ErrInvalidCredentials,
			wantMessage: defaultLoginError,
		},
		{
			name:        "server status",
			moodle:      &fakeMoodle{tokenErr: &moodle.StatusError{Function: "token", Code: 503}},
			wantKind:    apperror.ErrInvalidCredentials,
			wantMessage: "server error: 503",
		},
		{
			name:     "unreachable",
			moodle:   &fakeMoodle{tokenErr: &net.OpError{Op: "dial", Err: errBoom}},
			wantKind: apperror.ErrRemoteFetch,
		},
		{
			name: "site info fails",
			moodle: &fakeMoodle{
				tokenResp: &moodle.TokenResponse{Token: "abc123"},
				siteErr:   &moodle.StatusError{Function: "core_webservice_get_site_info", Code: 500},
			},
			wantKind: apperror.ErrProfileFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := NewAuthService(tt.moodle, store, discardLogger())

			sess, err := svc.Login(context.Background(), "student1", "wrong")

			if sess != nil {
				t.Errorf("Login() session = %+v, want nil", sess)
			}
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("Login() error = %v, want kind %v", err, tt.wantKind)
			}
			if tt.wantMessage != "" && err.Error() != tt.wantMessage {
				t.Errorf("Login() message = %q, want %q", err.Error(), tt.wantMessage)
			}
			if store.writes != 0 {
				t.Error("Login() persisted a session after a failure")
			}
		})
	}
}

func TestLogin_UnreachableIsDistinctFromInvalidCredentials(t *testing.T) {
	svc := NewAuthService(&fakeMoodle{tokenErr: errBoom}, &fakeStore{}, discardLogger())

	_, err := svc.Login(context.Background(), "student1", "secret")

	if errors.Is(err, apperror.ErrInvalidCredentials) {
		t.Error("transport failure reported as invalid credentials")
	}
	if !errors.Is(err, errBoom) {
		t.Error("transport failure lost its cause")
	}
}

func TestLogin_CancelledBeforePersist(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &fakeMoodle{tokenResp: &moodle.TokenResponse{Token: "abc123"}, siteInfo: validSiteInfo()}
	store := &fakeStore{}
	svc := NewAuthService(&cancellingMoodle{fakeMoodle: m, cancel: cancel}, store, discardLogger())

	_, err := svc.Login(ctx, "student1", "secret")

	if err == nil {
		t.Fatal("Login() succeeded after cancellation")
	}
	if store.writes != 0 {
		t.Error("Login() persisted a session after cancellation")
	}
}

// cancellingMoodle cancels the login context once the site info has arrived.
type cancellingMoodle struct {
	*fakeMoodle
	cancel context.CancelFunc
}

func (c *cancellingMoodle) GetSiteInfo(ctx context.Context, token string) (*moodle.SiteInfo, error) {
	info, err := c.fakeMoodle.GetSiteInfo(ctx, token)
	c.cancel()
	return info, err
}

func TestLogin_StorageFailure(t *testing.T) {
	m := &fakeMoodle{tokenResp: &moodle.TokenResponse{Token: "abc123"}, siteInfo: validSiteInfo()}
	store := &fakeStore{writeErr: apperror.Storage("writing session", errBoom)}
	svc := NewAuthService(m, store, discardLogger())

	_, err := svc.Login(context.Background(), "student1", "secret")

	if !errors.Is(err, apperror.ErrStorage) {
		t.Errorf("Login() error = %v, want ErrStorage", err)
	}
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name       string
		clearErrs  []error
		wantClears int
		wantGone   bool
	}{
		{name: "clears", wantClears: 1, wantGone: true},
		{name: "retries once", clearErrs: []error{errBoom}, wantClears: 2, wantGone: true},
		{name: "gives up after retry", clearErrs: []error{errBoom, errBoom}, wantClears: 2, wantGone: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := signedIn()
			store.clearErrs = tt.clearErrs
			svc := NewAuthService(&fakeMoodle{}, store, discardLogger())

			svc.Logout(context.Background())

			if store.clears != tt.wantClears {
				t.Errorf("Clear called %d times, want %d", store.clears, tt.wantClears)
			}
			if gone := store.session == nil; gone != tt.wantGone {
				t.Errorf("session cleared = %v, want %v", gone, tt.wantGone)
			}
		})
	}
}

func TestLogout_IgnoresCancelledContext(t *testing.T) {
	store := signedIn()
	svc := NewAuthService(&fakeMoodle{}, store, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.Logout(ctx)

	if store.session != nil {
		t.Error("Logout() left the session in place")
	}
}

func TestRefreshProfile(t *testing.T) {
	t.Run("not signed in", func(t *testing.T) {
		svc := NewAuthService(&fakeMoodle{}, &fakeStore{}, discardLogger())

		_, err := svc.RefreshProfile(context.Background())

		if !errors.Is(err, apperror.ErrNotAuthenticated) {
			t.Errorf("RefreshProfile() error = %v, want ErrNotAuthenticated", err)
		}
	})

	t.Run("updates identity and keeps token", func(t *testing.T) {
		info := validSiteInfo()
		info.FullName = "Иван Сергеевич Петров"
		store := signedIn()
		svc := NewAuthService(&fakeMoodle{siteInfo: info}, store, discardLogger())

		sess, err := svc.RefreshProfile(context.Background())
		if err != nil {
			t.Fatalf("RefreshProfile() error = %v", err)
		}
		if sess.Token != "abc123" || sess.FullName != "Иван Сергеевич Петров" {
			t.Errorf("RefreshProfile() = %+v", sess)
		}
		if store.session.FullName != "Иван Сергеевич Петров" {
			t.Error("RefreshProfile() did not persist the new identity")
		}
	})

	t.Run("failure leaves session untouched", func(t *testing.T) {
		store := signedIn()
		svc := NewAuthService(&fakeMoodle{siteErr: errBoom}, store, discardLogger())

		_, err := svc.RefreshProfile(context.Background())

		if !errors.Is(err, apperror.ErrRemoteFetch) {
			t.Errorf("RefreshProfile() error = %v, want ErrRemoteFetch", err)
		}
		if store.writes != 0 || store.session.Token != "abc123" {
			t.Error("RefreshProfile() changed the session on failure")
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		store := signedIn()
		svc := NewAuthService(&fakeMoodle{siteErr: &moodle.Error{Code: "invalidtoken"}}, store, discardLogger())

		_, err := svc.RefreshProfile(context.Background())

		if !errors.Is(err, apperror.ErrNotAuthenticated) {
			t.Errorf("RefreshProfile() error = %v, want ErrNotAuthenticated", err)
		}
	})
}

func TestCurrentAccessors(t *testing.T) {
	svc := NewAuthService(&fakeMoodle{}, &fakeStore{}, discardLogger())
	ctx := context.Background()

	if _, ok, err := svc.CurrentToken(ctx); ok || err != nil {
		t.Errorf("CurrentToken() on empty store = ok %v, err %v", ok, err)
	}
	if _, ok, err := svc.CurrentUserID(ctx); ok || err != nil {
		t.Errorf("CurrentUserID() on empty store = ok %v, err %v", ok, err)
	}

	svc = NewAuthService(&fakeMoodle{}, signedIn(), discardLogger())
	token, ok, err := svc.CurrentToken(ctx)
	if err != nil || !ok || token != "abc123" {
		t.Errorf("CurrentToken() = %q, %v, %v", token, ok, err)
	}
	id, ok, err := svc.CurrentUserID(ctx)
	if err != nil || !ok || id != 7 {
		t.Errorf("CurrentUserID() = %d, %v, %v", id, ok, err)
	}

	failing := NewAuthService(&fakeMoodle{}, &fakeStore{readErr: apperror.Storage("reading session", errBoom)}, discardLogger())
	if _, err := failing.CurrentSession(ctx); !errors.Is(err, apperror.ErrStorage) {
		t.Errorf("CurrentSession() error = %v, want ErrStorage", err)
	}
}

var _ SessionStore = (*fakeStore)(nil)
