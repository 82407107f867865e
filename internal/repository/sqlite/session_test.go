package sqlite

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sakif/eljunior/internal/model"
)

// reverseSealer is a stand-in for the real sealer: it only needs to make the
// stored bytes differ from the plaintext.
type reverseSealer struct {
	failOpen bool
}

func (reverseSealer) Seal(b []byte) ([]byte, error) {
	return reverse(b), nil
}

func (s reverseSealer) Open(b []byte) ([]byte, error) {
	if s.failOpen {
		return nil, errors.New("message authentication failed")
	}
	return reverse(b), nil
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:", reverseSealer{})
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSession() model.Session {
	avatar := "https://moodle.example.edu/pluginfile.php/5/user/icon/f1"
	return model.Session{
		Token:     "abc123",
		UserID:    7,
		Username:  "student1",
		FirstName: "Иван",
		LastName:  "Петров",
		FullName:  "Иван Петров",
		AvatarURL: &avatar,
	}
}

func TestLoadSession_Empty(t *testing.T) {
	db := newTestDB(t)

	s, err := db.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if s != nil {
		t.Errorf("LoadSession() = %+v, want nil", s)
	}
}

func TestSaveSession_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	want := testSession()

	if err := db.SaveSession(context.Background(), want); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	got, err := db.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if got == nil {
		t.Fatal("LoadSession() = nil, want session")
	}
	if got.Token != want.Token {
		t.Errorf("Token = %q, want %q", got.Token, want.Token)
	}
	if got.UserID != want.UserID {
		t.Errorf("UserID = %d, want %d", got.UserID, want.UserID)
	}
	if got.FullName != want.FullName {
		t.Errorf("FullName = %q, want %q", got.FullName, want.FullName)
	}
	if got.AvatarURL == nil || *got.AvatarURL != *want.AvatarURL {
		t.Errorf("AvatarURL = %v, want %q", got.AvatarURL, *want.AvatarURL)
	}
}

func TestSaveSession_NilAvatar(t *testing.T) {
	db := newTestDB(t)
	s := testSession()
	s.AvatarURL = nil

	if err := db.SaveSession(context.Background(), s); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	got, err := db.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if got.AvatarURL != nil {
		t.Errorf("AvatarURL = %q, want nil", *got.AvatarURL)
	}
}

func TestSaveSession_Overwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := testSession()
	if err := db.SaveSession(ctx, first); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	second := testSession()
	second.Token = "def456"
	second.UserID = 8
	second.Username = "student2"
	if err := db.SaveSession(ctx, second); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	var rows int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM session`).Scan(&rows); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("session rows = %d, want 1", rows)
	}

	got, err := db.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if got.Token != "def456" || got.UserID != 8 || got.Username != "student2" {
		t.Errorf("LoadSession() = %+v, want the second session", got)
	}
}

func TestSaveSession_RejectsIncomplete(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Session)
	}{
		{name: "missing token", mutate: func(s *model.Session) { s.Token = "" }},
		{name: "missing user id", mutate: func(s *model.Session) { s.UserID = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			s := testSession()
			tt.mutate(&s)

			err := db.SaveSession(context.Background(), s)
			if !errors.Is(err, ErrIncompleteSession) {
				t.Fatalf("SaveSession() error = %v, want ErrIncompleteSession", err)
			}

			got, err := db.LoadSession(context.Background())
			if err != nil || got != nil {
				t.Errorf("LoadSession() = %+v, %v; want nil, nil", got, err)
			}
		})
	}
}

func TestSaveSession_TokenIsSealed(t *testing.T) {
	db := newTestDB(t)

	if err := db.SaveSession(context.Background(), testSession()); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	var stored []byte
	if err := db.conn.QueryRow(`SELECT token FROM session WHERE id = 1`).Scan(&stored); err != nil {
		t.Fatalf("reading raw token: %v", err)
	}
	if bytes.Equal(stored, []byte("abc123")) {
		t.Error("token column holds the plaintext token")
	}
}

func TestLoadSession_UnsealFailure(t *testing.T) {
	db := newTestDB(t)
	if err := db.SaveSession(context.Background(), testSession()); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	db.sealer = reverseSealer{failOpen: true}

	if _, err := db.LoadSession(context.Background()); err == nil {
		t.Fatal("LoadSession() should fail when the token cannot be unsealed")
	}
}

func TestDeleteSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveSession(ctx, testSession()); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	if err := db.DeleteSession(ctx); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	got, err := db.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if got != nil {
		t.Errorf("LoadSession() after delete = %+v, want nil", got)
	}

	// Deleting an absent session is a no-op.
	if err := db.DeleteSession(ctx); err != nil {
		t.Errorf("second DeleteSession() error = %v", err)
	}
}

func TestNew_PlaintextWithoutSealer(t *testing.T) {
	db, err := New(":memory:", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.SaveSession(context.Background(), testSession()); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	got, err := db.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if got.Token != "abc123" {
		t.Errorf("Token = %q, want %q", got.Token, "abc123")
	}
}
