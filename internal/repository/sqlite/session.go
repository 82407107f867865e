package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/repository"
)

var _ repository.SessionRepository = (*DB)(nil)

// ErrIncompleteSession is returned when a session without token or user id
// is written, or such a row is found on disk.
var ErrIncompleteSession = errors.New("sqlite: session is missing token or user id")

// LoadSession returns the stored session or nil when there is none.
func (db *DB) LoadSession(ctx context.Context) (*model.Session, error) {
	var (
		s      model.Session
		token  []byte
		avatar sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT token, user_id, username, first_name, last_name, full_name, avatar_url
		 FROM session WHERE id = 1`,
	).Scan(
		&token,
		&s.UserID,
		&s.Username,
		&s.FirstName,
		&s.LastName,
		&s.FullName,
		&avatar,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: loading session: %w", err)
	}

	plain, err := db.open(token)
	if err != nil {
		return nil, fmt.Errorf("sqlite: unsealing session token: %w", err)
	}
	s.Token = string(plain)
	if avatar.Valid {
		s.AvatarURL = &avatar.String
	}

	if !s.Complete() {
		return nil, ErrIncompleteSession
	}
	return &s, nil
}

// SaveSession replaces the stored session in a single statement.
func (db *DB) SaveSession(ctx context.Context, s model.Session) error {
	if !s.Complete() {
		return ErrIncompleteSession
	}

	token, err := db.seal([]byte(s.Token))
	if err != nil {
		return fmt.Errorf("sqlite: sealing session token: %w", err)
	}

	var avatar sql.NullString
	if s.AvatarURL != nil {
		avatar = sql.NullString{String: *s.AvatarURL, Valid: true}
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO session (id, token, user_id, username, first_name, last_name, full_name, avatar_url, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			full_name = excluded.full_name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at`,
		token,
		s.UserID,
		s.Username,
		s.FirstName,
		s.LastName,
		s.FullName,
		avatar,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving session for user %d: %w", s.UserID, err)
	}
	return nil
}

// DeleteSession removes the stored session. Deleting nothing is not an error.
func (db *DB) DeleteSession(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

func (db *DB) seal(b []byte) ([]byte, error) {
	if db.sealer == nil {
		return b, nil
	}
	return db.sealer.Seal(b)
}

func (db *DB) open(b []byte) ([]byte, error) {
	if db.sealer == nil {
		return b, nil
	}
	return db.sealer.Open(b)
}
