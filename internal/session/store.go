// Package session keeps the single authenticated session and tells
// interested parties whenever it changes.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rs/xid"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/repository"
)

// Store wraps a SessionRepository with change notification.
//
// Writes and clears are serialised, and subscribers are called under the same
// lock, so every subscriber sees changes in commit order. Subscriber callbacks
// must not call Write or Clear.
type Store struct {
	repo   repository.SessionRepository
	logger *slog.Logger

	mu   sync.Mutex
	subs map[xid.ID]func(*model.Session)
}

// NewStore returns a Store persisting to repo, with no subscribers.
func NewStore(repo repository.SessionRepository, logger *slog.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger,
		subs:   make(map[xid.ID]func(*model.Session)),
	}
}

// Read returns the stored session, or nil when nobody is signed in.
func (s *Store) Read(ctx context.Context) (*model.Session, error) {
	sess, err := s.repo.LoadSession(ctx)
	if err != nil {
		return nil, apperror.Storage("reading session", err)
	}
	return sess, nil
}

// Write replaces the stored session. Sessions without a token or user id are
// rejected.
func (s *Store) Write(ctx context.Context, sess model.Session) error {
	if !sess.Complete() {
		return apperror.ValidationFailed("session", "session must carry a token and a user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SaveSession(ctx, sess); err != nil {
		return apperror.Storage("writing session", err)
	}
	s.notifyLocked(&sess)
	return nil
}

// Clear removes the stored session. Clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteSession(ctx); err != nil {
		return apperror.Storage("clearing session", err)
	}
	s.notifyLocked(nil)
	return nil
}

// Subscribe calls fn with the current session and then after every
// successful Write or Clear. The returned function removes the subscription.
func (s *Store) Subscribe(ctx context.Context, fn func(*model.Session)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.LoadSession(ctx)
	if err != nil {
		return nil, apperror.Storage("reading session", err)
	}

	id := xid.New()
	s.subs[id] = fn
	fn(current)

	s.logger.Debug("session subscriber added", slog.String("id", id.String()))

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

// Observe is the channel form of Subscribe. The channel holds at most one
// pending value: a slow reader only sees the latest session. It is closed
// once ctx is done; call Observe again to resume.
func (s *Store) Observe(ctx context.Context) (<-chan *model.Session, error) {
	ch := make(chan *model.Session, 1)

	unsubscribe, err := s.Subscribe(ctx, func(sess *model.Session) {
		// Only the reader removes values, so after draining the send cannot block.
		select {
		case <-ch:
		default:
		}
		ch <- sess
	})
	if err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
		close(ch)
	}()

	return ch, nil
}

func (s *Store) notifyLocked(sess *model.Session) {
	for _, fn := range s.subs {
		var v *model.Session
		if sess != nil {
			c := *sess
			v = &c
		}
		fn(v)
	}
}
