package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/caprieux-storefront/internal/auth"
	"github.com/example/caprieux-storefront/internal/infrastructure/storage"
	"github.com/example/caprieux-storefront/internal/infrastructure/store"
)

const (
	AggregateType  = "Session"
	persistVersion = 0
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoDecoder        = errors.New("session has no token decoder")
	ErrForbidden        = errors.New("admin session required")
)

// User is the identity decoded from the backend token.
type User struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role == auth.RoleAdmin
}

// Patch holds the fields UpdateUser merges into the current user. Nil fields
// are left as they are.
type Patch struct {
	Username *string
	Email    *string
	Role     *string
}

type state struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
}

type persistedSession struct {
	State   state `json:"state"`
	Version int   `json:"version"`
}

// Store holds the signed-in user and the bearer token. The user lives under
// "user-storage", the token under "token".
type Store struct {
	mu      sync.RWMutex
	state   state
	token   string
	kv      storage.KeyValueStore
	decoder *auth.Decoder
	journal store.Journal
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Store)

func WithDecoder(d *auth.Decoder) Option {
	return func(s *Store) { s.decoder = d }
}

func WithJournal(j store.Journal) Option {
	return func(s *Store) { s.journal = j }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.Named("session")
		}
	}
}

// Open loads the persisted session and token. Missing keys yield a signed-out
// session.
func Open(ctx context.Context, kv storage.KeyValueStore, opts ...Option) (*Store, error) {
	s := &Store{
		kv:      kv,
		decoder: auth.NewDecoder(""),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	st, token, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.state = st
	s.token = token
	return s, nil
}

// Reload replaces the in-memory user and token with what is currently
// persisted. Used when another process may have signed in or out.
func (s *Store) Reload(ctx context.Context) error {
	st, token, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = st
	s.token = token
	s.mu.Unlock()
	return nil
}

// load reads both keys. Unreadable values count as signed out.
func (s *Store) load(ctx context.Context) (state, string, error) {
	var st state
	data, err := s.kv.Get(ctx, storage.SessionKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case errors.Is(err, storage.ErrSealedValue):
		s.logger.Warn("discarding sealed session state", zap.Error(err))
	case err != nil:
		return state{}, "", fmt.Errorf("load session: %w", err)
	default:
		var persisted persistedSession
		if err := json.Unmarshal(data, &persisted); err != nil {
			s.logger.Warn("discarding unreadable session state", zap.Error(err))
		} else {
			st = persisted.State
			if st.User == nil {
				st.IsAuthenticated = false
			}
		}
	}

	token, err := s.kv.Get(ctx, storage.TokenKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return st, "", nil
	case errors.Is(err, storage.ErrSealedValue):
		s.logger.Warn("discarding sealed token", zap.Error(err))
		return st, "", nil
	case err != nil:
		return state{}, "", fmt.Errorf("load token: %w", err)
	}
	return st, string(token), nil
}

// Login decodes token, then stores the token and the decoded user. On a
// storage failure both keys are restored to their previous values.
func (s *Store) Login(ctx context.Context, token string) (User, error) {
	if s.decoder == nil {
		return User{}, ErrNoDecoder
	}
	claims, err := s.decoder.Decode(token)
	if err != nil {
		return User{}, err
	}
	user := User{
		ID:       claims.UserID(),
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevToken := s.token
	if err := s.kv.Put(ctx, storage.TokenKey, []byte(token)); err != nil {
		return User{}, fmt.Errorf("persist token: %w", err)
	}
	next := state{User: &user, IsAuthenticated: true}
	if err := s.persist(ctx, next); err != nil {
		s.restoreToken(ctx, prevToken)
		return User{}, err
	}

	s.state = next
	s.token = token
	s.record(ctx, user.ID, EventUserLoggedIn, UserLoggedIn{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		LoggedAt: s.now(),
	})
	return user, nil
}

// Logout clears the user and the token. The cart is cleared separately by
// the sign-out use case.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevToken := s.token
	if err := s.kv.Delete(ctx, storage.TokenKey); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if err := s.persist(ctx, state{}); err != nil {
		s.restoreToken(ctx, prevToken)
		return err
	}

	var userID string
	if s.state.User != nil {
		userID = s.state.User.ID
	}
	s.state = state{}
	s.token = ""
	s.record(ctx, userID, EventUserLoggedOut, UserLoggedOut{UserID: userID, LoggedAt: s.now()})
	return nil
}

// UpdateUser merges patch into the current user.
func (s *Store) UpdateUser(ctx context.Context, patch Patch) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.User == nil {
		return User{}, ErrNotAuthenticated
	}
	user := *s.state.User
	if patch.Username != nil {
		user.Username = *patch.Username
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}

	next := state{User: &user, IsAuthenticated: s.state.IsAuthenticated}
	if err := s.persist(ctx, next); err != nil {
		return User{}, err
	}
	s.state = next
	s.record(ctx, user.ID, EventUserUpdated, UserUpdated{UserID: user.ID, UpdatedAt: s.now()})
	return user, nil
}

// User returns the signed-in user.
func (s *Store) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return User{}, false
	}
	return *s.state.User, true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated && s.state.User != nil && s.state.User.IsAdmin()
}

// RequireAdmin returns ErrForbidden unless an admin is signed in.
func (s *Store) RequireAdmin() error {
	if !s.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// Token returns the stored bearer token, or "" when signed out.
func (s *Store) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *Store) persist(ctx context.Context, st state) error {
	data, err := json.Marshal(persistedSession{State: st, Version: persistVersion})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.kv.Put(ctx, storage.SessionKey, data); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (s *Store) restoreToken(ctx context.Context, token string) {
	var err error
	if token == "" {
		err = s.kv.Delete(ctx, storage.TokenKey)
	} else {
		err = s.kv.Put(ctx, storage.TokenKey, []byte(token))
	}
	if err != nil {
		s.logger.Error("failed to restore token after session write failure", zap.Error(err))
	}
}

func (s *Store) record(ctx context.Context, aggregateID, eventType string, data any) {
	if s.journal == nil {
		return
	}
	if aggregateID == "" {
		aggregateID = storage.SessionKey
	}
	if _, err := s.journal.Append(ctx, aggregateID, AggregateType, eventType, data); err != nil {
		s.logger.Warn("failed to record session event", zap.String("event_type", eventType), zap.Error(err))
	}
}
