// Package auth owns the client session: it logs users in and out, keeps the
// persisted token and user in step and tells subscribers when that changes.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	jwtauth "github.com/md-rashed-zaman/slotscheduler/libs/auth"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/api"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/events"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/session"
)

var errorMapper = api.Mapper{
	Messages: map[int]string{
		http.StatusUnauthorized:        "Invalid credentials",
		http.StatusInternalServerError: api.MsgServerError,
	},
	BadRequest: "Bad request",
}

type State struct {
	Authenticated bool
	User          *model.User
}

// Navigator moves the user to the login view after a logout.
type Navigator interface {
	ToLogin()
}

type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() { f() }

type Option func(*Service)

func WithNavigator(n Navigator) Option {
	return func(s *Service) { s.nav = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

type Service struct {
	api    *api.Client
	store  session.Store
	nav    Navigator
	events events.Publisher
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State
	subs  map[*subscriber]struct{}
}

// NewService restores any persisted session. A session that cannot be read,
// lacks a user or holds an expired token is cleared.
func NewService(ctx context.Context, client *api.Client, store session.Store, opts ...Option) *Service {
	s := &Service{
		api:    client,
		store:  store,
		events: events.Nop{},
		logger: slog.Default(),
		now:    time.Now,
		subs:   make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.restore(ctx)
	return s
}

func (s *Service) restore(ctx context.Context) {
	s.state = s.load(ctx)
}

// load reads the persisted session. Anything unusable is cleared from the
// store and reported as logged out.
func (s *Service) load(ctx context.Context) State {
	sess, err := s.store.Load(ctx)
	if err == nil && sess.Token != "" && sess.User != nil && jwtauth.Unexpired(sess.Token, s.now()) {
		return State{Authenticated: true, User: sess.User}
	}
	if err == nil && sess.Empty() {
		return State{}
	}
	if err != nil {
		s.logger.Warn("discarding unreadable session", "err", err)
	}
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("clear session failed", "err", err)
	}
	return State{}
}

// Refresh re-reads the store so logins and logouts made by another process
// sharing it become visible. Subscribers are notified only on a change.
func (s *Service) Refresh(ctx context.Context) State {
	next := s.load(ctx)
	prev := s.State()
	if next.Authenticated == prev.Authenticated && next.User.SameAs(prev.User) {
		return prev
	}
	s.setState(next)
	if next.Authenticated {
		s.logger.Info("session picked up from store", "user_id", next.User.ID)
	}
	return next
}

func (s *Service) Login(ctx context.Context, creds model.UserLogin) (*model.AuthToken, error) {
	var tok model.AuthToken
	if err := s.api.Post(ctx, "/auth/login", creds, &tok); err != nil {
		return nil, errorMapper.Map(err)
	}
	user := tok.User
	if err := s.store.Save(ctx, session.Session{Token: tok.AccessToken, User: &user}); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	s.setState(State{Authenticated: true, User: &user})
	s.logger.Info("logged in", "user_id", user.ID, "role", user.Role)
	events.Emit(ctx, s.events, s.logger, events.New(events.SessionLogin, user.ID, user.ID, map[string]any{
		"email": user.Email,
		"role":  user.Role,
	}))
	return &tok, nil
}

// Register creates an account. It does not log the new user in.
func (s *Service) Register(ctx context.Context, data model.UserCreate) (*model.User, error) {
	var user model.User
	if err := s.api.Post(ctx, "/auth/register", data, &user); err != nil {
		return nil, errorMapper.Map(err)
	}
	return &user, nil
}

// Logout clears the persisted session, publishes the logged-out state and
// navigates to login. The state changes even when clearing the store fails.
// The navigator only runs when a session was active.
func (s *Service) Logout(ctx context.Context) error {
	prev := s.State()
	active := prev.Authenticated || s.Token(ctx) != ""
	clearErr := s.store.Clear(ctx)
	if clearErr != nil {
		s.logger.Error("clear session failed", "err", clearErr)
		clearErr = fmt.Errorf("clear session: %w", clearErr)
	}
	s.setState(State{})

	userID := ""
	if prev.User != nil {
		userID = prev.User.ID
	}
	s.logger.Info("logged out", "user_id", userID)
	events.Emit(ctx, s.events, s.logger, events.New(events.SessionLogout, userID, userID, nil))

	if active && s.nav != nil {
		s.nav.ToLogin()
	}
	return clearErr
}

func (s *Service) CurrentUser() *model.User {
	return s.State().User
}

// IsAuthenticated checks the exp claim of the stored token. The signature is
// not verified; the API does that.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	return jwtauth.Unexpired(s.Token(ctx), s.now())
}

func (s *Service) IsAdmin() bool {
	return s.CurrentUser().IsAdmin()
}

func (s *Service) Token(ctx context.Context) string {
	return session.Token(ctx, s.store)
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	for sub := range s.subs {
		sub.offer(st)
	}
}
