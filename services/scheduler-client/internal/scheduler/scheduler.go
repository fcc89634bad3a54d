// Package scheduler wires the session store, the authenticated transport and
// the auth, slot and booking services into one client.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/slotscheduler/libs/httpx"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/api"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/auth"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/bookings"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/events"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/interceptor"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/session"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/slots"
)

type Options struct {
	BaseURL string
	Store   session.Store
	// Transport is the innermost round tripper; nil means
	// http.DefaultTransport.
	Transport http.RoundTripper
	// Middleware runs before the bearer token is attached.
	Middleware []httpx.Middleware
	Timeout    time.Duration
	Navigator  auth.Navigator
	Events     events.Publisher
	Logger     *slog.Logger
	Clock      func() time.Time
}

type Client struct {
	API      *api.Client
	Store    session.Store
	Auth     *auth.Service
	Slots    *slots.Service
	Bookings *bookings.Service
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Store == nil {
		return nil, errors.New("scheduler: session store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	// the interceptor needs the auth service for logout, and the auth
	// service needs the client the interceptor is part of
	var authSvc *auth.Service
	logout := func(ctx context.Context) {
		if authSvc == nil {
			return
		}
		opts.Logger.Warn("api rejected the session, logging out")
		_ = authSvc.Logout(ctx)
	}
	tokens := interceptor.TokenFunc(func(ctx context.Context) string {
		return session.Token(ctx, opts.Store)
	})

	middleware := append(append([]httpx.Middleware{}, opts.Middleware...), interceptor.New(tokens, logout))
	hc := &http.Client{
		Transport: httpx.Chain(opts.Transport, middleware...),
		Timeout:   opts.Timeout,
	}
	client, err := api.NewClient(opts.BaseURL, hc)
	if err != nil {
		return nil, err
	}

	authSvc = auth.NewService(ctx, client, opts.Store,
		auth.WithNavigator(opts.Navigator),
		auth.WithEvents(opts.Events),
		auth.WithLogger(opts.Logger),
		auth.WithClock(opts.Clock),
	)

	return &Client{
		API:   client,
		Store: opts.Store,
		Auth:  authSvc,
		Slots: slots.NewService(client,
			slots.WithEvents(opts.Events),
			slots.WithLogger(opts.Logger),
			slots.WithClock(opts.Clock),
		),
		Bookings: bookings.NewService(client,
			bookings.WithEvents(opts.Events),
			bookings.WithLogger(opts.Logger),
		),
	}, nil
}
