package scheduler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/md-rashed-zaman/slotscheduler/libs/httpx"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/api"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/apitest"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/auth"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/config"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func login(t *testing.T, c *Client) {
	t.Helper()
	if _, err := c.Auth.Login(context.Background(), model.UserLogin{Email: "ada@example.com", Password: "secret-pass"}); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestBearerFollowsSession(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "secret-pass", model.UserRoleUser)

	c, err := New(context.Background(), Options{BaseURL: srv.BaseURL(), Store: session.NewMemoryStore()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := c.Slots.List(context.Background(), nil); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected unauthorized before login, got %v", err)
	}
	if req, _ := srv.LastRequest(); req.Authorization != "" {
		t.Fatalf("no token means no header, got %q", req.Authorization)
	}

	login(t, c)
	if _, err := c.Slots.List(context.Background(), nil); err != nil {
		t.Fatalf("list after login: %v", err)
	}
	req, _ := srv.LastRequest()
	if req.Authorization != "Bearer "+c.Auth.Token(context.Background()) {
		t.Fatalf("unexpected authorization %q", req.Authorization)
	}
	if req.ContentType != "application/json" {
		t.Fatalf("expected json content type with a token, got %q", req.ContentType)
	}
}

func TestUnauthorizedForcesOneLogout(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "secret-pass", model.UserRoleUser)
	store := session.NewMemoryStore()

	var navigations int
	c, err := New(context.Background(), Options{
		BaseURL:   srv.BaseURL(),
		Store:     store,
		Navigator: auth.NavigatorFunc(func() { navigations++ }),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	login(t, c)

	srv.FailNext(http.StatusUnauthorized, "Token revoked")
	_, err = c.Bookings.Mine(context.Background(), nil)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("caller must still see the 401, got %v", err)
	}
	if navigations != 1 {
		t.Fatalf("expected one redirect, got %d", navigations)
	}
	if sess, _ := store.Load(context.Background()); !sess.Empty() {
		t.Fatalf("session should be cleared: %+v", sess)
	}
	if c.Auth.State().Authenticated || c.Auth.IsAuthenticated(context.Background()) {
		t.Fatal("expected logged out state")
	}
}

func TestExpiredTokenIsNotAuthenticated(t *testing.T) {
	srv := apitest.New(t)
	user := srv.AddUser("ada@example.com", "secret-pass", model.UserRoleUser)
	store := session.NewMemoryStore()
	_ = store.Save(context.Background(), session.Session{Token: srv.Token(user, -time.Minute), User: &user})

	c, err := New(context.Background(), Options{BaseURL: srv.BaseURL(), Store: store})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Auth.IsAuthenticated(context.Background()) || c.Auth.CurrentUser() != nil {
		t.Fatal("expired session must not count as logged in")
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(context.Background(), Options{BaseURL: "http://localhost:8000/api"}); err == nil {
		t.Fatal("expected error without store")
	}
}

func testConfig(baseURL string) config.Config {
	return config.Config{
		API: config.API{
			BaseURL:     baseURL,
			Timeout:     5 * time.Second,
			QuotaWindow: time.Minute,
		},
		Session: config.Session{Backend: config.BackendMemory},
		Redis:   config.Redis{Prefix: "sched"},
	}
}

func TestBuildMemoryBackend(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "secret-pass", model.UserRoleUser)
	reg := prometheus.NewRegistry()

	rt, err := Build(context.Background(), testConfig(srv.BaseURL()), BuildOptions{Registerer: reg, Transport: http.DefaultTransport})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer rt.Close()

	login(t, rt.Client)
	if _, err := rt.Slots.List(context.Background(), nil); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := testutil.ToFloat64(rt.Metrics.Requests().WithLabelValues(http.MethodGet, "200")); got != 1 {
		t.Fatalf("expected one GET 200, got %v", got)
	}
	if req, _ := srv.LastRequest(); req.Authorization == "" {
		t.Fatal("expected bearer on built client")
	}
	if len(rt.Ready) != 0 {
		t.Fatalf("memory backend has nothing to check, got %d checks", len(rt.Ready))
	}
}

func TestBuildRedisBackendAndQuota(t *testing.T) {
	mr := miniredis.RunT(t)
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "secret-pass", model.UserRoleUser)

	cfg := testConfig(srv.BaseURL())
	cfg.Session.Backend = config.BackendRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.API.SharedQuota = 2

	rt, err := Build(context.Background(), cfg, BuildOptions{Transport: http.DefaultTransport})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer rt.Close()

	login(t, rt.Client)
	if !mr.Exists("sched:" + session.TokenKey) {
		t.Fatalf("expected token in redis, keys: %v", mr.Keys())
	}

	if _, err := rt.Slots.List(context.Background(), nil); err != nil {
		t.Fatalf("list within quota: %v", err)
	}
	_, err = rt.Slots.List(context.Background(), nil)
	if !errors.Is(err, httpx.ErrRateLimited) {
		t.Fatalf("expected quota error, got %v", err)
	}

	for _, check := range rt.Ready {
		if err := check.Check(context.Background()); err != nil {
			t.Fatalf("ready check %s: %v", check.Name, err)
		}
	}
	names := make([]string, 0, len(rt.Ready))
	for _, check := range rt.Ready {
		names = append(names, check.Name)
	}
	if strings.Join(names, ",") != "redis,session" {
		t.Fatalf("unexpected ready checks %v", names)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("http://localhost:8000/api")
	cfg.Session.Backend = "sqlite"
	if _, err := Build(context.Background(), cfg, BuildOptions{}); err == nil {
		t.Fatal("expected invalid backend to fail")
	}
}
