package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/apitest"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
)

type cli struct {
	t   *testing.T
	srv *apitest.Server
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := apitest.New(t)
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("SCHEDULER_API_BASEURL", srv.BaseURL())
	t.Setenv("SCHEDULER_SESSION_BACKEND", "file")
	t.Setenv("SCHEDULER_SESSION_PATH", filepath.Join(dir, "session.json"))
	t.Setenv("SCHEDULER_LOG_LEVEL", "error")
	t.Setenv("SCHEDULER_PASSWORD", "")
	return &cli{t: t, srv: srv}
}

func (c *cli) run(stdin string, args ...string) (int, string, string) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func (c *cli) login(email string) {
	c.t.Helper()
	if code, _, stderr := c.run("secret-pass\n", "login", "-email", email); code != exitOK {
		c.t.Fatalf("login exit %d: %s", code, stderr)
	}
}

func TestUsage(t *testing.T) {
	c := newCLI(t)
	if code, _, _ := c.run(""); code != exitUsage {
		t.Fatalf("expected usage exit, got %d", code)
	}
	if code, _, stderr := c.run("", "frobnicate"); code != exitUsage || !strings.Contains(stderr, "unknown command") {
		t.Fatalf("expected unknown command, got %d %q", code, stderr)
	}
	if code, _, _ := c.run("", "slots"); code != exitUsage {
		t.Fatalf("expected missing subcommand usage, got %d", code)
	}
	if code, _, _ := c.run("", "slots", "get"); code != exitUsage {
		t.Fatalf("expected missing id usage, got %d", code)
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	c := newCLI(t)
	c.srv.AddUser("ada@example.com", "secret-pass", model.UserRoleAdmin)

	code, out, stderr := c.run("wrong\n", "login", "-email", "ada@example.com")
	if code != exitError || !strings.Contains(stderr, "Invalid credentials") {
		t.Fatalf("expected invalid credentials, got %d %q", code, stderr)
	}
	if strings.Contains(stderr, "Session ended") {
		t.Fatalf("failed login without a session must not print the logout hint: %q", stderr)
	}

	c.login("ada@example.com")

	code, out, _ = c.run("", "-json", "whoami")
	if code != exitOK {
		t.Fatalf("whoami exit %d", code)
	}
	var u model.User
	if err := json.Unmarshal([]byte(out), &u); err != nil || u.Email != "ada@example.com" {
		t.Fatalf("unexpected whoami output %q", out)
	}

	code, out, _ = c.run("", "-json", "status")
	if code != exitOK || !strings.Contains(out, `"authenticated": true`) || !strings.Contains(out, `"admin": true`) {
		t.Fatalf("unexpected status %d %q", code, out)
	}

	if code, _, _ := c.run("", "logout"); code != exitOK {
		t.Fatalf("logout exit %d", code)
	}
	if code, _, _ := c.run("", "whoami"); code != exitError {
		t.Fatalf("expected whoami to fail after logout, got %d", code)
	}
}

func TestSlotAndBookingFlow(t *testing.T) {
	c := newCLI(t)
	c.srv.AddUser("admin@example.com", "secret-pass", model.UserRoleAdmin)
	c.login("admin@example.com")

	start := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(25 * time.Hour).UTC().Format(time.RFC3339)
	code, out, stderr := c.run("", "-json", "slots", "create", "-title", "Pottery", "-start", start, "-end", end, "-max", "2")
	if code != exitOK {
		t.Fatalf("create slot exit %d: %s", code, stderr)
	}
	var slot model.Slot
	if err := json.Unmarshal([]byte(out), &slot); err != nil || slot.ID == "" {
		t.Fatalf("unexpected slot output %q", out)
	}

	code, out, _ = c.run("", "slots", "list", "-available")
	if code != exitOK || !strings.Contains(out, "Pottery") {
		t.Fatalf("unexpected list %d %q", code, out)
	}
	if req, _ := c.srv.LastRequest(); req.Query != "available_only=true" {
		t.Fatalf("unexpected query %q", req.Query)
	}

	if code, _, stderr := c.run("", "bookings", "create", "-slot", slot.ID, "-notes", "bring clay"); code != exitOK {
		t.Fatalf("book exit %d: %s", code, stderr)
	}
	code, _, stderr = c.run("", "bookings", "create", "-slot", slot.ID)
	if code != exitError || !strings.Contains(stderr, "You already have a booking for this slot") {
		t.Fatalf("expected conflict, got %d %q", code, stderr)
	}

	code, out, _ = c.run("", "bookings", "has", slot.ID)
	if code != exitOK || strings.TrimSpace(out) != "true" {
		t.Fatalf("expected has=true, got %d %q", code, out)
	}

	code, out, _ = c.run("", "slots", "update", "-available=false", slot.ID)
	if code != exitOK || !strings.Contains(out, "Updated slot") {
		t.Fatalf("update exit %d %q", code, out)
	}
	if got, _ := c.srv.Slot(slot.ID); got.IsAvailable {
		t.Fatal("slot should be closed")
	}

	code, _, stderr = c.run("", "slots", "get", "not-a-uuid")
	if code != exitError || !strings.Contains(stderr, "invalid id") {
		t.Fatalf("expected invalid id error, got %d %q", code, stderr)
	}
}

func TestExpiredSessionHint(t *testing.T) {
	c := newCLI(t)
	c.srv.AddUser("ada@example.com", "secret-pass", model.UserRoleUser)
	c.login("ada@example.com")

	c.srv.FailNext(401, "Token revoked")
	code, _, stderr := c.run("", "bookings", "mine")
	if code != exitError {
		t.Fatalf("expected failure, got %d", code)
	}
	if !strings.Contains(stderr, "scheduler-client login") {
		t.Fatalf("expected login hint, got %q", stderr)
	}
	if code, _, _ := c.run("", "whoami"); code != exitError {
		t.Fatal("401 should have cleared the stored session")
	}
}
