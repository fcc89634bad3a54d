package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	libauth "github.com/md-rashed-zaman/slotscheduler/libs/auth"
	libconfig "github.com/md-rashed-zaman/slotscheduler/libs/config"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/watch"
)

func (a *app) password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := libconfig.String("SCHEDULER_PASSWORD", ""); env != "" {
		return env, nil
	}
	fmt.Fprint(a.errOut, "Password: ")
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", usagef("password required (-password, SCHEDULER_PASSWORD or stdin)")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	pass := fs.String("password", "", "account password (prefer SCHEDULER_PASSWORD or stdin)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return usagef("-email is required")
	}
	pw, err := a.password(*pass)
	if err != nil {
		return err
	}

	tok, err := a.rt.Auth.Login(ctx, model.UserLogin{Email: *email, Password: pw})
	if err != nil {
		return err
	}
	if a.json {
		return printJSON(a.out, tok.User)
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", displayName(&tok.User), tok.User.Role)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flags("register")
	email := fs.String("email", "", "account email")
	first := fs.String("first-name", "", "first name")
	last := fs.String("last-name", "", "last name")
	role := fs.String("role", string(model.UserRoleUser), "user or admin")
	pass := fs.String("password", "", "account password (prefer SCHEDULER_PASSWORD or stdin)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return usagef("-email is required")
	}
	r := model.UserRole(*role)
	if r != model.UserRoleUser && r != model.UserRoleAdmin {
		return usagef("-role must be user or admin")
	}
	pw, err := a.password(*pass)
	if err != nil {
		return err
	}

	user, err := a.rt.Auth.Register(ctx, model.UserCreate{
		Email:     *email,
		FirstName: *first,
		LastName:  *last,
		Role:      r,
		Password:  pw,
	})
	if err != nil {
		return err
	}
	if a.json {
		return printJSON(a.out, user)
	}
	fmt.Fprintf(a.out, "Registered %s. Run `scheduler-client login -email %s` to sign in.\n", user.Email, user.Email)
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return usagef("logout takes no arguments")
	}
	return a.rt.Auth.Logout(ctx)
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return usagef("whoami takes no arguments")
	}
	user := a.rt.Auth.CurrentUser()
	if user == nil || !a.rt.Auth.IsAuthenticated(ctx) {
		return errors.New("not logged in")
	}
	if a.json {
		return printJSON(a.out, user)
	}
	printUser(a.out, user)
	return nil
}

type statusReport struct {
	Authenticated bool       `json:"authenticated"`
	Admin         bool       `json:"admin"`
	Email         string     `json:"email,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	APIBaseURL    string     `json:"api_base_url"`
	Backend       string     `json:"session_backend"`
}

func cmdStatus(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return usagef("status takes no arguments")
	}
	rep := statusReport{
		Authenticated: a.rt.Auth.IsAuthenticated(ctx),
		Admin:         a.rt.Auth.IsAdmin(),
		APIBaseURL:    a.rt.API.BaseURL(),
		Backend:       a.rt.Config.Session.Backend,
	}
	if u := a.rt.Auth.CurrentUser(); u != nil {
		rep.Email = u.Email
	}
	if claims, err := libauth.ParseNoVerify(a.rt.Auth.Token(ctx)); err == nil && claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		rep.ExpiresAt = &exp
	}
	if a.json {
		return printJSON(a.out, rep)
	}
	w := newTable(a.out)
	fmt.Fprintf(w, "Authenticated\t%t\n", rep.Authenticated)
	fmt.Fprintf(w, "Admin\t%t\n", rep.Admin)
	if rep.Email != "" {
		fmt.Fprintf(w, "Email\t%s\n", rep.Email)
	}
	if rep.ExpiresAt != nil {
		fmt.Fprintf(w, "Token expires\t%s\n", rep.ExpiresAt.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(w, "API\t%s\n", rep.APIBaseURL)
	fmt.Fprintf(w, "Session backend\t%s\n", rep.Backend)
	return w.Flush()
}

func sortedKeys(m map[string]command) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func subcommand(group string, args []string, subs map[string]command) (command, []string, error) {
	if len(args) == 0 {
		return nil, nil, usagef("%s needs a subcommand: %s", group, strings.Join(sortedKeys(subs), ", "))
	}
	cmd, ok := subs[args[0]]
	if !ok {
		return nil, nil, usagef("unknown %s subcommand %q", group, args[0])
	}
	return cmd, args[1:], nil
}

// oneID parses fs and requires exactly one positional id.
func oneID(fs *flag.FlagSet, args []string, what string) (string, error) {
	if err := parse(fs, args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", usagef("expected exactly one %s id", what)
	}
	return fs.Arg(0), nil
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	fs := a.flags("watch")
	schedule := fs.String("schedule", a.rt.Config.Watch.Schedule, "cron spec for polling")
	addr := fs.String("metrics-addr", a.rt.Config.Watch.MetricsAddr, "listen address for /metrics, /healthz and /readyz; empty disables")
	if err := parse(fs, args); err != nil {
		return err
	}

	metrics := watch.NewMetrics("scheduler_client")
	if err := metrics.Register(a.reg); err != nil {
		return fmt.Errorf("register watch metrics: %w", err)
	}
	w := watch.New(a.rt.Slots, a.rt.Auth,
		watch.WithSchedule(*schedule),
		watch.WithEvents(a.rt.Events),
		watch.WithLogger(a.logger),
		watch.WithMetrics(metrics),
	)

	if *addr != "" {
		srv := &http.Server{
			Addr:              *addr,
			Handler:           watch.Handler(a.reg, a.rt.Ready...),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info("metrics listening", "addr", *addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout())
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if !a.rt.Auth.IsAuthenticated(ctx) {
		a.logger.Warn("not logged in; the watcher idles until a session exists")
	}
	return w.Run(ctx)
}
