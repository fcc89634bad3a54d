package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	libconfig "github.com/md-rashed-zaman/slotscheduler/libs/config"
	otelx "github.com/md-rashed-zaman/slotscheduler/libs/otel"
	"github.com/md-rashed-zaman/slotscheduler/libs/runtime"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/auth"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/config"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks bad invocations; they exit with status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

type app struct {
	rt     *scheduler.Runtime
	reg    *prometheus.Registry
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	json   bool
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":    cmdLogin,
	"register": cmdRegister,
	"logout":   cmdLogout,
	"whoami":   cmdWhoami,
	"status":   cmdStatus,
	"slots":    cmdSlots,
	"bookings": cmdBookings,
	"watch":    cmdWatch,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scheduler-client", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configFile = fs.String("config", "", "config file (default: scheduler.yaml in . or the user config dir)")
		envFile    = fs.String("env-file", ".env", "dotenv file loaded before config")
		jsonOut    = fs.Bool("json", libconfig.Bool("SCHEDULER_JSON", false), "print JSON instead of tables")
		logLevel   = fs.String("log-level", "", "override log.level")
	)
	fs.Usage = func() { printUsage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		printUsage(stderr, fs)
		return exitUsage
	}
	name, rest := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		printUsage(stderr, fs)
		return exitUsage
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "load %s: %v\n", *envFile, err)
		return exitError
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	logger := runtime.NewLogger(config.ServiceName, cfg.Log.Level, stderr).With("environment", cfg.Environment)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, cfg.Otel)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout())
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	reg := prometheus.NewRegistry()
	rt, err := scheduler.Build(ctx, cfg, scheduler.BuildOptions{
		Logger:     logger,
		Registerer: reg,
		Navigator: auth.NavigatorFunc(func() {
			fmt.Fprintln(stderr, "Session ended. Run `scheduler-client login` to sign in again.")
		}),
	})
	if err != nil {
		logger.Error("client setup failed", "err", err)
		return exitError
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("close failed", "err", err)
		}
	}()

	a := &app{rt: rt, reg: reg, logger: logger, in: stdin, out: stdout, errOut: stderr, json: *jsonOut}

	spanCtx, span := otelx.StartSpan(ctx, "cli."+name, attribute.String("cli.args", strings.Join(rest, " ")))
	err = cmd(spanCtx, a, rest)
	otelx.EndSpan(span, err)

	var usage usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &usage):
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return exitUsage
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

func shutdownTimeout() time.Duration {
	return libconfig.Duration("SCHEDULER_SHUTDOWN_TIMEOUT", 5*time.Second)
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "usage: scheduler-client [flags] <command> [args]\n\ncommands: %s\n\nflags:\n", strings.Join(names, ", "))
	fs.PrintDefaults()
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// parse turns flag errors into usage errors.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}
	return nil
}
