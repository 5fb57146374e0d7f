package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"envswitch/internal/app"
	"envswitch/internal/config"
	"envswitch/internal/logging"
	"envswitch/internal/profile"
	"envswitch/internal/store"
	storesqlite "envswitch/internal/store/sqlite"
	"envswitch/internal/util/execx"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

type options struct {
	configFile string
	dryRun     bool
	logFormat  string
	logLevel   string
	noHistory  bool
	history    int
	mode       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var o options

	k := kingpin.New("envswitch", "Switch the Strapi deployment between its dev and prod profiles")
	k.Version(fmt.Sprintf("%s (built %s)", Version, BuildTime))
	k.UsageWriter(stderr)
	k.ErrorWriter(stderr)

	k.Flag("config", "Path to YAML configuration file (built-in defaults when empty)").Envar("ENVSWITCH_CONFIG").StringVar(&o.configFile)
	k.Flag("dry-run", "Show the steps that would run, change nothing").BoolVar(&o.dryRun)
	k.Flag("log-format", "Log encoding, overrides log.format").EnumVar(&o.logFormat, "console", "json")
	k.Flag("log-level", "Log level, overrides log.level").StringVar(&o.logLevel)
	k.Flag("no-history", "Do not record this run in the history database").BoolVar(&o.noHistory)
	k.Flag("history", "Print the last N recorded runs and exit").IntVar(&o.history)
	k.Arg("mode", "Profile to switch to").HintOptions(profile.Dev.String(), profile.Prod.String()).StringVar(&o.mode)

	if _, err := k.Parse(args); err != nil {
		return o, err
	}
	if o.history < 0 {
		return o, fmt.Errorf("--history must not be negative")
	}
	if o.history > 0 && o.noHistory {
		return o, fmt.Errorf("--history and --no-history are mutually exclusive")
	}
	if o.history == 0 && o.mode == "" {
		return o, fmt.Errorf("required argument 'mode' not provided (dev or prod)")
	}
	// reject a bad mode before the config, log file or history db is touched
	if o.mode != "" {
		if _, err := profile.ParseMode(o.mode); err != nil {
			return o, err
		}
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseArgs(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "envswitch: error: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load(o.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitFail
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	logger, err := logging.New(logging.Options{Format: cfg.Log.Format, Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitFail
	}
	defer func() {
		_ = logger.Sync()
	}()

	var st *storesqlite.Store
	if !o.noHistory {
		st, err = openStore(cfg.ResolvePaths().SQLitePath)
		if err != nil {
			if o.history > 0 {
				fmt.Fprintf(stderr, "history: %v\n", err)
				return exitFail
			}
			// a missing history database must not block a switch
			logger.Warn("run history disabled", zap.Error(err))
		} else {
			defer st.Close()
		}
	}

	if o.history > 0 {
		runs, err := st.ListRuns(o.history)
		if err != nil {
			fmt.Fprintf(stderr, "history: %v\n", err)
			return exitFail
		}
		printHistory(stdout, runs)
		return exitOK
	}

	opts := []app.Option{}
	if st != nil {
		opts = append(opts, app.WithStore(st))
	}
	core, err := app.New(cfg, logger, execx.ExecRunner{Timeout: cfg.Exec.Timeout}, opts...)
	if err != nil {
		logger.Error("failed to initialize", zap.Error(err))
		return exitFail
	}

	res, applyErr := core.Apply(ctx, app.ApplyRequest{Mode: o.mode, DryRun: o.dryRun})
	if errors.Is(applyErr, profile.ErrInvalidMode) {
		fmt.Fprintf(stderr, "envswitch: error: %v\n", applyErr)
		return exitUsage
	}

	printSummary(stdout, res)
	for _, w := range multierr.Errors(res.Warnings) {
		fmt.Fprintln(stdout, "WARN:", w)
	}
	if applyErr != nil {
		fmt.Fprintln(stderr, "FAIL:", applyErr)
		return exitFail
	}

	if o.dryRun {
		fmt.Fprintln(stdout, "dry-run done.")
		return exitOK
	}
	fmt.Fprintf(stdout, "Switched to %s mode.\n", res.Mode)
	return exitOK
}

func openStore(path string) (*storesqlite.Store, error) {
	st, err := storesqlite.Open(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

func printSummary(w io.Writer, res app.ApplyResult) {
	if len(res.Steps) == 0 {
		return
	}
	fmt.Fprintf(w, "%-12s  %-8s  %-8s  %s\n", "STEP", "STATUS", "ON ERROR", "DETAIL")
	for _, s := range res.Steps {
		detail := s.Message
		if s.Err != nil {
			detail = s.Err.Error()
		}
		fmt.Fprintf(w, "%-12s  %-8s  %-8s  %s\n", s.Name, s.Status, s.Policy, detail)
	}
}

func printHistory(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-5s  %-5s  %-7s  %-6s  %-20s  %s\n", "ID", "MODE", "DRY RUN", "STATUS", "STARTED", "ERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%-5d  %-5s  %-7v  %-6s  %-20s  %s\n",
			r.ID, r.Mode, r.DryRun, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"), r.Error)
	}
}
