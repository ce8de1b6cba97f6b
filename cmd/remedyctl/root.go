package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/h1v3-io/remedyctl/internal/casestore"
	"github.com/h1v3-io/remedyctl/internal/config"
	"github.com/h1v3-io/remedyctl/internal/journal"
	"github.com/h1v3-io/remedyctl/internal/logbuf"
	"github.com/h1v3-io/remedyctl/internal/orchestrator"
)

// logTail is how many log entries are kept for failure notifications.
const logTail = 200

// app carries the state of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// global flags
	profilesPath string
	profile      string
	casedb       string
	journalPath  string
	logLevel     string
	logFile      string
	lockTimeout  time.Duration
	envFile      string

	runID   string
	logger  *slog.Logger
	logs    *logbuf.Buffer
	closers []io.Closer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		runID:  uuid.NewString(),
		logs:   logbuf.New(logTail),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.closers = nil
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "remedyctl",
		Short:         "Create, list and close Remedy incident tickets for local cases",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupLogging(cmd.Name())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&a.profilesPath, "profiles", "", "profiles file (default $REMEDY_PROFILES or <config dir>/remedyctl/profiles.json)")
	pf.StringVar(&a.profile, "profile", config.DefaultProfile, `profile name, "" to use flags only`)
	pf.StringVar(&a.casedb, "casedb", "", "case database path")
	pf.StringVar(&a.journalPath, "journal", "", "SQLite journal path")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFile, "log-file", "", "also write logs to this file, rotated")
	pf.DurationVar(&a.lockTimeout, "lock-timeout", 0, "give up waiting for the case database lock after this long (0 waits forever)")
	pf.StringVar(&a.envFile, "env-file", "", "load environment variables from this file (default ./.env when present)")

	root.AddCommand(
		a.createCmd(),
		a.listCmd(),
		a.closeCmd(),
		a.historyCmd(),
		a.versionCmd(),
	)
	return root
}

func (a *app) setupLogging(command string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return &config.Error{Msg: fmt.Sprintf("log level %q", a.logLevel), Err: err}
	}

	var out io.Writer = a.stderr
	if a.logFile != "" {
		lj := &lumberjack.Logger{
			Filename:   a.logFile,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
		}
		a.closers = append(a.closers, lj)
		out = io.MultiWriter(a.stderr, lj)
	}

	inner := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	a.logger = slog.New(logbuf.NewHandler(inner, a.logs, slog.LevelDebug)).
		With("run_id", a.runID, "command", command)
	return nil
}

// settings resolves the effective configuration: explicit flags first, then
// the selected profile, then environment secrets.
func (a *app) settings(cmd *cobra.Command, o config.Overrides) (config.Settings, error) {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return config.Settings{}, err
	}

	var prof config.Profile
	if a.profile != "" {
		path := a.profilesPath
		if path == "" {
			path = config.DefaultProfilesPath()
		}
		profiles, err := config.LoadProfiles(path)
		if err != nil {
			return config.Settings{}, err
		}
		if prof, err = profiles.Get(a.profile); err != nil {
			return config.Settings{}, err
		}
		a.logger.Debug("profile loaded", "profile", a.profile, "path", path)
	}

	flags := cmd.Flags()
	if flags.Changed("casedb") {
		o.CaseDB = &a.casedb
	}
	if flags.Changed("journal") {
		o.Journal = &a.journalPath
	}
	if flags.Changed("lock-timeout") {
		o.LockTimeout = &a.lockTimeout
	}

	s, err := config.Merge(a.profile, prof, o)
	if err != nil {
		return config.Settings{}, err
	}
	if err := s.ApplyEnv(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

// orchestrator wires the components selected by s.
func (a *app) orchestrator(s config.Settings, cfg orchestrator.Config) (*orchestrator.Orchestrator, error) {
	cfg.CaseDB = s.CaseDB
	cfg.Profile = s.Profile
	cfg.RunID = a.runID
	cfg.Subject = s.Notify.Subject
	cfg.Logs = a.logs
	cfg.Logger = a.logger
	if s.LockTimeout > 0 {
		cfg.StoreOptions = append(cfg.StoreOptions, casestore.WithLockTimeout(s.LockTimeout))
	}

	if s.Journal != "" {
		j, err := journal.OpenSQLite(s.Journal)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, j)
		cfg.Journal = j
	}
	return orchestrator.New(cfg), nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(a.stdout, version)
			return nil
		},
	}
}
