package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/abrezinsky/sportsmeet/internal/app"
	"github.com/abrezinsky/sportsmeet/internal/auth"
	"github.com/abrezinsky/sportsmeet/internal/config"
	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/services"
	"github.com/abrezinsky/sportsmeet/internal/voterkey"
)

var (
	version = "dev"
)

func main() {
	if err := newCLI(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newCLI builds the command tree; output goes to out
func newCLI(out io.Writer) *cli.App {
	return &cli.App{
		Name:    "sportsmeet",
		Usage:   "Sports meet scoring and voting server",
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "sportsmeet.yaml",
				Usage:   "path to the YAML config file (optional)",
				EnvVars: []string{"SPORTSMEET_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file loaded before the config (optional)",
			},
		},
		Before: func(c *cli.Context) error {
			return loadEnvFile(c.String("env-file"))
		},
		Commands: []*cli.Command{
			serveCommand(),
			reconcileCommand(),
			seedCommand(),
			tokenCommand(),
			versionCommand(),
		},
	}
}

// loadEnvFile loads a dotenv file; a missing file is not an error
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.Server.DBPath = c.String("db")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logger.SlogLogger {
	return logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(cfg.Server.LogLevel),
		Format: cfg.Server.LogFormat,
	})
}

var dbFlag = &cli.StringFlag{
	Name:  "db",
	Usage: "SQLite database path (overrides server.db_path)",
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API, live hub and reconciliation scheduler",
		Flags: []cli.Flag{
			dbFlag,
			&cli.IntFlag{Name: "port", Usage: "HTTP server port (overrides server.port)"},
			&cli.StringFlag{Name: "admin-password", Usage: "organizer password (generated if unset)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json"},
			&cli.StringFlag{Name: "base-url", Usage: "public URL encoded into voting QR codes"},
			&cli.BoolFlag{Name: "http-log", Usage: "log every HTTP request"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			applyServeFlags(c, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			appLog := newLogger(cfg)
			if c.Bool("http-log") {
				appLog.EnableHTTPLogging()
			}

			password := cfg.Server.AdminPassword
			if password == "" {
				password = auth.GeneratePassword()
				appLog.Info("Admin password", "password", password)
			}

			a, err := app.New(cfg, appLog, auth.New(password))
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			go watchLogSignals(ctx, appLog)

			return a.Run(ctx)
		},
	}
}

// applyServeFlags copies explicitly set serve flags over the loaded config
func applyServeFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("admin-password") {
		cfg.Server.AdminPassword = c.String("admin-password")
	}
	if c.IsSet("log-level") {
		cfg.Server.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Server.LogFormat = c.String("log-format")
	}
	if c.IsSet("base-url") {
		cfg.Server.BaseURL = c.String("base-url")
	}
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "recompute vote summaries and color totals once, then exit",
		Flags: []cli.Flag{dbFlag},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			a, err := app.New(cfg, newLogger(cfg), auth.New(auth.GeneratePassword()))
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Reconcile(c.Context)
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, map[string]interface{}{
				"repaired":      report.Repaired(),
				"duration_ms":   report.Duration.Milliseconds(),
				"summary_drift": report.SummaryDrift,
				"color_drift":   report.ColorDrift,
			})
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load colors, sports, events, athletes and scoring rules from a meet file",
		Flags: []cli.Flag{
			dbFlag,
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "meet YAML file", Required: true},
		},
		Action: func(c *cli.Context) error {
			f, err := os.Open(c.String("file"))
			if err != nil {
				return err
			}
			defer f.Close()

			meet, err := services.ParseMeetFile(f)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			a, err := app.New(cfg, newLogger(cfg), auth.New(auth.GeneratePassword()))
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Seed(c.Context, meet)
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, report)
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue a signed voter token for a registered voter",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Usage: "voter id", Required: true},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "token lifetime"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if cfg.Voting.VoterTokenSecret == "" {
				return errors.New("voting.voter_token_secret is not configured")
			}

			token, err := voterkey.New(cfg.Voting.VoterTokenSecret, cfg.Voting.DeviceSalt).
				IssueToken(c.String("subject"), c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the version",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "sportsmeet %s\n", version)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// cycleLogLevel cycles through debug -> info -> warn -> error
func cycleLogLevel(appLog *logger.SlogLogger) string {
	var next string
	switch appLog.GetLevel().String() {
	case "DEBUG":
		next = "info"
	case "INFO":
		next = "warn"
	case "WARN":
		next = "error"
	case "ERROR":
		next = "debug"
	default:
		next = "info"
	}

	appLog.SetLevel(logger.ParseLevel(next))
	return next
}

// toggleHTTPLogging flips per-request logging and reports the new state
func toggleHTTPLogging(appLog *logger.SlogLogger) bool {
	if appLog.IsHTTPLoggingEnabled() {
		appLog.DisableHTTPLogging()
		return false
	}
	appLog.EnableHTTPLogging()
	return true
}

// watchLogSignals adjusts logging at runtime until ctx is cancelled
func watchLogSignals(ctx context.Context, appLog *logger.SlogLogger) {
	sigs := make(chan os.Signal, 1)
	notifyLogSignals(sigs)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			if isLevelSignal(sig) {
				appLog.Warn("Log level changed", "level", cycleLogLevel(appLog))
			} else {
				appLog.Warn("HTTP request logging toggled", "enabled", toggleHTTPLogging(appLog))
			}
		}
	}
}
