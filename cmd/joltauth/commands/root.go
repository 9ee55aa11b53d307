package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/jolt-auth/internal/app"
	"github.com/florianilch/jolt-auth/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return newRootCommand(os.Stdin, os.Stdout).Run(ctx, args)
}

func newRootCommand(in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "joltauth",
		Usage:  "Twitch account authorization for the streamer and chat bot",
		Reader: in,
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "path to a .env file loaded before the environment is read",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json|otlp|stdout-otel)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "store--file",
				Usage: "path to the credentials document",
			},
			&cli.StringFlag{
				Name:  "secret--storage",
				Usage: "client secret storage (document|file|env|keyring)",
				Value: string(app.DefaultConfigSecretStorage),
			},
		},
		Before: loadEnvFile,
		Commands: []*cli.Command{
			startCommand(),
			accountsCommand(),
			scopesCommand(),
			secretCommand(),
		},
	}
}

// loadEnvFile populates the process environment from --env-file. Variables
// already set take precedence over the file.
func loadEnvFile(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("env-file")
	if path == "" {
		return ctx, nil
	}
	if err := godotenv.Load(path); err != nil {
		return ctx, fmt.Errorf("loading env file: %w", err)
	}
	return ctx, nil
}

func startCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "serve the authorization endpoints and account API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server--host",
				Usage: "server host",
				Value: app.DefaultConfigServerHost,
			},
			&cli.IntFlag{
				Name:  "server--port",
				Usage: "server port",
				Value: int(app.DefaultConfigServerPort),
			},
			&cli.StringFlag{
				Name:  "server--public-url",
				Usage: "externally reachable base URL used for OAuth redirects",
			},
			&cli.BoolFlag{
				Name:  "metrics--enabled",
				Usage: "serve Prometheus metrics at /metrics",
			},
		},
		Action: startAction,
	}
}

func startAction(ctx context.Context, cmd *cli.Command) error {
	application, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer shutdown()

	slog.InfoContext(ctx, "starting")

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}

// configure loads configuration and installs logging.
// The returned func flushes the logging pipeline.
func configure(ctx context.Context, cmd *cli.Command) (*app.Config, func(), error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	shutdownObservability, err := observability.Instrument(ctx, cfg.LogLevel, string(cfg.LogFormat))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}
	shutdown := func() {
		if err := shutdownObservability(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintln(os.Stderr, "flushing logs:", err)
		}
	}

	return cfg, shutdown, nil
}

// setup configures the process and builds the application. The returned
// func releases the credentials document and flushes logs.
func setup(ctx context.Context, cmd *cli.Command) (*app.App, func(), error) {
	cfg, flush, err := configure(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		flush()
		return nil, nil, fmt.Errorf("failed to create app: %w", err)
	}

	shutdown := func() {
		if err := application.Close(); err != nil {
			slog.WarnContext(ctx, "failed to release credentials document", "error", err)
		}
		flush()
	}
	return application, shutdown, nil
}
