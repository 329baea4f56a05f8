package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cybertec-postgresql/sqlconsole/internal/cli"
	"github.com/cybertec-postgresql/sqlconsole/internal/logger"
	"github.com/cybertec-postgresql/sqlconsole/internal/report"
	urfavecli "github.com/urfave/cli/v3"
)

const version = "1.0.0"

func main() {
	app := &urfavecli.Command{
		Name:    "sqlconsole",
		Usage:   "Strip comments from SQL and execute it against configured databases",
		Version: version,
		Flags: []urfavecli.Flag{
			&urfavecli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				Sources: urfavecli.EnvVars("SQLCONSOLE_CONFIG"),
			},
			&urfavecli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug output",
			},
		},
		Commands: []*urfavecli.Command{
			{
				Name:      "strip",
				Usage:     "Print SQL with its comments removed",
				ArgsUsage: "[file|-]",
				Action:    stripCommand,
				Flags: []urfavecli.Flag{
					&urfavecli.BoolFlag{
						Name:  "keep-lines",
						Usage: "Keep the line breaks of block comments so line numbers are preserved",
					},
				},
			},
			{
				Name:      "encode",
				Usage:     "Print the base64 form the console submits",
				ArgsUsage: "[file|-]",
				Action:    encodeCommand,
			},
			{
				Name:      "exec",
				Usage:     "Strip and execute SQL scripts",
				ArgsUsage: "[paths...|-]",
				Action:    execCommand,
				Flags: []urfavecli.Flag{
					&urfavecli.StringFlag{
						Name:    "data-source",
						Aliases: []string{"d"},
						Usage:   "Configured data source name",
					},
					&urfavecli.StringFlag{
						Name:  "kind",
						Usage: "Ad hoc data source kind (postgres, sqlite or mysql), used with --dsn",
						Value: "postgres",
					},
					&urfavecli.StringFlag{
						Name:    "dsn",
						Usage:   "Ad hoc connection string",
						Sources: urfavecli.EnvVars("SQLCONSOLE_DSN"),
					},
					&urfavecli.StringFlag{
						Name:  "format",
						Usage: fmt.Sprintf("Output format %v", report.SupportedFormats()),
						Value: "text",
					},
					&urfavecli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (use - for stdout)",
						Value:   "-",
					},
					&urfavecli.BoolFlag{
						Name:  "dry-run",
						Usage: "Roll back every script instead of committing",
					},
					&urfavecli.DurationFlag{
						Name:  "timeout",
						Usage: "Per-script timeout",
					},
					&urfavecli.IntFlag{
						Name:  "max-rows",
						Usage: "Rows kept per result",
					},
					&urfavecli.IntFlag{
						Name:  "parallel",
						Usage: "Maximum concurrent scripts (1 = sequential)",
					},
					&urfavecli.StringFlag{
						Name:  "history-file",
						Usage: "History file path",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP console API",
				Action: serveCommand,
				Flags: []urfavecli.Flag{
					&urfavecli.StringFlag{
						Name:  "listen",
						Usage: "Listen address",
					},
					&urfavecli.StringFlag{
						Name:    "token-secret",
						Usage:   "HMAC secret for session tokens",
						Sources: urfavecli.EnvVars("SQLCONSOLE_TOKEN_SECRET"),
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Show executed statements",
				Action: historyCommand,
				Flags: []urfavecli.Flag{
					&urfavecli.IntFlag{
						Name:  "limit",
						Usage: "Number of entries to show (0 = all)",
						Value: 20,
					},
					&urfavecli.StringFlag{
						Name:  "format",
						Usage: "Output format (text or json)",
						Value: "text",
					},
				},
			},
			{
				Name:   "hash-password",
				Usage:  "Read a password from stdin and print its bcrypt hash",
				Action: hashPasswordCommand,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies the flags that are
// shared by all commands
func loadConfig(cmd *urfavecli.Command, o cli.Overrides, serving bool) (*cli.Config, error) {
	config, err := cli.LoadConfigFile(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	o.Verbose = cmd.Bool("verbose")
	cli.ApplyFlagsToConfig(config, o)
	logger.SetVerbose(config.Verbose)

	if err := cli.Validate(config, serving); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	return config, nil
}

// stripCommand handles the 'sqlconsole strip' command
func stripCommand(_ context.Context, cmd *urfavecli.Command) error {
	return cli.Strip(cmd.Args().First(), cmd.Bool("keep-lines"), os.Stdin, os.Stdout)
}

// encodeCommand handles the 'sqlconsole encode' command
func encodeCommand(_ context.Context, cmd *urfavecli.Command) error {
	return cli.Encode(cmd.Args().First(), os.Stdin, os.Stdout)
}

// execCommand handles the 'sqlconsole exec' command
func execCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config, err := loadConfig(cmd, cli.Overrides{
		Timeout:     cmd.Duration("timeout"),
		MaxRows:     int(cmd.Int("max-rows")),
		Parallelism: int(cmd.Int("parallel")),
		HistoryFile: cmd.String("history-file"),
	}, false)
	if err != nil {
		return err
	}

	opts := cli.ExecOptions{
		DataSource: cmd.String("data-source"),
		DSN:        cmd.String("dsn"),
		Format:     cmd.String("format"),
		Output:     cmd.String("output"),
		DryRun:     cmd.Bool("dry-run"),
		Paths:      cmd.Args().Slice(),
	}
	if opts.DSN != "" {
		opts.Kind = cmd.String("kind")
	}

	exitCode, err := cli.Exec(ctx, config, opts, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

// serveCommand handles the 'sqlconsole serve' command
func serveCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config, err := loadConfig(cmd, cli.Overrides{
		Listen:      cmd.String("listen"),
		TokenSecret: cmd.String("token-secret"),
	}, true)
	if err != nil {
		return err
	}
	return cli.Serve(ctx, config)
}

// historyCommand handles the 'sqlconsole history' command
func historyCommand(_ context.Context, cmd *urfavecli.Command) error {
	config, err := loadConfig(cmd, cli.Overrides{}, false)
	if err != nil {
		return err
	}
	return cli.History(config, int(cmd.Int("limit")), cmd.String("format"), os.Stdout)
}

// hashPasswordCommand handles the 'sqlconsole hash-password' command
func hashPasswordCommand(_ context.Context, _ *urfavecli.Command) error {
	return cli.HashPassword(os.Stdin, os.Stdout)
}
