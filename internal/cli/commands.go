package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/internal/auth"
	"github.com/cybertec-postgresql/sqlconsole/internal/console"
	"github.com/cybertec-postgresql/sqlconsole/internal/database"
	"github.com/cybertec-postgresql/sqlconsole/internal/discovery"
	"github.com/cybertec-postgresql/sqlconsole/internal/history"
	"github.com/cybertec-postgresql/sqlconsole/internal/logger"
	"github.com/cybertec-postgresql/sqlconsole/internal/report"
	"github.com/cybertec-postgresql/sqlconsole/internal/runner"
	"github.com/cybertec-postgresql/sqlconsole/internal/server"
	"github.com/cybertec-postgresql/sqlconsole/internal/sqlcomment"
	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

// readInput reads a single file, or stdin for "" and "-"
func readInput(path string, stdin io.Reader) (string, error) {
	script := discovery.Script{Path: path, RelativePath: path, Source: discovery.SourceFile}
	if path == "" || path == discovery.StdinPath {
		script.Source = discovery.SourceStdin
	}
	return script.Read(stdin)
}

// Strip writes the input with its comments removed
func Strip(path string, keepLines bool, stdin io.Reader, stdout io.Writer) error {
	text, err := readInput(path, stdin)
	if err != nil {
		return err
	}
	if keepLines {
		_, err = io.WriteString(stdout, sqlcomment.StripKeepLines(text))
	} else {
		_, err = io.WriteString(stdout, sqlcomment.Strip(text))
	}
	return err
}

// Encode writes the transport form of the input as a browser console would
// submit it
func Encode(path string, stdin io.Reader, stdout io.Writer) error {
	text, err := readInput(path, stdin)
	if err != nil {
		return err
	}
	sql, err := console.Prepare(text)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, console.EncodeSQL(sql))
	return err
}

// ExecOptions holds the exec command's flags
type ExecOptions struct {
	DataSource string // Configured data source name
	Kind       string // Ad hoc data source kind, used with DSN
	DSN        string
	Format     string
	Output     string // File path, "" or "-" for stdout
	DryRun     bool
	Paths      []string
}

// Exec strips and executes scripts and renders their results. It returns the
// process exit code.
func Exec(ctx context.Context, cfg *Config, opts ExecOptions, stdin io.Reader, stdout io.Writer) (int, error) {
	startTime := time.Now()

	if opts.Format == "" {
		opts.Format = string(report.FormatText)
	}
	if !report.ValidFormat(opts.Format) {
		return 2, fmt.Errorf("unsupported format: %s (supported: %v)", opts.Format, report.SupportedFormats())
	}

	ds, err := resolveDataSource(cfg, opts)
	if err != nil {
		return 2, err
	}

	scripts, err := discovery.Resolve(opts.Paths)
	if err != nil {
		return 1, fmt.Errorf("failed to resolve scripts: %w", err)
	}
	if len(scripts) == 0 {
		fmt.Fprintln(os.Stderr, "No SQL scripts found (*.sql)")
		return 0, nil
	}
	logger.Debug("Found %d script(s)", len(scripts))

	ex, err := database.Open(ctx, ds)
	if err != nil {
		return 1, fmt.Errorf("database connection failed: %w", err)
	}
	defer ex.Close()

	executor := runner.NewExecutor(ex, ds.Name, database.ExecOptions{
		MaxRows: cfg.MaxRows,
		DryRun:  opts.DryRun,
		Timeout: cfg.Timeout,
	}).WithStdin(stdin)
	if cfg.HistoryFile != "" {
		executor.WithHistory(history.NewStore(cfg.HistoryFile, 0))
	}

	var runs []*runner.ScriptRun
	if cfg.Parallelism > 1 {
		logger.Debug("Executing scripts in parallel (workers: %d)", cfg.Parallelism)
		runs = runner.NewWorkerPool(executor, cfg.Parallelism).ExecuteParallel(ctx, scripts)
	} else {
		logger.Debug("Executing scripts sequentially")
		runs = executor.ExecuteBatch(ctx, scripts)
	}

	if err := writeReport(runner.BuildReport(ds.Name, runs), opts, stdout); err != nil {
		return 1, err
	}

	summary := runner.SummarizeRuns(runs)
	fmt.Fprintf(os.Stderr, "\nScripts: %d succeeded, %d failed, %d timed out, %d skipped, %d total\n",
		summary.SucceededScripts, summary.FailedScripts, summary.TimedOutScripts, summary.SkippedScripts, summary.TotalScripts)
	fmt.Fprintf(os.Stderr, "Time:    %v\n", time.Since(startTime).Round(time.Millisecond))
	if opts.DryRun {
		fmt.Fprintln(os.Stderr, "Dry run: all changes were rolled back")
	}

	return summary.ExitCode(), nil
}

func resolveDataSource(cfg *Config, opts ExecOptions) (types.DataSource, error) {
	switch {
	case opts.DSN != "" && opts.DataSource != "":
		return types.DataSource{}, fmt.Errorf("use either --data-source or --kind/--dsn, not both")
	case opts.DSN != "":
		return AdHocDataSource(opts.Kind, opts.DSN)
	case opts.DataSource != "":
		ds, ok := cfg.DataSource(opts.DataSource)
		if !ok {
			return types.DataSource{}, fmt.Errorf("%w: %s", database.ErrUnknownDataSource, opts.DataSource)
		}
		return ds, nil
	case len(cfg.DataSources) == 1:
		return cfg.DataSources[0], nil
	default:
		return types.DataSource{}, fmt.Errorf("no data source selected: use --data-source or --kind/--dsn")
	}
}

func writeReport(rep *report.Report, opts ExecOptions, stdout io.Writer) error {
	writer := stdout
	if opts.Output != "" && opts.Output != "-" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	if err := report.FormatToWriter(rep, report.FormatType(opts.Format), writer); err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}
	if writer != stdout {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", opts.Output)
	}
	return nil
}

// Serve runs the HTTP console until ctx is cancelled
func Serve(ctx context.Context, cfg *Config) error {
	registry := database.NewRegistry(cfg.DataSources, nil)
	defer registry.Close()

	authn := auth.NewAuthenticator(cfg.Users, auth.NewTokenService([]byte(cfg.TokenSecret), cfg.TokenTTL))

	var hist *history.Store
	if cfg.HistoryFile != "" {
		hist = history.NewStore(cfg.HistoryFile, 0)
	}

	srv, err := server.New(cfg, registry, authn, hist)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// History prints the most recent history entries
func History(cfg *Config, limit int, format string, stdout io.Writer) error {
	if cfg.HistoryFile == "" {
		return fmt.Errorf("history is disabled (history_file is empty)")
	}
	entries, err := history.NewStore(cfg.HistoryFile, 0).Recent(limit)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "", "text":
		for _, e := range entries {
			status := fmt.Sprintf("%d row(s), %d affected", e.Rows, e.RowsAffected)
			if e.Error != "" {
				status = "ERROR: " + e.Error
			}
			fmt.Fprintf(stdout, "%s  %-12s %s\n    %s\n", e.Time.Local().Format(time.DateTime), e.DataSource, status, oneLine(e.SQL))
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", format)
	}
}

func oneLine(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

// HashPassword reads a password from the first line of stdin and prints its
// bcrypt hash
func HashPassword(stdin io.Reader, stdout io.Writer) error {
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read password: %w", err)
	}
	hash, err := auth.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, hash)
	return err
}
