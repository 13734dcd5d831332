// CLAUDE:SUMMARY CLI entry point for styleimpact: one-shot diffs, configured job runs, HTTP/MCP server.
// Command styleimpact measures the computed style impact of stylesheets.
//
// Usage:
//
//	styleimpact -url https://example.com -source https://example.com/theme.css
//	styleimpact -html page.html -css theme.css -breakpoints 375,1280
//	styleimpact -config styleimpact.yaml          # run configured jobs
//	styleimpact -db jobs.db                       # run jobs from SQLite
//	styleimpact -db jobs.db -watch -every 1h      # re-run on table changes and hourly
//	styleimpact -config styleimpact.yaml -serve   # HTTP API + MCP on /mcp
//	styleimpact -mcp-stdio                        # MCP over stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/styleimpact/dbopen"
	"github.com/hazyhaar/styleimpact/styleimpact"
)

const version = "0.3.0"

type stringList []string

func (l *stringList) String() string     { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error { *l = append(*l, v); return nil }

type flags struct {
	configPath  string
	dbPath      string
	url         string
	htmlPath    string
	sources     stringList
	cssPaths    stringList
	breakpoints string
	ruleProps   bool
	itemized    bool
	counterCSS  bool
	restore     bool
	save        bool
	serve       bool
	watch       bool
	every       time.Duration
	addr        string
	mcpStdio    bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to styleimpact.yaml config file")
	flag.StringVar(&f.dbPath, "db", "", "SQLite database with an impact_jobs table")
	flag.StringVar(&f.url, "url", "", "page to measure in Chrome")
	flag.StringVar(&f.htmlPath, "html", "", "HTML file to measure in memory")
	flag.Var(&f.sources, "source", "stylesheet URL to flip (repeatable, with -url)")
	flag.Var(&f.cssPaths, "css", "CSS file to flip (repeatable, with -html); its file name is the source ID")
	flag.StringVar(&f.breakpoints, "breakpoints", "", "comma-separated viewport widths")
	flag.BoolVar(&f.ruleProps, "rule-props", false, "only report properties declared by the matching rule")
	flag.BoolVar(&f.itemized, "itemized", false, "one entry per element instead of one per selector")
	flag.BoolVar(&f.counterCSS, "counter-css", false, "print CSS that reverts the changes instead of the report")
	flag.BoolVar(&f.restore, "restore", false, "flip the sources back after measuring")
	flag.BoolVar(&f.save, "save", false, "with -db: store the ad-hoc job before running it")
	flag.BoolVar(&f.serve, "serve", false, "serve the HTTP API and MCP endpoint (with -db: also watch the job table)")
	flag.BoolVar(&f.watch, "watch", false, "with -db: keep running and re-run jobs when the job table changes")
	flag.DurationVar(&f.every, "every", 0, "with -db and -watch or -serve: also re-run jobs at this period")
	flag.StringVar(&f.addr, "addr", "", "listen address (overrides http.addr)")
	flag.BoolVar(&f.mcpStdio, "mcp-stdio", false, "serve MCP over stdin/stdout")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, f); err != nil {
		logger.Error("styleimpact: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, f flags) error {
	cfg := styleimpact.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = styleimpact.LoadConfigFile(f.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if f.addr != "" {
		cfg.HTTP.Addr = f.addr
	}

	adhoc, err := adhocJob(f)
	if err != nil {
		return err
	}

	var sinks []styleimpact.Sink
	if adhoc == nil || len(cfg.Sinks) > 0 {
		sinks = styleimpact.SinksFromConfig(cfg.Sinks, logger)
	}
	svc := styleimpact.NewService(cfg, logger, sinks...)
	defer svc.Close()

	switch {
	case f.mcpStdio:
		return svc.MCPServer(version).Run(ctx, &mcp.StdioTransport{})
	case adhoc != nil:
		return runAdhoc(ctx, svc, f, *adhoc)
	case f.dbPath != "" && (f.serve || f.watch):
		db, err := dbopen.Open(f.dbPath, dbopen.WithMkdirAll(), dbopen.WithSchema(styleimpact.JobSchema))
		if err != nil {
			return err
		}
		defer db.Close()
		if !f.serve {
			svc.WatchJobs(ctx, db, time.Second, f.every)
			return nil
		}
		go svc.WatchJobs(ctx, db, time.Second, f.every)
		return serve(ctx, logger, svc, cfg.HTTP.Addr)
	case f.serve:
		return serve(ctx, logger, svc, cfg.HTTP.Addr)
	}

	jobs := cfg.Jobs
	if f.dbPath != "" {
		dbJobs, err := loadDBJobs(ctx, f.dbPath)
		if err != nil {
			return err
		}
		jobs = append(jobs, dbJobs...)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: styleimpact -url <url> -source <css> | -html <file> -css <file> | -config <file> | -db <file> [-serve | -mcp-stdio]")
		os.Exit(2)
	}
	return svc.RunJobs(ctx, jobs)
}

// adhocJob builds a job from -url/-source or -html/-css, or returns nil.
func adhocJob(f flags) (*styleimpact.Job, error) {
	if f.url == "" && f.htmlPath == "" {
		return nil, nil
	}
	job := styleimpact.Job{
		ID:                 "cli-" + uuid.Must(uuid.NewV7()).String(),
		URL:                f.url,
		Sources:            f.sources,
		RulePropertiesOnly: f.ruleProps,
		Itemized:           f.itemized,
		Scope:              "*",
		CounterCSS:         f.counterCSS,
		Restore:            f.restore,
	}
	if f.htmlPath != "" {
		data, err := os.ReadFile(f.htmlPath)
		if err != nil {
			return nil, fmt.Errorf("read html: %w", err)
		}
		job.HTML = string(data)
		job.Stylesheets = make(map[string]string, len(f.cssPaths))
		for _, p := range f.cssPaths {
			css, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("read css: %w", err)
			}
			id := filepath.Base(p)
			job.Stylesheets[id] = string(css)
			job.Sources = append(job.Sources, id)
		}
	}
	if f.breakpoints != "" {
		for _, s := range strings.Split(f.breakpoints, ",") {
			w, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("breakpoints: %w", err)
			}
			job.Breakpoints = append(job.Breakpoints, w)
		}
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// runAdhoc prints the report (or counter CSS) of a one-shot job to stdout.
func runAdhoc(ctx context.Context, svc *styleimpact.Service, f flags, job styleimpact.Job) error {
	if f.save {
		if f.dbPath == "" {
			return errors.New("-save needs -db")
		}
		db, err := dbopen.Open(f.dbPath, dbopen.WithMkdirAll(), dbopen.WithSchema(styleimpact.JobSchema))
		if err != nil {
			return err
		}
		err = styleimpact.SaveJob(ctx, db, job)
		db.Close()
		if err != nil {
			return err
		}
	}

	res, err := svc.RunJob(ctx, job)
	if err != nil {
		return err
	}
	if f.counterCSS && res.Report != nil {
		fmt.Println(res.CounterCSS)
		return nil
	}
	data, err := styleimpact.MarshalResult(res)
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	os.Stdout.Write([]byte("\n"))
	return nil
}

func loadDBJobs(ctx context.Context, path string) ([]styleimpact.Job, error) {
	db, err := dbopen.Open(path, dbopen.WithSchema(styleimpact.JobSchema))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	jobs, err := styleimpact.LoadJobs(ctx, db)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func serve(ctx context.Context, logger *slog.Logger, svc *styleimpact.Service, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           svc.Handler(version),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("styleimpact: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
