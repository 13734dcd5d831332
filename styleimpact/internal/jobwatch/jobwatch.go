// CLAUDE:SUMMARY Polls the impact_jobs table and re-runs jobs when it changes or on a fixed period.
// Package jobwatch keeps a long-running styleimpact process in step with its
// SQLite job table. It polls a version token (MAX(updated_at) by default),
// debounces bursts of edits and calls an action with the freshly loaded jobs.
//
//	w := jobwatch.New(db, jobwatch.Options{Interval: time.Second, Every: time.Hour})
//	go w.Run(ctx, svc.RunJobs)
package jobwatch

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/styleimpact/styleimpact/internal/config"
)

// Detector reads a version token. Two different values mean the job table
// changed.
type Detector func(ctx context.Context, db *sql.DB) (int64, error)

// Action receives the active jobs after every change or period.
type Action func(ctx context.Context, jobs []config.JobConfig) error

// Options tunes the watcher.
type Options struct {
	// Interval is the polling frequency. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a change before the action fires.
	// 0 fires on the poll that saw the change.
	Debounce time.Duration
	// Every re-runs the jobs periodically even without a change. 0 disables it.
	Every time.Duration
	// Detector overrides LastUpdate.
	Detector Detector
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Detector == nil {
		o.Detector = LastUpdate
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher polls a job table. Create with New, start with Run.
type Watcher struct {
	db   *sql.DB
	opts Options

	version atomic.Int64

	checks  atomic.Int64
	changes atomic.Int64
	errors  atomic.Int64
	runs    atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Checks          int64 `json:"checks"`
	ChangesDetected int64 `json:"changes_detected"`
	Errors          int64 `json:"errors"`
	Runs            int64 `json:"runs"`
}

// New creates a Watcher.
func New(db *sql.DB, opts Options) *Watcher {
	opts.defaults()
	return &Watcher{db: db, opts: opts}
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Checks:          w.checks.Load(),
		ChangesDetected: w.changes.Load(),
		Errors:          w.errors.Load(),
		Runs:            w.runs.Load(),
	}
}

// Version returns the last version whose jobs ran successfully.
func (w *Watcher) Version() int64 { return w.version.Load() }

// Run fires action once with the current jobs, then again on every detected
// change and every opts.Every, until ctx is cancelled. A failed run leaves the
// version unchanged so the next poll retries it.
func (w *Watcher) Run(ctx context.Context, action Action) {
	log := w.opts.Logger

	if v, err := w.opts.Detector(ctx, w.db); err != nil {
		w.errors.Add(1)
		log.Warn("jobwatch: initial version check failed", "error", err)
	} else {
		w.fire(ctx, action, v)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var periodic <-chan time.Time
	if w.opts.Every > 0 {
		t := time.NewTicker(w.opts.Every)
		defer t.Stop()
		periodic = t.C
	}

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	pending := int64(-1)

	log.Info("jobwatch: started", "interval", w.opts.Interval, "debounce", w.opts.Debounce, "every", w.opts.Every)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			log.Info("jobwatch: stopped")
			return

		case <-ticker.C:
			w.checks.Add(1)
			cur, err := w.opts.Detector(ctx, w.db)
			if err != nil {
				w.errors.Add(1)
				log.Warn("jobwatch: version check failed", "error", err)
				continue
			}
			if cur == w.version.Load() || cur == pending {
				continue
			}
			w.changes.Add(1)
			pending = cur
			if w.opts.Debounce <= 0 {
				w.fire(ctx, action, pending)
				pending = -1
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(w.opts.Debounce)
			debounceCh = debounce.C
			log.Debug("jobwatch: change detected, debouncing", "pending_version", cur)

		case <-debounceCh:
			debounceCh = nil
			if pending >= 0 {
				w.fire(ctx, action, pending)
				pending = -1
			}

		case <-periodic:
			w.fire(ctx, action, w.version.Load())
		}
	}
}

func (w *Watcher) fire(ctx context.Context, action Action, ver int64) {
	log := w.opts.Logger
	jobs, err := config.LoadJobs(ctx, w.db)
	if err != nil {
		w.errors.Add(1)
		log.Error("jobwatch: load jobs", "error", err)
		return
	}
	start := time.Now()
	if err := action(ctx, jobs); err != nil {
		w.errors.Add(1)
		log.Error("jobwatch: run failed", "error", err, "version", ver)
		return
	}
	w.runs.Add(1)
	w.version.Store(ver)
	log.Info("jobwatch: jobs ran", "jobs", len(jobs), "version", ver, "duration", time.Since(start))
}

// LastUpdate uses MAX(updated_at) of impact_jobs. SaveJob and DisableJob both
// bump it, from this connection or another process.
func LastUpdate(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(updated_at), 0) FROM impact_jobs").Scan(&v)
	return v, err
}
