// CLAUDE:SUMMARY Service runs style impact jobs: opens the page (Chrome or in-memory), drives an Engine, emits results to sinks.
package styleimpact

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/styleimpact/document"
	"github.com/hazyhaar/styleimpact/report"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/browser"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/counter"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/htmldoc"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/sink"
)

// Target is the page a measurement runs on: a live URL in Chrome, or inline
// HTML with its stylesheets in the in-memory document.
type Target struct {
	URL         string            `json:"url,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Stylesheets map[string]string `json:"stylesheets,omitempty"`
}

// Service runs jobs and serves the engine over MCP and HTTP. Every
// measurement opens its own document; runs are serialised.
type Service struct {
	cfg    *Config
	sinkR  *sink.Router
	logger *slog.Logger

	mu  sync.Mutex
	mgr *browser.Manager
}

// NewService creates a Service. A nil cfg uses DefaultConfig().
func NewService(cfg *Config, logger *slog.Logger, sinks ...Sink) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:    cfg,
		sinkR:  sink.NewRouter(logger, sinks...),
		logger: logger,
	}
}

// Close shuts down Chrome, if it was started, and the sinks.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mgr != nil {
		if err := s.mgr.Close(); err != nil {
			s.logger.Warn("styleimpact: browser close", "error", err)
		}
		s.mgr = nil
	}
	return s.sinkR.Close()
}

func (s *Service) browsers() *browser.Manager {
	if s.mgr != nil {
		return s.mgr
	}
	level := browser.LevelHeadless
	switch s.cfg.Browser.Stealth {
	case "plain":
		level = browser.LevelPlain
	case "headful":
		level = browser.LevelHeadful
	}
	s.mgr = browser.NewManager(browser.Config{
		RemoteURL:        s.cfg.Browser.Remote,
		Bin:              s.cfg.Browser.Bin,
		MemoryLimit:      s.cfg.Browser.MemoryLimit,
		RecycleInterval:  s.cfg.Browser.RecycleInterval,
		ResourceBlocking: s.cfg.Browser.ResourceBlocking,
		Stealth:          level,
		ViewportWidth:    s.cfg.Browser.ViewportWidth,
		ViewportHeight:   s.cfg.Browser.ViewportHeight,
		NavigateTimeout:  s.cfg.Browser.NavigateTimeout,
		XvfbDisplay:      s.cfg.Browser.XvfbDisplay,
		Logger:           s.logger,
	})
	return s.mgr
}

// With opens the target, runs fn with an Engine bound to it and closes the
// document. Calls are serialised.
func (s *Service) With(ctx context.Context, t Target, fn func(*Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, closeDoc, err := s.open(ctx, t)
	if err != nil {
		return err
	}
	defer closeDoc()
	return fn(NewEngine(doc, s.logger))
}

func (s *Service) open(ctx context.Context, t Target) (document.Document, func(), error) {
	switch {
	case t.HTML != "" && t.URL != "":
		return nil, nil, fmt.Errorf("styleimpact: target has both url and html")
	case t.HTML != "":
		d, err := htmldoc.New(t.HTML, htmldoc.WithViewport(s.cfg.Browser.ViewportWidth, s.cfg.Browser.ViewportHeight))
		if err != nil {
			return nil, nil, fmt.Errorf("styleimpact: %w", err)
		}
		ids := make([]string, 0, len(t.Stylesheets))
		for id := range t.Stylesheets {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			if err := d.AddSource(document.SourceID(id), t.Stylesheets[id]); err != nil {
				return nil, nil, fmt.Errorf("styleimpact: %w", err)
			}
		}
		return d, func() {}, nil
	case t.URL != "":
		d, err := browser.Open(ctx, s.browsers(), t.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("styleimpact: %w", err)
		}
		return d, func() {
			if err := d.Close(); err != nil {
				s.logger.Warn("styleimpact: close page", "url", t.URL, "error", err)
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("styleimpact: target needs url or html")
}

// RunJob measures one job and emits the Result (or a Failure) to the sinks.
// Sink errors are logged, not returned.
func (s *Service) RunJob(ctx context.Context, job Job) (*Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.Must(uuid.NewV7()).String()
	start := time.Now()
	log := s.logger.With("job", job.ID, "run", runID)

	res := &Result{
		RunID:   runID,
		JobID:   job.ID,
		URL:     job.URL,
		Sources: slices.Clone(job.Sources),
	}
	opts := Options{
		RulePropertiesOnly: job.RulePropertiesOnly,
		Itemized:           job.Itemized,
		Scope:              job.Scope,
	}
	ids := SourceIDs(job.Sources)
	target := Target{URL: job.URL, HTML: job.HTML, Stylesheets: job.Stylesheets}

	err := s.With(ctx, target, func(e *Engine) error {
		if len(job.Breakpoints) > 0 {
			bp, err := e.DiffBreakpoints(ctx, ids, job.Breakpoints, opts)
			if err != nil {
				return err
			}
			res.Breakpoints = bp
			return nil
		}

		rep, err := e.Diff(ctx, ids, opts)
		if err != nil {
			return err
		}
		res.Report = rep
		if job.CounterCSS {
			res.CounterCSS = counter.Render(rep)
		}
		if job.Restore {
			return e.Toggle(ctx, ids)
		}
		return nil
	})
	res.Timestamp = time.Now().UnixMilli()

	if err != nil {
		log.Error("styleimpact: job failed", "error", err, "duration", time.Since(start))
		if sErr := s.sinkR.SendFailure(ctx, report.Failure{
			RunID: runID, JobID: job.ID, URL: job.URL, Error: err.Error(), Timestamp: res.Timestamp,
		}); sErr != nil {
			log.Warn("styleimpact: emit failure", "error", sErr)
		}
		return nil, fmt.Errorf("styleimpact: job %s: %w", job.ID, err)
	}

	if sErr := s.sinkR.Send(ctx, res); sErr != nil {
		log.Warn("styleimpact: emit result", "error", sErr)
	}
	log.Info("styleimpact: job complete", "duration", time.Since(start))
	return res, nil
}

// RunJobs runs jobs in order. A failed job is reported and the next one
// runs; the first error is returned once all jobs ran.
func (s *Service) RunJobs(ctx context.Context, jobs []Job) error {
	var firstErr error
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.RunJob(ctx, j); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
