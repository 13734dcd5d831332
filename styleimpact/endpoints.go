package styleimpact

import (
	"context"
	"fmt"

	"github.com/hazyhaar/styleimpact/kit"
	"github.com/hazyhaar/styleimpact/report"
)

// DiffRequest is the transport payload of a diff.
type DiffRequest struct {
	Target
	Sources            []string `json:"sources"`
	RulePropertiesOnly bool     `json:"rule_properties_only,omitempty"`
	Itemized           bool     `json:"itemized,omitempty"`
	Scope              string   `json:"scope,omitempty"`
	Breakpoints        []int    `json:"breakpoints,omitempty"`
	CounterCSS         bool     `json:"counter_css,omitempty"`
}

// DiffResponse carries a single-viewport report or a breakpoint report.
type DiffResponse struct {
	Report      *report.Report           `json:"report,omitempty"`
	Breakpoints *report.BreakpointReport `json:"breakpoints,omitempty"`
	CounterCSS  string                   `json:"counter_css,omitempty"`
}

// SourcesRequest targets a page and a list of sources.
type SourcesRequest struct {
	Target
	Sources []string `json:"sources"`
}

// ToggleResponse reports each source's state after the flip.
type ToggleResponse struct {
	Active map[string]bool `json:"active"`
}

// CounterCSSResponse carries rendered counter CSS.
type CounterCSSResponse struct {
	CSS string `json:"css"`
}

func (s *Service) wrap(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.WithRequestIDs(), kit.WithLogging(s.logger, name))(ep)
}

func (s *Service) diffEndpoint() kit.Endpoint {
	return s.wrap("diff", func(ctx context.Context, req any) (any, error) {
		r := req.(*DiffRequest)
		if len(r.Sources) == 0 {
			return nil, ErrNoSources
		}
		opts := Options{RulePropertiesOnly: r.RulePropertiesOnly, Itemized: r.Itemized, Scope: r.Scope}
		ids := SourceIDs(r.Sources)

		var resp DiffResponse
		err := s.With(ctx, r.Target, func(e *Engine) error {
			if len(r.Breakpoints) > 0 {
				bp, err := e.DiffBreakpoints(ctx, ids, r.Breakpoints, opts)
				resp.Breakpoints = bp
				return err
			}
			rep, err := e.Diff(ctx, ids, opts)
			if err != nil {
				return err
			}
			resp.Report = rep
			if r.CounterCSS {
				resp.CounterCSS = RenderCounterCSS(rep)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &resp, nil
	})
}

func (s *Service) toggleEndpoint() kit.Endpoint {
	return s.wrap("toggle", func(ctx context.Context, req any) (any, error) {
		r := req.(*SourcesRequest)
		ids := SourceIDs(r.Sources)
		resp := ToggleResponse{Active: make(map[string]bool, len(ids))}
		err := s.With(ctx, r.Target, func(e *Engine) error {
			if err := e.Toggle(ctx, ids); err != nil {
				return err
			}
			state, err := e.Active(ctx, ids)
			if err != nil {
				return err
			}
			for id, ok := range state {
				resp.Active[string(id)] = ok
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &resp, nil
	})
}

func (s *Service) counterCSSEndpoint() kit.Endpoint {
	return s.wrap("counter_css", func(ctx context.Context, req any) (any, error) {
		r := req.(*SourcesRequest)
		var css string
		err := s.With(ctx, r.Target, func(e *Engine) error {
			var err error
			css, err = e.CounterCSS(ctx, SourceIDs(r.Sources))
			return err
		})
		if err != nil {
			return nil, err
		}
		return &CounterCSSResponse{CSS: css}, nil
	})
}

func (s *Service) runJobEndpoint() kit.Endpoint {
	return s.wrap("run_job", func(ctx context.Context, req any) (any, error) {
		j := req.(*Job)
		if j.Scope == "" {
			j.Scope = "*"
		}
		res, err := s.RunJob(ctx, *j)
		if err != nil {
			return nil, err
		}
		return res, nil
	})
}

func decodeError(err error) error {
	return fmt.Errorf("styleimpact: decode: %w", err)
}
