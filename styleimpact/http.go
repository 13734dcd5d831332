// CLAUDE:SUMMARY HTTP API for styleimpact: chi routes for diff, toggle, counter CSS, jobs, health, and the MCP streamable endpoint.
package styleimpact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/styleimpact/kit"
)

// MCPServer returns a new MCP server with every tool registered.
func (s *Service) MCPServer(version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "styleimpact", Version: version}, nil)
	s.RegisterMCP(srv)
	return srv
}

// Handler returns the HTTP API:
//
//	GET  /health
//	POST /api/diff
//	POST /api/toggle
//	POST /api/counter-css
//	POST /api/jobs/run
//	     /mcp             (MCP streamable HTTP)
func (s *Service) Handler(version string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/diff", s.serve(s.diffEndpoint(), func() any { return &DiffRequest{} }))
		r.Post("/toggle", s.serve(s.toggleEndpoint(), func() any { return &SourcesRequest{} }))
		r.Post("/counter-css", s.serve(s.counterCSSEndpoint(), func() any { return &SourcesRequest{} }))
		r.Post("/jobs/run", s.serve(s.runJobEndpoint(), func() any { return &Job{} }))
	})

	mcpSrv := s.MCPServer(version)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil)
	r.Handle("/mcp", mcpHandler)
	r.Handle("/mcp/*", mcpHandler)
	return r
}

// serve decodes the JSON body into a fresh request and runs the endpoint.
func (s *Service) serve(ep kit.Endpoint, newReq func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := newReq()
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<20)).Decode(req); err != nil {
			writeError(w, http.StatusBadRequest, decodeError(err))
			return
		}
		ctx := kit.WithTransport(r.Context(), "http")
		if id := middleware.GetReqID(r.Context()); id != "" {
			ctx = kit.WithRequestID(ctx, id)
		}
		resp, err := ep(ctx, req)
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrNoSources):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusUnprocessableEntity
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
