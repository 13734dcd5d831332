// CLAUDE:SUMMARY Registers the styleimpact MCP tools: diff, toggle, counter CSS, run job.
package styleimpact

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/styleimpact/kit"
)

// RegisterMCP registers styleimpact tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerDiffTool(srv)
	s.registerToggleTool(srv)
	s.registerCounterCSSTool(srv)
	s.registerRunJobTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func targetProperties(extra map[string]any) map[string]any {
	p := map[string]any{
		"url":         map[string]any{"type": "string", "description": "Page to open in Chrome"},
		"html":        map[string]any{"type": "string", "description": "Inline HTML for the in-memory document (instead of url)"},
		"stylesheets": map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}, "description": "For html: source ID to CSS text"},
		"sources":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Style sources to flip (stylesheet URLs, or stylesheet IDs for html)"},
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

func decodeInto[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r T
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

// --- diff ---

func (s *Service) registerDiffTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "styleimpact_diff",
		Description: "Flip style sources on a page and report, per selector, the computed style properties that changed with their before/after values.",
		InputSchema: inputSchema(targetProperties(map[string]any{
			"rule_properties_only": map[string]any{"type": "boolean", "description": "Only report properties declared by the matching rule"},
			"itemized":             map[string]any{"type": "boolean", "description": "One entry per element instead of one merged entry per selector"},
			"scope":                map[string]any{"type": "string", "description": "Selector of the candidate elements (default *)"},
			"breakpoints":          map[string]any{"type": "array", "items": map[string]any{"type": "integer"}, "description": "Viewport widths to repeat the diff at"},
			"counter_css":          map[string]any{"type": "boolean", "description": "Also render CSS reverting the changes"},
		}), []string{"sources"}),
	}
	kit.RegisterMCPTool(srv, tool, s.diffEndpoint(), decodeInto[DiffRequest])
}

// --- toggle ---

func (s *Service) registerToggleTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "styleimpact_toggle",
		Description: "Flip style sources on a page without measuring. Returns each source's state afterwards.",
		InputSchema: inputSchema(targetProperties(nil), []string{"sources"}),
	}
	kit.RegisterMCPTool(srv, tool, s.toggleEndpoint(), decodeInto[SourcesRequest])
}

// --- counter_css ---

func (s *Service) registerCounterCSSTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "styleimpact_counter_css",
		Description: "Flip style sources and return CSS that sets every changed property back to its previous value.",
		InputSchema: inputSchema(targetProperties(nil), []string{"sources"}),
	}
	kit.RegisterMCPTool(srv, tool, s.counterCSSEndpoint(), decodeInto[SourcesRequest])
}

// --- run_job ---

func (s *Service) registerRunJobTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "styleimpact_run_job",
		Description: "Run a measurement job and emit its result to the configured sinks.",
		InputSchema: inputSchema(targetProperties(map[string]any{
			"id":                   map[string]any{"type": "string", "description": "Job ID"},
			"rule_properties_only": map[string]any{"type": "boolean"},
			"itemized":             map[string]any{"type": "boolean"},
			"scope":                map[string]any{"type": "string"},
			"breakpoints":          map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
			"counter_css":          map[string]any{"type": "boolean"},
			"restore":              map[string]any{"type": "boolean", "description": "Flip the sources back after a single-viewport run"},
		}), []string{"id", "sources"}),
	}
	kit.RegisterMCPTool(srv, tool, s.runJobEndpoint(), decodeInto[Job])
}
