package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/codomyrmex/mcp-core/internal/mcperrors"
)

// httpRequest is the wire shape of one HTTP MCP frame: one request per
// POST, as the alternative to the stdio transport. It names the MCP verbs
// directly rather than wrapping them in a generic JSON-RPC envelope, since
// this server speaks MCP alone and has no other method namespace to
// disambiguate.
type httpRequest struct {
	Method          string            `json:"method"`
	Name            string            `json:"name,omitempty"`
	Arguments       map[string]any    `json:"arguments,omitempty"`
	URI             string            `json:"uri,omitempty"`
	PromptArguments map[string]string `json:"prompt_arguments,omitempty"`
}

// ServeHTTP implements http.Handler, framing MCP requests as one JSON body
// per POST. Every session sharing one HTTP listener uses the same Trust
// Context as the stdio transport would for a single connection; this server
// is a single-agent tool plane, not a multi-tenant HTTP gateway.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		writeJSON(w, map[string]any{"error": mcperrors.InternalErr("", "only POST is supported")})
		return
	}

	var req httpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"error": mcperrors.ValidationErr("", "malformed request body: "+err.Error(), "")})
		return
	}

	atomic.AddInt64(&s.active, 1)
	defer atomic.AddInt64(&s.active, -1)

	switch req.Method {
	case "list_tools":
		s.handleListTools(w)
	case "call_tool":
		s.handleCallTool(w, r.Context(), req)
	case "list_resources":
		s.handleListResources(w)
	case "read_resource":
		s.handleReadResource(w, r.Context(), req)
	case "list_prompts":
		s.handleListPrompts(w)
	case "get_prompt":
		s.handleGetPrompt(w, req)
	default:
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"error": mcperrors.ValidationErr("", "unknown method: "+req.Method, "method")})
	}
}

func (s *Server) handleListTools(w http.ResponseWriter) {
	tools := make([]map[string]any, 0, s.reg.Count())
	for _, d := range s.reg.ListTools() {
		tools = append(tools, map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"inputSchema": d.ParameterSchema,
		})
	}
	writeJSON(w, map[string]any{"tools": tools})
}

func (s *Server) handleCallTool(w http.ResponseWriter, ctx context.Context, req httpRequest) {
	if req.Name == "" {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"error": mcperrors.ValidationErr("", "call_tool requires a tool name", "name")})
		return
	}
	out := s.dispatcher.Dispatch(ctx, s.tctx, req.Name, req.Arguments)
	writeJSON(w, out)
}

func (s *Server) handleListResources(w http.ResponseWriter) {
	resources := make([]map[string]any, 0, len(s.reg.ListResources()))
	for _, d := range s.reg.ListResources() {
		resources = append(resources, map[string]any{
			"uri":      d.URI,
			"name":     d.Name,
			"mimeType": d.MimeType,
		})
	}
	writeJSON(w, map[string]any{"resources": resources})
}

func (s *Server) handleReadResource(w http.ResponseWriter, ctx context.Context, req httpRequest) {
	d := s.reg.LookupResource(req.URI)
	if d == nil {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"error": mcperrors.NotFoundErr("", "no resource registered with uri "+req.URI)})
		return
	}
	body, err := d.ContentProvider(ctx)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]any{"error": mcperrors.InternalErr("", "resource content provider failed: "+err.Error())})
		return
	}
	writeJSON(w, map[string]any{"contents": []mcp.TextResourceContents{
		{URI: d.URI, MIMEType: d.MimeType, Text: string(body)},
	}})
}

func (s *Server) handleListPrompts(w http.ResponseWriter) {
	prompts := make([]map[string]any, 0, len(s.reg.ListPrompts()))
	for _, d := range s.reg.ListPrompts() {
		prompts = append(prompts, map[string]any{
			"name":      d.Name,
			"arguments": d.Arguments,
		})
	}
	writeJSON(w, map[string]any{"prompts": prompts})
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, req httpRequest) {
	if req.Name == "" {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"error": mcperrors.ValidationErr("", "get_prompt requires a prompt name", "name")})
		return
	}
	d := s.reg.LookupPrompt(req.Name)
	if d == nil {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"error": mcperrors.NotFoundErr(req.Name, "no prompt registered with that name")})
		return
	}
	rendered, err := d.Template(req.PromptArguments)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"error": mcperrors.ValidationErr(req.Name, err.Error(), "")})
		return
	}
	writeJSON(w, map[string]any{"prompt": rendered})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// ServeHTTPAddr blocks serving MCP requests framed as HTTP POSTs on addr
// until listening fails. Shutdown does not close this listener.
func (s *Server) ServeHTTPAddr(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("starting MCP server on HTTP")
	return http.ListenAndServe(addr, s)
}
