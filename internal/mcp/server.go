package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/wondertwin-ai/blogcheck/internal/client"
	"github.com/wondertwin-ai/blogcheck/internal/scenario"
)

// Server is an MCP server that exposes blogcheck tools over JSON-RPC 2.0 on stdio.
type Server struct {
	clients []*client.Client // one per target; the first is the default
	pool    *scenario.Pool
	suites  []string
	tools   []toolEntry
	stdin   io.Reader
	stdout  io.Writer
	logger  *slog.Logger
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) { s.stdin, s.stdout = in, out }
}

// WithLogger sets the logger. It must not write to stdout.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSuites sets the suite paths blogcheck_run uses by default.
func WithSuites(paths []string) Option {
	return func(s *Server) { s.suites = paths }
}

// WithVersion sets the version reported in serverInfo.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a server acting on the given targets. pool runs
// scenarios for blogcheck_run and must address the same targets.
func NewServer(clients []*client.Client, pool *scenario.Pool, opts ...Option) (*Server, error) {
	if len(clients) == 0 {
		return nil, errors.New("mcp: at least one target is required")
	}
	s := &Server{
		clients: clients,
		pool:    pool,
		tools:   allTools(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  slog.Default(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Serve reads JSON-RPC messages from stdin line-by-line and writes responses to stdout.
// It blocks until stdin is closed, ctx is cancelled, or reading fails.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.stdin)
	// Allow up to 1MB per line for large tool results
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(newErrorResponse(nil, ErrCodeParse, "parse error: "+err.Error()))
			continue
		}
		if rpcErr := req.validate(); rpcErr != nil {
			s.writeResponse(newErrorResponse(req.ID, rpcErr.Code, rpcErr.Message))
			continue
		}

		resp, shouldReply := s.dispatch(ctx, &req)
		if shouldReply {
			s.writeResponse(resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "reading stdin")
	}
	return nil
}

// dispatch routes a JSON-RPC request to the appropriate handler.
// Returns the response and whether a response should be sent (false for notifications).
func (s *Server) dispatch(ctx context.Context, req *Request) (Response, bool) {
	s.logger.Debug("mcp request", "method", req.Method)
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req), true

	case "notifications/initialized":
		return Response{}, false

	case "ping":
		return newResponse(req.ID, map[string]any{}), true

	case "tools/list":
		return s.handleToolsList(req), true

	case "tools/call":
		return s.handleToolsCall(ctx, req), true

	default:
		if req.IsNotification() {
			// Unknown notifications get no reply
			return Response{}, false
		}
		return newErrorResponse(req.ID, ErrCodeNoMethod, "method not found: "+req.Method), true
	}
}

// handleInitialize responds to the MCP initialize handshake.
func (s *Server) handleInitialize(req *Request) Response {
	return newResponse(req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ServerInfo:      serverInfo{Name: serverName, Version: s.version},
	})
}

// handleToolsList returns the list of available MCP tools.
func (s *Server) handleToolsList(req *Request) Response {
	tools := make([]Tool, len(s.tools))
	for i, t := range s.tools {
		tools[i] = t.Tool
	}
	return newResponse(req.ID, toolsListResult{Tools: tools})
}

// handleToolsCall dispatches a tool invocation and returns the result.
func (s *Server) handleToolsCall(ctx context.Context, req *Request) Response {
	params, rpcErr := decodeToolsCall(req.Params)
	if rpcErr != nil {
		return newErrorResponse(req.ID, rpcErr.Code, rpcErr.Message)
	}

	for _, t := range s.tools {
		if t.Tool.Name == params.Name {
			return newResponse(req.ID, t.Handler(ctx, s, params.Arguments))
		}
	}

	return newErrorResponse(req.ID, ErrCodeNoMethod, "unknown tool: "+params.Name)
}

// target returns the client for base, or the default client when base is empty.
func (s *Server) target(base string) (*client.Client, error) {
	if base == "" {
		return s.clients[0], nil
	}
	for _, c := range s.clients {
		if c.BaseURL() == base {
			return c, nil
		}
	}
	return nil, errors.Errorf("unknown target %q", base)
}

// writeResponse marshals a Response to JSON and writes it as a single line to stdout.
func (s *Server) writeResponse(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		// Last resort: write a hard-coded error
		fmt.Fprintf(s.stdout, `{"jsonrpc":"2.0","id":null,"error":{"code":%d,"message":"internal marshal error"}}`+"\n", ErrCodeInternal)
		return
	}
	fmt.Fprintf(s.stdout, "%s\n", data)
}
