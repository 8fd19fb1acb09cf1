package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wondertwin-ai/blogcheck/internal/client"
	"github.com/wondertwin-ai/blogcheck/internal/failure"
	"github.com/wondertwin-ai/blogcheck/internal/report"
	"github.com/wondertwin-ai/blogcheck/internal/scenario"
	"github.com/wondertwin-ai/blogcheck/internal/suite"
)

// Tool describes an MCP tool definition.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// ToolResult is returned from tool invocations.
type ToolResult struct {
	Content []ToolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ToolContent holds a single piece of tool output.
type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// textResult creates a ToolResult with a single text content item.
func textResult(text string) ToolResult {
	return ToolResult{
		Content: []ToolContent{{Type: "text", Text: text}},
	}
}

func errorResult(format string, args ...any) ToolResult {
	r := textResult(fmt.Sprintf(format, args...))
	r.IsError = true
	return r
}

// toolHandler is a function that handles an MCP tool call.
type toolHandler func(ctx context.Context, s *Server, params json.RawMessage) ToolResult

// toolEntry bundles a tool definition with its handler.
type toolEntry struct {
	Tool    Tool
	Handler toolHandler
}

const targetProp = `"target": {"type": "string", "description": "Base URL of the target; defaults to the first configured target"}`

// allTools returns the set of MCP tools the server exposes.
func allTools() []toolEntry {
	return []toolEntry{
		{
			Tool: Tool{
				Name:        "blogcheck_status",
				Description: "Health check every configured target and report whether it is reachable.",
				InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "required": []}`),
			},
			Handler: handleStatus,
		},
		{
			Tool: Tool{
				Name:        "blogcheck_reset",
				Description: "Empty the users and blogs of a target through its testing reset endpoint.",
				InputSchema: json.RawMessage(`{"type": "object", "properties": {` + targetProp + `}, "required": []}`),
			},
			Handler: handleReset,
		},
		{
			Tool: Tool{
				Name:        "blogcheck_seed_user",
				Description: "Create a user on a target through the users API.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"name": {"type": "string"},
						"username": {"type": "string"},
						"password": {"type": "string"},
						` + targetProp + `
					},
					"required": ["username", "password"]
				}`),
			},
			Handler: handleSeedUser,
		},
		{
			Tool: Tool{
				Name:        "blogcheck_login",
				Description: "Log in through the login API and return the session token.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"username": {"type": "string"},
						"password": {"type": "string"},
						` + targetProp + `
					},
					"required": ["username", "password"]
				}`),
			},
			Handler: handleLogin,
		},
		{
			Tool: Tool{
				Name:        "blogcheck_run",
				Description: "Run scenarios against the configured targets and return the report. Without paths the configured suites (or the built-in blog list suite) run.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"paths": {"type": "array", "items": {"type": "string"}, "description": "Suite files or directories"},
						"filter": {"type": "string", "description": "Case-insensitive substring of the scenario name"}
					},
					"required": []
				}`),
			},
			Handler: handleRun,
		},
	}
}

func handleStatus(ctx context.Context, s *Server, _ json.RawMessage) ToolResult {
	var b strings.Builder
	fmt.Fprintf(&b, "%-40s %s\n", "TARGET", "HEALTH")
	down := 0
	for _, c := range s.clients {
		ok, detail := c.Health(ctx)
		status := "healthy"
		if !ok {
			status = "unreachable: " + detail
			down++
		}
		fmt.Fprintf(&b, "%-40s %s\n", c.BaseURL(), status)
	}
	res := textResult(b.String())
	res.IsError = down > 0
	return res
}

type targetParams struct {
	Target string `json:"target"`
}

func handleReset(ctx context.Context, s *Server, params json.RawMessage) ToolResult {
	var p targetParams
	if err := unmarshalParams(params, &p); err != nil {
		return errorResult("Invalid params: %v", err)
	}
	c, err := s.target(p.Target)
	if err != nil {
		return errorResult("%v", err)
	}
	if err := c.Reset(ctx); err != nil {
		return errorResult("Reset failed: %v", err)
	}
	return textResult(fmt.Sprintf("Reset %s", c.BaseURL()))
}

type seedUserParams struct {
	client.User
	Target string `json:"target"`
}

func handleSeedUser(ctx context.Context, s *Server, params json.RawMessage) ToolResult {
	var p seedUserParams
	if err := unmarshalParams(params, &p); err != nil {
		return errorResult("Invalid params: %v", err)
	}
	if p.Username == "" || p.Password == "" {
		return errorResult("Invalid params: username and password are required")
	}
	c, err := s.target(p.Target)
	if err != nil {
		return errorResult("%v", err)
	}
	if err := c.CreateUser(ctx, p.User); err != nil {
		return errorResult("Creating user %s failed: %v", p.Username, err)
	}
	return textResult(fmt.Sprintf("Created user %s on %s", p.Username, c.BaseURL()))
}

type loginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Target   string `json:"target"`
}

func handleLogin(ctx context.Context, s *Server, params json.RawMessage) ToolResult {
	var p loginParams
	if err := unmarshalParams(params, &p); err != nil {
		return errorResult("Invalid params: %v", err)
	}
	if p.Username == "" {
		return errorResult("Invalid params: username is required")
	}
	c, err := s.target(p.Target)
	if err != nil {
		return errorResult("%v", err)
	}
	sess, err := c.Login(ctx, p.Username, p.Password)
	if err != nil {
		return errorResult("Login as %s failed (%s): %v", p.Username, failure.KindOf(err), err)
	}
	data, _ := json.MarshalIndent(sess, "", "  ")
	return textResult(string(data))
}

type runParams struct {
	Paths  []string `json:"paths"`
	Filter string   `json:"filter"`
}

func handleRun(ctx context.Context, s *Server, params json.RawMessage) ToolResult {
	var p runParams
	if err := unmarshalParams(params, &p); err != nil {
		return errorResult("Invalid params: %v", err)
	}
	if s.pool == nil {
		return errorResult("No runner configured")
	}
	paths := p.Paths
	if len(paths) == 0 {
		paths = s.suites
	}
	scenarios, err := suite.Load(paths)
	if err != nil {
		return errorResult("Loading suites: %v", err)
	}
	scenarios = suite.Filter(scenarios, p.Filter)
	if len(scenarios) == 0 {
		return errorResult("No scenarios match %q", p.Filter)
	}

	results := s.pool.Run(ctx, scenarios)

	var buf bytes.Buffer
	pr := report.NewPrinter(&buf, false)
	for _, res := range results {
		pr.Scenario(res)
	}
	pr.Summary(results)

	out := textResult(buf.String())
	out.IsError = scenario.Summarize(results).Failed > 0
	return out
}
