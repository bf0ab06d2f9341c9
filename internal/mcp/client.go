package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ErrToolFailed wraps the text of a tool result the server flagged as an error.
var ErrToolFailed = errors.New("tool reported an error")

// Stdio launches an MCP tool server over stdio for every call.
type Stdio struct {
	Command string
	Args    []string
	// ClientName is reported to the server during initialization.
	ClientName string
}

func (s Stdio) connect(ctx context.Context) (*mcpclient.Client, error) {
	c, err := mcpclient.NewStdioMCPClient(s.Command, os.Environ(), s.Args...)
	if err != nil {
		return nil, err
	}
	name := s.ClientName
	if name == "" {
		name = "opacity-verifier"
	}
	_, err = c.Initialize(ctx, mcp.InitializeRequest{
		Request: mcp.Request{Method: string(mcp.MethodInitialize)},
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    name,
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Call initializes the MCP client and calls a tool with arbitrary arguments,
// returning concatenated text content. A tool result flagged as an error is
// returned as an error carrying the tool's text.
func (s Stdio) Call(ctx context.Context, tool string, args map[string]any) (string, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return "", err
	}
	defer c.Close()

	res, err := c.CallTool(ctx, mcp.CallToolRequest{
		Request: mcp.Request{Method: string(mcp.MethodToolsCall)},
		Params: mcp.CallToolParams{
			Name:      tool,
			Arguments: args,
		},
	})
	if err != nil {
		return "", err
	}
	if res == nil || len(res.Content) == 0 {
		return "", errors.New("empty tool result")
	}

	text := joinText(res.Content)
	if res.IsError {
		return "", fmt.Errorf("%w: %s: %s", ErrToolFailed, tool, text)
	}
	if text == "" {
		return "", errors.New("no text content returned")
	}
	return text, nil
}

// ListTools returns the tools the server advertises.
func (s Stdio) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	lt, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	return lt.Tools, nil
}

func joinText(content []mcp.Content) string {
	var parts []string
	for _, item := range content {
		if v, ok := item.(mcp.TextContent); ok && v.Text != "" {
			parts = append(parts, v.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
