package main

import (
	"context"
	"encoding/json"
	"os"

	"opacity-verifier/internal/app"
	"opacity-verifier/internal/config"
	"opacity-verifier/internal/logging"
	"opacity-verifier/internal/verify"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const toolVerifyThread = "opacity.verify_tweet_thread"

type verifier interface {
	Verify(ctx context.Context, tweetID string) verify.Result
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	httpServer := server.NewStreamableHTTPServer(
		newServer(a.Verifier),
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
	)
	log.Info("verifier MCP server listening", zap.String("addr", ":"+cfg.MCPPort+"/mcp"))
	if err := httpServer.Start(":" + cfg.MCPPort); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func newServer(v verifier) *server.MCPServer {
	s := server.NewMCPServer(
		"opacity-verifier",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	tool := mcp.Tool{
		Name:        toolVerifyThread,
		Description: "Verify the Opacity proof referenced by a tweet or its thread root, act on the verdict and reply",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"tweet_id": map[string]any{"type": "string", "description": "The tweet that mentions the verifier"},
			},
			Required: []string{"tweet_id"},
		},
	}
	s.AddTool(tool, verifyHandler(v))
	return s
}

func verifyHandler(v verifier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tweetID, err := request.RequireString("tweet_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res := v.Verify(ctx, tweetID)
		b, err := json.Marshal(res)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if res.Status == verify.StatusFailed {
			return mcp.NewToolResultError(string(b)), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}
