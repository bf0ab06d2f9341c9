package mcpclient

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
)

func TestJoinText(t *testing.T) {
	content := []mcp.Content{
		mcp.NewTextContent("tx: 0xabc"),
		mcp.NewImageContent("aGk=", "image/png"),
		mcp.NewTextContent(""),
		mcp.NewTextContent("confirmed \n"),
	}
	assert.Equal(t, "tx: 0xabc\nconfirmed", joinText(content))
	assert.Empty(t, joinText(nil))
}

func TestStdio_MissingCommand(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s := Stdio{Command: "/nonexistent/wallet-mcp"}

	_, err := s.Call(ctx, "wallet.transfer", map[string]any{"to": "0x1"})
	assert.Error(t, err)

	_, err = s.ListTools(ctx)
	assert.Error(t, err)
}
