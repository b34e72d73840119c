package mcpbridge

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rickchristie/think"
)

// AgentFunc is an agent running in this process. It works through cs, an
// MCP client session already connected to the session's server, and
// returns when it is done.
type AgentFunc func(ctx context.Context, req think.SessionRequest, cs *mcp.ClientSession) error

// InProcess returns a Launcher that runs agent in its own goroutine,
// connected to the server over in-memory transports.
func InProcess(agent AgentFunc) Launcher {
	return func(ctx context.Context, req think.SessionRequest) (mcp.Transport, func() error, error) {
		serverTransport, clientTransport := mcp.NewInMemoryTransports()
		done := make(chan error, 1)

		go func() {
			client := mcp.NewClient(&mcp.Implementation{Name: "think-agent", Version: "v1.0.0"}, nil)
			cs, err := client.Connect(ctx, clientTransport)
			if err != nil {
				done <- err
				return
			}
			defer cs.Close()
			done <- agent(ctx, req, cs)
		}()

		return serverTransport, func() error { return <-done }, nil
	}
}
