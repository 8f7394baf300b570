// Package mcpserver exposes the mailbox operations as MCP tools over stdio.
package mcpserver

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/avivsinai/a2a-mailbox/internal/service"
)

// Name is the server name announced during MCP initialization.
const Name = "a2a"

// Options configures the tool handlers.
type Options struct {
	Version string
	Logger  zerolog.Logger

	// Poll bounds used when poll_inbox is called without them. A zero
	// MaxIterations means the package default; Delay is used as given.
	MaxIterations int
	Delay         time.Duration
}

// Handlers holds the tool handlers bound to one Service.
type Handlers struct {
	svc  *service.Service
	opts Options
}

func NewHandlers(svc *service.Service, opts Options) *Handlers {
	return &Handlers{svc: svc, opts: opts}
}

// New creates the MCP server with every mailbox tool registered.
func New(svc *service.Service, opts Options) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		opts.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	s.AddTools(NewHandlers(svc, opts).Tools()...)
	return s
}

// Serve runs s on the given streams until ctx is cancelled or in is closed.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, logger zerolog.Logger) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(log.New(logger, "", 0))
	logger.Info().Str("server", Name).Msg("mcp stdio server started")
	return stdio.Listen(ctx, in, out)
}

// wrap attaches a correlation id to the call's logger and turns operation
// errors into tool error results.
func (h *Handlers) wrap(tool string, fn func(ctx context.Context, req mcp.CallToolRequest) (string, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := h.opts.Logger.With().
			Str("call_id", uuid.NewString()).
			Str("tool", tool).
			Logger()
		ctx = logger.WithContext(ctx)

		out, err := fn(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

const instructions = `Agents coordinate through a shared filesystem mailbox.
Register first with register_agent, check who else is around with list_agents,
send with send_message, wait for mail with poll_inbox, and acknowledge each
message you have handled with mark_read.`
