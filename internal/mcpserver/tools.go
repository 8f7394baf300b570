package mcpserver

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/avivsinai/a2a-mailbox/internal/poll"
	"github.com/avivsinai/a2a-mailbox/internal/service"
)

// Tools returns the seven mailbox tools with their handlers.
func (h *Handlers) Tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: registerAgentTool(), Handler: h.wrap(service.OpRegisterAgent, h.registerAgent)},
		{Tool: unregisterAgentTool(), Handler: h.wrap(service.OpUnregisterAgent, h.unregisterAgent)},
		{Tool: sendMessageTool(), Handler: h.wrap(service.OpSendMessage, h.sendMessage)},
		{Tool: h.pollInboxTool(), Handler: h.wrap(service.OpPollInbox, h.pollInbox)},
		{Tool: markReadTool(), Handler: h.wrap(service.OpMarkRead, h.markRead)},
		{Tool: listAgentsTool(), Handler: h.wrap(service.OpListAgents, h.listAgents)},
		{Tool: listInboxTool(), Handler: h.wrap(service.OpListInbox, h.listInbox)},
	}
}

func agentNameParam(desc string) mcp.ToolOption {
	return mcp.WithString("agent_name", mcp.Required(), mcp.Description(desc))
}

func registerAgentTool() mcp.Tool {
	return mcp.NewTool(service.OpRegisterAgent,
		mcp.WithDescription("Register this agent (or refresh its registration) in the shared agent registry and create its inbox."),
		agentNameParam("Unique agent name: letters, digits, underscores or hyphens"),
		mcp.WithString("description", mcp.Required(), mcp.Description("One line describing what the agent is doing")),
		mcp.WithString("capabilities", mcp.Required(), mcp.Description("Free-text list of what the agent can help with")),
		mcp.WithString("working_dir", mcp.Required(), mcp.Description("Directory the agent is working in")),
	)
}

func (h *Handlers) registerAgent(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	name, err := req.RequireString("agent_name")
	if err != nil {
		return "", err
	}
	description, err := req.RequireString("description")
	if err != nil {
		return "", err
	}
	capabilities, err := req.RequireString("capabilities")
	if err != nil {
		return "", err
	}
	workingDir, err := req.RequireString("working_dir")
	if err != nil {
		return "", err
	}
	return h.svc.RegisterAgent(ctx, name, description, capabilities, workingDir)
}

func unregisterAgentTool() mcp.Tool {
	return mcp.NewTool(service.OpUnregisterAgent,
		mcp.WithDescription("Remove an agent from the registry, optionally deleting its inbox and every message in it."),
		agentNameParam("Agent to unregister"),
		mcp.WithBoolean("delete_inbox", mcp.DefaultBool(false), mcp.Description("Also delete the agent's inbox directory")),
	)
}

func (h *Handlers) unregisterAgent(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	name, err := req.RequireString("agent_name")
	if err != nil {
		return "", err
	}
	return h.svc.UnregisterAgent(ctx, name, req.GetBool("delete_inbox", false))
}

func sendMessageTool() mcp.Tool {
	return mcp.NewTool(service.OpSendMessage,
		mcp.WithDescription("Write a message into another agent's inbox."),
		mcp.WithString("from_agent", mcp.Required(), mcp.Description("Sender agent name")),
		mcp.WithString("to_agent", mcp.Required(), mcp.Description("Recipient agent name")),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject line; also used in the message filename")),
		mcp.WithBoolean("expects_reply", mcp.Required(), mcp.Description("Whether the sender is waiting for an answer")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Message body (markdown)")),
	)
}

func (h *Handlers) sendMessage(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	from, err := req.RequireString("from_agent")
	if err != nil {
		return "", err
	}
	to, err := req.RequireString("to_agent")
	if err != nil {
		return "", err
	}
	subject, err := req.RequireString("subject")
	if err != nil {
		return "", err
	}
	expectsReply, err := req.RequireBool("expects_reply")
	if err != nil {
		return "", err
	}
	body, err := req.RequireString("body")
	if err != nil {
		return "", err
	}
	return h.svc.SendMessage(ctx, from, to, subject, expectsReply, body)
}

func (h *Handlers) pollInboxTool() mcp.Tool {
	return mcp.NewTool(service.OpPollInbox,
		mcp.WithDescription("Wait for the first unread message in an inbox, checking up to max_iterations times with delay_seconds between checks."),
		agentNameParam("Agent whose inbox to poll"),
		mcp.WithNumber("max_iterations", mcp.DefaultNumber(float64(h.maxIterations())), mcp.Description("Number of checks before giving up (at least 1)")),
		mcp.WithNumber("delay_seconds", mcp.DefaultNumber(h.delay().Seconds()), mcp.Description("Seconds to wait between checks (non-negative)")),
	)
}

func (h *Handlers) pollInbox(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	name, err := req.RequireString("agent_name")
	if err != nil {
		return "", err
	}
	maxIterations := req.GetInt("max_iterations", h.maxIterations())
	delay := time.Duration(req.GetFloat("delay_seconds", h.delay().Seconds()) * float64(time.Second))
	out, _, err := h.svc.PollInbox(ctx, name, maxIterations, delay)
	return out, err
}

func markReadTool() mcp.Tool {
	return mcp.NewTool(service.OpMarkRead,
		mcp.WithDescription("Mark a message as read. The path must be a .md file inside the mailbox root."),
		mcp.WithString("message_path", mcp.Required(), mcp.Description("Path of the message file, as shown by poll_inbox")),
	)
}

func (h *Handlers) markRead(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	path, err := req.RequireString("message_path")
	if err != nil {
		return "", err
	}
	return h.svc.MarkRead(ctx, path)
}

func listAgentsTool() mcp.Tool {
	return mcp.NewTool(service.OpListAgents,
		mcp.WithDescription("Show the shared registry of active agents."),
	)
}

func (h *Handlers) listAgents(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
	return h.svc.ListAgents(ctx)
}

func listInboxTool() mcp.Tool {
	return mcp.NewTool(service.OpListInbox,
		mcp.WithDescription("List the messages in an inbox with their read state."),
		agentNameParam("Agent whose inbox to list"),
		mcp.WithBoolean("include_read", mcp.DefaultBool(false), mcp.Description("Also list messages already marked read")),
	)
}

func (h *Handlers) listInbox(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	name, err := req.RequireString("agent_name")
	if err != nil {
		return "", err
	}
	return h.svc.ListInbox(ctx, name, req.GetBool("include_read", false))
}

func (h *Handlers) maxIterations() int {
	if h.opts.MaxIterations > 0 {
		return h.opts.MaxIterations
	}
	return poll.DefaultMaxIterations
}

func (h *Handlers) delay() time.Duration {
	if h.opts.Delay >= 0 {
		return h.opts.Delay
	}
	return poll.DefaultDelay
}
