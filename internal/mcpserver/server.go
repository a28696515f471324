// ABOUTME: MCP server exposing the four conversation tools over stdio or streamable HTTP
// ABOUTME: Serialises tool calls and turns every failure into an isError tool result

package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names.
const (
	ToolSendMessage          = "send_message"
	ToolContinueConversation = "continue_conversation"
	ToolNotifyUser           = "notify_user"
	ToolEndConversation      = "end_conversation"
)

// Conversations defines what the server needs from the conversation layer.
type Conversations interface {
	Open(ctx context.Context, text string) (id, reply string, err error)
	Continue(ctx context.Context, id, text string) (string, error)
	Notify(ctx context.Context, id, text string) error
	End(ctx context.Context, id, text string) (int64, error)
}

// Config holds configuration for the MCP server.
type Config struct {
	Conversations Conversations
	Name          string
	Version       string
	Logger        *slog.Logger
}

// Server wraps an MCP server whose tools drive a Conversations.
type Server struct {
	conv   Conversations
	mcp    *server.MCPServer
	logger *slog.Logger

	// dispatch allows one tool call at a time.
	dispatch sync.Mutex
}

// New creates a new Server and registers its tools.
func New(cfg Config) (*Server, error) {
	if cfg.Conversations == nil {
		return nil, errors.New("conversations is required")
	}

	name := cfg.Name
	if name == "" {
		name = "coven-telegram"
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		conv:   cfg.Conversations,
		logger: logger.With("component", "mcp"),
	}
	s.mcp = server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.mcp.AddTools(s.tools()...)
	return s, nil
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves MCP over the given reader and writer until ctx is done
// or the input closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("serving MCP over stdio")
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HTTPHandler returns a streamable HTTP handler for the server. When token
// is non-empty every request must carry it as a bearer token.
func (s *Server) HTTPHandler(token string) http.Handler {
	h := server.NewStreamableHTTPServer(s.mcp)
	if token == "" {
		return h
	}
	return RequireBearer(token, h)
}

func (s *Server) tools() []server.ServerTool {
	conversationID := mcp.WithString("conversation_id",
		mcp.Required(),
		mcp.Description("The conversation ID from send_message"),
	)

	return []server.ServerTool{
		{
			Tool: mcp.NewTool(ToolSendMessage,
				mcp.WithDescription("Send a message to the user via Telegram and wait for their response."),
				mcp.WithString("message",
					mcp.Required(),
					mcp.Description("The message to send to the user. Be clear and conversational."),
				),
			),
			Handler: s.handle(ToolSendMessage, s.sendMessage),
		},
		{
			Tool: mcp.NewTool(ToolContinueConversation,
				mcp.WithDescription("Continue an active conversation with a follow-up message."),
				conversationID,
				mcp.WithString("message", mcp.Required(), mcp.Description("Your follow-up message")),
			),
			Handler: s.handle(ToolContinueConversation, s.continueConversation),
		},
		{
			Tool: mcp.NewTool(ToolNotifyUser,
				mcp.WithDescription("Send a notification message without waiting for a response. Use this for status updates or acknowledgments."),
				conversationID,
				mcp.WithString("message", mcp.Required(), mcp.Description("The notification message")),
			),
			Handler: s.handle(ToolNotifyUser, s.notifyUser),
		},
		{
			Tool: mcp.NewTool(ToolEndConversation,
				mcp.WithDescription("End an active conversation with a closing message."),
				conversationID,
				mcp.WithString("message", mcp.Required(), mcp.Description("Your closing message")),
			),
			Handler: s.handle(ToolEndConversation, s.endConversation),
		},
	}
}

type toolFunc func(ctx context.Context, args map[string]any) (string, error)

// handle wraps a tool with the dispatch lock, request logging and error
// conversion.
func (s *Server) handle(name string, fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.dispatch.Lock()
		defer s.dispatch.Unlock()

		requestID := uuid.New().String()
		start := time.Now()
		s.logger.Debug("tools/call", "tool_name", name, "request_id", requestID)

		text, err := fn(ctx, req.GetArguments())
		if err != nil {
			s.logger.Warn("tools/call failed",
				"tool_name", name,
				"request_id", requestID,
				"error", err,
				"duration", time.Since(start),
			)
			return mcp.NewToolResultError("Error: " + err.Error()), nil
		}

		s.logger.Debug("tools/call complete",
			"tool_name", name,
			"request_id", requestID,
			"duration", time.Since(start),
		)
		return mcp.NewToolResultText(text), nil
	}
}

func (s *Server) sendMessage(ctx context.Context, args map[string]any) (string, error) {
	message, err := stringArg(args, "message")
	if err != nil {
		return "", err
	}
	id, reply, err := s.conv.Open(ctx, message)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Message sent successfully.\n\nConversation ID: %s\n\nUser's response:\n%s\n\nUse continue_conversation for follow-ups or end_conversation to finish.", id, reply), nil
}

func (s *Server) continueConversation(ctx context.Context, args map[string]any) (string, error) {
	id, message, err := conversationArgs(args)
	if err != nil {
		return "", err
	}
	reply, err := s.conv.Continue(ctx, id, message)
	if err != nil {
		return "", err
	}
	return "User's response:\n" + reply, nil
}

func (s *Server) notifyUser(ctx context.Context, args map[string]any) (string, error) {
	id, message, err := conversationArgs(args)
	if err != nil {
		return "", err
	}
	if err := s.conv.Notify(ctx, id, message); err != nil {
		return "", err
	}
	return `Notification sent: "` + message + `"`, nil
}

func (s *Server) endConversation(ctx context.Context, args map[string]any) (string, error) {
	id, message, err := conversationArgs(args)
	if err != nil {
		return "", err
	}
	seconds, err := s.conv.End(ctx, id, message)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Conversation ended. Duration: %ds", seconds), nil
}
