package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/clearway-labs/refunddesk/pkg/service"
)

const protocolVersion = "2024-11-05"

// Server speaks newline-delimited JSON-RPC over a reader/writer pair,
// exposing the tool catalog to a conversational-agent host.
type Server struct {
	registry  *Registry
	sessionID string
	name      string
	version   string
	logger    *slog.Logger
}

// NewServer wraps the registry for one session.
func NewServer(registry *Registry, sessionID, name, version string) *Server {
	return &Server{
		registry:  registry,
		sessionID: sessionID,
		name:      name,
		version:   version,
		logger:    slog.Default().With("component", "rpc", "session_id", sessionID),
	}
}

// Wire types.

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
	Capabilities    ServerCapabilities `json:"capabilities"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type ListToolsResult struct {
	Tools []*Tool `json:"tools"`
}

type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type CallToolResult struct {
	Content []ToolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Run reads newline-delimited requests until EOF or context cancellation.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}
		if len(line) <= 1 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if err := s.sendError(out, nil, -32700, "Parse error"); err != nil {
				return err
			}
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := s.send(out, resp); err != nil {
				return err
			}
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: InitializeResult{
				ProtocolVersion: protocolVersion,
				ServerInfo:      ServerInfo{Name: s.name, Version: s.version},
				Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}},
			},
		}
	case "tools/list":
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  ListToolsResult{Tools: s.registry.Tools()},
		}
	case "tools/call":
		return s.handleCallTool(ctx, req)
	case "notifications/initialized":
		return nil
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32601, Message: "Method not found"},
		}
	}
}

func (s *Server) handleCallTool(ctx context.Context, req *Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32602, Message: "Invalid params"},
		}
	}

	s.logger.DebugContext(ctx, "tool call", "tool", params.Name)
	result, err := s.registry.Call(ctx, s.sessionID, params.Name, params.Arguments)
	if err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: CallToolResult{
				Content: []ToolContent{{Type: "text", Text: errorText(err)}},
				IsError: true,
			},
		}
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32603, Message: "Internal error"},
		}
	}
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: CallToolResult{
			Content: []ToolContent{{Type: "text", Text: string(resultJSON)}},
		},
	}
}

// errorText serializes a failure for the tool caller. Service failures keep
// their discriminated kind so the agent can branch on it.
func errorText(err error) string {
	if kind := service.KindOf(err); kind != "" {
		payload, merr := json.Marshal(map[string]string{
			"failure_kind": string(kind),
			"error":        err.Error(),
		})
		if merr == nil {
			return string(payload)
		}
	}
	return fmt.Sprintf("Error: %v", err)
}

func (s *Server) send(w io.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (s *Server) sendError(w io.Writer, id any, code int, message string) error {
	return s.send(w, &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	})
}
