// Package mcptool exposes the memory engine as MCP tools. Tool inputs are
// plain structs the SDK derives JSON schemas from; every handler returns a
// text result and reports failures through the result's IsError flag rather
// than a protocol error, so a misbehaving call never tears down the session.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Gabrielmcp78/mem0-sub000/internal/engine"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
)

// Server bridges MCP tool calls to an engine.
type Server struct {
	engine *engine.Engine
}

// NewServer creates the tool surface over the given engine.
func NewServer(e *engine.Engine) *Server {
	return &Server{engine: e}
}

// --- Input types (the SDK infers JSON schemas from struct tags) ---

// MessageInput is one conversation turn in an add call.
type MessageInput struct {
	Role    string   `json:"role" jsonschema:"message role: user, assistant, or system"`
	Content string   `json:"content" jsonschema:"text content of the turn"`
	Images  []string `json:"images,omitempty" jsonschema:"image URLs or data URIs attached to the turn"`
}

// AddInput is the input schema for the add_memories tool.
type AddInput struct {
	Messages []MessageInput    `json:"messages" jsonschema:"ordered conversation turns to extract memories from"`
	UserID   string            `json:"user_id,omitempty" jsonschema:"user the memories belong to; at least one of user_id, agent_id, run_id is required"`
	AgentID  string            `json:"agent_id,omitempty" jsonschema:"agent the memories belong to"`
	RunID    string            `json:"run_id,omitempty" jsonschema:"session or run the memories belong to"`
	Metadata map[string]string `json:"metadata,omitempty" jsonschema:"key-value metadata attached to every created memory"`
	Infer    *bool             `json:"infer,omitempty" jsonschema:"when false, skip extraction and store each message verbatim (default true)"`
	Prompt   string            `json:"prompt,omitempty" jsonschema:"replacement fact-extraction instruction for this call"`
}

// SearchInput is the input schema for the search_memories tool.
type SearchInput struct {
	Query     string            `json:"query" jsonschema:"natural language search query"`
	UserID    string            `json:"user_id,omitempty" jsonschema:"user scope to search within; at least one scope field is required"`
	AgentID   string            `json:"agent_id,omitempty" jsonschema:"agent scope to search within"`
	RunID     string            `json:"run_id,omitempty" jsonschema:"session or run scope to search within"`
	Filter    map[string]string `json:"filter,omitempty" jsonschema:"metadata equality filters applied on top of the scope"`
	Limit     int               `json:"limit,omitempty" jsonschema:"maximum number of results (default 100)"`
	Threshold float64           `json:"threshold,omitempty" jsonschema:"drop results scoring below this value"`
}

// GetInput is the input schema for the get_memory tool.
type GetInput struct {
	ID string `json:"id" jsonschema:"the memory ID to fetch"`
}

// GetAllInput is the input schema for the get_all_memories tool.
type GetAllInput struct {
	UserID  string            `json:"user_id,omitempty" jsonschema:"user scope to list; at least one scope field is required"`
	AgentID string            `json:"agent_id,omitempty" jsonschema:"agent scope to list"`
	RunID   string            `json:"run_id,omitempty" jsonschema:"session or run scope to list"`
	Filter  map[string]string `json:"filter,omitempty" jsonschema:"metadata equality filters applied on top of the scope"`
	Limit   int               `json:"limit,omitempty" jsonschema:"maximum number of results (default 100)"`
}

// HistoryInput is the input schema for the memory_history tool.
type HistoryInput struct {
	ID string `json:"id" jsonschema:"the memory ID to show the change log for"`
}

// DeleteInput is the input schema for the delete_memory tool.
type DeleteInput struct {
	ID string `json:"id" jsonschema:"the memory ID to delete"`
}

// DeleteAllInput is the input schema for the delete_all_memories tool.
type DeleteAllInput struct {
	UserID  string `json:"user_id,omitempty" jsonschema:"user scope to clear; at least one scope field is required"`
	AgentID string `json:"agent_id,omitempty" jsonschema:"agent scope to clear"`
	RunID   string `json:"run_id,omitempty" jsonschema:"session or run scope to clear"`
}

// --- Tool registration ---

// Register adds all memory tools to the given MCP server.
func (s *Server) Register(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name: "add_memories",
		Description: `Store long-term memories extracted from a conversation. The service distills the messages into discrete facts, compares them against what is already known in the scope, and adds, updates, or deletes memories accordingly. Returns one entry per applied change.

Scope the call with user_id, agent_id, and/or run_id; at least one is required. Pass infer=false to skip extraction and store each message verbatim.`,
	}, s.HandleAdd)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "search_memories",
		Description: `Search stored memories by semantic similarity within a scope. Returns ranked results with relevance scores, plus related graph relations when the knowledge graph is enabled.

Search before asking the user to repeat themselves. Narrow with metadata filters or a score threshold when the scope holds many memories.`,
	}, s.HandleSearch)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_memory",
		Description: "Fetch a single memory by its ID. Deleted or unknown IDs return an error.",
	}, s.HandleGet)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "get_all_memories",
		Description: `List stored memories within a scope without a query. Use this for a complete picture of what is known about a user, agent, or session.`,
	}, s.HandleGetAll)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "memory_history",
		Description: `Show the append-only change log of a memory: every add, update, and delete it went through, oldest first. The log survives deletion of the memory itself.`,
	}, s.HandleHistory)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_memory",
		Description: "Delete a specific memory by its ID. The memory disappears from retrieval but its change log is retained.",
	}, s.HandleDelete)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "delete_all_memories",
		Description: `Delete every memory within a scope. Change logs are retained and each deleted memory gets a final delete entry. Use with care; this cannot be undone.`,
	}, s.HandleDeleteAll)
}

// --- Handlers ---

func (s *Server) HandleAdd(ctx context.Context, _ *mcp.CallToolRequest, input AddInput) (*mcp.CallToolResult, any, error) {
	if len(input.Messages) == 0 {
		return textResult("Error: messages is required", true), nil, nil
	}

	messages := make([]memory.Message, len(input.Messages))
	for i, m := range input.Messages {
		messages[i] = memory.Message{Role: m.Role, Content: m.Content, Images: m.Images}
	}

	req := engine.AddRequest{
		Messages:       messages,
		Scope:          scopeOf(input.UserID, input.AgentID, input.RunID),
		Metadata:       input.Metadata,
		Raw:            input.Infer != nil && !*input.Infer,
		PromptOverride: input.Prompt,
	}

	results, err := s.engine.Add(ctx, req)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if len(results) == 0 {
		return textResult("No new memories.", false), nil, nil
	}
	return jsonResult(map[string]any{"results": results}), nil, nil
}

func (s *Server) HandleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Query) == "" {
		return textResult("Error: query is required", true), nil, nil
	}

	limit := input.Limit
	if limit == 0 {
		limit = engine.DefaultSearchLimit
	}

	resp, err := s.engine.Search(ctx, engine.SearchRequest{
		Query:     input.Query,
		Scope:     scopeOf(input.UserID, input.AgentID, input.RunID),
		Filter:    input.Filter,
		Limit:     limit,
		Threshold: input.Threshold,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	if len(resp.Results) == 0 && len(resp.Relations) == 0 {
		return textResult("No matching memories found.", false), nil, nil
	}
	return jsonResult(resp), nil, nil
}

func (s *Server) HandleGet(ctx context.Context, _ *mcp.CallToolRequest, input GetInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.ID) == "" {
		return textResult("Error: id is required", true), nil, nil
	}

	fact, err := s.engine.Get(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(fact), nil, nil
}

func (s *Server) HandleGetAll(ctx context.Context, _ *mcp.CallToolRequest, input GetAllInput) (*mcp.CallToolResult, any, error) {
	limit := input.Limit
	if limit == 0 {
		limit = engine.DefaultSearchLimit
	}

	facts, err := s.engine.GetAll(ctx, scopeOf(input.UserID, input.AgentID, input.RunID), input.Filter, limit)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if len(facts) == 0 {
		return textResult("No memories found.", false), nil, nil
	}
	return jsonResult(map[string]any{"memories": facts}), nil, nil
}

func (s *Server) HandleHistory(ctx context.Context, _ *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.ID) == "" {
		return textResult("Error: id is required", true), nil, nil
	}

	entries, err := s.engine.History(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if len(entries) == 0 {
		return textResult("No history found.", false), nil, nil
	}
	return jsonResult(map[string]any{"history": entries}), nil, nil
}

func (s *Server) HandleDelete(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.ID) == "" {
		return textResult("Error: id is required", true), nil, nil
	}

	if err := s.engine.Delete(ctx, input.ID); err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(fmt.Sprintf("Deleted memory %s.", input.ID), false), nil, nil
}

func (s *Server) HandleDeleteAll(ctx context.Context, _ *mcp.CallToolRequest, input DeleteAllInput) (*mcp.CallToolResult, any, error) {
	count, err := s.engine.DeleteAll(ctx, scopeOf(input.UserID, input.AgentID, input.RunID))
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(fmt.Sprintf("Deleted %d memories.", count), false), nil, nil
}

// scopeOf assembles a scope from the flat tool fields. Validation happens in
// the engine so every tool reports scope errors the same way.
func scopeOf(userID, agentID, runID string) memory.Scope {
	return memory.Scope{UserID: userID, AgentID: agentID, SessionID: runID}.Normalize()
}

// errorResult maps an engine error to a tool-level error result carrying the
// envelope kind, so clients can distinguish bad input from provider trouble.
func errorResult(err error) *mcp.CallToolResult {
	return textResult(fmt.Sprintf("Error (%s): %v", memory.KindOf(err), err), true)
}

// jsonResult builds a CallToolResult with the value rendered as indented JSON.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return textResult(fmt.Sprintf("Error encoding result: %v", err), true)
	}
	return textResult(string(data), false)
}

// textResult builds a CallToolResult with a single text content block.
func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}
