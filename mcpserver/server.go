// Package mcpserver exposes the query interface (spec §6) as MCP tools, so
// that Claude (or any MCP client) can search indexed events and assets over
// stdio. Grounded on matthewjhunter/memstore's mcpserver/server.go for the
// tool-registration and text-result shape, with memory_store/_list/_delete
// etc. replaced by a single search surface since indexing itself is the
// daemon's job (spec C14), not something an MCP client drives interactively.
package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AprovanLabs/apprentice/internal/related"
	"github.com/AprovanLabs/apprentice/internal/search"
)

// SearchServer bridges MCP tool calls to a search.Searcher.
type SearchServer struct {
	searcher *search.Searcher
}

// NewSearchServer builds a server backed by the given Searcher.
func NewSearchServer(searcher *search.Searcher) *SearchServer {
	return &SearchServer{searcher: searcher}
}

// --- Input types (MCP SDK infers JSON schemas from struct tags) ---

// SearchInput is the input schema for the apprentice_search tool, mirroring
// the Search(query, opts) query interface (spec §6).
type SearchInput struct {
	Query         string            `json:"query" jsonschema:"natural language or keyword search query"`
	Mode          string            `json:"mode,omitempty" jsonschema:"fts, vector, or hybrid (default: hybrid, degrading to fts when no embeddings exist)"`
	Limit         int               `json:"limit,omitempty" jsonschema:"maximum number of results (default 20)"`
	Offset        int               `json:"offset,omitempty" jsonschema:"pagination offset"`
	Events        bool              `json:"events,omitempty" jsonschema:"include events in the search scope (default true if assets is also unset)"`
	Assets        bool              `json:"assets,omitempty" jsonschema:"include assets in the search scope (default true if events is also unset)"`
	Since         string            `json:"since,omitempty" jsonschema:"RFC3339 lower timestamp bound"`
	Until         string            `json:"until,omitempty" jsonschema:"RFC3339 upper timestamp bound"`
	RecentMinutes int               `json:"recentMinutes,omitempty" jsonschema:"restrict to the last N minutes"`
	Filters       map[string]string `json:"filters,omitempty" jsonschema:"dot-path equality filters, e.g. {\"metadata.shell.exit_code\": \"0\"}"`
	ContextIDs    []string          `json:"contextIds,omitempty" jsonschema:"restrict to these registered context ids"`
	Extensions    []string          `json:"extensions,omitempty" jsonschema:"restrict assets to these file extensions"`
	Related       bool              `json:"related,omitempty" jsonschema:"attach related-context (spec §4.13) to each event result"`
	GroupBy       string            `json:"groupBy,omitempty" jsonschema:"dot-path to group related events by (falls back to a time window when unset)"`
	WindowSeconds int               `json:"windowSeconds,omitempty" jsonschema:"related-context time window in seconds (default 300)"`
}

// RelatedInput is the input schema for the apprentice_related tool.
type RelatedInput struct {
	EventID       string `json:"eventId" jsonschema:"the event id to find related context for"`
	GroupBy       string `json:"groupBy,omitempty" jsonschema:"dot-path to group by (falls back to a time window when unset or empty)"`
	OrderBy       string `json:"orderBy,omitempty" jsonschema:"field to order grouped results by (default timestamp)"`
	Direction     string `json:"direction,omitempty" jsonschema:"asc or desc (default asc)"`
	WindowSeconds int    `json:"windowSeconds,omitempty" jsonschema:"time window in seconds for the temporal fallback (default 300)"`
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum related events/assets to return (default 10)"`
}

// --- Tool registration ---

// Register adds the search tools to the given MCP server.
func (ss *SearchServer) Register(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: "apprentice_search",
		Description: `Search indexed shell history, chat transcripts, and files using hybrid full-text and semantic search. Returns ranked results with relevance scores.

Use this to recall what was done, said, or written previously: a past command and its output, a chat turn, a script's contents, or a versioned file at a specific commit.

Set mode=vector for pure semantic recall, mode=fts for exact keyword/phrase matching, or leave it unset for hybrid (the default, automatically falling back to fts when no embeddings are available). Set related=true to pull in the events and assets around each hit (same metadata group, or the same time window).`,
	}, ss.HandleSearch)

	mcp.AddTool(s, &mcp.Tool{
		Name: "apprentice_related",
		Description: `Find the events and assets related to a specific event by id: either events sharing the same metadata group (groupBy), or events within a time window when no grouping applies.

Use this after apprentice_search surfaces an event you want more context around — e.g. the other shell commands in the same session, or the file a chat turn was discussing.`,
	}, ss.HandleRelated)
}

// --- Handlers ---

func (ss *SearchServer) HandleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Query) == "" {
		return textResult("Error: query is required", true), nil, nil
	}

	opts := search.Options{
		Mode:          search.Mode(strings.ToLower(input.Mode)),
		Limit:         input.Limit,
		Offset:        input.Offset,
		Scope:         resolveScope(input.Events, input.Assets),
		RecentMinutes: input.RecentMinutes,
		Filters:       input.Filters,
		ContextIDs:    input.ContextIDs,
		Extensions:    input.Extensions,
		Related:       input.Related,
		WindowSeconds: input.WindowSeconds,
	}

	if input.Since != "" {
		t, err := time.Parse(time.RFC3339, input.Since)
		if err != nil {
			return textResult(fmt.Sprintf("Error: invalid since: %v", err), true), nil, nil
		}
		opts.Since = &t
	}
	if input.Until != "" {
		t, err := time.Parse(time.RFC3339, input.Until)
		if err != nil {
			return textResult(fmt.Sprintf("Error: invalid until: %v", err), true), nil, nil
		}
		opts.Until = &t
	}
	if input.GroupBy != "" {
		opts.Strategy = &search.Strategy{GroupBy: input.GroupBy}
	}

	result, err := ss.searcher.Search(ctx, input.Query, opts)
	if err != nil {
		return textResult(fmt.Sprintf("Error searching: %v", err), true), nil, nil
	}

	if len(result.Results) == 0 {
		return textResult("No matching results found.", false), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d results (mode=%s, total=%d, %dms, embeddingsAvailable=%v)\n\n",
		len(result.Results), result.Mode, result.Total, result.DurationMs, result.EmbeddingsAvailable)

	for i, r := range result.Results {
		fmt.Fprintf(&b, "[%d] (%s, score=%.4f, match=%s) %s\n", i+1, r.Kind, r.RRFScore, r.MatchType, r.Timestamp.Format(time.RFC3339))
		switch r.Kind {
		case search.KindEvent:
			fmt.Fprintf(&b, "    %s\n", r.Message)
		case search.KindAsset:
			fmt.Fprintf(&b, "    %s (context=%s)\n", r.Key, r.ContextID)
		}
		if r.Related != nil {
			writeRelated(&b, r.Related)
		}
		fmt.Fprintln(&b)
	}

	return textResult(b.String(), false), nil, nil
}

func (ss *SearchServer) HandleRelated(ctx context.Context, _ *mcp.CallToolRequest, input RelatedInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.EventID) == "" {
		return textResult("Error: eventId is required", true), nil, nil
	}

	strategy := related.Strategy{GroupBy: input.GroupBy, OrderBy: input.OrderBy, Direction: input.Direction}
	windowSeconds := input.WindowSeconds
	if windowSeconds <= 0 {
		windowSeconds = 300
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	ctxResult, err := ss.searcher.Related(ctx, input.EventID, strategy, windowSeconds, limit)
	if err != nil {
		return textResult(fmt.Sprintf("Error: %v", err), true), nil, nil
	}

	var b strings.Builder
	writeRelated(&b, ctxResult)
	return textResult(b.String(), false), nil, nil
}

func writeRelated(b *strings.Builder, rel *related.Context) {
	fmt.Fprintf(b, "    related (%s): %d events, %d assets\n", rel.StrategyUsed, len(rel.Events), len(rel.Assets))
	for _, e := range rel.Events {
		fmt.Fprintf(b, "      - [%s] %s\n", e.Timestamp.Format(time.RFC3339), e.Message)
	}
	for _, a := range rel.Assets {
		fmt.Fprintf(b, "      - asset %s\n", a.Key)
	}
}

func resolveScope(events, assets bool) search.Scope {
	if !events && !assets {
		return search.Scope{Events: true, Assets: true}
	}
	return search.Scope{Events: events, Assets: assets}
}

// textResult builds a CallToolResult with a single text content block.
func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: isError,
	}
}
