package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/litreview/internal/rag"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

const defaultRelated = 3

func (s *Server) handleListCollections(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cols, err := s.store.ListCollections(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing collections failed: %v", err)), nil
	}
	if len(cols) == 0 {
		return mcp.NewToolResultText("No collections found. Run `litreview ingest` to index papers."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d collection(s):\n", len(cols)))
	for _, c := range cols {
		n, err := s.store.Count(ctx, c.Name)
		if err != nil {
			sb.WriteString(fmt.Sprintf("- %s (count unavailable: %v)\n", c.Name, err))
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s (%d chunks)\n", c.Name, n))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleQueryCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := request.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: collection"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", vectordb.DefaultNResults)
	if limit <= 0 {
		limit = vectordb.DefaultNResults
	}
	req := vectordb.QueryRequest{QueryTexts: []string{query}, NResults: limit}
	if source := request.GetString("source", ""); source != "" {
		req.Where = map[string]any{"source": source}
	}

	resp, err := s.retriever.Query(ctx, collection, req)
	if err != nil {
		return queryError(collection, err), nil
	}
	return mcp.NewToolResultText(vectordb.FormatResults(firstResults(resp))), nil
}

func (s *Server) handleGenerateSection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := request.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: collection"), nil
	}
	prompt, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: prompt"), nil
	}
	topic := request.GetString("topic", prompt)
	related := request.GetInt("related", defaultRelated)
	if related <= 0 {
		related = defaultRelated
	}

	var retrieved string
	resp, err := s.retriever.Query(ctx, collection, vectordb.QueryRequest{QueryTexts: []string{topic}, NResults: related})
	switch {
	case err == nil:
		retrieved = rag.JoinContext(resp)
	case errors.Is(err, vectordb.ErrCollectionNotFound):
		// Nothing indexed yet; generate without context.
	default:
		return queryError(collection, err), nil
	}

	content, err := s.generator.Generate(ctx, prompt, retrieved)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}
	return mcp.NewToolResultText(content), nil
}

func queryError(collection string, err error) *mcp.CallToolResult {
	if errors.Is(err, vectordb.ErrCollectionNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"Collection %q does not exist. Use list_collections to see what is indexed.", collection,
		))
	}
	return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err))
}

// firstResults converts the first query's columns back into result rows.
func firstResults(resp *rag.QueryResponse) []vectordb.QueryResult {
	if resp == nil || len(resp.IDs) == 0 {
		return nil
	}
	out := make([]vectordb.QueryResult, len(resp.IDs[0]))
	for i := range out {
		out[i] = vectordb.QueryResult{
			ID:       resp.IDs[0][i],
			Content:  resp.Documents[0][i],
			Metadata: resp.Metadatas[0][i],
			Distance: resp.Distances[0][i],
		}
	}
	return out
}
