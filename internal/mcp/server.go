// Package mcp exposes the indexed literature over the Model Context Protocol
// so that editors and agents can search it and draft review sections.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/litreview/internal/rag"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes collection search and generation
// tools.
type Server struct {
	store     vectordb.Store
	retriever *rag.Retriever
	generator *rag.Generator
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server. A nil generator leaves the
// generate_section tool unregistered.
func NewServer(store vectordb.Store, retriever *rag.Retriever, generator *rag.Generator) *Server {
	s := &Server{
		store:     store,
		retriever: retriever,
		generator: generator,
	}

	s.mcp = server.NewMCPServer(
		"litreview",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(listCollectionsTool, s.handleListCollections)
	s.mcp.AddTool(queryCollectionTool, s.handleQueryCollection)
	if s.generator != nil {
		s.mcp.AddTool(generateSectionTool, s.handleGenerateSection)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
