// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/docservice"
	"github.com/starford/raido/internal/report"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all Raido tools registered.
func New(svc *docservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("validate_corpus",
		mcp.WithDescription("Re-scan the corpus, resolve every cross-reference, and return "+
			"the full health report as JSON (metrics plus anomalies). Read the "+
			"raido://reference-syntax resource to understand how references resolve."),
	), s.validateCorpus)

	s.mcp.AddTool(mcp.NewTool("list_broken_links",
		mcp.WithDescription("List the broken references found by the latest validation run, "+
			"one per line as source:line:column target."),
	), s.listBrokenLinks)

	s.mcp.AddTool(mcp.NewTool("list_orphans",
		mcp.WithDescription("List documents no valid link points to (entry points excluded)."),
	), s.listOrphans)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents whose valid links point to the specified document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the document to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("read_doc",
		mcp.WithDescription("Read the full Markdown content of a document by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id (e.g. guides/setup)")),
	), s.readDoc)

	// Resource: reference syntax and resolution order.
	s.mcp.AddResource(
		mcp.NewResource("raido://reference-syntax", "Reference Syntax",
			mcp.WithResourceDescription("The reference forms Raido recognizes and the order targets resolve in."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readReferenceSyntaxResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) validateCorpus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Validate(ctx, "mcp")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report.NewPayload(res), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listBrokenLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	anomalies, err := s.svc.Anomalies(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError("no validation run recorded; call validate_corpus first"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(anomalies.Broken) == 0 {
		return mcp.NewToolResultText("no broken links"), nil
	}
	var lines []string
	for _, l := range anomalies.Broken {
		lines = append(lines, fmt.Sprintf("%s:%d:%d %s", l.SourceID, l.Line, l.Column, l.RawTarget))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listOrphans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	anomalies, err := s.svc.Anomalies(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError("no validation run recorded; call validate_corpus first"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(anomalies.Orphans) == 0 {
		return mcp.NewToolResultText("no orphans found"), nil
	}
	return mcp.NewToolResultText(strings.Join(anomalies.Orphans, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown document: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) readDoc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Document(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) readReferenceSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://reference-syntax",
			MIMEType: "text/markdown",
			Text:     ReferenceSyntaxContract,
		},
	}, nil
}
