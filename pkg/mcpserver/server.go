// Copyright 2026 © The RetailQA Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes the question-answering pipeline as MCP tools
// so that external agents can ask questions, read the KPI summary and
// retrieve raw context records.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jllopis/retailqa/pkg/app"
)

// Server wraps an mcp-go server around a built pipeline.
type Server struct {
	app       *app.App
	mcpServer *server.MCPServer
}

// New creates the MCP server and registers the question-answering tools.
func New(a *app.App, name, version string) *Server {
	s := &Server{
		app:       a,
		mcpServer: server.NewMCPServer(name, version),
	}

	s.register("ask_question",
		"Answer a natural-language question about the retail invoice dataset.",
		s.handleAskQuestion,
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer.")))

	s.register("kpi_summary",
		"Return the precomputed KPI summary of the cleaned invoice dataset.",
		s.handleKPISummary)

	s.register("retrieve_rows",
		"Retrieve the invoice records most similar to a query, without composing an answer.",
		s.handleRetrieveRows,
		mcp.WithString("question", mcp.Required(), mcp.Description("The retrieval query.")),
		mcp.WithNumber("top_k", mcp.Description("How many records to return. Defaults to 5.")))

	return s
}

func (s *Server) register(name, description string, handler func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error), opts ...mcp.ToolOption) {
	opts = append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	tool := mcp.NewTool(name, opts...)
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		return handler(ctx, args)
	})
}

func (s *Server) handleAskQuestion(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	question, _ := args["question"].(string)
	if question == "" {
		return mcp.NewToolResultError("question is required"), nil
	}
	answer, err := s.app.Ask(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(answer)
}

func (s *Server) handleKPISummary(ctx context.Context, _ map[string]interface{}) (*mcp.CallToolResult, error) {
	kpis := s.app.KPIs()
	return jsonResult(map[string]interface{}{
		"has_data":            kpis.HasData,
		"total_revenue":       kpis.TotalRevenue,
		"top_country":         kpis.TopCountry,
		"top_country_revenue": kpis.TopCountryRevenue,
		"monthly_revenue":     kpis.MonthlyRevenue,
	})
}

func (s *Server) handleRetrieveRows(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	question, _ := args["question"].(string)
	if question == "" {
		return mcp.NewToolResultError("question is required"), nil
	}
	topK := 5
	if v, ok := args["top_k"].(float64); ok && v > 0 {
		topK = int(v)
	}

	docs, err := s.app.Builder().Retrieve(ctx, question, topK)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(docs)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// StreamableHTTPServer returns an HTTP transport for the server. Callers
// own its lifecycle.
func (s *Server) StreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcpServer)
}
