package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/catalog"
	"github.com/kalambet/draftsmith/internal/generator"
	"github.com/kalambet/draftsmith/internal/profile"
	"github.com/kalambet/draftsmith/internal/style"
)

// NewMCPServer creates an MCP server with the drafting tools and the style
// profile resource registered. All calls act on deps.UserID.
func NewMCPServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"draftsmith",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("draftsmith drafts emails from templates in the user's own writing style."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("draft_email",
			mcp.WithDescription("Draft an email in the user's style. Give a topic, a template id, or both."),
			mcp.WithString("topic", mcp.Description("What the email is about")),
			mcp.WithString("recipient", mcp.Description("Recipient name or address")),
			mcp.WithString("context", mcp.Description("Extra facts the email should mention")),
			mcp.WithString("template_id", mcp.Description("Template to use; see list_templates")),
			mcp.WithString("category", mcp.Description("Email category, e.g. business_formal")),
			mcp.WithBoolean("save", mcp.Description("Keep the draft in the history (default true)")),
		),
		mcpDraftEmail(deps),
	)

	s.AddTool(
		mcp.NewTool("list_templates",
			mcp.WithDescription("List available email templates, optionally filtered by category or fuzzy query."),
			mcp.WithString("category", mcp.Description("Only templates of this category")),
			mcp.WithString("query", mcp.Description("Fuzzy search over id, name, description and tags")),
		),
		mcpListTemplates(deps),
	)

	s.AddTool(
		mcp.NewTool("learn_style",
			mcp.WithDescription("Learn the user's writing style from sample emails they wrote."),
			mcp.WithArray("samples", mcp.Description("Email bodies written by the user"), mcp.Required()),
		),
		mcpLearnStyle(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"style://profile",
			"Style Profile",
			mcp.WithResourceDescription("The user's learned writing style as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpDraftEmail(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		r := generator.Request{
			UserID:     deps.UserID,
			Topic:      req.GetString("topic", ""),
			Recipient:  req.GetString("recipient", ""),
			Context:    req.GetString("context", ""),
			TemplateID: req.GetString("template_id", ""),
			Category:   req.GetString("category", ""),
			Save:       req.GetBool("save", true),
		}
		if r.Topic == "" && r.TemplateID == "" {
			return mcpError("topic or template_id is required"), nil
		}

		email, err := deps.Generator.Generate(ctx, r, nil)
		if err != nil {
			return mcpError(describe(err)), nil
		}
		return mcpText(fmt.Sprintf("Subject: %s\n\n%s", email.Subject, email.Body)), nil
	}
}

func mcpListTemplates(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category := req.GetString("category", "")
		ts := deps.Catalog.List(category)
		if q := req.GetString("query", ""); q != "" {
			ts = nil
			for _, t := range deps.Catalog.Search(q) {
				if category == "" || t.Category == category {
					ts = append(ts, t)
				}
			}
		}

		out := make([]catalog.Summary, 0, len(ts))
		for _, t := range ts {
			out = append(out, t.Summary())
		}
		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal templates: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpLearnStyle(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		samples := req.GetStringSlice("samples", nil)
		if len(samples) == 0 {
			return mcpError("samples is required"), nil
		}

		p, report, err := deps.Learner.LearnSamples(ctx, deps.UserID, samples)
		if err != nil {
			return mcpError(describe(err)), nil
		}
		b, err := json.Marshal(learnResponse{Profile: profile.Summarize(p, deps.Style), LearnReport: report})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceProfile(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := deps.Profiles.Lookup(deps.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}
		if p == nil {
			fresh := style.NewProfile(deps.UserID)
			p = &fresh
		}

		b, err := json.Marshal(profile.Summarize(*p, deps.Style))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// describe renders err with its remediation hint for tool output.
func describe(err error) string {
	if hint := apperr.Hint(err); hint != "" {
		return fmt.Sprintf("%v (%s)", err, hint)
	}
	return err.Error()
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
