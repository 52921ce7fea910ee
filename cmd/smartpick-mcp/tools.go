package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/smartpick/models"
	"github.com/use-agent/smartpick/render"
)

func handleSearchPhones(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := models.SearchRequest{
			Category:        request.GetString("category", ""),
			Query:           request.GetString("query", ""),
			MaxPages:        request.GetInt("max_pages", 0),
			MaxDevices:      request.GetInt("max_devices", 0),
			IncludeUnpriced: request.GetBool("include_unpriced", false),
		}
		args := request.GetArguments()
		if v, ok := args["min_price"].(float64); ok {
			req.MinPrice = &v
		}
		if v, ok := args["max_price"].(float64); ok {
			req.MaxPrice = &v
		}
		if !req.HasBudget() && req.Category == "" && req.Query == "" {
			return mcp.NewToolResultError("give at least one of min_price, max_price, category or query"), nil
		}

		res, err := c.search(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Search %s: %d phone(s) found\n\n", res.ID, len(res.Devices))
		if err := render.Result(&sb, render.FormatMarkdown, res); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to render result: %v", err)), nil
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleGetPhone(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageURL, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		resp, err := c.device(ctx, pageURL, request.GetString("fetch_mode", ""))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get phone failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Source: %s\n\n", pageURL)
		if err := render.Device(&sb, render.FormatMarkdown, *resp.Device, resp.Missing); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to render device: %v", err)), nil
		}
		if len(resp.Missing) > 0 {
			fmt.Fprintf(&sb, "\nNot listed on the page: %s\n", strings.Join(resp.Missing, ", "))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
