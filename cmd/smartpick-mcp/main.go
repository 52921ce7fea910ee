package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/smartpick/config"
)

func main() {
	apiURL := os.Getenv("SMARTPICK_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	client := newAPIClient(apiURL, os.Getenv("SMARTPICK_API_KEY"), 2*time.Second)

	s := server.NewMCPServer(
		"smartpick",
		config.Version,
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_phones",
		mcp.WithDescription("Search a smartphone specification site and return the phones within a budget, with price, display, processor, RAM, storage, main camera and battery. Give at least one of a budget, a brand category or a name query."),
		mcp.WithNumber("min_price",
			mcp.Description("Lower budget bound in the site's listed currency"),
		),
		mcp.WithNumber("max_price",
			mcp.Description("Upper budget bound in the site's listed currency"),
		),
		mcp.WithString("category",
			mcp.Description("Brand slug such as 'samsung', optionally with the maker id ('samsung-9')"),
		),
		mcp.WithString("query",
			mcp.Description("Free-text device name, e.g. 'redmi note'"),
		),
		mcp.WithNumber("max_pages",
			mcp.Description("Maximum listing pages to walk (default from server config, max 50)"),
		),
		mcp.WithNumber("max_devices",
			mcp.Description("Maximum detail pages to fetch (default from server config, max 500)"),
		),
		mcp.WithBoolean("include_unpriced",
			mcp.Description("Keep phones without a parseable price when a budget is given"),
		),
	)
	s.AddTool(searchTool, handleSearchPhones(client))

	phoneTool := mcp.NewTool("get_phone",
		mcp.WithDescription("Fetch one phone's detail page and return its specification record."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Detail page URL"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("'http' (default), 'browser' for a headless browser, or 'auto' to fall back to the browser"),
			mcp.Enum("http", "browser", "auto"),
		),
	)
	s.AddTool(phoneTool, handleGetPhone(client))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
