package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/smartpick/models"
)

func fptr(v float64) *float64 { return &v }

// fakeAPI answers like the smartpick API: the job stays processing for one
// poll, then completes.
func fakeAPI(t *testing.T, gotKey *atomic.Value, gotReq *atomic.Value) *httptest.Server {
	t.Helper()
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/search/async", func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("X-API-Key"))
		var req models.SearchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotReq.Store(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(models.JobResponse{ID: "job-1", Status: models.JobProcessing})
	})
	mux.HandleFunc("GET /api/v1/search/job-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if polls.Add(1) == 1 {
			_ = json.NewEncoder(w).Encode(models.JobStatusResponse{ID: "job-1", Status: models.JobProcessing})
			return
		}
		_ = json.NewEncoder(w).Encode(models.JobStatusResponse{
			ID:     "job-1",
			Status: models.JobCompleted,
			Result: &models.SearchResult{
				ID: "run-1",
				Devices: []models.Device{
					{Name: "Samsung Galaxy A15", Price: "About 150 EUR", PriceValue: fptr(150)},
				},
				Failures: []models.Failure{
					{URL: "https://site.test/x.php", Kind: models.FailureNetwork, Message: "BLOCKED"},
				},
				PagesFetched:   1,
				DetailsFetched: 1,
			},
		})
	})
	mux.HandleFunc("POST /api/v1/device", func(w http.ResponseWriter, r *http.Request) {
		var req models.DeviceRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.URL != "https://site.test/a.php" {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(models.DeviceResponse{Error: &models.ErrorDetail{
				Code: models.ErrCodeNetwork, Message: "fetch failed",
			}})
			return
		}
		_ = json.NewEncoder(w).Encode(models.DeviceResponse{
			Success: true,
			Device:  &models.Device{Name: "Samsung Galaxy A15", Battery: "5000 mAh"},
			Missing: []string{"ram"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestSearchPhones(t *testing.T) {
	var gotKey, gotReq atomic.Value
	srv := fakeAPI(t, &gotKey, &gotReq)
	c := newAPIClient(srv.URL, "k1", time.Millisecond)

	text, isErr := callTool(t, handleSearchPhones(c), map[string]any{
		"max_price": 300.0,
		"category":  "samsung",
		"max_pages": 2.0,
	})
	require.False(t, isErr, text)
	require.Contains(t, text, "1 phone(s) found")
	require.Contains(t, text, "Samsung Galaxy A15")
	require.Contains(t, text, "skipped https://site.test/x.php")

	require.Equal(t, "k1", gotKey.Load())
	req := gotReq.Load().(models.SearchRequest)
	require.Nil(t, req.MinPrice)
	require.NotNil(t, req.MaxPrice)
	require.InDelta(t, 300.0, *req.MaxPrice, 1e-9)
	require.Equal(t, "samsung", req.Category)
	require.Equal(t, 2, req.MaxPages)
}

func TestSearchPhones_NeedsCriteria(t *testing.T) {
	c := newAPIClient("http://127.0.0.1:1", "", time.Millisecond)
	text, isErr := callTool(t, handleSearchPhones(c), map[string]any{})
	require.True(t, isErr)
	require.Contains(t, text, "at least one")
}

func TestSearchPhones_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.SearchResponse{Error: &models.ErrorDetail{
			Code: models.ErrCodeUnauthorized, Message: "invalid API key",
		}})
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, "bad", time.Millisecond)
	text, isErr := callTool(t, handleSearchPhones(c), map[string]any{"query": "pixel"})
	require.True(t, isErr)
	require.Contains(t, text, "[UNAUTHORIZED] invalid API key")
}

func TestGetPhone(t *testing.T) {
	var gotKey, gotReq atomic.Value
	srv := fakeAPI(t, &gotKey, &gotReq)
	c := newAPIClient(srv.URL, "", time.Millisecond)

	text, isErr := callTool(t, handleGetPhone(c), map[string]any{"url": "https://site.test/a.php"})
	require.False(t, isErr, text)
	require.Contains(t, text, "Samsung Galaxy A15")
	require.Contains(t, text, "5000 mAh")
	require.Contains(t, text, "Not listed on the page: ram")

	text, isErr = callTool(t, handleGetPhone(c), map[string]any{"url": "https://site.test/gone.php"})
	require.True(t, isErr)
	require.Contains(t, text, "[NETWORK_FAILURE] fetch failed")

	_, isErr = callTool(t, handleGetPhone(c), map[string]any{})
	require.True(t, isErr)
}
