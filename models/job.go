package models

// Job states.
const (
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// JobResponse is the immediate response for POST /api/v1/search/async.
type JobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// JobStatusResponse is the response for GET /api/v1/search/:id.
type JobStatusResponse struct {
	ID     string        `json:"id"`
	Status string        `json:"status"`
	Result *SearchResult `json:"result,omitempty"`
	Error  *ErrorDetail  `json:"error,omitempty"`
}

// SearchJob tracks a search started in the background.
type SearchJob struct {
	ID        string
	Status    string
	Request   SearchRequest
	Result    *SearchResult
	Error     *ErrorDetail
	CreatedAt int64 // unix timestamp
}
