package models

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Version    string `json:"version"`
	Source     string `json:"source"`
	FetchMode  string `json:"fetch_mode"`
	ActiveJobs int    `json:"active_jobs"`
}
