package models

// RankingsResponse is the response for GET /api/v1/rankings.
type RankingsResponse struct {
	// Success is false only when the pipeline failed.
	Success bool `json:"success"`

	// ItemID echoes the requested identifier.
	ItemID string `json:"item_id,omitempty"`

	// Header is the product title shared by all rows.
	Header string `json:"header,omitempty"`

	// Rankings holds the extracted rows in page order. Empty when the page
	// had no ranking markup.
	Rankings []RankingEntry `json:"rankings"`

	// Message explains an empty result.
	Message string `json:"message,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Engine  string `json:"engine"`
	Version string `json:"version"`
}
