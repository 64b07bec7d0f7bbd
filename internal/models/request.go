package models

import "time"

// Request is one entry of the operational request log. It never carries
// request bodies.
type Request struct {
	ID                string    `json:"id"`
	RequestID         string    `json:"request_id"`
	Method            string    `json:"method"`
	Endpoint          string    `json:"endpoint"`
	StatusCode        int       `json:"status_code"`
	ResponseTimeMs    int       `json:"response_time_ms"`
	RequestSizeBytes  int       `json:"request_size_bytes"`
	ResponseSizeBytes int       `json:"response_size_bytes"`
	CreatedAt         time.Time `json:"created_at"`
}

// RequestMetrics aggregates the request log per endpoint.
type RequestMetrics struct {
	Endpoint          string     `json:"endpoint"`
	TotalRequests     int64      `json:"total_requests"`
	SuccessRequests   int64      `json:"success_requests"`
	ErrorRequests     int64      `json:"error_requests"`
	AvgResponseTimeMs float64    `json:"avg_response_time_ms"`
	LastRequestAt     *time.Time `json:"last_request_at,omitempty"`
}
