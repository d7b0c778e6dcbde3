// Package server provides the ops HTTP API: a health check and read-only
// views of recent extraction jobs. DTOs are kept separate from domain types.
package server

import "time"

// ListJobsQuery holds the query parameters of GET /jobs.
type ListJobsQuery struct {
	// Status filters by pipeline state.
	Status string `validate:"omitempty,oneof=RECEIVED DOWNLOADING EXTRACTING SEGMENTING PER_SEGMENT_EXTRACTING CONCATENATING DELIVERING CLEANING_UP DONE FAILED"`
	// Limit caps the number of jobs returned.
	Limit int `validate:"omitempty,min=1,max=1000"`
}

// SegmentResponse is the progress of one segment.
type SegmentResponse struct {
	Index  int     `json:"index"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Status string  `json:"status"`
}

// JobResponse is the HTTP response for job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the current pipeline state.
	Status string `json:"status"`
	// Mode is "single" or "segmented" once decided.
	Mode string `json:"mode,omitempty"`
	// FileName is the original name of the source video.
	FileName string `json:"file_name,omitempty"`
	// OutputName is the name the audio was delivered under.
	OutputName string `json:"output_name,omitempty"`
	// SourceBytes is the downloaded size of the source.
	SourceBytes int64 `json:"source_bytes,omitempty"`
	// Duration is the probed duration in seconds (segmented mode).
	Duration float64 `json:"duration,omitempty"`
	// Segments lists per-window progress (segmented mode).
	Segments []SegmentResponse `json:"segments,omitempty"`
	// FailedIn is the state the job failed in.
	FailedIn string `json:"failed_in,omitempty"`
	// Error contains the internal error message if the job failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the request was received.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the job reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListJobsResponse is the HTTP response for GET /jobs.
type ListJobsResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
