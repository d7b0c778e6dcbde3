// Package job provides the Job aggregate that tracks one audio extraction
// request through its pipeline states, the in-memory repository used by the
// ops API, and ExtractAudioService, which runs the pipeline.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/audiograb/internal/job/id"
	"github.com/maauso/audiograb/internal/segment"
)

// Mode is the processing path chosen for a request.
type Mode string

const (
	// ModeSinglePass extracts audio from the whole source at once.
	ModeSinglePass Mode = "single"
	// ModeSegmented splits the source into windows and joins the audio.
	ModeSegmented Mode = "segmented"
)

// Status represents the current pipeline state of a Job.
type Status string

const (
	StatusReceived             Status = "RECEIVED"
	StatusDownloading          Status = "DOWNLOADING"
	StatusExtracting           Status = "EXTRACTING"
	StatusSegmenting           Status = "SEGMENTING"
	StatusPerSegmentExtracting Status = "PER_SEGMENT_EXTRACTING"
	StatusConcatenating        Status = "CONCATENATING"
	StatusDelivering           Status = "DELIVERING"
	StatusCleaningUp           Status = "CLEANING_UP"
	StatusDone                 Status = "DONE"
	StatusFailed               Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
// FAILED is reachable from every non-terminal state.
var validTransitions = map[Status][]Status{
	StatusReceived:             {StatusDownloading, StatusFailed},
	StatusDownloading:          {StatusExtracting, StatusSegmenting, StatusFailed},
	StatusExtracting:           {StatusDelivering, StatusFailed},
	StatusSegmenting:           {StatusPerSegmentExtracting, StatusFailed},
	StatusPerSegmentExtracting: {StatusConcatenating, StatusFailed},
	StatusConcatenating:        {StatusDelivering, StatusFailed},
	StatusDelivering:           {StatusCleaningUp, StatusFailed},
	StatusCleaningUp:           {StatusDone, StatusFailed},
	StatusDone:                 {},
	StatusFailed:               {},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// SegmentStatus represents the progress of a single segment.
type SegmentStatus string

const (
	SegmentPending    SegmentStatus = "PENDING"
	SegmentExtracting SegmentStatus = "EXTRACTING"
	SegmentDone       SegmentStatus = "DONE"
	SegmentFailed     SegmentStatus = "FAILED"
)

// SegmentProgress records one window of a segmented run.
type SegmentProgress struct {
	Index  int
	Start  float64
	End    float64
	Status SegmentStatus
}

// Job is the record of one extraction request. It never holds artifact
// paths; those live and die inside the request's storage namespace.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier and the storage namespace name.
	ID string
	// Target identifies where the result is delivered (chat ID, directory, key).
	Target string
	// FileRef is the gateway reference of the source video.
	FileRef string
	// FileName is the original name of the source, if known.
	FileName string
	// OutputName is the file name the audio is delivered under.
	OutputName string
	// Mode is the processing path, set once the source is downloaded.
	Mode Mode
	// Status is the current pipeline state.
	Status Status
	// FailedIn is the state the job was in when it failed.
	FailedIn Status
	// DeclaredBytes is the size announced by the sender, 0 if unknown.
	DeclaredBytes int64
	// SourceBytes is the size of the downloaded source.
	SourceBytes int64
	// Duration is the probed source duration in seconds (segmented mode only).
	Duration float64
	// Segments tracks per-window progress in segmented mode.
	Segments []SegmentProgress
	// Error contains the internal error message if the job failed.
	Error string
	// CreatedAt is when the request was received.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when the download started.
	StartedAt time.Time
	// CompletedAt is when the job reached DONE or FAILED.
	CompletedAt time.Time
}

// New creates a Job in RECEIVED state with a generated ID.
func New(target, fileRef string) *Job {
	return NewWithID(id.Generate(), target, fileRef)
}

// NewWithID creates a Job in RECEIVED state with the given ID.
func NewWithID(jobID, target, fileRef string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Target:    target,
		FileRef:   fileRef,
		Status:    StatusReceived,
		Segments:  make([]SegmentProgress, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	if status == StatusFailed {
		j.FailedIn = j.Status
	}
	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusDownloading:
		j.StartedAt = j.UpdatedAt
	case StatusDone, StatusFailed:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetSource records the downloaded size and the chosen mode.
func (j *Job) SetSource(size int64, mode Mode) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.SourceBytes = size
	j.Mode = mode
	j.UpdatedAt = time.Now()
}

// SetPlan records the probed duration and one pending entry per window.
func (j *Job) SetPlan(duration float64, windows []segment.Window) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Duration = duration
	j.Segments = make([]SegmentProgress, len(windows))
	for i, w := range windows {
		j.Segments[i] = SegmentProgress{Index: w.Index, Start: w.Start, End: w.End, Status: SegmentPending}
	}
	j.UpdatedAt = time.Now()
}

// UpdateSegment sets the status of the segment with the given index.
func (j *Job) UpdateSegment(index int, status SegmentStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if index >= 0 && index < len(j.Segments) {
		j.Segments[index].Status = status
		j.UpdatedAt = time.Now()
	}
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusDone || j.Status == StatusFailed
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:            j.ID,
		Target:        j.Target,
		FileRef:       j.FileRef,
		FileName:      j.FileName,
		OutputName:    j.OutputName,
		Mode:          j.Mode,
		Status:        j.Status,
		FailedIn:      j.FailedIn,
		DeclaredBytes: j.DeclaredBytes,
		SourceBytes:   j.SourceBytes,
		Duration:      j.Duration,
		Segments:      slices.Clone(j.Segments),
		Error:         j.Error,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
	}
}
