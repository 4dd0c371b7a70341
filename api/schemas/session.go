package schemas

import (
	"fmt"
	"time"
)

// ExecutionResult is the terminal (or pending) outcome of one application run.
type ExecutionResult string

const (
	ExecutionPending             ExecutionResult = "pending"
	ExecutionApplied             ExecutionResult = "applied"
	ExecutionFailed              ExecutionResult = "failed"
	ExecutionAborted             ExecutionResult = "aborted"
	ExecutionJobExpired          ExecutionResult = "job_expired"
	ExecutionUnsupportedPlatform ExecutionResult = "unsupported_platform"
)

// Storable maps the in-memory result to its persisted form. Aborted runs are
// stored as pending so they can be retried.
func (r ExecutionResult) Storable() ExecutionResult {
	if r == ExecutionAborted {
		return ExecutionPending
	}
	return r
}

// IsTerminal reports whether the session should be torn down.
func (r ExecutionResult) IsTerminal() bool {
	return r != "" && r != ExecutionPending
}

// PlatformType distinguishes ATS hosts from job boards in the host registry.
type PlatformType string

const (
	PlatformATS      PlatformType = "ATS"
	PlatformJobBoard PlatformType = "JOB_BOARD"
)

// PlatformDescriptor names the adapter that owns a tab.
type PlatformDescriptor struct {
	Type PlatformType `json:"type"`
	Name string      `json:"name"`
}

// ExecutionPayload is the start request attached to a tab session.
type ExecutionPayload struct {
	Mode    string            `json:"mode,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

// JobKey identifies a job posting in the result store.
type JobKey struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
}

// JobData is the metadata captured from the posting page.
type JobData struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Locations   []string  `json:"locations,omitempty"`
	PublishTime time.Time `json:"publishTime,omitempty"`
	Description string    `json:"description,omitempty"`
}

// TabSession is the persistent per-tab state, stored under tab_<id>.
type TabSession struct {
	Running               bool               `json:"running"`
	Payload               ExecutionPayload   `json:"payload"`
	SessionID             string             `json:"sessionId"`
	Platform              PlatformDescriptor `json:"platform"`
	State                 string             `json:"state,omitempty"`
	ExecutionResult       ExecutionResult    `json:"executionResult"`
	JobID                 JobKey             `json:"jobId"`
	JobData               *JobData           `json:"jobData,omitempty"`
	SoftData              map[string]any     `json:"soft_data,omitempty"`
	Source                string             `json:"source,omitempty"`
	LocationSearchQueries []string           `json:"locationSearchQueries,omitempty"`
}

// StorageKey returns the local-storage key for a tab id.
func StorageKey(tabID int) string { return fmt.Sprintf("tab_%d", tabID) }

// ResultEnvelope is the execution-result publish payload.
type ResultEnvelope struct {
	ID          string          `json:"id"`
	Fingerprint string          `json:"fingerprint"`
	Result      ExecutionResult `json:"result"`
	SoftData    map[string]any  `json:"soft_data,omitempty"`
	Source      string          `json:"source,omitempty"`
}
