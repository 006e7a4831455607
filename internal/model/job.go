package model

import "time"

// JobStatus represents the current state of an import job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusParsing   JobStatus = "parsing"
	JobStatusEnriching JobStatus = "enriching"
	JobStatusSaving    JobStatus = "saving"
	JobStatusDone      JobStatus = "done"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Report stages for import errors.
const (
	StageParse  = "parse"
	StageEnrich = "enrich"
	StageSave   = "save"
	StageSystem = "system"
)

// ImportError is a single structured error captured into the job report.
type ImportError struct {
	Stage    string `json:"stage"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"` // e.g. "line 12", "row 3", "batch 2", a word
}

// SkippedWord records why a word was not written during save.
type SkippedWord struct {
	Word   string `json:"word"`
	Reason string `json:"reason"`
}

// JobCounters aggregates per-stage tallies for a job.
type JobCounters struct {
	TotalLines int `json:"total_lines"`
	Parsed     int `json:"parsed"`
	Enriched   int `json:"enriched"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// JobProgress tracks how far along the job is.
type JobProgress struct {
	Total        int       `json:"total"`
	Processed    int       `json:"processed"`
	CurrentStage JobStatus `json:"current_stage"`
}

// JobReport accumulates errors, skips, and touched word ids for polling.
type JobReport struct {
	Errors  []ImportError `json:"errors"`
	Skipped []SkippedWord `json:"skipped"`
	WordIDs []string      `json:"word_ids"`
}

// ImportOptions are caller-supplied knobs for one import.
type ImportOptions struct {
	AllowUpdate bool `json:"allow_update"`
}

// JobMetadata holds bookkeeping that is not part of the report.
type JobMetadata struct {
	Provider   string        `json:"provider,omitempty"`
	FilePath   string        `json:"file_path,omitempty"`
	FileName   string        `json:"file_name,omitempty"`
	RetryCount int           `json:"retry_count"`
	Options    ImportOptions `json:"options"`
}

// Job is one durable import from upload through save. It is created by the
// upload handler in pending state and mutated only by the orchestrator.
type Job struct {
	ID        string      `json:"id"`
	FolderID  string      `json:"folder_id"`
	Status    JobStatus   `json:"status"`
	Counters  JobCounters `json:"counters"`
	Progress  JobProgress `json:"progress"`
	Report    JobReport   `json:"report"`
	Metadata  JobMetadata `json:"metadata"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
