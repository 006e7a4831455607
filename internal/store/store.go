// Package store persists folders, vocabulary entries, and import jobs.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/wordhaven/vocab-cli/internal/model"
)

// ErrNotFound is returned when a folder, word, or job does not exist.
var ErrNotFound = eris.New("store: not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status   model.JobStatus `json:"status,omitempty"`
	FolderID string          `json:"folder_id,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// JobUpdate is a partial update of a job record. Nil fields are untouched.
type JobUpdate struct {
	Status     *model.JobStatus
	Counters   *model.JobCounters
	Progress   *model.JobProgress
	Provider   *string
	FilePath   *string
	RetryCount *int
}

// Store defines the persistence interface for the import pipeline.
type Store interface {
	// Folders
	CreateFolder(ctx context.Context, name string) (*model.Folder, error)
	GetFolder(ctx context.Context, id string) (*model.Folder, error)
	// AddToFolderWordCount increments the aggregate count rather than
	// recomputing it.
	AddToFolderWordCount(ctx context.Context, id string, delta int) error

	// Words
	// FindWordInFolder matches the word case-insensitively and exactly;
	// returns (nil, nil) when there is no match.
	FindWordInFolder(ctx context.Context, folderID, word string) (*model.Word, error)
	CreateWord(ctx context.Context, w *model.Word) error
	UpdateWord(ctx context.Context, w *model.Word) error
	ListWords(ctx context.Context, folderID string) ([]model.Word, error)

	// Jobs
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	UpdateJob(ctx context.Context, id string, upd JobUpdate) error
	// AppendJobReport atomically appends to the job's error, skip, and
	// word-id lists.
	AppendJobReport(ctx context.Context, id string, errs []model.ImportError, skipped []model.SkippedWord, wordIDs []string) error
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens the backend selected by driver: "sqlite" or "postgres".
func New(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
