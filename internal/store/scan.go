package store

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/wordhaven/vocab-cli/internal/model"
)

const jobColumns = `id, folder_id, status, counters, progress, report, provider, file_path, file_name, retry_count, allow_update, created_at, updated_at`

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row, and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWord(row rowScanner) (*model.Word, error) {
	var w model.Word
	var examples, tags, sources string
	err := row.Scan(&w.ID, &w.FolderID, &w.Word, &w.Meaning, &w.POS, &w.IPA, &w.Note,
		&examples, &tags, &sources, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(examples), &w.Examples); err != nil {
		return nil, eris.Wrap(err, "store: decode examples")
	}
	if err := json.Unmarshal([]byte(tags), &w.Tags); err != nil {
		return nil, eris.Wrap(err, "store: decode tags")
	}
	if err := json.Unmarshal([]byte(sources), &w.Sources); err != nil {
		return nil, eris.Wrap(err, "store: decode sources")
	}
	return &w, nil
}

func scanJob(row rowScanner) (*model.Job, error) {
	var job model.Job
	var status, counters, progress, report string
	err := row.Scan(&job.ID, &job.FolderID, &status, &counters, &progress, &report,
		&job.Metadata.Provider, &job.Metadata.FilePath, &job.Metadata.FileName,
		&job.Metadata.RetryCount, &job.Metadata.Options.AllowUpdate,
		&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(status)
	if err := json.Unmarshal([]byte(counters), &job.Counters); err != nil {
		return nil, eris.Wrap(err, "store: decode counters")
	}
	if err := json.Unmarshal([]byte(progress), &job.Progress); err != nil {
		return nil, eris.Wrap(err, "store: decode progress")
	}
	if err := json.Unmarshal([]byte(report), &job.Report); err != nil {
		return nil, eris.Wrap(err, "store: decode report")
	}
	return &job, nil
}

func marshalWordJSON(w *model.Word) (examples, tags, sources string, err error) {
	if w.Examples == nil {
		w.Examples = []model.Example{}
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	e, err := json.Marshal(w.Examples)
	if err != nil {
		return "", "", "", eris.Wrap(err, "store: marshal examples")
	}
	t, err := json.Marshal(w.Tags)
	if err != nil {
		return "", "", "", eris.Wrap(err, "store: marshal tags")
	}
	s, err := json.Marshal(w.Sources)
	if err != nil {
		return "", "", "", eris.Wrap(err, "store: marshal sources")
	}
	return string(e), string(t), string(s), nil
}

func marshalJobJSON(job *model.Job) (counters, progress, report string, err error) {
	c, err := json.Marshal(job.Counters)
	if err != nil {
		return "", "", "", eris.Wrap(err, "store: marshal counters")
	}
	p, err := json.Marshal(job.Progress)
	if err != nil {
		return "", "", "", eris.Wrap(err, "store: marshal progress")
	}
	r, err := json.Marshal(job.Report)
	if err != nil {
		return "", "", "", eris.Wrap(err, "store: marshal report")
	}
	return string(c), string(p), string(r), nil
}
