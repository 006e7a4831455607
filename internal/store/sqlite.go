package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/wordhaven/vocab-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS folders (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	word_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS words (
	id         TEXT PRIMARY KEY,
	folder_id  TEXT NOT NULL REFERENCES folders(id),
	word       TEXT NOT NULL,
	word_norm  TEXT NOT NULL,
	meaning    TEXT NOT NULL,
	pos        TEXT NOT NULL DEFAULT '',
	ipa        TEXT NOT NULL DEFAULT '',
	note       TEXT NOT NULL DEFAULT '',
	examples   TEXT NOT NULL DEFAULT '[]',
	tags       TEXT NOT NULL DEFAULT '[]',
	sources    TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	folder_id    TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	counters     TEXT NOT NULL DEFAULT '{}',
	progress     TEXT NOT NULL DEFAULT '{}',
	report       TEXT NOT NULL DEFAULT '{}',
	provider     TEXT NOT NULL DEFAULT '',
	file_path    TEXT NOT NULL DEFAULT '',
	file_name    TEXT NOT NULL DEFAULT '',
	retry_count  INTEGER NOT NULL DEFAULT 0,
	allow_update INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_words_folder_norm ON words(folder_id, word_norm);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_folder ON jobs(folder_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateFolder(ctx context.Context, name string) (*model.Folder, error) {
	f := &model.Folder{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO folders (id, name, word_count, created_at) VALUES (?, ?, 0, ?)`,
		f.ID, f.Name, f.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert folder")
	}
	return f, nil
}

func (s *SQLiteStore) GetFolder(ctx context.Context, id string) (*model.Folder, error) {
	var f model.Folder
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, word_count, created_at FROM folders WHERE id = ?`, id,
	).Scan(&f.ID, &f.Name, &f.WordCount, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get folder %s", id)
	}
	return &f, nil
}

func (s *SQLiteStore) AddToFolderWordCount(ctx context.Context, id string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE folders SET word_count = word_count + ? WHERE id = ?`, delta, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: bump folder word count %s", id)
	}
	return checkRowsAffected(res, "folder", id)
}

func (s *SQLiteStore) FindWordInFolder(ctx context.Context, folderID, word string) (*model.Word, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, folder_id, word, meaning, pos, ipa, note, examples, tags, sources, created_at, updated_at
		 FROM words WHERE folder_id = ? AND word_norm = ?`,
		folderID, model.NormalizeWord(word),
	)
	w, err := scanWord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find word %q", word)
	}
	return w, nil
}

func (s *SQLiteStore) CreateWord(ctx context.Context, w *model.Word) error {
	examples, tags, sources, err := marshalWordJSON(w)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO words (id, folder_id, word, word_norm, meaning, pos, ipa, note, examples, tags, sources, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.FolderID, w.Word, model.NormalizeWord(w.Word), w.Meaning, w.POS, w.IPA, w.Note,
		examples, tags, sources, w.CreatedAt, w.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert word %q", w.Word)
}

func (s *SQLiteStore) UpdateWord(ctx context.Context, w *model.Word) error {
	examples, tags, sources, err := marshalWordJSON(w)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE words SET meaning = ?, pos = ?, ipa = ?, note = ?, examples = ?, tags = ?, sources = ?, updated_at = ?
		 WHERE id = ?`,
		w.Meaning, w.POS, w.IPA, w.Note, examples, tags, sources, time.Now().UTC(), w.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update word %s", w.ID)
	}
	return checkRowsAffected(res, "word", w.ID)
}

func (s *SQLiteStore) ListWords(ctx context.Context, folderID string) ([]model.Word, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, folder_id, word, meaning, pos, ipa, note, examples, tags, sources, created_at, updated_at
		 FROM words WHERE folder_id = ? ORDER BY word_norm`, folderID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list words %s", folderID)
	}
	defer rows.Close()

	var words []model.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan word")
		}
		words = append(words, *w)
	}
	return words, eris.Wrap(rows.Err(), "sqlite: iterate words")
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job *model.Job) error {
	counters, progress, report, err := marshalJobJSON(job)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, folder_id, status, counters, progress, report, provider, file_path, file_name, retry_count, allow_update, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.FolderID, string(job.Status), counters, progress, report,
		job.Metadata.Provider, job.Metadata.FilePath, job.Metadata.FileName,
		job.Metadata.RetryCount, job.Metadata.Options.AllowUpdate,
		job.CreatedAt, job.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert job %s", job.ID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	return job, nil
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, id string, upd JobUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if upd.Counters != nil {
		b, err := json.Marshal(upd.Counters)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal counters")
		}
		sets = append(sets, "counters = ?")
		args = append(args, string(b))
	}
	if upd.Progress != nil {
		b, err := json.Marshal(upd.Progress)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal progress")
		}
		sets = append(sets, "progress = ?")
		args = append(args, string(b))
	}
	if upd.Provider != nil {
		sets = append(sets, "provider = ?")
		args = append(args, *upd.Provider)
	}
	if upd.FilePath != nil {
		sets = append(sets, "file_path = ?")
		args = append(args, *upd.FilePath)
	}
	if upd.RetryCount != nil {
		sets = append(sets, "retry_count = ?")
		args = append(args, *upd.RetryCount)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", id)
	}
	return checkRowsAffected(res, "job", id)
}

func (s *SQLiteStore) AppendJobReport(ctx context.Context, id string, errs []model.ImportError, skipped []model.SkippedWord, wordIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append report")
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT report FROM jobs WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: read report %s", id)
	}

	var report model.JobReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return eris.Wrapf(err, "sqlite: decode report %s", id)
	}
	report.Errors = append(report.Errors, errs...)
	report.Skipped = append(report.Skipped, skipped...)
	report.WordIDs = append(report.WordIDs, wordIDs...)

	b, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET report = ?, updated_at = ? WHERE id = ?`,
		string(b), time.Now().UTC(), id,
	); err != nil {
		return eris.Wrapf(err, "sqlite: write report %s", id)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit append report")
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.FolderID != "" {
		query += ` AND folder_id = ?`
		args = append(args, filter.FolderID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1 // sqlite: unlimited, but OFFSET needs a LIMIT clause
		}
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: iterate jobs")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected %s %s", kind, id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
