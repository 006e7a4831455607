package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/wordhaven/vocab-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS folders (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	word_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS words (
	id         UUID PRIMARY KEY,
	folder_id  UUID NOT NULL REFERENCES folders(id),
	word       TEXT NOT NULL,
	word_norm  TEXT NOT NULL,
	meaning    TEXT NOT NULL,
	pos        TEXT NOT NULL DEFAULT '',
	ipa        TEXT NOT NULL DEFAULT '',
	note       TEXT NOT NULL DEFAULT '',
	examples   JSONB NOT NULL DEFAULT '[]',
	tags       JSONB NOT NULL DEFAULT '[]',
	sources    JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS jobs (
	id           UUID PRIMARY KEY,
	folder_id    UUID NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	counters     JSONB NOT NULL DEFAULT '{}',
	progress     JSONB NOT NULL DEFAULT '{}',
	report       JSONB NOT NULL DEFAULT '{}',
	provider     TEXT NOT NULL DEFAULT '',
	file_path    TEXT NOT NULL DEFAULT '',
	file_name    TEXT NOT NULL DEFAULT '',
	retry_count  INTEGER NOT NULL DEFAULT 0,
	allow_update BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_words_folder_norm ON words(folder_id, word_norm);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_folder ON jobs(folder_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateFolder(ctx context.Context, name string) (*model.Folder, error) {
	f := &model.Folder{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO folders (id, name, word_count, created_at) VALUES ($1, $2, 0, $3)`,
		f.ID, f.Name, f.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert folder")
	}
	return f, nil
}

func (s *PostgresStore) GetFolder(ctx context.Context, id string) (*model.Folder, error) {
	var f model.Folder
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, word_count, created_at FROM folders WHERE id = $1`, id,
	).Scan(&f.ID, &f.Name, &f.WordCount, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get folder %s", id)
	}
	return &f, nil
}

func (s *PostgresStore) AddToFolderWordCount(ctx context.Context, id string, delta int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE folders SET word_count = word_count + $1 WHERE id = $2`, delta, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: bump folder word count %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindWordInFolder(ctx context.Context, folderID, word string) (*model.Word, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, folder_id, word, meaning, pos, ipa, note, examples, tags, sources, created_at, updated_at
		 FROM words WHERE folder_id = $1 AND word_norm = $2`,
		folderID, model.NormalizeWord(word),
	)
	w, err := scanWord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find word %q", word)
	}
	return w, nil
}

func (s *PostgresStore) CreateWord(ctx context.Context, w *model.Word) error {
	examples, tags, sources, err := marshalWordJSON(w)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO words (id, folder_id, word, word_norm, meaning, pos, ipa, note, examples, tags, sources, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		w.ID, w.FolderID, w.Word, model.NormalizeWord(w.Word), w.Meaning, w.POS, w.IPA, w.Note,
		examples, tags, sources, w.CreatedAt, w.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert word %q", w.Word)
}

func (s *PostgresStore) UpdateWord(ctx context.Context, w *model.Word) error {
	examples, tags, sources, err := marshalWordJSON(w)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE words SET meaning = $1, pos = $2, ipa = $3, note = $4, examples = $5, tags = $6, sources = $7, updated_at = $8
		 WHERE id = $9`,
		w.Meaning, w.POS, w.IPA, w.Note, examples, tags, sources, time.Now().UTC(), w.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update word %s", w.ID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListWords(ctx context.Context, folderID string) ([]model.Word, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, folder_id, word, meaning, pos, ipa, note, examples, tags, sources, created_at, updated_at
		 FROM words WHERE folder_id = $1 ORDER BY word_norm`, folderID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list words %s", folderID)
	}
	defer rows.Close()

	var words []model.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan word")
		}
		words = append(words, *w)
	}
	return words, eris.Wrap(rows.Err(), "postgres: iterate words")
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *model.Job) error {
	counters, progress, report, err := marshalJobJSON(job)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, folder_id, status, counters, progress, report, provider, file_path, file_name, retry_count, allow_update, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.FolderID, string(job.Status), counters, progress, report,
		job.Metadata.Provider, job.Metadata.FilePath, job.Metadata.FileName,
		job.Metadata.RetryCount, job.Metadata.Options.AllowUpdate,
		job.CreatedAt, job.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert job %s", job.ID)
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}
	return job, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, id string, upd JobUpdate) error {
	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}
	n := 1
	next := func() string {
		n++
		return "$" + strconv.Itoa(n)
	}

	if upd.Status != nil {
		sets = append(sets, "status = "+next())
		args = append(args, string(*upd.Status))
	}
	if upd.Counters != nil {
		b, err := json.Marshal(upd.Counters)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal counters")
		}
		sets = append(sets, "counters = "+next())
		args = append(args, string(b))
	}
	if upd.Progress != nil {
		b, err := json.Marshal(upd.Progress)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal progress")
		}
		sets = append(sets, "progress = "+next())
		args = append(args, string(b))
	}
	if upd.Provider != nil {
		sets = append(sets, "provider = "+next())
		args = append(args, *upd.Provider)
	}
	if upd.FilePath != nil {
		sets = append(sets, "file_path = "+next())
		args = append(args, *upd.FilePath)
	}
	if upd.RetryCount != nil {
		sets = append(sets, "retry_count = "+next())
		args = append(args, *upd.RetryCount)
	}

	args = append(args, id)
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE id = `+next(), args...,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendJobReport(ctx context.Context, id string, errs []model.ImportError, skipped []model.SkippedWord, wordIDs []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin append report")
	}
	defer tx.Rollback(ctx)

	var raw string
	err = tx.QueryRow(ctx, `SELECT report FROM jobs WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: read report %s", id)
	}

	var report model.JobReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return eris.Wrapf(err, "postgres: decode report %s", id)
	}
	report.Errors = append(report.Errors, errs...)
	report.Skipped = append(report.Skipped, skipped...)
	report.WordIDs = append(report.WordIDs, wordIDs...)

	b, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE jobs SET report = $1, updated_at = $2 WHERE id = $3`,
		string(b), time.Now().UTC(), id,
	); err != nil {
		return eris.Wrapf(err, "postgres: write report %s", id)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit append report")
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any
	n := 0
	next := func() string {
		n++
		return "$" + strconv.Itoa(n)
	}
	if filter.Status != "" {
		query += ` AND status = ` + next()
		args = append(args, string(filter.Status))
	}
	if filter.FolderID != "" {
		query += ` AND folder_id = ` + next()
		args = append(args, filter.FolderID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + next()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + next()
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: iterate jobs")
}

