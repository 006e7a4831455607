package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordhaven/vocab-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgres_GetFolder_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, word_count, created_at FROM folders`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetFolder(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetFolder(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, name, word_count, created_at FROM folders`).
		WithArgs("f1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "word_count", "created_at"}).
			AddRow("f1", "Unit 1", 7, created))

	folder, err := s.GetFolder(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "Unit 1", folder.Name)
	assert.Equal(t, 7, folder.WordCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AddToFolderWordCount_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE folders SET word_count = word_count \+ \$1`).
		WithArgs(3, "nope").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.AddToFolderWordCount(context.Background(), "nope", 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindWordInFolder_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM words WHERE folder_id = \$1 AND word_norm = \$2`).
		WithArgs("f1", "ghost").
		WillReturnError(pgx.ErrNoRows)

	w, err := s.FindWordInFolder(context.Background(), "f1", " Ghost ")
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateWord(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO words`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	now := time.Now().UTC()
	err := s.CreateWord(context.Background(), &model.Word{
		ID:        "w1",
		FolderID:  "f1",
		Word:      "run",
		Meaning:   "chạy",
		POS:       "verb",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateJob_DynamicSet(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	status := model.JobStatusEnriching
	provider := "claude"

	mock.ExpectExec(`UPDATE jobs SET updated_at = \$1, status = \$2, provider = \$3 WHERE id = \$4`).
		WithArgs(pgxmock.AnyArg(), "enriching", "claude", "j1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateJob(context.Background(), "j1", JobUpdate{Status: &status, Provider: &provider})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateJob_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	status := model.JobStatusFailed
	mock.ExpectExec(`UPDATE jobs SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateJob(context.Background(), "nope", JobUpdate{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AppendJobReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT report FROM jobs WHERE id = \$1 FOR UPDATE`).
		WithArgs("j1").
		WillReturnRows(pgxmock.NewRows([]string{"report"}).
			AddRow(`{"errors":[{"stage":"parse","message":"bad line","location":"line 2"}],"skipped":null,"word_ids":null}`))
	mock.ExpectExec(`UPDATE jobs SET report = \$1, updated_at = \$2 WHERE id = \$3`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := s.AppendJobReport(context.Background(), "j1",
		[]model.ImportError{{Stage: model.StageSave, Message: "create failed", Location: "run"}},
		nil, []string{"w1"},
	)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AppendJobReport_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT report FROM jobs`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := s.AppendJobReport(context.Background(), "nope", nil, nil, []string{"w1"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListJobs_Filtered(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "folder_id", "status", "counters", "progress", "report",
		"provider", "file_path", "file_name", "retry_count", "allow_update",
		"created_at", "updated_at",
	}).AddRow("j1", "f1", "failed", `{}`, `{}`, `{}`, "", "", "words.txt", 0, false, now, now)

	mock.ExpectQuery(`SELECT .+ FROM jobs WHERE 1=1 AND status = \$1 ORDER BY created_at DESC`).
		WithArgs("failed").
		WillReturnRows(rows)

	jobs, err := s.ListJobs(context.Background(), JobFilter{Status: model.JobStatusFailed})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobStatusFailed, jobs[0].Status)
	assert.Equal(t, "words.txt", jobs[0].Metadata.FileName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
