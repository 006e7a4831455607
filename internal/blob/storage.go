// Package blob manages uploaded files on disk: staged uploads, durable
// per-job directories, and their removal when a job ends.
package blob

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Storage lays files out under a configurable root: one directory per job id,
// plus a staging area for uploads that have no job yet.
type Storage struct {
	root string
}

// New creates a Storage rooted at root.
func New(root string) *Storage {
	return &Storage{root: root}
}

// Stage writes an incoming upload into the staging area and returns its path.
func (s *Storage) Stage(r io.Reader, filename string) (string, error) {
	dir := filepath.Join(s.root, "staging")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "blob: create staging dir")
	}

	f, err := os.CreateTemp(dir, "upload-*-"+filepath.Base(filename))
	if err != nil {
		return "", eris.Wrap(err, "blob: create staged file")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", eris.Wrap(err, "blob: write staged file")
	}
	return f.Name(), nil
}

// Promote moves a staged upload into the job's durable directory and returns
// the new path. The original filename is preserved so the parser can dispatch
// on its extension.
func (s *Storage) Promote(stagedPath, jobID, filename string) (string, error) {
	dir := filepath.Join(s.root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "blob: create job dir %s", jobID)
	}

	dst := filepath.Join(dir, filepath.Base(filename))
	if err := os.Rename(stagedPath, dst); err != nil {
		// Rename fails across filesystems; fall back to copy.
		if copyErr := copyFile(stagedPath, dst); copyErr != nil {
			return "", eris.Wrapf(copyErr, "blob: promote %s", stagedPath)
		}
		os.Remove(stagedPath)
	}
	return dst, nil
}

// Purge removes the job's whole directory. Missing directories are fine:
// purge runs unconditionally when a job ends, whatever state it ended in.
func (s *Storage) Purge(jobID string) {
	if jobID == "" {
		return
	}
	dir := filepath.Join(s.root, jobID)
	if err := os.RemoveAll(dir); err != nil {
		zap.L().Warn("blob: purge failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
