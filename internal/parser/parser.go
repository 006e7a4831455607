// Package parser turns an uploaded vocabulary file into candidate records.
// It performs no I/O beyond reading the file and never touches the store.
package parser

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/wordhaven/vocab-cli/internal/model"
)

// ErrUnsupportedFormat is returned before any content I/O when the file
// extension is not recognized.
var ErrUnsupportedFormat = eris.New("parser: unsupported file format")

// Duplicate records a word seen more than once within a single file.
type Duplicate struct {
	Word string
	Line int
}

// Result is the outcome of parsing one file.
type Result struct {
	Records    []*model.Record
	Duplicates []Duplicate
	Errors     []model.ImportError
	TotalLines int
}

// Parse reads the file at path and produces normalized candidate records,
// per-line parse errors, and intra-file duplicates. Dispatch is on file
// extension: .txt for line format, .xlsx/.xlsm for the tabular format.
func Parse(folderID, path string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return parseLines(folderID, path)
	case ".xlsx", ".xlsm":
		return parseSheet(folderID, path)
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "parser: %s", filepath.Base(path))
	}
}

// dedupe drops second and later occurrences of a normalized word, reporting
// them as duplicates rather than errors.
func (res *Result) add(rec *model.Record, seen map[string]bool) {
	if seen[rec.Normalized] {
		res.Duplicates = append(res.Duplicates, Duplicate{Word: rec.Word, Line: rec.Line})
		return
	}
	seen[rec.Normalized] = true
	res.Records = append(res.Records, rec)
}
