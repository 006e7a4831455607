package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// FieldSource marks where a field value came from.
type FieldSource string

const (
	SourceUser     FieldSource = "user"
	SourceInferred FieldSource = "inferred"
)

// MaxExamples is the number of example slots per record.
const MaxExamples = 2

// Example is one example sentence pair: the sentence in the language being
// learned and its translation.
type Example struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Empty reports whether both halves of the pair are blank.
func (e Example) Empty() bool {
	return strings.TrimSpace(e.Source) == "" && strings.TrimSpace(e.Target) == ""
}

// MissingFields flags which optional fields enrichment should try to fill.
// A field is never simultaneously missing and non-empty.
type MissingFields struct {
	POS  bool `json:"pos"`
	IPA  bool `json:"ipa"`
	Note bool `json:"note"`
	Ex1  bool `json:"ex1"`
	Ex2  bool `json:"ex2"`
}

// Any reports whether at least one field still needs enrichment.
func (m MissingFields) Any() bool {
	return m.POS || m.IPA || m.Note || m.Ex1 || m.Ex2
}

// FieldSources tracks per-field provenance across parse, enrich, and merge.
type FieldSources struct {
	Meaning FieldSource `json:"meaning"`
	POS     FieldSource `json:"pos"`
	IPA     FieldSource `json:"ipa"`
	Note    FieldSource `json:"note"`
	Ex1     FieldSource `json:"ex1"`
	Ex2     FieldSource `json:"ex2"`
}

// Record is an in-memory candidate vocabulary entry mid-pipeline. It is never
// persisted as-is; the save stage turns it into a Word.
type Record struct {
	FolderID   string
	Word       string // display form
	Normalized string // case-folded, trimmed; used for dedup and lookup
	Meaning    string
	POS        string
	IPA        string
	Note       string
	Examples   []Example // at most MaxExamples
	Tags       []string
	Missing    MissingFields
	Sources    FieldSources
	Line       int // 1-based origin line or row, for error locations
}

var foldCaser = cases.Fold()

// NormalizeWord produces the dedup/lookup key form of a word.
func NormalizeWord(w string) string {
	return foldCaser.String(strings.TrimSpace(w))
}

// CacheKey identifies an enrichment request: two records with the same
// normalized word and meaning are satisfied by one provider call.
func (r *Record) CacheKey() string {
	return r.Normalized + "\x00" + strings.ToLower(strings.TrimSpace(r.Meaning))
}

// NewRecord builds a record with required fields set and every optional
// field flagged missing.
func NewRecord(folderID, word, meaning string, line int) *Record {
	return &Record{
		FolderID:   folderID,
		Word:       strings.TrimSpace(word),
		Normalized: NormalizeWord(word),
		Meaning:    strings.TrimSpace(meaning),
		Missing:    MissingFields{POS: true, IPA: true, Note: true, Ex1: true, Ex2: true},
		Sources:    FieldSources{Meaning: SourceUser},
		Line:       line,
	}
}
