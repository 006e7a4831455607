package model

import "time"

// DefaultPOS is used when a record reaches save with no part of speech.
const DefaultPOS = "noun"

// Word is a persisted vocabulary entry. Within one folder at most one entry
// exists per case-insensitive word; the save stage enforces this.
type Word struct {
	ID        string       `json:"id"`
	FolderID  string       `json:"folder_id"`
	Word      string       `json:"word"`
	Meaning   string       `json:"meaning"`
	POS       string       `json:"pos"`
	IPA       string       `json:"ipa,omitempty"`
	Note      string       `json:"note,omitempty"`
	Examples  []Example    `json:"examples"`
	Tags      []string     `json:"tags,omitempty"`
	Sources   FieldSources `json:"sources"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Folder groups vocabulary entries and carries an aggregate word count that
// the save stage increments rather than recomputes.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	WordCount int       `json:"word_count"`
	CreatedAt time.Time `json:"created_at"`
}
