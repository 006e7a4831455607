// Package enrich fills missing linguistic fields on parsed records by
// calling external language-model providers, batched and cached per job.
package enrich

import (
	"context"

	"github.com/wordhaven/vocab-cli/internal/model"
)

// Item is one record's worth of context sent to a provider.
type Item struct {
	Word     string          `json:"word"`
	Meaning  string          `json:"meaning"`
	POS      string          `json:"pos,omitempty"`
	IPA      string          `json:"ipa,omitempty"`
	Note     string          `json:"note,omitempty"`
	Examples []model.Example `json:"examples,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
	Need     []string        `json:"need"`
}

// Payload is a provider's answer for one item. All fields are optional; the
// engine validates each before applying it. The provider is an untrusted
// oracle — nothing here reaches a record unchecked.
type Payload struct {
	POS      string          `json:"pos,omitempty"`
	IPA      string          `json:"ipa,omitempty"`
	Note     string          `json:"note,omitempty"`
	Examples []model.Example `json:"examples,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
}

// Enricher is one enrichment provider. Enrich returns exactly one payload
// per item, order preserved; entries may be nil when the provider had no
// answer for that item.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, items []Item) ([]*Payload, error)
}

// needFields lists the missing fields for an item so the provider knows what
// to produce.
func needFields(m model.MissingFields) []string {
	var need []string
	if m.POS {
		need = append(need, "pos")
	}
	if m.IPA {
		need = append(need, "ipa")
	}
	if m.Note {
		need = append(need, "note")
	}
	if m.Ex1 || m.Ex2 {
		need = append(need, "examples")
	}
	return need
}

// itemFor builds the provider request for a record.
func itemFor(rec *model.Record) Item {
	return Item{
		Word:     rec.Word,
		Meaning:  rec.Meaning,
		POS:      rec.POS,
		IPA:      rec.IPA,
		Note:     rec.Note,
		Examples: rec.Examples,
		Tags:     rec.Tags,
		Need:     needFields(rec.Missing),
	}
}
