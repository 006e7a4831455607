package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wordhaven/vocab-cli/internal/model"
	"github.com/wordhaven/vocab-cli/internal/store"
)

// Skip reasons reported by the save stage.
const (
	skipExists    = "already exists"
	skipComplete  = "already complete"
	skipDuplicate = "duplicate in file"
)

// saveResult is what one save stage produced.
type saveResult struct {
	Saved   int
	Created int
	WordIDs []string
	Skipped []model.SkippedWord
	Errors  []model.ImportError
}

// saveRecords upserts records into the vocabulary store. A store failure on
// one record is reported and does not stop the rest; the folder's aggregate
// word count is bumped once at the end by the number of new entries.
func saveRecords(ctx context.Context, st store.Store, job *model.Job, records []*model.Record) *saveResult {
	allow := job.Metadata.Options.AllowUpdate
	res := &saveResult{}

	fail := func(rec *model.Record, what string, err error) {
		res.Errors = append(res.Errors, model.ImportError{
			Stage:    model.StageSave,
			Message:  fmt.Sprintf("%s: %v", what, err),
			Location: rec.Word,
		})
	}

	for _, rec := range records {
		existing, err := st.FindWordInFolder(ctx, rec.FolderID, rec.Word)
		if err != nil {
			fail(rec, "lookup failed", err)
			continue
		}

		if existing == nil {
			w := wordFromRecord(rec)
			if err := st.CreateWord(ctx, w); err != nil {
				fail(rec, "create failed", err)
				continue
			}
			res.Created++
			res.Saved++
			res.WordIDs = append(res.WordIDs, w.ID)
			continue
		}

		if !allow {
			res.Skipped = append(res.Skipped, model.SkippedWord{Word: rec.Word, Reason: skipExists})
			continue
		}

		if changed := mergeInto(existing, rec, allow); !changed {
			res.Skipped = append(res.Skipped, model.SkippedWord{Word: rec.Word, Reason: skipComplete})
			continue
		}
		existing.UpdatedAt = time.Now().UTC()
		if err := st.UpdateWord(ctx, existing); err != nil {
			fail(rec, "update failed", err)
			continue
		}
		res.Saved++
		res.WordIDs = append(res.WordIDs, existing.ID)
	}

	if res.Created > 0 {
		if err := st.AddToFolderWordCount(ctx, job.FolderID, res.Created); err != nil {
			zap.L().Warn("importer: folder word count not updated",
				zap.String("folder_id", job.FolderID),
				zap.Int("delta", res.Created),
				zap.Error(err),
			)
		}
	}

	return res
}

// wordFromRecord builds a new persisted entry. Unset part of speech falls
// back to the default with inferred provenance; unset example slots are
// stored empty with user provenance.
func wordFromRecord(rec *model.Record) *model.Word {
	now := time.Now().UTC()
	w := &model.Word{
		ID:        uuid.New().String(),
		FolderID:  rec.FolderID,
		Word:      rec.Word,
		Meaning:   rec.Meaning,
		POS:       rec.POS,
		IPA:       rec.IPA,
		Note:      rec.Note,
		Tags:      rec.Tags,
		Sources:   rec.Sources,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if w.POS == "" {
		w.POS = model.DefaultPOS
		w.Sources.POS = model.SourceInferred
	}

	w.Examples = make([]model.Example, model.MaxExamples)
	copy(w.Examples, rec.Examples)
	if len(rec.Examples) < 1 && w.Sources.Ex1 == "" {
		w.Sources.Ex1 = model.SourceUser
	}
	if len(rec.Examples) < 2 && w.Sources.Ex2 == "" {
		w.Sources.Ex2 = model.SourceUser
	}
	fillEmptySources(&w.Sources)

	return w
}

// fillEmptySources defaults any unset provenance marker to user.
func fillEmptySources(s *model.FieldSources) {
	for _, f := range []*model.FieldSource{&s.Meaning, &s.POS, &s.IPA, &s.Note, &s.Ex1, &s.Ex2} {
		if *f == "" {
			*f = model.SourceUser
		}
	}
}

// mergeInto computes the field-by-field patch of rec onto existing and
// applies it in place. A field is overwritten only when the incoming value is
// non-empty and either updates are allowed or the existing field is empty;
// the overwritten field takes the record's provenance. Tags are unioned.
// Returns whether anything changed.
func mergeInto(existing *model.Word, rec *model.Record, allow bool) bool {
	changed := false

	overwrite := func(dst *string, src string, dstSource *model.FieldSource, srcSource model.FieldSource) {
		if src == "" {
			return
		}
		if !allow && *dst != "" {
			return
		}
		if *dst == src {
			return
		}
		*dst = src
		if srcSource != "" {
			*dstSource = srcSource
		}
		changed = true
	}

	overwrite(&existing.Meaning, rec.Meaning, &existing.Sources.Meaning, rec.Sources.Meaning)
	overwrite(&existing.POS, rec.POS, &existing.Sources.POS, rec.Sources.POS)
	overwrite(&existing.IPA, rec.IPA, &existing.Sources.IPA, rec.Sources.IPA)
	overwrite(&existing.Note, rec.Note, &existing.Sources.Note, rec.Sources.Note)

	for len(existing.Examples) < model.MaxExamples {
		existing.Examples = append(existing.Examples, model.Example{})
	}
	exSources := []*model.FieldSource{&existing.Sources.Ex1, &existing.Sources.Ex2}
	recExSources := []model.FieldSource{rec.Sources.Ex1, rec.Sources.Ex2}
	for i, ex := range rec.Examples {
		if i >= model.MaxExamples || ex.Empty() {
			continue
		}
		if !allow && !existing.Examples[i].Empty() {
			continue
		}
		if existing.Examples[i] == ex {
			continue
		}
		existing.Examples[i] = ex
		if recExSources[i] != "" {
			*exSources[i] = recExSources[i]
		}
		changed = true
	}

	if union := unionTags(existing.Tags, rec.Tags); len(union) != len(existing.Tags) {
		existing.Tags = union
		changed = true
	}

	return changed
}

// unionTags appends tags from incoming that existing does not already have,
// compared case-insensitively, preserving order.
func unionTags(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[model.NormalizeWord(t)] = true
	}
	out := existing
	for _, t := range incoming {
		key := model.NormalizeWord(t)
		if !seen[key] {
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}
