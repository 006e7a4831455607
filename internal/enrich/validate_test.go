package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordhaven/vocab-cli/internal/model"
)

func TestValidPOS(t *testing.T) {
	for _, ok := range []string{"noun", " Verb ", "ADJECTIVE", "phrase"} {
		norm, valid := ValidPOS(ok)
		assert.True(t, valid, ok)
		assert.Equal(t, strings.ToLower(strings.TrimSpace(ok)), norm)
	}
	for _, bad := range []string{"", "nounish", "verbe", "n."} {
		_, valid := ValidPOS(bad)
		assert.False(t, valid, bad)
	}
}

func TestValidIPA(t *testing.T) {
	norm, ok := ValidIPA("/rʌn/")
	assert.True(t, ok)
	assert.Equal(t, "rʌn", norm)

	_, ok = ValidIPA("ˈwɔːtə")
	assert.True(t, ok)

	_, ok = ValidIPA("not @ all IPA!")
	assert.False(t, ok)

	_, ok = ValidIPA("//")
	assert.False(t, ok)
}

func TestCleanNote(t *testing.T) {
	norm, ok := CleanNote("  a note  ")
	assert.True(t, ok)
	assert.Equal(t, "a note", norm)

	_, ok = CleanNote("   ")
	assert.False(t, ok)

	long := strings.Repeat("ạ", 600)
	norm, ok = CleanNote(long)
	assert.True(t, ok)
	assert.Equal(t, 500, len([]rune(norm)))
}

func TestContainsWholeWord(t *testing.T) {
	assert.True(t, ContainsWholeWord("I run every day.", "run"))
	assert.True(t, ContainsWholeWord("Run!", "run"))
	assert.True(t, ContainsWholeWord("họ chạy bộ", "chạy bộ"))
	assert.False(t, ContainsWholeWord("The runner won.", "run"))
	assert.False(t, ContainsWholeWord("nothing here", "run"))
	assert.False(t, ContainsWholeWord("anything", ""))
}

func TestApply_FillsMissingFields(t *testing.T) {
	rec := model.NewRecord("f1", "run", "chạy", 1)
	p := &Payload{
		POS:  "Verb",
		IPA:  "/rʌn/",
		Note: "irregular",
		Examples: []model.Example{
			{Source: "I run fast.", Target: "Tôi chạy nhanh."},
			{Source: "They run home.", Target: "Họ chạy về nhà."},
		},
		Tags: []string{"motion", "basic"},
	}

	changed, errs := Apply(rec, p)
	require.True(t, changed)
	assert.Empty(t, errs)

	assert.Equal(t, "verb", rec.POS)
	assert.Equal(t, "rʌn", rec.IPA)
	assert.Equal(t, "irregular", rec.Note)
	assert.Len(t, rec.Examples, 2)
	assert.Equal(t, []string{"motion", "basic"}, rec.Tags)
	assert.False(t, rec.Missing.Any())

	assert.Equal(t, model.SourceInferred, rec.Sources.POS)
	assert.Equal(t, model.SourceInferred, rec.Sources.Ex1)
	assert.Equal(t, model.SourceInferred, rec.Sources.Ex2)
	assert.Equal(t, model.SourceUser, rec.Sources.Meaning)
}

func TestApply_NeverOverwritesSetFields(t *testing.T) {
	rec := model.NewRecord("f1", "run", "chạy", 1)
	rec.POS = "noun"
	rec.Missing.POS = false
	rec.Sources.POS = model.SourceUser

	changed, errs := Apply(rec, &Payload{POS: "verb"})
	assert.False(t, changed)
	assert.Empty(t, errs)
	assert.Equal(t, "noun", rec.POS)
	assert.Equal(t, model.SourceUser, rec.Sources.POS)
}

func TestApply_RejectsInvalidFields(t *testing.T) {
	rec := model.NewRecord("f1", "run", "chạy", 1)
	p := &Payload{
		POS: "gerundive",
		IPA: "not ipa @ all!",
		Examples: []model.Example{
			{Source: "The runner won.", Target: "…"},
		},
	}

	changed, errs := Apply(rec, p)
	assert.False(t, changed)
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, model.StageEnrich, e.Stage)
		assert.Contains(t, e.Location, "run")
	}
	assert.True(t, rec.Missing.POS)
	assert.True(t, rec.Missing.IPA)
	assert.True(t, rec.Missing.Ex1)
}

func TestApply_TagsOnlyWhenRecordHasNone(t *testing.T) {
	rec := model.NewRecord("f1", "run", "chạy", 1)
	rec.Tags = []string{"existing"}

	changed, _ := Apply(rec, &Payload{Tags: []string{"new"}})
	assert.False(t, changed)
	assert.Equal(t, []string{"existing"}, rec.Tags)
}

func TestApply_TagsCapped(t *testing.T) {
	rec := model.NewRecord("f1", "run", "chạy", 1)
	changed, _ := Apply(rec, &Payload{Tags: []string{"a", "b", "c", "d", "e", "f", "g"}})
	assert.True(t, changed)
	assert.Len(t, rec.Tags, maxTags)
}

func TestApply_NilPayload(t *testing.T) {
	rec := model.NewRecord("f1", "run", "chạy", 1)
	changed, errs := Apply(rec, nil)
	assert.False(t, changed)
	assert.Empty(t, errs)
	assert.True(t, rec.Missing.Any())
}

func TestApply_ExampleSlotsHonorExisting(t *testing.T) {
	rec := model.NewRecord("f1", "run", "chạy", 1)
	rec.Examples = []model.Example{{Source: "I run.", Target: "Tôi chạy."}}
	rec.Missing.Ex1 = false
	rec.Sources.Ex1 = model.SourceUser

	p := &Payload{Examples: []model.Example{
		{Source: "They run away.", Target: "Họ chạy đi."},
		{Source: "We run too.", Target: "Chúng tôi cũng chạy."},
	}}
	changed, errs := Apply(rec, p)
	require.True(t, changed)
	assert.Empty(t, errs)

	// Only the open second slot is filled.
	require.Len(t, rec.Examples, 2)
	assert.Equal(t, "I run.", rec.Examples[0].Source)
	assert.Equal(t, "They run away.", rec.Examples[1].Source)
	assert.Equal(t, model.SourceUser, rec.Sources.Ex1)
	assert.Equal(t, model.SourceInferred, rec.Sources.Ex2)
	assert.False(t, rec.Missing.Ex2)
}
