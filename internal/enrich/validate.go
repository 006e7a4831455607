package enrich

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/wordhaven/vocab-cli/internal/model"
)

const (
	maxNoteRunes = 500
	maxTags      = 5
)

// posWhitelist is the fixed set of accepted parts of speech.
var posWhitelist = map[string]bool{
	"noun": true, "verb": true, "adjective": true, "adverb": true,
	"pronoun": true, "preposition": true, "conjunction": true,
	"interjection": true, "determiner": true, "numeral": true,
	"particle": true, "auxiliary": true, "phrase": true,
}

// ipaRe accepts basic latin letters, common IPA literals, the IPA extensions
// block, spacing modifiers (stress and length marks), combining diacritics,
// and light punctuation. Slashes are stripped before matching.
var ipaRe = regexp.MustCompile(`^(?i)[a-zæçðøθŋœβɫ\x{0250}-\x{02AF}\x{02B0}-\x{02FF}\x{0300}-\x{036F}\s.'\-()|‖]+$`)

// ValidPOS normalizes a candidate part of speech and reports whether it is
// in the whitelist.
func ValidPOS(s string) (string, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	return norm, posWhitelist[norm]
}

// ValidIPA strips surrounding slashes and reports whether the remainder
// looks like an IPA transcription.
func ValidIPA(s string) (string, bool) {
	norm := strings.Trim(strings.TrimSpace(s), "/")
	if norm == "" {
		return "", false
	}
	return norm, ipaRe.MatchString(norm)
}

// CleanNote trims a note and truncates it to the maximum length. Returns
// false when nothing remains.
func CleanNote(s string) (string, bool) {
	norm := strings.TrimSpace(s)
	if norm == "" {
		return "", false
	}
	runes := []rune(norm)
	if len(runes) > maxNoteRunes {
		norm = string(runes[:maxNoteRunes])
	}
	return norm, true
}

// ContainsWholeWord reports whether sentence contains word as a whole-word,
// case-insensitive match. Boundaries are any non-letter, non-digit runes, so
// it works for multi-word targets too.
func ContainsWholeWord(sentence, word string) bool {
	s := strings.ToLower(sentence)
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return false
	}

	for from := 0; ; {
		idx := strings.Index(s[from:], w)
		if idx < 0 {
			return false
		}
		idx += from

		before := rune(0)
		if idx > 0 {
			before, _ = lastRune(s[:idx])
		}
		after := rune(0)
		if idx+len(w) < len(s) {
			after = firstRune(s[idx+len(w):])
		}

		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		from = idx + len(w)
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) (rune, bool) {
	var last rune
	var ok bool
	for _, r := range s {
		last, ok = r, true
	}
	return last, ok
}

// Apply validates a payload field by field and writes accepted values onto
// the record with inferred provenance. A field already set on the record is
// never overwritten. Returns whether anything changed plus the validation
// errors for rejected fields.
func Apply(rec *model.Record, p *Payload) (bool, []model.ImportError) {
	if p == nil {
		return false, nil
	}

	changed := false
	var errs []model.ImportError
	reject := func(field, msg string) {
		errs = append(errs, model.ImportError{
			Stage:    model.StageEnrich,
			Message:  msg,
			Location: fmt.Sprintf("%s (%s)", rec.Word, field),
		})
	}

	if rec.Missing.POS && p.POS != "" {
		if norm, ok := ValidPOS(p.POS); ok {
			rec.POS = norm
			rec.Missing.POS = false
			rec.Sources.POS = model.SourceInferred
			changed = true
		} else {
			reject("pos", fmt.Sprintf("unrecognized part of speech %q", p.POS))
		}
	}

	if rec.Missing.IPA && p.IPA != "" {
		if norm, ok := ValidIPA(p.IPA); ok {
			rec.IPA = norm
			rec.Missing.IPA = false
			rec.Sources.IPA = model.SourceInferred
			changed = true
		} else {
			reject("ipa", fmt.Sprintf("transcription %q is not valid IPA", p.IPA))
		}
	}

	if rec.Missing.Note && p.Note != "" {
		if norm, ok := CleanNote(p.Note); ok {
			rec.Note = norm
			rec.Missing.Note = false
			rec.Sources.Note = model.SourceInferred
			changed = true
		}
	}

	for _, ex := range p.Examples {
		if len(rec.Examples) >= model.MaxExamples {
			break
		}
		if ex.Empty() {
			continue
		}
		// Rejected examples are dropped, never substituted with blanks.
		if !ContainsWholeWord(ex.Source, rec.Word) {
			reject("example", fmt.Sprintf("example does not contain %q", rec.Word))
			continue
		}
		rec.Examples = append(rec.Examples, ex)
		switch len(rec.Examples) {
		case 1:
			rec.Sources.Ex1 = model.SourceInferred
		case 2:
			rec.Sources.Ex2 = model.SourceInferred
		}
		changed = true
	}
	// The two example flags clear independently as their slots fill.
	rec.Missing.Ex1 = len(rec.Examples) < 1
	rec.Missing.Ex2 = len(rec.Examples) < 2

	if len(rec.Tags) == 0 && len(p.Tags) > 0 {
		tags := p.Tags
		if len(tags) > maxTags {
			tags = tags[:maxTags]
		}
		cleaned := make([]string, 0, len(tags))
		for _, t := range tags {
			if t = strings.TrimSpace(t); t != "" {
				cleaned = append(cleaned, t)
			}
		}
		if len(cleaned) > 0 {
			rec.Tags = cleaned
			changed = true
		}
	}

	return changed, errs
}
