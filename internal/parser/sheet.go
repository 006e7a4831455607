package parser

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/wordhaven/vocab-cli/internal/model"
)

// Canonical column keys the tabular format can carry.
const (
	colWord      = "word"
	colMeaning   = "meaning"
	colPOS       = "pos"
	colIPA       = "ipa"
	colNote      = "note"
	colEx1Source = "ex1_source"
	colEx1Target = "ex1_target"
	colEx2Source = "ex2_source"
	colEx2Target = "ex2_target"
	colTags      = "tags"
)

//go:embed aliases.yaml
var aliasesYAML []byte

// headerAliases maps a normalized header cell to its canonical column key.
var headerAliases = mustLoadAliases()

func mustLoadAliases() map[string]string {
	var table map[string][]string
	if err := yaml.Unmarshal(aliasesYAML, &table); err != nil {
		panic(eris.Wrap(err, "parser: load header aliases"))
	}
	out := make(map[string]string)
	for canonical, aliases := range table {
		out[canonical] = canonical
		for _, a := range aliases {
			out[a] = canonical
		}
	}
	return out
}

// normalizeHeader trims, lowercases, and collapses whitespace to underscores.
func normalizeHeader(cell string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(cell))), "_")
}

// parseSheet handles the spreadsheet format: the first sheet's first row is a
// header matched against the alias table; every later row with both a word
// and a meaning becomes a record.
func parseSheet(folderID, path string) (*Result, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "parser: open spreadsheet")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("parser: spreadsheet has no sheets")
	}
	sheet := f.Sheets[0]

	res := &Result{}

	if len(sheet.Rows) == 0 {
		res.Errors = append(res.Errors, model.ImportError{
			Stage:    model.StageParse,
			Message:  "spreadsheet is empty",
			Location: "row 1",
		})
		return res, nil
	}

	cols := make(map[string]int) // canonical key → column index
	for i, cell := range sheet.Rows[0].Cells {
		key := normalizeHeader(cell.String())
		if canonical, ok := headerAliases[key]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}

	// Without both required columns the whole file fails with one error.
	if _, ok := cols[colWord]; !ok {
		res.Errors = append(res.Errors, model.ImportError{
			Stage:    model.StageParse,
			Message:  "no recognizable word column in header",
			Location: "row 1",
		})
		return res, nil
	}
	if _, ok := cols[colMeaning]; !ok {
		res.Errors = append(res.Errors, model.ImportError{
			Stage:    model.StageParse,
			Message:  "no recognizable meaning column in header",
			Location: "row 1",
		})
		return res, nil
	}

	seen := make(map[string]bool)
	for i, row := range sheet.Rows[1:] {
		rowNo := i + 2 // 1-based, after the header
		word := cellAt(row, cols, colWord)
		meaning := cellAt(row, cols, colMeaning)

		switch {
		case word == "" && meaning == "":
			continue // blank row
		case word == "" || meaning == "":
			res.TotalLines++
			res.Errors = append(res.Errors, model.ImportError{
				Stage:    model.StageParse,
				Message:  "row is missing word or meaning",
				Location: fmt.Sprintf("row %d", rowNo),
			})
			continue
		}

		res.TotalLines++
		rec := model.NewRecord(folderID, word, meaning, rowNo)
		applyOptionalColumns(rec, row, cols)
		res.add(rec, seen)
	}

	return res, nil
}

// applyOptionalColumns fills record fields from any optional columns present
// in the header. Values set here are user-supplied provenance and clear the
// corresponding missing flag.
func applyOptionalColumns(rec *model.Record, row *xlsx.Row, cols map[string]int) {
	if v := cellAt(row, cols, colPOS); v != "" {
		rec.POS = strings.ToLower(v)
		rec.Missing.POS = false
		rec.Sources.POS = model.SourceUser
	}
	if v := cellAt(row, cols, colIPA); v != "" {
		rec.IPA = v
		rec.Missing.IPA = false
		rec.Sources.IPA = model.SourceUser
	}
	if v := cellAt(row, cols, colNote); v != "" {
		rec.Note = v
		rec.Missing.Note = false
		rec.Sources.Note = model.SourceUser
	}

	// Example slots pack down: a row with only the second pair filled still
	// yields one example in the first slot.
	for _, ex := range []model.Example{
		{Source: cellAt(row, cols, colEx1Source), Target: cellAt(row, cols, colEx1Target)},
		{Source: cellAt(row, cols, colEx2Source), Target: cellAt(row, cols, colEx2Target)},
	} {
		if ex.Empty() {
			continue
		}
		rec.Examples = append(rec.Examples, ex)
		switch len(rec.Examples) {
		case 1:
			rec.Sources.Ex1 = model.SourceUser
		case 2:
			rec.Sources.Ex2 = model.SourceUser
		}
	}
	rec.Missing.Ex1 = len(rec.Examples) < 1
	rec.Missing.Ex2 = len(rec.Examples) < 2

	if v := cellAt(row, cols, colTags); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				rec.Tags = append(rec.Tags, tag)
			}
		}
	}
}

func cellAt(row *xlsx.Row, cols map[string]int, key string) string {
	idx, ok := cols[key]
	if !ok || idx >= len(row.Cells) {
		return ""
	}
	return strings.TrimSpace(row.Cells[idx].String())
}
