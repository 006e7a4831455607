package parser

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/wordhaven/vocab-cli/internal/model"
)

// ordinalRe strips a leading list marker such as "1." / "12)" / "3 -".
var ordinalRe = regexp.MustCompile(`^\s*\d+\s*[.):\-]\s*`)

// dashRe normalizes dash-style separators (" - ", " – ", " — ") to a colon
// so the rest of the line logic only deals with one separator.
var dashRe = regexp.MustCompile(`\s+[-–—]\s+`)

// parseLines handles the line-delimited text format: one "word: meaning"
// pair per non-blank line.
func parseLines(folderID, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "parser: open text file")
	}
	defer f.Close()

	res := &Result{}
	seen := make(map[string]bool)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		res.TotalLines++

		line = ordinalRe.ReplaceAllString(line, "")
		line = dashRe.ReplaceAllString(line, ": ")

		word, meaning, ok := strings.Cut(line, ":")
		word = strings.TrimSpace(word)
		meaning = strings.TrimSpace(meaning)
		if !ok || word == "" || meaning == "" {
			res.Errors = append(res.Errors, model.ImportError{
				Stage:    model.StageParse,
				Message:  "line is not in \"word: meaning\" form",
				Location: fmt.Sprintf("line %d", lineNo),
			})
			continue
		}

		res.add(model.NewRecord(folderID, word, meaning, lineNo), seen)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "parser: read text file")
	}

	return res, nil
}
