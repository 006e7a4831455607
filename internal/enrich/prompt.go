package enrich

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// systemPrompt instructs the model to answer with one JSON object per item.
const systemPrompt = `You are a lexicographer's assistant for language learners.
For each vocabulary item you receive, fill in the fields listed in its "need"
array and leave everything else out. Rules:
- "pos": one lowercase English part of speech (noun, verb, adjective, ...).
- "ipa": the IPA transcription of the word, without surrounding slashes.
- "note": one short usage note in the meaning's language.
- "examples": up to two pairs {"source","target"}. "source" is a natural
  sentence in the word's language that uses the word exactly as given;
  "target" is its translation into the meaning's language.
- "tags": up to five short topical tags.
Respond with a JSON array only, same length and order as the input, one
object per item. Use null for an item you cannot help with.`

// buildPrompt renders the user message for a batch of items.
func buildPrompt(items []Item) (string, error) {
	body, err := json.Marshal(items)
	if err != nil {
		return "", eris.Wrap(err, "enrich: marshal items")
	}
	var b strings.Builder
	b.WriteString("Fill in the needed fields for these vocabulary items:\n")
	b.Write(body)
	return b.String(), nil
}

// parsePayloads decodes a model response into exactly n payloads, order
// preserved. Extra entries are dropped and short responses are padded with
// nils; providers are not trusted to keep alignment.
func parsePayloads(text string, n int) ([]*Payload, error) {
	// Tolerate prose around the array.
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, eris.New("enrich: response contains no JSON array")
	}

	var payloads []*Payload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payloads); err != nil {
		return nil, eris.Wrap(err, "enrich: decode payloads")
	}

	if len(payloads) > n {
		payloads = payloads[:n]
	}
	for len(payloads) < n {
		payloads = append(payloads, nil)
	}
	return payloads, nil
}
