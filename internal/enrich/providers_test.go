package enrich

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordhaven/vocab-cli/internal/config"
	"github.com/wordhaven/vocab-cli/internal/resilience"
	"github.com/wordhaven/vocab-cli/pkg/anthropic"
)

// fakeAnthropicClient returns a canned response and records the request.
type fakeAnthropicClient struct {
	lastReq anthropic.MessageRequest
	text    string
	err     error
	delay   time.Duration
}

func (f *fakeAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}},
	}, nil
}

type fakeGeminiClient struct {
	text string
	err  error
}

func (f *fakeGeminiClient) GenerateJSON(context.Context, string, string) (string, error) {
	return f.text, f.err
}
func (f *fakeGeminiClient) Close() error { return nil }

func TestClaudeEnricher(t *testing.T) {
	client := &fakeAnthropicClient{text: `[{"pos":"verb","ipa":"rʌn"}]`}
	e := NewClaudeWithClient(client, "claude-test", time.Second)

	items := []Item{{Word: "run", Meaning: "chạy", Need: []string{"pos", "ipa"}}}
	payloads, err := e.Enrich(context.Background(), items)
	require.NoError(t, err)

	require.Len(t, payloads, 1)
	assert.Equal(t, "verb", payloads[0].POS)
	assert.Equal(t, "rʌn", payloads[0].IPA)

	assert.Equal(t, "claude-test", client.lastReq.Model)
	assert.Equal(t, systemPrompt, client.lastReq.System)
	require.Len(t, client.lastReq.Messages, 1)

	// The prompt carries the items as JSON, need list included.
	var sent []Item
	body := client.lastReq.Messages[0].Content
	start := 0
	for start < len(body) && body[start] != '[' {
		start++
	}
	require.NoError(t, json.Unmarshal([]byte(body[start:]), &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"pos", "ipa"}, sent[0].Need)
}

func TestClaudeEnricher_TimeoutIsTyped(t *testing.T) {
	client := &fakeAnthropicClient{delay: 200 * time.Millisecond}
	e := NewClaudeWithClient(client, "claude-test", 10*time.Millisecond)

	_, err := e.Enrich(context.Background(), []Item{{Word: "run", Meaning: "chạy"}})
	require.Error(t, err)
	assert.True(t, resilience.IsTimeout(err))
	assert.True(t, resilience.IsTransient(err))
}

func TestGeminiEnricher(t *testing.T) {
	e := NewGeminiWithClient(&fakeGeminiClient{text: `[{"pos":"noun"}]`}, time.Second)

	payloads, err := e.Enrich(context.Background(), []Item{{Word: "dog", Meaning: "chó"}})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "noun", payloads[0].POS)
	assert.Equal(t, "gemini", e.Name())
}

func TestParsePayloads(t *testing.T) {
	payloads, err := parsePayloads(`Here you go: [{"pos":"verb"},null] done`, 2)
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, "verb", payloads[0].POS)
	assert.Nil(t, payloads[1])
}

func TestParsePayloads_PadsAndTruncates(t *testing.T) {
	payloads, err := parsePayloads(`[{"pos":"verb"}]`, 3)
	require.NoError(t, err)
	require.Len(t, payloads, 3)
	assert.Nil(t, payloads[1])
	assert.Nil(t, payloads[2])

	payloads, err = parsePayloads(`[{"pos":"a"},{"pos":"b"},{"pos":"c"}]`, 2)
	require.NoError(t, err)
	require.Len(t, payloads, 2)
}

func TestParsePayloads_NoArray(t *testing.T) {
	_, err := parsePayloads("I cannot help with that.", 1)
	require.Error(t, err)
}

func TestBuildChain(t *testing.T) {
	cfg := &config.Config{
		Import:    config.ImportConfig{Provider: "claude", Fallbacks: "gemini, claude"},
		Anthropic: config.AnthropicConfig{Key: "k", Model: "m"},
	}

	// Gemini has no key and the duplicate claude entry is dropped.
	chain := BuildChain(context.Background(), cfg)
	require.Len(t, chain, 1)
	assert.Equal(t, "claude", chain[0].Name())
}

func TestBuildChain_EmptyWithoutKeys(t *testing.T) {
	cfg := &config.Config{
		Import: config.ImportConfig{Provider: "claude", Fallbacks: "gemini"},
	}
	assert.Empty(t, BuildChain(context.Background(), cfg))
}

func TestBuildChain_UnknownProviderSkipped(t *testing.T) {
	cfg := &config.Config{
		Import:    config.ImportConfig{Provider: "gpt9", Fallbacks: "claude"},
		Anthropic: config.AnthropicConfig{Key: "k", Model: "m"},
	}
	chain := BuildChain(context.Background(), cfg)
	require.Len(t, chain, 1)
	assert.Equal(t, "claude", chain[0].Name())
}
