package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTaggedFence(t *testing.T) {
	text := "Sure.\n```json\n{\"memory_action\": \"save_note\", \"content\": \"call dentist\"}\n```"

	cleaned, d := Extract(text, KeyMemoryAction)

	require.NotNil(t, d)
	assert.Equal(t, "save_note", d.String(KeyMemoryAction))
	assert.Equal(t, "call dentist", d.String("content"))
	assert.Equal(t, "Sure.", cleaned)
}

func TestExtractBareFence(t *testing.T) {
	text := "Done.\n```\n{\"intent\": \"filesystem\", \"action\": \"list_dir\", \"params\": {}}\n```\nAnything else?"

	cleaned, d := Extract(text, KeyIntent)

	require.NotNil(t, d)
	assert.Equal(t, "filesystem", d.String(KeyIntent))
	assert.Equal(t, "list_dir", d.String("action"))
	assert.Equal(t, "Done.\n\nAnything else?", cleaned)
}

func TestExtractNakedObject(t *testing.T) {
	text := `I'll note that. {"memory_action": "save_todo", "content": "buy milk", "tags": ["errand"]} Done!`

	cleaned, d := Extract(text, KeyMemoryAction)

	require.NotNil(t, d)
	assert.Equal(t, "save_todo", d.String(KeyMemoryAction))
	assert.Equal(t, []string{"errand"}, d.StringSlice("tags"))
	assert.Equal(t, "I'll note that.\n\nDone!", cleaned)
}

func TestExtractPlainTextUntouched(t *testing.T) {
	text := "The weather in Paris is mild today."

	cleaned, d := Extract(text, KeyMemoryAction)

	assert.Nil(t, d)
	assert.Equal(t, text, cleaned)
}

func TestExtractMalformedFence(t *testing.T) {
	text := "Saving.\n```json\n{\"memory_action\": \"save_note\", \"content\": \n```"

	cleaned, d := Extract(text, KeyMemoryAction)

	assert.Nil(t, d)
	assert.Equal(t, text, cleaned)
}

func TestExtractWrongDiscriminatorSkipped(t *testing.T) {
	text := "```json\n{\"intent\": \"filesystem\", \"action\": \"read_text\", \"params\": {\"path\": \"a.txt\"}}\n```"

	cleaned, d := Extract(text, KeyMemoryAction)

	assert.Nil(t, d)
	assert.Equal(t, text, cleaned)

	cleaned, d = Extract(text, KeyIntent)
	require.NotNil(t, d)
	assert.Equal(t, "read_text", d.String("action"))
	assert.Equal(t, "", cleaned)
}

func TestExtractFirstMatchOnly(t *testing.T) {
	text := "```json\n{\"memory_action\": \"save_note\", \"content\": \"first\"}\n```\n" +
		"```json\n{\"memory_action\": \"save_note\", \"content\": \"second\"}\n```"

	cleaned, d := Extract(text, KeyMemoryAction)

	require.NotNil(t, d)
	assert.Equal(t, "first", d.String("content"))
	assert.Contains(t, cleaned, "second")
}

func TestExtractSkipsNonMatchingFence(t *testing.T) {
	text := "```json\n{\"intent\": \"filesystem\", \"action\": \"stat_path\", \"params\": {\"path\": \"x\"}}\n```\n" +
		"```json\n{\"memory_action\": \"list_todos\"}\n```"

	cleaned, d := Extract(text, KeyMemoryAction)

	require.NotNil(t, d)
	assert.Equal(t, "list_todos", d.String(KeyMemoryAction))
	assert.Contains(t, cleaned, "stat_path")
}

func TestExtractNestedObjectNotMistaken(t *testing.T) {
	text := `{"wrapper": {"memory_action": "save_note", "content": "inner"}}`

	_, d := Extract(text, KeyMemoryAction)

	require.NotNil(t, d)
	assert.Equal(t, "save_note", d.String(KeyMemoryAction))
	assert.Equal(t, "inner", d.String("content"))
}

func TestExtractBracesInStrings(t *testing.T) {
	text := `Here: {"memory_action": "save_note", "content": "use {curly} braces"}`

	cleaned, d := Extract(text, KeyMemoryAction)

	require.NotNil(t, d)
	assert.Equal(t, "use {curly} braces", d.String("content"))
	assert.Equal(t, "Here:", cleaned)
}

func TestDirectiveGetters(t *testing.T) {
	d := Directive{
		"item_id":    float64(42),
		"id_str":     "7",
		"confidence": 0.8,
		"overwrite":  true,
		"tags":       []any{"a", "b", 3},
		"params":     map[string]any{"path": "x"},
	}

	n, ok := d.Int64("item_id")
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	n, ok = d.Int64("id_str")
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	_, ok = d.Int64("missing")
	assert.False(t, ok)

	f, ok := d.Float("confidence")
	assert.True(t, ok)
	assert.InDelta(t, 0.8, f, 1e-9)

	assert.True(t, d.Bool("overwrite", false))
	assert.False(t, d.Bool("missing", false))

	assert.Equal(t, []string{"a", "b"}, d.StringSlice("tags"))
	assert.Equal(t, "x", Directive(d.Map("params")).String("path"))
}
