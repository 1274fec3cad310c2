package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTagsEmpty(t *testing.T) {
	assert.Empty(t, GenerateTags(""))
}

func TestGenerateTagsFiltersStopwords(t *testing.T) {
	tags := GenerateTags("the meeting about the budget for the meeting")
	assert.Contains(t, tags, "meeting")
	assert.Contains(t, tags, "budget")
	assert.NotContains(t, tags, "the")
	assert.NotContains(t, tags, "for")
}

func TestGenerateTagsFrequencyRanked(t *testing.T) {
	tags := GenerateTags("server server server deploy deploy backup")
	assert.Equal(t, []string{"server", "deploy", "backup"}, tags)
}

func TestGenerateTagsMaxFive(t *testing.T) {
	tags := GenerateTags("alpha bravo charlie delta echoes foxtrot golf hotel")
	assert.Len(t, tags, 5)
}

func TestGenerateTagsShortWordsSkipped(t *testing.T) {
	tags := GenerateTags("go up it ok")
	assert.Empty(t, tags)
}

func TestGenerateTagsAccentedWords(t *testing.T) {
	tags := GenerateTags("réunion prévue demain matin réunion")
	assert.Contains(t, tags, "réunion")
}
