package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	g, err := LoadDefault()
	require.NoError(t, err)

	require.NotNil(t, g.Chapter(1, 1))
	require.NotNil(t, g.Chapter(1, 2))
	require.NotNil(t, g.ChallengeChapter(1, 1))
	assert.NotEmpty(t, g.Secrets())
	assert.NotEmpty(t, g.Events())
}

func TestLoad_EnhancedOverlayReplacesWholeChapter(t *testing.T) {
	base := []byte(`[
		{"year": 1, "chapter": 1, "title": "Base", "dialogues": [
			{"speaker": "A", "text": "um"},
			{"speaker": "A", "text": "dois"}
		]},
		{"year": 1, "chapter": 2, "title": "Untouched", "dialogues": [
			{"speaker": "B", "text": "três"}
		]}
	]`)
	overlay := []byte(`[
		{"year": 1, "chapter": 1, "title": "Enhanced", "dialogues": [
			{"speaker": "A", "text": "um, reescrito"}
		]}
	]`)

	g, err := Load(Sources{Story: base, StoryEnhanced: overlay})
	require.NoError(t, err)

	// Exact-key replacement: no field-level merge, so the override's
	// single dialogue wins over the base chapter's two.
	ch := g.Chapter(1, 1)
	require.NotNil(t, ch)
	assert.Equal(t, "Enhanced", ch.Title)
	require.Len(t, ch.Dialogues, 1)

	// Keys absent from the overlay keep their base entry.
	assert.Equal(t, "Untouched", g.Chapter(1, 2).Title)
}

func TestLoad_MissingChapterIsNil(t *testing.T) {
	g, err := Load(Sources{})
	require.NoError(t, err)
	assert.Nil(t, g.Chapter(9, 9))
	assert.Nil(t, g.ChallengeChapter(9, 9))
	assert.Nil(t, g.Event("inexistente"))
}

func TestLoad_RejectsUnknownAttribute(t *testing.T) {
	bad := []byte(`[
		{"year": 1, "chapter": 1, "title": "Bad", "dialogues": [
			{"speaker": "A", "text": "oi"}
		], "choices": [
			{"text": "x", "next_dialogue": 1, "attribute_check": {"attribute": "luck", "threshold": 5}}
		]}
	]`)

	_, err := Load(Sources{Story: bad})
	assert.Error(t, err)
}

func TestLoad_RejectsOutOfRangeNextDialogue(t *testing.T) {
	bad := []byte(`[
		{"year": 1, "chapter": 1, "title": "Bad", "dialogues": [
			{"speaker": "A", "text": "oi"}
		], "choices": [
			{"text": "x", "next_dialogue": 7}
		]}
	]`)

	_, err := Load(Sources{Story: bad})
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownEventFrequency(t *testing.T) {
	bad := []byte(`[{"name": "Estranho", "frequency": "sempre"}]`)

	_, err := Load(Sources{Events: bad})
	assert.Error(t, err)
}

func TestGraph_EventByName(t *testing.T) {
	g, err := LoadDefault()
	require.NoError(t, err)

	ev := g.Event("Eclipse Arcano")
	require.NotNil(t, ev)
	assert.Equal(t, FrequencyRare, ev.Frequency)
	assert.Equal(t, 5, ev.MinLevel)
}

func TestLoadWithOverrides(t *testing.T) {
	dir := t.TempDir()
	override := []byte(`[{
		"year": 1, "chapter": 1, "title": "Versão Revisada",
		"dialogues": [{"speaker": "Narrador", "text": "Tudo mudou."}],
		"completion_exp": 10, "completion_tusd": 5
	}]`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "story.json"), override, 0o644))

	g, err := LoadWithOverrides(dir)
	require.NoError(t, err)

	ch := g.Chapter(1, 1)
	require.NotNil(t, ch)
	assert.Equal(t, "Versão Revisada", ch.Title)

	// Tables without an override file still come from the embedded set.
	assert.NotEmpty(t, g.Events())
}

func TestLoadWithOverrides_InvalidOverrideFailsLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secrets.json"), []byte(`[{"reward_exp": 1}]`), 0o644))

	_, err := LoadWithOverrides(dir)
	assert.Error(t, err)
}
