package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "clara.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveItem(ctx, KindNote, "hello", []string{"greeting"})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	items, err := s.GetItems(ctx, KindNote, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "hello", items[0].Content)
	assert.Equal(t, KindNote, items[0].Kind)
	assert.Equal(t, []string{"greeting"}, items[0].Tags)
	assert.False(t, items[0].CreatedAt.IsZero())
}

func TestSaveItemAutoTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveItem(ctx, KindNote, "remember the meeting about budget planning", nil)
	require.NoError(t, err)

	item, err := s.GetItem(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, item.Tags)
	assert.Contains(t, item.Tags, "meeting")
}

func TestSaveItemInvalidKind(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveItem(context.Background(), Kind("banana"), "x", nil)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestGetItemsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		_, err := s.SaveItem(ctx, KindTodo, content, []string{})
		require.NoError(t, err)
	}

	items, err := s.GetItems(ctx, KindTodo, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "third", items[0].Content)
	assert.Equal(t, "first", items[2].Content)

	// Limit applies to the newest items.
	items, err = s.GetItems(ctx, KindTodo, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "third", items[0].Content)
}

func TestGetItemsAllKinds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveItem(ctx, KindNote, "a note", []string{})
	require.NoError(t, err)
	_, err = s.SaveItem(ctx, KindTodo, "a todo", []string{})
	require.NoError(t, err)

	items, err := s.GetItems(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSearchItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveItem(ctx, KindNote, "Buy MILK tomorrow", []string{})
	require.NoError(t, err)
	_, err = s.SaveItem(ctx, KindNote, "unrelated", []string{"milk"})
	require.NoError(t, err)
	_, err = s.SaveItem(ctx, KindTodo, "milk the cows", []string{})
	require.NoError(t, err)

	// Case-insensitive, content only (the tagged-but-unrelated note must not match).
	items, err := s.SearchItems(ctx, "milk", KindNote)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Buy MILK tomorrow", items[0].Content)

	items, err = s.SearchItems(ctx, "milk", "")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestUpdateItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveItem(ctx, KindNote, "before", []string{"old"})
	require.NoError(t, err)

	content := "after"
	ok, err := s.UpdateItem(ctx, id, &content, []string{"new"})
	require.NoError(t, err)
	assert.True(t, ok)

	item, err := s.GetItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "after", item.Content)
	assert.Equal(t, []string{"new"}, item.Tags)

	// Missing ID reports false, not an error.
	ok, err = s.UpdateItem(ctx, 9999, &content, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateItemNoFieldsIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveItem(ctx, KindNote, "unchanged", []string{"t"})
	require.NoError(t, err)

	ok, err := s.UpdateItem(ctx, id, nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	item, err := s.GetItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "unchanged", item.Content)
	assert.Equal(t, []string{"t"}, item.Tags)
}

func TestUpdateItemNoopSurfacesStoreErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveItem(ctx, KindNote, "x", nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// A real storage failure must not be reported as "not found".
	ok, err := s.UpdateItem(ctx, id, nil, nil)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestDeleteItemIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveItem(ctx, KindNote, "hello", nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem(ctx, id))
	items, err := s.GetItems(ctx, KindNote, 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Second delete is a no-op.
	require.NoError(t, s.DeleteItem(ctx, id))
}

func TestPreferenceUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.True(t, s.SavePreference(ctx, Preference{Key: "k", Value: "a"}))
	assert.True(t, s.SavePreference(ctx, Preference{Key: "k", Value: "b", Domain: "style"}))

	pref, err := s.GetPreferenceByKey(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.Equal(t, "b", pref.Value)
	assert.Equal(t, "style", pref.Domain)

	// Exactly one row for the key.
	prefs, err := s.ListPreferences(ctx)
	require.NoError(t, err)
	assert.Len(t, prefs, 1)
}

func TestPreferenceDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.True(t, s.SavePreference(ctx, Preference{Key: "lang", Value: "fr"}))
	pref, err := s.GetPreferenceByKey(ctx, "lang")
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.Equal(t, ScopeGlobal, pref.Scope)
	assert.Equal(t, SourceUser, pref.Source)
}

func TestPreferenceConfidenceStoredVerbatim(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.True(t, s.SavePreference(ctx, Preference{Key: "lang", Value: "fr", Confidence: 0.0}))
	pref, err := s.GetPreferenceByKey(ctx, "lang")
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.Equal(t, 0.0, pref.Confidence)
}

func TestPreferenceEmptyKeyRefused(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.SavePreference(context.Background(), Preference{Value: "v"}))
}

func TestGetPreferenceMissing(t *testing.T) {
	s := newTestStore(t)
	pref, err := s.GetPreferenceByKey(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, pref)
}

func TestSearchPreferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.True(t, s.SavePreference(ctx, Preference{Key: "coffee_time", Value: "morning"}))
	require.True(t, s.SavePreference(ctx, Preference{Key: "tone", Value: "formal", Domain: "writing"}))

	prefs, err := s.SearchPreferences(ctx, "coffee")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, "coffee_time", prefs[0].Key)

	prefs, err = s.SearchPreferences(ctx, "writing")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, "tone", prefs[0].Key)
}

func TestResetSoft(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveItem(ctx, KindNote, "gone soon", nil)
	require.NoError(t, err)
	require.True(t, s.SavePreference(ctx, Preference{Key: "k", Value: "v"}))

	require.NoError(t, s.Reset(ctx, false))

	items, err := s.GetItems(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, items)
	prefs, err := s.ListPreferences(ctx)
	require.NoError(t, err)
	assert.Empty(t, prefs)

	// IDs restart from one after a truncate.
	id, err := s.SaveItem(ctx, KindNote, "fresh", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestResetHard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveItem(ctx, KindNote, "gone", nil)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx, true))

	// Store is usable again, starting from empty.
	items, err := s.GetItems(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	id, err := s.SaveItem(ctx, KindNote, "fresh start", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}
