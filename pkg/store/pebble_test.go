package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, Open(t.TempDir()))
	t.Cleanup(func() { _ = Close() })
}

func TestSaveGetListDelete(t *testing.T) {
	openTestDB(t)

	require.NoError(t, SaveItem(42, "a1", []byte(`{"category":"idea","content":"build it","createdAt":1700000000}`)))
	require.NoError(t, SaveItem(42, "a2", []byte(`{"category":"task","content":"ship it","createdAt":1700000100}`)))
	require.NoError(t, SaveItem(99, "b1", []byte(`{"category":"note","content":"other owner"}`)))

	it, err := GetItem(42, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", it.ID)
	assert.Equal(t, int64(42), it.OwnerID)
	assert.Equal(t, "build it", it.Body)
	assert.Equal(t, int64(1700000000000), it.CreatedAtMs)

	items, err := ListItems(42)
	require.NoError(t, err)
	require.Len(t, items, 2, "listing must stay within the owner partition")

	require.NoError(t, DeleteItem(42, "a1"))
	items, err = ListItems(42)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a2", items[0].ID)

	_, err = GetItem(42, "a1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, DeleteItem(42, "a1"), ErrNotFound)
}

func TestListSkipsMalformedDocs(t *testing.T) {
	openTestDB(t)

	require.NoError(t, SaveItem(7, "ok", []byte(`{"category":"quote","content":"fine"}`)))
	// bypass SaveItem validation to plant a corrupt value
	require.NoError(t, db.Set([]byte(ItemKey(7, "bad")), []byte(`{"category":`), nil))

	items, err := ListItems(7)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ok", items[0].ID)
}

func TestSaveItemRejectsNonJSON(t *testing.T) {
	openTestDB(t)
	assert.Error(t, SaveItem(1, "x", []byte("plain text")))
	assert.Error(t, SaveItem(1, "", []byte(`{}`)))
}

func TestMigrateLegacyLinks(t *testing.T) {
	openTestDB(t)

	require.NoError(t, db.Set([]byte("links:old1"), []byte(`{"telegramId":42,"category":"idea","content":"from v1"}`), nil))
	require.NoError(t, db.Set([]byte("links:old2"), []byte(`{"user_id":"99","url":"https://example.com"}`), nil))
	require.NoError(t, db.Set([]byte("links:orphan"), []byte(`{"content":"no owner field"}`), nil))

	migrated, skipped, err := MigrateLegacyLinks()
	require.NoError(t, err)
	assert.Equal(t, 2, migrated)
	assert.Equal(t, 1, skipped)

	items, err := ListItems(42)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "old1", items[0].ID)
	assert.Equal(t, "from v1", items[0].Body)

	items, err = ListItems(99)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com", items[0].RawURL)

	// migrated keys are gone, the orphan stays
	keys, err := ListKeys(legacyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"links:orphan"}, keys)

	// idempotent second run
	migrated, _, err = MigrateLegacyLinks()
	require.NoError(t, err)
	assert.Zero(t, migrated)
}

func TestRemindersSweep(t *testing.T) {
	openTestDB(t)

	require.NoError(t, SaveItem(5, "due", []byte(`{"content":"water plants","remindAt":1700000000}`)))
	require.NoError(t, SaveItem(5, "later", []byte(`{"content":"someday","remindAt":9999999999}`)))
	require.NoError(t, SaveItem(5, "none", []byte(`{"content":"no reminder"}`)))

	due, err := ListDueReminders(1700000000000)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)

	require.NoError(t, ClearReminder(5, "due"))
	due, err = ListDueReminders(1700000000000)
	require.NoError(t, err)
	assert.Empty(t, due)

	// clearing keeps the rest of the document intact
	it, err := GetItem(5, "due")
	require.NoError(t, err)
	assert.Equal(t, "water plants", it.Body)
}
