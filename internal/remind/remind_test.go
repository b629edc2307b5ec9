package remind

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saveit/pkg/store"
)

type captureSender struct {
	sent map[int64][]string
	fail bool
}

func (c *captureSender) Send(ownerID int64, text string) error {
	if c.fail {
		return errors.New("telegram unreachable")
	}
	if c.sent == nil {
		c.sent = map[int64][]string{}
	}
	c.sent[ownerID] = append(c.sent[ownerID], text)
	return nil
}

func seed(t *testing.T, id string, remindAtMs int64) {
	t.Helper()
	doc := `{"category":"task","content":"item ` + id + `","remindAt":` + strconv.FormatInt(remindAtMs, 10) + `}`
	require.NoError(t, store.SaveItem(5, id, []byte(doc)))
}

func TestRunOnceDeliversAndClears(t *testing.T) {
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })

	now := time.Now().UnixMilli()
	seed(t, "due", now-time.Minute.Milliseconds())
	seed(t, "future", now+time.Hour.Milliseconds())

	snd := &captureSender{}
	require.NoError(t, RunOnce(context.Background(), 0, snd))

	require.Len(t, snd.sent[5], 1)
	assert.Contains(t, snd.sent[5][0], "item due")

	// cleared: a second sweep finds nothing
	snd2 := &captureSender{}
	require.NoError(t, RunOnce(context.Background(), 0, snd2))
	assert.Empty(t, snd2.sent)
}

func TestRunOnceDropsStaleWithoutSending(t *testing.T) {
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })

	now := time.Now().UnixMilli()
	seed(t, "ancient", now-(48*time.Hour).Milliseconds())

	snd := &captureSender{}
	require.NoError(t, RunOnce(context.Background(), time.Hour, snd))
	assert.Empty(t, snd.sent)

	// cleared anyway so it never resurfaces
	due, err := store.ListDueReminders(now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestRunOnceKeepsReminderOnSendFailure(t *testing.T) {
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })

	now := time.Now().UnixMilli()
	seed(t, "due", now-time.Minute.Milliseconds())

	require.NoError(t, RunOnce(context.Background(), 0, &captureSender{fail: true}))

	// still pending for the next sweep
	due, err := store.ListDueReminders(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)
}
