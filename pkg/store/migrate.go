package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"saveit/pkg/logger"
)

// legacyPrefix is the flat namespace an earlier bot release wrote items
// under, with no owner partition in the key.
const legacyPrefix = "links:"

// MigrateLegacyLinks rewrites legacy "links:<id>" records into the canonical
// owner-partitioned namespace and removes the originals. The owner is taken
// from the document's telegramId (or user_id) field; records with no
// resolvable owner are left in place and reported.
func MigrateLegacyLinks() (migrated int, skipped int, err error) {
	if db == nil {
		return 0, 0, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte(legacyPrefix)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, 0, err
	}
	defer iter.Close()

	type move struct {
		oldKey []byte
		newKey []byte
		value  []byte
	}
	var moves []move
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		oldKey := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)

		owner := legacyOwner(value)
		if owner == 0 {
			skipped++
			logger.Warn("legacy_link_no_owner", "key", string(oldKey))
			continue
		}
		itemID := string(oldKey[len(prefix):])
		if itemID == "" {
			itemID = uuid.NewString()
		}
		moves = append(moves, move{
			oldKey: oldKey,
			newKey: []byte(ItemKey(owner, itemID)),
			value:  value,
		})
	}
	if err := iter.Error(); err != nil {
		return 0, skipped, err
	}

	for _, m := range moves {
		if err := db.Set(m.newKey, m.value, pebble.Sync); err != nil {
			return migrated, skipped, fmt.Errorf("write canonical key failed: %w", err)
		}
		if err := db.Delete(m.oldKey, pebble.Sync); err != nil {
			return migrated, skipped, fmt.Errorf("delete legacy key failed: %w", err)
		}
		migrated++
		legacyMigrated.Inc()
	}
	if migrated > 0 || skipped > 0 {
		logger.Info("legacy_links_migrated", "migrated", migrated, "skipped", skipped)
	}
	return migrated, skipped, nil
}

// legacyOwner extracts the owning Telegram user id from a legacy document.
func legacyOwner(raw []byte) int64 {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0
	}
	for _, field := range []string{"telegramId", "user_id", "userId"} {
		switch v := doc[field].(type) {
		case float64:
			return int64(v)
		case string:
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				return id
			}
		}
	}
	return 0
}
