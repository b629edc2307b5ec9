package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cockroachdb/pebble"

	"saveit/pkg/logger"
	"saveit/pkg/models"
)

var db *pebble.DB
var dbPath string

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = pebble.ErrNotFound

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// ItemKey builds the canonical key for a saved item.
// Key format: saved:<ownerID>:item:<itemID>
func ItemKey(ownerID int64, itemID string) string {
	return "saved:" + strconv.FormatInt(ownerID, 10) + ":item:" + itemID
}

func ownerPrefix(ownerID int64) []byte {
	return []byte("saved:" + strconv.FormatInt(ownerID, 10) + ":item:")
}

// SaveItem writes the raw item document under the owner's namespace. The
// value is stored as received from the companion bot; normalization happens
// on read.
func SaveItem(ownerID int64, itemID string, raw []byte) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if itemID == "" {
		return fmt.Errorf("item id required")
	}
	if !likelyJSON(raw) {
		return fmt.Errorf("item document must be a JSON object")
	}
	key := ItemKey(ownerID, itemID)
	if err := db.Set([]byte(key), raw, pebble.Sync); err != nil {
		storeErrors.WithLabelValues("save").Inc()
		logger.Error("save_item_failed", "owner", ownerID, "key", key, "error", err)
		return err
	}
	storeWrites.Inc()
	logger.Info("item_saved", "owner", ownerID, "item", itemID)
	return nil
}

// GetItem loads a single item and returns its normalized form.
func GetItem(ownerID int64, itemID string) (models.SavedItem, error) {
	if db == nil {
		return models.SavedItem{}, fmt.Errorf("pebble not opened; call store.Open first")
	}
	key := ItemKey(ownerID, itemID)
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		if err != pebble.ErrNotFound {
			storeErrors.WithLabelValues("get").Inc()
			logger.Error("get_item_failed", "key", key, "error", err)
		}
		return models.SavedItem{}, err
	}
	raw := append([]byte(nil), v...)
	if closer != nil {
		closer.Close()
	}
	storeReads.Inc()
	return models.FromRaw(ownerID, itemID, raw)
}

// GetRawItem returns the stored document bytes without normalization.
func GetRawItem(ownerID int64, itemID string) ([]byte, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get([]byte(ItemKey(ownerID, itemID)))
	if err != nil {
		return nil, err
	}
	raw := append([]byte(nil), v...)
	if closer != nil {
		closer.Close()
	}
	return raw, nil
}

// ListItems returns all of an owner's items in key order, normalized.
// Documents that fail to parse are skipped with a warning rather than
// failing the whole listing.
func ListItems(ownerID int64) ([]models.SavedItem, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := ownerPrefix(ownerID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.SavedItem
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		itemID := string(iter.Key()[len(prefix):])
		raw := append([]byte(nil), iter.Value()...)
		it, perr := models.FromRaw(ownerID, itemID, raw)
		if perr != nil {
			storeErrors.WithLabelValues("parse").Inc()
			logger.Warn("skip_malformed_item", "owner", ownerID, "item", itemID, "error", perr)
			continue
		}
		out = append(out, it)
	}
	storeReads.Add(float64(len(out)))
	return out, iter.Error()
}

// DeleteItem removes an item. Deleting a missing item returns ErrNotFound.
func DeleteItem(ownerID int64, itemID string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	key := []byte(ItemKey(ownerID, itemID))
	if _, closer, err := db.Get(key); err != nil {
		return err
	} else if closer != nil {
		closer.Close()
	}
	if err := db.Delete(key, pebble.Sync); err != nil {
		storeErrors.WithLabelValues("delete").Inc()
		logger.Error("delete_item_failed", "owner", ownerID, "item", itemID, "error", err)
		return err
	}
	storeDeletes.Inc()
	logger.Info("item_deleted", "owner", ownerID, "item", itemID)
	return nil
}

// ListDueReminders scans every owner's items and returns those whose
// remindAt falls in (0, beforeMs]. The reminder sweeper uses this.
func ListDueReminders(beforeMs int64) ([]models.SavedItem, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte("saved:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.SavedItem
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		k := iter.Key()
		if !bytes.HasPrefix(k, prefix) {
			break
		}
		owner, itemID, ok := splitItemKey(string(k))
		if !ok {
			continue
		}
		raw := append([]byte(nil), iter.Value()...)
		it, perr := models.FromRaw(owner, itemID, raw)
		if perr != nil {
			continue
		}
		if it.RemindAtMs > 0 && it.RemindAtMs <= beforeMs {
			out = append(out, it)
		}
	}
	return out, iter.Error()
}

// ClearReminder removes the remindAt field from a stored document so a
// delivered reminder does not fire again.
func ClearReminder(ownerID int64, itemID string) error {
	raw, err := GetRawItem(ownerID, itemID)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid item JSON: %w", err)
	}
	delete(doc, "remindAt")
	nb, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return db.Set([]byte(ItemKey(ownerID, itemID)), nb, pebble.Sync)
}

// splitItemKey parses "saved:<owner>:item:<id>" and returns its parts.
func splitItemKey(key string) (int64, string, bool) {
	const p = "saved:"
	if len(key) <= len(p) || key[:len(p)] != p {
		return 0, "", false
	}
	rest := key[len(p):]
	i := 0
	for i < len(rest) && rest[i] != ':' {
		i++
	}
	owner, err := strconv.ParseInt(rest[:i], 10, 64)
	if err != nil {
		return 0, "", false
	}
	const mid = ":item:"
	if len(rest) < i+len(mid) || rest[i:i+len(mid)] != mid {
		return 0, "", false
	}
	id := rest[i+len(mid):]
	if id == "" {
		return 0, "", false
	}
	return owner, id, true
}

// ListKeys returns all keys (as strings) that start with the given prefix.
// If prefix is empty it returns all keys in the DB.
func ListKeys(prefix string) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	pfx := []byte(prefix)
	if len(pfx) == 0 {
		for iter.First(); iter.Valid(); iter.Next() {
			out = append(out, string(append([]byte(nil), iter.Key()...)))
		}
		return out, iter.Error()
	}
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		out = append(out, string(append([]byte(nil), iter.Key()...)))
	}
	return out, iter.Error()
}

// likelyJSON heuristically checks whether b starts a JSON object or array.
func likelyJSON(b []byte) bool {
	for _, c := range b {
		if c == ' ' || c == '\n' || c == '\r' || c == '\t' {
			continue
		}
		return c == '{' || c == '['
	}
	return false
}
