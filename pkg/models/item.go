package models

import (
	"encoding/json"
	"fmt"
	"time"

	"saveit/pkg/timestamp"
)

// Category is the user-facing classification of a saved item. The set is
// closed; anything unrecognized resolves to CategoryNote before the item is
// displayed or filtered.
type Category string

const (
	CategoryIdea      Category = "idea"
	CategoryTask      Category = "task"
	CategoryKnowledge Category = "knowledge"
	CategoryNote      Category = "note"
	CategoryBookmark  Category = "bookmark"
	CategoryQuote     Category = "quote"
	CategoryStudy     Category = "study"
	CategoryFun       Category = "fun"
)

// FilterAll is the filter selector that passes every category.
const FilterAll = "all"

// Categories lists the closed category set in display order.
var Categories = []Category{
	CategoryIdea, CategoryTask, CategoryKnowledge, CategoryNote,
	CategoryBookmark, CategoryQuote, CategoryStudy, CategoryFun,
}

// ResolveCategory maps an arbitrary stored value onto the closed set.
func ResolveCategory(s string) Category {
	for _, c := range Categories {
		if string(c) == s {
			return c
		}
	}
	return CategoryNote
}

// ValidFilter reports whether s is "all" or a member of the category set.
func ValidFilter(s string) bool {
	if s == FilterAll {
		return true
	}
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// MediaKind describes the attachment on the originating chat message.
// Display-only; it never affects filtering.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaVoice    MediaKind = "voice"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
	MediaSticker  MediaKind = "sticker"
	MediaLink     MediaKind = "link"
	MediaOther    MediaKind = "other"
)

var mediaKinds = map[string]MediaKind{
	"photo": MediaPhoto, "video": MediaVideo, "voice": MediaVoice,
	"audio": MediaAudio, "document": MediaDocument, "sticker": MediaSticker,
	"link": MediaLink, "other": MediaOther,
}

// ResolveMediaKind maps a stored media descriptor onto the known set,
// defaulting to MediaOther.
func ResolveMediaKind(s string) MediaKind {
	if k, ok := mediaKinds[s]; ok {
		return k
	}
	return MediaOther
}

// ChatRef identifies the origin message in Telegram. ChatID is signed:
// negative ids are channels/groups, non-negative ids are private chats.
type ChatRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// SavedItem is the canonical, post-normalization shape of one collected
// record. The raw store record is untyped; FromRaw is the only place that
// reads it.
type SavedItem struct {
	ID            string    `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	Category      Category  `json:"category"`
	MediaKind     MediaKind `json:"media_kind,omitempty"`
	Title         string    `json:"title,omitempty"`
	Body          string    `json:"body,omitempty"`
	CreatedAtMs   int64     `json:"created_at_ms"`
	ChatRef       *ChatRef  `json:"chat_ref,omitempty"`
	DirectLinkURL string    `json:"direct_link_url,omitempty"`
	RawURL        string    `json:"raw_url,omitempty"`
	RemindAtMs    int64     `json:"remind_at_ms,omitempty"`
}

// Counts maps category names (plus "all") to item counts for badge display.
type Counts map[string]int

// CountByCategory derives the per-category count map, including the "all"
// total, from an item sequence.
func CountByCategory(items []SavedItem) Counts {
	c := Counts{FilterAll: len(items)}
	for _, it := range items {
		c[string(it.Category)]++
	}
	return c
}

// FromRaw maps one raw bot-written store record into a SavedItem. It is the
// single point of schema trust: fields are copied explicitly with defaults
// and unrecognized fields are discarded. It never fails on bad field values,
// only on JSON that is not an object.
func FromRaw(ownerID int64, itemID string, raw []byte) (SavedItem, error) {
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return SavedItem{}, fmt.Errorf("invalid stored record %q: %w", itemID, err)
	}

	it := SavedItem{
		ID:            itemID,
		OwnerID:       ownerID,
		Category:      ResolveCategory(str(rec["category"])),
		Title:         str(rec["title"]),
		DirectLinkURL: str(rec["openTelegramUrl"]),
		RawURL:        str(rec["url"]),
	}

	// media kind: the bot writes either "type" or "mediaType"
	mk := str(rec["type"])
	if mk == "" {
		mk = str(rec["mediaType"])
	}
	it.MediaKind = ResolveMediaKind(mk)

	// body: textual content, falling back to the raw URL
	it.Body = str(rec["content"])
	if it.Body == "" {
		it.Body = it.RawURL
	}

	// creation instant: two historical field spellings; a record with no
	// creation field at all gets "now", a present-but-unparseable value
	// degrades to the 0 sentinel
	created, ok := rec["createdAt"]
	if !ok {
		created, ok = rec["created_at"]
	}
	if ok {
		it.CreatedAtMs = timestamp.Normalize(created)
	} else {
		it.CreatedAtMs = time.Now().UnixMilli()
	}

	if v, ok := rec["remindAt"]; ok {
		it.RemindAtMs = timestamp.Normalize(v)
	}

	// chat reference only when both coordinates are present
	chatID, okChat := num(rec["chatId"])
	msgID, okMsg := num(rec["messageId"])
	if okChat && okMsg {
		it.ChatRef = &ChatRef{ChatID: chatID, MessageID: msgID}
	}

	return it, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	}
	return 0, false
}
