// Package deeplink computes the best available link for re-opening a saved
// item inside Telegram, with a defined fallback order: explicit pre-resolved
// links win over structured chat/message coordinates, which win over loose
// URL guesses.
package deeplink

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"saveit/pkg/models"
)

// Via says which opener the Mini App should use for a resolved link.
const (
	// ViaTelegram routes through the bridge's openTelegramLink, keeping
	// navigation inside the host app.
	ViaTelegram = "telegram"
	// ViaExternal routes through the generic openLink / a new browser tab.
	ViaExternal = "external"
)

const (
	ActionOpened = "opened"
	ActionFailed = "failed"
)

// ReasonNoStableLink explains the expected failure branch: Telegram issues
// no stable link for messages in private one-to-one chats, and the item
// carried no usable link field.
const ReasonNoStableLink = "channel/group items need a direct link or a negative chatId with a messageId; " +
	"Telegram issues no stable link for private chat messages"

// ReasonNoBridge is returned when the viewer runs outside Telegram and the
// item has no plain URL to fall back to.
const ReasonNoBridge = "open the app inside Telegram"

// Outcome is the result of resolving one item. Failure is an expected,
// frequent branch and is reported, never raised.
type Outcome struct {
	Action string `json:"action"`
	URL    string `json:"url,omitempty"`
	Via    string `json:"via,omitempty"`
	// FallbackURL is a second-chance link the opener may try if URL fails
	// (set for private-chat custom-scheme links only).
	FallbackURL string `json:"fallback_url,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

var (
	reWebLink  = regexp.MustCompile(`(?i)^https?://t\.me/`)
	reHTTP     = regexp.MustCompile(`(?i)^https?://`)
	reTgScheme = regexp.MustCompile(`(?i)^tg://`)
)

// Resolve picks the link for item. bridge reports whether the Telegram
// bridge is present; without it the only option is opening a plain URL in a
// new browser context.
func Resolve(item models.SavedItem, bridge bool) Outcome {
	if !bridge {
		candidate := strings.TrimSpace(item.DirectLinkURL)
		if candidate == "" {
			candidate = strings.TrimSpace(item.RawURL)
		}
		if candidate != "" {
			return Outcome{Action: ActionOpened, URL: candidate, Via: ViaExternal}
		}
		return Outcome{Action: ActionFailed, Reason: ReasonNoBridge}
	}

	// 1. explicit pre-resolved link
	if direct := strings.TrimSpace(item.DirectLinkURL); direct != "" {
		web := ToWebURL(direct)
		if web == "" {
			web = direct
		}
		return Outcome{Action: ActionOpened, URL: web, Via: ViaTelegram}
	}

	// 2. structured chat/message coordinates
	if ref := item.ChatRef; ref != nil {
		if ref.ChatID < 0 {
			link := fmt.Sprintf("https://t.me/c/%s/%d", internalChatID(fmt.Sprintf("%d", ref.ChatID)), ref.MessageID)
			return Outcome{Action: ActionOpened, URL: link, Via: ViaTelegram}
		}
		// private chat: no web form exists; try the custom-scheme post link,
		// falling back to addressing the user alone
		deep := fmt.Sprintf("tg://privatepost?chat=%d&post=%d", ref.ChatID, ref.MessageID)
		fb := fmt.Sprintf("tg://user?id=%d", ref.ChatID)
		return Outcome{Action: ActionOpened, URL: deep, Via: ViaExternal, FallbackURL: fb}
	}

	// 3. loose URL guess
	if raw := strings.TrimSpace(item.RawURL); raw != "" {
		if web := ToWebURL(raw); web != "" {
			return Outcome{Action: ActionOpened, URL: web, Via: ViaTelegram}
		}
		if reHTTP.MatchString(raw) || reTgScheme.MatchString(raw) {
			return Outcome{Action: ActionOpened, URL: raw, Via: ViaExternal}
		}
	}

	return Outcome{Action: ActionFailed, Reason: ReasonNoStableLink}
}

// ToWebURL converts a Telegram link into its public https://t.me web form.
// It returns "" when the input is neither a t.me link nor a convertible
// tg:// link.
func ToWebURL(link string) string {
	if reWebLink.MatchString(link) {
		// normalize the scheme only
		if strings.HasPrefix(strings.ToLower(link), "http://") {
			return "https://" + link[len("http://"):]
		}
		return link
	}
	if !reTgScheme.MatchString(link) {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	q := u.Query()
	switch strings.ToLower(u.Host) {
	case "resolve":
		// tg://resolve?domain=<name>&post=<n> — named channel/post reference
		domain := q.Get("domain")
		post := q.Get("post")
		if post == "" {
			post = q.Get("message")
		}
		if domain != "" && post != "" {
			return fmt.Sprintf("https://t.me/%s/%s", domain, post)
		}
	case "privatepost":
		// tg://privatepost?chat=<id>&post=<n> — private channel/post
		// reference; chat needs the internal-id transform
		chat := q.Get("chat")
		post := q.Get("post")
		if chat != "" && post != "" {
			return fmt.Sprintf("https://t.me/c/%s/%s", internalChatID(chat), post)
		}
	}
	return ""
}

// internalChatID strips the sign and the fixed "100" supergroup prefix from
// a chat id, yielding the short form t.me/c/ links use.
func internalChatID(chatID string) string {
	raw := strings.TrimPrefix(chatID, "-")
	if strings.HasPrefix(raw, "100") {
		return raw[3:]
	}
	return raw
}
