// Package activitylog keeps the rolling per-category logs (admin toasts,
// staff messages, pings, TTS and SFX messages) in the key/value store.
//
// Each category is one JSON array. Appending loads it, pushes the entry and
// keeps the last N entries, N being the category's size setting clamped to
// 1..200. A corrupt array is logged and treated as empty.
package activitylog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/ftlext/kvstore"
	"github.com/hazyhaar/ftlext/settings"
)

// Category names a log.
type Category string

const (
	Admin    Category = "admin"
	Staff    Category = "staff"
	Mentions Category = "mentions"
	TTS      Category = "tts"
	SFX      Category = "sfx"
)

// Categories lists every category in display order.
var Categories = []Category{Admin, Staff, Mentions, TTS, SFX}

type meta struct {
	title      string
	storageKey string
	sizeKey    string
	orderKey   string
	disableKey string
}

var metas = map[Category]meta{
	Admin:    {"Admin Messages", kvstore.AdminLogKey, "logAdminMessagesNumber", "logAdminMessagesOrderAsc", "disableAdminMessageLogging"},
	Staff:    {"Staff Messages", kvstore.StaffLogKey, "logStaffMessagesNumber", "logStaffMessagesOrderAsc", "disableStaffMessageLogging"},
	Mentions: {"Pings", kvstore.PingsLogKey, "logPingsNumber", "logPingsOrderAsc", "disablePingsLogging"},
	TTS:      {"TTS", kvstore.TTSLogKey, "logTtsNumber", "logTtsOrderAsc", "disableTtsLogging"},
	SFX:      {"SFX", kvstore.SFXLogKey, "logSfxNumber", "logSfxOrderAsc", "disableSfxLogging"},
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := metas[c]; !ok {
		return "", fmt.Errorf("activitylog: unknown category %q", s)
	}
	return c, nil
}

// Title returns the display title of c.
func (c Category) Title() string { return metas[c].title }

// Entry is one logged item. Which fields are set depends on the category.
type Entry struct {
	ID        string `json:"id,omitempty"`
	Header    string `json:"header,omitempty"`
	Message   string `json:"message,omitempty"`
	HTML      string `json:"html,omitempty"`
	From      string `json:"from,omitempty"`
	Room      string `json:"room,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Time returns the entry timestamp.
func (e Entry) Time() time.Time { return time.UnixMilli(e.Timestamp) }

// Log reads and writes the category arrays.
type Log struct {
	store    kvstore.Store
	settings *settings.Settings
	logger   *slog.Logger
	policy   *bluemonday.Policy
	now      func() time.Time

	mu sync.Mutex
}

// Option configures a Log.
type Option func(*Log)

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option { return func(l *Log) { l.now = now } }

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option { return func(l *Log) { l.logger = logger } }

// New creates a Log.
func New(store kvstore.Store, st *settings.Settings, opts ...Option) *Log {
	l := &Log{
		store:    store,
		settings: st,
		logger:   slog.Default(),
		policy:   bluemonday.UGCPolicy(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Enabled reports whether logging of c is switched on.
func (l *Log) Enabled(c Category) bool {
	return !l.settings.Bool(metas[c].disableKey)
}

// Load returns the stored entries of c, oldest first.
func (l *Log) Load(ctx context.Context, c Category) []Entry {
	m, ok := metas[c]
	if !ok {
		return nil
	}
	raw, found, err := l.store.GetItem(ctx, m.storageKey)
	if err != nil {
		l.logger.Warn("activitylog: read failed", "category", c, "error", err)
		return []Entry{}
	}
	if !found || raw == "" {
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		l.logger.Warn("activitylog: failed to parse saved log", "category", c, "error", err)
		return []Entry{}
	}
	return entries
}

// Append stamps e, sanitises its markup and adds it to c.
func (l *Log) Append(ctx context.Context, c Category, e Entry) error {
	m, ok := metas[c]
	if !ok {
		return fmt.Errorf("activitylog: unknown category %q", c)
	}
	if e.Timestamp == 0 {
		e.Timestamp = l.now().UnixMilli()
	}
	e.HTML = l.policy.Sanitize(e.HTML)
	e.Message = l.policy.Sanitize(e.Message)
	e.Header = l.policy.Sanitize(e.Header)

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := append(l.Load(ctx, c), e)
	if limit := l.settings.Clamp(m.sizeKey); len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	blob, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("activitylog: encode %s: %w", c, err)
	}
	if err := l.store.SetItem(ctx, m.storageKey, string(blob)); err != nil {
		return fmt.Errorf("activitylog: save %s: %w", c, err)
	}
	return nil
}

// Clear deletes every entry of c.
func (l *Log) Clear(ctx context.Context, c Category) error {
	m, ok := metas[c]
	if !ok {
		return fmt.Errorf("activitylog: unknown category %q", c)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.RemoveItem(ctx, m.storageKey); err != nil {
		return fmt.Errorf("activitylog: clear %s: %w", c, err)
	}
	return nil
}

// Entries returns the entries of c in the display order chosen by the
// category's order setting: newest first unless ascending is set.
func (l *Log) Entries(ctx context.Context, c Category) []Entry {
	entries := l.Load(ctx, c)
	if l.settings.Bool(metas[c].orderKey) {
		return entries
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}
