// Package settings holds the user's preferences: a fixed schema with
// defaults, persisted as one flat JSON object in the key/value store.
//
// Set persists immediately and then runs the change hooks of the key
// synchronously. Numeric bounds are not enforced by Set; readers clamp at
// use time with Clamp, so an out-of-range value survives a reload.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/hazyhaar/ftlext/kvstore"
)

var (
	// ErrUnknownSetting is returned for keys outside the schema.
	ErrUnknownSetting = errors.New("settings: unknown setting")
	// ErrInvalidValue is returned when a value cannot be coerced to the
	// setting's kind.
	ErrInvalidValue = errors.New("settings: invalid value")
	// ErrOutOfRange is returned by Validate.
	ErrOutOfRange = errors.New("settings: out of range")
)

// Settings is the live settings object of a session.
type Settings struct {
	store  kvstore.Store
	logger *slog.Logger

	mu     sync.RWMutex
	values map[string]any
	hooks  map[string][]*hook
}

type hook struct {
	fn      func()
	removed bool
}

// Load reads the persisted blob and merges it over the schema defaults.
// Unknown persisted keys are ignored. Storage and JSON errors are logged
// and yield the defaults.
func Load(ctx context.Context, store kvstore.Store, logger *slog.Logger) *Settings {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Settings{
		store:  store,
		logger: logger,
		values: defaults(),
		hooks:  make(map[string][]*hook),
	}

	raw, ok, err := store.GetItem(ctx, kvstore.SettingsKey)
	if err != nil {
		logger.Warn("settings: read failed, using defaults", "error", err)
		return s
	}
	if !ok || raw == "" {
		return s
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.Warn("settings: failed to parse saved settings, using defaults", "error", err)
		return s
	}
	for _, d := range Schema {
		if v, ok := parsed[d.Key]; ok {
			s.values[d.Key] = v
		}
	}
	return s
}

func defaults() map[string]any {
	m := make(map[string]any, len(Schema))
	for _, d := range Schema {
		if arr, ok := d.Default.([]string); ok {
			m[d.Key] = append([]string{}, arr...)
			continue
		}
		m[d.Key] = d.Default
	}
	return m
}

// Get returns the raw value of key.
func (s *Settings) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// All returns a copy of every value.
func (s *Settings) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Bool returns a boolean setting, falling back to its default when the
// stored value has another type.
func (s *Settings) Bool(key string) bool {
	v, _ := s.Get(key)
	if b, ok := v.(bool); ok {
		return b
	}
	d, _ := Lookup(key)
	b, _ := d.Default.(bool)
	return b
}

// Number returns a numeric setting as stored, without clamping.
func (s *Settings) Number(key string) float64 {
	v, _ := s.Get(key)
	if f, ok := toFloat(v); ok {
		return f
	}
	d, _ := Lookup(key)
	f, _ := toFloat(d.Default)
	return f
}

// Clamp returns a numeric setting bounded to its schema range and rounded
// down to an integer.
func (s *Settings) Clamp(key string) int {
	f := s.Number(key)
	d, ok := Lookup(key)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f, _ = toFloat(d.Default)
	}
	if ok && d.HasRange() {
		f = math.Max(d.Min, math.Min(d.Max, f))
	}
	return int(math.Floor(f))
}

// Strings returns a text-array setting.
func (s *Settings) Strings(key string) []string {
	v, _ := s.Get(key)
	arr, err := normaliseTextArray(v)
	if err != nil {
		return nil
	}
	return arr
}

// Set stores value under key, persists the whole object and runs the key's
// change hooks.
func (s *Settings) Set(ctx context.Context, key string, value any) error {
	d, ok := Lookup(key)
	if !ok {
		s.logger.Warn("settings: tried to update unknown setting", "key", key)
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	v, err := coerce(d, value)
	if err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}

	s.mu.Lock()
	next := make(map[string]any, len(s.values)+1)
	for k, x := range s.values {
		next[k] = x
	}
	next[key] = v
	blob, err := json.Marshal(next)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("settings: encode: %w", err)
	}
	s.values = next
	hooks := append([]*hook(nil), s.hooks[key]...)
	s.mu.Unlock()

	if err := s.store.SetItem(ctx, kvstore.SettingsKey, string(blob)); err != nil {
		s.logger.Error("settings: failed to save settings", "error", err)
	}
	for _, h := range hooks {
		if !h.removed {
			h.fn()
		}
	}
	return nil
}

// OnChange registers fn to run after any of keys is set. The returned
// function unregisters it.
func (s *Settings) OnChange(fn func(), keys ...string) func() {
	h := &hook{fn: fn}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.hooks[k] = append(s.hooks[k], h)
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		h.removed = true
		for _, k := range keys {
			list := s.hooks[k]
			for i, x := range list {
				if x == h {
					s.hooks[k] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		}
	}
}

// Validate checks value against the schema of key, including its range.
func Validate(key string, value any) error {
	d, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	v, err := coerce(d, value)
	if err != nil {
		return err
	}
	if d.HasRange() {
		f := v.(float64)
		if f < d.Min || f > d.Max {
			return fmt.Errorf("%w: %s must be within %g..%g, got %g", ErrOutOfRange, key, d.Min, d.Max, f)
		}
	}
	return nil
}

func coerce(d Definition, value any) (any, error) {
	switch d.Kind {
	case Boolean, Order:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "on", "1":
				return true, nil
			case "false", "off", "0":
				return false, nil
			}
		}
		return nil, fmt.Errorf("%w: %v is not a boolean", ErrInvalidValue, value)
	case Number:
		if f, ok := toFloat(value); ok {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: %v is not a finite number", ErrInvalidValue, value)
			}
			return f, nil
		}
		return nil, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, value)
	case TextArray:
		return normaliseTextArray(value)
	}
	return value, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// normaliseTextArray accepts []string, []any of strings or a comma or
// newline separated string. Entries are trimmed and empty ones dropped.
func normaliseTextArray(v any) ([]string, error) {
	var parts []string
	switch a := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		parts = a
	case []any:
		for _, e := range a {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: array entry %v is not a string", ErrInvalidValue, e)
			}
			parts = append(parts, s)
		}
	case string:
		parts = strings.FieldsFunc(a, func(r rune) bool { return r == ',' || r == '\n' })
	default:
		return nil, fmt.Errorf("%w: %v is not a text array", ErrInvalidValue, v)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
