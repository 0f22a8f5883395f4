// Package kvstore is the per-profile key/value storage the extension keeps
// its settings and logs in. It has the shape of the browser's localStorage:
// string keys, string values, last write wins.
package kvstore

import (
	"context"
	"sort"
	"sync"
)

// Storage keys used by this module.
const (
	SettingsKey = "ftl-ext-plugin-settings"
	AdminLogKey = "ftl-ext-admin-message-log"
	StaffLogKey = "ftl-ext-staff-message-log"
	PingsLogKey = "ftl-ext-pings-log"
	TTSLogKey   = "ftl-ext-tts-log"
	SFXLogKey   = "ftl-ext-sfx-log"
)

// Store is a string key/value store.
type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Memory is an in-process Store.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

func (s *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Memory) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Memory) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *Memory) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
