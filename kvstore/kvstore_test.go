package kvstore

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/ftlext/dbopen"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": NewSQLite(db),
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.GetItem(ctx, SettingsKey); err != nil || ok {
				t.Fatalf("GetItem on empty store: ok=%v err=%v", ok, err)
			}
			if err := s.SetItem(ctx, SettingsKey, `{"a":1}`); err != nil {
				t.Fatalf("SetItem: %v", err)
			}
			if err := s.SetItem(ctx, SettingsKey, `{"a":2}`); err != nil {
				t.Fatalf("SetItem overwrite: %v", err)
			}
			if err := s.SetItem(ctx, AdminLogKey, `[]`); err != nil {
				t.Fatalf("SetItem: %v", err)
			}

			v, ok, err := s.GetItem(ctx, SettingsKey)
			if err != nil || !ok || v != `{"a":2}` {
				t.Errorf("GetItem: got %q ok=%v err=%v", v, ok, err)
			}

			keys, err := s.Keys(ctx)
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if len(keys) != 2 || keys[0] != AdminLogKey || keys[1] != SettingsKey {
				t.Errorf("Keys: got %v", keys)
			}

			if err := s.RemoveItem(ctx, SettingsKey); err != nil {
				t.Fatalf("RemoveItem: %v", err)
			}
			if err := s.RemoveItem(ctx, SettingsKey); err != nil {
				t.Fatalf("RemoveItem twice: %v", err)
			}
			if _, ok, _ := s.GetItem(ctx, SettingsKey); ok {
				t.Error("item still present after RemoveItem")
			}
		})
	}
}
