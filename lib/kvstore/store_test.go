// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// storeFactories returns one constructor per backend that can run
// without external services. Redis joins when WEBCHAT_TEST_REDIS_ADDR
// is set.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	factories := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"file": func(t *testing.T) Store {
			store, err := OpenFile(filepath.Join(t.TempDir(), "nested", "state.cbor"))
			if err != nil {
				t.Fatalf("OpenFile: %v", err)
			}
			return store
		},
		"sqlite": func(t *testing.T) Store {
			store, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"), nil)
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			return store
		},
	}
	if addr := os.Getenv("WEBCHAT_TEST_REDIS_ADDR"); addr != "" {
		factories["redis"] = func(t *testing.T) Store {
			store, err := OpenRedis(context.Background(), RedisConfig{
				Addr:   addr,
				Prefix: "webchat-test:" + t.Name() + ":",
			})
			if err != nil {
				t.Fatalf("OpenRedis: %v", err)
			}
			return store
		}
	}
	return factories
}

func TestStoreConformance(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			t.Cleanup(func() { store.Close() })

			if _, ok, err := store.Get(ctx, "talia-webchat-session"); err != nil || ok {
				t.Fatalf("Get on empty store = ok %v, err %v", ok, err)
			}
			if err := store.Set(ctx, "talia-webchat-session", "sess-1"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := store.Set(ctx, "talia-webchat-session", "sess-2"); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			value, ok, err := store.Get(ctx, "talia-webchat-session")
			if err != nil || !ok || value != "sess-2" {
				t.Fatalf("Get = %q, %v, %v; want sess-2", value, ok, err)
			}
			if err := store.Delete(ctx, "talia-webchat-session"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := store.Delete(ctx, "talia-webchat-session"); err != nil {
				t.Fatalf("Delete of absent key: %v", err)
			}
			if _, ok, _ := store.Get(ctx, "talia-webchat-session"); ok {
				t.Error("key still present after Delete")
			}
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.cbor")

	first, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := first.Set(ctx, "session", "sess-durable"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	value, ok, err := second.Get(ctx, "session")
	if err != nil || !ok || value != "sess-durable" {
		t.Fatalf("Get after reopen = %q, %v, %v", value, ok, err)
	}

	matches, _ := filepath.Glob(path + ".tmp-*")
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.cbor")
	if err := os.WriteFile(path, []byte{0xff, 0x00, 0x13}, 0o600); err != nil {
		t.Fatal(err)
	}
	store, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	_, _, err = store.Get(context.Background(), "session")
	var storeErr *Error
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if storeErr.Backend != "file" || storeErr.Op != "get" {
		t.Errorf("unexpected error fields: %+v", storeErr)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "default memory", config: Config{}},
		{name: "file", config: Config{Driver: DriverFile, Path: filepath.Join(t.TempDir(), "a.cbor")}},
		{name: "sqlite", config: Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "a.db")}},
		{name: "file without path", config: Config{Driver: DriverFile}, wantErr: true},
		{name: "redis without address", config: Config{Driver: DriverRedis}, wantErr: true},
		{name: "unknown driver", config: Config{Driver: "etcd"}, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store, err := Open(ctx, test.config, nil)
			if test.wantErr {
				if err == nil {
					store.Close()
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			store.Close()
		})
	}
}
