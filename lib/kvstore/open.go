// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"fmt"
	"log/slog"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config selects and configures a backend for Open.
type Config struct {
	// Driver is one of the Driver constants. Empty means memory.
	Driver string
	// Path is the state file for the file and sqlite drivers.
	Path  string
	Redis RedisConfig
}

// Open returns the Store described by config.
func Open(ctx context.Context, config Config, logger *slog.Logger) (Store, error) {
	switch config.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		store, err := OpenFile(config.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverSQLite:
		store, err := OpenSQLite(config.Path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverRedis:
		store, err := OpenRedis(ctx, config.Redis)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("kvstore: unknown driver %q (want memory, file, sqlite, or redis)", config.Driver)
	}
}
