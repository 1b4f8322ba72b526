// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/talia-ai/webchat/lib/codec"
)

// fileFormatVersion is written into every state file. Files with a
// newer version are refused rather than silently truncated.
const fileFormatVersion = 1

type fileRecord struct {
	Version int               `cbor:"version"`
	Values  map[string]string `cbor:"values"`
}

// FileStore keeps all values in one CBOR file. Every Set rewrites the
// file through a temporary file and rename, so a crash leaves either
// the old or the new content. Reads go to disk each time, so two
// processes sharing the file see each other's writes.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// OpenFile returns a FileStore at path, creating the parent directory.
// The file itself is created on the first Set.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, &Error{Backend: "file", Op: "open", Err: errors.New("path is required")}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, &Error{Backend: "file", Op: "open", Err: err}
	}
	return &FileStore{path: path}, nil
}

// Path returns the state file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.load()
	if err != nil {
		return "", false, &Error{Backend: "file", Op: "get", Key: key, Err: err}
	}
	value, ok := record.Values[key]
	return value, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.load()
	if err != nil {
		return &Error{Backend: "file", Op: "set", Key: key, Err: err}
	}
	record.Values[key] = value
	if err := s.save(record); err != nil {
		return &Error{Backend: "file", Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.load()
	if err != nil {
		return &Error{Backend: "file", Op: "delete", Key: key, Err: err}
	}
	if _, ok := record.Values[key]; !ok {
		return nil
	}
	delete(record.Values, key)
	if err := s.save(record); err != nil {
		return &Error{Backend: "file", Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() (fileRecord, error) {
	record := fileRecord{Version: fileFormatVersion, Values: map[string]string{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return record, nil
	}
	if err != nil {
		return record, err
	}
	if len(data) == 0 {
		return record, nil
	}
	if err := codec.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	if record.Version > fileFormatVersion {
		return record, fmt.Errorf("%s has format version %d, newer than supported %d", s.path, record.Version, fileFormatVersion)
	}
	if record.Values == nil {
		record.Values = map[string]string{}
	}
	return record, nil
}

func (s *FileStore) save(record fileRecord) error {
	record.Version = fileFormatVersion
	data, err := codec.Marshal(record)
	if err != nil {
		return err
	}
	temp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tempPath := temp.Name()
	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := temp.Sync(); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}
