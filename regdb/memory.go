// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package regdb

import "bytes"

// MemoryConfig is the set of key/value pairs a NewMemoryOpener serves. It is
// a stand-in for a real memory-mapped register table, sufficient for tests
// that exercise Guard acquisition and release without a real database file.
type MemoryConfig map[string][]byte

// NewMemoryOpener returns an Opener that ignores Config entirely and always
// serves the same in-memory contents. It is not a general-purpose database
// backend: it exists to let regdb and its clients be tested without a real
// mmap-backed register database, which this package does not implement
// (the register database is treated as an external collaborator).
func NewMemoryOpener(contents MemoryConfig) Opener {
	return func(Config) (Environment, error) {
		return &memEnv{contents: contents}, nil
	}
}

type memEnv struct {
	contents MemoryConfig
}

func (e *memEnv) Begin() (Txn, error) { return &memTxn{env: e}, nil }
func (e *memEnv) Close() error        { return nil }

type memTxn struct {
	env *memEnv
}

func (t *memTxn) Table() (Table, error) { return &memTable{contents: t.env.contents}, nil }
func (t *memTxn) Discard()              {}

type memTable struct {
	contents MemoryConfig
}

func (t *memTable) Get(key []byte) ([]byte, bool, error) {
	for k, v := range t.contents {
		if bytes.Equal([]byte(k), key) {
			return v, true, nil
		}
	}
	return nil, false, nil
}
