// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package regdb provides reference-counted, scoped access to a read-only
// embedded register database: an Environment opened once and shared by
// every live Guard, torn down automatically when the last Guard releases
// it. This mirrors xhal's LMDBGuard; unlike LMDBGuard, a Pool serializes
// Acquire, Release and the Guard accessors with its own mutex.
//
// The actual database backend (the memory-mapped B-tree reader) is an
// external, pinned collaborator from this module's point of view: regdb
// only fixes the Environment/Txn/Table contract a backend must satisfy, and
// ships one in-memory stand-in (NewMemoryOpener with a MemoryConfig) sufficient for
// tests.
package regdb

import (
	"fmt"
	"math"
	"os"
	"sync"
)

// An Environment is an opened handle onto the register database. It is the
// pinned collaborator Guard acquires and shares across every live guard.
type Environment interface {
	// Begin opens a read-only transaction against the environment.
	Begin() (Txn, error)
	// Close releases the environment's resources.
	Close() error
}

// A Txn is a read-only transaction against an Environment.
type Txn interface {
	// Table returns the default table (LMDB's unnamed database) within the
	// transaction.
	Table() (Table, error)
	// Discard ends the transaction. Read-only transactions never commit.
	Discard()
}

// A Table is a read-only key/value register table.
type Table interface {
	// Get retrieves the value stored under key, reporting ok=false if no
	// such key exists.
	Get(key []byte) (value []byte, ok bool, err error)
}

// Config names how to open an Environment. DefaultConfig reads it the same
// way xhal/server/LMDB.cpp did: from $GEM_PATH/address_table.mdb, with a
// fixed 50 MiB map size.
type Config struct {
	// Path is the filesystem path of the database file. DefaultConfig sets
	// it from $GEM_PATH; a Pool passes it to its Opener unchanged, so an
	// empty Path is not filled in.
	Path string
	// MapSize bounds the size of the memory-mapped region. DefaultConfig
	// sets it to 50 MiB; a Pool passes it to its Opener unchanged.
	MapSize int64
}

const (
	gemPathVar     = "GEM_PATH"
	dbFileName     = "/address_table.mdb"
	defaultMapSize = 50 * 1024 * 1024
)

// DefaultConfig resolves the default Config from the environment, failing
// if $GEM_PATH is not set — the same precondition create_env() enforced.
func DefaultConfig() (Config, error) {
	path := os.Getenv(gemPathVar)
	if path == "" {
		return Config{}, fmt.Errorf("regdb: environment variable %s is not defined", gemPathVar)
	}
	return Config{Path: path + dbFileName, MapSize: defaultMapSize}, nil
}

// Opener constructs an Environment for a Config. Production callers supply
// a real memory-mapped backend; tests use NewMemoryOpener.
type Opener func(Config) (Environment, error)

// shared holds the Environment and Txn/Table acquired by the first live
// Guard, exactly as the C++ Singleton did — "order is important": the
// transaction and table must be torn down before the environment is
// closed.
type shared struct {
	env Environment
	txn Txn
	tbl Table
}

func newShared(open Opener, cfg Config) (*shared, error) {
	env, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("regdb: open environment: %w", err)
	}
	txn, err := env.Begin()
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("regdb: begin transaction: %w", err)
	}
	tbl, err := txn.Table()
	if err != nil {
		txn.Discard()
		env.Close()
		return nil, fmt.Errorf("regdb: open table: %w", err)
	}
	return &shared{env: env, txn: txn, tbl: tbl}, nil
}

func (s *shared) close() {
	s.txn.Discard()
	s.env.Close()
}

// A Guard is a scoped, reference-counted handle on the shared register
// database state. The guard pattern mirrors xhal's LMDBGuard: the first
// live Guard opens the environment/transaction/table, and the last live
// Guard to be released closes them.
//
// Unlike LMDBGuard, acquisition always produces a usable Guard or an error;
// there is no analogue of the original's bug where the first guard's
// constructor default-constructed a null singleton pointer instead of
// actually opening the environment (xhal/src/server/LMDB.cpp:
// "SINGLETON = std::unique_ptr<Singleton>()" left SINGLETON null rather
// than calling make_unique<Singleton>()). Here, Acquire always calls the
// Opener on first acquisition.
//
// Acquire, Release, Table and Env all take the owning Pool's mutex, so
// guards from one Pool may be acquired and released from several
// goroutines. Release must still be called exactly once per Guard.
type Guard struct {
	pool *Pool
}

// A Pool owns the shared Environment/Txn/Table and the reference count of
// live Guards over it. It plays the role the anonymous-namespace SINGLETON
// and GUARD_COUNT globals played in the original: one Pool per database,
// shared by every Guard acquired from it.
type Pool struct {
	mu    sync.Mutex
	open  Opener
	cfg   Config
	count uint32
	data  *shared
}

// NewPool constructs a Pool that opens its Environment via open with cfg,
// on demand, when the first Guard is acquired.
func NewPool(open Opener, cfg Config) *Pool {
	return &Pool{open: open, cfg: cfg}
}

// Acquire returns a new Guard on p's shared database state, opening it if
// no other Guard is currently live.
func (p *Pool) Acquire() (*Guard, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count == 0 || p.data == nil {
		data, err := newShared(p.open, p.cfg)
		if err != nil {
			return nil, err
		}
		p.data = data
		p.count = 1
	} else if p.count == math.MaxUint32 {
		return nil, fmt.Errorf("regdb: out of guard handles")
	} else {
		p.count++
	}
	return &Guard{pool: p}, nil
}

// Release returns g's reference on the shared database state. The shared
// Environment is closed when the last live Guard is released. Release must
// be called exactly once per Guard.
func (g *Guard) Release() {
	p := g.pool
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count > 0 {
		p.count--
	}
	if p.count == 0 && p.data != nil {
		p.data.close()
		p.data = nil
	}
}

// Table returns the shared read-only Table, valid for as long as g has not
// been released.
func (g *Guard) Table() Table {
	g.pool.mu.Lock()
	defer g.pool.mu.Unlock()
	return g.pool.data.tbl
}

// Env returns the shared Environment, valid for as long as g has not been
// released.
func (g *Guard) Env() Environment {
	g.pool.mu.Lock()
	defer g.pool.mu.Unlock()
	return g.pool.data.env
}
