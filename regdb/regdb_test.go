// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package regdb_test

import (
	"testing"

	"github.com/gem-daq/xhalrpc/regdb"
)

func TestGuard_refCounting(t *testing.T) {
	opens := 0
	opener := func(cfg regdb.Config) (regdb.Environment, error) {
		opens++
		return regdb.NewMemoryOpener(regdb.MemoryConfig{"k": []byte("v")})(cfg)
	}
	pool := regdb.NewPool(opener, regdb.Config{})

	g1, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: unexpected error: %v", err)
	}
	g2, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: unexpected error: %v", err)
	}
	if opens != 1 {
		t.Errorf("opens: got %d, want 1 (environment should be shared)", opens)
	}

	tbl := g1.Table()
	v, ok, err := tbl.Get([]byte("k"))
	if err != nil || !ok || string(v) != "v" {
		t.Errorf("Get(k): got (%q, %v, %v), want (v, true, nil)", v, ok, err)
	}

	g1.Release()
	if opens != 1 {
		t.Errorf("opens after first release: got %d, want 1", opens)
	}

	g2.Release()

	g3, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire after full release: unexpected error: %v", err)
	}
	if opens != 2 {
		t.Errorf("opens after reacquire: got %d, want 2 (a fresh environment must be opened)", opens)
	}
	g3.Release()
}

func TestGuard_opensOnFirstAcquire(t *testing.T) {
	// Regression test for the bug this module's predecessor had: the first
	// guard must actually open the environment, not merely mark one as
	// pending. If Acquire ever returns successfully without a usable Table,
	// that bug has resurfaced.
	pool := regdb.NewPool(regdb.NewMemoryOpener(regdb.MemoryConfig{"a": []byte("1")}), regdb.Config{})
	g, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: unexpected error: %v", err)
	}
	defer g.Release()

	if g.Table() == nil {
		t.Fatal("Table() returned nil after Acquire; environment was not actually opened")
	}
	if _, ok, err := g.Table().Get([]byte("a")); err != nil || !ok {
		t.Errorf("Get(a): got ok=%v, err=%v, want ok=true, err=nil", ok, err)
	}
}
