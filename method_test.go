// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xhalrpc_test

import (
	"context"
	"testing"

	"github.com/gem-daq/xhalrpc"
)

type pingMethod struct{}

func (pingMethod) Call(context.Context, xhalrpc.Void) (xhalrpc.Void, error) {
	return xhalrpc.Void{}, nil
}

// TestName_stable verifies that repeated calls to Name (and WireName) for
// the same declaration produce the identical string, the Go analogue of two
// peers compiled with the same ABI agreeing on a mangled typeid name.
func TestName_stable(t *testing.T) {
	n1 := xhalrpc.Name[pingMethod]()
	n2 := xhalrpc.Name[pingMethod]()
	if n1 != n2 {
		t.Errorf("Name: got %q and %q on repeated calls, want identical", n1, n2)
	}
	if n1 == "" {
		t.Error("Name: got empty string")
	}

	want := xhalrpc.ABIVersion + "." + n1
	if got := xhalrpc.WireName[pingMethod](); got != want {
		t.Errorf("WireName: got %q, want %q", got, want)
	}
}

// TestName_distinguishesTypes verifies that two distinct Method
// declarations never collide on a wire name.
func TestName_distinguishesTypes(t *testing.T) {
	type otherMethod struct{ pingMethod }
	if xhalrpc.Name[pingMethod]() == xhalrpc.Name[otherMethod]() {
		t.Error("Name: distinct declarations produced the same wire name")
	}
}
