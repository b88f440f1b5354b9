// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package handler adapts plain Go functions to transport.Handler, for
// procedures that do not warrant declaring a full named xhalrpc.Method type
// — for instance, ones registered dynamically under a name that is not a
// Go type's name. It plays the same role chirp/handler plays for chirp.Handler:
// the type-driven path (xhalrpc.Register, chirp's typed RPC declarations)
// remains the primary mechanism, and this package is the escape hatch.
package handler

import (
	"context"

	"github.com/gem-daq/xhalrpc"
	"github.com/gem-daq/xhalrpc/transport"
)

// funcMethod adapts a plain function to the xhalrpc.Method interface so it
// can be run through the same invoke path xhalrpc.Register uses.
type funcMethod[Args, R any] func(context.Context, Args) (R, error)

func (f funcMethod[Args, R]) Call(ctx context.Context, args Args) (R, error) { return f(ctx, args) }

// Func adapts f to a transport.Handler, using the same argument/result
// marshaling xhalrpc.Register's generated dispatcher uses.
func Func[Args, R any](f func(context.Context, Args) (R, error)) transport.Handler {
	return xhalrpc.HandlerFor[Args, R](funcMethod[Args, R](f))
}

// Register installs Func(f) into loader under name. Unlike xhalrpc.Register,
// name is supplied directly rather than derived from a Method type's Go type
// name; callers are responsible for including the ABI tag themselves (see
// xhalrpc.WireName) if they want the same "<abi>.<name>" convention.
func Register[Args, R any](loader *transport.Loader, name string, f func(context.Context, Args) (R, error)) {
	loader.Handle(name, Func[Args, R](f))
}
