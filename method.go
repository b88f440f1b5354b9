// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xhalrpc

import (
	"context"
	"reflect"
)

// A Method is the sole declaration of one remotely callable procedure.
// Args names the procedure's positional arguments as a struct of value
// types, serialized field by field in declaration order; R is the result
// type, or Void for a procedure with no result.
//
// A Method implementation's Call method is the one and only source of truth
// for the procedure's behavior on the server, and for its argument/result
// shape on both the client and the server: Call is never actually invoked
// by the client, only its type is consulted (by Name, via reflection), so
// client-side Method values exist purely to pin the Args/R type pair at the
// Call/Register call site.
type Method[Args, R any] interface {
	Call(ctx context.Context, args Args) (R, error)
}

// Void is the result type for a Method that produces no value. The
// Serializer and Deserializer treat Void specially: writing or reading a
// Void value consumes no keys.
type Void struct{}

// Name reports the wire identity of the Method implementation M: the
// procedure name used, together with ABIVersion, to address requests and
// responses for M. It is derived from M's package path and type name, the
// Go analogue of the Itanium-mangled typeid(Method).name() this framework's
// predecessor relied on for the same purpose.
func Name[M any]() string {
	var zero M
	t := reflect.TypeOf(zero)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		// M is an interface type with no underlying concrete type recorded;
		// this only happens if the caller instantiates Name with a bare
		// Method[...] interface rather than a concrete declaration.
		return "<nil>"
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// WireName reports the fully qualified wire name for the Method
// implementation M, namely ABIVersion + "." + Name[M]().
func WireName[M any]() string {
	return ABIVersion + "." + Name[M]()
}
