// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package xhalrpc implements a type-safe RPC framework bridging a client
// process and an embedded-controller server process. Each remotely callable
// procedure is declared exactly once as a Go type implementing Method; the
// same declaration drives both client-side Call and server-side Register,
// so the two sides can never disagree about a procedure's argument or
// result shape.
//
// A procedure's wire identity is derived from its declaring Go type's
// package path and name (see Name). Both peers must therefore import the
// same package declaring a given Method implementation for their wire names
// to agree — this module does not attempt to unify type identity across
// differently-named packages, matching the pinned, typeid-derived naming
// scheme of the system this module replaces.
package xhalrpc

// ABIVersion is prefixed to every method's wire name, so that an
// incompatible future revision of this framework can coexist on the wire
// with this one without being silently misinterpreted.
const ABIVersion = "v1"
