// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xhalrpc

import (
	"context"
	"fmt"

	"github.com/gem-daq/xhalrpc/message"
	"github.com/gem-daq/xhalrpc/transport"
)

// Call invokes the remote procedure declared by the Method implementation M
// over conn, with the given arguments, and returns its result.
//
// M is never actually invoked; only its type identity (via Name) is
// consulted, to build the wire name both peers agree on and to pin Args and
// R at the call site. This is the compile-time realization of "calling a
// local function as if it were remote is rejected at build time": a type
// argument that does not implement Method[Args, R] fails to satisfy the
// constraint below.
func Call[Args, R any, M Method[Args, R]](ctx context.Context, conn transport.Conn, args Args) (R, error) {
	var zero R

	req := message.New(WireName[M]())
	ser := NewSerializer(req)
	if err := writeArgs(ser, args); err != nil {
		return zero, &LocalFault{Reason: fmt.Sprintf("encode arguments: %v", err)}
	}

	reply, err := conn.CallMethod(ctx, req)
	if err != nil {
		return zero, &MessageFault{Op: "call " + req.Name(), Err: err}
	}

	if msg, err := reply.GetString("rpcerror"); err == nil {
		return zero, &MessageFault{Op: "call " + req.Name(), Err: fmt.Errorf("%s", msg)}
	}
	if errMsg, err := reply.GetString(ABIVersion + errorKey); err == nil {
		typ, _ := reply.GetString(ABIVersion + typeKey)
		return zero, &RemoteFault{Type: typ, Message: remoteMessage(typ, errMsg)}
	}

	de := NewDeserializer(reply)
	result, err := readResult[R](de)
	if err != nil {
		return zero, &MessageFault{Op: "call " + req.Name(), Err: fmt.Errorf("decode result: %w", err)}
	}
	return result, nil
}

// writeArgs serializes args field by field, in struct declaration order,
// matching the tuple-recursion rule of the serializer this module's wire
// format is modeled on. Args is expected to be a struct type; a Void Args
// (for a no-argument procedure) writes nothing.
func writeArgs[Args any](s *Serializer, args Args) error {
	return encodeValue(s, args)
}

// readResult unpacks a single R value, applying the Void special case.
func readResult[R any](d *Deserializer) (R, error) {
	var zero R
	if _, ok := any(zero).(Void); ok {
		v, _ := d.ReadVoid()
		return any(v).(R), nil
	}
	return decodeValue[R](d)
}
