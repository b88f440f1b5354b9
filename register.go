// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xhalrpc

import (
	"context"
	"fmt"

	"github.com/gem-daq/xhalrpc/message"
	"github.com/gem-daq/xhalrpc/transport"
)

// Register installs impl, an implementation of the Method declared by M,
// into loader under M's wire name, so that a Call[Args, R, M] made against
// a Conn connected to loader's Peer is dispatched to impl.Call.
//
// The generated handler never lets an error from impl.Call escape to its
// caller (transport.Peer.Serve): on failure it writes the <abi>.error and
// <abi>.type reply keys instead (only <abi>.error if impl.Call panics) and
// returns a complete reply message,
// matching the predecessor's invoke<Method> wrapper, which caught every
// exception so the server's dispatch loop never unwound.
func Register[Args, R any, M Method[Args, R]](loader *transport.Loader, impl M) {
	loader.Handle(WireName[M](), HandlerFor[Args, R](impl))
}

// HandlerFor returns the transport.Handler that Register would install for
// impl, without installing it into any Loader. Package handler builds its
// name-adapted dispatchers on top of this, the same way Register does.
func HandlerFor[Args, R any](impl Method[Args, R]) transport.Handler {
	return func(ctx context.Context, req *message.Message) *message.Message {
		return invoke[Args, R](ctx, req, impl)
	}
}

func invoke[Args, R any](ctx context.Context, req *message.Message, impl Method[Args, R]) (reply *message.Message) {
	reply = message.New(req.Name())
	defer func() {
		if r := recover(); r != nil {
			// A panic escaping impl.Call is reported in a fresh reply that
			// carries only the <abi>.error key, with no <abi>.type; the
			// client's Call turns it into a RemoteFault with an empty Type.
			// This does not re-panic: a single misbehaving Method must not
			// bring down the whole server loop.
			reply = message.New(req.Name())
			reply.SetString(ABIVersion+errorKey, fmt.Sprintf("panic: %v", r))
		}
	}()

	de := NewDeserializer(req)
	args, err := decodeValue[Args](de)
	if err != nil {
		setError(reply, fmt.Errorf("decode arguments: %w", err))
		return reply
	}

	result, err := impl.Call(ctx, args)
	if err != nil {
		setError(reply, err)
		return reply
	}

	ser := NewSerializer(reply)
	if err := encodeValue(ser, result); err != nil {
		setError(reply, fmt.Errorf("encode result: %w", err))
	}
	return reply
}

func setError(reply *message.Message, err error) {
	reply.SetString(ABIVersion+errorKey, err.Error())
	reply.SetString(ABIVersion+typeKey, typeName(err))
}
