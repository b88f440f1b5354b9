// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package peertest provides support code for wiring up connected peers in
// tests, the way github.com/creachadair/chirp/peers does for chirp.Peer.
package peertest

import (
	"context"
	"errors"
	"net"

	"github.com/gem-daq/xhalrpc/transport"
)

// Local is a connected client/server pair over an in-memory channel,
// suitable for exercising xhalrpc.Call/Register without a real transport.
type Local struct {
	// Conn is the client-facing half of the connection; pass it as the
	// conn argument to xhalrpc.Call.
	Conn transport.Conn

	// Loader is the server-facing registration target; pass it as the
	// loader argument to xhalrpc.Register before issuing any Call.
	Loader *transport.Loader

	server *transport.Peer
	client transport.Channel
	done   chan error
}

// NewLocal creates a connected client/server pair wired over a direct,
// in-memory transport.Channel. The returned Local's server loop is already
// running in a goroutine; call Stop to shut it down.
func NewLocal() *Local {
	a, b := transport.Direct()
	loader := transport.NewLoader()
	l := &Local{
		Conn:   transport.NewConn(a),
		Loader: loader,
		server: transport.NewServer(b, loader),
		client: a,
		done:   make(chan error, 1),
	}
	go func() { l.done <- l.server.Serve(context.Background()) }()
	return l
}

// Stop closes the client side of the connection and waits for the server
// loop to exit. It reports nil when the server loop ended because the
// connection was closed, and otherwise the error that ended it. Stop is safe
// to call more than once.
func (l *Local) Stop() error {
	if l.client == nil {
		return nil
	}
	l.client.Close()
	err := <-l.done
	l.client = nil
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
