// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package transport provides the pinned connection abstraction that the
// client call façade and server register façade build on: a single
// synchronous request/response exchange of message.Message values, with no
// pipelining or out-of-order replies. This mirrors the predecessor's
// wisc::RPCSvc/ModuleManager collaborators, which this module treats as
// external and replaceable — only their contract (one request in flight,
// one matching reply) is fixed here.
package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/gem-daq/xhalrpc/message"
)

// A Channel carries message.Message frames between two peers. Send and Recv
// need not be safe for concurrent use by multiple goroutines; Peer
// serializes its own access to a Channel.
type Channel interface {
	Send(*message.Message) error
	Recv() (*message.Message, error)
	Close() error
}

// A Conn is the client-facing half of a connection: a single blocking
// request/response round trip. It is the pinned collaborator that the root
// package's Call function requires.
type Conn interface {
	CallMethod(ctx context.Context, req *message.Message) (*message.Message, error)
}

// A Handler answers one request message with a reply message. A Handler
// generated by Register never returns an error; it reports failures by
// setting reply keys instead, exactly as the server-side invoke wrapper in
// the system this module replaces never let a C++ exception escape across
// the RPC boundary.
type Handler func(ctx context.Context, req *message.Message) *message.Message

// A Loader maps wire names to Handlers. It is the pinned collaborator that
// the root package's Register function requires; the concrete type here
// corresponds to the ModuleManager the predecessor's registerMethod
// installed into.
type Loader struct {
	mu       sync.Mutex
	handlers map[string]Handler
}

// NewLoader constructs an empty Loader.
func NewLoader() *Loader { return &Loader{handlers: make(map[string]Handler)} }

// Handle installs h under name, replacing any handler previously installed
// under the same name.
func (l *Loader) Handle(name string, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[name] = h
}

// Lookup reports the handler installed under name, if any.
func (l *Loader) Lookup(name string) (Handler, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handlers[name]
	return h, ok
}

// noSuchMethod builds the reply a Peer sends when no handler is registered
// for a request's wire name — the "rpcerror" convention the root package's
// Call recognizes as a MessageFault.
func noSuchMethod(name string) *message.Message {
	reply := message.New(name)
	reply.SetString("rpcerror", fmt.Sprintf("no such method: %s", name))
	return reply
}
