// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/gem-daq/xhalrpc/message"
)

// A Peer drives one Channel on behalf of either role in a connection: as a
// Conn, it performs synchronous CallMethod round trips; as a server, its
// Serve loop reads requests and dispatches them to a Loader. A given Peer
// plays exactly one of these roles for the lifetime of a Channel, matching
// the single suspension point per side that this module's concurrency model
// requires — there is never more than one request in flight on a Channel at
// a time.
type Peer struct {
	ch     Channel
	loader *Loader

	mu sync.Mutex // serializes CallMethod; only one in-flight request per Channel
}

// NewConn wraps ch as a client-role Peer. The returned Peer implements Conn.
func NewConn(ch Channel) *Peer { return &Peer{ch: ch} }

// NewServer wraps ch as a server-role Peer dispatching to loader.
func NewServer(ch Channel, loader *Loader) *Peer { return &Peer{ch: ch, loader: loader} }

// CallMethod sends req and waits for the single matching reply. It is the
// Conn half of Peer's contract; ctx is honored only insofar as the
// underlying Channel respects cancellation (the in-memory and byte-stream
// Channels in this package do not, matching the blocking, uninterruptible
// call semantics of the system this module replaces).
func (p *Peer) CallMethod(ctx context.Context, req *message.Message) (*message.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.ch.Send(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	reply, err := p.ch.Recv()
	if err != nil {
		return nil, fmt.Errorf("receive reply: %w", err)
	}
	return reply, nil
}

// Serve runs the server receive loop: it reads one request at a time from
// the Channel, dispatches it to the installed Loader, and sends back the
// handler's reply, until Recv reports an error (including the Channel being
// closed) or ctx is done. Serve is the server side's single suspension
// point; it never dispatches two requests concurrently.
func (p *Peer) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, err := p.ch.Recv()
		if err != nil {
			return err
		}

		var reply *message.Message
		if h, ok := p.loader.Lookup(req.Name()); ok {
			reply = h(ctx, req)
		} else {
			reply = noSuchMethod(req.Name())
		}

		if err := p.ch.Send(reply); err != nil {
			return err
		}
	}
}

var _ Conn = (*Peer)(nil)
