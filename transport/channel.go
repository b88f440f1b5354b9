// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package transport

import (
	"bufio"
	"io"
	"net"

	"github.com/gem-daq/xhalrpc/message"
	"github.com/gem-daq/xhalrpc/wire"
)

// Direct constructs a connected pair of in-memory channels that pass
// messages directly without encoding into binary. Messages sent to A are
// received by B and vice versa. It is intended for tests and for
// same-process client/server wiring.
func Direct() (A, B Channel) {
	a2b := make(chan *message.Message)
	b2a := make(chan *message.Message)
	A = direct{send: a2b, recv: b2a}
	B = direct{send: b2a, recv: a2b}
	return
}

type direct struct {
	send chan<- *message.Message
	recv <-chan *message.Message
}

func (d direct) Send(msg *message.Message) (err error) {
	defer safeClose(&err)
	d.send <- msg
	return nil
}

func (d direct) Recv() (*message.Message, error) {
	msg, ok := <-d.recv
	if !ok {
		return nil, net.ErrClosed
	}
	return msg, nil
}

func (d direct) Close() (err error) {
	defer safeClose(&err)
	close(d.send)
	return nil
}

func safeClose(err *error) {
	if x := recover(); x != nil && *err == nil {
		*err = net.ErrClosed
	}
}

// IO constructs a Channel that reads frames from r and writes frames to wc,
// using the framing defined by package wire. This is the stand-in for the
// byte-stream side of the pinned transport (e.g. a Unix domain socket to an
// embedded controller).
func IO(r io.Reader, wc io.WriteCloser) Channel {
	return ioChannel{r: bufio.NewReader(r), w: bufio.NewWriter(wc), c: wc}
}

type ioChannel struct {
	r *bufio.Reader
	w *bufio.Writer
	c io.Closer
}

func (c ioChannel) Send(msg *message.Message) error {
	if err := wire.WriteMessage(c.w, msg); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c ioChannel) Recv() (*message.Message, error) {
	return wire.ReadMessage(c.r)
}

func (c ioChannel) Close() error { return c.c.Close() }
