// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package wire

import (
	"fmt"
	"io"

	"github.com/gem-daq/xhalrpc/message"
)

// Cell kind tags used on the wire. These are deliberately distinct from
// message.Kind values so the two packages can evolve independently; message
// is the in-memory contract, these are the bytes.
const (
	tagWord byte = 1 + iota
	tagString
	tagWordArray
	tagStringArray
	tagBinary
)

// EncodeMessage appends the binary encoding of msg to b.
//
// The frame layout is: a Vint30-prefixed name, a Vint30 cell count, then for
// each cell a Vint30-prefixed key, a one-byte kind tag, and a kind-specific
// payload (a Vint30-prefixed string or buffer, a fixed-width word, or a
// Vint30-prefixed array of either). This is not specified by anything this
// module is modeled on; the pinned transport defines its own bytes. It
// exists purely so Channel implementations in this module have a concrete
// format to move message.Message values over.
func EncodeMessage(b *Builder, msg *message.Message) error {
	b.VPutString(msg.Name())
	keys := msg.Keys()
	b.Vint30(uint32(len(keys)))
	for _, key := range keys {
		b.VPutString(key)
		if err := encodeCell(b, msg, key); err != nil {
			return err
		}
	}
	return nil
}

func encodeCell(b *Builder, msg *message.Message, key string) error {
	if v, err := msg.GetWord(key); err == nil {
		b.Put(tagWord)
		b.Uint32(v)
		return nil
	}
	if v, err := msg.GetString(key); err == nil {
		b.Put(tagString)
		b.VPutString(v)
		return nil
	}
	if v, err := msg.GetWordArray(key); err == nil {
		b.Put(tagWordArray)
		b.Vint30(uint32(len(v)))
		for _, w := range v {
			b.Uint32(w)
		}
		return nil
	}
	if v, err := msg.GetStringArray(key); err == nil {
		b.Put(tagStringArray)
		b.Vint30(uint32(len(v)))
		for _, s := range v {
			b.VPutString(s)
		}
		return nil
	}
	if v, err := msg.GetBinary(key, -1); err == nil {
		b.Put(tagBinary)
		b.VPut(v)
		return nil
	}
	return fmt.Errorf("message: key %q has no recognized cell value", key)
}

// DecodeMessage parses a message frame from the head of s, as produced by
// EncodeMessage.
func DecodeMessage(s *Scanner) (*message.Message, error) {
	name, err := VGetString(s)
	if err != nil {
		return nil, fmt.Errorf("decode message name: %w", err)
	}
	n, err := s.Vint30()
	if err != nil {
		return nil, fmt.Errorf("decode cell count: %w", err)
	}
	msg := message.New(name)
	for range n {
		key, err := VGetString(s)
		if err != nil {
			return nil, fmt.Errorf("decode cell key: %w", err)
		}
		tag, err := s.Byte()
		if err != nil {
			return nil, fmt.Errorf("decode cell tag for %q: %w", key, err)
		}
		if err := decodeCell(s, msg, key, tag); err != nil {
			return nil, fmt.Errorf("decode cell %q: %w", key, err)
		}
	}
	return msg, nil
}

func decodeCell(s *Scanner, msg *message.Message, key string, tag byte) error {
	switch tag {
	case tagWord:
		v, err := s.Uint32()
		if err != nil {
			return err
		}
		msg.SetWord(key, v)
	case tagString:
		v, err := VGetString(s)
		if err != nil {
			return err
		}
		msg.SetString(key, v)
	case tagWordArray:
		n, err := s.Vint30()
		if err != nil {
			return err
		}
		vs := make([]uint32, n)
		for i := range vs {
			vs[i], err = s.Uint32()
			if err != nil {
				return err
			}
		}
		msg.SetWordArray(key, vs)
	case tagStringArray:
		n, err := s.Vint30()
		if err != nil {
			return err
		}
		vs := make([]string, n)
		for i := range vs {
			vs[i], err = VGetString(s)
			if err != nil {
				return err
			}
		}
		msg.SetStringArray(key, vs)
	case tagBinary:
		v, err := VGet(s)
		if err != nil {
			return err
		}
		msg.SetBinary(key, v)
	default:
		return fmt.Errorf("unknown cell tag %d", tag)
	}
	return nil
}

// ReadMessage reads exactly one length-prefixed message frame from r: a
// Vint30 byte length followed by that many bytes of frame data, as written
// by WriteMessage. It returns io.EOF only if no bytes of the length prefix
// could be read at all.
func ReadMessage(r io.Reader) (*message.Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:1]); err != nil {
		return nil, err
	}
	nb := int(lenBuf[0]%4) + 1
	if nb > 1 {
		if _, err := io.ReadFull(r, lenBuf[1:nb]); err != nil {
			return nil, fmt.Errorf("read frame length: %w", err)
		}
	}
	s := NewScanner(lenBuf[:nb])
	size, err := s.Vint30()
	if err != nil {
		return nil, fmt.Errorf("decode frame length: %w", err)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return DecodeMessage(NewScanner(body))
}

// WriteMessage writes msg to w as a length-prefixed frame readable by
// ReadMessage.
func WriteMessage(w io.Writer, msg *message.Message) error {
	var body Builder
	if err := EncodeMessage(&body, msg); err != nil {
		return err
	}
	var head Builder
	head.Vint30(uint32(body.Len()))
	if _, err := w.Write(head.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}
