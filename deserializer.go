// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xhalrpc

import (
	"fmt"
	"strconv"

	"github.com/gem-daq/xhalrpc/message"
)

// A Deserializer unpacks a sequence of values from a *message.Message, one
// value per call, dispensing the same successive decimal-string keys a
// matching Serializer produced them under. It never modifies the underlying
// message.
type Deserializer struct {
	msg  *message.Message
	next uint32
}

// NewDeserializer returns a Deserializer that unpacks values from msg.
func NewDeserializer(msg *message.Message) *Deserializer { return &Deserializer{msg: msg} }

func (d *Deserializer) key() string {
	k := strconv.FormatUint(uint64(d.next), 10)
	d.next++
	return k
}

// ReadWord retrieves the next unsigned 32-bit integer.
func (d *Deserializer) ReadWord() (uint32, error) { return d.msg.GetWord(d.key()) }

// ReadString retrieves the next string.
func (d *Deserializer) ReadString() (string, error) { return d.msg.GetString(d.key()) }

// ReadWordArray retrieves the next sequence of unsigned 32-bit integers.
func (d *Deserializer) ReadWordArray() ([]uint32, error) { return d.msg.GetWordArray(d.key()) }

// ReadStringArray retrieves the next sequence of strings.
func (d *Deserializer) ReadStringArray() ([]string, error) { return d.msg.GetStringArray(d.key()) }

// ReadFixedBytes retrieves the next fixed-length byte buffer. n is the
// expected length, part of the wire contract between client and server.
func (d *Deserializer) ReadFixedBytes(n int) ([]byte, error) { return d.msg.GetBinary(d.key(), n) }

// ReadVoid reads nothing and returns the unit value, matching
// void_holder<void>'s empty load.
func (d *Deserializer) ReadVoid() (Void, error) { return Void{}, nil }

// ReadWordMap retrieves a map[uint32]V previously written by WriteWordMap:
// a word array of keys, followed by one value per key in array order.
func ReadWordMap[V any](d *Deserializer, read func(*Deserializer) (V, error)) (map[uint32]V, error) {
	keys, err := d.msg.GetWordArray(d.key())
	if err != nil {
		return nil, fmt.Errorf("read map keys: %w", err)
	}
	out := make(map[uint32]V, len(keys))
	for _, k := range keys {
		v, err := read(d)
		if err != nil {
			return nil, fmt.Errorf("read map value for key %d: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// ReadStringMap retrieves a map[string]V previously written by
// WriteStringMap, following the same key-array-then-values convention.
func ReadStringMap[V any](d *Deserializer, read func(*Deserializer) (V, error)) (map[string]V, error) {
	keys, err := d.msg.GetStringArray(d.key())
	if err != nil {
		return nil, fmt.Errorf("read map keys: %w", err)
	}
	out := make(map[string]V, len(keys))
	for _, k := range keys {
		v, err := read(d)
		if err != nil {
			return nil, fmt.Errorf("read map value for key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// A Decodable is the Deserializer-side counterpart of Codec: a
// user-defined type that decodes itself from a Deserializer. Typically
// implemented on a pointer receiver so DecodeFrom can populate the value.
type Decodable interface {
	DecodeFrom(d *Deserializer) error
}

// ReadCodec delegates to v's own DecodeFrom method.
func ReadCodec(d *Deserializer, v Decodable) error {
	if err := v.DecodeFrom(d); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
