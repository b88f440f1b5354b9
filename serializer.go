// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xhalrpc

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/gem-daq/xhalrpc/message"
)

// A Codec lets a user-defined type take over its own wire representation,
// the Go analogue of the non-intrusive serialize(msg, T&) overload the
// predecessor dispatched to when no built-in save/load rule matched. Types
// that do not implement Codec, and are not one of the built-in scalar,
// array, or map shapes below, cannot be used as Method arguments or
// results. Such a type is not rejected at build time: encoding or decoding
// it fails at run time with an "unsupported type" error.
type Codec interface {
	EncodeTo(s *Serializer) error
}

// A Serializer packs a sequence of values into a *message.Message, one
// value per call, dispensing successive decimal-string keys ("0", "1", ...)
// exactly as dispenseKey()/std::to_string did in the system this replaces.
type Serializer struct {
	msg  *message.Message
	next uint32
}

// NewSerializer returns a Serializer that packs values into msg.
func NewSerializer(msg *message.Message) *Serializer { return &Serializer{msg: msg} }

func (s *Serializer) key() string {
	k := strconv.FormatUint(uint64(s.next), 10)
	s.next++
	return k
}

// WriteWord appends an unsigned 32-bit integer.
func (s *Serializer) WriteWord(v uint32) { s.msg.SetWord(s.key(), v) }

// WriteString appends a string.
func (s *Serializer) WriteString(v string) { s.msg.SetString(s.key(), v) }

// WriteWordArray appends a sequence of unsigned 32-bit integers.
func (s *Serializer) WriteWordArray(v []uint32) { s.msg.SetWordArray(s.key(), v) }

// WriteStringArray appends a sequence of strings.
func (s *Serializer) WriteStringArray(v []string) { s.msg.SetStringArray(s.key(), v) }

// WriteFixedBytes appends a fixed-length byte buffer, the analogue of
// std::array<T, N> for a non-bool integral T: the length is part of the
// wire contract between client and server, not re-derived at decode time.
func (s *Serializer) WriteFixedBytes(v []byte) { s.msg.SetBinary(s.key(), v) }

// WriteVoid writes nothing, matching void_holder<void>'s empty save.
func (s *Serializer) WriteVoid(Void) {}

// WriteWordMap appends a map[uint32]V. The key set is written first as a
// word array, sorted ascending (the mapping's native ordering for a
// word-keyed map), then each value is written via write, in the same
// sorted order as the key array.
func WriteWordMap[V any](s *Serializer, v map[uint32]V, write func(*Serializer, V)) {
	keys := make([]uint32, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	keysKey := s.key()
	for _, k := range keys {
		write(s, v[k])
	}
	s.msg.SetWordArray(keysKey, keys)
}

// WriteStringMap appends a map[string]V, following the same two-phase
// key-array-then-values convention as WriteWordMap, with keys sorted
// lexicographically before writing.
func WriteStringMap[V any](s *Serializer, v map[string]V, write func(*Serializer, V)) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	keysKey := s.key()
	for _, k := range keys {
		write(s, v[k])
	}
	s.msg.SetStringArray(keysKey, keys)
}

// WriteCodec delegates to v's own EncodeTo method.
func WriteCodec(s *Serializer, v Codec) error {
	if err := v.EncodeTo(s); err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	return nil
}
