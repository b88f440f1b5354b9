// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xhalrpc

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"slices"
)

// encodeValue and decodeValue implement the generic "anything serializable"
// path that Serializer.save/Deserializer.load played in the system this
// module replaces: a handful of built-in scalar and container shapes,
// struct field recursion (the Go analogue of left-to-right tuple
// recursion), and a final fallback to the Codec/Decodable hook for
// user-defined types. A Go type that matches none of these — and does not
// implement Codec/Decodable — cannot be used as a Method Args or result
// type; the reflect.Value path below returns an error for it, and since
// Args/R are fixed at the Call/Register call site, that error is the
// closest Go equivalent of a build failure for an unsupported type.

func encodeValue(s *Serializer, v any) error {
	switch t := v.(type) {
	case Void:
		s.WriteVoid(t)
		return nil
	case uint32:
		s.WriteWord(t)
		return nil
	case string:
		s.WriteString(t)
		return nil
	case []uint32:
		s.WriteWordArray(t)
		return nil
	case []string:
		s.WriteStringArray(t)
		return nil
	case []byte:
		s.WriteFixedBytes(t)
		return nil
	case Codec:
		return WriteCodec(s, t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Struct:
		for i := range rv.NumField() {
			if err := encodeValue(s, rv.Field(i).Interface()); err != nil {
				return fmt.Errorf("field %s: %w", rv.Type().Field(i).Name, err)
			}
		}
		return nil
	case reflect.Array:
		return encodeFixedArray(s, rv)
	case reflect.Map:
		return encodeMap(s, rv)
	case reflect.String:
		// A defined type over string (e.g. type MonitorTable string) has
		// the same wire shape as string itself; only the exact-type fast
		// path above misses it, not the underlying encoding.
		s.WriteString(rv.String())
		return nil
	case reflect.Uint32:
		// Likewise for a defined type over uint32.
		s.WriteWord(uint32(rv.Uint()))
		return nil
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
}

func decodeValue[T any](d *Deserializer) (T, error) {
	var zero T
	v, err := decodeInto(d, reflect.TypeOf(zero))
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

func decodeInto(d *Deserializer, t reflect.Type) (reflect.Value, error) {
	switch t {
	case reflect.TypeOf(Void{}):
		v, _ := d.ReadVoid()
		return reflect.ValueOf(v), nil
	case reflect.TypeOf(uint32(0)):
		v, err := d.ReadWord()
		return reflect.ValueOf(v), err
	case reflect.TypeOf(""):
		v, err := d.ReadString()
		return reflect.ValueOf(v), err
	case reflect.TypeOf([]uint32(nil)):
		v, err := d.ReadWordArray()
		return reflect.ValueOf(v), err
	case reflect.TypeOf([]string(nil)):
		v, err := d.ReadStringArray()
		return reflect.ValueOf(v), err
	case reflect.TypeOf([]byte(nil)):
		// Variable-length byte buffers have no fixed expected size on this
		// path; use ReadCodec/ReadFixedBytes directly when a length is known.
		return reflect.Value{}, fmt.Errorf("[]byte requires a known length; use ReadFixedBytes directly")
	}

	if t.Implements(reflect.TypeOf((*Decodable)(nil)).Elem()) {
		ptr := reflect.New(t.Elem())
		if err := ReadCodec(d, ptr.Interface().(Decodable)); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}
	if reflect.PointerTo(t).Implements(reflect.TypeOf((*Decodable)(nil)).Elem()) {
		ptr := reflect.New(t)
		if err := ReadCodec(d, ptr.Interface().(Decodable)); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}

	switch t.Kind() {
	case reflect.Struct:
		out := reflect.New(t).Elem()
		for i := range t.NumField() {
			fv, err := decodeInto(d, t.Field(i).Type)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("field %s: %w", t.Field(i).Name, err)
			}
			out.Field(i).Set(fv)
		}
		return out, nil
	case reflect.Array:
		return decodeFixedArray(d, t)
	case reflect.Map:
		return decodeMap(d, t)
	case reflect.String:
		// A defined type over string (e.g. type MonitorTable string); the
		// exact-type switch above only matches the bare string type.
		v, err := d.ReadString()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v).Convert(t), nil
	case reflect.Uint32:
		// Likewise for a defined type over uint32.
		v, err := d.ReadWord()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v).Convert(t), nil
	default:
		return reflect.Value{}, fmt.Errorf("unsupported type %s", t)
	}
}

// fixedArrayWidth reports the per-element byte width used when flattening a
// fixed-size array of an integral kind into a binary cell, matching the
// sizeof(T) in the array-of-integral save/load rule this mirrors.
func fixedArrayWidth(k reflect.Kind) (int, bool) {
	switch k {
	case reflect.Uint8, reflect.Int8:
		return 1, true
	case reflect.Uint16, reflect.Int16:
		return 2, true
	case reflect.Uint32, reflect.Int32:
		return 4, true
	case reflect.Uint64, reflect.Int64:
		return 8, true
	default:
		return 0, false
	}
}

func encodeFixedArray(s *Serializer, rv reflect.Value) error {
	width, ok := fixedArrayWidth(rv.Type().Elem().Kind())
	if !ok {
		return fmt.Errorf("unsupported fixed-array element type %s", rv.Type().Elem())
	}
	buf := make([]byte, 0, rv.Len()*width)
	for i := range rv.Len() {
		elem := rv.Index(i)
		var tmp [8]byte
		if elem.CanInt() {
			binary.LittleEndian.PutUint64(tmp[:], uint64(elem.Int()))
		} else {
			binary.LittleEndian.PutUint64(tmp[:], elem.Uint())
		}
		buf = append(buf, tmp[:width]...)
	}
	s.WriteFixedBytes(buf)
	return nil
}

func decodeFixedArray(d *Deserializer, t reflect.Type) (reflect.Value, error) {
	width, ok := fixedArrayWidth(t.Elem().Kind())
	if !ok {
		return reflect.Value{}, fmt.Errorf("unsupported fixed-array element type %s", t.Elem())
	}
	buf, err := d.ReadFixedBytes(t.Len() * width)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(t).Elem()
	for i := range t.Len() {
		var tmp [8]byte
		copy(tmp[:width], buf[i*width:(i+1)*width])
		v := binary.LittleEndian.Uint64(tmp[:])
		elem := out.Index(i)
		if elem.CanInt() {
			elem.SetInt(int64(v))
		} else {
			elem.SetUint(v)
		}
	}
	return out, nil
}

func encodeMap(s *Serializer, rv reflect.Value) error {
	kt := rv.Type().Key()
	switch kt.Kind() {
	case reflect.Uint32:
		keys := make([]uint32, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			keys = append(keys, uint32(iter.Key().Uint()))
		}
		slices.Sort(keys)
		keysKey := s.key()
		for _, k := range keys {
			v := rv.MapIndex(reflect.ValueOf(k).Convert(kt))
			if err := encodeValue(s, v.Interface()); err != nil {
				return fmt.Errorf("map value for key %d: %w", k, err)
			}
		}
		s.msg.SetWordArray(keysKey, keys)
		return nil
	case reflect.String:
		keys := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			keys = append(keys, iter.Key().String())
		}
		slices.Sort(keys)
		keysKey := s.key()
		for _, k := range keys {
			v := rv.MapIndex(reflect.ValueOf(k).Convert(kt))
			if err := encodeValue(s, v.Interface()); err != nil {
				return fmt.Errorf("map value for key %q: %w", k, err)
			}
		}
		s.msg.SetStringArray(keysKey, keys)
		return nil
	default:
		return fmt.Errorf("unsupported map key type %s", kt)
	}
}

func decodeMap(d *Deserializer, t reflect.Type) (reflect.Value, error) {
	kt := t.Key()
	out := reflect.MakeMap(t)
	switch kt.Kind() {
	case reflect.Uint32:
		keys, err := d.msg.GetWordArray(d.key())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map keys: %w", err)
		}
		for _, k := range keys {
			v, err := decodeInto(d, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("map value for key %d: %w", k, err)
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(kt), v)
		}
		return out, nil
	case reflect.String:
		keys, err := d.msg.GetStringArray(d.key())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map keys: %w", err)
		}
		for _, k := range keys {
			v, err := decodeInto(d, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("map value for key %q: %w", k, err)
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(kt), v)
		}
		return out, nil
	default:
		return reflect.Value{}, fmt.Errorf("unsupported map key type %s", kt)
	}
}
