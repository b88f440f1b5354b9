// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xhalrpc

import (
	"fmt"
	"reflect"
)

// errorKey and typeKey are the reply message keys a Register-generated
// handler writes on failure, and a Call-generated client reads back, to
// propagate a server-side error across the wire. They are distinct from the
// positional "0", "1", ... keys dispensed by Serializer/Deserializer.
const (
	errorKey = ".error"
	typeKey  = ".type"
)

// A MessageFault reports a failure of the transport or message framing
// itself: a connection could not be made, a reply could not be decoded, or
// the peer reported a malformed request. It carries no information about
// the remote procedure's own behavior.
type MessageFault struct {
	Op  string
	Err error
}

func (e *MessageFault) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("rpc transport fault: %v", e.Err)
	}
	return fmt.Sprintf("rpc transport fault: %s: %v", e.Op, e.Err)
}

func (e *MessageFault) Unwrap() error { return e.Err }

// A RemoteFault reports that a remote procedure call reached the server's
// handler but failed there: the arguments could not be decoded, the
// server-side Method.Call returned an error or panicked, or the result could
// not be encoded. Type, if
// non-empty, is the Go type name of the error value on the server, recorded
// the same way the predecessor recorded a demangled C++ exception type
// name; Message is the formatted reply produced by remoteMessage.
type RemoteFault struct {
	Type    string
	Message string
}

func (e *RemoteFault) Error() string { return e.Message }

// A LocalFault reports that a call could not even be attempted because a
// precondition the client is responsible for was not met (for example, the
// client was not connected, or an argument failed local validation). It
// never reaches the wire.
type LocalFault struct {
	Reason string
}

func (e *LocalFault) Error() string { return e.Reason }

// typeName reports the Go type name of err's dynamic type, for recording in
// a reply's <abi>.type key. This plays the role of setExceptionType's
// abi::__cxa_demangle step in the system this framework replaces: Go type
// names are already in human-readable form, so no demangling is required.
func typeName(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// remoteMessage formats a RemoteFault's display message, reproducing
// readExceptionMessage's "remote error: <type>: <message>" /
// "remote error: <message>" convention exactly.
func remoteMessage(typ, msg string) string {
	if typ == "" {
		return "remote error: " + msg
	}
	return "remote error: " + typ + ": " + msg
}
