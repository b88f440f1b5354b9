// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Program xhalrpcctl is a command-line utility for packing and unpacking
// xhalrpc wire message frames, and for issuing a single raw RPC against a
// running peer, the xhalrpc analogue of chirp's own "chirp" CLI.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/creachadair/command"

	"github.com/gem-daq/xhalrpc/message"
	"github.com/gem-daq/xhalrpc/transport"
	"github.com/gem-daq/xhalrpc/wire"
)

func main() {
	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Help: "Utilities for packing, unpacking, and issuing xhalrpc wire messages.",
		Commands: []*command.C{
			{
				Name:  "pack",
				Usage: "<name> [<key>=<w|s>:<value>]...",
				Help: `Pack a message frame and write it to stdout.

Each positional argument after the message name has the form key=T:value,
where T is one of:

  w : an unsigned 32-bit word
  s : a string

For example:

  xhalrpcctl pack v1.test.Echo 0=w:3735928559
`,
				Run: func(env *command.Env) error {
					if len(env.Args) == 0 {
						return env.Usagef("missing message name")
					}
					msg, err := packMessage(env.Args[0], env.Args[1:])
					if err != nil {
						return err
					}
					return wire.WriteMessage(os.Stdout, msg)
				},
			},
			{
				Name:  "unpack",
				Usage: "",
				Help:  "Read a message frame from stdin and print its contents to stdout.",
				Run: func(env *command.Env) error {
					msg, err := wire.ReadMessage(os.Stdin)
					if err != nil {
						return err
					}
					printMessage(msg)
					return nil
				},
			},
			{
				Name:  "call",
				Usage: "<addr> <name> [<key>=<w|s>:<value>]...",
				Help: `Dial a TCP peer at addr, issue one request built as by "pack", and
print the reply.`,
				Run: func(env *command.Env) error {
					if len(env.Args) < 2 {
						return env.Usagef("missing address or message name")
					}
					conn, err := net.Dial("tcp", env.Args[0])
					if err != nil {
						return fmt.Errorf("dial %s: %w", env.Args[0], err)
					}
					defer conn.Close()

					req, err := packMessage(env.Args[1], env.Args[2:])
					if err != nil {
						return err
					}
					ch := transport.IO(conn, conn)
					peer := transport.NewConn(ch)
					reply, err := peer.CallMethod(context.Background(), req)
					if err != nil {
						return fmt.Errorf("call %s: %w", env.Args[1], err)
					}
					printMessage(reply)
					return nil
				},
			},
			command.VersionCommand(),
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}

func packMessage(name string, args []string) (*message.Message, error) {
	msg := message.New(name)
	for _, arg := range args {
		key, spec, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid argument %q: want key=type:value", arg)
		}
		typ, val, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid argument %q: want key=type:value", arg)
		}
		switch typ {
		case "w":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("key %s: invalid word %q: %w", key, val, err)
			}
			msg.SetWord(key, uint32(n))
		case "s":
			msg.SetString(key, val)
		default:
			return nil, fmt.Errorf("key %s: unknown type %q (want w or s)", key, typ)
		}
	}
	return msg, nil
}

func printMessage(msg *message.Message) {
	fmt.Printf("name: %s\n", msg.Name())
	for _, key := range msg.Keys() {
		if v, err := msg.GetWord(key); err == nil {
			fmt.Printf("  %s = word(%d)\n", key, v)
			continue
		}
		if v, err := msg.GetString(key); err == nil {
			fmt.Printf("  %s = string(%q)\n", key, v)
			continue
		}
		if v, err := msg.GetWordArray(key); err == nil {
			fmt.Printf("  %s = word-array(%v)\n", key, v)
			continue
		}
		if v, err := msg.GetStringArray(key); err == nil {
			fmt.Printf("  %s = string-array(%v)\n", key, v)
			continue
		}
		if v, err := msg.GetBinary(key, -1); err == nil {
			fmt.Printf("  %s = binary(% x)\n", key, v)
			continue
		}
	}
}
