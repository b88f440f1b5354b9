// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package handler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fortytw2/leaktest"

	"github.com/gem-daq/xhalrpc"
	"github.com/gem-daq/xhalrpc/handler"
	"github.com/gem-daq/xhalrpc/message"
	"github.com/gem-daq/xhalrpc/transport"
)

type addArgs struct{ X, Y uint32 }

func TestRegister_success(t *testing.T) {
	defer leaktest.Check(t)()

	loader := transport.NewLoader()
	handler.Register(loader, "v1.add", func(_ context.Context, args addArgs) (uint32, error) {
		return args.X + args.Y, nil
	})

	h, ok := loader.Lookup("v1.add")
	if !ok {
		t.Fatal("Lookup(v1.add): not found")
	}

	req := message.New("v1.add")
	ser := xhalrpc.NewSerializer(req)
	ser.WriteWord(2)
	ser.WriteWord(3)

	reply := h(context.Background(), req)
	if reply.Has(xhalrpc.ABIVersion + ".error") {
		msg, _ := reply.GetString(xhalrpc.ABIVersion + ".error")
		t.Fatalf("handler reported an error: %s", msg)
	}
	got, err := reply.GetWord("0")
	if err != nil {
		t.Fatalf("GetWord(0): unexpected error: %v", err)
	}
	if got != 5 {
		t.Errorf("result: got %d, want 5", got)
	}
}

func TestRegister_errorSetsReplyKeys(t *testing.T) {
	defer leaktest.Check(t)()

	loader := transport.NewLoader()
	handler.Register(loader, "v1.boom", func(context.Context, addArgs) (uint32, error) {
		return 0, errors.New("boom")
	})
	h, _ := loader.Lookup("v1.boom")

	req := message.New("v1.boom")
	ser := xhalrpc.NewSerializer(req)
	ser.WriteWord(1)
	ser.WriteWord(1)

	reply := h(context.Background(), req)
	msg, err := reply.GetString(xhalrpc.ABIVersion + ".error")
	if err != nil {
		t.Fatalf("GetString(<abi>.error): unexpected error: %v", err)
	}
	if msg != "boom" {
		t.Errorf("<abi>.error: got %q, want %q", msg, "boom")
	}
}

func TestFunc_usableOverTransport(t *testing.T) {
	defer leaktest.Check(t)()

	loader := transport.NewLoader()
	loader.Handle("v1.double", handler.Func(func(_ context.Context, x uint32) (uint32, error) {
		return x * 2, nil
	}))

	a, b := transport.Direct()
	client := transport.NewConn(a)
	server := transport.NewServer(b, loader)
	done := make(chan struct{})
	go func() {
		defer close(done)
		server.Serve(context.Background())
	}()
	defer func() { a.Close(); <-done }()

	req := message.New("v1.double")
	xhalrpc.NewSerializer(req).WriteWord(21)
	reply, err := client.CallMethod(context.Background(), req)
	if err != nil {
		t.Fatalf("CallMethod: unexpected error: %v", err)
	}
	got, err := reply.GetWord("0")
	if err != nil {
		t.Fatalf("GetWord(0): unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("result: got %d, want 42", got)
	}
}
