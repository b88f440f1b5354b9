// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package methods declares a handful of illustrative remote procedures for
// the GEM detector front-end register and monitoring surface, grounded on
// xhalcore's amc/sca RPC handlers and xhal's DaqMonitor client. They exist
// to demonstrate Method declarations end to end; a real deployment would
// declare one Method type per procedure exposed by the board firmware.
package methods

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gem-daq/xhalrpc/regdb"
)

// errNoHardware reports that a Method's server-side behavior is not backed
// by real board hardware in this module: the slow-control and DAQ-monitor
// handlers talk to firmware this process does not have access to, so the
// Method only declares the wire shape a real deployment's handler would
// fill in.
func errNoHardware(method string) error {
	return fmt.Errorf("methods.%s: no hardware backend wired into this process", method)
}

// A ReadRegisterArgs names a single register read by its address table
// path, e.g. "GEM_AMC.OH.OH0.GBT0".
type ReadRegisterArgs struct {
	Name string
}

// ReadRegister reads the named register's current value out of a register
// database Guard, the Go realization of what the board firmware's
// equivalent RPC handler would do with an LMDBGuard: acquire the shared
// table, look up the register's address table entry, and return its value.
//
// ReadRegister holds a pointer to its Guard so that Register's generated
// handler calls the same live Guard on every invocation; callers are
// expected to construct one ReadRegister per Pool.Acquire'd Guard and keep
// it registered for the Guard's lifetime.
type ReadRegister struct {
	Guard *regdb.Guard
}

func (m ReadRegister) Call(ctx context.Context, args ReadRegisterArgs) (uint32, error) {
	v, ok, err := m.Guard.Table().Get([]byte(args.Name))
	if err != nil {
		return 0, fmt.Errorf("read register %q: %w", args.Name, err)
	}
	if !ok {
		return 0, fmt.Errorf("read register %q: no such register", args.Name)
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("read register %q: stored value is %d bytes, want 4", args.Name, len(v))
	}
	return binary.LittleEndian.Uint32(v), nil
}

// ReadRegistersArgs names a batch of registers to read by raw 32-bit
// hardware address, the address-based counterpart to readReg_byaddress in
// XHALInterface_python.cpp (as opposed to ReadRegister's address-table-path
// lookup through the register database).
type ReadRegistersArgs struct {
	Addresses []uint32
}

// ReadRegisters reads every address in Addresses and returns the address to
// value mapping, the batched form of a single by-address register read.
type ReadRegisters struct{}

func (ReadRegisters) Call(ctx context.Context, args ReadRegistersArgs) (map[uint32]uint32, error) {
	return nil, errNoHardware("ReadRegisters")
}

// ReadSCAADCSensorArgs selects a single optohybrid and ADC channel,
// mirroring readSCAADCSensor's (ohMask, ch) parameters.
type ReadSCAADCSensorArgs struct {
	OHMask  uint32
	Channel uint32
}

// ReadSCAADCSensor reads one SCA ADC channel on every optohybrid selected
// by OHMask.
type ReadSCAADCSensor struct{}

func (ReadSCAADCSensor) Call(ctx context.Context, args ReadSCAADCSensorArgs) ([]uint32, error) {
	return nil, errNoHardware("ReadSCAADCSensor")
}

// ReadSCAADCTemperatureSensorsArgs selects the optohybrids to read,
// mirroring readSCAADCTemperatureSensors's ohMask parameter. Each selected
// optohybrid contributes 5 temperature readings to the result.
type ReadSCAADCTemperatureSensorsArgs struct {
	OHMask uint32
}

// ReadSCAADCTemperatureSensors reads the SCA temperature sensors on every
// optohybrid selected by OHMask.
type ReadSCAADCTemperatureSensors struct{}

func (ReadSCAADCTemperatureSensors) Call(ctx context.Context, args ReadSCAADCTemperatureSensorsArgs) ([]uint32, error) {
	return nil, errNoHardware("ReadSCAADCTemperatureSensors")
}

// MonitorTable identifies one of the board's main monitoring tables, the Go
// analogue of DaqMonitor's getmonXXXmain family.
type MonitorTable string

// The monitor tables exposed by DaqMonitor.
const (
	MonitorTableTTCMain     MonitorTable = "TTCmain"
	MonitorTableTriggerMain MonitorTable = "TRIGGERmain"
	MonitorTableTriggerOH   MonitorTable = "TRIGGEROHmain"
	MonitorTableDAQMain     MonitorTable = "DAQmain"
	MonitorTableDAQOH       MonitorTable = "DAQOHmain"
	MonitorTableOHMain      MonitorTable = "OHmain"
)

// GetMonitorTableArgs selects a monitoring table and, for the per-optohybrid
// tables, the expected number of optical links (12 in the original's
// default argument).
type GetMonitorTableArgs struct {
	Table       MonitorTable
	NumOpticalH uint32
}

// GetMonitorTable retrieves the values of one main monitoring table.
type GetMonitorTable struct{}

func (GetMonitorTable) Call(ctx context.Context, args GetMonitorTableArgs) ([]uint32, error) {
	return nil, errNoHardware("GetMonitorTable")
}
