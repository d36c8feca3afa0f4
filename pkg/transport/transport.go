// Package transport implements the length-prefixed binary protocol
// spec.md §6 assigns to an external collaborator: filling the kernel's
// state variable map and ejecting commands. It owns no reasoning; its
// only duties are framing, dictionary bookkeeping and byte-level
// decode/encode.
//
// Grounded on original_source/src/interfaces/tcp_interface.rs, adapted
// away from that file's protobuf (prost) payload schema to a plain
// length-prefixed binary record: no repository in the retrieval pack
// pulls in a protobuf toolchain for a from-scratch socket transport, and
// the teacher itself reaches only for encoding/binary
// (pkg/minikanren/tabling.go), so this stays stdlib net + encoding/binary
// (see DESIGN.md).
package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gitrdm/causalkernel/internal/logging"
	"github.com/gitrdm/causalkernel/pkg/kernel"
)

// DataType discriminates a variable's wire encoding (spec.md §6).
type DataType int

const (
	DataTypeDouble DataType = iota
	DataTypeCommunicationID
	DataTypeString
)

// CommandDescriptor names a command the controller accepts: its wire
// id, declared data type, and dimensionality (spec.md §6 Setup
// message).
type CommandDescriptor struct {
	Name       string
	ID         int32
	DataType   DataType
	Dimensions []int32
}

// SetupMessage is the handshake the controller sends first: three
// name<->id dictionaries and the command descriptor table.
type SetupMessage struct {
	Entities map[string]int32
	Objects  map[string]int32
	Commands map[string]int32

	CommandDescriptions map[string]CommandDescriptor
}

// StartMessage is the core's reply to Setup (spec.md §6).
type StartMessage struct {
	DiagnosticMode   bool
	ReconnectionType int32
}

// messageType tags the framed payload's kind on the wire.
type messageType uint8

const (
	msgSetup messageType = iota
	msgStart
	msgData
)

// Variable is one decoded Data-message entry: the key it updates and
// the decoded value (spec.md §6: "the core decodes Doubles... Communi-
// cationIds... and Strings").
type Variable struct {
	Key   kernel.EntityVariableKey
	Value kernel.Value
}

// commIDs is the bidirectional name<->wire-id dictionary built from the
// Setup message (original_source/src/interfaces/mod.rs's CommIds).
type commIDs struct {
	nameToID map[string]int32
	idToName map[int32]string
}

func newCommIDs() *commIDs {
	return &commIDs{nameToID: make(map[string]int32), idToName: make(map[int32]string)}
}

func (c *commIDs) insertMap(m map[string]int32) {
	for name, id := range m {
		c.nameToID[name] = id
		c.idToName[id] = name
	}
}

func (c *commIDs) nameOf(id int32) string    { return c.idToName[id] }
func (c *commIDs) idOf(name string) int32     { return c.nameToID[name] }

// Conn is one accepted transport connection: a framed byte stream plus
// the dictionaries and command table learned from Setup.
type Conn struct {
	mu   sync.Mutex
	nc   net.Conn
	rw   io.ReadWriter
	comm *commIDs
	cmds map[string]CommandDescriptor
}

// Close releases the underlying socket.
func (c *Conn) Close() error { return c.nc.Close() }

// Accept blocks on ln for one incoming connection, performs the Setup
// handshake, and replies with a Start message (spec.md §6). Grounded on
// tcp_interface.rs::connect, generalized from a single fixed listener
// into a reusable Accept so cmd/kernel can choose the bind address.
func Accept(ln net.Listener, start StartMessage) (*Conn, SetupMessage, error) {
	nc, err := ln.Accept()
	if err != nil {
		return nil, SetupMessage{}, fmt.Errorf("transport: accept: %w", err)
	}
	logging.L().Info("transport: connected, awaiting setup")

	c := &Conn{nc: nc, rw: nc, comm: newCommIDs(), cmds: make(map[string]CommandDescriptor)}
	setup, err := c.readSetup()
	if err != nil {
		nc.Close()
		return nil, SetupMessage{}, err
	}
	if err := c.writeStart(start); err != nil {
		nc.Close()
		return nil, SetupMessage{}, err
	}
	return c, setup, nil
}

func (c *Conn) readSetup() (SetupMessage, error) {
	payload, err := c.readFrame()
	if err != nil {
		return SetupMessage{}, err
	}
	if len(payload) < 1 || messageType(payload[0]) != msgSetup {
		return SetupMessage{}, kernel.NewDecodeError("expected setup message")
	}
	setup, err := decodeSetup(payload[1:])
	if err != nil {
		return SetupMessage{}, err
	}
	c.comm.insertMap(setup.Entities)
	c.comm.insertMap(setup.Objects)
	c.comm.insertMap(setup.Commands)
	c.cmds = setup.CommandDescriptions
	return setup, nil
}

func (c *Conn) writeStart(start StartMessage) error {
	payload := make([]byte, 1+1+4)
	payload[0] = byte(msgStart)
	if start.DiagnosticMode {
		payload[1] = 1
	}
	binary.LittleEndian.PutUint32(payload[2:], uint32(start.ReconnectionType))
	return c.writeFrame(payload)
}

// ReadVariables blocks for the next Data message and decodes every
// variable it carries (spec.md §6 Data message, §4.7 step 2).
func (c *Conn) ReadVariables() ([]Variable, error) {
	payload, err := c.readFrame()
	if err != nil {
		return nil, err
	}
	if len(payload) < 1 || messageType(payload[0]) != msgData {
		return nil, kernel.NewDecodeError("expected data message")
	}
	return decodeVariables(payload[1:], c.comm)
}

// EmitCommand writes a Data message carrying one command: its
// descriptor plus the little-endian concatenation of its argument bytes
// (spec.md §6: entity ids sent as their registered i32).
func (c *Conn) EmitCommand(cmd kernel.Command) error {
	desc, ok := c.cmds[cmd.Name]
	if !ok {
		return fmt.Errorf("transport: command %q not registered by controller", cmd.Name)
	}
	data, err := encodeCommandArgs(cmd, desc, c.comm)
	if err != nil {
		return err
	}
	payload := append([]byte{byte(msgData)}, encodeVariableFrame(desc, data)...)
	return c.writeFrame(payload)
}

// Observe implements kernel.Observer by blocking for the next Data
// message; a read error is logged and reported as no update (the
// scheduler treats it as an empty observation rather than panicking,
// since spec.md §7 only makes decode errors fatal to the *connection*,
// not the outer loop).
func (c *Conn) Observe() map[kernel.EntityVariableKey]kernel.Value {
	vars, err := c.ReadVariables()
	if err != nil {
		logging.L().Error("transport: read variables", "err", err)
		return nil
	}
	out := make(map[kernel.EntityVariableKey]kernel.Value, len(vars))
	for _, v := range vars {
		out[v.Key] = v.Value
	}
	return out
}

// Emit implements kernel.Emitter. A nil cmd (the no_action sentinel)
// emits nothing.
func (c *Conn) Emit(cmd *kernel.Command) {
	if cmd == nil {
		return
	}
	if err := c.EmitCommand(*cmd); err != nil {
		logging.L().Error("transport: emit command", "err", err)
	}
}

func (c *Conn) readFrame() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sizeBuf [8]byte
	if _, err := io.ReadFull(c.rw, sizeBuf[:]); err != nil {
		return nil, fmt.Errorf("transport: read frame length: %w", err)
	}
	size := binary.LittleEndian.Uint64(sizeBuf[:])
	buf := make([]byte, size)
	if _, err := io.ReadFull(c.rw, buf); err != nil {
		return nil, fmt.Errorf("transport: read frame body: %w", err)
	}
	return buf, nil
}

func (c *Conn) writeFrame(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], uint64(len(payload)))
	if _, err := c.rw.Write(sizeBuf[:]); err != nil {
		return fmt.Errorf("transport: write frame length: %w", err)
	}
	if _, err := c.rw.Write(payload); err != nil {
		return fmt.Errorf("transport: write frame body: %w", err)
	}
	return nil
}
