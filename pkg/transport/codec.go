package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/gitrdm/causalkernel/pkg/kernel"
)

// setupSection tags which name<->id dictionary a length-prefixed block
// in the Setup payload belongs to.
type setupSection uint8

const (
	sectionEntities setupSection = iota
	sectionObjects
	sectionCommands
	sectionCommandDescs
	sectionEnd
)

// decodeSetup parses the Setup payload: a run of (section tag, section
// body) blocks terminated by sectionEnd. Entities/Objects/Commands
// sections are flat name->id pairs; CommandDescs carries the command
// descriptor table (spec.md §6).
func decodeSetup(b []byte) (SetupMessage, error) {
	msg := SetupMessage{
		Entities:            make(map[string]int32),
		Objects:             make(map[string]int32),
		Commands:            make(map[string]int32),
		CommandDescriptions: make(map[string]CommandDescriptor),
	}
	r := &reader{buf: b}
	for {
		tag, err := r.byte()
		if err != nil {
			return SetupMessage{}, kernel.NewDecodeError("setup: truncated: %v", err)
		}
		switch setupSection(tag) {
		case sectionEnd:
			return msg, nil
		case sectionEntities:
			if err := decodeNameIDMap(r, msg.Entities); err != nil {
				return SetupMessage{}, err
			}
		case sectionObjects:
			if err := decodeNameIDMap(r, msg.Objects); err != nil {
				return SetupMessage{}, err
			}
		case sectionCommands:
			if err := decodeNameIDMap(r, msg.Commands); err != nil {
				return SetupMessage{}, err
			}
		case sectionCommandDescs:
			if err := decodeCommandDescs(r, msg.CommandDescriptions); err != nil {
				return SetupMessage{}, err
			}
		default:
			return SetupMessage{}, kernel.NewDecodeError("setup: unknown section tag %d", tag)
		}
	}
}

func decodeNameIDMap(r *reader, out map[string]int32) error {
	count, err := r.u32()
	if err != nil {
		return kernel.NewDecodeError("setup: name/id count: %v", err)
	}
	for i := uint32(0); i < count; i++ {
		name, err := r.str()
		if err != nil {
			return kernel.NewDecodeError("setup: name: %v", err)
		}
		id, err := r.i32()
		if err != nil {
			return kernel.NewDecodeError("setup: id: %v", err)
		}
		out[name] = id
	}
	return nil
}

func decodeCommandDescs(r *reader, out map[string]CommandDescriptor) error {
	count, err := r.u32()
	if err != nil {
		return kernel.NewDecodeError("setup: command desc count: %v", err)
	}
	for i := uint32(0); i < count; i++ {
		name, err := r.str()
		if err != nil {
			return kernel.NewDecodeError("setup: command name: %v", err)
		}
		id, err := r.i32()
		if err != nil {
			return kernel.NewDecodeError("setup: command id: %v", err)
		}
		dt, err := r.byte()
		if err != nil {
			return kernel.NewDecodeError("setup: command data type: %v", err)
		}
		ndims, err := r.byte()
		if err != nil {
			return kernel.NewDecodeError("setup: command dims count: %v", err)
		}
		dims := make([]int32, ndims)
		for i := range dims {
			d, err := r.i32()
			if err != nil {
				return kernel.NewDecodeError("setup: command dim: %v", err)
			}
			dims[i] = d
		}
		out[name] = CommandDescriptor{Name: name, ID: id, DataType: DataType(dt), Dimensions: dims}
	}
	return nil
}

// decodeVariables parses a Data-message payload: a count followed by
// that many (descriptor, raw bytes) variable records, decoded per
// spec.md §6 (Double -> Number/List of Number, CommunicationId -> -1
// denotes empty list else an EntityID, String -> UTF-8).
func decodeVariables(b []byte, comm *commIDs) ([]Variable, error) {
	r := &reader{buf: b}
	count, err := r.u32()
	if err != nil {
		return nil, kernel.NewDecodeError("data: variable count: %v", err)
	}
	out := make([]Variable, 0, count)
	for i := uint32(0); i < count; i++ {
		entityID, err := r.i32()
		if err != nil {
			return nil, kernel.NewDecodeError("data: entity id: %v", err)
		}
		varID, err := r.i32()
		if err != nil {
			return nil, kernel.NewDecodeError("data: var id: %v", err)
		}
		dt, err := r.byte()
		if err != nil {
			return nil, kernel.NewDecodeError("data: data type: %v", err)
		}
		dims, err := r.i32()
		if err != nil {
			return nil, kernel.NewDecodeError("data: dims: %v", err)
		}
		raw, err := r.bytesOfLen(-1)
		if err != nil {
			return nil, kernel.NewDecodeError("data: raw payload: %v", err)
		}
		v, err := decodeValue(DataType(dt), dims, raw, comm)
		if err != nil {
			return nil, err
		}
		out = append(out, Variable{
			Key:   kernel.NewEntityVariableKey(comm.nameOf(entityID), comm.nameOf(varID)),
			Value: v,
		})
	}
	return out, nil
}

func decodeValue(dt DataType, dims int32, raw []byte, comm *commIDs) (kernel.Value, error) {
	switch dt {
	case DataTypeDouble:
		if dims > 1 {
			items := make([]kernel.Value, 0, len(raw)/8)
			for off := 0; off+8 <= len(raw); off += 8 {
				items = append(items, kernel.NumberValue(leFloat64(raw[off:off+8])))
			}
			return kernel.ListValue(items), nil
		}
		return kernel.NumberValue(leFloat64(raw)), nil
	case DataTypeCommunicationID:
		id := leInt64(raw)
		if id == -1 {
			return kernel.ListValue(nil), nil
		}
		return kernel.EntityIDValue(comm.nameOf(int32(id))), nil
	case DataTypeString:
		return kernel.StringValue(string(raw)), nil
	default:
		return kernel.Value{}, kernel.NewDecodeError("data: unsupported data type %d", dt)
	}
}

func encodeVariableFrame(desc CommandDescriptor, data []byte) []byte {
	var buf []byte
	buf = appendI32(buf, desc.ID)
	buf = appendI32(buf, 0) // commands carry no distinct entity-variable id of their own
	buf = append(buf, byte(desc.DataType))
	buf = appendI32(buf, int32(len(desc.Dimensions)))
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(data)))
	buf = append(buf, sizeBuf[:]...)
	buf = append(buf, data...)
	return buf
}

// encodeCommandArgs flattens a command's resolved parameters into the
// little-endian byte concatenation spec.md §6 describes (entity ids sent
// as their registered i32).
func encodeCommandArgs(cmd kernel.Command, desc CommandDescriptor, comm *commIDs) ([]byte, error) {
	var out []byte
	for _, p := range cmd.Params {
		if p.Kind != kernel.PatternValueKind {
			return nil, fmt.Errorf("transport: command %q has an unresolved parameter", cmd.Name)
		}
		b, err := encodeValue(p.Value, comm)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func encodeValue(v kernel.Value, comm *commIDs) ([]byte, error) {
	switch v.Kind {
	case kernel.KindNumber, kernel.KindUncertainNumber:
		return leBytesFloat64(v.Number), nil
	case kernel.KindEntityID:
		return leBytesInt64(int64(comm.idOf(v.Str))), nil
	case kernel.KindString:
		return []byte(v.Str), nil
	case kernel.KindList:
		var out []byte
		for _, item := range v.List {
			b, err := encodeValue(item, comm)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("transport: cannot encode value %v", v)
	}
}
