// TLV argument/result encoding for BID-1 (spec.md §4.9), built the way this
// toolchain's object-file writers assemble binary formats elsewhere
// (internal/debug's ELF/COFF/Mach-O writers in the teacher): a bytes.Buffer
// filled via encoding/binary, with named byte-offset constants rather than
// magic numbers sprinkled through the code.
package pluginabi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Tag identifies a TLV entry's payload shape.
type Tag uint8

const (
	TagBool   Tag = 1
	TagI32    Tag = 2
	TagI64    Tag = 3
	TagF32    Tag = 4
	TagF64    Tag = 5
	TagString Tag = 6
	TagBytes  Tag = 7
	TagHandle Tag = 8
	TagVoid   Tag = 9
)

const wireVersion = 1

// Value is one TLV-encodable argument or result value.
type Value struct {
	Tag    Tag
	Bool   bool
	I32    int32
	I64    int64
	F32    float32
	F64    float64
	Bytes  []byte // String and Bytes both carry their payload here
	Handle Handle
}

// Handle is a Box-typed TLV entry: a plugin type id plus instance id
// (spec.md §4.9 "Method-returning-Box results are encoded as a Handle").
type Handle struct {
	TypeID     uint32
	InstanceID uint32
}

func BoolValue(v bool) Value       { return Value{Tag: TagBool, Bool: v} }
func I32Value(v int32) Value       { return Value{Tag: TagI32, I32: v} }
func I64Value(v int64) Value       { return Value{Tag: TagI64, I64: v} }
func F32Value(v float32) Value     { return Value{Tag: TagF32, F32: v} }
func F64Value(v float64) Value     { return Value{Tag: TagF64, F64: v} }
func StringValue(v string) Value   { return Value{Tag: TagString, Bytes: []byte(v)} }
func BytesValue(v []byte) Value    { return Value{Tag: TagBytes, Bytes: v} }
func HandleValue(h Handle) Value   { return Value{Tag: TagHandle, Handle: h} }
func VoidValue() Value             { return Value{Tag: TagVoid} }

func (v Value) payload() []byte {
	switch v.Tag {
	case TagBool:
		if v.Bool {
			return []byte{1}
		}
		return []byte{0}
	case TagI32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v.I32))
		return buf
	case TagI64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v.I64))
		return buf
	case TagF32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v.F32))
		return buf
	case TagF64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.F64))
		return buf
	case TagString, TagBytes:
		return v.Bytes
	case TagHandle:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint32(buf[0:4], v.Handle.TypeID)
		binary.LittleEndian.PutUint32(buf[4:8], v.Handle.InstanceID)
		return buf
	default:
		return nil
	}
}

// Encode serializes a TLV argument/result list: the u16 version/argc
// header followed by each entry's tag/reserved/size/payload (spec.md §4.9).
func Encode(values []Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint16(wireVersion)); err != nil {
		return nil, err
	}
	if len(values) > 0xFFFF {
		return nil, fmt.Errorf("pluginabi: %d values exceeds u16 argc", len(values))
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(values))); err != nil {
		return nil, err
	}
	for _, v := range values {
		payload := v.payload()
		if len(payload) > 0xFFFF {
			return nil, fmt.Errorf("pluginabi: entry of %d bytes exceeds u16 size", len(payload))
		}
		buf.WriteByte(byte(v.Tag))
		buf.WriteByte(0) // reserved
		if err := binary.Write(&buf, binary.LittleEndian, uint16(len(payload))); err != nil {
			return nil, err
		}
		buf.Write(payload)
	}
	return buf.Bytes(), nil
}

// Decode parses a TLV byte stream back into its Value list, returning
// ErrInvalidArgs-shaped errors (via DecodeError) on any malformed header,
// truncated entry, or trailing garbage (spec.md §4.9: "Any parse error
// yields E_INVALID_ARGS").
func Decode(data []byte) ([]Value, error) {
	if len(data) < 4 {
		return nil, &DecodeError{Reason: "truncated TLV header"}
	}
	version := binary.LittleEndian.Uint16(data[0:2])
	if version != wireVersion {
		return nil, &DecodeError{Reason: fmt.Sprintf("unsupported wire version %d", version)}
	}
	argc := int(binary.LittleEndian.Uint16(data[2:4]))
	pos := 4
	values := make([]Value, 0, argc)
	for i := 0; i < argc; i++ {
		if pos+4 > len(data) {
			return nil, &DecodeError{Reason: "truncated TLV entry header"}
		}
		tag := Tag(data[pos])
		size := int(binary.LittleEndian.Uint16(data[pos+2 : pos+4]))
		pos += 4
		if pos+size > len(data) {
			return nil, &DecodeError{Reason: "truncated TLV entry payload"}
		}
		v, err := decodeValue(tag, data[pos:pos+size])
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		pos += size
	}
	if pos != len(data) {
		return nil, &DecodeError{Reason: "trailing bytes after last TLV entry"}
	}
	return values, nil
}

func decodeValue(tag Tag, payload []byte) (Value, error) {
	switch tag {
	case TagBool:
		if len(payload) != 1 {
			return Value{}, &DecodeError{Reason: "Bool payload must be 1 byte"}
		}
		return BoolValue(payload[0] != 0), nil
	case TagI32:
		if len(payload) != 4 {
			return Value{}, &DecodeError{Reason: "I32 payload must be 4 bytes"}
		}
		return I32Value(int32(binary.LittleEndian.Uint32(payload))), nil
	case TagI64:
		if len(payload) != 8 {
			return Value{}, &DecodeError{Reason: "I64 payload must be 8 bytes"}
		}
		return I64Value(int64(binary.LittleEndian.Uint64(payload))), nil
	case TagF32:
		if len(payload) != 4 {
			return Value{}, &DecodeError{Reason: "F32 payload must be 4 bytes"}
		}
		return F32Value(math.Float32frombits(binary.LittleEndian.Uint32(payload))), nil
	case TagF64:
		if len(payload) != 8 {
			return Value{}, &DecodeError{Reason: "F64 payload must be 8 bytes"}
		}
		return F64Value(math.Float64frombits(binary.LittleEndian.Uint64(payload))), nil
	case TagString, TagBytes:
		cp := make([]byte, len(payload))
		copy(cp, payload)
		return Value{Tag: tag, Bytes: cp}, nil
	case TagHandle:
		if len(payload) != 8 {
			return Value{}, &DecodeError{Reason: "Handle payload must be 8 bytes"}
		}
		return HandleValue(Handle{
			TypeID:     binary.LittleEndian.Uint32(payload[0:4]),
			InstanceID: binary.LittleEndian.Uint32(payload[4:8]),
		}), nil
	case TagVoid:
		if len(payload) != 0 {
			return Value{}, &DecodeError{Reason: "Void payload must be empty"}
		}
		return VoidValue(), nil
	default:
		return Value{}, &DecodeError{Reason: fmt.Sprintf("unknown tag %d", tag)}
	}
}

// DecodeError reports a malformed TLV stream; callers map it to
// ErrInvalidArgs at the ABI boundary.
type DecodeError struct{ Reason string }

func (e *DecodeError) Error() string { return "pluginabi: invalid TLV: " + e.Reason }
