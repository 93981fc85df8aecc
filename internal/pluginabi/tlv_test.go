package pluginabi

import "testing"

func TestEncodeDecode_RoundTrip(t *testing.T) {
	values := []Value{
		BoolValue(true),
		I32Value(-7),
		I64Value(1 << 40),
		F32Value(1.5),
		F64Value(3.14159),
		StringValue("hello, box"),
		BytesValue([]byte{0xDE, 0xAD, 0xBE, 0xEF}),
		HandleValue(Handle{TypeID: 0x1001, InstanceID: 42}),
		VoidValue(),
	}

	encoded, err := Encode(values)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != len(values) {
		t.Fatalf("got %d values, want %d", len(decoded), len(values))
	}
	for i, want := range values {
		got := decoded[i]
		if got.Tag != want.Tag {
			t.Fatalf("entry %d: tag = %v, want %v", i, got.Tag, want.Tag)
		}
		switch want.Tag {
		case TagBool:
			if got.Bool != want.Bool {
				t.Errorf("entry %d: Bool = %v, want %v", i, got.Bool, want.Bool)
			}
		case TagI32:
			if got.I32 != want.I32 {
				t.Errorf("entry %d: I32 = %v, want %v", i, got.I32, want.I32)
			}
		case TagI64:
			if got.I64 != want.I64 {
				t.Errorf("entry %d: I64 = %v, want %v", i, got.I64, want.I64)
			}
		case TagF32:
			if got.F32 != want.F32 {
				t.Errorf("entry %d: F32 = %v, want %v", i, got.F32, want.F32)
			}
		case TagF64:
			if got.F64 != want.F64 {
				t.Errorf("entry %d: F64 = %v, want %v", i, got.F64, want.F64)
			}
		case TagString, TagBytes:
			if string(got.Bytes) != string(want.Bytes) {
				t.Errorf("entry %d: Bytes = %v, want %v", i, got.Bytes, want.Bytes)
			}
		case TagHandle:
			if got.Handle != want.Handle {
				t.Errorf("entry %d: Handle = %v, want %v", i, got.Handle, want.Handle)
			}
		}
	}
}

func TestDecode_TruncatedHeader(t *testing.T) {
	if _, err := Decode([]byte{1, 0}); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	data := []byte{2, 0, 0, 0} // version=2, argc=0
	if _, err := Decode(data); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestDecode_TruncatedEntryPayload(t *testing.T) {
	// version=1, argc=1, then an I32 tag claiming 4 bytes but supplying none.
	data := []byte{1, 0, 1, 0, byte(TagI32), 0, 4, 0}
	if _, err := Decode(data); err == nil {
		t.Fatal("expected error for truncated entry payload")
	}
}

func TestDecode_TrailingBytes(t *testing.T) {
	encoded, err := Encode([]Value{I32Value(1)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	encoded = append(encoded, 0xFF)
	if _, err := Decode(encoded); err == nil {
		t.Fatal("expected error for trailing bytes")
	}
}

func TestEncode_ArgcOverflow(t *testing.T) {
	values := make([]Value, 0x10000)
	for i := range values {
		values[i] = VoidValue()
	}
	if _, err := Encode(values); err == nil {
		t.Fatal("expected error for argc overflow")
	}
}
