package pluginabi

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include <stdint.h>

typedef uint32_t (*nyash_plugin_abi_fn)(void);
typedef int32_t  (*nyash_plugin_invoke_fn)(uint32_t type_id, uint32_t method_id,
                                           uint32_t instance_id,
                                           const uint8_t *args, size_t args_len,
                                           uint8_t *result, size_t *result_len);

static uint32_t call_abi(nyash_plugin_abi_fn fn) {
	return fn();
}

static int32_t call_invoke(nyash_plugin_invoke_fn fn, uint32_t type_id, uint32_t method_id,
                           uint32_t instance_id, const uint8_t *args, size_t args_len,
                           uint8_t *result, size_t *result_len) {
	return fn(type_id, method_id, instance_id, args, args_len, result, result_len);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Library is a loaded BID-1 plugin shared object. There is no ecosystem
// library in this toolchain's dependency stack for dlopen-style dynamic C
// symbol loading — cgo's own dlfcn.h binding is the minimal unavoidable FFI
// primitive for a host that invokes arbitrary, manifest-named .so/.dylib
// entry points at runtime (see DESIGN.md).
type Library struct {
	handle unsafe.Pointer
	abiFn  C.nyash_plugin_abi_fn
	invoke C.nyash_plugin_invoke_fn
}

// OpenLibrary dlopen()s a plugin and resolves its two required entry
// points, failing if either is absent or if nyash_plugin_abi() does not
// report ABI version 1 (spec.md §4.9).
func OpenLibrary(path string) (*Library, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.dlopen(cPath, C.RTLD_NOW)
	if handle == nil {
		return nil, fmt.Errorf("pluginabi: dlopen %s: %s", path, C.GoString(C.dlerror()))
	}

	abiSym := C.CString("nyash_plugin_abi")
	defer C.free(unsafe.Pointer(abiSym))
	abiPtr := C.dlsym(handle, abiSym)
	if abiPtr == nil {
		C.dlclose(handle)
		return nil, fmt.Errorf("pluginabi: %s missing nyash_plugin_abi: %s", path, C.GoString(C.dlerror()))
	}

	invokeSym := C.CString("nyash_plugin_invoke")
	defer C.free(unsafe.Pointer(invokeSym))
	invokePtr := C.dlsym(handle, invokeSym)
	if invokePtr == nil {
		C.dlclose(handle)
		return nil, fmt.Errorf("pluginabi: %s missing nyash_plugin_invoke: %s", path, C.GoString(C.dlerror()))
	}

	lib := &Library{
		handle: handle,
		abiFn:  C.nyash_plugin_abi_fn(abiPtr),
		invoke: C.nyash_plugin_invoke_fn(invokePtr),
	}

	if v := uint32(C.call_abi(lib.abiFn)); v != 1 {
		C.dlclose(handle)
		return nil, fmt.Errorf("pluginabi: %s reports abi version %d, want 1", path, v)
	}
	return lib, nil
}

// Close releases the dynamic library handle.
func (l *Library) Close() error {
	if l.handle == nil {
		return nil
	}
	if C.dlclose(l.handle) != 0 {
		return fmt.Errorf("pluginabi: dlclose: %s", C.GoString(C.dlerror()))
	}
	l.handle = nil
	return nil
}

// Invoke calls nyash_plugin_invoke, implementing the two-phase buffer
// protocol (spec.md §4.9): an initial zero-length probe discovers the
// required size, then a second call with a right-sized buffer retrieves
// the result. birth (method id 0) and fini (method id 0xFFFFFFFF) return
// their result through this same path — birth's result is a raw 4-byte
// little-endian instance id rather than a TLV stream, left undecoded here.
func (l *Library) Invoke(typeID, methodID, instanceID uint32, args []byte) ([]byte, error) {
	var argsPtr *C.uint8_t
	if len(args) > 0 {
		argsPtr = (*C.uint8_t)(unsafe.Pointer(&args[0]))
	}

	var needed C.size_t
	status := Status(C.call_invoke(l.invoke, C.uint32_t(typeID), C.uint32_t(methodID), C.uint32_t(instanceID),
		argsPtr, C.size_t(len(args)), nil, &needed))
	if status != ErrShortBuffer {
		if status != Success {
			return nil, &StatusError{Status: status, Method: methodID, TypeID: typeID}
		}
		return nil, nil
	}

	result := make([]byte, int(needed))
	resultLen := needed
	var resultPtr *C.uint8_t
	if len(result) > 0 {
		resultPtr = (*C.uint8_t)(unsafe.Pointer(&result[0]))
	}
	status = Status(C.call_invoke(l.invoke, C.uint32_t(typeID), C.uint32_t(methodID), C.uint32_t(instanceID),
		argsPtr, C.size_t(len(args)), resultPtr, &resultLen))
	if status != Success {
		return nil, &StatusError{Status: status, Method: methodID, TypeID: typeID}
	}
	return result[:int(resultLen)], nil
}

// Birth invokes the reserved birth method and decodes its raw u32
// instance id result (spec.md §4.9: "not a TLV").
func (l *Library) Birth(typeID uint32) (uint32, error) {
	result, err := l.Invoke(typeID, MethodBirth, 0, nil)
	if err != nil {
		return 0, err
	}
	if len(result) != 4 {
		return 0, fmt.Errorf("pluginabi: birth result is %d bytes, want 4", len(result))
	}
	return uint32(result[0]) | uint32(result[1])<<8 | uint32(result[2])<<16 | uint32(result[3])<<24, nil
}

// Fini invokes the reserved fini method for an instance.
func (l *Library) Fini(typeID, instanceID uint32) error {
	_, err := l.Invoke(typeID, MethodFini, instanceID, nil)
	return err
}
