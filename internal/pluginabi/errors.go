package pluginabi

import "fmt"

// Status is the BID-1 invoke() return code (spec.md §4.9).
type Status int32

const (
	Success          Status = 0
	ErrShortBuffer   Status = -1
	ErrInvalidType   Status = -2
	ErrInvalidMethod Status = -3
	ErrInvalidArgs   Status = -4
	ErrPluginError   Status = -5
	ErrInvalidHandle Status = -8
)

func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case ErrShortBuffer:
		return "E_SHORT_BUFFER"
	case ErrInvalidType:
		return "E_INVALID_TYPE"
	case ErrInvalidMethod:
		return "E_INVALID_METHOD"
	case ErrInvalidArgs:
		return "E_INVALID_ARGS"
	case ErrPluginError:
		return "E_PLUGIN_ERROR"
	case ErrInvalidHandle:
		return "E_INVALID_HANDLE"
	default:
		return fmt.Sprintf("E_UNKNOWN(%d)", int32(s))
	}
}

// StatusError wraps a non-SUCCESS Status returned by invoke() as a Go error.
type StatusError struct {
	Status Status
	Method uint32
	TypeID uint32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("plugin invoke(type=%d, method=%d): %s", e.TypeID, e.Method, e.Status)
}
