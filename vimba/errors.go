package vimba

import "fmt"

// Codes maps VmbError_t values to their names
var Codes = map[int32]string{
	0:   "VmbErrorSuccess",
	-1:  "VmbErrorInternalFault",
	-2:  "VmbErrorApiNotStarted",
	-3:  "VmbErrorNotFound",
	-4:  "VmbErrorBadHandle",
	-5:  "VmbErrorDeviceNotOpen",
	-6:  "VmbErrorInvalidAccess",
	-7:  "VmbErrorBadParameter",
	-8:  "VmbErrorStructSize",
	-9:  "VmbErrorMoreData",
	-10: "VmbErrorWrongType",
	-11: "VmbErrorInvalidValue",
	-12: "VmbErrorTimeout",
	-13: "VmbErrorOther",
	-14: "VmbErrorResources",
	-15: "VmbErrorInvalidCall",
	-16: "VmbErrorNoTL",
	-17: "VmbErrorNotImplemented",
	-18: "VmbErrorNotSupported",
	-19: "VmbErrorIncomplete",
	-20: "VmbErrorIO",
}

// Error is a failed Vimba call
type Error struct {
	Call string
	Code int32
}

func (e Error) Error() string {
	name, ok := Codes[e.Code]
	if !ok {
		name = "UNKNOWN_ERROR_CODE"
	}
	return fmt.Sprintf("%s: %d - %s", e.Call, e.Code, name)
}

// Timeout is true for VmbErrorTimeout
func (e Error) Timeout() bool {
	return e.Code == -12
}

// NewError returns nil for VmbErrorSuccess and an Error otherwise
func NewError(call string, code int32) error {
	if code == 0 {
		return nil
	}
	return Error{Call: call, Code: code}
}

// ErrNotFound is returned when fewer cameras are attached than the ID asks for
type ErrNotFound struct {
	ID, Count int
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("Alvium camera not found: id %d, %d cameras listed", e.ID, e.Count)
}
