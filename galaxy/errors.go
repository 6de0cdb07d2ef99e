package galaxy

import "fmt"

// Statuses maps GX_STATUS values to their names
var Statuses = map[int32]string{
	0:   "GX_STATUS_SUCCESS",
	-1:  "GX_STATUS_ERROR",
	-2:  "GX_STATUS_NOT_FOUND_TL",
	-3:  "GX_STATUS_NOT_FOUND_DEVICE",
	-4:  "GX_STATUS_OFFLINE",
	-5:  "GX_STATUS_INVALID_PARAMETER",
	-6:  "GX_STATUS_INVALID_HANDLE",
	-7:  "GX_STATUS_INVALID_CALL",
	-8:  "GX_STATUS_INVALID_ACCESS",
	-9:  "GX_STATUS_NEED_MORE_BUFFER",
	-10: "GX_STATUS_ERROR_TYPE",
	-11: "GX_STATUS_OUT_OF_RANGE",
	-12: "GX_STATUS_NOT_IMPLEMENTED",
	-13: "GX_STATUS_NOT_INIT_API",
	-14: "GX_STATUS_TIMEOUT",
}

// Error is a failed GxIAPI call
type Error struct {
	Call   string
	Status int32
}

func (e Error) Error() string {
	name, ok := Statuses[e.Status]
	if !ok {
		name = "UNKNOWN_STATUS"
	}
	return fmt.Sprintf("%s: %d - %s", e.Call, e.Status, name)
}

// NewError returns nil for GX_STATUS_SUCCESS and an Error otherwise
func NewError(call string, status int32) error {
	if status == 0 {
		return nil
	}
	return Error{Call: call, Status: status}
}

// ErrNotFound is returned when fewer cameras are attached than the ID asks for
type ErrNotFound struct {
	ID, Count int
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("camera not found: id %d, %d Galaxy devices attached", e.ID, e.Count)
}
