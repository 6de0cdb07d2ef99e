package pylon

import "fmt"

// Error is a failed pylon C call.  Code is the GENAPIC_RESULT, Message the
// text pylon keeps for the last error.
type Error struct {
	Call    string
	Code    uint32
	Message string
}

func (e Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: pylon error 0x%08X", e.Call, e.Code)
	}
	return fmt.Sprintf("%s: pylon error 0x%08X - %s", e.Call, e.Code, e.Message)
}

// ErrNotFound is returned when fewer cameras are attached than the ID asks for
type ErrNotFound struct {
	ID, Count int
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("camera not found: id %d, %d Basler devices attached", e.ID, e.Count)
}
