package pylon

import (
	"github.com/pkg/errors"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// drain calls next until it reports no further result and returns the newest
// frame.  next returns the frame of one result (nil if it failed), whether
// another result may be waiting, and the error of this result.  Failures
// before a good frame are dropped; with no good frame the last error is
// returned.
func drain(next func() (*frame.Frame, bool, error)) (*frame.Frame, error) {
	var (
		latest *frame.Frame
		last   error
	)
	for {
		f, more, err := next()
		if f != nil {
			latest = f
		}
		if err != nil {
			last = err
		}
		if !more {
			break
		}
	}
	if latest != nil {
		return latest, nil
	}
	if last == nil {
		last = errors.New("grab: wait object signalled without a result")
	}
	return nil, last
}
