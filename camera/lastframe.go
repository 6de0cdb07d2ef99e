package camera

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// LastFrame holds the most recent frame a camera delivered.  It is safe for
// use by a grabbing goroutine and any number of readers.
type LastFrame struct {
	mu    sync.RWMutex
	f     *frame.Frame
	count uint64
}

// Store replaces the cached frame.  The frame is owned by the cache
// afterwards and must not be modified by the caller.
func (l *LastFrame) Store(f *frame.Frame) {
	if f.Empty() {
		return
	}
	l.mu.Lock()
	l.f = f
	l.count++
	l.mu.Unlock()
}

// Load returns a copy of the cached frame, or nil if nothing was stored
func (l *LastFrame) Load() *frame.Frame {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.f.Clone()
}

// Count is the number of frames stored so far
func (l *LastFrame) Count() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Fallback logs a failed grab and returns the cached frame in its place.
// ErrNoFrame, wrapping cause, is returned when no frame was ever stored.
func (l *LastFrame) Fallback(log *zap.SugaredLogger, cause error) (*frame.Frame, error) {
	f := l.Load()
	if f == nil {
		if cause == nil {
			return nil, ErrNoFrame
		}
		return nil, errors.Wrapf(ErrNoFrame, "%v", cause)
	}
	if log != nil {
		log.Warnw("failed to grab frame, returning last frame", "error", cause)
	}
	return f, nil
}
