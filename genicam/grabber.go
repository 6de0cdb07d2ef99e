package genicam

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
)

var errNotReady = errors.New("not ready")

// retryPause keeps a failing stream from spinning the grab loop
const retryPause = 10 * time.Millisecond

// Grabber pulls frames from a stream in a goroutine and keeps the newest in
// a LastFrame, the way SDK frame callbacks do.  A Grabber can be restarted
// after Stop.
type Grabber struct {
	// Timeout bounds a single Grab
	Timeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	frames uint64
	fails  uint64
}

// NewGrabber returns a stopped grabber
func NewGrabber(timeout time.Duration) *Grabber {
	return &Grabber{Timeout: timeout}
}

// Run starts the goroutine.  It is a no-op while the grabber runs.
func (g *Grabber) Run(s Stream, last *camera.LastFrame, log *zap.SugaredLogger) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.done = make(chan struct{})
	go g.loop(ctx, s, last, log, g.done)
}

func (g *Grabber) loop(ctx context.Context, s Stream, last *camera.LastFrame, log *zap.SugaredLogger, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		f, err := s.Grab(g.Timeout)
		if err != nil {
			n := atomic.AddUint64(&g.fails, 1)
			if log != nil && n%100 == 1 {
				log.Debugw("grab failed", "error", err, "failures", n)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryPause):
			}
			continue
		}
		last.Store(f)
		atomic.AddUint64(&g.frames, 1)
	}
}

// Stop cancels the goroutine and waits for its current Grab to return
func (g *Grabber) Stop() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel, g.done = nil, nil
	g.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running is true between Run and Stop
func (g *Grabber) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancel != nil
}

// Frames is the number of frames received since the grabber was created
func (g *Grabber) Frames() uint64 {
	return atomic.LoadUint64(&g.frames)
}

// Failures is the number of failed grabs since the grabber was created
func (g *Grabber) Failures() uint64 {
	return atomic.LoadUint64(&g.fails)
}

// WaitUntil polls cond every poll interval until it reports true, at most
// attempts times.  An error from cond ends the wait immediately.
func WaitUntil(ctx context.Context, cond func() (bool, error), poll time.Duration, attempts uint64) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(poll), attempts), ctx)
	err := backoff.Retry(func() error {
		ok, err := cond()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotReady
		}
		return nil
	}, b)
	if err == errNotReady {
		return errors.Errorf("condition not met after %d polls of %v", attempts, poll)
	}
	return err
}

// WaitStreaming blocks until the grabber delivered its first frame, then
// waits settle for the auto controls to converge
func (g *Grabber) WaitStreaming(ctx context.Context, poll time.Duration, attempts uint64, settle time.Duration) error {
	err := WaitUntil(ctx, func() (bool, error) {
		if !g.Running() {
			return false, errors.New("grabber is not running")
		}
		return g.Frames() > 0, nil
	}, poll, attempts)
	if err != nil {
		return errors.Wrap(err, "wait for stream")
	}
	select {
	case <-time.After(settle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
