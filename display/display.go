//go:build !nocv

/*
Package display shows frames in OpenCV HighGUI windows.

Windows only update while WaitKey runs, so every loop that shows frames
must call it.  Stream wraps the usual "show the camera until a key is
pressed" loop of the lecture programs.
*/
package display

import (
	"context"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/opencv"
)

// KeyEsc is the key code of the escape key
const KeyEsc = 27

// Window is a named HighGUI window
type Window struct {
	Title string

	// Scale resizes frames before they are shown, 0 or 1 shows them as is
	Scale float64

	w *gocv.Window
}

// NewWindow opens a window
func NewWindow(title string) *Window {
	return &Window{Title: title, w: gocv.NewWindow(title)}
}

// TopMost keeps the window above all others
func (w *Window) TopMost() {
	w.w.SetWindowProperty(gocv.WindowPropertyTopMost, gocv.WindowFlag(1))
}

// Show draws f, scaled by Scale
func (w *Window) Show(f *frame.Frame) error {
	if w.Scale > 0 && w.Scale != 1 {
		var err error
		if f, err = frame.Scale(f, w.Scale); err != nil {
			return err
		}
	}
	m, err := opencv.ToMat(f)
	if err != nil {
		return err
	}
	defer m.Close()
	w.w.IMShow(m)
	return nil
}

// Open is false once the user closed the window
func (w *Window) Open() bool {
	return w.w.IsOpen()
}

// Close destroys the window
func (w *Window) Close() error {
	return w.w.Close()
}

// WaitKey processes window events for up to ms milliseconds and returns the
// key pressed, -1 for none.  ms = 0 waits forever.
func WaitKey(ms int) int {
	return gocv.WaitKey(ms)
}

// Show opens a window, shows f and waits for any key
func Show(title string, f *frame.Frame) error {
	w := NewWindow(title)
	defer w.Close()
	if err := w.Show(f); err != nil {
		return err
	}
	WaitKey(0)
	return nil
}

// StreamOptions configure Stream
type StreamOptions struct {
	// Title defaults to the camera name followed by the key hint
	Title string

	// FPS limits the display rate, 0 shows frames as fast as they come
	FPS float64

	// Scale resizes frames before they are shown
	Scale float64

	TopMost bool

	// OnFrame sees every frame before it is shown and may replace it
	OnFrame func(*frame.Frame) (*frame.Frame, error)

	// OnKey is called for every key press.  Returning false ends the
	// stream.  Without OnKey any key ends it.
	OnKey func(key int, last *frame.Frame) bool
}

// Stream shows frames of cam until a key ends it, the window is closed or
// ctx is done
func Stream(ctx context.Context, cam camera.Camera, opts StreamOptions) error {
	title := opts.Title
	if title == "" {
		title = cam.Name() + " [Press any key to quit]"
	}
	w := NewWindow(title)
	defer w.Close()
	w.Scale = opts.Scale
	if opts.TopMost {
		w.TopMost()
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if opts.FPS > 0 {
		lim = rate.NewLimiter(rate.Limit(opts.FPS), 1)
	}
	for {
		if err := lim.Wait(ctx); err != nil {
			return nil
		}
		f, err := cam.Frame()
		if err != nil {
			return errors.Wrap(err, "stream")
		}
		if opts.OnFrame != nil {
			if f, err = opts.OnFrame(f); err != nil {
				return err
			}
		}
		if err := w.Show(f); err != nil {
			return err
		}
		key := WaitKey(1)
		if !w.Open() {
			return nil
		}
		if key < 0 {
			continue
		}
		if opts.OnKey == nil || !opts.OnKey(key, f) {
			return nil
		}
	}
}
