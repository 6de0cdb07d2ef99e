/*
Package opencv adapts OpenCV's VideoCapture to the camera interface.

It serves webcams and the course's video files alike.  Consumer cameras
expose far fewer controls than industrial ones: there is no binning and no
auto gain, and the auto modes only know on and off.

Build with the nocv tag on machines without OpenCV; Open and OpenFile then
return camera.ErrSDKUnavailable.
*/
package opencv

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// Name is what Camera.Name reports for every device
const Name = "OpenCV video capture"

// ExposureUnit is the duration of one step of the exposure property.
// V4L2, the Linux backend, counts in 100 µs.
var ExposureUnit = 100 * time.Microsecond

// Property is a VideoCapture property
type Property int

const (
	// Width of the frames
	Width Property = iota

	// Height of the frames
	Height

	// FPS is the frame rate
	FPS

	// Exposure in ExposureUnit steps
	Exposure

	// AutoExposure is 0 or 1
	AutoExposure

	// AutoFocus is 0 or 1
	AutoFocus

	// AutoWB is 0 or 1
	AutoWB

	// FrameCount is the length of a video file
	FrameCount

	// PosFrames is the index of the next frame of a video file
	PosFrames
)

// Capture is an open VideoCapture.  Read returns a BGR frame and false when
// no frame could be read.
type Capture interface {
	Read() (*frame.Frame, bool)
	Get(Property) float64
	Set(Property, float64)
	Close() error
}

// Camera is a webcam or video file
type Camera struct {
	mu     sync.Mutex
	cap    Capture
	format camera.PixelFormat
	log    *zap.SugaredLogger
	last   camera.LastFrame
	closed bool
}

// Open opens video device opts.ID
func Open(opts camera.Options) (*Camera, error) {
	c, err := openDevice(opts.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open camera %d", opts.ID)
	}
	return New(c, opts), nil
}

// OpenFile opens a video file, frames are read at the speed Frame is called
func OpenFile(path string, opts camera.Options) (*Camera, error) {
	c, err := openFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open video %s", path)
	}
	return New(c, opts), nil
}

// New wraps an open capture
func New(c Capture, opts camera.Options) *Camera {
	cam := &Camera{cap: c, format: opts.PixelFormat, log: opts.Log().With("camera", Name)}
	if b := opts.Bin(); !b.None() {
		cam.log.Warnw("binning not supported", "binning", b)
	}
	cam.log.Infow("opened camera",
		"image", camera.Resolution{Width: int(c.Get(Width)), Height: int(c.Get(Height))},
		"fps", c.Get(FPS))
	return cam
}

// Name implements camera.Camera
func (c *Camera) Name() string {
	return Name
}

// Release closes the capture, a second call does nothing
func (c *Camera) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.cap.Close()
}

// Frame reads the next frame.  A failed read returns the previous frame.
func (c *Camera) Frame() (*frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, camera.ErrNotOpen
	}
	f, ok := c.cap.Read()
	if !ok || f.Empty() {
		return c.last.Fallback(c.log, errors.New("could not read frame from camera"))
	}
	if c.format == camera.Mono8 {
		f = f.ToGray()
	}
	c.last.Store(f)
	return f.Clone(), nil
}

// Frames is the number of frames of a video file, 0 for cameras
func (c *Camera) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.cap.Get(FrameCount)
	if n < 0 {
		return 0
	}
	return int(n)
}

// Rewind makes the next Frame return the first frame of a video file
func (c *Camera) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cap.Set(PosFrames, 0)
}

func (c *Camera) get(p Property) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, camera.ErrNotOpen
	}
	return c.cap.Get(p), nil
}

func (c *Camera) set(p Property, v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return camera.ErrNotOpen
	}
	c.cap.Set(p, v)
	return nil
}

// Resolution implements camera.Camera
func (c *Camera) Resolution() (camera.Resolution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return camera.Resolution{}, camera.ErrNotOpen
	}
	return camera.Resolution{Width: int(c.cap.Get(Width)), Height: int(c.cap.Get(Height))}, nil
}

// SetResolution asks the backend for a frame size.  Webcams snap to the
// nearest mode they support, which is returned as ErrNotApplied.
func (c *Camera) SetResolution(r camera.Resolution) error {
	if r.Width <= 0 || r.Height <= 0 {
		return errors.Wrapf(camera.ErrOutOfRange, "resolution %v", r)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return camera.ErrNotOpen
	}
	c.cap.Set(Width, float64(r.Width))
	c.cap.Set(Height, float64(r.Height))
	got := camera.Resolution{Width: int(c.cap.Get(Width)), Height: int(c.cap.Get(Height))}
	if got != r {
		return errors.Wrapf(camera.ErrNotApplied, "resolution %v requested, camera uses %v", r, got)
	}
	return nil
}

// FrameRate implements camera.Camera
func (c *Camera) FrameRate() (float64, error) {
	return c.get(FPS)
}

// SetFrameRate requires the backend to read back exactly fps
func (c *Camera) SetFrameRate(fps float64) error {
	if fps <= 0 {
		return errors.Wrapf(camera.ErrOutOfRange, "frame rate %v", fps)
	}
	if err := c.set(FPS, fps); err != nil {
		return err
	}
	got, err := c.get(FPS)
	if err != nil {
		return err
	}
	if got != fps {
		return errors.Wrapf(camera.ErrNotApplied, "frame rate %v requested, camera uses %v", fps, got)
	}
	return nil
}

// SetBinning is not supported by VideoCapture
func (c *Camera) SetBinning(b camera.Binning) error {
	c.log.Warnw("binning not supported", "binning", b)
	return camera.ErrNotSupported
}

// SetAutofocus implements camera.Camera
func (c *Camera) SetAutofocus(s camera.Switch) error {
	v := 0.
	if s == camera.SwitchOn {
		v = 1
	}
	return c.set(AutoFocus, v)
}

// onOff maps Off and Continuous to the property values 0 and 1
func onOff(m camera.Mode) (float64, error) {
	switch m {
	case camera.Off:
		return 0, nil
	case camera.Continuous:
		return 1, nil
	}
	return 0, errors.Wrapf(camera.ErrNotSupported, "auto mode %v", m)
}

func mode(v float64) camera.Mode {
	if v == 0 {
		return camera.Off
	}
	return camera.Continuous
}

// ExposureRange is unknown to VideoCapture
func (c *Camera) ExposureRange() (camera.ExposureRange, error) {
	return camera.ExposureRange{}, camera.ErrNotSupported
}

// ExposureTime converts the exposure property with ExposureUnit
func (c *Camera) ExposureTime() (time.Duration, error) {
	v, err := c.get(Exposure)
	if err != nil {
		return 0, err
	}
	return time.Duration(math.Round(v * float64(ExposureUnit))), nil
}

// SetExposureTime turns auto exposure off and sets the exposure property
func (c *Camera) SetExposureTime(d time.Duration) error {
	if d <= 0 {
		return errors.Wrapf(camera.ErrOutOfRange, "exposure time %v", d)
	}
	if err := c.set(AutoExposure, 0); err != nil {
		return err
	}
	return c.set(Exposure, float64(d)/float64(ExposureUnit))
}

// AutoExposure implements camera.Camera
func (c *Camera) AutoExposure() (camera.Mode, error) {
	v, err := c.get(AutoExposure)
	return mode(v), err
}

// SetAutoExposure accepts Off and Continuous
func (c *Camera) SetAutoExposure(m camera.Mode) error {
	v, err := onOff(m)
	if err != nil {
		c.log.Warnw("auto exposure mode not implemented", "mode", m)
		return err
	}
	return c.set(AutoExposure, v)
}

// AutoGain is not supported by VideoCapture
func (c *Camera) AutoGain() (camera.Mode, error) {
	return camera.Off, camera.ErrNotSupported
}

// SetAutoGain is not supported by VideoCapture
func (c *Camera) SetAutoGain(m camera.Mode) error {
	c.log.Warnw("auto gain not supported", "mode", m)
	return camera.ErrNotSupported
}

// AutoWhiteBalance implements camera.Camera
func (c *Camera) AutoWhiteBalance() (camera.Mode, error) {
	v, err := c.get(AutoWB)
	return mode(v), err
}

// SetAutoWhiteBalance accepts Off and Continuous
func (c *Camera) SetAutoWhiteBalance(m camera.Mode) error {
	v, err := onOff(m)
	if err != nil {
		c.log.Warnw("auto white balance mode not implemented", "mode", m)
		return err
	}
	return c.set(AutoWB, v)
}

var _ camera.Camera = (*Camera)(nil)
