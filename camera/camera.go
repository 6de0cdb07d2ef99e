/*
Package camera describes the uniform set of controls every camera adapter offers.

The Camera interface is deliberately the lowest common denominator of an
industrial camera SDK and a webcam: resolution, frame rate, exposure, and the
three auto controls found on nearly every color sensor.  Adapters return
ErrNotSupported for the controls their device or SDK lacks rather than
silently ignoring a request.
*/
package camera

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

var (
	// ErrNotSupported is returned when the device or SDK lacks a control
	ErrNotSupported = errors.New("not supported by this camera")

	// ErrNotOpen is returned by adapters used after Release
	ErrNotOpen = errors.New("camera is not open")

	// ErrNoFrame is returned when a grab failed and no earlier frame exists
	ErrNoFrame = errors.New("no frame available")

	// ErrOutOfRange is returned for settings outside the valid interval
	ErrOutOfRange = errors.New("value out of range")

	// ErrNotApplied is returned when the camera accepted a setting but reads back a different value
	ErrNotApplied = errors.New("setting was not applied")

	// ErrSDKUnavailable is returned by adapters built without their vendor SDK
	ErrSDKUnavailable = errors.New("vendor SDK not compiled in, rebuild with the vendor build tag")
)

// PixelFormat is the layout of frames handed out by Frame
type PixelFormat int

const (
	// BGR8 is 24-bit color, one byte each for blue, green and red
	BGR8 PixelFormat = iota

	// Mono8 is 8-bit gray
	Mono8
)

// String returns the GenICam name of the format
func (p PixelFormat) String() string {
	switch p {
	case BGR8:
		return "BGR8"
	case Mono8:
		return "Mono8"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(p))
	}
}

// Channels is the number of bytes per pixel
func (p PixelFormat) Channels() int {
	if p == Mono8 {
		return frame.Gray
	}
	return frame.BGR
}

// ParsePixelFormat converts a case-insensitive name.  "default" and "" mean BGR8.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch strings.ToLower(s) {
	case "", "default", "bgr8":
		return BGR8, nil
	case "mono8", "gray", "grey":
		return Mono8, nil
	}
	return BGR8, fmt.Errorf("unknown pixel format %q, expected BGR8 or Mono8", s)
}

// UnmarshalText lets pixel formats be read from config files
func (p *PixelFormat) UnmarshalText(b []byte) error {
	v, err := ParsePixelFormat(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalText is the inverse of UnmarshalText
func (p PixelFormat) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Mode is the state of an automatic control loop
type Mode int

const (
	// Off disables the control; the manual value is used
	Off Mode = iota

	// Once runs the control until it settles, then turns it Off
	Once

	// Continuous keeps the control running
	Continuous
)

// String returns the GenICam spelling of the mode
func (m Mode) String() string {
	switch m {
	case Off:
		return "Off"
	case Once:
		return "Once"
	case Continuous:
		return "Continuous"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "Off", "Once" or "Continuous" in any case
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return Off, nil
	case "once":
		return Once, nil
	case "continuous":
		return Continuous, nil
	}
	return Off, fmt.Errorf("unknown auto mode %q, expected Off, Once or Continuous", s)
}

// Switch turns a feature without intermediate states on or off
type Switch bool

const (
	// SwitchOff is the off state
	SwitchOff Switch = false

	// SwitchOn is the on state
	SwitchOn Switch = true
)

func (s Switch) String() string {
	if s {
		return "On"
	}
	return "Off"
}

// Resolution is the size of the frames in pixels
type Resolution struct {
	Width  int `json:"width" koanf:"width"`
	Height int `json:"height" koanf:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Zero is true if no resolution was set
func (r Resolution) Zero() bool {
	return r.Width == 0 && r.Height == 0
}

// Resolutions maps preset names to sizes
var Resolutions = map[string]Resolution{
	"720p":  {Width: 1280, Height: 720},
	"1080p": {Width: 1920, Height: 1080},
}

// LookupResolution returns a preset by name, or parses "WxH"
func LookupResolution(name string) (Resolution, error) {
	if r, ok := Resolutions[strings.ToLower(name)]; ok {
		return r, nil
	}
	var r Resolution
	_, err := fmt.Sscanf(strings.ToLower(name), "%dx%d", &r.Width, &r.Height)
	if err != nil || r.Width <= 0 || r.Height <= 0 {
		return Resolution{}, fmt.Errorf("unknown resolution %q", name)
	}
	return r, nil
}

// Binning encapsulates information about pixel addition on camera
type Binning struct {
	// H is the horizontal binning factor
	H int `json:"h" koanf:"h"`

	// V is the vertical binning factor
	V int `json:"v" koanf:"v"`
}

// None is true for 1x1 binning, the zero value counts as 1x1
func (b Binning) None() bool {
	return b.H <= 1 && b.V <= 1
}

// Validate returns an error if either factor is smaller than one
func (b Binning) Validate() error {
	if b.H < 1 || b.V < 1 {
		return errors.Wrapf(ErrOutOfRange, "binning %dx%d", b.H, b.V)
	}
	return nil
}

// ExposureRange is the interval of valid exposure times
type ExposureRange struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

// Contains is true if d lies within the range, bounds included
func (r ExposureRange) Contains(d time.Duration) bool {
	return d >= r.Min && d <= r.Max
}

// Check returns ErrOutOfRange if d lies outside the range
func (r ExposureRange) Check(d time.Duration) error {
	if !r.Contains(d) {
		return errors.Wrapf(ErrOutOfRange, "exposure time %v not in [%v, %v]", d, r.Min, r.Max)
	}
	return nil
}

// Camera is implemented by every adapter
type Camera interface {
	// Name is the manufacturer and model of the camera
	Name() string

	// Release stops streaming, resets the device where the SDK can, and
	// frees all SDK resources.  The camera is unusable afterwards.
	Release() error

	// Frame returns the newest frame.  When a grab fails the previous frame
	// is returned instead, and ErrNoFrame if there was none.
	Frame() (*frame.Frame, error)

	Resolution() (Resolution, error)
	SetResolution(Resolution) error

	FrameRate() (float64, error)

	// SetFrameRate sets the acquisition frame rate and returns ErrNotApplied
	// when the camera settles on a different value
	SetFrameRate(float64) error

	SetBinning(Binning) error
	SetAutofocus(Switch) error

	ExposureRange() (ExposureRange, error)
	ExposureTime() (time.Duration, error)

	// SetExposureTime turns auto exposure off and sets a manual exposure
	SetExposureTime(time.Duration) error

	AutoExposure() (Mode, error)
	SetAutoExposure(Mode) error

	AutoGain() (Mode, error)
	SetAutoGain(Mode) error

	AutoWhiteBalance() (Mode, error)
	SetAutoWhiteBalance(Mode) error
}

// Describe returns a one line summary of the camera's state for logs and
// console output.  Controls the camera does not support are left out.
func Describe(c Camera) string {
	var b strings.Builder
	b.WriteString(c.Name())
	if r, err := c.Resolution(); err == nil {
		fmt.Fprintf(&b, ", %v", r)
	}
	if fps, err := c.FrameRate(); err == nil {
		fmt.Fprintf(&b, ", %.1f fps", fps)
	}
	if t, err := c.ExposureTime(); err == nil {
		fmt.Fprintf(&b, ", exposure %v", t)
	}
	return b.String()
}
