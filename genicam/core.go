package genicam

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// Profile captures the ways the SDKs differ
type Profile struct {
	// Vendor is used in log messages
	Vendor string

	// PixelFormats maps pixel formats to the SDK's PixelFormat entries.
	// nil means the device format is fixed and frames are converted in software.
	PixelFormats map[camera.PixelFormat]string

	// FrameRateTolerance is the largest accepted difference between the
	// requested and the read back frame rate.  0 requires equality.
	FrameRateTolerance float64

	// FrameRateEnable is a boolean feature that must be true before the
	// frame rate can be set, "" if there is none
	FrameRateEnable string

	// FrameRateMode is an enumeration switched to "On" before the frame rate
	// is set, where the device has it writable.  "" if there is none.
	FrameRateMode string

	// RestartOnResize stops the stream around changes of Width and Height
	RestartOnResize bool

	// Binning is false for SDKs whose binning the adapters do not drive
	Binning bool

	// GrabTimeout is how long Frame waits for the next image
	GrabTimeout time.Duration

	// UserSet is loaded on release to return the camera to a known state, "" for none
	UserSet string

	// ResetOnRelease executes DeviceReset before closing
	ResetOnRelease bool

	// ResetMayFail downgrades a failed DeviceReset to a warning
	ResetMayFail bool
}

// Core implements camera.Camera over a Device.  Vendor adapters embed it.
type Core struct {
	mu sync.Mutex

	dev     Device
	profile Profile
	log     *zap.SugaredLogger
	format  camera.PixelFormat
	name    string

	last      camera.LastFrame
	grabber   *Grabber
	streaming bool
	closed    bool
}

// NewCore wraps an open device.  name is what Name reports.
func NewCore(dev Device, profile Profile, opts camera.Options, name string) *Core {
	if profile.GrabTimeout == 0 {
		profile.GrabTimeout = time.Second
	}
	return &Core{
		dev:     dev,
		profile: profile,
		log:     opts.Log().With("camera", name),
		format:  opts.PixelFormat,
		name:    name,
	}
}

// ModelName builds a display name from the device's vendor and model strings
func ModelName(nm NodeMap, prefix string) string {
	model, err := nm.StringValue(DeviceModelName)
	if err != nil || model == "" {
		model = "camera"
	}
	if prefix == "" {
		prefix, _ = nm.StringValue(DeviceVendorName)
	}
	return strings.TrimSpace(prefix + " " + model)
}

// Device returns the wrapped device
func (c *Core) Device() Device {
	return c.dev
}

// Logger returns the logger tagged with the camera name
func (c *Core) Logger() *zap.SugaredLogger {
	return c.log
}

// PixelFormat is the format frames are delivered in
func (c *Core) PixelFormat() camera.PixelFormat {
	return c.format
}

// Name is the manufacturer and model of the camera
func (c *Core) Name() string {
	return c.name
}

func (c *Core) check() error {
	if c.closed {
		return camera.ErrNotOpen
	}
	return nil
}

// ApplyPixelFormat writes the configured pixel format to the device.  The
// format must be among the device's PixelFormat entries.
func (c *Core) ApplyPixelFormat() error {
	if c.profile.PixelFormats == nil {
		return nil
	}
	want, ok := c.profile.PixelFormats[c.format]
	if !ok {
		return errors.Errorf("%s adapter cannot deliver %v", c.profile.Vendor, c.format)
	}
	if entries, err := c.dev.EnumEntries(PixelFormat); err == nil {
		found := false
		for _, e := range entries {
			if e == want {
				found = true
				break
			}
		}
		if !found {
			return errors.Errorf("pixel format %s not supported by %s, supported: %s",
				want, c.name, strings.Join(entries, ", "))
		}
	}
	return errors.Wrap(c.dev.SetEnum(PixelFormat, want), "set PixelFormat")
}

// ResetToSensor sets the offsets to zero and the image size to the largest
// the sensor allows
func (c *Core) ResetToSensor() error {
	var errs error
	for _, f := range []string{OffsetX, OffsetY} {
		if c.dev.IsWritable(f) {
			errs = multierr.Append(errs, c.dev.SetInt(f, 0))
		}
	}
	w, err := c.firstInt(WidthMax, SensorWidth)
	if err != nil {
		return multierr.Append(errs, err)
	}
	h, err := c.firstInt(HeightMax, SensorHeight)
	if err != nil {
		return multierr.Append(errs, err)
	}
	errs = multierr.Append(errs, c.dev.SetInt(Width, w))
	errs = multierr.Append(errs, c.dev.SetInt(Height, h))
	return errs
}

func (c *Core) firstInt(names ...string) (int64, error) {
	var errs error
	for _, n := range names {
		v, err := c.dev.Int(n)
		if err == nil {
			return v, nil
		}
		errs = multierr.Append(errs, err)
	}
	return 0, errs
}

// LogProperties logs sensor size, image size and frame rate at info level
func (c *Core) LogProperties() {
	kv := []interface{}{}
	if w, err := c.firstInt(SensorWidth, WidthMax); err == nil {
		h, _ := c.firstInt(SensorHeight, HeightMax)
		kv = append(kv, "sensor", camera.Resolution{Width: int(w), Height: int(h)})
	}
	if r, err := c.Resolution(); err == nil {
		kv = append(kv, "image", r)
	}
	if fps, err := c.FrameRate(); err == nil {
		kv = append(kv, "fps", fps)
	}
	c.log.Infow("opened camera", kv...)
}

// SetAutos sets the three auto controls, warning about those the device rejects
func (c *Core) SetAutos(exposure, gain, whiteBalance camera.Mode) {
	for _, s := range []struct {
		feature string
		mode    camera.Mode
	}{
		{ExposureAuto, exposure},
		{GainAuto, gain},
		{BalanceWhiteAuto, whiteBalance},
	} {
		if err := c.dev.SetEnum(s.feature, s.mode.String()); err != nil {
			c.log.Warnw("could not set auto control", "feature", s.feature, "mode", s.mode, "error", err)
		}
	}
}

// StartStreaming starts acquisition.  With a grabber, frames are pulled by a
// background goroutine into the last frame cache; otherwise Frame grabs.
func (c *Core) StartStreaming(g *Grabber) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start(g)
}

func (c *Core) start(g *Grabber) error {
	if c.streaming {
		return nil
	}
	if err := c.dev.Start(); err != nil {
		return errors.Wrap(err, "start stream")
	}
	c.streaming = true
	if g != nil {
		c.grabber = g
		g.Run(c.dev, &c.last, c.log)
	}
	return nil
}

func (c *Core) stop() error {
	if !c.streaming {
		return nil
	}
	var errs error
	if c.grabber != nil {
		c.grabber.Stop()
	}
	errs = multierr.Append(errs, errors.Wrap(c.dev.Stop(), "stop stream"))
	c.streaming = false
	return errs
}

// Streaming is true between StartStreaming and Release
func (c *Core) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Frame returns the newest frame in the configured pixel format
func (c *Core) Frame() (*frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.grabber != nil {
		f := c.last.Load()
		if f == nil {
			return c.last.Fallback(c.log, errors.New("no frame received yet"))
		}
		return c.conform(f), nil
	}
	f, err := c.dev.Grab(c.profile.GrabTimeout)
	if err != nil {
		return c.last.Fallback(c.log, err)
	}
	f = c.conform(f)
	c.last.Store(f)
	return f.Clone(), nil
}

func (c *Core) conform(f *frame.Frame) *frame.Frame {
	switch {
	case c.format == camera.Mono8 && f.Channels == frame.BGR:
		return f.ToGray()
	case c.format == camera.BGR8 && f.Channels == frame.Gray:
		return f.ToBGR()
	}
	return f
}

// Resolution returns the image width and height
func (c *Core) Resolution() (camera.Resolution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return camera.Resolution{}, err
	}
	return c.resolution()
}

func (c *Core) resolution() (camera.Resolution, error) {
	w, err := c.dev.Int(Width)
	if err != nil {
		return camera.Resolution{}, errors.Wrap(err, "get Width")
	}
	h, err := c.dev.Int(Height)
	if err != nil {
		return camera.Resolution{}, errors.Wrap(err, "get Height")
	}
	return camera.Resolution{Width: int(w), Height: int(h)}, nil
}

// SetResolution sets the image size, restarting the stream if the SDK
// requires, and verifies the camera accepted it
func (c *Core) SetResolution(r camera.Resolution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if r.Width <= 0 || r.Height <= 0 {
		return errors.Wrapf(camera.ErrOutOfRange, "resolution %v", r)
	}
	restart := c.profile.RestartOnResize && c.streaming
	g := c.grabber
	if restart {
		if err := c.stop(); err != nil {
			return err
		}
	}
	errs := errors.Wrap(c.dev.SetInt(Width, int64(r.Width)), "set Width")
	errs = multierr.Append(errs, errors.Wrap(c.dev.SetInt(Height, int64(r.Height)), "set Height"))
	if restart {
		errs = multierr.Append(errs, c.start(g))
	}
	if errs != nil {
		return errs
	}
	got, err := c.resolution()
	if err != nil {
		return err
	}
	if got != r {
		return errors.Wrapf(camera.ErrNotApplied, "resolution %v requested, camera uses %v", r, got)
	}
	return nil
}

// FrameRate returns the acquisition frame rate in Hz
func (c *Core) FrameRate() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return 0, err
	}
	f, err := c.dev.Float(FrameRate)
	return f, errors.Wrap(err, "get frame rate")
}

// SetFrameRate sets the acquisition frame rate and verifies the read back
// value lies within the profile's tolerance
func (c *Core) SetFrameRate(fps float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if fps <= 0 {
		return errors.Wrapf(camera.ErrOutOfRange, "frame rate %v", fps)
	}
	if m := c.profile.FrameRateMode; m != "" && c.dev.IsWritable(m) {
		if err := c.dev.SetEnum(m, "On"); err != nil {
			c.log.Warnw("could not enable frame rate control", "feature", m, "error", err)
		}
	}
	if c.profile.FrameRateEnable != "" {
		if err := c.dev.SetBool(c.profile.FrameRateEnable, true); err != nil {
			return errors.Wrap(err, "enable frame rate control")
		}
	}
	if err := c.dev.SetFloat(FrameRate, fps); err != nil {
		return errors.Wrap(err, "set frame rate")
	}
	got, err := c.dev.Float(FrameRate)
	if err != nil {
		return errors.Wrap(err, "get frame rate")
	}
	if math.Abs(got-fps) > c.profile.FrameRateTolerance {
		return errors.Wrapf(camera.ErrNotApplied, "frame rate %v requested, camera uses %v", fps, got)
	}
	return nil
}

// SetBinning sets sensor binning when both binning features are writable
func (c *Core) SetBinning(b camera.Binning) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if !c.profile.Binning {
		return camera.ErrNotSupported
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if !c.dev.IsWritable(BinningHorizontal) || !c.dev.IsWritable(BinningVertical) {
		c.log.Warnw("binning not supported", "binning", b)
		return camera.ErrNotSupported
	}
	errs := errors.Wrap(c.dev.SetInt(BinningHorizontal, int64(b.H)), "set BinningHorizontal")
	return multierr.Append(errs, errors.Wrap(c.dev.SetInt(BinningVertical, int64(b.V)), "set BinningVertical"))
}

// SetAutofocus is not supported by industrial cameras
func (c *Core) SetAutofocus(camera.Switch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	return camera.ErrNotSupported
}

// ExposureRange returns the exposure interval the camera accepts
func (c *Core) ExposureRange() (camera.ExposureRange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return camera.ExposureRange{}, err
	}
	return c.exposureRange()
}

func (c *Core) exposureRange() (camera.ExposureRange, error) {
	lo, hi, err := c.dev.FloatRange(ExposureTime)
	if err != nil {
		return camera.ExposureRange{}, errors.Wrap(err, "get exposure range")
	}
	return camera.ExposureRange{Min: Micros(lo), Max: Micros(hi)}, nil
}

// ExposureTime returns the current exposure time
func (c *Core) ExposureTime() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return 0, err
	}
	us, err := c.dev.Float(ExposureTime)
	if err != nil {
		return 0, errors.Wrap(err, "get exposure time")
	}
	return Micros(us), nil
}

// SetExposureTime turns auto exposure off and sets the exposure time.
// Values outside ExposureRange are rejected.
func (c *Core) SetExposureTime(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	r, err := c.exposureRange()
	if err != nil {
		return err
	}
	if err := r.Check(d); err != nil {
		return err
	}
	if err := c.dev.SetEnum(ExposureAuto, camera.Off.String()); err != nil {
		return errors.Wrap(err, "turn off auto exposure")
	}
	return errors.Wrap(c.dev.SetFloat(ExposureTime, float64(d)/float64(time.Microsecond)), "set exposure time")
}

func (c *Core) getMode(feature string) (camera.Mode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return camera.Off, err
	}
	s, err := c.dev.Enum(feature)
	if err != nil {
		return camera.Off, errors.Wrapf(err, "get %s", feature)
	}
	return camera.ParseMode(s)
}

func (c *Core) setMode(feature string, m camera.Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	return errors.Wrapf(c.dev.SetEnum(feature, m.String()), "set %s", feature)
}

// AutoExposure returns the exposure auto mode
func (c *Core) AutoExposure() (camera.Mode, error) { return c.getMode(ExposureAuto) }

// SetAutoExposure sets the exposure auto mode
func (c *Core) SetAutoExposure(m camera.Mode) error { return c.setMode(ExposureAuto, m) }

// AutoGain returns the gain auto mode
func (c *Core) AutoGain() (camera.Mode, error) { return c.getMode(GainAuto) }

// SetAutoGain sets the gain auto mode
func (c *Core) SetAutoGain(m camera.Mode) error { return c.setMode(GainAuto, m) }

// AutoWhiteBalance returns the white balance auto mode
func (c *Core) AutoWhiteBalance() (camera.Mode, error) { return c.getMode(BalanceWhiteAuto) }

// SetAutoWhiteBalance sets the white balance auto mode
func (c *Core) SetAutoWhiteBalance(m camera.Mode) error { return c.setMode(BalanceWhiteAuto, m) }

// Release stops the stream, returns the camera to its default state as the
// profile asks, and closes the device.  Every step is attempted.
func (c *Core) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	errs := c.stop()
	if c.profile.UserSet != "" {
		errs = multierr.Append(errs, errors.Wrap(c.dev.SetEnum(UserSetSelector, c.profile.UserSet), "select user set"))
		errs = multierr.Append(errs, errors.Wrap(c.dev.Execute(UserSetLoad), "load user set"))
	}
	if c.profile.ResetOnRelease {
		if err := c.dev.Execute(DeviceReset); err != nil {
			if c.profile.ResetMayFail {
				c.log.Warnw("device reset failed", "error", err)
			} else {
				errs = multierr.Append(errs, errors.Wrap(err, "reset device"))
			}
		}
	}
	errs = multierr.Append(errs, errors.Wrap(c.dev.Close(), "close device"))
	c.closed = true
	return errs
}

// Micros converts a GenICam exposure value in microseconds to a duration
func Micros(us float64) time.Duration {
	return time.Duration(math.Round(us * float64(time.Microsecond)))
}

var _ camera.Camera = (*Core)(nil)
