// Package cameras opens any supported camera by vendor name
package cameras

import (
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/galaxy"
	"github.com/MarcOnTheMoon/imaging-learners/opencv"
	"github.com/MarcOnTheMoon/imaging-learners/pylon"
	"github.com/MarcOnTheMoon/imaging-learners/vimba"
)

// Config selects and presets a camera
type Config struct {
	// Vendor is one of Vendors(), case insensitive
	Vendor string `koanf:"Vendor" yaml:"Vendor"`

	// ID is the index among the cameras of the vendor
	ID int `koanf:"ID" yaml:"ID"`

	// PixelFormat is BGR8 or Mono8
	PixelFormat camera.PixelFormat `koanf:"PixelFormat" yaml:"PixelFormat"`

	BinX int `koanf:"BinX" yaml:"BinX"`
	BinY int `koanf:"BinY" yaml:"BinY"`

	// Resolution is a preset name such as 1080p or WxH.  Empty keeps the
	// camera's size.
	Resolution string `koanf:"Resolution" yaml:"Resolution"`

	// FrameRate is applied when non-zero
	FrameRate float64 `koanf:"FrameRate" yaml:"FrameRate"`

	// OpenRetries is how often a failed open is retried, RetryInterval apart
	OpenRetries   int           `koanf:"OpenRetries" yaml:"OpenRetries"`
	RetryInterval time.Duration `koanf:"RetryInterval" yaml:"RetryInterval"`
}

type opener func(camera.Options) (camera.Camera, error)

var vendors = map[string]opener{}

func register(o opener, names ...string) {
	for _, n := range names {
		vendors[n] = o
	}
}

func init() {
	register(func(o camera.Options) (camera.Camera, error) { return opencv.Open(o) }, "opencv", "cv", "webcam")
	register(func(o camera.Options) (camera.Camera, error) { return pylon.Open(o) }, "basler", "pylon")
	register(func(o camera.Options) (camera.Camera, error) { return vimba.Open(o) }, "alvium", "allied", "vimba")
	register(func(o camera.Options) (camera.Camera, error) { return galaxy.Open(o) }, "daheng", "galaxy", "venus")
}

// Vendors returns the accepted vendor names in alphabetical order
func Vendors() []string {
	out := make([]string, 0, len(vendors))
	for n := range vendors {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// permanent reports errors retrying cannot fix
func permanent(err error) bool {
	if errors.Is(err, camera.ErrSDKUnavailable) {
		return true
	}
	switch errors.Cause(err).(type) {
	case pylon.ErrNotFound, vimba.ErrNotFound, galaxy.ErrNotFound:
		return true
	}
	return false
}

// Open opens the camera cfg selects and applies its resolution and frame
// rate.  A camera whose presets fail is released again.
func Open(cfg Config, log *zap.SugaredLogger) (camera.Camera, error) {
	open, ok := vendors[strings.ToLower(strings.TrimSpace(cfg.Vendor))]
	if !ok {
		return nil, errors.Errorf("unknown camera vendor %q, use one of %s", cfg.Vendor, strings.Join(Vendors(), ", "))
	}
	var res camera.Resolution
	if cfg.Resolution != "" {
		var err error
		if res, err = camera.LookupResolution(cfg.Resolution); err != nil {
			return nil, err
		}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	opts := camera.Options{
		ID:          cfg.ID,
		PixelFormat: cfg.PixelFormat,
		Binning:     camera.Binning{H: cfg.BinX, V: cfg.BinY},
		Logger:      log,
	}

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	var cam camera.Camera
	op := func() error {
		var err error
		cam, err = open(opts)
		if err != nil && permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warnw("could not open camera, retrying", "vendor", cfg.Vendor, "id", cfg.ID, "error", err, "wait", wait)
	}
	// WithMaxRetries treats 0 as unlimited
	var b backoff.BackOff = &backoff.StopBackOff{}
	if cfg.OpenRetries > 0 {
		b = backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(cfg.OpenRetries))
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}

	if !res.Zero() {
		if err := cam.SetResolution(res); err != nil {
			cam.Release()
			return nil, errors.Wrapf(err, "set resolution %v", res)
		}
	}
	if cfg.FrameRate > 0 {
		if err := cam.SetFrameRate(cfg.FrameRate); err != nil {
			cam.Release()
			return nil, errors.Wrapf(err, "set frame rate %v", cfg.FrameRate)
		}
	}
	return cam, nil
}
