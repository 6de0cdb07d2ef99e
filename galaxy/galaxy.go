/*
Package galaxy drives Daheng Imaging Venus and Mercury cameras through the
Galaxy C API (GxIAPI).

The SDK binding is only compiled with the galaxy build tag.  The cameras
deliver raw Bayer or Mono8 images; color frames are demosaiced in Go by
neighbour interpolation and handed out as BGR.
*/
package galaxy

import (
	"time"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/genicam"
)

// Profile describes how Galaxy cameras deviate from the generic adapter
var Profile = genicam.Profile{
	Vendor:             "Daheng Imaging",
	FrameRateTolerance: 1.0,
	FrameRateMode:      genicam.FrameRateMode,
	RestartOnResize:    true,
	Binning:            true,
	GrabTimeout:        time.Second,
	ResetOnRelease:     true,
	ResetMayFail:       true,
}

// Camera is a Daheng camera
type Camera struct {
	*genicam.Core
}

// Open connects to the opts.ID'th camera in the Galaxy device list
func Open(opts camera.Options) (*Camera, error) {
	dev, err := openDevice(opts.ID)
	if err != nil {
		return nil, err
	}
	return New(dev, opts)
}

// New configures an open device and turns the stream on.  Binning the
// camera cannot do is reported as a warning only.
func New(dev genicam.Device, opts camera.Options) (*Camera, error) {
	core := genicam.NewCore(dev, Profile, opts, genicam.ModelName(dev, ""))
	log := core.Logger()
	if err := core.ResetToSensor(); err != nil {
		log.Warnw("could not reset image size to the sensor size", "error", err)
	}
	if b := opts.Bin(); !b.None() {
		if err := core.SetBinning(b); err != nil && err != camera.ErrNotSupported {
			log.Warnw("could not set binning", "binning", b, "error", err)
		}
	}
	core.LogProperties()
	core.SetAutos(camera.Continuous, camera.Continuous, camera.Once)
	if err := core.StartStreaming(nil); err != nil {
		dev.Close()
		return nil, err
	}
	return &Camera{core}, nil
}

var _ camera.Camera = (*Camera)(nil)
