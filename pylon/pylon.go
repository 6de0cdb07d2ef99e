/*
Package pylon drives Basler ace cameras through the pylon C API.

The SDK binding is only compiled with the pylon build tag:

	go build -tags pylon ./...

Without it Open returns camera.ErrSDKUnavailable, and the rest of the
package can still be used (and tested) with any genicam.Device.

Frames are grabbed on demand, one fresh image per call to Frame, which is
the behaviour of pylon's "latest image only" strategy as seen by a program
that polls the camera.
*/
package pylon

import (
	"time"

	"github.com/pkg/errors"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/genicam"
)

// Profile describes how pylon cameras deviate from the generic adapter
var Profile = genicam.Profile{
	Vendor: "Basler",
	PixelFormats: map[camera.PixelFormat]string{
		camera.BGR8:  "BGR8",
		camera.Mono8: "Mono8",
	},
	FrameRateEnable: genicam.FrameRateEnable,
	RestartOnResize: true,
	GrabTimeout:     5 * time.Second,
	UserSet:         "Default",
}

// Camera is a Basler camera
type Camera struct {
	*genicam.Core
}

// Open connects to the opts.ID'th Basler camera found on the system
func Open(opts camera.Options) (*Camera, error) {
	dev, err := openDevice(opts.ID)
	if err != nil {
		return nil, err
	}
	return New(dev, opts)
}

// New configures an open device the way Open does.  The device is closed
// when configuration fails.
func New(dev genicam.Device, opts camera.Options) (*Camera, error) {
	core := genicam.NewCore(dev, Profile, opts, genicam.ModelName(dev, "Basler"))
	log := core.Logger()
	if err := core.ApplyPixelFormat(); err != nil {
		dev.Close()
		return nil, err
	}
	if b := opts.Bin(); !b.None() {
		log.Warnw("binning not supported", "binning", b)
	}
	core.LogProperties()
	core.SetAutos(camera.Continuous, camera.Continuous, camera.Once)
	if err := core.StartStreaming(nil); err != nil {
		dev.Close()
		return nil, errors.Wrap(err, "start grabbing")
	}
	return &Camera{core}, nil
}

var _ camera.Camera = (*Camera)(nil)
