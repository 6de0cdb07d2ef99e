/*
Package vimba drives Allied Vision Alvium cameras through the Vimba X C API.

The SDK binding is only compiled with the vimba build tag.  Frames are
delivered by a background goroutine cycling through Buffers announced frame
buffers, and Frame returns the newest complete one.

Binning on Alvium cameras only shrinks the image until the camera is reset;
Release therefore always runs DeviceReset.
*/
package vimba

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/genicam"
)

// Buffers is the number of frame buffers announced to the SDK
const Buffers = 10

var (
	// StreamPoll is the interval at which Open checks whether the stream is up
	StreamPoll = 50 * time.Millisecond

	// StreamPolls bounds the number of checks
	StreamPolls uint64 = 200

	// StreamSettle is waited after the first frame arrived so the auto
	// controls can converge
	StreamSettle = 500 * time.Millisecond
)

// Profile describes how Vimba cameras deviate from the generic adapter
var Profile = genicam.Profile{
	Vendor: "Allied Vision",
	PixelFormats: map[camera.PixelFormat]string{
		camera.BGR8:  "BGR8",
		camera.Mono8: "Mono8",
	},
	RestartOnResize: true,
	Binning:         true,
	GrabTimeout:     time.Second,
	ResetOnRelease:  true,
}

// Camera is an Alvium camera
type Camera struct {
	*genicam.Core
	grabber *genicam.Grabber
}

// Open connects to the opts.ID'th camera Vimba lists
func Open(opts camera.Options) (*Camera, error) {
	dev, err := openDevice(opts.ID)
	if err != nil {
		return nil, err
	}
	return New(dev, opts)
}

// New configures an open device and starts streaming.  It returns once the
// first frame arrived.
func New(dev genicam.Device, opts camera.Options) (*Camera, error) {
	core := genicam.NewCore(dev, Profile, opts, genicam.ModelName(dev, ""))
	if err := core.ApplyPixelFormat(); err != nil {
		dev.Close()
		return nil, err
	}
	if b := opts.Bin(); !b.None() {
		if err := core.SetBinning(b); err != nil {
			dev.Close()
			return nil, errors.Wrap(err, "set binning")
		}
	}
	core.LogProperties()
	core.SetAutos(camera.Continuous, camera.Continuous, camera.Continuous)

	g := genicam.NewGrabber(Profile.GrabTimeout)
	if err := core.StartStreaming(g); err != nil {
		dev.Close()
		return nil, err
	}
	if err := g.WaitStreaming(context.Background(), StreamPoll, StreamPolls, StreamSettle); err != nil {
		return nil, multierr.Append(err, core.Release())
	}
	core.Logger().Infow("streaming", "buffers", Buffers)
	return &Camera{Core: core, grabber: g}, nil
}

// Dropped is the number of failed or incomplete grabs since Open
func (c *Camera) Dropped() uint64 {
	return c.grabber.Failures()
}

var _ camera.Camera = (*Camera)(nil)
