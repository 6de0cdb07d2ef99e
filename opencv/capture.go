//go:build !nocv

package opencv

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

var properties = map[Property]gocv.VideoCaptureProperties{
	Width:        gocv.VideoCaptureFrameWidth,
	Height:       gocv.VideoCaptureFrameHeight,
	FPS:          gocv.VideoCaptureFPS,
	Exposure:     gocv.VideoCaptureExposure,
	AutoExposure: gocv.VideoCaptureAutoExposure,
	AutoFocus:    gocv.VideoCaptureAutoFocus,
	AutoWB:       gocv.VideoCaptureAutoWB,
	FrameCount:   gocv.VideoCaptureFrameCount,
	PosFrames:    gocv.VideoCapturePosFrames,
}

type videoCapture struct {
	vc  *gocv.VideoCapture
	buf gocv.Mat
}

func open(vc *gocv.VideoCapture, err error) (Capture, error) {
	if err != nil {
		return nil, err
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.New("capture not opened")
	}
	return &videoCapture{vc: vc, buf: gocv.NewMat()}, nil
}

func openDevice(id int) (Capture, error) {
	return open(gocv.VideoCaptureDevice(id))
}

func openFile(path string) (Capture, error) {
	return open(gocv.VideoCaptureFile(path))
}

func (v *videoCapture) Read() (*frame.Frame, bool) {
	if !v.vc.Read(&v.buf) || v.buf.Empty() {
		return nil, false
	}
	f, err := FromMat(v.buf)
	if err != nil {
		return nil, false
	}
	if f.Channels != frame.BGR {
		f = f.ToBGR()
	}
	return f, true
}

func (v *videoCapture) Get(p Property) float64 {
	return v.vc.Get(properties[p])
}

func (v *videoCapture) Set(p Property, val float64) {
	v.vc.Set(properties[p], val)
}

func (v *videoCapture) Close() error {
	v.buf.Close()
	return v.vc.Close()
}
