package vimba_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/genicam"
	"github.com/MarcOnTheMoon/imaging-learners/genicam/genicamtest"
	"github.com/MarcOnTheMoon/imaging-learners/vimba"
)

func TestMain(m *testing.M) {
	vimba.StreamPoll = time.Millisecond
	vimba.StreamSettle = 0
	os.Exit(m.Run())
}

func TestNewStreams(t *testing.T) {
	dev := genicamtest.New()
	cam, err := vimba.New(dev, camera.Options{Binning: camera.Binning{H: 2, V: 2}})
	if err != nil {
		t.Fatal(err)
	}
	defer cam.Release()
	if dev.Ints[genicam.BinningHorizontal] != 2 || dev.Ints[genicam.BinningVertical] != 2 {
		t.Error("binning was not applied")
	}
	for _, f := range []string{genicam.ExposureAuto, genicam.GainAuto, genicam.BalanceWhiteAuto} {
		if m, _ := dev.Enum(f); m != "Continuous" {
			t.Errorf("%s = %s, want Continuous", f, m)
		}
	}
	f, err := cam.Frame()
	if err != nil {
		t.Fatal(err)
	}
	if f.Empty() {
		t.Error("expected a frame once New returned")
	}
	if cam.Name() != "Acme Model-1" {
		t.Errorf("unexpected name %q", cam.Name())
	}
}

func TestReleaseResetsDevice(t *testing.T) {
	dev := genicamtest.New()
	cam, err := vimba.New(dev, camera.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := cam.Release(); err != nil {
		t.Fatal(err)
	}
	calls := dev.CallLog()
	if n := len(calls); n < 3 || calls[n-3] != "Stop" || calls[n-2] != "Execute DeviceReset" || calls[n-1] != "Close" {
		t.Errorf("expected Stop, DeviceReset, Close at the end of %v", calls)
	}
}

func TestNewFailsOnBinning(t *testing.T) {
	dev := genicamtest.New()
	dev.ReadOnly[genicam.BinningVertical] = true
	_, err := vimba.New(dev, camera.Options{Binning: camera.Binning{H: 2, V: 2}})
	if !errors.Is(err, camera.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
	if !dev.Closed {
		t.Error("device left open")
	}
}

func TestNewFailsOnPixelFormat(t *testing.T) {
	dev := genicamtest.New()
	dev.Entries[genicam.PixelFormat] = []string{"Mono8"}
	if _, err := vimba.New(dev, camera.Options{PixelFormat: camera.BGR8}); err == nil {
		t.Error("expected an error for an unsupported pixel format")
	}
}

func TestNewFailsWithoutFrames(t *testing.T) {
	old := vimba.StreamPolls
	vimba.StreamPolls = 5
	defer func() { vimba.StreamPolls = old }()
	dev := genicamtest.New()
	dev.Fail["Grab"] = errors.New("no frames")
	if _, err := vimba.New(dev, camera.Options{}); err == nil {
		t.Fatal("expected an error when the stream never delivers")
	}
	if !dev.Closed {
		t.Error("device left open")
	}
}

func TestNewReportsFailedCleanup(t *testing.T) {
	old := vimba.StreamPolls
	vimba.StreamPolls = 5
	defer func() { vimba.StreamPolls = old }()
	dev := genicamtest.New()
	dev.Fail["Grab"] = errors.New("no frames")
	resetErr := errors.New("reset refused")
	dev.Fail[genicam.DeviceReset] = resetErr
	_, err := vimba.New(dev, camera.Options{})
	if !errors.Is(err, resetErr) {
		t.Errorf("expected the failed reset in %v", err)
	}
	if !dev.Closed {
		t.Error("device left open")
	}
}

func TestErrorNames(t *testing.T) {
	err := vimba.NewError("VmbCaptureFrameWait", -12)
	var verr vimba.Error
	if !errors.As(err, &verr) || !verr.Timeout() {
		t.Fatalf("expected a timeout error, got %v", err)
	}
	if err.Error() != "VmbCaptureFrameWait: -12 - VmbErrorTimeout" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if vimba.NewError("VmbStartup", 0) != nil {
		t.Error("VmbErrorSuccess must not be an error")
	}
}
