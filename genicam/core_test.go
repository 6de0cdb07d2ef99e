package genicam_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/genicam"
	"github.com/MarcOnTheMoon/imaging-learners/genicam/genicamtest"
)

var formats = map[camera.PixelFormat]string{camera.BGR8: "BGR8", camera.Mono8: "Mono8"}

func newCore(p genicam.Profile, f camera.PixelFormat) (*genicam.Core, *genicamtest.Device) {
	dev := genicamtest.New()
	if p.PixelFormats == nil {
		p.PixelFormats = formats
	}
	c := genicam.NewCore(dev, p, camera.Options{PixelFormat: f}, genicam.ModelName(dev, ""))
	return c, dev
}

func TestModelName(t *testing.T) {
	dev := genicamtest.New()
	if got := genicam.ModelName(dev, ""); got != "Acme Model-1" {
		t.Errorf("expected vendor and model, got %q", got)
	}
	if got := genicam.ModelName(dev, "Basler"); got != "Basler Model-1" {
		t.Errorf("expected prefix and model, got %q", got)
	}
}

func TestApplyPixelFormat(t *testing.T) {
	c, dev := newCore(genicam.Profile{}, camera.Mono8)
	if err := c.ApplyPixelFormat(); err != nil {
		t.Fatal(err)
	}
	if dev.Enums[genicam.PixelFormat] != "Mono8" {
		t.Errorf("expected Mono8, got %s", dev.Enums[genicam.PixelFormat])
	}
	dev.Entries[genicam.PixelFormat] = []string{"BayerRG8"}
	if err := c.ApplyPixelFormat(); err == nil {
		t.Error("expected an error for a pixel format the camera does not list")
	}
}

func TestFrameFallback(t *testing.T) {
	c, dev := newCore(genicam.Profile{}, camera.BGR8)
	if _, err := c.Frame(); !errors.Is(err, camera.ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame before streaming, got %v", err)
	}
	if err := c.StartStreaming(nil); err != nil {
		t.Fatal(err)
	}
	f, err := c.Frame()
	if err != nil {
		t.Fatal(err)
	}
	if f.String() != "1920x1080x3" || f.Pix[0] != 1 {
		t.Errorf("unexpected first frame %s value %d", f, f.Pix[0])
	}
	f.Pix[0] = 200

	dev.SetFail("Grab", errors.New("timeout"))
	again, err := c.Frame()
	if err != nil {
		t.Fatalf("expected the last frame on a failed grab, got %v", err)
	}
	if again.Pix[0] != 1 {
		t.Errorf("expected the cached frame untouched by the caller, got %d", again.Pix[0])
	}
}

func TestFrameMono(t *testing.T) {
	c, _ := newCore(genicam.Profile{}, camera.Mono8)
	if err := c.StartStreaming(nil); err != nil {
		t.Fatal(err)
	}
	f, err := c.Frame()
	if err != nil {
		t.Fatal(err)
	}
	if f.Channels != frame.Gray {
		t.Errorf("expected a gray frame, got %s", f)
	}
}

func TestSetResolutionRestartsStream(t *testing.T) {
	c, dev := newCore(genicam.Profile{RestartOnResize: true}, camera.BGR8)
	if err := c.StartStreaming(nil); err != nil {
		t.Fatal(err)
	}
	if err := c.SetResolution(camera.Resolution{Width: 640, Height: 480}); err != nil {
		t.Fatal(err)
	}
	want := []string{"Start", "Stop", "SetInt Width 640", "SetInt Height 480", "Start"}
	if diff := cmp.Diff(want, dev.CallLog()); diff != "" {
		t.Errorf("call sequence mismatch (-want +got):\n%s", diff)
	}
	r, _ := c.Resolution()
	if r.Width != 640 || r.Height != 480 {
		t.Errorf("expected 640x480, got %v", r)
	}
}

func TestSetResolutionWithoutRestart(t *testing.T) {
	c, dev := newCore(genicam.Profile{}, camera.BGR8)
	if err := c.StartStreaming(nil); err != nil {
		t.Fatal(err)
	}
	if err := c.SetResolution(camera.Resolution{Width: 1280, Height: 720}); err != nil {
		t.Fatal(err)
	}
	for _, call := range dev.CallLog() {
		if call == "Stop" {
			t.Error("stream was stopped although the profile does not ask for it")
		}
	}
}

func TestSetResolutionReadOnly(t *testing.T) {
	c, dev := newCore(genicam.Profile{}, camera.BGR8)
	dev.ReadOnly[genicam.Height] = true
	if err := c.SetResolution(camera.Resolution{Width: 640, Height: 480}); err == nil {
		t.Error("expected an error writing a read-only Height")
	}
	if err := c.SetResolution(camera.Resolution{}); !errors.Is(err, camera.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for a zero resolution, got %v", err)
	}
}

func halfStep(name string, v float64) float64 {
	return math.Round(v*2) / 2
}

func TestSetFrameRateTolerance(t *testing.T) {
	c, dev := newCore(genicam.Profile{FrameRateTolerance: 1, FrameRateEnable: genicam.FrameRateEnable}, camera.BGR8)
	dev.AdjustFloat = halfStep
	if err := c.SetFrameRate(24.3); err != nil {
		t.Fatalf("24.5 is within 1 fps of 24.3, got %v", err)
	}
	if !dev.Bools[genicam.FrameRateEnable] {
		t.Error("frame rate control was not enabled")
	}
	fps, _ := c.FrameRate()
	if fps != 24.5 {
		t.Errorf("expected 24.5 fps, got %v", fps)
	}
}

func TestSetFrameRateExact(t *testing.T) {
	c, dev := newCore(genicam.Profile{}, camera.BGR8)
	dev.AdjustFloat = halfStep
	if err := c.SetFrameRate(24.3); !errors.Is(err, camera.ErrNotApplied) {
		t.Errorf("expected ErrNotApplied, got %v", err)
	}
	if err := c.SetFrameRate(25); err != nil {
		t.Errorf("25 fps should be applied exactly, got %v", err)
	}
}

func TestSetBinning(t *testing.T) {
	c, dev := newCore(genicam.Profile{Binning: true}, camera.BGR8)
	if err := c.SetBinning(camera.Binning{H: 2, V: 2}); err != nil {
		t.Fatal(err)
	}
	if dev.Ints[genicam.BinningHorizontal] != 2 || dev.Ints[genicam.BinningVertical] != 2 {
		t.Errorf("binning not applied: %v", dev.Ints)
	}
	dev.ReadOnly[genicam.BinningVertical] = true
	if err := c.SetBinning(camera.Binning{H: 1, V: 1}); !errors.Is(err, camera.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported for read-only binning, got %v", err)
	}

	c, _ = newCore(genicam.Profile{}, camera.BGR8)
	if err := c.SetBinning(camera.Binning{H: 2, V: 2}); !errors.Is(err, camera.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}

func TestExposure(t *testing.T) {
	c, dev := newCore(genicam.Profile{}, camera.BGR8)
	dev.Enums[genicam.ExposureAuto] = "Continuous"

	r, err := c.ExposureRange()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(camera.ExposureRange{Min: 20 * time.Microsecond, Max: 10 * time.Second}, r); diff != "" {
		t.Errorf("exposure range mismatch (-want +got):\n%s", diff)
	}

	if err := c.SetExposureTime(5 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if m, _ := c.AutoExposure(); m != camera.Off {
		t.Errorf("auto exposure should be Off after a manual exposure, got %v", m)
	}
	if d, _ := c.ExposureTime(); d != 5*time.Millisecond {
		t.Errorf("expected 5ms, got %v", d)
	}

	if err := c.SetExposureTime(20 * time.Second); !errors.Is(err, camera.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestAutoModes(t *testing.T) {
	c, dev := newCore(genicam.Profile{}, camera.BGR8)
	c.SetAutos(camera.Continuous, camera.Continuous, camera.Once)
	want := map[string]string{
		genicam.ExposureAuto:     "Continuous",
		genicam.GainAuto:         "Continuous",
		genicam.BalanceWhiteAuto: "Once",
	}
	for k, v := range want {
		if dev.Enums[k] != v {
			t.Errorf("%s = %s, want %s", k, dev.Enums[k], v)
		}
	}
	if err := c.SetAutoGain(camera.Off); err != nil {
		t.Fatal(err)
	}
	if m, _ := c.AutoGain(); m != camera.Off {
		t.Errorf("expected gain auto Off, got %v", m)
	}
	if err := c.SetAutoWhiteBalance(camera.Continuous); err != nil {
		t.Fatal(err)
	}
	if m, _ := c.AutoWhiteBalance(); m != camera.Continuous {
		t.Errorf("expected white balance auto Continuous, got %v", m)
	}
	if err := c.SetAutofocus(camera.SwitchOn); !errors.Is(err, camera.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported for autofocus, got %v", err)
	}
}

func TestResetToSensor(t *testing.T) {
	c, dev := newCore(genicam.Profile{}, camera.BGR8)
	dev.Ints[genicam.Width] = 640
	dev.Ints[genicam.OffsetX] = 16
	if err := c.ResetToSensor(); err != nil {
		t.Fatal(err)
	}
	if dev.Ints[genicam.Width] != 1920 || dev.Ints[genicam.OffsetX] != 0 {
		t.Errorf("size not reset: %v", dev.Ints)
	}
}

func TestRelease(t *testing.T) {
	p := genicam.Profile{UserSet: "Default", ResetOnRelease: true, ResetMayFail: true}
	c, dev := newCore(p, camera.BGR8)
	if err := c.StartStreaming(nil); err != nil {
		t.Fatal(err)
	}
	dev.SetFail(genicam.DeviceReset, errors.New("device busy"))
	if err := c.Release(); err != nil {
		t.Fatalf("a failed reset should only warn, got %v", err)
	}
	want := []string{
		"Start",
		"Stop",
		"SetEnum UserSetSelector Default",
		"Execute UserSetLoad",
		"Execute DeviceReset",
		"Close",
	}
	if diff := cmp.Diff(want, dev.CallLog()); diff != "" {
		t.Errorf("release sequence mismatch (-want +got):\n%s", diff)
	}
	if _, err := c.Frame(); !errors.Is(err, camera.ErrNotOpen) {
		t.Errorf("expected ErrNotOpen after release, got %v", err)
	}
	if err := c.Release(); err != nil {
		t.Errorf("second release should be a no-op, got %v", err)
	}
}

func TestReleaseReportsReset(t *testing.T) {
	c, dev := newCore(genicam.Profile{ResetOnRelease: true}, camera.BGR8)
	dev.SetFail(genicam.DeviceReset, errors.New("device busy"))
	if err := c.Release(); err == nil {
		t.Error("expected the reset failure to be returned")
	}
	if !dev.Closed {
		t.Error("device was not closed after a failed reset")
	}
}

func TestGrabberFeedsFrame(t *testing.T) {
	c, dev := newCore(genicam.Profile{}, camera.BGR8)
	g := genicam.NewGrabber(10 * time.Millisecond)
	if err := c.StartStreaming(g); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.WaitStreaming(ctx, 5*time.Millisecond, 500, 0); err != nil {
		t.Fatal(err)
	}
	f, err := c.Frame()
	if err != nil {
		t.Fatal(err)
	}
	if f.Empty() {
		t.Error("expected a frame from the grabber")
	}
	if err := c.Release(); err != nil {
		t.Fatal(err)
	}
	if g.Running() {
		t.Error("grabber still running after release")
	}
	n := dev.Grabs()
	time.Sleep(30 * time.Millisecond)
	if dev.Grabs() != n {
		t.Error("grabs continued after release")
	}
}

func TestGettersAfterRelease(t *testing.T) {
	c, dev := newCore(genicam.Profile{}, camera.BGR8)
	if err := c.Release(); err != nil {
		t.Fatal(err)
	}
	calls := len(dev.CallLog())
	checks := map[string]error{}
	_, checks["Resolution"] = c.Resolution()
	_, checks["FrameRate"] = c.FrameRate()
	_, checks["ExposureRange"] = c.ExposureRange()
	_, checks["ExposureTime"] = c.ExposureTime()
	_, checks["AutoExposure"] = c.AutoExposure()
	_, checks["AutoGain"] = c.AutoGain()
	_, checks["AutoWhiteBalance"] = c.AutoWhiteBalance()
	checks["SetFrameRate"] = c.SetFrameRate(10)
	checks["SetAutofocus"] = c.SetAutofocus(camera.SwitchOn)
	for name, err := range checks {
		if !errors.Is(err, camera.ErrNotOpen) {
			t.Errorf("%s after release: expected ErrNotOpen, got %v", name, err)
		}
	}
	if got := dev.CallLog(); len(got) != calls {
		t.Errorf("closed device was called: %v", got[calls:])
	}
}

func TestClosedDeviceRejectsCalls(t *testing.T) {
	dev := genicamtest.New()
	dev.Close()
	if _, err := dev.Int(genicam.Width); !errors.Is(err, genicamtest.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if dev.IsWritable(genicam.Width) {
		t.Error("closed device reports writable nodes")
	}
}

func TestFrameRateMode(t *testing.T) {
	c, dev := newCore(genicam.Profile{FrameRateTolerance: 1, FrameRateMode: genicam.FrameRateMode}, camera.BGR8)
	dev.Enums[genicam.FrameRateMode] = "Off"
	if err := c.SetFrameRate(20); err != nil {
		t.Fatal(err)
	}
	if dev.Enums[genicam.FrameRateMode] != "On" {
		t.Error("frame rate mode not switched on")
	}
}
