//go:build !nocv

package charuco

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/MarcOnTheMoon/imaging-learners/calib"
	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/display"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// Options configure Interactive
type Options struct {
	// Sensor and Lens name the result file
	Sensor, Lens string

	// Dir receives the result file
	Dir string

	// FPS is the preview rate, default 24
	FPS float64

	Logger *zap.SugaredLogger
}

// Interactive previews cam at half size.  Pressing c adds the current frame
// as a view and Esc solves the calibration from the collected views and
// saves it as {Sensor}_{Lens}.json.
func Interactive(cam camera.Camera, b calib.Board, opts Options) (calib.Result, string, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = 24
	}
	res := calib.Result{Sensor: opts.Sensor, Lens: opts.Lens}
	if err := b.Validate(); err != nil {
		return res, "", err
	}
	session := calib.NewSession(b)

	w := display.NewWindow(cam.Name() + " (Press 'c' to add an image, <Esc> to stop acquisition)")
	defer w.Close()
	w.Scale = PreviewScale
	w.TopMost()
	markers := display.NewWindow("Detected ArUco markers")
	defer markers.Close()

	wait := int(time.Second / time.Duration(fps) / time.Millisecond)
	var last *frame.Frame
	for {
		f, err := cam.Frame()
		if err != nil {
			return res, "", err
		}
		last = f
		if err := w.Show(f); err != nil {
			return res, "", err
		}
		key := display.WaitKey(wait)
		if key == display.KeyEsc {
			break
		}
		if key != 'c' && key != 'C' {
			continue
		}
		v, preview, err := Detect(b, f)
		if err != nil {
			return res, "", err
		}
		markers.Show(preview)
		if err := session.Add(v); err != nil {
			log.Warnw("view not added", "markers", v.Len(), "error", err)
			continue
		}
		log.Infow("view added", "markers", v.Len(), "views", session.Len())
	}

	if session.Len() == 0 {
		return res, "", errors.New("calibration stopped without views")
	}
	k, dist, rms, err := Calibrate(session, last.Bounds().Size())
	if err != nil {
		return res, "", err
	}
	res.Matrix = k
	res.Distortion = [][]float64{dist}
	log.Infow("calibrated", "views", session.Len(), "rms", rms)
	path, err := res.Save(opts.Dir)
	return res, path, err
}
