//go:build !nocv

package opencv

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// FromMat copies an 8-bit Mat with 1, 3 or 4 channels into a frame.  Four
// channel images lose their alpha.
func FromMat(m gocv.Mat) (*frame.Frame, error) {
	switch m.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3:
	case gocv.MatTypeCV8UC4:
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(m, &bgr, gocv.ColorBGRAToBGR)
		m = bgr
	default:
		return nil, errors.Errorf("unsupported Mat type %v", m.Type())
	}
	w, h, ch := m.Cols(), m.Rows(), m.Channels()
	return frame.FromBytes(w, h, ch, w*ch, m.ToBytes())
}

// ToMat copies a frame into a new Mat, which the caller must Close
func ToMat(f *frame.Frame) (gocv.Mat, error) {
	if f.Empty() {
		return gocv.NewMat(), frame.ErrBadGeometry
	}
	mt := gocv.MatTypeCV8UC3
	switch f.Channels {
	case frame.Gray:
		mt = gocv.MatTypeCV8UC1
	case frame.BGR:
	default:
		return gocv.NewMat(), errors.Wrapf(frame.ErrBadGeometry, "%d channels", f.Channels)
	}
	pix := f.Pix
	if f.Stride != f.Width*f.Channels {
		pix = make([]byte, 0, f.Width*f.Height*f.Channels)
		for y := 0; y < f.Height; y++ {
			pix = append(pix, f.Row(y)...)
		}
	}
	return gocv.NewMatFromBytes(f.Height, f.Width, mt, pix)
}
