package calib

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// BrownConrady is the radial and tangential lens distortion model of OpenCV
type BrownConrady struct {
	K1, K2, P1, P2, K3 float64
}

// Distort maps ideal normalized image coordinates to distorted ones
func (d BrownConrady) Distort(x, y float64) (float64, float64) {
	r2 := x*x + y*y
	radial := 1 + r2*(d.K1+r2*(d.K2+r2*d.K3))
	xd := x*radial + 2*d.P1*x*y + d.P2*(r2+2*x*x)
	yd := y*radial + d.P1*(r2+2*y*y) + 2*d.P2*x*y
	return xd, yd
}

// Map is a precomputed undistortion of one image size
type Map struct {
	Width, Height int

	// src holds the source pixel index of every destination pixel, -1 for
	// pixels that map outside the image
	src []int
}

func dense(m [3][3]float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

// NewMap prepares the undistortion of width x height images.  Destination
// pixels are placed with newMatrix; a zero newMatrix keeps r.Matrix.
func NewMap(r Result, newMatrix [3][3]float64, width, height int) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(frame.ErrBadGeometry, "%dx%d", width, height)
	}
	if newMatrix == ([3][3]float64{}) {
		newMatrix = r.Matrix
	}
	var inv mat.Dense
	if err := inv.Inverse(dense(newMatrix)); err != nil {
		return nil, errors.Wrap(err, "invert camera matrix")
	}
	k := r.Matrix
	dist := r.Coefficients()
	m := &Map{Width: width, Height: height, src: make([]int, width*height)}
	for v := 0; v < height; v++ {
		for u := 0; u < width; u++ {
			fu, fv := float64(u), float64(v)
			x := inv.At(0, 0)*fu + inv.At(0, 1)*fv + inv.At(0, 2)
			y := inv.At(1, 0)*fu + inv.At(1, 1)*fv + inv.At(1, 2)
			w := inv.At(2, 0)*fu + inv.At(2, 1)*fv + inv.At(2, 2)
			xd, yd := dist.Distort(x/w, y/w)
			us := math.Round(k[0][0]*xd + k[0][1]*yd + k[0][2])
			vs := math.Round(k[1][1]*yd + k[1][2])
			i := v*width + u
			if us < 0 || vs < 0 || us >= float64(width) || vs >= float64(height) {
				m.src[i] = -1
				continue
			}
			m.src[i] = int(vs)*width + int(us)
		}
	}
	return m, nil
}

// Apply returns the undistorted copy of f by nearest neighbour lookup.
// Pixels without a source are black.
func (m *Map) Apply(f *frame.Frame) (*frame.Frame, error) {
	if f.Width != m.Width || f.Height != m.Height {
		return nil, errors.Wrapf(frame.ErrBadGeometry, "map for %dx%d, frame %v", m.Width, m.Height, f)
	}
	out := frame.New(f.Width, f.Height, f.Channels)
	ch := f.Channels
	for i, s := range m.src {
		if s < 0 {
			continue
		}
		x, y := i%m.Width, i/m.Width
		copy(out.At(x, y), f.At(s%m.Width, s/m.Width)[:ch])
	}
	return out, nil
}

// Undistort corrects the lens distortion of f in one call.  Use a Map for
// a sequence of frames.
func Undistort(f *frame.Frame, r Result, newMatrix [3][3]float64) (*frame.Frame, error) {
	m, err := NewMap(r, newMatrix, f.Width, f.Height)
	if err != nil {
		return nil, err
	}
	return m.Apply(f)
}
