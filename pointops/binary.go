package pointops

import (
	"github.com/pkg/errors"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// Threshold sets pixels above t to 255 and all others to 0, or the other
// way round when invert is set
func Threshold(f *frame.Frame, t byte, invert bool) (*frame.Frame, error) {
	if err := requireGray(f, "threshold"); err != nil {
		return nil, err
	}
	var fg, bg byte = 255, 0
	if invert {
		fg, bg = 0, 255
	}
	return Apply(f, NewLUT(func(v byte) byte {
		if v > t {
			return fg
		}
		return bg
	})), nil
}

// ContrastThreshold thresholds f at min + percent/100 * (max - min) of its
// values and returns the threshold used
func ContrastThreshold(f *frame.Frame, percent float64) (*frame.Frame, byte, error) {
	h, err := NewHistogram(f, 0)
	if err != nil {
		return nil, 0, err
	}
	lo, hi, ok := h.Range()
	if !ok {
		return nil, 0, errors.New("empty frame")
	}
	t := clamp(float64(lo) + percent/100*float64(int(hi)-int(lo)))
	out, err := Threshold(f, t, false)
	return out, t, err
}

// TileThreshold splits f into tiles x tiles regions, the last row and
// column taking the remainder, and thresholds each at half its value range
func TileThreshold(f *frame.Frame, tiles int) (*frame.Frame, error) {
	if err := requireGray(f, "threshold"); err != nil {
		return nil, err
	}
	if tiles < 1 || tiles > f.Width || tiles > f.Height {
		return nil, errors.Errorf("cannot split a %s frame into %d tiles per axis", f, tiles)
	}
	dx, dy := f.Width/tiles, f.Height/tiles
	out := frame.New(f.Width, f.Height, frame.Gray)
	for ky := 0; ky < tiles; ky++ {
		y0, y1 := ky*dy, (ky+1)*dy
		if ky == tiles-1 {
			y1 = f.Height
		}
		for kx := 0; kx < tiles; kx++ {
			x0, x1 := kx*dx, (kx+1)*dx
			if kx == tiles-1 {
				x1 = f.Width
			}
			lo, hi := byte(255), byte(0)
			for y := y0; y < y1; y++ {
				for _, v := range f.Row(y)[x0:x1] {
					if v < lo {
						lo = v
					}
					if v > hi {
						hi = v
					}
				}
			}
			t := float64(hi-lo) / 2
			for y := y0; y < y1; y++ {
				src, dst := f.Row(y)[x0:x1], out.Row(y)[x0:x1]
				for i, v := range src {
					if float64(v) > t {
						dst[i] = 255
					}
				}
			}
		}
	}
	return out, nil
}

// IsodataThreshold finds the threshold halfway between the mean values
// below and above it by iterating from the image mean, and applies it
func IsodataThreshold(f *frame.Frame) (*frame.Frame, byte, error) {
	h, err := NewHistogram(f, 0)
	if err != nil {
		return nil, 0, err
	}
	if h.Total() == 0 {
		return nil, 0, errors.New("empty frame")
	}
	mean := func(from, to int) (float64, bool) {
		n, sum := 0, 0
		for v := from; v < to; v++ {
			n += h[v]
			sum += v * h[v]
		}
		if n == 0 {
			return 0, false
		}
		return float64(sum) / float64(n), true
	}
	m, _ := mean(0, 256)
	t := int(m)
	for i := 0; i < 256; i++ {
		lo, okLo := mean(0, t+1)
		hi, okHi := mean(t+1, 256)
		if !okLo || !okHi {
			break
		}
		next := int((lo + hi) / 2)
		if next == t {
			break
		}
		t = next
	}
	out, err := Threshold(f, byte(t), false)
	return out, byte(t), err
}

// Bernsen thresholds every pixel at the mid-range of its (2 radius + 1)
// square neighbourhood, clipped at the frame border.  Neighbourhoods whose
// range is below minContrast are set to background.
func Bernsen(f *frame.Frame, radius int, minContrast, background byte) (*frame.Frame, error) {
	if err := requireGray(f, "bernsen"); err != nil {
		return nil, err
	}
	if radius < 0 {
		return nil, errors.Errorf("negative radius %d", radius)
	}
	out := frame.New(f.Width, f.Height, frame.Gray)
	for y := 0; y < f.Height; y++ {
		y0, y1 := max(0, y-radius), min(f.Height, y+radius+1)
		dst := out.Row(y)
		src := f.Row(y)
		for x := 0; x < f.Width; x++ {
			x0, x1 := max(0, x-radius), min(f.Width, x+radius+1)
			lo, hi := byte(255), byte(0)
			for v := y0; v < y1; v++ {
				for _, p := range f.Row(v)[x0:x1] {
					lo = min(lo, p)
					hi = max(hi, p)
				}
			}
			switch {
			case hi-lo < minContrast:
				dst[x] = background
			case int(src[x]) > (int(lo)+int(hi))/2:
				dst[x] = 255
			}
		}
	}
	return out, nil
}

// Erode3x3 keeps a binary pixel set only where its whole 3x3 neighbourhood
// is set.  Border pixels are cleared.
func Erode3x3(f *frame.Frame) (*frame.Frame, error) {
	return morph3x3(f, "erode", func(n int) bool { return n == 9 })
}

// Dilate3x3 sets a binary pixel where any pixel of its 3x3 neighbourhood is
// set.  Border pixels are cleared.
func Dilate3x3(f *frame.Frame) (*frame.Frame, error) {
	return morph3x3(f, "dilate", func(n int) bool { return n > 0 })
}

// morph3x3 counts the set pixels around every inner pixel
func morph3x3(f *frame.Frame, op string, set func(n int) bool) (*frame.Frame, error) {
	if err := requireGray(f, op); err != nil {
		return nil, err
	}
	out := frame.New(f.Width, f.Height, frame.Gray)
	for y := 1; y < f.Height-1; y++ {
		dst := out.Row(y)
		for x := 1; x < f.Width-1; x++ {
			n := 0
			for v := y - 1; v <= y+1; v++ {
				for _, p := range f.Row(v)[x-1 : x+2] {
					if p != 0 {
						n++
					}
				}
			}
			if set(n) {
				dst[x] = 255
			}
		}
	}
	return out, nil
}
