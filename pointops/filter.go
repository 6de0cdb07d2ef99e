package pointops

import (
	"sort"

	"github.com/disintegration/gift"
	"github.com/pkg/errors"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// Kernel is a filter mask of odd width and height, stored row by row
type Kernel struct {
	Width, Height int
	Weights       []float64
}

// Binomial3 is the 3x3 binomial smoothing mask before normalization
var Binomial3 = Kernel{3, 3, []float64{
	1, 2, 1,
	2, 4, 2,
	1, 2, 1,
}}

// Laplace4 is the 4-neighbour Laplace operator
var Laplace4 = Kernel{3, 3, []float64{
	0, 1, 0,
	1, -4, 1,
	0, 1, 0,
}}

// Box returns a normalized w x h mean filter
func Box(w, h int) Kernel {
	k := Kernel{w, h, make([]float64, w*h)}
	for i := range k.Weights {
		k.Weights[i] = 1 / float64(w*h)
	}
	return k
}

// Scaled returns k with every weight multiplied by s
func (k Kernel) Scaled(s float64) Kernel {
	out := Kernel{k.Width, k.Height, make([]float64, len(k.Weights))}
	for i, w := range k.Weights {
		out.Weights[i] = w * s
	}
	return out
}

func (k Kernel) check() error {
	if k.Width%2 == 0 || k.Height%2 == 0 || k.Width*k.Height != len(k.Weights) {
		return errors.Errorf("kernel %dx%d with %d weights", k.Width, k.Height, len(k.Weights))
	}
	return nil
}

func requireGray(f *frame.Frame, op string) error {
	if f.Channels != frame.Gray {
		return errors.Errorf("%s needs a gray frame, got %d channels", op, f.Channels)
	}
	return nil
}

func clamp(v float64) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return byte(v + 0.5)
}

// Correlate slides k over the gray frame f and returns the rounded, clamped
// sums.  Pixels closer to the border than the kernel radius keep their value.
func Correlate(f *frame.Frame, k Kernel) (*frame.Frame, error) {
	if err := requireGray(f, "correlate"); err != nil {
		return nil, err
	}
	if err := k.check(); err != nil {
		return nil, err
	}
	rx, ry := k.Width/2, k.Height/2
	out := f.Clone()
	for y := ry; y < f.Height-ry; y++ {
		dst := out.Row(y)
		for x := rx; x < f.Width-rx; x++ {
			sum := 0.
			i := 0
			for v := -ry; v <= ry; v++ {
				src := f.Row(y + v)
				for u := -rx; u <= rx; u++ {
					sum += k.Weights[i] * float64(src[x+u])
					i++
				}
			}
			dst[x] = clamp(sum)
		}
	}
	return out, nil
}

// Convolve is Correlate with the kernel mirrored in both axes
func Convolve(f *frame.Frame, k Kernel) (*frame.Frame, error) {
	m := Kernel{k.Width, k.Height, make([]float64, len(k.Weights))}
	for i, w := range k.Weights {
		m.Weights[len(k.Weights)-1-i] = w
	}
	return Correlate(f, m)
}

// Binomial smooths f with the 3x3 binomial mask in integer arithmetic,
// leaving the border pixels unchanged
func Binomial(f *frame.Frame) (*frame.Frame, error) {
	if err := requireGray(f, "binomial"); err != nil {
		return nil, err
	}
	out := f.Clone()
	for y := 1; y < f.Height-1; y++ {
		top, mid, bot := f.Row(y-1), f.Row(y), f.Row(y+1)
		dst := out.Row(y)
		for x := 1; x < f.Width-1; x++ {
			sum := int(top[x-1]) + 2*int(top[x]) + int(top[x+1]) +
				2*int(mid[x-1]) + 4*int(mid[x]) + 2*int(mid[x+1]) +
				int(bot[x-1]) + 2*int(bot[x]) + int(bot[x+1])
			dst[x] = byte((sum + 8) >> 4)
		}
	}
	return out, nil
}

// BinomialSeparable smooths f with the 1 2 1 mask first along the rows and
// then along the columns, dividing by shifts
func BinomialSeparable(f *frame.Frame) (*frame.Frame, error) {
	if err := requireGray(f, "binomial"); err != nil {
		return nil, err
	}
	tmp := f.Clone()
	for y := 0; y < f.Height; y++ {
		src, dst := f.Row(y), tmp.Row(y)
		for x := 1; x < f.Width-1; x++ {
			dst[x] = byte((int(src[x-1]) + 2*int(src[x]) + int(src[x+1]) + 2) >> 2)
		}
	}
	out := tmp.Clone()
	for y := 1; y < f.Height-1; y++ {
		top, mid, bot := tmp.Row(y-1), tmp.Row(y), tmp.Row(y+1)
		dst := out.Row(y)
		for x := range dst {
			dst[x] = byte((int(top[x]) + 2*int(mid[x]) + int(bot[x]) + 2) >> 2)
		}
	}
	return out, nil
}

// rank replaces every inner pixel of f by the value at position pick of the
// sorted size x size neighbourhood
func rank(f *frame.Frame, size int, op string, pick func(n int) int) (*frame.Frame, error) {
	if err := requireGray(f, op); err != nil {
		return nil, err
	}
	if size < 1 || size%2 == 0 {
		return nil, errors.Errorf("%s needs an odd size, got %d", op, size)
	}
	r := size / 2
	out := f.Clone()
	window := make([]byte, 0, size*size)
	for y := r; y < f.Height-r; y++ {
		dst := out.Row(y)
		for x := r; x < f.Width-r; x++ {
			window = window[:0]
			for v := -r; v <= r; v++ {
				window = append(window, f.Row(y + v)[x-r:x+r+1]...)
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			dst[x] = window[pick(len(window))]
		}
	}
	return out, nil
}

// Median replaces every inner pixel by the median of its size x size
// neighbourhood
func Median(f *frame.Frame, size int) (*frame.Frame, error) {
	return rank(f, size, "median", func(n int) int { return n / 2 })
}

// Minimum replaces every inner pixel by the smallest value of its
// neighbourhood
func Minimum(f *frame.Frame, size int) (*frame.Frame, error) {
	return rank(f, size, "minimum", func(int) int { return 0 })
}

// Maximum replaces every inner pixel by the largest value of its
// neighbourhood
func Maximum(f *frame.Frame, size int) (*frame.Frame, error) {
	return rank(f, size, "maximum", func(n int) int { return n - 1 })
}

// CorrelateLibrary filters f with gift's convolution filter.  gift does not
// mirror the kernel and replicates the border pixels.
func CorrelateLibrary(f *frame.Frame, k Kernel) (*frame.Frame, error) {
	if k.Width != k.Height {
		return nil, errors.Errorf("gift needs a square kernel, got %dx%d", k.Width, k.Height)
	}
	if err := k.check(); err != nil {
		return nil, err
	}
	w := make([]float32, len(k.Weights))
	for i, v := range k.Weights {
		w[i] = float32(v)
	}
	return library(f, gift.Convolution(w, false, false, false, 0)), nil
}

// MedianLibrary is Median through gift
func MedianLibrary(f *frame.Frame, size int) *frame.Frame {
	return library(f, gift.Median(size, false))
}

// MinimumLibrary is Minimum through gift
func MinimumLibrary(f *frame.Frame, size int) *frame.Frame {
	return library(f, gift.Minimum(size, false))
}

// MaximumLibrary is Maximum through gift
func MaximumLibrary(f *frame.Frame, size int) *frame.Frame {
	return library(f, gift.Maximum(size, false))
}

// MeanAbsDiff is the mean absolute difference of two frames of equal size
func MeanAbsDiff(a, b *frame.Frame) (float64, error) {
	if a.Width != b.Width || a.Height != b.Height || a.Channels != b.Channels {
		return 0, errors.Errorf("cannot compare %s with %s", a, b)
	}
	if a.Empty() {
		return 0, nil
	}
	sum := 0
	for y := 0; y < a.Height; y++ {
		ra, rb := a.Row(y), b.Row(y)
		for i := range ra {
			d := int(ra[i]) - int(rb[i])
			if d < 0 {
				d = -d
			}
			sum += d
		}
	}
	return float64(sum) / float64(a.Width*a.Height*a.Channels), nil
}
