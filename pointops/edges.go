package pointops

import (
	"math"

	"github.com/disintegration/gift"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// Gradient approximates the derivatives with the central differences
// [-1 0 1]/2 and returns |gx|+|gy|.  Border pixels are zero.
func Gradient(f *frame.Frame) (*frame.Frame, error) {
	if err := requireGray(f, "gradient"); err != nil {
		return nil, err
	}
	out := frame.New(f.Width, f.Height, frame.Gray)
	for y := 1; y < f.Height-1; y++ {
		top, mid, bot := f.Row(y-1), f.Row(y), f.Row(y+1)
		dst := out.Row(y)
		for x := 1; x < f.Width-1; x++ {
			gx := float64(int(mid[x+1])-int(mid[x-1])) / 2
			gy := float64(int(bot[x])-int(top[x])) / 2
			dst[x] = clamp(math.Abs(gx) + math.Abs(gy))
		}
	}
	return out, nil
}

// Sobel returns the magnitude of the Sobel gradient, clamped to 255.
// Border pixels are zero.
func Sobel(f *frame.Frame) (*frame.Frame, error) {
	if err := requireGray(f, "sobel"); err != nil {
		return nil, err
	}
	out := frame.New(f.Width, f.Height, frame.Gray)
	for y := 1; y < f.Height-1; y++ {
		top, mid, bot := f.Row(y-1), f.Row(y), f.Row(y+1)
		dst := out.Row(y)
		for x := 1; x < f.Width-1; x++ {
			gx := int(top[x+1]) + 2*int(mid[x+1]) + int(bot[x+1]) -
				int(top[x-1]) - 2*int(mid[x-1]) - int(bot[x-1])
			gy := int(bot[x-1]) + 2*int(bot[x]) + int(bot[x+1]) -
				int(top[x-1]) - 2*int(top[x]) - int(top[x+1])
			dst[x] = clamp(math.Hypot(float64(gx), float64(gy)))
		}
	}
	return out, nil
}

// SobelLibrary is Sobel through gift, which replicates the border
func SobelLibrary(f *frame.Frame) *frame.Frame {
	return library(f, gift.Sobel())
}

// Smooth blurs f with gift's Gaussian filter
func Smooth(f *frame.Frame, sigma float32) *frame.Frame {
	return library(f, gift.GaussianBlur(sigma))
}

// ZeroCrossings applies Laplace4 to f and marks with 255 every pixel whose
// response changes sign towards its right or lower neighbour.  Smooth f
// first, the Laplacian of a raw image crosses zero on every bit of noise.
func ZeroCrossings(f *frame.Frame) (*frame.Frame, error) {
	if err := requireGray(f, "zero crossings"); err != nil {
		return nil, err
	}
	lap := make([]int, f.Width*f.Height)
	for y := 1; y < f.Height-1; y++ {
		top, mid, bot := f.Row(y-1), f.Row(y), f.Row(y+1)
		for x := 1; x < f.Width-1; x++ {
			lap[y*f.Width+x] = int(top[x]) + int(bot[x]) + int(mid[x-1]) + int(mid[x+1]) - 4*int(mid[x])
		}
	}
	out := frame.New(f.Width, f.Height, frame.Gray)
	for y := 1; y < f.Height-2; y++ {
		dst := out.Row(y)
		for x := 1; x < f.Width-2; x++ {
			v := lap[y*f.Width+x]
			if v*lap[y*f.Width+x+1] < 0 || v*lap[(y+1)*f.Width+x] < 0 {
				dst[x] = 255
			}
		}
	}
	return out, nil
}
