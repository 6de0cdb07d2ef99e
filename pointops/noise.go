package pointops

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// SaltAndPepper returns a copy of f in which about saltPercent of the
// pixels are set to 255 and about pepperPercent of the others to 0.  The
// same seed gives the same noise.
func SaltAndPepper(f *frame.Frame, saltPercent, pepperPercent float64, seed uint64) (*frame.Frame, error) {
	if err := requireGray(f, "salt and pepper"); err != nil {
		return nil, err
	}
	rnd := rand.New(rand.NewPCG(seed, seed))
	out := f.Clone()
	for y := 0; y < out.Height; y++ {
		row := out.Row(y)
		for x := range row {
			switch {
			case 100*rnd.Float64() < saltPercent:
				row[x] = 255
			case 100*rnd.Float64() < pepperPercent:
				row[x] = 0
			}
		}
	}
	return out, nil
}

// GaussianNoise adds zero mean normal noise of standard deviation sigma to
// every channel value of f, clamping to [0, 255]
func GaussianNoise(f *frame.Frame, sigma float64, seed uint64) *frame.Frame {
	n := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewPCG(seed, seed)}
	out := f.Clone()
	for y := 0; y < out.Height; y++ {
		row := out.Row(y)
		for i, v := range row {
			row[i] = clamp(float64(v) + n.Rand())
		}
	}
	return out
}

// MeanStdDev returns the mean and standard deviation of all channel values
func MeanStdDev(f *frame.Frame) (mean, std float64) {
	x := make([]float64, 0, len(f.Pix))
	for y := 0; y < f.Height; y++ {
		for _, v := range f.Row(y) {
			x = append(x, float64(v))
		}
	}
	return stat.MeanStdDev(x, nil)
}

// Difference holds the changes between two gray frames of a sequence
type Difference struct {
	// Abs is |current - previous|
	Abs *frame.Frame
	// Plus and Minus are the positive and negative parts of current - previous
	Plus, Minus *frame.Frame
	// Signed is a BGR frame, white where nothing changed, towards blue where
	// the value rose and towards red where it fell
	Signed *frame.Frame
}

// Differences compares the current with the previous gray frame
func Differences(current, previous *frame.Frame) (Difference, error) {
	var d Difference
	if err := requireGray(current, "difference"); err != nil {
		return d, err
	}
	if current.Width != previous.Width || current.Height != previous.Height || current.Channels != previous.Channels {
		return d, errors.Errorf("cannot compare %s with %s", current, previous)
	}
	w, h := current.Width, current.Height
	d = Difference{
		Abs:    frame.New(w, h, frame.Gray),
		Plus:   frame.New(w, h, frame.Gray),
		Minus:  frame.New(w, h, frame.Gray),
		Signed: frame.New(w, h, frame.BGR),
	}
	for y := 0; y < h; y++ {
		cur, prev := current.Row(y), previous.Row(y)
		abs, plus, minus := d.Abs.Row(y), d.Plus.Row(y), d.Minus.Row(y)
		signed := d.Signed.Row(y)
		for x := range cur {
			delta := int(cur[x]) - int(prev[x])
			bgr := signed[3*x : 3*x+3]
			bgr[0], bgr[1], bgr[2] = 255, 255, 255
			if delta > 0 {
				plus[x], abs[x] = byte(delta), byte(delta)
				bgr[1] -= byte(delta)
				bgr[2] -= byte(delta)
			} else if delta < 0 {
				minus[x], abs[x] = byte(-delta), byte(-delta)
				bgr[0] -= byte(-delta)
				bgr[1] -= byte(-delta)
			}
		}
	}
	return d, nil
}
