/*
Package pointops holds the pixel operations of the lecture: gray value
inversion, lookup tables, histograms and the contrast operations built on
them, the smoothing and rank filters, edge detectors, thresholds and the
binary morphology of the later chapters.

Several operations exist twice on purpose, once as a plain loop over the
pixels and once through a library routine, so the lecture programs can
compare their runtimes with Timed.
*/
package pointops

import (
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/disintegration/gift"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// LUT maps every 8-bit value to a new one
type LUT [256]byte

// NewLUT tabulates fn
func NewLUT(fn func(v byte) byte) LUT {
	var l LUT
	for i := range l {
		l[i] = fn(byte(i))
	}
	return l
}

// InvertTable maps v to 255-v
var InvertTable = NewLUT(func(v byte) byte { return 255 - v })

// Apply returns a copy of f with every channel value mapped through lut
func Apply(f *frame.Frame, lut LUT) *frame.Frame {
	out := f.Clone()
	for y := 0; y < out.Height; y++ {
		row := out.Row(y)
		for i, v := range row {
			row[i] = lut[v]
		}
	}
	return out
}

// Invert returns the negative of f, visiting every pixel and channel
func Invert(f *frame.Frame) *frame.Frame {
	out := f.Clone()
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			p := out.At(x, y)
			for c := range p {
				p[c] = 255 - p[c]
			}
		}
	}
	return out
}

// InvertLUT returns the negative of f through InvertTable
func InvertLUT(f *frame.Frame) *frame.Frame {
	return Apply(f, InvertTable)
}

// InvertLibrary returns the negative of f using gift's invert filter
func InvertLibrary(f *frame.Frame) *frame.Frame {
	return library(f, gift.Invert())
}

// library runs f through the gift filters, keeping its channel count
func library(f *frame.Frame, filters ...gift.Filter) *frame.Frame {
	g := gift.New(filters...)
	src := f.ToImage()
	var dst draw.Image
	if f.Channels == frame.Gray {
		dst = image.NewGray(g.Bounds(src.Bounds()))
	} else {
		dst = image.NewRGBA(g.Bounds(src.Bounds()))
	}
	g.Draw(dst, src)
	return frame.FromImage(dst)
}

// Runtime is the duration of one run of an operation
type Runtime struct {
	Name    string
	Elapsed time.Duration
}

func (r Runtime) String() string {
	return fmt.Sprintf("%-16s: %v", r.Name, r.Elapsed)
}

// Timed runs fn once and measures it
func Timed(name string, fn func()) Runtime {
	start := time.Now()
	fn()
	return Runtime{Name: name, Elapsed: time.Since(start)}
}
