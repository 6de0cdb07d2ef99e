package pointops_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/pointops"
)

// ramp is a gray frame whose values rise linearly in x and y
func ramp(w, h int) *frame.Frame {
	f := frame.New(w, h, frame.Gray)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Pix[y*w+x] = byte(10*x + 5*y)
		}
	}
	return f
}

// impulse is a gray frame of bg with one pixel set to v in the middle
func impulse(size int, bg, v byte) *frame.Frame {
	f := frame.New(size, size, frame.Gray)
	for i := range f.Pix {
		f.Pix[i] = bg
	}
	f.Pix[size/2*size+size/2] = v
	return f
}

// innerClose reports whether a and b differ by at most tol inside a border
// of width r
func innerClose(t *testing.T, a, b *frame.Frame, r int, tol int) {
	t.Helper()
	for y := r; y < a.Height-r; y++ {
		for x := r; x < a.Width-r; x++ {
			d := int(a.Pix[y*a.Width+x]) - int(b.Pix[y*b.Width+x])
			if d < -tol || d > tol {
				t.Fatalf("pixel (%d, %d): %d vs %d", x, y, a.Pix[y*a.Width+x], b.Pix[y*b.Width+x])
			}
		}
	}
}

func TestBinomialImpulse(t *testing.T) {
	out, err := pointops.Binomial(impulse(5, 0, 16))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0, 0, 0, 0, 0,
		0, 1, 2, 1, 0,
		0, 2, 4, 2, 0,
		0, 1, 2, 1, 0,
		0, 0, 0, 0, 0,
	}
	if diff := cmp.Diff(want, out.Pix); diff != "" {
		t.Error(diff)
	}
}

func TestBinomialMatchesCorrelate(t *testing.T) {
	f := frame.New(7, 6, frame.Gray)
	for i := range f.Pix {
		f.Pix[i] = byte(i * 37)
	}
	direct, err := pointops.Binomial(f)
	if err != nil {
		t.Fatal(err)
	}
	corr, err := pointops.Correlate(f, pointops.Binomial3.Scaled(1./16))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(direct.Pix, corr.Pix); diff != "" {
		t.Error(diff)
	}
}

func TestBinomialKeepsRamp(t *testing.T) {
	f := ramp(6, 5)
	full, _ := pointops.Binomial(f)
	sep, err := pointops.BinomialSeparable(f)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f.Pix, full.Pix); diff != "" {
		t.Errorf("3x3: %s", diff)
	}
	if diff := cmp.Diff(f.Pix, sep.Pix); diff != "" {
		t.Errorf("separable: %s", diff)
	}
	if _, err := pointops.BinomialSeparable(frame.New(3, 3, frame.BGR)); err == nil {
		t.Error("expected an error for a color frame")
	}
}

func TestBoxInvertsStripes(t *testing.T) {
	f := frame.New(12, 1, frame.Gray)
	for x := range f.Pix {
		if x%4 >= 2 {
			f.Pix[x] = 255
		}
	}
	out, err := pointops.Correlate(f, pointops.Box(5, 1))
	if err != nil {
		t.Fatal(err)
	}
	for x := 2; x < 10; x++ {
		bright := f.Pix[x] == 255
		if bright && out.Pix[x] != 102 || !bright && out.Pix[x] != 153 {
			t.Errorf("pixel %d of value %d filtered to %d", x, f.Pix[x], out.Pix[x])
		}
	}
}

func TestConvolveMirrors(t *testing.T) {
	f := gray(4, 3, 0, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0)
	left := pointops.Kernel{Width: 3, Height: 3, Weights: []float64{0, 0, 0, 1, 0, 0, 0, 0, 0}}
	corr, err := pointops.Correlate(f, left)
	if err != nil {
		t.Fatal(err)
	}
	conv, err := pointops.Convolve(f, left)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{1, 1, 2, 4}, corr.Row(1)); diff != "" {
		t.Errorf("correlation: %s", diff)
	}
	if diff := cmp.Diff([]byte{1, 3, 4, 4}, conv.Row(1)); diff != "" {
		t.Errorf("convolution: %s", diff)
	}
}

func TestKernelChecked(t *testing.T) {
	f := ramp(4, 4)
	if _, err := pointops.Correlate(f, pointops.Kernel{Width: 2, Height: 1, Weights: []float64{1, 1}}); err == nil {
		t.Error("expected an error for an even kernel")
	}
	if _, err := pointops.Correlate(f, pointops.Kernel{Width: 3, Height: 1, Weights: []float64{1}}); err == nil {
		t.Error("expected an error for missing weights")
	}
	if _, err := pointops.CorrelateLibrary(f, pointops.Box(3, 1)); err == nil {
		t.Error("expected an error for a non-square kernel")
	}
}

func TestCorrelateLibraryAgrees(t *testing.T) {
	f := ramp(8, 8)
	direct, err := pointops.Correlate(f, pointops.Box(3, 3))
	if err != nil {
		t.Fatal(err)
	}
	lib, err := pointops.CorrelateLibrary(f, pointops.Box(3, 3))
	if err != nil {
		t.Fatal(err)
	}
	innerClose(t, direct, lib, 1, 1)
}

func TestMedianRemovesImpulse(t *testing.T) {
	f := impulse(5, 100, 255)
	out, err := pointops.Median(f, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out.Pix {
		if v != 100 {
			t.Fatalf("pixel %d is %d", i, v)
		}
	}
	innerClose(t, out, pointops.MedianLibrary(f, 3), 1, 1)
	if _, err := pointops.Median(f, 4); err == nil {
		t.Error("expected an error for an even size")
	}
}

func TestMinimumMaximum(t *testing.T) {
	f := impulse(5, 0, 255)
	grown, err := pointops.Maximum(f, 3)
	if err != nil {
		t.Fatal(err)
	}
	shrunk, err := pointops.Minimum(f, 3)
	if err != nil {
		t.Fatal(err)
	}
	for y := 1; y < 4; y++ {
		for x := 1; x < 4; x++ {
			if grown.Pix[y*5+x] != 255 {
				t.Errorf("maximum left (%d, %d) at %d", x, y, grown.Pix[y*5+x])
			}
		}
	}
	if shrunk.Pix[12] != 0 {
		t.Error("minimum kept the impulse")
	}
	innerClose(t, grown, pointops.MaximumLibrary(f, 3), 1, 1)
	innerClose(t, shrunk, pointops.MinimumLibrary(f, 3), 1, 1)
}

func TestMeanAbsDiff(t *testing.T) {
	d, err := pointops.MeanAbsDiff(gray(4, 1, 0, 10, 20, 30), gray(4, 1, 2, 8, 20, 30))
	if err != nil {
		t.Fatal(err)
	}
	if d != 1 {
		t.Errorf("expected 1, got %v", d)
	}
	if _, err := pointops.MeanAbsDiff(gray(1, 1, 0), gray(2, 1, 0, 0)); err == nil {
		t.Error("expected an error for frames of different size")
	}
}
