package pointops_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/pointops"
)

func gray(w, h int, pix ...byte) *frame.Frame {
	f, err := frame.FromBytes(w, h, frame.Gray, w, pix)
	if err != nil {
		panic(err)
	}
	return f
}

func ExampleInvert() {
	f := gray(4, 1, 0, 1, 128, 255)
	fmt.Println(pointops.Invert(f).Pix)
	// Output: [255 254 127 0]
}

func TestInversionsAgree(t *testing.T) {
	f := frame.New(5, 3, frame.BGR)
	for i := range f.Pix {
		f.Pix[i] = byte(i * 17)
	}
	want := pointops.Invert(f)
	if diff := cmp.Diff(want.Pix, pointops.InvertLUT(f).Pix); diff != "" {
		t.Errorf("LUT: %s", diff)
	}
	if diff := cmp.Diff(want.Pix, pointops.InvertLibrary(f).Pix); diff != "" {
		t.Errorf("library: %s", diff)
	}
	g := gray(3, 1, 10, 20, 30)
	if diff := cmp.Diff([]byte{245, 235, 225}, pointops.InvertLibrary(g).Pix); diff != "" {
		t.Errorf("library gray: %s", diff)
	}
}

func TestInvertLeavesInput(t *testing.T) {
	f := gray(2, 1, 1, 2)
	pointops.Invert(f)
	pointops.InvertLUT(f)
	if diff := cmp.Diff([]byte{1, 2}, f.Pix); diff != "" {
		t.Error(diff)
	}
}

func TestHistogram(t *testing.T) {
	f := gray(3, 2, 0, 0, 5, 5, 5, 255)
	h, err := pointops.NewHistogram(f, 0)
	if err != nil {
		t.Fatal(err)
	}
	if h[0] != 2 || h[5] != 3 || h[255] != 1 || h.Total() != 6 {
		t.Errorf("unexpected counts %v %v %v", h[0], h[5], h[255])
	}
	c := h.Cumulative()
	if c[4] != 2 || c[5] != 5 || c[255] != 6 {
		t.Errorf("unexpected cumulative counts %v %v %v", c[4], c[5], c[255])
	}
	if _, err := pointops.NewHistogram(f, 1); err == nil {
		t.Error("expected an error for a missing channel")
	}
}

func TestHistogramChannel(t *testing.T) {
	f := frame.New(2, 1, frame.BGR)
	copy(f.Pix, []byte{1, 2, 3, 1, 9, 3})
	h, err := pointops.NewHistogram(f, 1)
	if err != nil {
		t.Fatal(err)
	}
	if h[2] != 1 || h[9] != 1 || h.Total() != 2 {
		t.Error("green channel not counted")
	}
}

func TestStats(t *testing.T) {
	h, _ := pointops.NewHistogram(gray(4, 1, 2, 4, 4, 6), 0)
	s, err := h.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if s.Mean != 4 || s.Median != 4 || s.Min != 2 || s.Max != 6 {
		t.Errorf("unexpected summary %v", s)
	}
	var empty pointops.Histogram
	if _, err := empty.Stats(); err == nil {
		t.Error("expected an error for an empty histogram")
	}
}

func TestStretch(t *testing.T) {
	out, err := pointops.Stretch(gray(3, 1, 100, 150, 200))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0, 128, 255}, out.Pix); diff != "" {
		t.Error(diff)
	}
	flat, _ := pointops.Stretch(gray(2, 1, 7, 7))
	if diff := cmp.Diff([]byte{7, 7}, flat.Pix); diff != "" {
		t.Errorf("flat image: %s", diff)
	}
}

func TestEqualize(t *testing.T) {
	out, err := pointops.Equalize(gray(4, 1, 10, 10, 20, 30))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0, 0, 128, 255}, out.Pix); diff != "" {
		t.Error(diff)
	}
	if _, err := pointops.Equalize(frame.New(1, 1, frame.BGR)); err == nil {
		t.Error("expected an error for a color frame")
	}
}

func TestPlotHistogram(t *testing.T) {
	h, _ := pointops.NewHistogram(gray(3, 1, 0, 128, 255), 0)
	path := filepath.Join(t.TempDir(), "hist.png")
	if err := pointops.PlotHistogram(h, path); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil || fi.Size() == 0 {
		t.Errorf("no plot written: %v", err)
	}
}

func TestPrintHistogram(t *testing.T) {
	var buf bytes.Buffer
	if err := pointops.PrintHistogram(&buf, gray(4, 1, 0, 0, 100, 255), 4, 20); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) == "" {
		t.Error("nothing printed")
	}
}

func TestTimed(t *testing.T) {
	ran := false
	r := pointops.Timed("noop", func() { ran = true })
	if !ran || r.Name != "noop" || r.Elapsed < 0 {
		t.Errorf("unexpected runtime %v", r)
	}
}
