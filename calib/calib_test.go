package calib_test

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MarcOnTheMoon/imaging-learners/calib"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

func ExampleBoard_ImageFileName() {
	b := calib.DefaultBoard
	fmt.Println(b.ImageFileName(), b.ImageSize(), b.MarkerCount())
	// Output: CameraCalib_4x4-50_7x5.png (1440,1040) 17
}

func TestValidate(t *testing.T) {
	if err := calib.DefaultBoard.Validate(); err != nil {
		t.Errorf("default board: %v", err)
	}
	bad := []calib.Board{
		{SquaresX: 1, SquaresY: 5, SquarePx: 200, MarkerPx: 150},
		{SquaresX: 7, SquaresY: 5, SquarePx: 200, MarkerPx: 200},
		{SquaresX: 7, SquaresY: 5, SquarePx: 200, MarkerPx: 150, Margin: -1},
		{SquaresX: 11, SquaresY: 11, SquarePx: 200, MarkerPx: 150},
	}
	for _, b := range bad {
		if err := b.Validate(); err == nil {
			t.Errorf("expected %+v to be rejected", b)
		}
	}
}

func TestMarkerLayout(t *testing.T) {
	b := calib.DefaultBoard
	if !b.IsBlack(0, 0) || b.IsBlack(1, 0) {
		t.Error("top left square must be black")
	}
	cases := []struct{ id, x, y int }{
		{0, 1, 0},
		{2, 5, 0},
		{3, 0, 1},
		{16, 5, 4},
	}
	for _, c := range cases {
		x, y, err := b.MarkerSquare(c.id)
		if err != nil || x != c.x || y != c.y {
			t.Errorf("marker %d: got (%d,%d) %v, want (%d,%d)", c.id, x, y, err, c.x, c.y)
		}
	}
	if _, _, err := b.MarkerSquare(17); err == nil {
		t.Error("expected an error for marker 17")
	}
}

func TestMarkerObjectCorners(t *testing.T) {
	got, err := calib.DefaultBoard.MarkerObjectCorners(0)
	if err != nil {
		t.Fatal(err)
	}
	want := [4]calib.Point3{{X: 225, Y: 25}, {X: 375, Y: 25}, {X: 375, Y: 175}, {X: 225, Y: 175}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Error(diff)
	}
	r, _ := calib.DefaultBoard.MarkerRect(0)
	if r != image.Rect(245, 45, 395, 195) {
		t.Errorf("unexpected marker rect %v", r)
	}
}

func view(n int) calib.View {
	var v calib.View
	for i := 0; i < n; i++ {
		v.IDs = append(v.IDs, i)
		v.Corners = append(v.Corners, [4]calib.Point2{})
	}
	return v
}

func TestSessionAdd(t *testing.T) {
	s := calib.NewSession(calib.DefaultBoard)
	if err := s.Add(view(3)); !errors.Is(err, calib.ErrTooFewCorners) {
		t.Errorf("expected ErrTooFewCorners, got %v", err)
	}
	if err := s.Add(view(4)); err != nil {
		t.Fatal(err)
	}
	v := view(4)
	v.IDs[3] = 40
	if err := s.Add(v); err == nil {
		t.Error("expected an error for a marker off the board")
	}
	if s.Len() != 1 || len(s.Views()) != 1 {
		t.Errorf("expected one view, got %d", s.Len())
	}
	obj, img, err := calib.DefaultBoard.Correspondences(s.Views()[0])
	if err != nil || len(obj) != 16 || len(img) != 16 {
		t.Errorf("unexpected correspondences %d %d %v", len(obj), len(img), err)
	}
}

func sample() calib.Result {
	return calib.Result{
		Sensor:     "VEN-161-61U3C",
		Lens:       "Raspi-f6mm-F1.2",
		Matrix:     [3][3]float64{{1000, 0, 640}, {0, 1000, 360}, {0, 0, 1}},
		Distortion: [][]float64{{-0.1, 0.01, 0.001, 0.002, 0}},
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path, err := sample().Save(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "VEN-161-61U3C_Raspi-f6mm-F1.2.json" {
		t.Errorf("unexpected file name %s", path)
	}
	buf, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(buf), "{\n    \"Sensor\": \"VEN-161-61U3C\",\n    \"Lens\"") {
		t.Errorf("unexpected layout\n%s", buf)
	}
	got, err := calib.Load(dir, "VEN-161-61U3C", "Raspi-f6mm-F1.2")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sample(), got); diff != "" {
		t.Error(diff)
	}
	if _, err := calib.Load(dir, "other", "lens"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestCoefficients(t *testing.T) {
	want := calib.BrownConrady{K1: -0.1, K2: 0.01, P1: 0.001, P2: 0.002}
	if diff := cmp.Diff(want, sample().Coefficients()); diff != "" {
		t.Error(diff)
	}
	if (calib.Result{}).Coefficients() != (calib.BrownConrady{}) {
		t.Error("missing coefficients must be zero")
	}
}

func TestDistort(t *testing.T) {
	x, y := calib.BrownConrady{}.Distort(0.3, -0.2)
	if x != 0.3 || y != -0.2 {
		t.Errorf("zero model moved the point to %v,%v", x, y)
	}
	x, _ = calib.BrownConrady{K1: 0.5}.Distort(0.2, 0)
	r2 := 0.2 * 0.2
	if want := 0.2 * (1 + r2*0.5); x != want {
		t.Errorf("radial: got %v, want %v", x, want)
	}
}

func TestUndistortIdentity(t *testing.T) {
	f := frame.New(8, 6, frame.BGR)
	for i := range f.Pix {
		f.Pix[i] = byte(i)
	}
	r := calib.Result{Matrix: [3][3]float64{{10, 0, 4}, {0, 10, 3}, {0, 0, 1}}}
	out, err := calib.Undistort(f, r, [3][3]float64{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f.Pix, out.Pix); diff != "" {
		t.Error(diff)
	}
}

func TestMapGeometry(t *testing.T) {
	r := calib.Result{Matrix: [3][3]float64{{10, 0, 4}, {0, 10, 3}, {0, 0, 1}}}
	m, err := calib.NewMap(r, [3][3]float64{}, 8, 6)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Apply(frame.New(4, 4, frame.Gray)); !errors.Is(err, frame.ErrBadGeometry) {
		t.Errorf("expected ErrBadGeometry, got %v", err)
	}
	if _, err := calib.NewMap(calib.Result{}, [3][3]float64{}, 8, 6); err == nil {
		t.Error("expected an error for a singular matrix")
	}
}
