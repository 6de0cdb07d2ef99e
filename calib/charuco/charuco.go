//go:build !nocv

// Package charuco detects ChArUco boards and solves the camera calibration
// with OpenCV.  Views are built from the corners of the detected ArUco
// markers, whose board positions calib.Board knows.
package charuco

import (
	"image"
	"path/filepath"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/MarcOnTheMoon/imaging-learners/calib"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/opencv"
)

// PreviewScale is the size of detection previews relative to the frame
const PreviewScale = 0.5

// GenerateBoardImage renders b as a gray image with margins
func GenerateBoardImage(b calib.Board) (*frame.Frame, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	size := b.ImageSize()
	img := frame.New(size.X, size.Y, frame.Gray)
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 0; y < b.SquaresY; y++ {
		for x := 0; x < b.SquaresX; x++ {
			if !b.IsBlack(x, y) {
				continue
			}
			x0, y0 := b.Margin+x*b.SquarePx, b.Margin+y*b.SquarePx
			for row := y0; row < y0+b.SquarePx; row++ {
				line := img.Row(row)[x0 : x0+b.SquarePx]
				for i := range line {
					line[i] = 0
				}
			}
		}
	}
	marker := gocv.NewMat()
	defer marker.Close()
	for id := 0; id < b.MarkerCount(); id++ {
		gocv.ArucoGenerateImageMarker(gocv.ArucoDict4x4_50, id, b.MarkerPx, marker, 1)
		m, err := opencv.FromMat(marker)
		if err != nil {
			return nil, errors.Wrapf(err, "marker %d", id)
		}
		r, _ := b.MarkerRect(id)
		for row := 0; row < m.Height && row < r.Dy(); row++ {
			copy(img.Row(r.Min.Y + row)[r.Min.X:r.Max.X], m.Row(row))
		}
	}
	return img, nil
}

// SaveBoardImage writes the board image to dir and returns its path
func SaveBoardImage(b calib.Board, dir string) (string, error) {
	img, err := GenerateBoardImage(b)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, b.ImageFileName())
	return path, frame.Save(path, img)
}

// Detect finds the markers of b in f.  The preview is a half size copy of
// f with the detected markers outlined.
func Detect(b calib.Board, f *frame.Frame) (calib.View, *frame.Frame, error) {
	var v calib.View
	m, err := opencv.ToMat(f)
	if err != nil {
		return v, nil, err
	}
	defer m.Close()
	det := gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(gocv.ArucoDict4x4_50), gocv.NewArucoDetectorParameters())
	defer det.Close()
	corners, ids, _ := det.DetectMarkers(m)
	for i, id := range ids {
		if id >= b.MarkerCount() || len(corners[i]) != 4 {
			continue
		}
		var c [4]calib.Point2
		for j, p := range corners[i] {
			c[j] = calib.Point2{X: float64(p.X), Y: float64(p.Y)}
		}
		v.IDs = append(v.IDs, id)
		v.Corners = append(v.Corners, c)
	}

	annotated := gocv.NewMat()
	defer annotated.Close()
	if f.Channels == frame.Gray {
		gocv.CvtColor(m, &annotated, gocv.ColorGrayToBGR)
	} else {
		m.CopyTo(&annotated)
	}
	if len(ids) > 0 {
		gocv.ArucoDrawDetectedMarkers(annotated, corners, ids, gocv.NewScalar(0, 255, 0, 0))
	}
	full, err := opencv.FromMat(annotated)
	if err != nil {
		return v, nil, err
	}
	preview, err := frame.Scale(full, PreviewScale)
	return v, preview, err
}

func matrixOf(m gocv.Mat) [3][3]float64 {
	var k [3][3]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			k[r][c] = m.GetDoubleAt(r, c)
		}
	}
	return k
}

func matOf(k [3][3]float64) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, k[r][c])
		}
	}
	return m
}

func distortionMat(r calib.Result) gocv.Mat {
	d := r.Coefficients()
	m := gocv.NewMatWithSize(1, 5, gocv.MatTypeCV64F)
	for i, v := range []float64{d.K1, d.K2, d.P1, d.P2, d.K3} {
		m.SetDoubleAt(0, i, v)
	}
	return m
}

// Calibrate solves the intrinsic matrix and distortion from the views of s.
// rms is the reprojection error in pixels.
func Calibrate(s *calib.Session, imageSize image.Point) (matrix [3][3]float64, distortion []float64, rms float64, err error) {
	views := s.Views()
	if len(views) == 0 {
		return matrix, nil, 0, errors.New("calibrate: no views collected")
	}
	objPts := gocv.NewPoints3fVector()
	defer objPts.Close()
	imgPts := gocv.NewPoints2fVector()
	defer imgPts.Close()
	for _, v := range views {
		obj, img, err := s.Board.Correspondences(v)
		if err != nil {
			return matrix, nil, 0, err
		}
		o := make([]gocv.Point3f, len(obj))
		for i, p := range obj {
			o[i] = gocv.Point3f{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
		}
		im := make([]gocv.Point2f, len(img))
		for i, p := range img {
			im[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
		}
		ov := gocv.NewPoint3fVectorFromPoints(o)
		iv := gocv.NewPoint2fVectorFromPoints(im)
		objPts.Append(ov)
		imgPts.Append(iv)
		ov.Close()
		iv.Close()
	}
	k := gocv.NewMat()
	defer k.Close()
	dist := gocv.NewMat()
	defer dist.Close()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()
	rms = gocv.CalibrateCamera(objPts, imgPts, imageSize, &k, &dist, &rvecs, &tvecs, 0)
	if k.Empty() {
		return matrix, nil, rms, errors.New("calibrate: solver returned no camera matrix")
	}
	matrix = matrixOf(k)
	for i := 0; i < dist.Total(); i++ {
		distortion = append(distortion, dist.GetDoubleAt(0, i))
	}
	return matrix, distortion, rms, nil
}

// OptimalNewMatrix returns the camera matrix that keeps all source pixels
// of a width x height image visible after undistortion (alpha = 1)
func OptimalNewMatrix(r calib.Result, width, height int) [3][3]float64 {
	k := matOf(r.Matrix)
	defer k.Close()
	d := distortionMat(r)
	defer d.Close()
	size := image.Pt(width, height)
	nk, _ := gocv.GetOptimalNewCameraMatrixWithParams(k, d, size, 1, size, false)
	defer nk.Close()
	return matrixOf(nk)
}

// UndistortFrame corrects f with OpenCV's bilinear remap
func UndistortFrame(f *frame.Frame, r calib.Result, newMatrix [3][3]float64) (*frame.Frame, error) {
	src, err := opencv.ToMat(f)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	k := matOf(r.Matrix)
	defer k.Close()
	d := distortionMat(r)
	defer d.Close()
	nk := matOf(newMatrix)
	defer nk.Close()
	gocv.Undistort(src, &dst, k, d, nk)
	return opencv.FromMat(dst)
}
