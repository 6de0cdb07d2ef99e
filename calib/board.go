/*
Package calib models ChArUco calibration boards and the intrinsic camera
calibration obtained from them.

A ChArUco board is a chessboard whose white squares carry ArUco markers.
The top left square is black; markers fill the white squares row by row,
starting with ID 0.  Board coordinates are in printed pixels with the
origin at the top left corner of the chessboard, x to the right and y
down, so that object points and board images share one frame.

Marker detection and the solver itself need OpenCV and live in the
charuco subpackage.  This package holds what can be done in Go alone:
board geometry, collecting views, persisting results and undistortion.
*/
package calib

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

// Dictionary is the ArUco dictionary of all boards, 4x4 bit markers with 50 IDs
const Dictionary = "4x4_50"

// DictionarySize is the number of markers in Dictionary
const DictionarySize = 50

// Point2 is a point in an image
type Point2 struct {
	X, Y float64
}

// Point3 is a point on the board
type Point3 struct {
	X, Y, Z float64
}

// Board describes a printed ChArUco board
type Board struct {
	// SquaresX and SquaresY are the number of chessboard squares
	SquaresX int `koanf:"SquaresX" yaml:"SquaresX"`
	SquaresY int `koanf:"SquaresY" yaml:"SquaresY"`

	// SquarePx is the side length of a square
	SquarePx int `koanf:"SquarePx" yaml:"SquarePx"`

	// MarkerPx is the side length of a marker, centered in its square
	MarkerPx int `koanf:"MarkerPx" yaml:"MarkerPx"`

	// Margin is the white border around the chessboard in board images
	Margin int `koanf:"Margin" yaml:"Margin"`
}

// DefaultBoard is a 7x5 board with 200 px squares, fitting A4 paper
var DefaultBoard = Board{SquaresX: 7, SquaresY: 5, SquarePx: 200, MarkerPx: 150, Margin: 20}

// Validate checks that the board can be drawn and detected
func (b Board) Validate() error {
	switch {
	case b.SquaresX < 2 || b.SquaresY < 2:
		return errors.Errorf("board needs at least 2x2 squares, got %dx%d", b.SquaresX, b.SquaresY)
	case b.MarkerPx <= 0 || b.MarkerPx >= b.SquarePx:
		return errors.Errorf("marker size %d must be positive and smaller than square size %d", b.MarkerPx, b.SquarePx)
	case b.Margin < 0:
		return errors.Errorf("negative margin %d", b.Margin)
	case b.MarkerCount() > DictionarySize:
		return errors.Errorf("board needs %d markers, dictionary %s has %d", b.MarkerCount(), Dictionary, DictionarySize)
	}
	return nil
}

// IsBlack reports whether square (x, y) is black
func (b Board) IsBlack(x, y int) bool {
	return (x+y)%2 == 0
}

// MarkerCount is the number of white squares
func (b Board) MarkerCount() int {
	return b.SquaresX * b.SquaresY / 2
}

// MarkerSquare returns the square holding marker id
func (b Board) MarkerSquare(id int) (x, y int, err error) {
	if id < 0 || id >= b.MarkerCount() {
		return 0, 0, errors.Errorf("marker %d not on a board with %d markers", id, b.MarkerCount())
	}
	n := 0
	for y := 0; y < b.SquaresY; y++ {
		for x := 0; x < b.SquaresX; x++ {
			if b.IsBlack(x, y) {
				continue
			}
			if n == id {
				return x, y, nil
			}
			n++
		}
	}
	panic("unreachable")
}

// MarkerRect is the area of marker id in a board image
func (b Board) MarkerRect(id int) (image.Rectangle, error) {
	x, y, err := b.MarkerSquare(id)
	if err != nil {
		return image.Rectangle{}, err
	}
	inset := (b.SquarePx - b.MarkerPx) / 2
	tl := image.Pt(b.Margin+x*b.SquarePx+inset, b.Margin+y*b.SquarePx+inset)
	return image.Rectangle{Min: tl, Max: tl.Add(image.Pt(b.MarkerPx, b.MarkerPx))}, nil
}

// MarkerObjectCorners returns the corners of marker id on the board plane
// (z = 0), clockwise from the top left as ArUco detection reports them
func (b Board) MarkerObjectCorners(id int) ([4]Point3, error) {
	x, y, err := b.MarkerSquare(id)
	if err != nil {
		return [4]Point3{}, err
	}
	inset := float64(b.SquarePx-b.MarkerPx) / 2
	x0 := float64(x*b.SquarePx) + inset
	y0 := float64(y*b.SquarePx) + inset
	m := float64(b.MarkerPx)
	return [4]Point3{
		{X: x0, Y: y0},
		{X: x0 + m, Y: y0},
		{X: x0 + m, Y: y0 + m},
		{X: x0, Y: y0 + m},
	}, nil
}

// ImageSize is the size of a board image including margins
func (b Board) ImageSize() image.Point {
	return image.Pt(b.SquaresX*b.SquarePx+2*b.Margin, b.SquaresY*b.SquarePx+2*b.Margin)
}

// ImageFileName is the conventional file name of the board image
func (b Board) ImageFileName() string {
	return fmt.Sprintf("CameraCalib_4x4-50_%dx%d.png", b.SquaresX, b.SquaresY)
}
