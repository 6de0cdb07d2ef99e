package calib

import (
	"sync"

	"github.com/pkg/errors"
)

// MinMarkers is one less than the number of markers a view needs
const MinMarkers = 3

// ErrTooFewCorners is returned for views with MinMarkers or fewer markers
var ErrTooFewCorners = errors.New("not enough corners detected")

// View holds the markers detected in one image of the board.  Corners[i]
// are the image corners of marker IDs[i], clockwise from the top left.
type View struct {
	IDs     []int
	Corners [][4]Point2
}

// Len is the number of detected markers
func (v View) Len() int {
	return len(v.IDs)
}

// Session collects views of one board for a calibration.  It is safe for
// concurrent use.
type Session struct {
	Board Board

	mu    sync.Mutex
	views []View
}

// NewSession starts an empty session
func NewSession(b Board) *Session {
	return &Session{Board: b}
}

// Add keeps a view with more than MinMarkers markers
func (s *Session) Add(v View) error {
	if len(v.Corners) != len(v.IDs) {
		return errors.Errorf("view has %d ids but %d corner sets", len(v.IDs), len(v.Corners))
	}
	if v.Len() <= MinMarkers {
		return errors.Wrapf(ErrTooFewCorners, "%d markers", v.Len())
	}
	for _, id := range v.IDs {
		if id < 0 || id >= s.Board.MarkerCount() {
			return errors.Errorf("marker %d is not on the board", id)
		}
	}
	s.mu.Lock()
	s.views = append(s.views, v)
	s.mu.Unlock()
	return nil
}

// Views returns the collected views
func (s *Session) Views() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]View(nil), s.views...)
}

// Len is the number of collected views
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Correspondences pairs every detected image corner of v with its position
// on the board
func (b Board) Correspondences(v View) ([]Point3, []Point2, error) {
	obj := make([]Point3, 0, 4*v.Len())
	img := make([]Point2, 0, 4*v.Len())
	for i, id := range v.IDs {
		corners, err := b.MarkerObjectCorners(id)
		if err != nil {
			return nil, nil, err
		}
		obj = append(obj, corners[:]...)
		img = append(img, v.Corners[i][:]...)
	}
	return obj, img, nil
}
