package galaxy

import (
	"fmt"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// bayerRed is the position of the red pixel within the 2x2 filter tile,
// keyed by the SFNC PixelColorFilter entry
var bayerRed = map[string][2]int{
	"BayerRG": {0, 0},
	"BayerGR": {1, 0},
	"BayerGB": {0, 1},
	"BayerBG": {1, 1},
}

// Demosaic converts an 8-bit Bayer image to BGR by neighbour interpolation:
// all four pixels of a 2x2 tile get the tile's red and blue value and the
// mean of its two greens.  A trailing odd row or column reuses the tile
// before it.
func Demosaic(raw []byte, width, height int, filter string) (*frame.Frame, error) {
	red, ok := bayerRed[filter]
	if !ok {
		return nil, fmt.Errorf("unknown color filter %q", filter)
	}
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("image %dx%d too small to demosaic", width, height)
	}
	if len(raw) < width*height {
		return nil, fmt.Errorf("raw buffer holds %d bytes, need %d", len(raw), width*height)
	}
	rx, ry := red[0], red[1]
	bx, by := 1-rx, 1-ry
	out := frame.New(width, height, frame.BGR)
	at := func(x, y int) int { return int(raw[y*width+x]) }
	for y0 := 0; y0 < height; y0 += 2 {
		ty := y0
		if ty+1 >= height {
			ty = height - 2
		}
		for x0 := 0; x0 < width; x0 += 2 {
			tx := x0
			if tx+1 >= width {
				tx = width - 2
			}
			r := at(tx+rx, ty+ry)
			b := at(tx+bx, ty+by)
			g := (at(tx+bx, ty+ry) + at(tx+rx, ty+by) + 1) / 2
			for dy := 0; dy < 2 && y0+dy < height; dy++ {
				for dx := 0; dx < 2 && x0+dx < width; dx++ {
					p := out.At(x0+dx, y0+dy)
					p[0], p[1], p[2] = byte(b), byte(g), byte(r)
				}
			}
		}
	}
	return out, nil
}
