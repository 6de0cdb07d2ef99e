package frame

import (
	"io"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"
)

// WriteFITS streams frames to w as a single 8-bit FITS image.  One gray frame
// is a 2D image, several gray frames a cube.  Color frames are stored
// planar with the channel (B, G, R) as the third axis and the frame index as
// the fourth.  All frames must share the geometry of the first.
func WriteFITS(w io.Writer, metadata []fitsio.Card, frames ...*Frame) error {
	if len(frames) == 0 {
		return errors.New("no frames to write")
	}
	first := frames[0]
	dims := []int{first.Width, first.Height}
	if first.Channels > 1 {
		dims = append(dims, first.Channels)
	}
	if len(frames) > 1 {
		dims = append(dims, len(frames))
	}
	plane := first.Width * first.Height
	buf := make([]byte, 0, plane*first.Channels*len(frames))
	for i, f := range frames {
		if f.Width != first.Width || f.Height != first.Height || f.Channels != first.Channels {
			return errors.Wrapf(ErrBadGeometry, "frame %d is %s, frame 0 is %s", i, f, first)
		}
		for c := 0; c < f.Channels; c++ {
			for y := 0; y < f.Height; y++ {
				row := f.Row(y)
				for x := 0; x < f.Width; x++ {
					buf = append(buf, row[x*f.Channels+c])
				}
			}
		}
	}

	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(8, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}
	err = im.Write(buf)
	if err != nil {
		return err
	}
	return fits.Write(im)
}
