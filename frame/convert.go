package frame

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/gift"
)

// grayLevel converts one BGR pixel to gray with the BT.601 weights in the
// same 14-bit fixed point OpenCV uses, so results match cvtColor exactly.
func grayLevel(b, g, r byte) byte {
	const (
		shift = 14
		cb    = 1868 // 0.114
		cg    = 9617 // 0.587
		cr    = 4899 // 0.299
	)
	return byte((int(b)*cb + int(g)*cg + int(r)*cr + (1 << (shift - 1))) >> shift)
}

// ToGray returns a single channel copy of f.  Gray frames are cloned.
func (f *Frame) ToGray() *Frame {
	if f.Channels == Gray {
		return f.Clone()
	}
	out := New(f.Width, f.Height, Gray)
	for y := 0; y < f.Height; y++ {
		src := f.Row(y)
		dst := out.Row(y)
		for x := 0; x < f.Width; x++ {
			i := x * 3
			dst[x] = grayLevel(src[i], src[i+1], src[i+2])
		}
	}
	return out
}

// ToBGR returns a three channel copy of f.  Color frames are cloned.
func (f *Frame) ToBGR() *Frame {
	if f.Channels == BGR {
		return f.Clone()
	}
	out := New(f.Width, f.Height, BGR)
	for y := 0; y < f.Height; y++ {
		src := f.Row(y)
		dst := out.Row(y)
		for x, v := range src {
			dst[3*x], dst[3*x+1], dst[3*x+2] = v, v, v
		}
	}
	return out
}

// SwapRB exchanges the first and third channel in place, converting RGB to
// BGR or back.  It is a no-op on gray frames.
func (f *Frame) SwapRB() {
	if f.Channels != BGR {
		return
	}
	for y := 0; y < f.Height; y++ {
		row := f.Row(y)
		for i := 0; i+2 < len(row); i += 3 {
			row[i], row[i+2] = row[i+2], row[i]
		}
	}
}

// ToImage converts the frame to a standard library image, *image.Gray for
// gray frames and *image.RGBA for color frames.  The pixels are copied.
func (f *Frame) ToImage() image.Image {
	if f.Channels == Gray {
		img := image.NewGray(f.Bounds())
		for y := 0; y < f.Height; y++ {
			copy(img.Pix[y*img.Stride:], f.Row(y))
		}
		return img
	}
	img := image.NewRGBA(f.Bounds())
	for y := 0; y < f.Height; y++ {
		src := f.Row(y)
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < f.Width; x++ {
			dst[4*x] = src[3*x+2]
			dst[4*x+1] = src[3*x+1]
			dst[4*x+2] = src[3*x]
			dst[4*x+3] = 0xff
		}
	}
	return img
}

// FromImage converts a standard library image into a frame.  Gray and Gray16
// images become gray frames, everything else becomes BGR.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	switch src := img.(type) {
	case *image.Gray:
		out := New(w, h, Gray)
		for y := 0; y < h; y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Row(y), src.Pix[i:i+w])
		}
		return out
	case *image.Gray16:
		out := New(w, h, Gray)
		for y := 0; y < h; y++ {
			row := out.Row(y)
			for x := 0; x < w; x++ {
				row[x] = byte(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
			}
		}
		return out
	}
	out := New(w, h, BGR)
	for y := 0; y < h; y++ {
		row := out.Row(y)
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			row[3*x], row[3*x+1], row[3*x+2] = c.B, c.G, c.R
		}
	}
	return out
}

// Scale resizes f by factor with linear resampling, e.g. 0.5 for the half
// size previews the calibration and display loops show.
func Scale(f *Frame, factor float64) (*Frame, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("scale factor must be positive, got %v", factor)
	}
	w := int(float64(f.Width)*factor + 0.5)
	h := int(float64(f.Height)*factor + 0.5)
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("scaling %s by %v leaves no pixels", f, factor)
	}
	g := gift.New(gift.Resize(w, h, gift.LinearResampling))
	src := f.ToImage()
	var dst draw.Image
	if f.Channels == Gray {
		dst = image.NewGray(g.Bounds(src.Bounds()))
	} else {
		dst = image.NewRGBA(g.Bounds(src.Bounds()))
	}
	g.Draw(dst, src)
	return FromImage(dst), nil
}

// CopyRows copies rows from..Height-1 of src into dst.  Both frames must
// share geometry.  It is used by the line capture exercise which builds an
// image from successive camera frames.
func CopyRows(dst, src *Frame, from int) error {
	if dst.Width != src.Width || dst.Height != src.Height || dst.Channels != src.Channels {
		return fmt.Errorf("cannot copy rows of %s into %s", src, dst)
	}
	if from < 0 {
		from = 0
	}
	for y := from; y < src.Height; y++ {
		copy(dst.Row(y), src.Row(y))
	}
	return nil
}
