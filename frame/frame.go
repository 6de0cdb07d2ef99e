/*
Package frame holds the pixel buffer every camera adapter hands out.

A Frame is row-major and interleaved.  Color frames carry three channels in
B, G, R order, the layout OpenCV and the machine-vision SDKs use when asked
for "BGR8".  Gray frames carry a single channel.  Stride is the number of
bytes between the starts of two consecutive rows; frames built by this
package are never padded, so Stride == Width*Channels for them, but frames
wrapped around SDK memory may carry padding until Unpad is called.
*/
package frame

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

const (
	// Gray is the channel count of an 8-bit grayscale frame
	Gray = 1

	// BGR is the channel count of a 24-bit color frame
	BGR = 3
)

// ErrBadGeometry is returned when a buffer cannot hold the frame it is said to hold
var ErrBadGeometry = errors.New("frame geometry does not match buffer")

// Frame is a single captured image
type Frame struct {
	// Width is the number of pixels in one row
	Width int

	// Height is the number of rows
	Height int

	// Channels is the number of bytes per pixel, 1 or 3
	Channels int

	// Stride is the number of bytes from one row to the next
	Stride int

	// Pix holds the pixel data
	Pix []byte
}

// New returns a zeroed frame of the given size
func New(width, height, channels int) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Stride:   width * channels,
		Pix:      make([]byte, width*height*channels),
	}
}

// FromBytes copies pix into a new, unpadded frame.  stride may be larger
// than width*channels, in which case the padding is dropped.
func FromBytes(width, height, channels, stride int, pix []byte) (*Frame, error) {
	if channels != Gray && channels != BGR {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	rowBytes := width * channels
	if stride < rowBytes {
		return nil, errors.Wrapf(ErrBadGeometry, "stride %d < row size %d", stride, rowBytes)
	}
	buf, err := Unpad(pix, stride, rowBytes, height)
	if err != nil {
		return nil, err
	}
	return &Frame{Width: width, Height: height, Channels: channels, Stride: rowBytes, Pix: buf}, nil
}

// Unpad strips padding bytes from a buffer whose rows are stride bytes apart
// but only hold rowBytes of data.  The returned slice is always a copy.
func Unpad(buf []byte, stride, rowBytes, height int) ([]byte, error) {
	if height == 0 || rowBytes == 0 {
		return []byte{}, nil
	}
	need := stride*(height-1) + rowBytes
	if len(buf) < need {
		return nil, errors.Wrapf(ErrBadGeometry, "need %d bytes, have %d", need, len(buf))
	}
	out := make([]byte, 0, rowBytes*height)
	bidx := 0
	for row := 0; row < height; row++ {
		out = append(out, buf[bidx:bidx+rowBytes]...)
		bidx += stride
	}
	return out, nil
}

// Bounds returns the frame rectangle with its origin at (0, 0)
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Empty is true for a nil frame or one without pixels
func (f *Frame) Empty() bool {
	return f == nil || f.Width == 0 || f.Height == 0 || len(f.Pix) == 0
}

// Clone returns a deep copy of the frame
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := *f
	out.Pix = make([]byte, len(f.Pix))
	copy(out.Pix, f.Pix)
	return &out
}

// PixOffset is the index of the first byte of pixel (x, y) in Pix
func (f *Frame) PixOffset(x, y int) int {
	return y*f.Stride + x*f.Channels
}

// At returns the channel values of pixel (x, y).  The slice aliases Pix.
func (f *Frame) At(x, y int) []byte {
	i := f.PixOffset(x, y)
	return f.Pix[i : i+f.Channels : i+f.Channels]
}

// Row returns the bytes of row y, without padding.  The slice aliases Pix.
func (f *Frame) Row(y int) []byte {
	i := y * f.Stride
	return f.Pix[i : i+f.Width*f.Channels]
}

// String is a short human description, e.g. "1920x1080x3"
func (f *Frame) String() string {
	if f == nil {
		return "<nil frame>"
	}
	return fmt.Sprintf("%dx%dx%d", f.Width, f.Height, f.Channels)
}
