package frame

import (
	"bufio"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// JPEGQuality is the quality used by Encode for jpg output
var JPEGQuality = 95

// ErrUnknownFormat is returned for an image format other than jpg, png or fits
var ErrUnknownFormat = errors.New("unknown image format")

// FormatOf returns the image format implied by a file name's extension,
// lowercase and without the dot; "jpeg" is reported as "jpg"
func FormatOf(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}

// Encode writes f to w as jpg or png
func Encode(w io.Writer, f *Frame, format string) error {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return jpeg.Encode(w, f.ToImage(), &jpeg.Options{Quality: JPEGQuality})
	case "png":
		return png.Encode(w, f.ToImage())
	case "fits":
		return WriteFITS(w, nil, f)
	default:
		return errors.Wrap(ErrUnknownFormat, format)
	}
}

// Decode reads a jpg or png image from r
func Decode(r io.Reader) (*Frame, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

// Load reads the image stored at path
func Load(path string) (*Frame, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fid.Close()
	f, err := Decode(bufio.NewReader(fid))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return f, nil
}

// Save writes f to path, choosing the encoder from the file extension
func Save(path string, f *Frame) error {
	fid, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(fid)
	err = Encode(w, f, FormatOf(path))
	if err == nil {
		err = w.Flush()
	}
	if cerr := fid.Close(); err == nil {
		err = cerr
	}
	return errors.Wrapf(err, "save %s", path)
}
