// Package imgdata locates the course's image and video files.
//
// All images live below one data directory, laid out as
//
//	<root>/images/<topic>/<file>
//	<root>/videos/<file>
//
// The root defaults to DefaultRoot, relative to the directory programs are
// started from, and is overridden by the ImagingData environment variable.
package imgdata

import (
	"os"
	"strings"
)

// DefaultRoot is used when ImagingData is not set
const DefaultRoot = "./../../../../image_data/"

// EnvVar names the environment variable holding the data directory
const EnvVar = "ImagingData"

// Paths resolves files below a data directory
type Paths struct {
	Root string
}

// FromEnv returns Paths rooted at $ImagingData, or DefaultRoot if unset
func FromEnv() Paths {
	if root := os.Getenv(EnvVar); root != "" {
		return Paths{Root: root}
	}
	return Paths{Root: DefaultRoot}
}

func (p Paths) dir(sub string) string {
	root := p.Root
	if root == "" {
		root = DefaultRoot
	}
	if !strings.HasSuffix(root, "/") && !strings.HasSuffix(root, `\`) {
		root += "/"
	}
	return root + sub + "/"
}

// Image returns the path of an image file below <root>/images/
func (p Paths) Image(rel string) string {
	return p.dir("images") + rel
}

// Video returns the path of a video file below <root>/videos/
func (p Paths) Video(rel string) string {
	return p.dir("videos") + rel
}

// ImagePath resolves rel with FromEnv
func ImagePath(rel string) string {
	return FromEnv().Image(rel)
}

// VideoPath resolves rel with FromEnv
func VideoPath(rel string) string {
	return FromEnv().Video(rel)
}
