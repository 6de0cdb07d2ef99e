package imgdata_test

import (
	"fmt"
	"testing"

	"github.com/MarcOnTheMoon/imaging-learners/imgdata"
)

func ExamplePaths_Image() {
	p := imgdata.Paths{Root: "/data/imaging"}
	fmt.Println(p.Image("misc/Docks.jpg"))
	fmt.Println(p.Video("Street.mp4"))
	// Output:
	// /data/imaging/images/misc/Docks.jpg
	// /data/imaging/videos/Street.mp4
}

func TestDefaultRoot(t *testing.T) {
	t.Setenv(imgdata.EnvVar, "")
	got := imgdata.ImagePath("misc/Docks.jpg")
	if want := "./../../../../image_data/images/misc/Docks.jpg"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv(imgdata.EnvVar, "/srv/data/")
	if got := imgdata.VideoPath("a.avi"); got != "/srv/data/videos/a.avi" {
		t.Errorf("got %q", got)
	}
}

func TestZeroPaths(t *testing.T) {
	var p imgdata.Paths
	if got := p.Image("x.png"); got != imgdata.DefaultRoot+"images/x.png" {
		t.Errorf("got %q", got)
	}
}
