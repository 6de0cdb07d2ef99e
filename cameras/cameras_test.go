package cameras_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/cameras"
)

func ExampleVendors() {
	fmt.Println(cameras.Vendors())
	// Output: [allied alvium basler cv daheng galaxy opencv pylon venus vimba webcam]
}

func TestUnknownVendor(t *testing.T) {
	if _, err := cameras.Open(cameras.Config{Vendor: "hasselblad"}, nil); err == nil {
		t.Error("expected an error for an unknown vendor")
	}
}

func TestBadResolution(t *testing.T) {
	if _, err := cameras.Open(cameras.Config{Vendor: "basler", Resolution: "huge"}, nil); err == nil {
		t.Error("expected an error for an unknown resolution")
	}
}

func TestMissingSDKIsNotRetried(t *testing.T) {
	for _, v := range []string{"Basler", "vimba", "DAHENG"} {
		cam, err := cameras.Open(cameras.Config{Vendor: v, OpenRetries: 3, RetryInterval: time.Millisecond}, nil)
		if err == nil {
			cam.Release()
			t.Skipf("%s SDK present", v)
		}
		if !errors.Is(err, camera.ErrSDKUnavailable) {
			t.Logf("%s: %v", v, err)
		}
	}
}
