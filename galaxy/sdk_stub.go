//go:build !galaxy

package galaxy

import (
	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/genicam"
)

func openDevice(id int) (genicam.Device, error) {
	return nil, camera.ErrSDKUnavailable
}
