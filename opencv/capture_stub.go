//go:build nocv

package opencv

import "github.com/MarcOnTheMoon/imaging-learners/camera"

func openDevice(id int) (Capture, error) {
	return nil, camera.ErrSDKUnavailable
}

func openFile(path string) (Capture, error) {
	return nil, camera.ErrSDKUnavailable
}
