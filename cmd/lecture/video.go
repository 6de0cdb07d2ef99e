//go:build !nocv

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/display"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/opencv"
)

var videoCmd = &cli.Command{
	Name:      "video",
	Usage:     "play a video file",
	ArgsUsage: "[video relative to videos/]",
	Action: func(c *cli.Context) error {
		path := data.Video(imageArg(c, "SoccerShot.mp4"))
		v, err := opencv.OpenFile(path, camera.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer v.Release()
		fps, err := v.FrameRate()
		if err != nil || fps <= 0 {
			fps = 30
		}
		w := display.NewWindow("Video [Press any key to quit]")
		defer w.Close()
		wait := int(1000 / fps)
		for i, n := 0, v.Frames(); n == 0 || i < n; i++ {
			f, err := v.Frame()
			if err != nil {
				return err
			}
			if err := w.Show(f); err != nil {
				return err
			}
			if display.WaitKey(wait) >= 0 || !w.Open() {
				break
			}
		}
		return nil
	},
}

// interrupted is canceled on Ctrl-C
func interrupted(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt)
}

func release(cam camera.Camera, err error) error {
	return multierr.Append(err, cam.Release())
}

var cameraCmd = &cli.Command{
	Name:  "camera",
	Usage: "show the stream of the first webcam at 30 fps",
	Action: func(c *cli.Context) (err error) {
		cam, err := opencv.Open(camera.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer func() { err = release(cam, err) }()
		ctx, stop := interrupted(c)
		defer stop()
		return display.Stream(ctx, cam, display.StreamOptions{Title: "Camera [Press any key to quit]", FPS: 30})
	},
}

var streamCmd = &cli.Command{
	Name:  "stream",
	Usage: "open a camera of any vendor, print its settings and show its stream",
	Flags: cameraFlags,
	Action: func(c *cli.Context) (err error) {
		cam, err := openCamera(c)
		if err != nil {
			return err
		}
		defer func() { err = release(cam, err) }()

		// the same automatic settings for every vendor, unsupported ones only warn
		for name, set := range map[string]func() error{
			"autofocus":          func() error { return cam.SetAutofocus(camera.SwitchOn) },
			"auto gain":          func() error { return cam.SetAutoGain(camera.Continuous) },
			"auto exposure":      func() error { return cam.SetAutoExposure(camera.Off) },
			"auto white balance": func() error { return cam.SetAutoWhiteBalance(camera.Once) },
		} {
			if err := set(); err != nil {
				fmt.Printf("%s: %v\n", name, err)
			}
		}
		fmt.Println("Camera:    ", cam.Name())
		if r, err := cam.Resolution(); err == nil {
			fmt.Println("Image size:", r)
		}
		if fps, err := cam.FrameRate(); err == nil {
			fmt.Printf("Frame rate: %.1f fps\n", fps)
		}
		ctx, stop := interrupted(c)
		defer stop()
		return display.Stream(ctx, cam, display.StreamOptions{})
	},
}

var controlsCmd = &cli.Command{
	Name:      "controls",
	Usage:     "pause the camera stream and save frames",
	ArgsUsage: "[output file]",
	Flags:     cameraFlags,
	Action: func(c *cli.Context) (err error) {
		out := imageArg(c, "Frame.jpg")
		cam, err := openCamera(c)
		if err != nil {
			return err
		}
		defer func() { err = release(cam, err) }()
		fmt.Println("\nCamera controls:\nP    : Pause\nS    : Save frame\n<ESC>: Quit")

		ctx, stop := interrupted(c)
		defer stop()
		return display.Stream(ctx, cam, display.StreamOptions{
			Title: "Camera [Press ESC to quit]",
			FPS:   30,
			OnKey: func(key int, last *frame.Frame) bool {
				switch key {
				case 'p', 'P':
					// hold the window on the paused frame until P again
					for k := display.WaitKey(0); k != 'p' && k != 'P'; k = display.WaitKey(0) {
						switch k {
						case display.KeyEsc:
							return false
						case 's', 'S':
							save(out, last)
						}
					}
				case 's', 'S':
					save(out, last)
				case display.KeyEsc:
					return false
				}
				return true
			},
		})
	},
}

func save(path string, f *frame.Frame) {
	if err := frame.Save(path, f); err != nil {
		fmt.Println("ERROR:", err)
		return
	}
	fmt.Println("saved", path)
}

var lineCaptureCmd = &cli.Command{
	Name:      "line-capture",
	Usage:     "build an image line by line from the camera stream",
	ArgsUsage: "[output file]",
	Flags:     cameraFlags,
	Action: func(c *cli.Context) (err error) {
		out := imageArg(c, "OutImage.jpg")
		cam, err := openCamera(c)
		if err != nil {
			return err
		}
		defer func() { err = release(cam, err) }()

		f, err := cam.Frame()
		if err != nil {
			return err
		}
		img := f.ToGray().ToBGR()
		w := display.NewWindow("Camera [Press ESC to quit]")
		defer w.Close()
		for row := 0; row < img.Height; row++ {
			f, err := cam.Frame()
			if err != nil {
				return err
			}
			f = f.ToBGR()
			if err := frame.CopyRows(img, f.ToGray().ToBGR(), row); err != nil {
				return err
			}
			copy(img.Row(row), f.Row(row))
			if err := w.Show(img); err != nil {
				return err
			}
			if display.WaitKey(1) >= 0 {
				break
			}
		}
		save(out, img)
		return nil
	},
}
