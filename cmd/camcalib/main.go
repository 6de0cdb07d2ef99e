//go:build !nocv

// Command camcalib prints ChArUco boards, calibrates cameras with them and
// shows undistorted streams
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/MarcOnTheMoon/imaging-learners/calib"
	"github.com/MarcOnTheMoon/imaging-learners/calib/charuco"
	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/cameras"
	"github.com/MarcOnTheMoon/imaging-learners/cmdutil"
	"github.com/MarcOnTheMoon/imaging-learners/display"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

var logger *zap.SugaredLogger

var boardFlags = []cli.Flag{
	&cli.IntFlag{Name: "squares-x", Value: calib.DefaultBoard.SquaresX},
	&cli.IntFlag{Name: "squares-y", Value: calib.DefaultBoard.SquaresY},
	&cli.IntFlag{Name: "square-px", Value: calib.DefaultBoard.SquarePx},
	&cli.IntFlag{Name: "marker-px", Value: calib.DefaultBoard.MarkerPx},
	&cli.IntFlag{Name: "margin", Value: calib.DefaultBoard.Margin},
}

var cameraFlags = []cli.Flag{
	&cli.StringFlag{Name: "vendor", Value: "opencv", EnvVars: []string{cmdutil.EnvPrefix + "CAMERA_VENDOR"}},
	&cli.IntFlag{Name: "id"},
	&cli.StringFlag{Name: "sensor", Value: "camera", Usage: "camera name used in the result file name"},
	&cli.StringFlag{Name: "lens", Value: "lens", Usage: "lens name used in the result file name"},
	&cli.StringFlag{Name: "dir", Value: ".", Usage: "directory of the result file"},
}

func board(c *cli.Context) calib.Board {
	return calib.Board{
		SquaresX: c.Int("squares-x"),
		SquaresY: c.Int("squares-y"),
		SquarePx: c.Int("square-px"),
		MarkerPx: c.Int("marker-px"),
		Margin:   c.Int("margin"),
	}
}

func openCamera(c *cli.Context) (camera.Camera, error) {
	cfg := cameras.Config{Vendor: c.String("vendor"), ID: c.Int("id"), OpenRetries: 1}
	var cam camera.Camera
	err := cmdutil.Spin("opening "+cfg.Vendor+" camera", func() error {
		var err error
		cam, err = cameras.Open(cfg, logger)
		return err
	})
	return cam, err
}

var boardCmd = &cli.Command{
	Name:      "board",
	Usage:     "save the board image to print",
	ArgsUsage: "[directory]",
	Flags:     boardFlags,
	Action: func(c *cli.Context) error {
		dir := "."
		if c.Args().Present() {
			dir = c.Args().First()
		}
		path, err := charuco.SaveBoardImage(board(c), dir)
		if err != nil {
			return err
		}
		fmt.Println("saved", path)
		return nil
	},
}

var calibrateCmd = &cli.Command{
	Name:  "calibrate",
	Usage: "collect views of the board with c, solve with Esc",
	Flags: append(append([]cli.Flag{}, boardFlags...), cameraFlags...),
	Action: func(c *cli.Context) (err error) {
		cam, err := openCamera(c)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, cam.Release()) }()
		res, path, err := charuco.Interactive(cam, board(c), charuco.Options{
			Sensor: c.String("sensor"),
			Lens:   c.String("lens"),
			Dir:    c.String("dir"),
			Logger: logger,
		})
		if err != nil {
			return err
		}
		fmt.Println("camera matrix:", res.Matrix)
		fmt.Println("distortion:   ", res.Distortion)
		fmt.Println("saved", path)
		return nil
	},
}

var undistortCmd = &cli.Command{
	Name:  "undistort",
	Usage: "show the undistorted stream of a calibrated camera",
	Flags: append(append([]cli.Flag{}, cameraFlags...),
		&cli.BoolFlag{Name: "pure-go", Usage: "remap in Go instead of OpenCV"}),
	Action: func(c *cli.Context) (err error) {
		res, err := calib.Load(c.String("dir"), c.String("sensor"), c.String("lens"))
		if err != nil {
			return err
		}
		cam, err := openCamera(c)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, cam.Release()) }()
		size, err := cam.Resolution()
		if err != nil {
			return err
		}
		k := charuco.OptimalNewMatrix(res, size.Width, size.Height)

		undistort := func(f *frame.Frame) (*frame.Frame, error) {
			return charuco.UndistortFrame(f, res, k)
		}
		if c.Bool("pure-go") {
			m, err := calib.NewMap(res, k, size.Width, size.Height)
			if err != nil {
				return err
			}
			undistort = m.Apply
		}
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
		defer stop()
		return display.Stream(ctx, cam, display.StreamOptions{
			Title:   "Undistorted " + cam.Name() + " [Press any key to quit]",
			OnFrame: undistort,
		})
	},
}

func main() {
	app := &cli.App{
		Name:  "camcalib",
		Usage: "ChArUco camera calibration",
		Before: func(*cli.Context) error {
			var err error
			logger, err = cmdutil.Logger(false)
			return err
		},
		After: func(*cli.Context) error {
			if logger != nil {
				logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{boardCmd, calibrateCmd, undistortCmd},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
