//go:build !nocv

// Command lecture runs the demonstration programs of the imaging course
package main

import (
	"fmt"
	"os"

	"github.com/knadh/koanf"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/cameras"
	"github.com/MarcOnTheMoon/imaging-learners/cmdutil"
	"github.com/MarcOnTheMoon/imaging-learners/imgdata"
)

// ConfigFileName is read from the working directory when present
var ConfigFileName = "lecture.yml"

type config struct {
	// DataPath is the image data directory, empty uses $ImagingData
	DataPath string         `koanf:"DataPath" yaml:"DataPath"`
	LogJSON  bool           `koanf:"LogJSON" yaml:"LogJSON"`
	Camera   cameras.Config `koanf:"Camera" yaml:"Camera"`
}

var (
	cfg    config
	data   imgdata.Paths
	logger = zap.NewNop().Sugar()
)

var cameraFlags = []cli.Flag{
	&cli.StringFlag{Name: "vendor", Usage: "camera vendor, one of " + fmt.Sprint(cameras.Vendors())},
	&cli.IntFlag{Name: "id", Usage: "index of the camera among the vendor's cameras"},
	&cli.StringFlag{Name: "format", Usage: "pixel format, BGR8 or Mono8"},
	&cli.StringFlag{Name: "resolution", Usage: "frame size, e.g. 720p or 640x480"},
	&cli.Float64Flag{Name: "fps", Usage: "frame rate"},
}

// setup loads lecture.yml and the environment, then applies the flags
func setup(c *cli.Context) error {
	k := koanf.New(".")
	def := config{Camera: cameras.Config{Vendor: "opencv", OpenRetries: 1}}
	if err := cmdutil.LoadConfig(k, def, ConfigFileName); err != nil {
		return err
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return err
	}
	if c.IsSet("data") {
		cfg.DataPath = c.String("data")
	}
	data = imgdata.FromEnv()
	if cfg.DataPath != "" {
		data = imgdata.Paths{Root: cfg.DataPath}
	}
	if c.Bool("verbose") {
		l, err := cmdutil.Logger(cfg.LogJSON)
		if err != nil {
			return err
		}
		logger = l
	}
	return nil
}

// openCamera opens the configured camera, overridden by the camera flags
func openCamera(c *cli.Context) (camera.Camera, error) {
	cc := cfg.Camera
	if c.IsSet("vendor") {
		cc.Vendor = c.String("vendor")
	}
	if c.IsSet("id") {
		cc.ID = c.Int("id")
	}
	if c.IsSet("format") {
		if err := cc.PixelFormat.UnmarshalText([]byte(c.String("format"))); err != nil {
			return nil, err
		}
	}
	if c.IsSet("resolution") {
		cc.Resolution = c.String("resolution")
	}
	if c.IsSet("fps") {
		cc.FrameRate = c.Float64("fps")
	}
	var cam camera.Camera
	err := cmdutil.Spin("opening "+cc.Vendor+" camera", func() error {
		var err error
		cam, err = cameras.Open(cc, logger)
		return err
	})
	return cam, err
}

func main() {
	app := &cli.App{
		Name:  "lecture",
		Usage: "imaging course demonstrations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data", Usage: "image data directory, overrides $" + imgdata.EnvVar},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log camera events"},
		},
		Before: setup,
		After: func(*cli.Context) error {
			logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			openCmd, envCmd, saveCmd, grayCmd, windowsCmd, namedWindowCmd,
			videoCmd, cameraCmd, streamCmd, controlsCmd, lineCaptureCmd,
			invertCmd, invertRGBCmd, invertLUTCmd, histogramCmd, equalizeCmd,
			binomialCmd, boxStripesCmd, medianCmd, gradientCmd, laplaceCmd,
			maskedSmoothCmd, thresholdCmd, thresholdTilesCmd, erodeDilateCmd,
			noiseCmd, differenceVideoCmd, devicesCmd,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
