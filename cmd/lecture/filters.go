//go:build !nocv

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/display"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/opencv"
	"github.com/MarcOnTheMoon/imaging-learners/pointops"
)

const landingPad = "misc/LandingPad.jpg"

// grayCommand loads the gray image argument and hands it to run
func grayCommand(def string, run func(c *cli.Context, img *frame.Frame) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		img, err := loadImage(imageArg(c, def), true)
		if err != nil {
			return err
		}
		return run(c, img)
	}
}

// firstErr returns the first non-nil error
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

var binomialCmd = &cli.Command{
	Name:      "binomial",
	Usage:     "smooth a gray image with the 3x3 binomial filter, compare implementations",
	ArgsUsage: "[image relative to images/]",
	Action: grayCommand(cologne, func(c *cli.Context, img *frame.Frame) error {
		var direct, sep, corr, lib *frame.Frame
		var errs [3]error
		mask := pointops.Binomial3.Scaled(1. / 16)
		printRuntimes(
			pointops.Timed("Integer 3x3", func() { direct, errs[0] = pointops.Binomial(img) }),
			pointops.Timed("Separable", func() { sep, errs[1] = pointops.BinomialSeparable(img) }),
			pointops.Timed("Correlation", func() { corr, errs[2] = pointops.Correlate(img, mask) }),
			pointops.Timed("Library filter", func() { lib, _ = pointops.CorrelateLibrary(img, mask) }),
		)
		if err := firstErr(errs[:]...); err != nil {
			return err
		}
		for name, f := range map[string]*frame.Frame{"separable": sep, "correlation": corr, "library": lib} {
			if d, err := pointops.MeanAbsDiff(direct, f); err == nil {
				fmt.Printf("Mean absolute difference to %s: %.3f\n", name, d)
			}
		}
		return showAll([]string{"Image", "Binomial", "Binomial (separable)"}, img, direct, sep)
	}),
}

var boxStripesCmd = &cli.Command{
	Name:  "box-stripes",
	Usage: "show how a 1x5 box filter inverts stripes of width 2",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "size", Value: 200, Usage: "width and height of the pattern"},
	},
	Action: func(c *cli.Context) error {
		n := c.Int("size")
		img := frame.New(n, n, frame.Gray)
		for y := 0; y < n; y++ {
			row := img.Row(y)
			for x := range row {
				if x%4 >= 2 {
					row[x] = 255
				}
			}
		}
		out, err := pointops.Correlate(img, pointops.Box(5, 1))
		if err != nil {
			return err
		}
		return showAll([]string{"Stripes", "Box filtered"}, img, out)
	},
}

var medianCmd = &cli.Command{
	Name:      "median",
	Usage:     "remove salt and pepper noise with a median filter",
	ArgsUsage: "[image relative to images/]",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "ksize", Value: 5, Usage: "kernel size"},
		&cli.Float64Flag{Name: "salt", Value: 0.5, Usage: "percentage of white pixels"},
		&cli.Float64Flag{Name: "pepper", Value: 0.5, Usage: "percentage of black pixels"},
		&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "seed of the noise"},
	},
	Action: grayCommand(docks, func(c *cli.Context, img *frame.Frame) error {
		noisy, err := pointops.SaltAndPepper(img, c.Float64("salt"), c.Float64("pepper"), c.Uint64("seed"))
		if err != nil {
			return err
		}
		k := c.Int("ksize")
		var direct, lib *frame.Frame
		printRuntimes(
			pointops.Timed("Direct access", func() { direct, err = pointops.Median(noisy, k) }),
			pointops.Timed("Library filter", func() { lib = pointops.MedianLibrary(noisy, k) }),
		)
		if err != nil {
			return err
		}
		return showAll([]string{"Image", "Salt & pepper noise", "Median filter", "Median filter (library)"}, img, noisy, direct, lib)
	}),
}

var gradientCmd = &cli.Command{
	Name:      "gradient",
	Usage:     "show the gradient magnitude of central differences and of the Sobel operator",
	ArgsUsage: "[image relative to images/]",
	Action: grayCommand(docks, func(c *cli.Context, img *frame.Frame) error {
		var grad, sobel, lib *frame.Frame
		var errs [2]error
		printRuntimes(
			pointops.Timed("Central diff.", func() { grad, errs[0] = pointops.Gradient(img) }),
			pointops.Timed("Sobel", func() { sobel, errs[1] = pointops.Sobel(img) }),
			pointops.Timed("Sobel (library)", func() { lib = pointops.SobelLibrary(img) }),
		)
		if err := firstErr(errs[:]...); err != nil {
			return err
		}
		return showAll([]string{"Image", "|gx| + |gy|", "Sobel", "Sobel (library)"}, img, grad, sobel, lib)
	}),
}

var laplaceCmd = &cli.Command{
	Name:      "laplace",
	Usage:     "mark the zero crossings of the Laplacian of a smoothed image",
	ArgsUsage: "[image relative to images/]",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "sigma", Value: 1.5, Usage: "standard deviation of the Gaussian smoothing"},
	},
	Action: grayCommand(docks, func(c *cli.Context, img *frame.Frame) error {
		smooth := pointops.Smooth(img, float32(c.Float64("sigma")))
		edges, err := pointops.ZeroCrossings(smooth)
		if err != nil {
			return err
		}
		return showAll([]string{"Image", "Smoothed", "Zero crossings"}, img, smooth, edges)
	}),
}

var maskedSmoothCmd = &cli.Command{
	Name:      "masked-smooth",
	Usage:     "smooth an image except near its edges",
	ArgsUsage: "[image relative to images/]",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "edge", Value: 40, Usage: "gradient magnitude counted as edge"},
		&cli.Float64Flag{Name: "sigma", Value: 2, Usage: "standard deviation of the smoothing"},
	},
	Action: grayCommand(docks, func(c *cli.Context, img *frame.Frame) error {
		sobel, err := pointops.Sobel(img)
		if err != nil {
			return err
		}
		edges, err := pointops.Threshold(sobel, byte(c.Int("edge")), false)
		if err != nil {
			return err
		}
		mask, err := pointops.Dilate3x3(edges)
		if err != nil {
			return err
		}
		out := pointops.Smooth(img, float32(c.Float64("sigma")))
		for i, m := range mask.Pix {
			if m != 0 {
				out.Pix[i] = img.Pix[i]
			}
		}
		return showAll([]string{"Image", "Edge mask", "Masked smoothing"}, img, mask, out)
	}),
}

var thresholdCmd = &cli.Command{
	Name:      "threshold",
	Usage:     "binarize a gray image with a fixed, an isodata and a Bernsen threshold",
	ArgsUsage: "[image relative to images/]",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "t", Value: 127, Usage: "fixed threshold"},
		&cli.Float64Flag{Name: "percent", Value: 50, Usage: "threshold in percent of the value range"},
		&cli.IntFlag{Name: "radius", Value: 15, Usage: "radius of the Bernsen neighbourhood"},
		&cli.IntFlag{Name: "contrast", Value: 30, Usage: "minimum contrast of the Bernsen neighbourhood"},
		&cli.IntFlag{Name: "background", Value: 255, Usage: "value of low contrast neighbourhoods"},
	},
	Action: grayCommand(landingPad, func(c *cli.Context, img *frame.Frame) error {
		fixed, err := pointops.Threshold(img, byte(c.Int("t")), false)
		if err != nil {
			return err
		}
		contrast, tc, err := pointops.ContrastThreshold(img, c.Float64("percent"))
		if err != nil {
			return err
		}
		isodata, ti, err := pointops.IsodataThreshold(img)
		if err != nil {
			return err
		}
		bernsen, err := pointops.Bernsen(img, c.Int("radius"), byte(c.Int("contrast")), byte(c.Int("background")))
		if err != nil {
			return err
		}
		return showAll([]string{
			"Image",
			fmt.Sprintf("Fixed (t = %d)", c.Int("t")),
			fmt.Sprintf("Contrast (t = %d)", tc),
			fmt.Sprintf("Global adaptive (t = %d)", ti),
			"Locally adaptive",
		}, img, fixed, contrast, isodata, bernsen)
	}),
}

var thresholdTilesCmd = &cli.Command{
	Name:      "threshold-tiles",
	Usage:     "threshold every tile of a gray image at half its value range",
	ArgsUsage: "[image relative to images/]",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "tiles", Value: 5, Usage: "tiles along x and y"},
	},
	Action: grayCommand(landingPad, func(c *cli.Context, img *frame.Frame) error {
		out, err := pointops.TileThreshold(img, c.Int("tiles"))
		if err != nil {
			return err
		}
		return showAll([]string{"Image", "Binary image"}, img, out)
	}),
}

var erodeDilateCmd = &cli.Command{
	Name:      "erode-dilate",
	Usage:     "erode and dilate a binary image, compare with the library rank filters",
	ArgsUsage: "[image relative to images/]",
	Action: grayCommand(landingPad, func(c *cli.Context, img *frame.Frame) error {
		bin, err := pointops.Threshold(img, 128, true)
		if err != nil {
			return err
		}
		var eroded, dilated, libEroded, libDilated *frame.Frame
		var errs [2]error
		printRuntimes(
			pointops.Timed("Erode", func() { eroded, errs[0] = pointops.Erode3x3(bin) }),
			pointops.Timed("Erode (library)", func() { libEroded = pointops.MinimumLibrary(bin, 3) }),
			pointops.Timed("Dilate", func() { dilated, errs[1] = pointops.Dilate3x3(bin) }),
			pointops.Timed("Dilate (library)", func() { libDilated = pointops.MaximumLibrary(bin, 3) }),
		)
		if err := firstErr(errs[:]...); err != nil {
			return err
		}
		return showAll([]string{"Binary", "Eroded", "Dilated", "Eroded (library)", "Dilated (library)"},
			bin, eroded, dilated, libEroded, libDilated)
	}),
}

var noiseCmd = &cli.Command{
	Name:      "noise",
	Usage:     "add Gaussian noise to a gray image and print its statistics",
	ArgsUsage: "[image relative to images/]",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "sigma", Value: 32, Usage: "standard deviation of the noise"},
		&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "seed of the noise"},
	},
	Action: grayCommand(cologne, func(c *cli.Context, img *frame.Frame) error {
		noisy := pointops.GaussianNoise(img, c.Float64("sigma"), c.Uint64("seed"))
		m0, s0 := pointops.MeanStdDev(img)
		m1, s1 := pointops.MeanStdDev(noisy)
		fmt.Printf("Image: mean %.2f, std dev %.2f\nNoisy: mean %.2f, std dev %.2f\n", m0, s0, m1, s1)
		return showAll([]string{"Image", "Gaussian noise"}, img, noisy)
	}),
}

var differenceVideoCmd = &cli.Command{
	Name:      "difference-video",
	Usage:     "show the differences of successive video frames",
	ArgsUsage: "[video relative to videos/]",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "scale", Value: 0.5, Usage: "scale factor of the frames"},
		&cli.IntFlag{Name: "wait", Value: 150, Usage: "milliseconds between frames"},
	},
	Action: func(c *cli.Context) error {
		v, err := opencv.OpenFile(data.Video(imageArg(c, "SoccerShot.mp4")), camera.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer v.Release()
		next := func() (color, gray *frame.Frame, err error) {
			f, err := v.Frame()
			if err != nil {
				return nil, nil, err
			}
			if f, err = frame.Scale(f, c.Float64("scale")); err != nil {
				return nil, nil, err
			}
			return f, f.ToGray(), nil
		}
		_, prev, err := next()
		if err != nil {
			return err
		}
		titles := []string{"Frame", "Absolute difference", "Positive difference", "Negative difference", "Signed difference"}
		windows := make([]*display.Window, len(titles))
		for i, t := range titles {
			windows[i] = display.NewWindow(t)
			defer windows[i].Close()
		}
		for n := 1; v.Frames() == 0 || n < v.Frames(); n++ {
			f, cur, err := next()
			if err != nil {
				return err
			}
			d, err := pointops.Differences(cur, prev)
			if err != nil {
				return err
			}
			prev = cur
			for i, img := range []*frame.Frame{f, d.Abs, d.Plus, d.Minus, d.Signed} {
				if err := windows[i].Show(img); err != nil {
					return err
				}
			}
			if display.WaitKey(c.Int("wait")) >= 0 {
				break
			}
		}
		return nil
	},
}
