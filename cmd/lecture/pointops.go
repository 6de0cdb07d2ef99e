//go:build !nocv

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gocv.io/x/gocv"

	"github.com/MarcOnTheMoon/imaging-learners/display"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/opencv"
	"github.com/MarcOnTheMoon/imaging-learners/pointops"
)

// showAll opens one window per frame and waits for a key
func showAll(titles []string, frames ...*frame.Frame) error {
	for i, f := range frames {
		w := display.NewWindow(titles[i])
		defer w.Close()
		if err := w.Show(f); err != nil {
			return err
		}
	}
	display.WaitKey(0)
	return nil
}

func printRuntimes(rs ...pointops.Runtime) {
	fmt.Println("Runtimes for different approaches (only one sample execution):")
	for _, r := range rs {
		fmt.Println(r)
	}
}

// invert compares the pixel loop with the library filter
func invert(rel string, gray bool) error {
	img, err := loadImage(rel, gray)
	if err != nil {
		return err
	}
	var direct, lib *frame.Frame
	printRuntimes(
		pointops.Timed("Direct access", func() { direct = pointops.Invert(img) }),
		pointops.Timed("Library filter", func() { lib = pointops.InvertLibrary(img) }),
	)
	if string(direct.Pix) != string(lib.Pix) {
		fmt.Println("WARNING: the inverted images differ")
	}
	return showAll([]string{"Image", "Inverted image"}, img, direct)
}

var invertCmd = &cli.Command{
	Name:      "invert",
	Usage:     "invert a gray image by direct pixel access and by library",
	ArgsUsage: "[image relative to images/]",
	Action: func(c *cli.Context) error {
		return invert(imageArg(c, cologne), true)
	},
}

var invertRGBCmd = &cli.Command{
	Name:      "invert-rgb",
	Usage:     "invert a color image by direct pixel access and by library",
	ArgsUsage: "[image relative to images/]",
	Action: func(c *cli.Context) error {
		return invert(imageArg(c, parrot), false)
	},
}

// lutOpenCV applies lut with cv::LUT
func lutOpenCV(f *frame.Frame, lut pointops.LUT) (*frame.Frame, error) {
	src, err := opencv.ToMat(f)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	table, err := gocv.NewMatFromBytes(1, len(lut), gocv.MatTypeCV8U, lut[:])
	if err != nil {
		return nil, err
	}
	defer table.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.LUT(src, table, &dst)
	return opencv.FromMat(dst)
}

var invertLUTCmd = &cli.Command{
	Name:      "invert-lut",
	Usage:     "invert a gray image with a lookup table, in Go and with OpenCV",
	ArgsUsage: "[image relative to images/]",
	Action: func(c *cli.Context) error {
		img, err := loadImage(imageArg(c, cologne), true)
		if err != nil {
			return err
		}
		lut := pointops.InvertTable
		var direct, cv *frame.Frame
		var cvErr error
		printRuntimes(
			pointops.Timed("Direct access", func() { direct = pointops.Apply(img, lut) }),
			pointops.Timed("OpenCV LUT", func() { cv, cvErr = lutOpenCV(img, lut) }),
		)
		if cvErr != nil {
			return cvErr
		}
		return showAll([]string{"Image", "Inverted image", "Inverted image (OpenCV)"}, img, direct, cv)
	},
}

var histogramCmd = &cli.Command{
	Name:      "histogram",
	Usage:     "calculate and display the histogram of a gray image",
	ArgsUsage: "[image relative to images/]",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "plot", Value: "histogram.png", Usage: "file the bar chart is saved to"},
		&cli.IntFlag{Name: "bins", Value: 32, Usage: "bins of the console histogram"},
	},
	Action: func(c *cli.Context) error {
		img, err := loadImage(imageArg(c, cologne), true)
		if err != nil {
			return err
		}
		h, err := pointops.NewHistogram(img, 0)
		if err != nil {
			return err
		}
		if err := pointops.PrintHistogram(os.Stdout, img, c.Int("bins"), 60); err != nil {
			return err
		}
		if s, err := h.Stats(); err == nil {
			fmt.Println(s)
		}
		if err := pointops.PlotHistogram(h, c.String("plot")); err != nil {
			return err
		}
		plot, err := frame.Load(c.String("plot"))
		if err != nil {
			return err
		}
		return showAll([]string{"Histogram", "Image"}, plot, img)
	},
}

var equalizeCmd = &cli.Command{
	Name:      "equalize",
	Usage:     "show a gray image with equalized and with stretched histogram",
	ArgsUsage: "[image relative to images/]",
	Action: func(c *cli.Context) error {
		img, err := loadImage(imageArg(c, cologne), true)
		if err != nil {
			return err
		}
		eq, err := pointops.Equalize(img)
		if err != nil {
			return err
		}
		st, err := pointops.Stretch(img)
		if err != nil {
			return err
		}
		return showAll([]string{"Image", "Equalized", "Stretched"}, img, eq, st)
	},
}
