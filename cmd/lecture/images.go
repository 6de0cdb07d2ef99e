//go:build !nocv

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/MarcOnTheMoon/imaging-learners/display"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/imgdata"
)

const (
	docks   = "misc/Docks.jpg"
	cologne = "misc/Cologne.jpg"
	parrot  = "misc/Parrot.jpg"
)

// loadImage reads an image below the data directory, as gray if asked
func loadImage(rel string, gray bool) (*frame.Frame, error) {
	f, err := frame.Load(data.Image(rel))
	if err != nil {
		return nil, err
	}
	if gray {
		f = f.ToGray()
	}
	return f, nil
}

func imageArg(c *cli.Context, def string) string {
	if c.Args().Present() {
		return c.Args().First()
	}
	return def
}

var openCmd = &cli.Command{
	Name:      "open",
	Usage:     "open an image from file and display it",
	ArgsUsage: "[image relative to images/]",
	Action: func(c *cli.Context) error {
		f, err := loadImage(imageArg(c, docks), false)
		if err != nil {
			return err
		}
		return display.Show("Image [Press any key to quit]", f)
	},
}

var envCmd = &cli.Command{
	Name:  "env",
	Usage: "open an image below $" + imgdata.EnvVar,
	Action: func(c *cli.Context) error {
		root, ok := os.LookupEnv(imgdata.EnvVar)
		if !ok {
			return fmt.Errorf("environment variable %s is not set", imgdata.EnvVar)
		}
		f, err := frame.Load(imgdata.Paths{Root: root}.Image(docks))
		if err != nil {
			return err
		}
		return display.Show("Image [Press any key to quit]", f.ToGray())
	},
}

var saveCmd = &cli.Command{
	Name:      "save",
	Usage:     "open an image as gray image and save it to a file",
	ArgsUsage: "[output file]",
	Action: func(c *cli.Context) error {
		f, err := loadImage(docks, true)
		if err != nil {
			return err
		}
		out := imageArg(c, "Docks_gray.jpg")
		if err := frame.Save(out, f); err != nil {
			return err
		}
		fmt.Println("saved", out)
		return display.Show("Image [Press any key to quit]", f)
	},
}

var grayCmd = &cli.Command{
	Name:  "gray",
	Usage: "convert a color image to gray",
	Action: func(c *cli.Context) error {
		f, err := loadImage(imageArg(c, docks), false)
		if err != nil {
			return err
		}
		w := display.NewWindow("Image")
		defer w.Close()
		for _, img := range []*frame.Frame{f, f.ToGray()} {
			if err := w.Show(img); err != nil {
				return err
			}
			display.WaitKey(0)
		}
		return nil
	},
}

var windowsCmd = &cli.Command{
	Name:  "windows",
	Usage: "show an image as color and gray image in separate windows",
	Action: func(c *cli.Context) error {
		f, err := loadImage(imageArg(c, docks), false)
		if err != nil {
			return err
		}
		color := display.NewWindow("Color image")
		defer color.Close()
		gray := display.NewWindow("Grayscale image")
		defer gray.Close()
		if err := color.Show(f); err != nil {
			return err
		}
		if err := gray.Show(f.ToGray()); err != nil {
			return err
		}
		display.WaitKey(0)
		return nil
	},
}

var namedWindowCmd = &cli.Command{
	Name:  "named-window",
	Usage: "show two images one after the other in a single named window",
	Action: func(c *cli.Context) error {
		var imgs []*frame.Frame
		for _, rel := range []string{docks, cologne} {
			f, err := loadImage(rel, false)
			if err != nil {
				return err
			}
			imgs = append(imgs, f)
		}
		w := display.NewWindow("Image")
		defer w.Close()
		display.WaitKey(0)
		for _, f := range imgs {
			if err := w.Show(f); err != nil {
				return err
			}
			display.WaitKey(0)
		}
		return nil
	},
}
