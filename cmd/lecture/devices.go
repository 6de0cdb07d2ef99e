//go:build !nocv

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/MarcOnTheMoon/imaging-learners/cameras"
	"github.com/MarcOnTheMoon/imaging-learners/usb3v"
)

var devicesCmd = &cli.Command{
	Name:  "devices",
	Usage: "list the attached USB3 Vision cameras",
	Action: func(c *cli.Context) error {
		devs, err := usb3v.List()
		for _, d := range devs {
			fmt.Println(d)
		}
		if len(devs) == 0 {
			fmt.Println("no USB3 Vision camera found")
		}
		fmt.Println("vendors:", cameras.Vendors())
		return err
	},
}
