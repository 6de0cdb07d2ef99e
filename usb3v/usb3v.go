/*
Package usb3v lists the USB3 Vision cameras attached to the machine.

A USB3 Vision device carries an interface of class Miscellaneous (0xEF) and
subclass 0x05.  Listing does not claim the device, so it works while a
vendor SDK holds the camera, but the string descriptors need read access to
the device node; on Linux install the vendor's udev rules first.
*/
package usb3v

import (
	"fmt"

	"github.com/google/gousb"
	"go.uber.org/multierr"
)

const (
	// Class is the interface class of USB3 Vision devices
	Class = gousb.Class(0xEF)

	// SubClass is the interface subclass of USB3 Vision devices
	SubClass = gousb.Class(0x05)
)

// Vendors maps the USB vendor IDs of the supported camera makers to names
var Vendors = map[gousb.ID]string{
	0x2676: "Basler",
	0x1ab2: "Allied Vision",
	0x2ba2: "Daheng Imaging",
}

// Device describes one attached camera
type Device struct {
	Bus          int
	Address      int
	Vendor       gousb.ID
	Product      gousb.ID
	Manufacturer string
	Description  string
	Serial       string
}

func (d Device) String() string {
	name := d.Manufacturer
	if name == "" {
		name = VendorName(d.Vendor)
	}
	return fmt.Sprintf("bus %03d device %03d %s:%s %s %s (serial %s)", d.Bus, d.Address, d.Vendor, d.Product, name, d.Description, d.Serial)
}

// VendorName is the maker of the vendor id, or the id in hex
func VendorName(id gousb.ID) string {
	if n, ok := Vendors[id]; ok {
		return n
	}
	return id.String()
}

// IsUSB3Vision is true if any alternate setting of any interface of desc
// is of the USB3 Vision class
func IsUSB3Vision(desc *gousb.DeviceDesc) bool {
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == Class && alt.SubClass == SubClass {
					return true
				}
			}
		}
	}
	return false
}

// List returns the attached USB3 Vision devices.  Devices whose strings
// cannot be read are listed with what the descriptor tells, and the read
// errors are returned alongside.
func List() ([]Device, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()
	devs, err := ctx.OpenDevices(IsUSB3Vision)
	out := make([]Device, 0, len(devs))
	for _, dev := range devs {
		d := Device{
			Bus:     dev.Desc.Bus,
			Address: dev.Desc.Address,
			Vendor:  dev.Desc.Vendor,
			Product: dev.Desc.Product,
		}
		var e error
		d.Manufacturer, e = dev.Manufacturer()
		err = multierr.Append(err, e)
		d.Description, e = dev.Product()
		err = multierr.Append(err, e)
		d.Serial, e = dev.SerialNumber()
		err = multierr.Append(err, e)
		err = multierr.Append(err, dev.Close())
		out = append(out, d)
	}
	return out, err
}
