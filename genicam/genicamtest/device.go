// Package genicamtest provides an in-memory genicam.Device for tests of
// code that drives cameras without the vendor SDKs installed.
package genicamtest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/genicam"
)

// Range is the interval of a float node
type Range struct {
	Min, Max float64
}

// Device is a fake camera.  Its exported maps hold the node values and may
// be edited by tests before use.  Every call is recorded in Calls.
type Device struct {
	mu sync.Mutex

	Ints    map[string]int64
	Floats  map[string]float64
	Ranges  map[string]Range
	Bools   map[string]bool
	Enums   map[string]string
	Entries map[string][]string
	Strings map[string]string

	// ReadOnly lists nodes that reject writes
	ReadOnly map[string]bool

	// Fail makes the named node (or "Start", "Stop", "Grab", "Close") fail
	Fail map[string]error

	// AdjustFloat, if set, replaces values written to float nodes the way a
	// camera rounds to what its hardware can do
	AdjustFloat func(name string, v float64) float64

	// Calls records every write, command and stream call in order,
	// e.g. "SetInt Width 640" or "Execute DeviceReset"
	Calls []string

	Streaming bool
	Closed    bool

	grabs int
}

// New returns a 1920x1080 color camera with the usual SFNC nodes
func New() *Device {
	return &Device{
		Ints: map[string]int64{
			genicam.Width:             1920,
			genicam.Height:            1080,
			genicam.WidthMax:          1920,
			genicam.HeightMax:         1080,
			genicam.SensorWidth:       1936,
			genicam.SensorHeight:      1216,
			genicam.OffsetX:           0,
			genicam.OffsetY:           0,
			genicam.BinningHorizontal: 1,
			genicam.BinningVertical:   1,
		},
		Floats: map[string]float64{
			genicam.ExposureTime: 10000,
			genicam.FrameRate:    30,
			"Gain":               0,
		},
		Ranges: map[string]Range{
			genicam.ExposureTime: {Min: 20, Max: 1e7},
		},
		Bools: map[string]bool{
			genicam.FrameRateEnable: false,
		},
		Enums: map[string]string{
			genicam.PixelFormat:      "BayerRG8",
			genicam.ExposureAuto:     "Off",
			genicam.GainAuto:         "Off",
			genicam.BalanceWhiteAuto: "Off",
			genicam.UserSetSelector:  "Default",
		},
		Entries: map[string][]string{
			genicam.PixelFormat: {"Mono8", "BayerRG8", "BGR8", "RGB8"},
		},
		Strings: map[string]string{
			genicam.DeviceVendorName: "Acme",
			genicam.DeviceModelName:  "Model-1",
			genicam.DeviceSerial:     "0001",
		},
		ReadOnly: map[string]bool{},
		Fail:     map[string]error{},
	}
}

func (d *Device) record(format string, args ...interface{}) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

// ErrClosed is returned by every node and stream call after Close, the way
// an SDK rejects a destroyed handle
var ErrClosed = errors.New("device handle is closed")

func missing(name string) error {
	return fmt.Errorf("node %s not available", name)
}

func (d *Device) writable(name string) error {
	if err := d.Fail[name]; err != nil {
		return err
	}
	if d.ReadOnly[name] {
		return fmt.Errorf("node %s is not writable", name)
	}
	return nil
}

// Int implements genicam.NodeMap
func (d *Device) Int(name string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return 0, ErrClosed
	}
	v, ok := d.Ints[name]
	if !ok {
		return 0, missing(name)
	}
	return v, nil
}

// SetInt implements genicam.NodeMap
func (d *Device) SetInt(name string, v int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return ErrClosed
	}
	d.record("SetInt %s %d", name, v)
	if _, ok := d.Ints[name]; !ok {
		return missing(name)
	}
	if err := d.writable(name); err != nil {
		return err
	}
	d.Ints[name] = v
	return nil
}

// Float implements genicam.NodeMap
func (d *Device) Float(name string) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return 0, ErrClosed
	}
	v, ok := d.Floats[name]
	if !ok {
		return 0, missing(name)
	}
	return v, nil
}

// SetFloat implements genicam.NodeMap
func (d *Device) SetFloat(name string, v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return ErrClosed
	}
	d.record("SetFloat %s %g", name, v)
	if _, ok := d.Floats[name]; !ok {
		return missing(name)
	}
	if err := d.writable(name); err != nil {
		return err
	}
	if r, ok := d.Ranges[name]; ok && (v < r.Min || v > r.Max) {
		return fmt.Errorf("value %g of %s out of range", v, name)
	}
	if d.AdjustFloat != nil {
		v = d.AdjustFloat(name, v)
	}
	d.Floats[name] = v
	return nil
}

// FloatRange implements genicam.NodeMap
func (d *Device) FloatRange(name string) (float64, float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return 0, 0, ErrClosed
	}
	r, ok := d.Ranges[name]
	if !ok {
		return 0, 0, missing(name)
	}
	return r.Min, r.Max, nil
}

// Bool implements genicam.NodeMap
func (d *Device) Bool(name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return false, ErrClosed
	}
	v, ok := d.Bools[name]
	if !ok {
		return false, missing(name)
	}
	return v, nil
}

// SetBool implements genicam.NodeMap
func (d *Device) SetBool(name string, v bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return ErrClosed
	}
	d.record("SetBool %s %t", name, v)
	if _, ok := d.Bools[name]; !ok {
		return missing(name)
	}
	if err := d.writable(name); err != nil {
		return err
	}
	d.Bools[name] = v
	return nil
}

// Enum implements genicam.NodeMap
func (d *Device) Enum(name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return "", ErrClosed
	}
	v, ok := d.Enums[name]
	if !ok {
		return "", missing(name)
	}
	return v, nil
}

// SetEnum implements genicam.NodeMap
func (d *Device) SetEnum(name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return ErrClosed
	}
	d.record("SetEnum %s %s", name, value)
	if _, ok := d.Enums[name]; !ok {
		return missing(name)
	}
	if err := d.writable(name); err != nil {
		return err
	}
	if entries, ok := d.Entries[name]; ok {
		found := false
		for _, e := range entries {
			found = found || e == value
		}
		if !found {
			return fmt.Errorf("%s is not an entry of %s", value, name)
		}
	}
	d.Enums[name] = value
	return nil
}

// EnumEntries implements genicam.NodeMap
func (d *Device) EnumEntries(name string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return nil, ErrClosed
	}
	e, ok := d.Entries[name]
	if !ok {
		return nil, missing(name)
	}
	return append([]string(nil), e...), nil
}

// StringValue implements genicam.NodeMap
func (d *Device) StringValue(name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return "", ErrClosed
	}
	v, ok := d.Strings[name]
	if !ok {
		return "", missing(name)
	}
	return v, nil
}

// Execute implements genicam.NodeMap
func (d *Device) Execute(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return ErrClosed
	}
	d.record("Execute %s", name)
	return d.Fail[name]
}

// IsWritable implements genicam.NodeMap
func (d *Device) IsWritable(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed || d.ReadOnly[name] {
		return false
	}
	return hasKey(d.Ints, name) || hasKey(d.Floats, name) || hasKey(d.Bools, name) || hasKey(d.Enums, name)
}

func hasKey[V any](m map[string]V, k string) bool {
	_, ok := m[k]
	return ok
}

// Start implements genicam.Stream
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return ErrClosed
	}
	d.record("Start")
	if err := d.Fail["Start"]; err != nil {
		return err
	}
	d.Streaming = true
	return nil
}

// Stop implements genicam.Stream
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return ErrClosed
	}
	d.record("Stop")
	d.Streaming = false
	return d.Fail["Stop"]
}

// Grab implements genicam.Stream.  Frames are BGR at the current Width and
// Height with every byte set to the number of the grab, starting at 1.
func (d *Device) Grab(timeout time.Duration) (*frame.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return nil, ErrClosed
	}
	if err := d.Fail["Grab"]; err != nil {
		return nil, err
	}
	if !d.Streaming {
		return nil, fmt.Errorf("grab timed out after %v, stream is stopped", timeout)
	}
	d.grabs++
	f := frame.New(int(d.Ints[genicam.Width]), int(d.Ints[genicam.Height]), frame.BGR)
	for i := range f.Pix {
		f.Pix[i] = byte(d.grabs)
	}
	return f, nil
}

// Grabs is the number of successful grabs
func (d *Device) Grabs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grabs
}

// Close implements genicam.Device
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Close")
	d.Closed = true
	return d.Fail["Close"]
}

// CallLog returns a copy of Calls safe to read while the device is in use
func (d *Device) CallLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Calls...)
}

// SetFail sets or clears an injected failure while the device is in use
func (d *Device) SetFail(name string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.Fail, name)
		return
	}
	d.Fail[name] = err
}

var _ genicam.Device = (*Device)(nil)
