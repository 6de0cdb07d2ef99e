/*
Package genicam holds the parts of a camera adapter that are the same for
every SDK exposing GenICam SFNC features by name.

Basler pylon, Allied Vision Vimba X and Daheng Galaxy all let a program read
and write camera features ("Width", "ExposureAuto", "DeviceReset", ...) by
their standard names.  A vendor package implements Device over its SDK and
hands it to a Core, which implements camera.Camera once for all of them.
Vendor quirks are captured in a Profile.
*/
package genicam

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// NodeMap is access to the features of one device by SFNC name
type NodeMap interface {
	Int(name string) (int64, error)
	SetInt(name string, v int64) error

	Float(name string) (float64, error)
	SetFloat(name string, v float64) error

	// FloatRange is the interval a float feature accepts
	FloatRange(name string) (min, max float64, err error)

	Bool(name string) (bool, error)
	SetBool(name string, v bool) error

	Enum(name string) (string, error)
	SetEnum(name, value string) error

	// EnumEntries lists the values an enumeration currently accepts
	EnumEntries(name string) ([]string, error)

	StringValue(name string) (string, error)

	// Execute runs a command feature
	Execute(name string) error

	// IsWritable is false for missing, read-only and locked features
	IsWritable(name string) bool
}

// Stream is the acquisition side of a device
type Stream interface {
	Start() error
	Stop() error

	// Grab waits at most timeout for the next frame
	Grab(timeout time.Duration) (*frame.Frame, error)
}

// Device is an open camera
type Device interface {
	NodeMap
	Stream
	Close() error
}

// Kind is the interface type of a feature node
type Kind int

const (
	// KindInt is an IInteger node
	KindInt Kind = iota

	// KindFloat is an IFloat node
	KindFloat

	// KindBool is an IBoolean node
	KindBool

	// KindEnum is an IEnumeration node
	KindEnum

	// KindString is an IString node
	KindString

	// KindCommand is an ICommand node
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindString:
		return "string"
	case KindCommand:
		return "command"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// SFNC feature names used by the adapters
const (
	Width             = "Width"
	Height            = "Height"
	WidthMax          = "WidthMax"
	HeightMax         = "HeightMax"
	SensorWidth       = "SensorWidth"
	SensorHeight      = "SensorHeight"
	OffsetX           = "OffsetX"
	OffsetY           = "OffsetY"
	BinningHorizontal = "BinningHorizontal"
	BinningVertical   = "BinningVertical"
	PixelFormat       = "PixelFormat"
	ExposureTime      = "ExposureTime"
	ExposureAuto      = "ExposureAuto"
	GainAuto          = "GainAuto"
	BalanceWhiteAuto  = "BalanceWhiteAuto"
	FrameRate         = "AcquisitionFrameRate"
	FrameRateEnable   = "AcquisitionFrameRateEnable"
	FrameRateMode     = "AcquisitionFrameRateMode"
	AcquisitionStart  = "AcquisitionStart"
	AcquisitionStop   = "AcquisitionStop"
	DeviceVendorName  = "DeviceVendorName"
	DeviceModelName   = "DeviceModelName"
	DeviceSerial      = "DeviceSerialNumber"
	DeviceReset       = "DeviceReset"
	UserSetSelector   = "UserSetSelector"
	UserSetLoad       = "UserSetLoad"
)

// Features maps the SFNC names the adapters touch to their node kind
var Features = map[string]Kind{
	Width:             KindInt,
	Height:            KindInt,
	WidthMax:          KindInt,
	HeightMax:         KindInt,
	SensorWidth:       KindInt,
	SensorHeight:      KindInt,
	OffsetX:           KindInt,
	OffsetY:           KindInt,
	BinningHorizontal: KindInt,
	BinningVertical:   KindInt,
	PixelFormat:       KindEnum,
	ExposureTime:      KindFloat,
	ExposureAuto:      KindEnum,
	GainAuto:          KindEnum,
	BalanceWhiteAuto:  KindEnum,
	"Gain":            KindFloat,
	FrameRate:         KindFloat,
	FrameRateEnable:   KindBool,
	FrameRateMode:     KindEnum,
	"ReverseX":        KindBool,
	"ReverseY":        KindBool,
	"Gamma":           KindFloat,
	AcquisitionStart:  KindCommand,
	AcquisitionStop:   KindCommand,
	DeviceVendorName:  KindString,
	DeviceModelName:   KindString,
	DeviceSerial:      KindString,
	DeviceReset:       KindCommand,
	UserSetSelector:   KindEnum,
	UserSetLoad:       KindCommand,
}

// FeatureNames returns the keys of Features in sorted order
func FeatureNames() []string {
	out := make([]string, 0, len(Features))
	for k := range Features {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ErrFeatureNotFound is generated when a feature is looked up in the Features
// map but does not exist there
type ErrFeatureNotFound struct {
	// Feature is the feature that was not found
	Feature string
}

// Error satisfies the error interface
func (e ErrFeatureNotFound) Error() string {
	return fmt.Sprintf("feature %s not found in Features", e.Feature)
}

// Get reads any feature from the Features table and returns its value
func Get(nm NodeMap, name string) (interface{}, error) {
	kind, ok := Features[name]
	if !ok {
		return nil, ErrFeatureNotFound{name}
	}
	switch kind {
	case KindInt:
		return nm.Int(name)
	case KindFloat:
		return nm.Float(name)
	case KindBool:
		return nm.Bool(name)
	case KindEnum:
		return nm.Enum(name)
	case KindString:
		return nm.StringValue(name)
	default:
		return nil, fmt.Errorf("feature %s is a %v and has no value", name, kind)
	}
}

// Set writes any feature from the Features table.  Numbers decoded from
// JSON arrive as float64 and are converted for integer features.  Commands
// are executed when value is true.
func Set(nm NodeMap, name string, value interface{}) error {
	kind, ok := Features[name]
	if !ok {
		return ErrFeatureNotFound{name}
	}
	bad := func() error {
		return fmt.Errorf("feature %s is a %v, cannot set it to %T %v", name, kind, value, value)
	}
	switch kind {
	case KindInt:
		switch v := value.(type) {
		case int:
			return nm.SetInt(name, int64(v))
		case int64:
			return nm.SetInt(name, v)
		case float64:
			if v != float64(int64(v)) {
				return bad()
			}
			return nm.SetInt(name, int64(v))
		}
	case KindFloat:
		switch v := value.(type) {
		case float64:
			return nm.SetFloat(name, v)
		case int:
			return nm.SetFloat(name, float64(v))
		}
	case KindBool:
		if v, ok := value.(bool); ok {
			return nm.SetBool(name, v)
		}
	case KindEnum:
		if v, ok := value.(string); ok {
			return nm.SetEnum(name, v)
		}
	case KindCommand:
		if v, ok := value.(bool); ok {
			if !v {
				return nil
			}
			return nm.Execute(name)
		}
	}
	return bad()
}

// Configure sets every feature in settings.  A failure does not stop the
// remaining features from being set; all errors are returned together.
func Configure(nm NodeMap, settings map[string]interface{}) error {
	var errs error
	for _, k := range sortedKeys(settings) {
		errs = multierr.Append(errs, Set(nm, k, settings[k]))
	}
	return errs
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
