//go:build galaxy

package galaxy

/*
#cgo linux CFLAGS: -I/usr/lib/galaxy/inc
#cgo linux LDFLAGS: -lgxiapi
#include <stdlib.h>
#include <GxIAPI.h>
*/
import "C"

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/genicam"
)

// enumeration timeout of GXUpdateDeviceList in ms
const enumTimeout = 1000

func check(call string, status C.GX_STATUS) error {
	return NewError(call, int32(status))
}

type device struct {
	h         C.GX_DEV_HANDLE
	streaming bool

	// filter is the PixelColorFilter entry, "None" for mono sensors
	filter string
}

func openDevice(id int) (genicam.Device, error) {
	if err := check("GXInitLib", C.GXInitLib()); err != nil {
		return nil, err
	}
	var n C.uint32_t
	if err := check("GXUpdateDeviceList", C.GXUpdateDeviceList(&n, enumTimeout)); err != nil {
		C.GXCloseLib()
		return nil, err
	}
	if id < 0 || id >= int(n) {
		C.GXCloseLib()
		return nil, ErrNotFound{ID: id, Count: int(n)}
	}
	d := &device{}
	// the Galaxy device list counts from one
	if err := check("GXOpenDeviceByIndex", C.GXOpenDeviceByIndex(C.uint32_t(id+1), &d.h)); err != nil {
		C.GXCloseLib()
		return nil, err
	}
	return d, nil
}

func cstr(s string) (*C.char, func()) {
	cs := C.CString(s)
	return cs, func() { C.free(unsafe.Pointer(cs)) }
}

func (d *device) Int(name string) (int64, error) {
	cs, free := cstr(name)
	defer free()
	var v C.GX_INT_VALUE
	err := check("get "+name, C.GXGetIntValue(d.h, cs, &v))
	return int64(v.nCurValue), err
}

func (d *device) SetInt(name string, v int64) error {
	cs, free := cstr(name)
	defer free()
	return check("set "+name, C.GXSetIntValue(d.h, cs, C.int64_t(v)))
}

func (d *device) Float(name string) (float64, error) {
	cs, free := cstr(name)
	defer free()
	var v C.GX_FLOAT_VALUE
	err := check("get "+name, C.GXGetFloatValue(d.h, cs, &v))
	return float64(v.dCurValue), err
}

func (d *device) SetFloat(name string, v float64) error {
	cs, free := cstr(name)
	defer free()
	return check("set "+name, C.GXSetFloatValue(d.h, cs, C.double(v)))
}

func (d *device) FloatRange(name string) (float64, float64, error) {
	cs, free := cstr(name)
	defer free()
	var v C.GX_FLOAT_VALUE
	err := check("range "+name, C.GXGetFloatValue(d.h, cs, &v))
	return float64(v.dMin), float64(v.dMax), err
}

func (d *device) Bool(name string) (bool, error) {
	cs, free := cstr(name)
	defer free()
	var v C.bool
	err := check("get "+name, C.GXGetBoolValue(d.h, cs, &v))
	return bool(v), err
}

func (d *device) SetBool(name string, v bool) error {
	cs, free := cstr(name)
	defer free()
	return check("set "+name, C.GXSetBoolValue(d.h, cs, C.bool(v)))
}

func (d *device) enum(name string) (C.GX_ENUM_VALUE, error) {
	cs, free := cstr(name)
	defer free()
	var v C.GX_ENUM_VALUE
	err := check("get "+name, C.GXGetEnumValue(d.h, cs, &v))
	return v, err
}

func (d *device) Enum(name string) (string, error) {
	v, err := d.enum(name)
	if err != nil {
		return "", err
	}
	return C.GoString(&v.stCurValue.strCurSymbolic[0]), nil
}

func (d *device) SetEnum(name, value string) error {
	cs, free := cstr(name)
	defer free()
	cv, freeV := cstr(value)
	defer freeV()
	return check("set "+name, C.GXSetEnumValueByString(d.h, cs, cv))
}

func (d *device) EnumEntries(name string) ([]string, error) {
	v, err := d.enum(name)
	if err != nil {
		return nil, err
	}
	n := int(v.nSupportedNum)
	out := make([]string, 0, n)
	for i := 0; i < n && i < len(v.nArrySupportedValue); i++ {
		out = append(out, C.GoString(&v.nArrySupportedValue[i].strCurSymbolic[0]))
	}
	return out, nil
}

func (d *device) StringValue(name string) (string, error) {
	cs, free := cstr(name)
	defer free()
	var v C.GX_STRING_VALUE
	if err := check("get "+name, C.GXGetStringValue(d.h, cs, &v)); err != nil {
		return "", err
	}
	return C.GoString(&v.strCurValue[0]), nil
}

func (d *device) Execute(name string) error {
	cs, free := cstr(name)
	defer free()
	return check("run "+name, C.GXSetCommandValue(d.h, cs))
}

func (d *device) IsWritable(name string) bool {
	cs, free := cstr(name)
	defer free()
	var mode C.GX_NODE_ACCESS_MODE
	if C.GXGetNodeAccessMode(d.h, cs, &mode) != C.GX_STATUS_SUCCESS {
		return false
	}
	return mode == C.GX_NODE_ACCESS_MODE_WO || mode == C.GX_NODE_ACCESS_MODE_RW
}

func (d *device) Start() error {
	if d.filter == "" {
		d.filter = "None"
		if f, err := d.Enum("PixelColorFilter"); err == nil {
			d.filter = f
		}
	}
	if err := check("GXStreamOn", C.GXStreamOn(d.h)); err != nil {
		return err
	}
	d.streaming = true
	return nil
}

func (d *device) Stop() error {
	if !d.streaming {
		return nil
	}
	d.streaming = false
	return check("GXStreamOff", C.GXStreamOff(d.h))
}

// Grab dequeues the next buffer, converts it and hands the buffer back
func (d *device) Grab(timeout time.Duration) (*frame.Frame, error) {
	if !d.streaming {
		return nil, fmt.Errorf("grab: not streaming")
	}
	var buf C.PGX_FRAME_BUFFER
	ms := C.uint32_t(timeout / time.Millisecond)
	if err := check("GXDQBuf", C.GXDQBuf(d.h, &buf, ms)); err != nil {
		return nil, err
	}
	defer C.GXQBuf(d.h, buf)
	if buf.nStatus != C.GX_FRAME_STATUS_SUCCESS {
		return nil, fmt.Errorf("incomplete frame, status %d", int(buf.nStatus))
	}
	w, h := int(buf.nWidth), int(buf.nHeight)
	raw := unsafe.Slice((*byte)(buf.pImgBuf), w*h)
	if _, bayer := bayerRed[d.filter]; !bayer {
		return frame.FromBytes(w, h, frame.Gray, w, raw)
	}
	return Demosaic(raw, w, h, d.filter)
}

func (d *device) Close() error {
	d.Stop()
	err := check("GXCloseDevice", C.GXCloseDevice(d.h))
	C.GXCloseLib()
	return err
}
