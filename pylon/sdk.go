//go:build pylon

package pylon

/*
#cgo linux CFLAGS: -I/opt/pylon/include
#cgo linux LDFLAGS: -L/opt/pylon/lib -lpylonc
#include <stdlib.h>
#include <pylonc/PylonC.h>
*/
import "C"

import (
	"fmt"
	"time"
	"unsafe"

	"go.uber.org/multierr"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/genicam"
)

// enumCandidates are looked up through pylon's EnumEntry_<feature>_<entry> nodes,
// the C API has no call listing the entries of an enumeration by name
var enumCandidates = map[string][]string{
	genicam.PixelFormat:      {"Mono8", "Mono10", "Mono12", "BayerRG8", "BayerBG8", "BayerGB8", "BayerGR8", "RGB8", "BGR8", "YCbCr422_8"},
	genicam.ExposureAuto:     {"Off", "Once", "Continuous"},
	genicam.GainAuto:         {"Off", "Once", "Continuous"},
	genicam.BalanceWhiteAuto: {"Off", "Once", "Continuous"},
}

func check(call string, res C.GENAPIC_RESULT) error {
	if res == 0 {
		return nil
	}
	return Error{Call: call, Code: uint32(res), Message: lastMessage()}
}

func lastMessage() string {
	var n C.size_t
	if C.GenApiGetLastErrorMessage(nil, &n) != 0 || n == 0 {
		return ""
	}
	buf := (*C.char)(C.malloc(n))
	defer C.free(unsafe.Pointer(buf))
	if C.GenApiGetLastErrorMessage(buf, &n) != 0 {
		return ""
	}
	return C.GoString(buf)
}

// Buffers is the number of grab buffers registered with the stream grabber.
// Grab drains the output queue and keeps only the newest image.
const Buffers = 4

type device struct {
	h    C.PYLON_DEVICE_HANDLE
	sg   C.PYLON_STREAMGRABBER_HANDLE
	wait C.PYLON_WAITOBJECT_HANDLE

	// sgOpen is true from the first Start until Close
	sgOpen bool

	bufs    []unsafe.Pointer
	handles []C.PYLON_STREAMBUFFER_HANDLE
	size    int
}

func openDevice(id int) (genicam.Device, error) {
	if err := check("PylonInitialize", C.PylonInitialize()); err != nil {
		return nil, err
	}
	var n C.size_t
	if err := check("PylonEnumerateDevices", C.PylonEnumerateDevices(&n)); err != nil {
		C.PylonTerminate()
		return nil, err
	}
	if id < 0 || id >= int(n) {
		C.PylonTerminate()
		return nil, ErrNotFound{ID: id, Count: int(n)}
	}
	d := &device{}
	if err := check("PylonCreateDeviceByIndex", C.PylonCreateDeviceByIndex(C.size_t(id), &d.h)); err != nil {
		C.PylonTerminate()
		return nil, err
	}
	mode := C.int(C.PYLONC_ACCESS_MODE_CONTROL | C.PYLONC_ACCESS_MODE_STREAM)
	if err := check("PylonDeviceOpen", C.PylonDeviceOpen(d.h, mode)); err != nil {
		C.PylonDestroyDevice(d.h)
		C.PylonTerminate()
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
	var v C.int64_t
	err := check("get "+name, C.PylonDeviceGetIntegerFeature(d.h, cs, &v))
	return int64(v), err
}

func (d *device) SetInt(name string, v int64) error {
	cs, free := cstr(name)
	defer free()
	return check("set "+name, C.PylonDeviceSetIntegerFeature(d.h, cs, C.int64_t(v)))
}

func (d *device) Float(name string) (float64, error) {
	cs, free := cstr(name)
	defer free()
	var v C.double
	err := check("get "+name, C.PylonDeviceGetFloatFeature(d.h, cs, &v))
	return float64(v), err
}

func (d *device) SetFloat(name string, v float64) error {
	cs, free := cstr(name)
	defer free()
	return check("set "+name, C.PylonDeviceSetFloatFeature(d.h, cs, C.double(v)))
}

func (d *device) FloatRange(name string) (float64, float64, error) {
	cs, free := cstr(name)
	defer free()
	var lo, hi C.double
	if err := check("min "+name, C.PylonDeviceGetFloatFeatureMin(d.h, cs, &lo)); err != nil {
		return 0, 0, err
	}
	err := check("max "+name, C.PylonDeviceGetFloatFeatureMax(d.h, cs, &hi))
	return float64(lo), float64(hi), err
}

func (d *device) Bool(name string) (bool, error) {
	cs, free := cstr(name)
	defer free()
	var v C._Bool
	err := check("get "+name, C.PylonDeviceGetBooleanFeature(d.h, cs, &v))
	return bool(v), err
}

func (d *device) SetBool(name string, v bool) error {
	cs, free := cstr(name)
	defer free()
	return check("set "+name, C.PylonDeviceSetBooleanFeature(d.h, cs, C._Bool(v)))
}

// Enum reads enumerations and strings alike through their string form
func (d *device) Enum(name string) (string, error) {
	cs, free := cstr(name)
	defer free()
	var n C.size_t
	if err := check("get "+name, C.PylonDeviceFeatureToString(d.h, cs, nil, &n)); err != nil {
		return "", err
	}
	buf := (*C.char)(C.malloc(n))
	defer C.free(unsafe.Pointer(buf))
	if err := check("get "+name, C.PylonDeviceFeatureToString(d.h, cs, buf, &n)); err != nil {
		return "", err
	}
	return C.GoString(buf), nil
}

func (d *device) SetEnum(name, value string) error {
	cs, free := cstr(name)
	defer free()
	cv, freeV := cstr(value)
	defer freeV()
	return check("set "+name, C.PylonDeviceFeatureFromString(d.h, cs, cv))
}

func (d *device) EnumEntries(name string) ([]string, error) {
	candidates, ok := enumCandidates[name]
	if !ok {
		return nil, fmt.Errorf("entries of %s cannot be listed", name)
	}
	var out []string
	for _, c := range candidates {
		cs, free := cstr("EnumEntry_" + name + "_" + c)
		if bool(C.PylonDeviceFeatureIsAvailable(d.h, cs)) {
			out = append(out, c)
		}
		free()
	}
	return out, nil
}

func (d *device) StringValue(name string) (string, error) {
	return d.Enum(name)
}

func (d *device) Execute(name string) error {
	cs, free := cstr(name)
	defer free()
	return check("execute "+name, C.PylonDeviceExecuteCommandFeature(d.h, cs))
}

func (d *device) IsWritable(name string) bool {
	cs, free := cstr(name)
	defer free()
	return bool(C.PylonDeviceFeatureIsWritable(d.h, cs))
}

func (d *device) openGrabber() error {
	if d.sgOpen {
		return nil
	}
	var n C.size_t
	if err := check("PylonDeviceGetNumStreamGrabberChannels", C.PylonDeviceGetNumStreamGrabberChannels(d.h, &n)); err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("camera has no stream grabber channel")
	}
	if err := check("PylonDeviceGetStreamGrabber", C.PylonDeviceGetStreamGrabber(d.h, 0, &d.sg)); err != nil {
		return err
	}
	if err := check("PylonStreamGrabberOpen", C.PylonStreamGrabberOpen(d.sg)); err != nil {
		return err
	}
	if err := check("PylonStreamGrabberGetWaitObject", C.PylonStreamGrabberGetWaitObject(d.sg, &d.wait)); err != nil {
		C.PylonStreamGrabberClose(d.sg)
		return err
	}
	d.sgOpen = true
	return nil
}

// Start registers Buffers buffers of the current payload size, queues them
// and starts continuous acquisition.  The stream grabber stays open across
// Stop and Start, only the buffers follow the image size.
func (d *device) Start() error {
	if err := d.openGrabber(); err != nil {
		return err
	}
	size, err := d.Int("PayloadSize")
	if err != nil {
		return err
	}
	d.size = int(size)
	if err := check("PylonStreamGrabberSetMaxNumBuffer", C.PylonStreamGrabberSetMaxNumBuffer(d.sg, Buffers)); err != nil {
		return err
	}
	if err := check("PylonStreamGrabberSetMaxBufferSize", C.PylonStreamGrabberSetMaxBufferSize(d.sg, C.size_t(d.size))); err != nil {
		return err
	}
	if err := check("PylonStreamGrabberPrepareGrab", C.PylonStreamGrabberPrepareGrab(d.sg)); err != nil {
		return err
	}
	for i := 0; i < Buffers; i++ {
		// the SDK keeps the buffers between calls, so they live in C memory
		buf := C.malloc(C.size_t(d.size))
		var h C.PYLON_STREAMBUFFER_HANDLE
		if err := check("PylonStreamGrabberRegisterBuffer", C.PylonStreamGrabberRegisterBuffer(d.sg, buf, C.size_t(d.size), &h)); err != nil {
			C.free(buf)
			return multierr.Append(err, d.Stop())
		}
		d.bufs = append(d.bufs, buf)
		d.handles = append(d.handles, h)
		if err := check("PylonStreamGrabberQueueBuffer", C.PylonStreamGrabberQueueBuffer(d.sg, h, nil)); err != nil {
			return multierr.Append(err, d.Stop())
		}
	}
	if err := d.Execute("AcquisitionStart"); err != nil {
		return multierr.Append(err, d.Stop())
	}
	return nil
}

// Stop ends acquisition, flushes the queues and releases the buffers
func (d *device) Stop() error {
	if len(d.bufs) == 0 {
		return nil
	}
	errs := d.Execute("AcquisitionStop")
	errs = multierr.Append(errs, check("PylonStreamGrabberCancelGrab", C.PylonStreamGrabberCancelGrab(d.sg)))
	for {
		var (
			res   C.PylonGrabResult_t
			ready C._Bool
		)
		if C.PylonStreamGrabberRetrieveResult(d.sg, &res, &ready) != 0 || !bool(ready) {
			break
		}
	}
	for i, h := range d.handles {
		errs = multierr.Append(errs, check("PylonStreamGrabberDeregisterBuffer", C.PylonStreamGrabberDeregisterBuffer(d.sg, h)))
		C.free(d.bufs[i])
	}
	d.bufs, d.handles = nil, nil
	return multierr.Append(errs, check("PylonStreamGrabberFinishGrab", C.PylonStreamGrabberFinishGrab(d.sg)))
}

// Grab waits for the next image, then takes every result already waiting
// and returns the newest.  All buffers go back to the input queue.
func (d *device) Grab(timeout time.Duration) (*frame.Frame, error) {
	if len(d.bufs) == 0 {
		return nil, fmt.Errorf("grab: not grabbing")
	}
	var ready C._Bool
	ms := C.uint32_t(timeout / time.Millisecond)
	if err := check("PylonWaitObjectWait", C.PylonWaitObjectWait(d.wait, ms, &ready)); err != nil {
		return nil, err
	}
	if !bool(ready) {
		return nil, fmt.Errorf("grab: no image within %v", timeout)
	}
	return drain(func() (*frame.Frame, bool, error) {
		var res C.PylonGrabResult_t
		if err := check("PylonStreamGrabberRetrieveResult", C.PylonStreamGrabberRetrieveResult(d.sg, &res, &ready)); err != nil {
			return nil, false, err
		}
		if !bool(ready) {
			return nil, false, nil
		}
		var (
			f   *frame.Frame
			err error
		)
		if res.Status == C.Grabbed {
			f, err = d.toFrame(&res)
		} else {
			err = Error{Call: "grab", Code: uint32(res.ErrorCode)}
		}
		if qerr := check("PylonStreamGrabberQueueBuffer", C.PylonStreamGrabberQueueBuffer(d.sg, res.hBuffer, res.pContext)); qerr != nil {
			return f, false, multierr.Append(err, qerr)
		}
		return f, true, err
	})
}

// toFrame copies the image out of the SDK buffer
func (d *device) toFrame(res *C.PylonGrabResult_t) (*frame.Frame, error) {
	ch := frame.BGR
	if res.PixelType == C.PixelType_Mono8 {
		ch = frame.Gray
	}
	w, h := int(res.SizeX), int(res.SizeY)
	pix := unsafe.Slice((*byte)(res.pBuffer), d.size)
	return frame.FromBytes(w, h, ch, w*ch+int(res.PaddingX), pix)
}

func (d *device) Close() error {
	errs := d.Stop()
	if d.sgOpen {
		errs = multierr.Append(errs, check("PylonStreamGrabberClose", C.PylonStreamGrabberClose(d.sg)))
		d.sgOpen = false
	}
	errs = multierr.Append(errs, check("PylonDeviceClose", C.PylonDeviceClose(d.h)))
	errs = multierr.Append(errs, check("PylonDestroyDevice", C.PylonDestroyDevice(d.h)))
	C.PylonTerminate()
	return errs
}
