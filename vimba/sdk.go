//go:build vimba

package vimba

/*
#cgo linux CFLAGS: -I/opt/VimbaX/api/include
#cgo linux LDFLAGS: -L/opt/VimbaX/api/lib -lVmbC
#include <stdlib.h>
#include <VmbC/VmbC.h>
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

func check(call string, code C.VmbError_t) error {
	return NewError(call, int32(code))
}

type device struct {
	h C.VmbHandle_t

	// frames and their buffers live in C memory, the SDK holds on to them
	// between queueing and completion
	frames []C.VmbFrame_t
	cmem   unsafe.Pointer
	next   int
}

func openDevice(id int) (genicam.Device, error) {
	if err := check("VmbStartup", C.VmbStartup(nil)); err != nil {
		return nil, err
	}
	var n C.VmbUint32_t
	err := check("VmbCamerasList", C.VmbCamerasList(nil, 0, &n, C.sizeof_VmbCameraInfo_t))
	if err != nil {
		C.VmbShutdown()
		return nil, err
	}
	if id < 0 || id >= int(n) {
		C.VmbShutdown()
		return nil, ErrNotFound{ID: id, Count: int(n)}
	}
	infos := make([]C.VmbCameraInfo_t, n)
	err = check("VmbCamerasList", C.VmbCamerasList(&infos[0], n, &n, C.sizeof_VmbCameraInfo_t))
	if err != nil {
		C.VmbShutdown()
		return nil, err
	}
	d := &device{}
	err = check("VmbCameraOpen", C.VmbCameraOpen(infos[id].cameraIdString, C.VmbAccessModeFull, &d.h))
	if err != nil {
		C.VmbShutdown()
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
	var v C.VmbInt64_t
	err := check("get "+name, C.VmbFeatureIntGet(d.h, cs, &v))
	return int64(v), err
}

func (d *device) SetInt(name string, v int64) error {
	cs, free := cstr(name)
	defer free()
	return check("set "+name, C.VmbFeatureIntSet(d.h, cs, C.VmbInt64_t(v)))
}

func (d *device) Float(name string) (float64, error) {
	cs, free := cstr(name)
	defer free()
	var v C.double
	err := check("get "+name, C.VmbFeatureFloatGet(d.h, cs, &v))
	return float64(v), err
}

func (d *device) SetFloat(name string, v float64) error {
	cs, free := cstr(name)
	defer free()
	return check("set "+name, C.VmbFeatureFloatSet(d.h, cs, C.double(v)))
}

func (d *device) FloatRange(name string) (float64, float64, error) {
	cs, free := cstr(name)
	defer free()
	var lo, hi C.double
	err := check("range "+name, C.VmbFeatureFloatRangeQuery(d.h, cs, &lo, &hi))
	return float64(lo), float64(hi), err
}

func (d *device) Bool(name string) (bool, error) {
	cs, free := cstr(name)
	defer free()
	var v C.VmbBool_t
	err := check("get "+name, C.VmbFeatureBoolGet(d.h, cs, &v))
	return v == C.VmbBoolTrue, err
}

func (d *device) SetBool(name string, v bool) error {
	cs, free := cstr(name)
	defer free()
	b := C.VmbBool_t(C.VmbBoolFalse)
	if v {
		b = C.VmbBoolTrue
	}
	return check("set "+name, C.VmbFeatureBoolSet(d.h, cs, b))
}

func (d *device) Enum(name string) (string, error) {
	cs, free := cstr(name)
	defer free()
	var v *C.char
	if err := check("get "+name, C.VmbFeatureEnumGet(d.h, cs, &v)); err != nil {
		return "", err
	}
	return C.GoString(v), nil
}

func (d *device) SetEnum(name, value string) error {
	cs, free := cstr(name)
	defer free()
	cv, freeV := cstr(value)
	defer freeV()
	return check("set "+name, C.VmbFeatureEnumSet(d.h, cs, cv))
}

func (d *device) EnumEntries(name string) ([]string, error) {
	cs, free := cstr(name)
	defer free()
	var n C.VmbUint32_t
	if err := check("entries "+name, C.VmbFeatureEnumRangeQuery(d.h, cs, nil, 0, &n)); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	arr := (**C.char)(C.calloc(C.size_t(n), C.size_t(unsafe.Sizeof(uintptr(0)))))
	defer C.free(unsafe.Pointer(arr))
	if err := check("entries "+name, C.VmbFeatureEnumRangeQuery(d.h, cs, arr, n, &n)); err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for _, p := range unsafe.Slice(arr, n) {
		out = append(out, C.GoString(p))
	}
	return out, nil
}

func (d *device) StringValue(name string) (string, error) {
	cs, free := cstr(name)
	defer free()
	var n C.VmbUint32_t
	if err := check("get "+name, C.VmbFeatureStringGet(d.h, cs, nil, 0, &n)); err != nil {
		return "", err
	}
	buf := (*C.char)(C.malloc(C.size_t(n) + 1))
	defer C.free(unsafe.Pointer(buf))
	if err := check("get "+name, C.VmbFeatureStringGet(d.h, cs, buf, n+1, &n)); err != nil {
		return "", err
	}
	return C.GoString(buf), nil
}

func (d *device) Execute(name string) error {
	cs, free := cstr(name)
	defer free()
	return check("run "+name, C.VmbFeatureCommandRun(d.h, cs))
}

func (d *device) IsWritable(name string) bool {
	cs, free := cstr(name)
	defer free()
	var r, w C.VmbBool_t
	if C.VmbFeatureAccessQuery(d.h, cs, &r, &w) != C.VmbErrorSuccess {
		return false
	}
	return w == C.VmbBoolTrue
}

// Start announces and queues Buffers frames, then starts acquisition
func (d *device) Start() error {
	var size C.VmbUint32_t
	if err := check("VmbPayloadSizeGet", C.VmbPayloadSizeGet(d.h, &size)); err != nil {
		return err
	}
	frameBytes := C.size_t(C.sizeof_VmbFrame_t) * Buffers
	d.cmem = C.calloc(1, frameBytes+C.size_t(size)*Buffers)
	if d.cmem == nil {
		return fmt.Errorf("cannot allocate %d frame buffers", Buffers)
	}
	d.frames = unsafe.Slice((*C.VmbFrame_t)(d.cmem), Buffers)
	bufs := unsafe.Add(d.cmem, frameBytes)
	var errs error
	for i := range d.frames {
		f := &d.frames[i]
		f.buffer = unsafe.Add(bufs, i*int(size))
		f.bufferSize = size
		errs = multierr.Append(errs, check("VmbFrameAnnounce", C.VmbFrameAnnounce(d.h, f, C.sizeof_VmbFrame_t)))
	}
	errs = multierr.Append(errs, check("VmbCaptureStart", C.VmbCaptureStart(d.h)))
	for i := range d.frames {
		errs = multierr.Append(errs, check("VmbCaptureFrameQueue", C.VmbCaptureFrameQueue(d.h, &d.frames[i], nil)))
	}
	if errs != nil {
		d.release()
		return errs
	}
	d.next = 0
	return d.Execute(genicam.AcquisitionStart)
}

func (d *device) release() {
	C.VmbCaptureEnd(d.h)
	C.VmbCaptureQueueFlush(d.h)
	C.VmbFrameRevokeAll(d.h)
	if d.cmem != nil {
		C.free(d.cmem)
	}
	d.cmem, d.frames = nil, nil
}

func (d *device) Stop() error {
	if d.cmem == nil {
		return nil
	}
	err := d.Execute(genicam.AcquisitionStop)
	d.release()
	return err
}

// Grab waits for the oldest queued frame, copies it and queues it again
func (d *device) Grab(timeout time.Duration) (*frame.Frame, error) {
	if d.frames == nil {
		return nil, fmt.Errorf("grab: not streaming")
	}
	f := &d.frames[d.next]
	ms := C.VmbUint32_t(timeout / time.Millisecond)
	if err := check("VmbCaptureFrameWait", C.VmbCaptureFrameWait(d.h, f, ms)); err != nil {
		return nil, err
	}
	defer func() {
		C.VmbCaptureFrameQueue(d.h, f, nil)
		d.next = (d.next + 1) % Buffers
	}()
	if f.receiveStatus != C.VmbFrameStatusComplete {
		return nil, Error{Call: "receive frame", Code: int32(f.receiveStatus)}
	}
	ch := frame.BGR
	if f.pixelFormat == C.VmbPixelFormatMono8 {
		ch = frame.Gray
	}
	w, h := int(f.width), int(f.height)
	pix := unsafe.Slice((*byte)(unsafe.Pointer(f.imageData)), w*h*ch)
	return frame.FromBytes(w, h, ch, w*ch, pix)
}

func (d *device) Close() error {
	d.Stop()
	err := check("VmbCameraClose", C.VmbCameraClose(d.h))
	C.VmbShutdown()
	return err
}
