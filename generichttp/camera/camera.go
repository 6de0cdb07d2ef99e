// Package camera provides a generic HTTP interface to a camera.Camera
package camera

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	icamera "github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/generichttp"
	"github.com/MarcOnTheMoon/imaging-learners/imgrec"
	"github.com/MarcOnTheMoon/imaging-learners/pointops"
	"github.com/MarcOnTheMoon/imaging-learners/server"
	"github.com/MarcOnTheMoon/imaging-learners/util"
)

func init() {
	generichttp.RegisterStatus(icamera.ErrNotSupported, http.StatusNotImplemented)
	generichttp.RegisterStatus(icamera.ErrOutOfRange, http.StatusBadRequest)
	generichttp.RegisterStatus(icamera.ErrNotApplied, http.StatusConflict)
	generichttp.RegisterStatus(icamera.ErrNotOpen, http.StatusServiceUnavailable)
	generichttp.RegisterStatus(icamera.ErrNoFrame, http.StatusServiceUnavailable)
}

// HTTPCamera serves one camera.  Its routes do not serialise access to the
// camera themselves; wrap the router in a locker.
type HTTPCamera struct {
	Cam icamera.Camera

	// Rec, if not nil and Enabled, records every image served
	Rec *imgrec.Recorder

	// Limiter paces GET /image
	Limiter *rate.Limiter

	Log *zap.SugaredLogger

	RouteTable generichttp.RouteTable
}

// NewHTTPCamera returns a camera server whose image route is limited to
// maxFPS requests per second.  maxFPS <= 0 means no limit.  log may be nil.
func NewHTTPCamera(cam icamera.Camera, rec *imgrec.Recorder, maxFPS float64, log *zap.SugaredLogger) *HTTPCamera {
	lim := rate.NewLimiter(rate.Inf, 1)
	if maxFPS > 0 {
		lim = rate.NewLimiter(rate.Limit(maxFPS), 1)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &HTTPCamera{Cam: cam, Rec: rec, Limiter: lim, Log: log, RouteTable: generichttp.RouteTable{}}
	HTTPCam(h, h.RouteTable)
	if rec != nil {
		imgrec.NewHTTPWrapper(rec).Inject(h)
	}
	return h
}

// RT satisfies generichttp.HTTPer
func (h *HTTPCamera) RT() generichttp.RouteTable {
	return h.RouteTable
}

func get(path string) generichttp.MethodPath {
	return generichttp.MethodPath{Method: http.MethodGet, Path: path}
}

func post(path string) generichttp.MethodPath {
	return generichttp.MethodPath{Method: http.MethodPost, Path: path}
}

// HTTPCam injects the camera routes into a route table
func HTTPCam(h *HTTPCamera, table generichttp.RouteTable) {
	c := h.Cam
	table[get("/name")] = generichttp.GetString(func() (string, error) { return c.Name(), nil })
	table[get("/image")] = GetFrame(c, h.Rec, h.Limiter, h.Log)
	table[get("/resolution")] = GetResolution(c)
	table[post("/resolution")] = SetResolution(c)
	table[get("/frame-rate")] = generichttp.GetFloat(c.FrameRate)
	table[post("/frame-rate")] = generichttp.SetFloat(c.SetFrameRate)
	table[get("/exposure-time")] = GetExposureTime(c)
	table[post("/exposure-time")] = SetExposureTime(c)
	table[get("/exposure-range")] = GetExposureRange(c)
	table[get("/auto-exposure")] = GetMode(c.AutoExposure)
	table[post("/auto-exposure")] = SetMode(c.SetAutoExposure)
	table[get("/auto-gain")] = GetMode(c.AutoGain)
	table[post("/auto-gain")] = SetMode(c.SetAutoGain)
	table[get("/auto-white-balance")] = GetMode(c.AutoWhiteBalance)
	table[post("/auto-white-balance")] = SetMode(c.SetAutoWhiteBalance)
	table[post("/binning")] = SetBinning(c)
	table[post("/autofocus")] = SetAutofocus(c)
	table[get("/histogram")] = GetHistogram(c)
}

// GetMode returns an auto mode as {"str": "Off"|"Once"|"Continuous"}
func GetMode(fcn func() (icamera.Mode, error)) http.HandlerFunc {
	return generichttp.GetString(func() (string, error) {
		m, err := fcn()
		return m.String(), err
	})
}

// SetMode parses {"str": mode} and calls fcn with it
func SetMode(fcn func(icamera.Mode) error) http.HandlerFunc {
	return generichttp.SetString(func(s string) error {
		m, err := icamera.ParseMode(s)
		if err != nil {
			return errors.Wrapf(generichttp.ErrBadRequest, "%v", err)
		}
		return fcn(m)
	})
}

// GetResolution returns {"width": w, "height": h}
func GetResolution(c icamera.Camera) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := c.Resolution()
		if err != nil {
			generichttp.Fail(w, err)
			return
		}
		server.ReplyJSON(w, res)
	}
}

// SetResolution takes {"width": w, "height": h} or a query parameter
// preset such as ?preset=1080p
func SetResolution(c icamera.Camera) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			res icamera.Resolution
			err error
		)
		if p := r.URL.Query().Get("preset"); p != "" {
			res, err = icamera.LookupResolution(p)
		} else {
			err = json.NewDecoder(r.Body).Decode(&res)
			defer r.Body.Close()
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = c.SetResolution(res); err != nil {
			generichttp.Fail(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// SetExposureTime sets the exposure time on a POST request.
// it can be provided either as a query parameter exposureTime, formatted in a
// way that is parseable by golang/time.ParseDuration, or a json payload with
// key f64, holding the exposure time in seconds.
func SetExposureTime(c icamera.Camera) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		texp := r.URL.Query().Get("exposureTime")
		var d time.Duration
		var err error
		if texp == "" {
			f := server.FloatT{}
			err = json.NewDecoder(r.Body).Decode(&f)
			defer r.Body.Close()
			d = util.SecsToDuration(f.F64)
		} else {
			d, err = util.ParseDuration(texp)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = c.SetExposureTime(d); err != nil {
			generichttp.Fail(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetExposureTime returns the exposure time in seconds as {"f64": t}
func GetExposureTime(c icamera.Camera) http.HandlerFunc {
	return generichttp.GetFloat(func() (float64, error) {
		d, err := c.ExposureTime()
		return d.Seconds(), err
	})
}

// GetExposureRange returns {"min": s, "max": s} in seconds
func GetExposureRange(c icamera.Camera) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng, err := c.ExposureRange()
		if err != nil {
			generichttp.Fail(w, err)
			return
		}
		server.ReplyJSON(w, struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		}{rng.Min.Seconds(), rng.Max.Seconds()})
	}
}

// SetBinning takes {"h": 2, "v": 2}
func SetBinning(c icamera.Camera) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := icamera.Binning{}
		err := json.NewDecoder(r.Body).Decode(&b)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = c.SetBinning(b); err != nil {
			generichttp.Fail(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// SetAutofocus takes {"bool": true}
func SetAutofocus(c icamera.Camera) http.HandlerFunc {
	return generichttp.SetBool(func(b bool) error {
		return c.SetAutofocus(icamera.Switch(b))
	})
}

// Histogram is the reply of GET /histogram
type Histogram struct {
	Channel int              `json:"channel"`
	Counts  []int            `json:"counts"`
	Stats   pointops.Summary `json:"stats"`
}

// GetHistogram grabs a frame and returns the histogram of one channel,
// ?channel=0 (blue, or gray) by default
func GetHistogram(c icamera.Camera) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch := 0
		if s := r.URL.Query().Get("channel"); s != "" {
			var err error
			if ch, err = strconv.Atoi(s); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		f, err := c.Frame()
		if err != nil {
			generichttp.Fail(w, err)
			return
		}
		ch = util.Clamp(ch, 0, f.Channels-1)
		h, err := pointops.NewHistogram(f, ch)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sum, err := h.Stats()
		if err != nil {
			generichttp.Fail(w, err)
			return
		}
		server.ReplyJSON(w, Histogram{Channel: ch, Counts: h[:], Stats: sum})
	}
}

// metadata describes the frame for the FITS header
func metadata(c icamera.Camera) []fitsio.Card {
	cards := []fitsio.Card{{Name: "CAMERA", Value: c.Name(), Comment: "camera model"}}
	if d, err := c.ExposureTime(); err == nil {
		cards = append(cards, fitsio.Card{Name: "EXPTIME", Value: d.Seconds(), Comment: "exposure time, seconds"})
	}
	if fps, err := c.FrameRate(); err == nil {
		cards = append(cards, fitsio.Card{Name: "FPS", Value: fps, Comment: "frame rate"})
	}
	cards = append(cards, fitsio.Card{Name: "DATE-OBS", Value: time.Now().UTC().Format(time.RFC3339), Comment: "time of the request"})
	return cards
}

// GetFrame takes a picture and returns it on a GET request.
//
// the image format may be specified in a query parameter fmt, jpg, png or
// fits; default to jpg
//
// the exposure time may be specified as a query parameter in any time-looking
// format, such as "25ms" or "10us".  if no unit is given, seconds are assumed.
// if no exposure time is provided, it is not updated and the existing value is used.
func GetFrame(c icamera.Camera, rec *imgrec.Recorder, lim *rate.Limiter, log *zap.SugaredLogger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		format := q.Get("fmt")
		if format == "" {
			format = "jpg"
		}
		ctype, ok := map[string]string{"jpg": "image/jpeg", "png": "image/png", "fits": "image/fits"}[format]
		if !ok {
			http.Error(w, "fmt must be jpg, png or fits", http.StatusBadRequest)
			return
		}
		if texp := q.Get("exposureTime"); texp != "" {
			d, err := util.ParseDuration(texp)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err = c.SetExposureTime(d); err != nil {
				generichttp.Fail(w, err)
				return
			}
		}
		if lim != nil {
			if err := lim.Wait(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusTooManyRequests)
				return
			}
		}
		f, err := c.Frame()
		if err != nil {
			generichttp.Fail(w, err)
			return
		}

		hdr := w.Header()
		hdr.Set("Content-Type", ctype)
		if format != "fits" {
			if rec != nil && rec.Enabled && rec.Root != "" {
				if _, err := rec.Save(f); err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
			}
			w.WriteHeader(http.StatusOK)
			if err := frame.Encode(w, f, format); err != nil {
				log.Warnw("could not send image", "format", format, "error", err)
			}
			return
		}

		// a fits recorder gets the very bytes sent to the client, others
		// encode the frame in their own format
		var w2 io.Writer = w
		if rec != nil && rec.Enabled && rec.Root != "" {
			if rec.Format == "fits" {
				w2 = io.MultiWriter(w, rec)
				defer rec.Incr()
			} else if _, err := rec.Save(f); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		hdr.Set("Content-Disposition", "attachment; filename=image.fits")
		if err = frame.WriteFITS(w2, metadata(c), f); err != nil {
			// the header may already be on the wire
			log.Warnw("could not send image", "format", format, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
