package camera_test

import (
	"encoding/json"
	"errors"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	icamera "github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/generichttp/camera"
	"github.com/MarcOnTheMoon/imaging-learners/genicam"
	"github.com/MarcOnTheMoon/imaging-learners/genicam/genicamtest"
	"github.com/MarcOnTheMoon/imaging-learners/imgrec"
)

type fixture struct {
	dev *genicamtest.Device
	rec *imgrec.Recorder
	r   chi.Router
}

func setup(t *testing.T) fixture {
	t.Helper()
	dev := genicamtest.New()
	dev.Ints[genicam.Width] = 64
	dev.Ints[genicam.Height] = 48
	core := genicam.NewCore(dev, genicam.Profile{FrameRateTolerance: 0.1, Binning: true}, icamera.Options{}, genicam.ModelName(dev, ""))
	if err := core.StartStreaming(nil); err != nil {
		t.Fatal(err)
	}
	rec := imgrec.New(t.TempDir(), "img", "png")
	rec.Enabled = false
	h := camera.NewHTTPCamera(core, rec, 0, nil)
	r := chi.NewRouter()
	h.RT().Bind(r)
	return fixture{dev: dev, rec: rec, r: r}
}

func (f fixture) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestName(t *testing.T) {
	f := setup(t)
	if w := f.do(http.MethodGet, "/name", ""); w.Body.String() != "{\"str\":\"Acme Model-1\"}\n" {
		t.Errorf("GET /name returned %q", w.Body.String())
	}
}

func TestImageJPG(t *testing.T) {
	f := setup(t)
	w := f.do(http.MethodGet, "/image", "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("GET /image returned %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	img, err := jpeg.Decode(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("image is %v", b)
	}
}

func TestImageExposureQuery(t *testing.T) {
	f := setup(t)
	if w := f.do(http.MethodGet, "/image?fmt=png&exposureTime=0.005", ""); w.Code != http.StatusOK {
		t.Fatalf("GET /image returned %d: %s", w.Code, w.Body.String())
	}
	if f.dev.Floats[genicam.ExposureTime] != 5000 {
		t.Errorf("exposure node holds %v µs", f.dev.Floats[genicam.ExposureTime])
	}
	if w := f.do(http.MethodGet, "/image?fmt=bmp", ""); w.Code != http.StatusBadRequest {
		t.Errorf("unknown format returned %d", w.Code)
	}
}

func TestImageFITSRecorded(t *testing.T) {
	f := setup(t)
	f.rec.Format = "fits"
	f.rec.Enabled = true
	w := f.do(http.MethodGet, "/image?fmt=fits", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /image returned %d: %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Body.String(), "SIMPLE  =") {
		t.Error("reply is not a FITS file")
	}
	path := filepath.Join(f.rec.Root, time.Now().Format("2006-01-02"), "img000000.fits")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != w.Body.Len() {
		t.Errorf("recorded %d bytes, served %d", len(b), w.Body.Len())
	}
}

func TestResolution(t *testing.T) {
	f := setup(t)
	if w := f.do(http.MethodPost, "/resolution", `{"width": 32, "height": 24}`); w.Code != http.StatusOK {
		t.Fatalf("POST /resolution returned %d: %s", w.Code, w.Body.String())
	}
	w := f.do(http.MethodGet, "/resolution", "")
	var got icamera.Resolution
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(icamera.Resolution{Width: 32, Height: 24}, got); diff != "" {
		t.Error(diff)
	}
}

func TestExposureTime(t *testing.T) {
	f := setup(t)
	if w := f.do(http.MethodPost, "/exposure-time", `{"f64": 0.002}`); w.Code != http.StatusOK {
		t.Fatalf("POST returned %d: %s", w.Code, w.Body.String())
	}
	if w := f.do(http.MethodGet, "/exposure-time", ""); w.Body.String() != "{\"f64\":0.002}\n" {
		t.Errorf("GET returned %q", w.Body.String())
	}
	if w := f.do(http.MethodPost, "/exposure-time?exposureTime=1h", ""); w.Code != http.StatusBadRequest {
		t.Errorf("out of range exposure returned %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/exposure-range", ""); w.Body.String() != "{\"min\":0.00002,\"max\":10}\n" {
		t.Errorf("GET /exposure-range returned %q", w.Body.String())
	}
}

func TestFrameRate(t *testing.T) {
	f := setup(t)
	if w := f.do(http.MethodPost, "/frame-rate", `{"f64": 15}`); w.Code != http.StatusOK {
		t.Fatalf("POST returned %d: %s", w.Code, w.Body.String())
	}
	f.dev.AdjustFloat = func(name string, v float64) float64 { return v + 1 }
	if w := f.do(http.MethodPost, "/frame-rate", `{"f64": 20}`); w.Code != http.StatusConflict {
		t.Errorf("frame rate off by one returned %d", w.Code)
	}
}

func TestAutoModes(t *testing.T) {
	f := setup(t)
	if w := f.do(http.MethodPost, "/auto-gain", `{"str": "continuous"}`); w.Code != http.StatusOK {
		t.Fatalf("POST returned %d: %s", w.Code, w.Body.String())
	}
	if w := f.do(http.MethodGet, "/auto-gain", ""); w.Body.String() != "{\"str\":\"Continuous\"}\n" {
		t.Errorf("GET returned %q", w.Body.String())
	}
	if w := f.do(http.MethodPost, "/auto-white-balance", `{"str": "sometimes"}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad mode returned %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/autofocus", `{"bool": true}`); w.Code != http.StatusNotImplemented {
		t.Errorf("autofocus returned %d", w.Code)
	}
}

func TestBinning(t *testing.T) {
	f := setup(t)
	if w := f.do(http.MethodPost, "/binning", `{"h": 2, "v": 2}`); w.Code != http.StatusOK {
		t.Fatalf("POST returned %d: %s", w.Code, w.Body.String())
	}
	if f.dev.Ints[genicam.BinningHorizontal] != 2 || f.dev.Ints[genicam.BinningVertical] != 2 {
		t.Error("binning not written")
	}
}

func TestHistogram(t *testing.T) {
	f := setup(t)
	w := f.do(http.MethodGet, "/histogram", "")
	var h camera.Histogram
	if err := json.NewDecoder(w.Body).Decode(&h); err != nil {
		t.Fatal(err)
	}
	// the first grab fills every byte with 1
	if len(h.Counts) != 256 || h.Counts[1] != 64*48 || h.Stats.Mean != 1 {
		t.Errorf("unexpected histogram %+v", h.Stats)
	}
}

func TestEndpointsIncludeRecorder(t *testing.T) {
	f := setup(t)
	var eps []string
	if err := json.NewDecoder(f.do(http.MethodGet, "/endpoints", "").Body).Decode(&eps); err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"GET /image": false, "POST /autowrite/root": false, "GET /histogram": false}
	for _, e := range eps {
		if _, ok := want[e]; ok {
			want[e] = true
		}
	}
	for e, seen := range want {
		if !seen {
			t.Errorf("%s missing from %v", e, eps)
		}
	}
}

// brokenWriter loses the connection on the first body write
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestImageSendFailureLogged(t *testing.T) {
	dev := genicamtest.New()
	dev.Ints[genicam.Width] = 8
	dev.Ints[genicam.Height] = 8
	core := genicam.NewCore(dev, genicam.Profile{}, icamera.Options{}, "cam")
	if err := core.StartStreaming(nil); err != nil {
		t.Fatal(err)
	}
	obs, logs := observer.New(zap.WarnLevel)
	h := camera.GetFrame(core, nil, nil, zap.New(obs).Sugar())
	for _, format := range []string{"png", "jpg"} {
		h(brokenWriter{httptest.NewRecorder()}, httptest.NewRequest(http.MethodGet, "/image?fmt="+format, nil))
	}
	if n := logs.FilterMessage("could not send image").Len(); n != 2 {
		t.Errorf("expected 2 warnings, got %d", n)
	}
}

func TestReleasedCameraUnavailable(t *testing.T) {
	dev := genicamtest.New()
	core := genicam.NewCore(dev, genicam.Profile{}, icamera.Options{}, "cam")
	r := chi.NewRouter()
	camera.NewHTTPCamera(core, nil, 0, nil).RT().Bind(r)
	core.Release()
	for _, path := range []string{"/resolution", "/frame-rate", "/exposure-time", "/auto-gain", "/image"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s after release returned %d", path, w.Code)
		}
	}
}
