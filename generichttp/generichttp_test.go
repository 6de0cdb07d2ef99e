package generichttp_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/google/go-cmp/cmp"

	"github.com/MarcOnTheMoon/imaging-learners/generichttp"
)

func ExampleSubMuxSanitize() {
	fmt.Println(generichttp.SubMuxSanitize("camera/"))
	fmt.Println(generichttp.SubMuxSanitize("/"))
	// Output:
	// /camera
	// /
}

func table() (generichttp.RouteTable, *float64) {
	v := 2.5
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/value"}: generichttp.GetFloat(func() (float64, error) { return v, nil }),
		{Method: http.MethodPost, Path: "/value"}: generichttp.SetFloat(func(f float64) error {
			if f < 0 {
				return errors.New("negative")
			}
			v = f
			return nil
		}),
	}
	return rt, &v
}

func serve(rt generichttp.RouteTable, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	rt.Bind(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestGetSetFloat(t *testing.T) {
	rt, v := table()
	if rec := serve(rt, http.MethodGet, "/value", ""); rec.Body.String() != "{\"f64\":2.5}\n" {
		t.Errorf("GET returned %q", rec.Body.String())
	}
	if rec := serve(rt, http.MethodPost, "/value", `{"f64": 4}`); rec.Code != http.StatusOK || *v != 4 {
		t.Errorf("POST returned %d, value %v", rec.Code, *v)
	}
	if rec := serve(rt, http.MethodPost, "/value", `{"f64": -1}`); rec.Code != http.StatusInternalServerError {
		t.Errorf("failed setter returned %d", rec.Code)
	}
	if rec := serve(rt, http.MethodPost, "/value", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body returned %d", rec.Code)
	}
}

func TestEndpoints(t *testing.T) {
	rt, _ := table()
	want := []string{"GET /value", "POST /value"}
	if diff := cmp.Diff(want, rt.Endpoints()); diff != "" {
		t.Error(diff)
	}
	rec := serve(rt, http.MethodGet, "/endpoints", "")
	if rec.Body.String() != "[\"GET /value\",\"POST /value\"]\n" {
		t.Errorf("GET /endpoints returned %q", rec.Body.String())
	}
}

func TestStringBool(t *testing.T) {
	var (
		s = "a"
		b bool
	)
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/s"}:  generichttp.GetString(func() (string, error) { return s, nil }),
		{Method: http.MethodPost, Path: "/s"}: generichttp.SetString(func(v string) error { s = v; return nil }),
		{Method: http.MethodGet, Path: "/b"}:  generichttp.GetBool(func() (bool, error) { return b, nil }),
		{Method: http.MethodPost, Path: "/b"}: generichttp.SetBool(func(v bool) error { b = v; return nil }),
	}
	serve(rt, http.MethodPost, "/s", `{"str":"xyz"}`)
	serve(rt, http.MethodPost, "/b", `{"bool":true}`)
	if s != "xyz" || !b {
		t.Errorf("setters not called: %q %v", s, b)
	}
	if rec := serve(rt, http.MethodGet, "/b", ""); rec.Body.String() != "{\"bool\":true}\n" {
		t.Errorf("GET /b returned %q", rec.Body.String())
	}
}

var errBusy = errors.New("busy")

func init() {
	generichttp.RegisterStatus(errBusy, http.StatusServiceUnavailable)
}

func TestStatus(t *testing.T) {
	cases := map[error]int{
		errors.New("broken"):                              http.StatusInternalServerError,
		fmt.Errorf("camera: %w", errBusy):                 http.StatusServiceUnavailable,
		fmt.Errorf("mode: %w", generichttp.ErrBadRequest): http.StatusBadRequest,
	}
	for err, want := range cases {
		if got := generichttp.Status(err); got != want {
			t.Errorf("Status(%v) = %d, want %d", err, got, want)
		}
	}
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/f"}: generichttp.GetFloat(func() (float64, error) { return 0, errBusy }),
		{Method: http.MethodPost, Path: "/s"}: generichttp.SetString(func(string) error {
			return fmt.Errorf("unknown value: %w", generichttp.ErrBadRequest)
		}),
	}
	if rec := serve(rt, http.MethodGet, "/f", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /f returned %d", rec.Code)
	}
	if rec := serve(rt, http.MethodPost, "/s", `{"str":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("POST /s returned %d", rec.Code)
	}
}
