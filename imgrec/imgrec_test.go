package imgrec_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/generichttp"
	"github.com/MarcOnTheMoon/imaging-learners/imgrec"
)

func today(root string) string {
	return filepath.Join(root, time.Now().Format("2006-01-02"))
}

func TestSaveNumbersFiles(t *testing.T) {
	root := t.TempDir()
	rec := imgrec.New(root, "snap", "png")
	f := frame.New(4, 3, frame.BGR)
	for i := 0; i < 2; i++ {
		if _, err := rec.Save(f); err != nil {
			t.Fatal(err)
		}
	}
	for _, fn := range []string{"snap000000.png", "snap000001.png"} {
		got, err := frame.Load(filepath.Join(today(root), fn))
		if err != nil {
			t.Fatal(err)
		}
		if got.Width != 4 || got.Height != 3 {
			t.Errorf("%s is %s", fn, got)
		}
	}
}

func TestCounterContinuesFromFolder(t *testing.T) {
	root := t.TempDir()
	dir := today(root)
	if err := os.MkdirAll(dir, 0777); err != nil {
		t.Fatal(err)
	}
	for _, fn := range []string{"snap000007.png", "other000020.png", "snap000009.jpg", "snapXX.png"} {
		if err := os.WriteFile(filepath.Join(dir, fn), nil, 0666); err != nil {
			t.Fatal(err)
		}
	}
	rec := imgrec.New(root, "snap", "png")
	next, err := rec.Next()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(next) != "snap000008.png" {
		t.Errorf("next file is %s", next)
	}
}

func TestWriteIncr(t *testing.T) {
	root := t.TempDir()
	rec := imgrec.New(root, "img", "fits")
	rec.Write([]byte("ab"))
	rec.Write([]byte("cd"))
	rec.Incr()
	rec.Write([]byte("ef"))
	b, err := os.ReadFile(filepath.Join(today(root), "img000000.fits"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "abcd" {
		t.Errorf("first file holds %q", b)
	}
	if _, err := os.Stat(filepath.Join(today(root), "img000001.fits")); err != nil {
		t.Error(err)
	}
}

type routes generichttp.RouteTable

func (r routes) RT() generichttp.RouteTable { return generichttp.RouteTable(r) }

func TestHTTPWrapper(t *testing.T) {
	rec := imgrec.New(t.TempDir(), "a", "png")
	rt := routes{}
	imgrec.NewHTTPWrapper(rec).Inject(rt)
	r := chi.NewRouter()
	generichttp.RouteTable(rt).Bind(r)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
		return w
	}
	if w := do(http.MethodPost, "/autowrite/prefix", `{"str":"b"}`); w.Code != http.StatusOK {
		t.Fatalf("POST prefix returned %d", w.Code)
	}
	if w := do(http.MethodGet, "/autowrite/prefix", ""); w.Body.String() != "{\"str\":\"b\"}\n" {
		t.Errorf("GET prefix returned %q", w.Body.String())
	}
	do(http.MethodPost, "/autowrite/enabled", `{"bool":false}`)
	if rec.Enabled {
		t.Error("recorder still enabled")
	}
	newRoot := filepath.Join(t.TempDir(), "nested")
	if w := do(http.MethodPost, "/autowrite/root", `{"str":"`+filepath.ToSlash(newRoot)+`"}`); w.Code != http.StatusOK {
		t.Fatalf("POST root returned %d", w.Code)
	}
	if _, err := os.Stat(today(newRoot)); err != nil {
		t.Error(err)
	}
}
