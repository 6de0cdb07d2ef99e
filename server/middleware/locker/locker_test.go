package locker_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi"

	"github.com/MarcOnTheMoon/imaging-learners/generichttp"
	"github.com/MarcOnTheMoon/imaging-learners/server/middleware/locker"
)

type routes generichttp.RouteTable

func (r routes) RT() generichttp.RouteTable { return generichttp.RouteTable(r) }

func router(l *locker.Locker, h http.HandlerFunc) chi.Router {
	rt := routes{{Method: http.MethodGet, Path: "/image"}: h}
	locker.Inject(rt, l)
	r := chi.NewRouter()
	r.Use(l.Check, l.Serialize)
	generichttp.RouteTable(rt).Bind(r)
	return r
}

func do(r http.Handler, method, path, body string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w.Code
}

func TestLockedReturns423(t *testing.T) {
	l := locker.New()
	r := router(l, func(w http.ResponseWriter, r *http.Request) {})
	if code := do(r, http.MethodPost, "/lock", `{"bool": true}`); code != http.StatusOK {
		t.Fatalf("POST /lock returned %d", code)
	}
	if code := do(r, http.MethodGet, "/image", ""); code != http.StatusLocked {
		t.Errorf("locked GET /image returned %d", code)
	}
	if code := do(r, http.MethodGet, "/endpoints", ""); code != http.StatusOK {
		t.Errorf("GET /endpoints returned %d while locked", code)
	}
	do(r, http.MethodPost, "/lock", `{"bool": false}`)
	if code := do(r, http.MethodGet, "/image", ""); code != http.StatusOK {
		t.Errorf("unlocked GET /image returned %d", code)
	}
}

func TestSerialize(t *testing.T) {
	var inside, most int32
	r := router(locker.New(), func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inside, 1)
		for {
			m := atomic.LoadInt32(&most)
			if n <= m || atomic.CompareAndSwapInt32(&most, m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inside, -1)
	})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			do(r, http.MethodGet, "/image", "")
		}()
	}
	wg.Wait()
	if most != 1 {
		t.Errorf("%d requests ran at once", most)
	}
}
