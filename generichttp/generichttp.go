// Package generichttp turns getter and setter functions into HTTP handlers
// and collects them in route tables bound to a chi router
package generichttp

import (
	"encoding/json"
	"errors"
	"go/types"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi"

	"github.com/MarcOnTheMoon/imaging-learners/server"
)

// MethodPath is the key of a route
type MethodPath struct {
	Method, Path string
}

func (mp MethodPath) String() string {
	return mp.Method + " " + mp.Path
}

// RouteTable maps routes to their handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints lists the routes as "METHOD /path", sorted by path then method
func (rt RouteTable) Endpoints() []string {
	keys := make([]MethodPath, 0, len(rt))
	for k := range rt {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Path != keys[j].Path {
			return keys[i].Path < keys[j].Path
		}
		return keys[i].Method < keys[j].Method
	})
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// Bind registers every route on r, plus GET /endpoints listing them
func (rt RouteTable) Bind(r chi.Router) {
	for k, h := range rt {
		r.MethodFunc(k.Method, k.Path, h)
	}
	if _, ok := rt[MethodPath{Method: http.MethodGet, Path: "/endpoints"}]; !ok {
		r.Get("/endpoints", func(w http.ResponseWriter, _ *http.Request) {
			server.ReplyJSON(w, rt.Endpoints())
		})
	}
}

// HTTPer has a route table
type HTTPer interface {
	RT() RouteTable
}

// SubMuxSanitize turns a configured root such as "camera/" into a chi mount
// point "/camera"
func SubMuxSanitize(str string) string {
	str = strings.Trim(str, "/")
	return "/" + str
}

// ErrBadRequest marks errors caused by the request rather than the device.
// Handlers reply 400 for errors wrapping it.
var ErrBadRequest = errors.New("bad request")

type statusCode struct {
	target error
	code   int
}

var (
	statusMu sync.RWMutex
	statuses = []statusCode{{ErrBadRequest, http.StatusBadRequest}}
)

// RegisterStatus makes the handlers of this package reply code to errors
// matching target with errors.Is.  Targets are tried in registration order.
func RegisterStatus(target error, code int) {
	statusMu.Lock()
	defer statusMu.Unlock()
	statuses = append(statuses, statusCode{target, code})
}

// Status is the HTTP status for a failed getter or setter, 500 unless a
// registered target matches
func Status(err error) int {
	statusMu.RLock()
	defer statusMu.RUnlock()
	for _, s := range statuses {
		if errors.Is(err, s.target) {
			return s.code
		}
	}
	return http.StatusInternalServerError
}

// Fail writes err as plain text with Status(err)
func Fail(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), Status(err))
}

// GetFloat calls a float-getting function and returns the response
// as json {'f64': value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := fcn()
		if err != nil {
			Fail(w, err)
			return
		}
		hp := server.HumanPayload{T: types.Float64, Float: f}
		hp.EncodeAndRespond(w, r)
	}
}

// SetFloat parses a JSON input of {'f64': value} and
// calls fcn with it
func SetFloat(fcn func(float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := server.FloatT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = fcn(f.F64); err != nil {
			Fail(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetString calls a string-getting function and returns the response
// as json {'str': value}
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := fcn()
		if err != nil {
			Fail(w, err)
			return
		}
		hp := server.HumanPayload{T: types.String, String: s}
		hp.EncodeAndRespond(w, r)
	}
}

// SetString parses a JSON input of {'str': value} and
// calls fcn with it
func SetString(fcn func(string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := server.StrT{}
		err := json.NewDecoder(r.Body).Decode(&s)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = fcn(s.Str); err != nil {
			Fail(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetBool calls a bool-getting function and returns the response
// as json {'bool': value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := fcn()
		if err != nil {
			Fail(w, err)
			return
		}
		hp := server.HumanPayload{T: types.Bool, Bool: b}
		hp.EncodeAndRespond(w, r)
	}
}

// SetBool parses a JSON input of {'bool': value} and
// calls fcn with it
func SetBool(fcn func(bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := server.BoolT{}
		err := json.NewDecoder(r.Body).Decode(&b)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = fcn(b.Bool); err != nil {
			Fail(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
