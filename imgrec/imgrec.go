// Package imgrec contains an image recorder used to automatically save frames to disk.
package imgrec

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
	"github.com/MarcOnTheMoon/imaging-learners/generichttp"
)

// Recorder records frame sequences with incrementing filenames in
// yyyy-mm-dd subfolders of Root, e.g. Root/2024-03-01/snap000012.png.
type Recorder struct {
	mu sync.Mutex

	// counter is the number of the next file
	counter int

	// scanned is the folder the counter was last derived from
	scanned string

	// Root is the root path
	Root string

	// Prefix is the prefix for the filenames
	Prefix string

	// Format is png, jpg or fits.  Empty means png.
	Format string

	// Enabled is a flag unused by this struct that allows consumers to disable its use in their code
	Enabled bool

	// now is replaced in tests
	now func() time.Time
}

// New returns an enabled recorder
func New(root, prefix, format string) *Recorder {
	return &Recorder{Root: root, Prefix: prefix, Format: format, Enabled: true}
}

func (r *Recorder) format() string {
	if r.Format == "" {
		return "png"
	}
	return strings.ToLower(r.Format)
}

// folder is Root/yyyy-mm-dd for today
func (r *Recorder) folder() string {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	return filepath.Join(r.Root, now().Format("2006-01-02"))
}

// mkDir makes today's folder and returns it.  The counter is derived again
// when the folder changes, at midnight or when Root was changed.
func (r *Recorder) mkDir() (string, error) {
	fldr := r.folder()
	if err := os.MkdirAll(fldr, 0777); err != nil {
		return "", err
	}
	if fldr != r.scanned {
		n, err := r.scan(fldr)
		if err != nil {
			return "", err
		}
		r.counter = n
		r.scanned = fldr
	}
	return fldr, nil
}

// scan returns one more than the highest number of a file of this
// recorder's prefix and format in fldr, or 0 if there is none
func (r *Recorder) scan(fldr string) (int, error) {
	files, err := os.ReadDir(fldr)
	if err != nil {
		return 0, err
	}
	ext := "." + r.format()
	next := 0
	for _, file := range files {
		fn := file.Name()
		if file.IsDir() || !strings.HasSuffix(fn, ext) || !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(fn, r.Prefix), ext))
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return next, nil
}

// fileName is the path of the current file
func (r *Recorder) fileName(fldr string) string {
	return filepath.Join(fldr, fmt.Sprintf("%s%06d.%s", r.Prefix, r.counter, r.format()))
}

// Save encodes f to the next file and returns its path
func (r *Recorder) Save(f *frame.Frame) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fldr, err := r.mkDir()
	if err != nil {
		return "", err
	}
	fn := r.fileName(fldr)
	fid, err := os.Create(fn)
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(fid)
	err = frame.Encode(w, f, r.format())
	if err == nil {
		err = w.Flush()
	}
	if cerr := fid.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", errors.Wrapf(err, "record %s", fn)
	}
	r.counter++
	return fn, nil
}

// Write implements io.Writer and appends p to the current file.  Streams
// of an encoded image are written with any number of calls to Write
// followed by one call to Incr.
func (r *Recorder) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fldr, err := r.mkDir()
	if err != nil {
		return 0, err
	}
	fid, err := os.OpenFile(r.fileName(fldr), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0666)
	if err != nil {
		return 0, err
	}
	defer fid.Close()
	return fid.Write(p)
}

// Incr moves on to the next file
func (r *Recorder) Incr() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
}

// Next is the path the next frame will be written to
func (r *Recorder) Next() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fldr, err := r.mkDir()
	if err != nil {
		return "", err
	}
	return r.fileName(fldr), nil
}

// HTTPWrapper is an HTTP wrapper around an image recorder that allows the folder and prefix to be changed on the fly
//
// it does not implement generichttp.HTTPer, offering an Inject method allowing it to be injected
// into another HTTPer
type HTTPWrapper struct {
	*Recorder
}

// NewHTTPWrapper returns an HTTP wrapper around a recorder
func NewHTTPWrapper(r *Recorder) HTTPWrapper {
	return HTTPWrapper{r}
}

func (h HTTPWrapper) root() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Root, nil
}

// setRoot changes the root folder, which must be creatable
func (h HTTPWrapper) setRoot(root string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.Root
	h.Root = root
	if _, err := h.mkDir(); err != nil {
		h.Root = old
		return err
	}
	return nil
}

func (h HTTPWrapper) prefix() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Prefix, nil
}

func (h HTTPWrapper) setPrefix(p string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Prefix = p
	h.scanned = ""
	return nil
}

func (h HTTPWrapper) enabled() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Enabled, nil
}

func (h HTTPWrapper) setEnabled(b bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Enabled = b
	return nil
}

// Inject adds GET and POST routes for /autowrite/root, /autowrite/prefix
// and /autowrite/enabled to the HTTPer which manipulate this wrapper's recorder
func (h HTTPWrapper) Inject(other generichttp.HTTPer) {
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/root"}] = generichttp.SetString(h.setRoot)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/root"}] = generichttp.GetString(h.root)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/prefix"}] = generichttp.SetString(h.setPrefix)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/prefix"}] = generichttp.GetString(h.prefix)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/enabled"}] = generichttp.SetBool(h.setEnabled)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/enabled"}] = generichttp.GetBool(h.enabled)
}
