package pointops

import (
	"fmt"
	"io"
	"math"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/MarcOnTheMoon/imaging-learners/frame"
)

// Histogram counts the pixels of each 8-bit value
type Histogram [256]int

// NewHistogram counts the values of one channel of f
func NewHistogram(f *frame.Frame, channel int) (Histogram, error) {
	var h Histogram
	if channel < 0 || channel >= f.Channels {
		return h, errors.Errorf("channel %d of a %d channel frame", channel, f.Channels)
	}
	for y := 0; y < f.Height; y++ {
		row := f.Row(y)
		for i := channel; i < len(row); i += f.Channels {
			h[row[i]]++
		}
	}
	return h, nil
}

// Total is the number of pixels counted
func (h Histogram) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Cumulative returns the running sum of the counts
func (h Histogram) Cumulative() [256]int {
	var c [256]int
	sum := 0
	for i, v := range h {
		sum += v
		c[i] = sum
	}
	return c
}

// Range returns the smallest and largest value present.  ok is false for an
// empty histogram.
func (h Histogram) Range() (lo, hi byte, ok bool) {
	first, last := -1, -1
	for i, c := range h {
		if c == 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return 0, 0, false
	}
	return byte(first), byte(last), true
}

// Values expands the histogram back into one value per pixel
func (h Histogram) Values() stats.Float64Data {
	out := make(stats.Float64Data, 0, h.Total())
	for v, c := range h {
		for i := 0; i < c; i++ {
			out = append(out, float64(v))
		}
	}
	return out
}

// Summary holds the descriptive statistics of a histogram
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	Min    byte    `json:"min"`
	Max    byte    `json:"max"`
}

func (s Summary) String() string {
	return fmt.Sprintf("mean %.2f, median %.1f, std dev %.2f, range [%d, %d]", s.Mean, s.Median, s.StdDev, s.Min, s.Max)
}

// Stats summarizes the distribution of the counted values
func (h Histogram) Stats() (Summary, error) {
	var s Summary
	lo, hi, ok := h.Range()
	if !ok {
		return s, errors.New("empty histogram")
	}
	s.Min, s.Max = lo, hi
	data := h.Values()
	var err error
	if s.Mean, err = data.Mean(); err != nil {
		return s, err
	}
	if s.Median, err = data.Median(); err != nil {
		return s, err
	}
	s.StdDev, err = data.StandardDeviation()
	return s, err
}

// Equalize spreads the gray values of a gray frame so that their cumulative
// histogram becomes close to linear
func Equalize(f *frame.Frame) (*frame.Frame, error) {
	if f.Channels != frame.Gray {
		return nil, errors.Errorf("equalize needs a gray frame, got %d channels", f.Channels)
	}
	h, _ := NewHistogram(f, 0)
	lo, _, ok := h.Range()
	if !ok {
		return f.Clone(), nil
	}
	total := h.Total()
	first := h[lo]
	if total == first {
		return f.Clone(), nil
	}
	cdf := h.Cumulative()
	scale := 255 / float64(total-first)
	lut := NewLUT(func(v byte) byte {
		if cdf[v] <= first {
			return 0
		}
		return byte(math.Round(float64(cdf[v]-first) * scale))
	})
	return Apply(f, lut), nil
}

// Stretch maps the smallest value of each channel to 0 and the largest to
// 255, linearly in between
func Stretch(f *frame.Frame) (*frame.Frame, error) {
	out := f.Clone()
	for c := 0; c < f.Channels; c++ {
		h, err := NewHistogram(f, c)
		if err != nil {
			return nil, err
		}
		lo, hi, ok := h.Range()
		if !ok || lo == hi {
			continue
		}
		span := float64(hi - lo)
		lut := NewLUT(func(v byte) byte {
			if v < lo {
				return 0
			}
			return byte(math.Round(math.Min(255, float64(v-lo)*255/span)))
		})
		for y := 0; y < out.Height; y++ {
			row := out.Row(y)
			for i := c; i < len(row); i += out.Channels {
				row[i] = lut[row[i]]
			}
		}
	}
	return out, nil
}

// PlotHistogram saves a bar chart of h to path.  The image format follows
// the file extension, e.g. png or svg.
func PlotHistogram(h Histogram, path string) error {
	p := plot.New()
	p.Title.Text = "Histogram"
	p.X.Label.Text = "Gray value"
	p.Y.Label.Text = "Pixel count"
	vals := make(plotter.Values, len(h))
	for i, c := range h {
		vals[i] = float64(c)
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(1.5))
	if err != nil {
		return errors.Wrap(err, "histogram bars")
	}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.X.Min, p.X.Max = 0, 255
	return errors.Wrapf(p.Save(8*vg.Inch, 4*vg.Inch, path), "save %s", path)
}

// PrintHistogram writes a terminal histogram of channel 0 of f in bins
// bins to w
func PrintHistogram(w io.Writer, f *frame.Frame, bins, width int) error {
	h, err := NewHistogram(f, 0)
	if err != nil {
		return err
	}
	hist := histogram.Hist(bins, h.Values())
	return histogram.Fprint(w, hist, histogram.Linear(width))
}
