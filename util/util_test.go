package util_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/MarcOnTheMoon/imaging-learners/util"
)

func ExampleParseDuration() {
	d, _ := util.ParseDuration("0.025")
	fmt.Println(d)
	d, _ = util.ParseDuration("300us")
	fmt.Println(d)
	// Output:
	// 25ms
	// 300µs
}

func TestAllElementsNumbers(t *testing.T) {
	for in, want := range map[string]bool{"12": true, "1.5": true, "": false, "10ms": false, "-1": false} {
		if got := util.AllElementsNumbers(in); got != want {
			t.Errorf("AllElementsNumbers(%q) = %v", in, got)
		}
	}
}

func TestParseDurationRejects(t *testing.T) {
	if _, err := util.ParseDuration("fast"); err == nil {
		t.Error("expected an error")
	}
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != high {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	if clamped := util.Clamp(-1, 0, 255); clamped != 0 {
		t.Errorf("expected -1 to be clipped to 0, got %d", clamped)
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
