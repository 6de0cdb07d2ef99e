package calib

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Result is the calibration of one camera and lens combination
type Result struct {
	Sensor string
	Lens   string

	// Matrix is the intrinsic camera matrix
	//
	//	fx  0 cx
	//	 0 fy cy
	//	 0  0  1
	Matrix [3][3]float64

	// Distortion holds the coefficients k1, k2, p1, p2, k3 as a 1x5 row
	Distortion [][]float64
}

// FileName is {Sensor}_{Lens}.json
func FileName(sensor, lens string) string {
	return fmt.Sprintf("%s_%s.json", sensor, lens)
}

// Coefficients returns the distortion model, missing coefficients are zero
func (r Result) Coefficients() BrownConrady {
	var k [5]float64
	i := 0
	for _, row := range r.Distortion {
		for _, v := range row {
			if i < len(k) {
				k[i] = v
			}
			i++
		}
	}
	return BrownConrady{K1: k[0], K2: k[1], P1: k[2], P2: k[3], K3: k[4]}
}

// Save writes the result to dir as indented JSON and returns the path
func (r Result) Save(dir string) (string, error) {
	if r.Sensor == "" || r.Lens == "" {
		return "", errors.New("calibration result needs a sensor and a lens name")
	}
	buf, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(r.Sensor, r.Lens))
	return path, errors.Wrapf(os.WriteFile(path, append(buf, '\n'), 0666), "save calibration")
}

// Load reads the result of sensor and lens from dir
func Load(dir, sensor, lens string) (Result, error) {
	var r Result
	path := filepath.Join(dir, FileName(sensor, lens))
	buf, err := os.ReadFile(path)
	if err != nil {
		return r, errors.Wrap(err, "load calibration")
	}
	if err := json.Unmarshal(buf, &r); err != nil {
		return r, errors.Wrapf(err, "parse %s", path)
	}
	if r.Matrix[2][2] == 0 {
		return r, errors.Errorf("%s holds no camera matrix", path)
	}
	return r, nil
}
