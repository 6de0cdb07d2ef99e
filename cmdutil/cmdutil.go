// Package cmdutil holds the configuration, logging and console helpers the
// binaries share
package cmdutil

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/pkg/errors"
	"github.com/theckman/yacspin"
	"go.uber.org/zap"
	yml "gopkg.in/yaml.v2"
)

// EnvPrefix starts the environment variables that override config keys.
// IMAGING_CAMERA_VENDOR=basler sets Camera.Vendor.
const EnvPrefix = "IMAGING_"

// envKey turns an environment variable into a config key, spelled like the
// key already loaded if there is one, since koanf keys are case sensitive
func envKey(k *koanf.Koanf) func(string) string {
	return func(s string) string {
		key := strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "_", ".")
		for _, known := range k.Keys() {
			if strings.EqualFold(known, key) {
				return known
			}
		}
		return key
	}
}

// LoadConfig loads the defaults, then fileName, then the environment into
// k.  A missing file is not an error.
func LoadConfig(k *koanf.Koanf, defaults interface{}, fileName string) error {
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return errors.Wrap(err, "load defaults")
	}
	if _, err := os.Stat(fileName); err == nil {
		if err := k.Load(file.Provider(fileName), yaml.Parser()); err != nil {
			return errors.Wrapf(err, "load %s", fileName)
		}
	}
	return errors.Wrap(k.Load(env.Provider(EnvPrefix, ".", envKey(k)), nil), "load environment")
}

// WriteConfig unmarshals k into cfg and writes it as YAML to fileName, or
// to stdout if fileName is empty
func WriteConfig(k *koanf.Koanf, cfg interface{}, fileName string) error {
	if err := k.Unmarshal("", cfg); err != nil {
		return err
	}
	if fileName == "" {
		return yml.NewEncoder(os.Stdout).Encode(cfg)
	}
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	err = yml.NewEncoder(f).Encode(cfg)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Logger returns a colored console logger, or a JSON logger for production
func Logger(json bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if json {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// Spin shows a spinner with msg while fn runs
func Spin(msg string, fn func() error) error {
	sp, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " " + msg,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil || sp.Start() != nil {
		return fn()
	}
	err = fn()
	if err != nil {
		sp.StopFail()
	} else {
		sp.Stop()
	}
	return err
}
