package camera

import "go.uber.org/zap"

// Options are the settings every adapter's Open accepts
type Options struct {
	// ID is the index of the camera among the devices of one vendor, starting at 0
	ID int

	// PixelFormat is the layout of the frames returned by Frame
	PixelFormat PixelFormat

	// Binning is applied at open when the camera supports it.  The zero value means 1x1.
	Binning Binning

	// Logger receives warnings and startup properties.  nil discards them.
	Logger *zap.SugaredLogger
}

// Log returns the logger, substituting a no-op logger for nil
func (o Options) Log() *zap.SugaredLogger {
	if o.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return o.Logger
}

// Bin returns the binning with zero factors replaced by 1
func (o Options) Bin() Binning {
	b := o.Binning
	if b.H < 1 {
		b.H = 1
	}
	if b.V < 1 {
		b.V = 1
	}
	return b
}
