package dfu

import "time"

// Config holds the engine configuration.
type Config struct {
	// ProgressCallback is called during downloads to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// Timeout bounds every control transfer of transports implementing
	// TimeoutSetter. Zero keeps the transport's own timeout.
	Timeout time.Duration

	// PollLimit is the maximum number of GETSTATUS requests issued while
	// waiting for one command to complete. Zero means no limit.
	PollLimit int

	// PollInterval is the delay between two GETSTATUS requests
	PollInterval time.Duration

	// TransferSize overrides the descriptor's wTransferSize when non-zero
	TransferSize int

	// MassErase erases the whole device instead of the written pages (DfuSe only)
	MassErase bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		PollLimit: 10000,
	}
}

// newConfig applies opts on top of the defaults.
func newConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option is a functional option for configuring the engine.
type Option func(*Config)

// WithProgressCallback sets a callback function to track download progress.
//
// Example:
//
//	prog := dfu.New(dev, 0,
//	    dfu.WithProgressCallback(func(p dfu.Progress) {
//	        fmt.Printf("0x%08X %d/%d\n", p.Address, p.BytesSent, p.TotalBytes)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for engine operations.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTimeout sets the timeout of each control transfer, replacing the
// transport's own. Default is to leave the transport untouched.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithPollLimit bounds the number of status polls per command.
// A limit of 0 polls until the device becomes idle, however long that takes.
func WithPollLimit(limit int) Option {
	return func(c *Config) {
		if limit >= 0 {
			c.PollLimit = limit
		}
	}
}

// WithPollInterval sets the delay between status polls. Default is no delay.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval >= 0 {
			c.PollInterval = interval
		}
	}
}

// WithTransferSize overrides the transfer size announced by the device.
func WithTransferSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= 0xFFFF {
			c.TransferSize = size
		}
	}
}

// WithMassErase erases the whole device before writing instead of only
// the pages the image covers. Only DfuSe targets support it.
func WithMassErase(enabled bool) Option {
	return func(c *Config) {
		c.MassErase = enabled
	}
}
