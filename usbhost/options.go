package usbhost

import (
	"time"

	"github.com/moffa90/go-dfuse/dfu"
)

type config struct {
	timeout time.Duration
	logger  dfu.Logger
	debug   int
}

// Option configures a Host.
type Option func(*config)

// WithTimeout sets the timeout of every control transfer. Default is 5s.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets a logger for enumeration and claim events.
func WithLogger(logger dfu.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithDebug sets the libusb debug level (0 to 4).
func WithDebug(level int) Option {
	return func(c *config) {
		c.debug = level
	}
}
