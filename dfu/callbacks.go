package dfu

import "time"

// Phases reported through Progress.
const (
	PhaseClearing    = "clearing"
	PhaseErasing     = "erasing"
	PhaseDownloading = "downloading"
	PhaseManifesting = "manifesting"
	PhaseComplete    = "complete"
)

// Progress contains information about the download progress.
// Passed to ProgressCallback during Program.
type Progress struct {
	// Phase is one of the Phase* constants
	Phase string

	// Address is the start address of the element being written
	Address uint32

	// BytesSent is the number of bytes of the image sent so far
	BytesSent int

	// TotalBytes is the total number of bytes in the image
	TotalBytes int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// ElapsedTime is the time elapsed since the download started
	ElapsedTime time.Duration
}

// ProgressCallback is called after every chunk and at phase changes.
// It is purely observational and should return quickly.
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the engine.
// This allows integration with any logging framework.
//
// Example with log/slog:
//
//	type SlogLogger struct{ l *slog.Logger }
//	func (s SlogLogger) Debug(msg string, kv ...interface{}) { s.l.Debug(msg, kv...) }
//	func (s SlogLogger) Info(msg string, kv ...interface{})  { s.l.Info(msg, kv...) }
//	func (s SlogLogger) Warn(msg string, kv ...interface{})  { s.l.Warn(msg, kv...) }
//	func (s SlogLogger) Error(msg string, kv ...interface{}) { s.l.Error(msg, kv...) }
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
