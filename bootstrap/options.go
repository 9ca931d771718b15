package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/voicenotes/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
	summaryOut      io.Writer
	quiet           bool
}

// WithLogger replaces the logger built from the config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout bounds shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = d }
}

// WithSummaryOutput sends the startup summary to w. Stdio servers pass
// os.Stderr so stdout stays reserved for the protocol.
func WithSummaryOutput(w io.Writer) Option {
	return func(o *appOptions) { o.summaryOut = w }
}

// WithoutSummary suppresses the startup summary.
func WithoutSummary() Option {
	return func(o *appOptions) { o.quiet = true }
}
