package kafka

import (
	"context"
	stderrors "errors"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
)

// IsRetryable reports whether a write error is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var kerr kafkago.Error
	if stderrors.As(err, &kerr) {
		return kerr.Temporary()
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"broker not available",
		"leader not available",
		"dial tcp",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
