// Package observability holds the logging, request tagging and error
// classification shared by the whole enrichment pipeline.
package observability

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. Production gets JSON output and info
// level; anything else gets the human-readable development config.
func NewLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		logger, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("build production logger: %w", err)
		}
		return logger, nil
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("build development logger: %w", err)
	}
	return logger, nil
}

const requestIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewRequestID generates a correlation ID for one pipeline invocation. The
// suffix is random but not security sensitive.
func NewRequestID() string {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(requestIDAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			suffix[i] = requestIDAlphabet[0]
			continue
		}
		suffix[i] = requestIDAlphabet[n.Int64()]
	}
	return fmt.Sprintf("req_%d_%s", time.Now().UnixMilli(), suffix)
}

// Go runs fn on its own goroutine and swallows panics, logging them instead.
// Used for fire-and-forget work (metrics, cache maintenance) that must never
// take a request down with it.
func Go(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("background task panicked",
					zap.String("task", name),
					zap.Any("panic", r))
			}
		}()
		fn()
	}()
}
