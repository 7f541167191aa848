// Package secrets resolves credentials through an explicit ordered list of
// strategies. Each strategy gets a bounded timeout; the first non-empty
// result wins. Exhausting the chain is fatal only for mandatory credentials,
// which the composition root decides.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotResolved is returned when every source in a chain came up empty.
var ErrNotResolved = errors.New("secrets: credential not resolved")

// Source is a single credential-resolution strategy.
type Source interface {
	Name() string
	Resolve(ctx context.Context) (string, error)
}

// Literal returns a value known at configuration time. An empty value is a
// miss, which lets an inline config field sit first in a chain as an
// optional override.
type Literal string

func (l Literal) Name() string { return "literal" }

func (l Literal) Resolve(_ context.Context) (string, error) {
	return string(l), nil
}

// Env resolves from an environment variable.
type Env string

func (e Env) Name() string { return "env:" + string(e) }

func (e Env) Resolve(_ context.Context) (string, error) {
	return os.Getenv(string(e)), nil
}

// File resolves from a file on disk (e.g. a mounted secret volume).
// Surrounding whitespace is trimmed. An empty path is a miss, not an error.
type File string

func (f File) Name() string { return "file:" + string(f) }

func (f File) Resolve(_ context.Context) (string, error) {
	if f == "" {
		return "", nil
	}
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Chain tries sources in order with a per-source timeout. A source error is
// logged and treated as a miss so a flaky strategy never blocks the ones
// behind it.
type Chain struct {
	credential string
	timeout    time.Duration
	sources    []Source
	logger     *zap.Logger
}

// NewChain creates a resolution chain for one named credential.
func NewChain(credential string, timeout time.Duration, logger *zap.Logger, sources ...Source) *Chain {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Chain{
		credential: credential,
		timeout:    timeout,
		sources:    sources,
		logger:     logger,
	}
}

// Resolve walks the chain. First non-empty value wins.
func (c *Chain) Resolve(ctx context.Context) (string, error) {
	for _, src := range c.sources {
		srcCtx, cancel := context.WithTimeout(ctx, c.timeout)
		value, err := src.Resolve(srcCtx)
		cancel()

		if err != nil {
			c.logger.Warn("credential source failed",
				zap.String("credential", c.credential),
				zap.String("source", src.Name()),
				zap.Error(err),
			)
			continue
		}
		if value == "" {
			continue
		}

		c.logger.Debug("credential resolved",
			zap.String("credential", c.credential),
			zap.String("source", src.Name()),
		)
		return value, nil
	}

	return "", fmt.Errorf("%s: %w", c.credential, ErrNotResolved)
}
