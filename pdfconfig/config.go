// Package pdfconfig holds Document construction options, following the
// shape of reader/file/file.go's Configuration/NewDefaultConfiguration,
// generalized with the knobs the expanded core needs: a strict-mode
// toggle (see the error-handling design's "fatal in strict mode" clause)
// and a cap on xref chain length backing XRefChainCycle detection.
package pdfconfig

import (
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// Configuration controls how a Document is constructed.
type Configuration struct {
	// StrictMode, when true (the default), makes a failure to
	// materialize any single in-use object fatal to construction.
	StrictMode bool

	// MaxXRefChainLength bounds how many Prev-linked increments will be
	// followed before giving up with an XRefChainCycle error, as a
	// backstop against pathological chains that don't otherwise revisit
	// an offset exactly.
	MaxXRefChainLength int `validate:"gt=0"`

	// Logger receives Debug-level xref-chain hops and Warn-level
	// recoverable repairs. A nil Logger is replaced by slog.Default() when
	// document.Open runs.
	Logger *slog.Logger
}

// NewDefaultConfiguration returns the default construction options.
func NewDefaultConfiguration() *Configuration {
	return &Configuration{
		StrictMode:         true,
		MaxXRefChainLength: 1024,
	}
}

var validate = validator.New()

// Validate checks the struct-tagged constraints on c, returning an error
// describing the first violation found.
func (c *Configuration) Validate() error {
	if c.MaxXRefChainLength == 0 {
		c.MaxXRefChainLength = NewDefaultConfiguration().MaxXRefChainLength
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("pdfconfig: invalid configuration: %w", err)
	}
	return nil
}

// LoggerOrDefault returns c.Logger, or slog.Default() if unset.
func (c *Configuration) LoggerOrDefault() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
