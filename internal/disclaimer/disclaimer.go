// SPDX-License-Identifier: Apache-2.0

// Package disclaimer makes sure every legal answer ends with a disclaimer,
// and with a confidence index when the validator scored it low.
package disclaimer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jaraba/lcis/internal/textfold"
	"github.com/jaraba/lcis/internal/validator"
)

// DefaultFallback is used when no provider is configured or it fails.
const DefaultFallback = "Esta respuesta no constituye asesoramiento jurídico. Verifique la normativa aplicable en las fuentes oficiales antes de tomar cualquier decisión."

// DefaultConfidenceThreshold is the score below which the confidence index is shown.
const DefaultConfidenceThreshold = 0.70

// markers are folded phrases that identify a disclaimer already present.
var markers = []string{
	"no constituye asesoramiento",
	"caracter orientativo",
	"consulte con un abogado",
	"consulte con un profesional",
	"no sustituye el criterio profesional",
	"informacion orientativa",
}

// enforcedBlock matches the block EnforceWithSource appends, so an output
// enforced with a text that is no longer served is still recognized.
var enforcedBlock = regexp.MustCompile(`\n---\n\*[^*\n]+\*(?:\n\nÍndice de confianza jurídica: \d+/100)?\s*$`)

// Source tells where the disclaimer of an enforced output came from.
type Source string

const (
	SourceExisting Source = "existing"
	SourceProvider Source = "provider"
	SourceFallback Source = "fallback"
)

// Provider returns the tenant's disclaimer text.
type Provider interface {
	Disclaimer(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) Disclaimer(ctx context.Context) (string, error) { return f(ctx) }

// Options configures an Enforcer. Zero fields take the defaults.
type Options struct {
	Fallback            string
	ConfidenceThreshold float64
}

// Enforcer appends disclaimers. It is safe for concurrent use if its
// Provider is.
type Enforcer struct {
	provider Provider
	opts     Options
	logger   *zap.Logger
}

// New returns an Enforcer. provider may be nil, in which case the fallback
// text is always used.
func New(provider Provider, opts Options, logger *zap.Logger) *Enforcer {
	if opts.Fallback == "" {
		opts.Fallback = DefaultFallback
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enforcer{provider: provider, opts: opts, logger: logger}
}

// HasDisclaimer reports whether output already carries a known disclaimer phrase.
func HasDisclaimer(output string) bool {
	return textfold.ContainsAny(textfold.Fold(output), markers)
}

// Enforce returns output with a disclaimer appended. See EnforceWithSource.
func (e *Enforcer) Enforce(ctx context.Context, output string, result *validator.Result) string {
	out, _ := e.EnforceWithSource(ctx, output, result)
	return out
}

// EnforceWithSource appends the provider's disclaimer (or the fallback) to
// output, followed by the confidence index when result scored below the
// threshold. Output that already has a disclaimer is returned unchanged, so
// enforcing twice never duplicates it.
func (e *Enforcer) EnforceWithSource(ctx context.Context, output string, result *validator.Result) (string, Source) {
	if HasDisclaimer(output) || enforcedBlock.MatchString(output) || strings.Contains(output, e.opts.Fallback) {
		return output, SourceExisting
	}

	text, source := e.text(ctx)
	if strings.Contains(output, text) {
		return output, SourceExisting
	}

	var b strings.Builder
	b.WriteString(output)
	b.WriteString("\n\n---\n*")
	b.WriteString(text)
	b.WriteString("*")
	if result != nil && result.Score < e.opts.ConfidenceThreshold {
		fmt.Fprintf(&b, "\n\nÍndice de confianza jurídica: %d/100", int(math.Round(result.Score*100)))
	}
	return b.String(), source
}

func (e *Enforcer) text(ctx context.Context) (string, Source) {
	if e.provider == nil {
		return e.opts.Fallback, SourceFallback
	}
	text, err := e.fetch(ctx)
	if err != nil {
		e.logger.Warn("disclaimer provider failed, using fallback", zap.Error(err))
		return e.opts.Fallback, SourceFallback
	}
	return text, SourceProvider
}

var errEmptyDisclaimer = errors.New("provider returned an empty disclaimer")

func (e *Enforcer) fetch(ctx context.Context) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()
	text, err = e.provider.Disclaimer(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching disclaimer: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyDisclaimer
	}
	return text, nil
}
