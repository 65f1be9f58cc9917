// SPDX-License-Identifier: Apache-2.0

// Package config loads runtime settings. Files are YAML or JSON, decoded over
// the built-in defaults and checked against an embedded CUE schema.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/goccy/go-yaml"

	"github.com/jaraba/lcis/internal/conversation"
	"github.com/jaraba/lcis/internal/disclaimer"
	"github.com/jaraba/lcis/internal/knowledge"
	"github.com/jaraba/lcis/internal/normgraph"
	"github.com/jaraba/lcis/internal/validator"
)

// EnvPath names the environment variable consulted when no path is given.
const EnvPath = "LCIS_CONFIG"

//go:embed schema.cue
var schemaSource string

type Config struct {
	Log          Log                  `json:"log" yaml:"log"`
	Validator    Validator            `json:"validator" yaml:"validator"`
	Enricher     Enricher             `json:"enricher" yaml:"enricher"`
	Conversation conversation.Options `json:"conversation" yaml:"conversation"`
	Disclaimer   Disclaimer           `json:"disclaimer" yaml:"disclaimer"`
	Metrics      Metrics              `json:"metrics" yaml:"metrics"`
}

type Log struct {
	Level string `json:"level" yaml:"level"`
}

type Validator struct {
	BlockThreshold     float64            `json:"block_threshold" yaml:"block_threshold"`
	WarnThreshold      float64            `json:"warn_threshold" yaml:"warn_threshold"`
	MaxRetries         int                `json:"max_retries" yaml:"max_retries"`
	VigenciaCutoffYear int                `json:"vigencia_cutoff_year" yaml:"vigencia_cutoff_year"`
	Penalties          map[string]float64 `json:"penalties" yaml:"penalties"`
}

type Enricher struct {
	Weights         normgraph.Weights `json:"weights" yaml:"weights"`
	CompetenceBonus float64           `json:"competence_bonus" yaml:"competence_bonus"`
}

type Disclaimer struct {
	Fallback            string  `json:"fallback" yaml:"fallback"`
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: Log{Level: "info"},
		Validator: Validator{
			BlockThreshold:     validator.DefaultBlockThreshold,
			WarnThreshold:      validator.DefaultWarnThreshold,
			MaxRetries:         validator.DefaultMaxRetries,
			VigenciaCutoffYear: validator.DefaultVigenciaCutoffYear,
			Penalties:          defaultPenalties(),
		},
		Enricher: Enricher{
			Weights:         normgraph.DefaultWeights,
			CompetenceBonus: normgraph.DefaultCompetenceBonus,
		},
		Conversation: conversation.Options{
			MaxTurns:        conversation.DefaultMaxTurns,
			MaxAssertions:   conversation.DefaultMaxAssertions,
			MaxAssertionLen: conversation.DefaultMaxAssertionLen,
			MaxSessions:     conversation.DefaultMaxSessions,
		},
		Disclaimer: Disclaimer{
			Fallback:            disclaimer.DefaultFallback,
			ConfidenceThreshold: disclaimer.DefaultConfidenceThreshold,
		},
	}
}

func defaultPenalties() map[string]float64 {
	out := make(map[string]float64)
	for s, p := range validator.DefaultPenalties() {
		out[string(s)] = p
	}
	return out
}

// Path returns flagValue if set, otherwise the value of LCIS_CONFIG.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvPath)
}

// Load reads the file at path. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal: %w", err)
	}
	for s, p := range defaultPenalties() {
		if _, ok := cfg.Validator.Penalties[s]; !ok {
			if cfg.Validator.Penalties == nil {
				cfg.Validator.Penalties = make(map[string]float64)
			}
			cfg.Validator.Penalties[s] = p
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schema     cue.Value
	schemaErr  error
)

func compiledSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compiling config schema: %w", err)
			return
		}
		schema = v.LookupPath(cue.ParsePath("#Config"))
		if !schema.Exists() {
			schemaErr = fmt.Errorf("config schema has no #Config definition")
		}
	})
	return schemaCtx, schema, schemaErr
}

// Validate checks c against the CUE schema.
func (c Config) Validate() error {
	ctx, def, err := compiledSchema()
	if err != nil {
		return err
	}
	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// ValidatorOptions converts the validator section.
func (c Config) ValidatorOptions() validator.Options {
	p := make(map[knowledge.Severity]float64, len(c.Validator.Penalties))
	for s, v := range c.Validator.Penalties {
		p[knowledge.Severity(s)] = v
	}
	return validator.Options{
		BlockThreshold:     c.Validator.BlockThreshold,
		WarnThreshold:      c.Validator.WarnThreshold,
		MaxRetries:         c.Validator.MaxRetries,
		Penalties:          p,
		VigenciaCutoffYear: c.Validator.VigenciaCutoffYear,
	}
}

// EnricherOptions converts the enricher section.
func (c Config) EnricherOptions() normgraph.Options {
	return normgraph.Options{
		Weights:         c.Enricher.Weights,
		CompetenceBonus: c.Enricher.CompetenceBonus,
	}
}

// DisclaimerOptions converts the disclaimer section.
func (c Config) DisclaimerOptions() disclaimer.Options {
	return disclaimer.Options{
		Fallback:            c.Disclaimer.Fallback,
		ConfidenceThreshold: c.Disclaimer.ConfidenceThreshold,
	}
}
