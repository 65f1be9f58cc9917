// SPDX-License-Identifier: Apache-2.0

package disclaimer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jaraba/lcis/internal/disclaimer"
	"github.com/jaraba/lcis/internal/textfold"
	"github.com/jaraba/lcis/internal/validator"
)

const answer = "El plazo para recurrir en alzada es de un mes."

func countMarkers(s string) int {
	folded := textfold.Fold(s)
	n := 0
	for _, m := range []string{
		"no constituye asesoramiento", "caracter orientativo", "consulte con un abogado",
		"consulte con un profesional", "no sustituye el criterio profesional", "informacion orientativa",
	} {
		n += strings.Count(folded, m)
	}
	return n
}

func TestEnforce_AppendsFallback(t *testing.T) {
	e := disclaimer.New(nil, disclaimer.Options{}, nil)
	got, src := e.EnforceWithSource(context.Background(), answer, nil)

	assert.Equal(t, disclaimer.SourceFallback, src)
	assert.Equal(t, answer+"\n\n---\n*"+disclaimer.DefaultFallback+"*", got)
	assert.Equal(t, 1, countMarkers(got))
}

func TestEnforce_Idempotent(t *testing.T) {
	e := disclaimer.New(nil, disclaimer.Options{}, nil)
	ctx := context.Background()
	low := &validator.Result{Score: 0.4}

	once := e.Enforce(ctx, answer, low)
	twice := e.Enforce(ctx, once, low)
	assert.Equal(t, once, twice)
	assert.Equal(t, 1, countMarkers(twice))
	assert.Equal(t, 1, strings.Count(twice, "Índice de confianza jurídica"))
}

func TestEnforce_ExistingDisclaimer(t *testing.T) {
	e := disclaimer.New(nil, disclaimer.Options{}, nil)
	for _, in := range []string{
		answer + " Esta información tiene CARÁCTER ORIENTATIVO.",
		answer + " Consulte con un abogado colegiado.",
		answer + " Información orientativa.",
	} {
		got, src := e.EnforceWithSource(context.Background(), in, nil)
		assert.Equal(t, in, got)
		assert.Equal(t, disclaimer.SourceExisting, src)
	}
}

func TestEnforce_ConfidenceBoundary(t *testing.T) {
	e := disclaimer.New(nil, disclaimer.Options{}, nil)
	ctx := context.Background()

	tests := []struct {
		score float64
		want  string
	}{
		{0.70, ""},
		{0.95, ""},
		{0.69, "Índice de confianza jurídica: 69/100"},
		{0.35, "Índice de confianza jurídica: 35/100"},
		{0, "Índice de confianza jurídica: 0/100"},
	}
	for _, tt := range tests {
		got := e.Enforce(ctx, answer, &validator.Result{Score: tt.score})
		if tt.want == "" {
			assert.NotContains(t, got, "Índice de confianza", "score %v", tt.score)
			continue
		}
		assert.True(t, strings.HasSuffix(got, tt.want), "score %v: %q", tt.score, got)
	}
}

func TestEnforce_Provider(t *testing.T) {
	p := disclaimer.ProviderFunc(func(context.Context) (string, error) {
		return "  Texto del despacho: consulte con un profesional.  ", nil
	})
	e := disclaimer.New(p, disclaimer.Options{}, nil)

	got, src := e.EnforceWithSource(context.Background(), answer, nil)
	assert.Equal(t, disclaimer.SourceProvider, src)
	assert.True(t, strings.HasSuffix(got, "*Texto del despacho: consulte con un profesional.*"))
}

func TestEnforce_ProviderWithoutMarkerIsIdempotent(t *testing.T) {
	p := disclaimer.ProviderFunc(func(context.Context) (string, error) {
		return "Revise su caso con el equipo jurídico del despacho.", nil
	})
	e := disclaimer.New(p, disclaimer.Options{}, nil)
	ctx := context.Background()

	once := e.Enforce(ctx, answer, nil)
	got, src := e.EnforceWithSource(ctx, once, nil)
	assert.Equal(t, once, got)
	assert.Equal(t, disclaimer.SourceExisting, src)
}

func TestEnforce_CustomFallbackWithoutMarkerIsIdempotent(t *testing.T) {
	e := disclaimer.New(nil, disclaimer.Options{Fallback: "Aviso: verifique la normativa vigente en el BOE."}, nil)
	ctx := context.Background()
	low := &validator.Result{Score: 0.4}

	once, src := e.EnforceWithSource(ctx, answer, low)
	assert.Equal(t, disclaimer.SourceFallback, src)

	twice, src := e.EnforceWithSource(ctx, once, low)
	assert.Equal(t, once, twice)
	assert.Equal(t, disclaimer.SourceExisting, src)
	assert.Equal(t, 1, strings.Count(twice, "---"))
	assert.Equal(t, 1, strings.Count(twice, "Índice de confianza jurídica"))
}

func TestEnforce_ProviderThenFallbackIsIdempotent(t *testing.T) {
	calls := 0
	p := disclaimer.ProviderFunc(func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "Revise su caso con el equipo jurídico del despacho.", nil
		}
		return "", errors.New("template service unavailable")
	})
	e := disclaimer.New(p, disclaimer.Options{Fallback: "Aviso: verifique la normativa vigente en el BOE."}, nil)
	ctx := context.Background()

	once := e.Enforce(ctx, answer, nil)
	twice, src := e.EnforceWithSource(ctx, once, nil)
	assert.Equal(t, once, twice)
	assert.Equal(t, disclaimer.SourceExisting, src)
	assert.Equal(t, 1, strings.Count(twice, "---"))
}

func TestEnforce_ProviderFailures(t *testing.T) {
	tests := []struct {
		name string
		p    disclaimer.ProviderFunc
	}{
		{"error", func(context.Context) (string, error) { return "", errors.New("template service down") }},
		{"empty", func(context.Context) (string, error) { return "   ", nil }},
		{"panic", func(context.Context) (string, error) { panic("boom") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			e := disclaimer.New(tt.p, disclaimer.Options{Fallback: "Texto de respaldo: no constituye asesoramiento."}, zap.New(core))

			var got string
			var src disclaimer.Source
			require.NotPanics(t, func() {
				got, src = e.EnforceWithSource(context.Background(), answer, nil)
			})
			assert.Equal(t, disclaimer.SourceFallback, src)
			assert.Contains(t, got, "*Texto de respaldo: no constituye asesoramiento.*")
			assert.Equal(t, 1, logs.Len())
		})
	}
}

func TestHasDisclaimer(t *testing.T) {
	assert.False(t, disclaimer.HasDisclaimer(answer))
	assert.True(t, disclaimer.HasDisclaimer("Este análisis no sustituye el criterio profesional."))
	assert.True(t, disclaimer.HasDisclaimer(disclaimer.DefaultFallback))
}
