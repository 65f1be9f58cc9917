// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cleanAnswer     = "El procedimiento administrativo común establece plazos claros."
	inversionAnswer = "El Real Decreto 100/2024 deroga la Ley Orgánica 2/2010 de protección de datos."
)

// execute runs the root command with args and stdin, returning stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LCIS_CONFIG", "")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantErr      bool
		wantContains []string
	}{
		{
			name:         "legal vertical forces direct intent",
			args:         []string{"classify", "--vertical", "jarabalex"},
			wantContains: []string{"intent: LEGAL_DIRECT", "full_pipeline: true", "disclaimer: true"},
		},
		{
			name:         "non legal query",
			args:         []string{"classify", "hola"},
			wantContains: []string{"intent: NON_LEGAL", "full_pipeline: false"},
		},
		{
			name:         "json output",
			args:         []string{"classify", "-o", "json", "--vertical", "jarabalex"},
			wantContains: []string{"{", `"LEGAL_DIRECT"`},
		},
		{
			name:    "unsupported output format",
			args:    []string{"classify", "-o", "xml", "hola"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", tt.args...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.wantContains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "", "validate", cleanAnswer)
	require.NoError(t, err)
	assert.Contains(t, out, "action: allow")

	out, err = execute(t, inversionAnswer+"\n", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "action: regenerate")
	assert.Contains(t, out, "hierarchy_inversion")

	out, err = execute(t, "", "validate", "--retry", "2", inversionAnswer)
	require.NoError(t, err)
	assert.Contains(t, out, "action: block")

	_, err = execute(t, "  \n", "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text given")
}

func TestDisclaimerCommand(t *testing.T) {
	out, err := execute(t, "", "disclaimer", "--score", "0.42", "Respuesta.")
	require.NoError(t, err)
	assert.Contains(t, out, "source: fallback")
	assert.Contains(t, out, "no constituye asesoramiento")
	assert.Contains(t, out, "42/100")
}

func TestPromptCommand(t *testing.T) {
	out, err := execute(t, "", "prompt", "--action", "chat", "base")
	require.NoError(t, err)
	assert.Contains(t, out, "applied: false")

	out, err = execute(t, "", "prompt", "--vertical", "jarabalex", "--territory", "Navarra", "base")
	require.NoError(t, err)
	assert.Contains(t, out, "applied: true")
	assert.Contains(t, out, "NOTA FORAL")
}

func TestEnrichCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
hits:
  - score: 0.80
    payload:
      title: Reglamento (UE) 2016/679
      status_legal: vigente
      publication_date: "2016-05-04"
  - score: 0.95
    payload:
      title: Ley 30/1992
      status_legal: derogada
`), 0o600))

	out, err := execute(t, "", "enrich", "--file", path, "--query-date", "2025-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "kept: 1")
	assert.Contains(t, out, "dropped: 1")
	assert.Contains(t, out, "Reglamento (UE) 2016/679")

	_, err = execute(t, "", "enrich")
	require.Error(t, err)

	_, err = execute(t, "", "enrich", "--file", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read documents")
}

func TestCheckCommand(t *testing.T) {
	out, err := execute(t, "", "check", "--query", "¿Qué plazo tengo?", "--vertical", "jarabalex", cleanAnswer)
	require.NoError(t, err)
	assert.Contains(t, out, "intent: LEGAL_DIRECT")
	assert.Contains(t, out, "action: allow")
	assert.Contains(t, out, "disclaimer_source: fallback")
	assert.Contains(t, out, "R1.")

	out, err = execute(t, "", "check", "--query", "hola", "Buenos días.")
	require.NoError(t, err)
	assert.Contains(t, out, "intent: NON_LEGAL")
	assert.NotContains(t, out, "validation:")

	_, err = execute(t, "", "check", "--query", "hola", "--query-date", "ayer", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --query-date")
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("validator:\n  max_retries: 0\n"), 0o600))
	_, err := execute(t, "", "--config", bad, "classify", "hola")
	require.Error(t, err)

	_, err = execute(t, "", "--config", filepath.Join(dir, "missing.yaml"), "classify", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")

	strict := filepath.Join(dir, "strict.yaml")
	require.NoError(t, os.WriteFile(strict, []byte("validator:\n  max_retries: 1\n"), 0o600))
	out, err := execute(t, "", "--config", strict, "validate", "--retry", "1", inversionAnswer)
	require.NoError(t, err)
	assert.Contains(t, out, "action: block")
}
