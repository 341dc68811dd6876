package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentgov/gatekeeper/ontology"
)

func TestLoadOntologyOverlayParsesSymbol(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[symbol]]
codepoint = "Ж"
category = "domain"
name = "custom-domain"
description = "overlay-defined domain"
`), 0o644))

	symbols, err := LoadOntologyOverlay(path)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	require.Equal(t, 'Ж', symbols[0].Codepoint)
	require.Equal(t, ontology.CategoryDomain, symbols[0].Category)
	require.Equal(t, "custom-domain", symbols[0].Attributes.Name)
}

func TestLoadOntologyOverlayRejectsMultiRuneCodepoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[symbol]]
codepoint = "ab"
category = "domain"
name = "bad"
`), 0o644))

	_, err := LoadOntologyOverlay(path)
	require.Error(t, err)
}

func TestLoadOntologyOverlayRejectsUnknownCategory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[symbol]]
codepoint = "Ж"
category = "bogus"
name = "bad"
`), 0o644))

	_, err := LoadOntologyOverlay(path)
	require.Error(t, err)
}

func TestOverlayWinsOverDefaultOnCollision(t *testing.T) {
	defaults := ontology.DefaultCatalog()
	require.NotEmpty(t, defaults)
	existing := defaults[0]

	overlay := []ontology.Symbol{{
		Codepoint: existing.Codepoint,
		Category:  existing.Category,
		Attributes: ontology.Attributes{
			Name: "overridden",
		},
	}}

	reg := ontology.New(defaults, overlay)
	sym, ok := reg.Lookup(existing.Codepoint)
	require.True(t, ok)
	require.Equal(t, "overridden", sym.Attributes.Name)
}
