package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFillsOmittedFieldsFromDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("driftWarningThreshold: 0.2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 0.2, cfg.DriftWarningThreshold)
	require.Equal(t, Default().DriftCriticalThreshold, cfg.DriftCriticalThreshold)
	require.Equal(t, Default().MaxDelegationDepth, cfg.MaxDelegationDepth)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsCriticalBelowWarning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("driftWarningThreshold: 0.5\ndriftCriticalThreshold: 0.2\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	require.Equal(t, int64(30000), cfg.Cooldown().Milliseconds())
	require.Equal(t, int64(cfg.HoldTimeoutMs), cfg.HoldTimeout().Milliseconds())
	require.Equal(t, int64(cfg.ProposalDefaultTtlMs), cfg.ProposalDefaultTTL().Milliseconds())
}
