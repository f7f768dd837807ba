package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/spechealth/internal/application/checks"
	"github.com/doeshing/spechealth/internal/application/orchestrator"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/infrastructure/provider"
	"github.com/doeshing/spechealth/internal/ports"
)

func TestBuildContainerAppliesConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"run:\n  timeout: 5s\n  disabled_checks: [output-index, not-a-check]\ncache:\n  enabled: false\nhistory:\n  enabled: false\n",
	), 0o600))

	c, err := BuildContainer(context.Background(), Options{ConfigPath: path})
	require.NoError(t, err)

	assert.Nil(t, c.CacheStore)
	assert.Nil(t, c.HistoryStore)
	assert.True(t, c.Registry.Discovered())

	meta, ok := c.Registry.Get(checks.OutputIndexID)
	require.True(t, ok)
	assert.False(t, meta.Enabled)
	assert.NotContains(t, c.Registry.ExecutionOrder(), checks.OutputIndexID)

	opts := RunOptions(c.Config)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	require.NotNil(t, opts.ContinueOnError)
	assert.True(t, *opts.ContinueOnError)
	assert.Nil(t, opts.Categories, "no configured categories means every enabled check")
	assert.NoError(t, c.Close())
}

func TestBuildContainerRejectsInvalidConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  burst: 0\n"), 0o600))

	_, err := BuildContainer(context.Background(), Options{ConfigPath: path})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRunOptionsCategories(t *testing.T) {
	cfg := domain.Config{Run: domain.RunSettings{Categories: []string{domain.CategoryContent}}}
	assert.Equal(t, []string{domain.CategoryContent}, RunOptions(cfg).Categories)
}

func TestRunHealthChecksUsesDefaultRegistry(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())

	p := provider.NewMemory(map[string]string{".gitignore": "node_modules\n.env\n.DS_Store\n*.log\n"})
	report := RunHealthChecks(context.Background(), p, orchestrator.Options{
		Categories:   []string{domain.CategoryConfiguration},
		CheckOptions: ports.CheckOptions{checks.OptionOffline: true},
	})

	require.Nil(t, report.Error)
	require.Len(t, report.Results, 3)
	assert.Equal(t, []string{checks.PackageJSONID, checks.SpecsJSONID, checks.GitignoreID},
		[]string{report.Results[0].Check, report.Results[1].Check, report.Results[2].Check})
	assert.Equal(t, domain.StatusPass, report.Results[2].Status)
	assert.Equal(t, 2, report.Summary.Failed)
	assert.Equal(t, domain.ExitCodeErrors, report.ExitCode())
}
